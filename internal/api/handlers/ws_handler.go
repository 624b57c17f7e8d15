package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/notevanta/backend/internal/models"
	"github.com/notevanta/backend/internal/services"
	"github.com/notevanta/backend/internal/utils"
)

// WSHandler is the websocket variant of the chat endpoint for clients
// that keep a single connection open across turns.
type WSHandler struct {
	chat     services.ChatService
	history  services.ChatHistoryService
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(chat services.ChatService, history services.ChatHistoryService, log *logrus.Logger) *WSHandler {
	return &WSHandler{
		chat:    chat,
		history: history,
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsClientMsg struct {
	Type     string           `json:"type"`
	ChatID   string           `json:"chat_id"`
	Messages []models.Message `json:"messages"`
	Model    string           `json:"model"`
}

type wsServerMsg struct {
	Type   string     `json:"type"`
	Token  string     `json:"token,omitempty"`
	ChatID string     `json:"chat_id,omitempty"`
	Code   utils.Code `json:"code,omitempty"`
	Msg    string     `json:"message,omitempty"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteJSON(v)
}

func (h *WSHandler) ChatWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote the response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
		_, data, rerr := conn.ReadMessage()
		if rerr != nil {
			return
		}

		var msg wsClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = wc.writeJSON(wsServerMsg{Type: "error", Code: utils.CodeInvalidArgument, Msg: "invalid json"})
			continue
		}

		switch msg.Type {
		case "chat":
			h.serveTurn(ctx, wc, userID, msg)
		case "close":
			return
		default:
			_ = wc.writeJSON(wsServerMsg{Type: "error", Code: utils.CodeInvalidArgument, Msg: "unknown message type"})
		}
	}
}

func (h *WSHandler) serveTurn(ctx context.Context, wc *wsConn, userID string, msg wsClientMsg) {
	out, errs, err := h.chat.Answer(ctx, userID, msg.Messages, msg.Model)
	if err != nil {
		wsWriteError(wc, err)
		return
	}

	var answer strings.Builder
	for {
		select {
		case tok, open := <-out:
			if !open {
				h.finishTurn(ctx, wc, userID, msg, answer.String())
				return
			}
			answer.WriteString(tok)
			if werr := wc.writeJSON(wsServerMsg{Type: "token", Token: tok}); werr != nil {
				return
			}
		case serr, open := <-errs:
			if !open {
				errs = nil // keep draining buffered tokens
				continue
			}
			if serr != nil {
				h.log.WithFields(logrus.Fields{"user_id": userID, "error": serr.Error()}).
					Warn("chat stream ended with error")
				_ = wc.writeJSON(wsServerMsg{Type: "error", Code: utils.CodeModelStream, Msg: "model stream interrupted"})
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *WSHandler) finishTurn(ctx context.Context, wc *wsConn, userID string, msg wsClientMsg, answer string) {
	msgs := msg.Messages
	if answer != "" {
		msgs = append(msgs, models.Message{
			Role:  "assistant",
			Parts: []models.MessagePart{{Type: "text", Text: answer}},
		})
	}

	chatID, err := h.history.Save(ctx, userID, msg.ChatID, msgs)
	if err != nil {
		h.log.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).
			Warn("failed to persist chat history")
		chatID = msg.ChatID
	}
	_ = wc.writeJSON(wsServerMsg{Type: "done", ChatID: chatID})
}

func wsWriteError(wc *wsConn, err error) {
	code := utils.CodeInternal
	message := "internal error"
	var ae *utils.AppError
	if errors.As(err, &ae) {
		code = ae.Code
		message = ae.Message
	}
	_ = wc.writeJSON(wsServerMsg{Type: "error", Code: code, Msg: message})
}
