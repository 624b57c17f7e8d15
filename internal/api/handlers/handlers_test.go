package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notevanta/backend/internal/loaders"
	"github.com/notevanta/backend/internal/models"
	"github.com/notevanta/backend/internal/services"
	"github.com/notevanta/backend/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// closeNotifyRecorder adds the http.CloseNotifier implementation that
// gin's c.Stream requires but httptest.ResponseRecorder lacks.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newCloseNotifyRecorder() *closeNotifyRecorder {
	return &closeNotifyRecorder{httptest.NewRecorder(), make(chan bool, 1)}
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool { return r.closed }

// asUser injects an authenticated identity the way the JWT middleware does.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	}
}

type stubChatService struct {
	tokens []string
	err    error
}

func (s *stubChatService) Answer(context.Context, string, []models.Message, string) (<-chan string, <-chan error, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	out := make(chan string, len(s.tokens))
	errs := make(chan error)
	for _, t := range s.tokens {
		out <- t
	}
	close(out)
	close(errs)
	return out, errs, nil
}

type stubHistoryService struct {
	savedID string
	saved   []models.Message
	listErr error
	records []models.ChatRecord
}

func (s *stubHistoryService) Save(_ context.Context, _ string, chatID string, messages []models.Message) (string, error) {
	s.saved = messages
	if chatID == "" {
		chatID = "generated-id"
	}
	s.savedID = chatID
	return chatID, nil
}

func (s *stubHistoryService) Get(context.Context, string, string) (*models.ChatRecord, error) {
	return nil, utils.E(utils.CodeNotFound, "stub", "chat not found", nil)
}

func (s *stubHistoryService) List(context.Context, string, int) ([]models.ChatRecord, error) {
	return s.records, s.listErr
}

func (s *stubHistoryService) Delete(context.Context, string, string) error { return nil }

func (s *stubHistoryService) Retitle(context.Context, string, string) (string, error) {
	return "Retitled", nil
}

type stubIngestService struct {
	got loaders.Source
	res *services.IngestResult
	err error
}

func (s *stubIngestService) Ingest(_ context.Context, _ string, src loaders.Source) (*services.IngestResult, error) {
	s.got = src
	if s.err != nil {
		return nil, s.err
	}
	return s.res, nil
}

type stubDocumentService struct {
	docs    []models.Document
	deleted string
}

func (s *stubDocumentService) List(context.Context, string) ([]models.Document, error) {
	return s.docs, nil
}

func (s *stubDocumentService) Delete(_ context.Context, _ string, filename string) error {
	s.deleted = filename
	return nil
}

func TestChatHandler_Stream(t *testing.T) {
	t.Run("streams tokens then done with the chat id", func(t *testing.T) {
		history := &stubHistoryService{}
		h := NewChatHandler(&stubChatService{tokens: []string{"Hi", "!"}}, history, testLogger())

		r := gin.New()
		r.POST("/chat", asUser("u1"), h.Stream)

		body, _ := json.Marshal(map[string]any{
			"messages": []models.Message{{Role: "user", Parts: []models.MessagePart{{Type: "text", Text: "hello"}}}},
			"model":    "google",
		})
		w := newCloseNotifyRecorder()
		req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

		raw := w.Body.String()
		assert.Contains(t, raw, "event:token")
		assert.Contains(t, raw, "data:Hi")
		assert.Contains(t, raw, "event:done")
		assert.Contains(t, raw, "generated-id")

		// The assistant turn was appended before persisting.
		require.Len(t, history.saved, 2)
		assert.Equal(t, "assistant", history.saved[1].Role)
		assert.Equal(t, "Hi!", history.saved[1].TextOf())
	})

	t.Run("quota exhaustion is a 429 before any streaming", func(t *testing.T) {
		chat := &stubChatService{err: utils.E(utils.CodeQuotaExceeded, "QuotaService.Gate", "daily message limit reached", nil)}
		h := NewChatHandler(chat, &stubHistoryService{}, testLogger())

		r := gin.New()
		r.POST("/chat", asUser("u1"), h.Stream)

		body, _ := json.Marshal(map[string]any{
			"messages": []models.Message{{Role: "user", Parts: []models.MessagePart{{Type: "text", Text: "hello"}}}},
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		var apiErr APIError
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
		assert.Equal(t, utils.CodeQuotaExceeded, apiErr.Code)
	})

	t.Run("missing identity is a 401", func(t *testing.T) {
		h := NewChatHandler(&stubChatService{}, &stubHistoryService{}, testLogger())

		r := gin.New()
		r.POST("/chat", asUser(""), h.Stream)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte(`{"messages":[]}`)))
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write(fileData)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestIngestHandler_Upload(t *testing.T) {
	newRouter := func(svc services.IngestService) *gin.Engine {
		r := gin.New()
		r.POST("/documents/upload", asUser("u1"), NewIngestHandler(svc).Upload)
		return r
	}

	t.Run("text file upload", func(t *testing.T) {
		svc := &stubIngestService{res: &services.IngestResult{ChunkCount: 3}}
		r := newRouter(svc)

		body, ct := multipartBody(t, map[string]string{"type": "text"}, "file", "notes.txt", []byte("hello world"))
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", ct)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, loaders.KindText, svc.got.Kind)
		assert.Equal(t, "notes.txt", svc.got.Filename)
		assert.Equal(t, []byte("hello world"), svc.got.Data)
		assert.Contains(t, w.Body.String(), `"chunks":3`)
	})

	t.Run("pasted text without a file", func(t *testing.T) {
		svc := &stubIngestService{res: &services.IngestResult{ChunkCount: 1}}
		r := newRouter(svc)

		body, ct := multipartBody(t, map[string]string{"type": "text", "text": "pasted content"}, "", "", nil)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", ct)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "pasted content", svc.got.Text)
		assert.Equal(t, "pasted-text.txt", svc.got.Filename)
	})

	t.Run("website crawl mode", func(t *testing.T) {
		svc := &stubIngestService{res: &services.IngestResult{ChunkCount: 7}}
		r := newRouter(svc)

		body, ct := multipartBody(t, map[string]string{
			"type": "website",
			"mode": "crawl",
			"url":  "https://docs.example.com/start",
		}, "", "", nil)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", ct)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, loaders.KindCrawl, svc.got.Kind)
		assert.Equal(t, "https://docs.example.com/start", svc.got.URL)
		assert.Equal(t, "docs.example.com", svc.got.Filename)
	})

	t.Run("unsupported type is a 400", func(t *testing.T) {
		r := newRouter(&stubIngestService{})

		body, ct := multipartBody(t, map[string]string{"type": "audio"}, "", "", nil)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", ct)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad website url is a 400", func(t *testing.T) {
		r := newRouter(&stubIngestService{})

		body, ct := multipartBody(t, map[string]string{"type": "website", "url": "ftp://example.com"}, "", "", nil)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", ct)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDocumentHandler(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		svc := &stubDocumentService{docs: []models.Document{{Filename: "a.pdf"}}}
		r := gin.New()
		r.GET("/documents", asUser("u1"), NewDocumentHandler(svc).List)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "a.pdf")
	})

	t.Run("delete by query filename", func(t *testing.T) {
		svc := &stubDocumentService{}
		r := gin.New()
		r.DELETE("/documents", asUser("u1"), NewDocumentHandler(svc).Delete)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/documents?filename=report.pdf", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "report.pdf", svc.deleted)
	})

	t.Run("delete without filename is a 400", func(t *testing.T) {
		r := gin.New()
		r.DELETE("/documents", asUser("u1"), NewDocumentHandler(&stubDocumentService{}).Delete)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/documents", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
