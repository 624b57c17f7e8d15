package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/notevanta/backend/internal/api/handlers"
	"github.com/notevanta/backend/internal/api/middleware"
)

type Deps struct {
	Ingest   *handlers.IngestHandler
	Document *handlers.DocumentHandler
	Chat     *handlers.ChatHandler
	History  *handlers.HistoryHandler
	Quota    *handlers.QuotaHandler
	Title    *handlers.TitleHandler
	WS       *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Protected routes (JWT)
	api := r.Group("/api")
	api.Use(middleware.JWTAuth())

	api.POST("/indexing", d.Ingest.Upload)
	api.GET("/documents", d.Document.List)
	api.DELETE("/documents", d.Document.Delete)

	api.POST("/chat", d.Chat.Stream)

	api.POST("/chats", d.History.Save)
	api.GET("/chats", d.History.List)
	api.GET("/chats/:chat_id", d.History.Get)
	api.DELETE("/chats/:chat_id", d.History.Delete)
	api.POST("/chats/:chat_id/title", d.History.Retitle)

	api.GET("/message-limit", d.Quota.Status)
	api.POST("/message-limit/consume", d.Quota.Consume)

	api.POST("/generate-title", d.Title.Generate)

	// WebSocket
	ws := r.Group("/ws")
	ws.Use(middleware.JWTAuth())
	ws.GET("/chat", d.WS.ChatWS)
}
