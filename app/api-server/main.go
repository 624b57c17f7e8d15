package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/notevanta/backend/config"
	"github.com/notevanta/backend/internal/api/handlers"
	"github.com/notevanta/backend/internal/api/middleware"
	"github.com/notevanta/backend/internal/api/routes"
	"github.com/notevanta/backend/internal/cache"
	"github.com/notevanta/backend/internal/chunker"
	"github.com/notevanta/backend/internal/loaders"
	"github.com/notevanta/backend/internal/logger"
	"github.com/notevanta/backend/internal/providers/embedding"
	"github.com/notevanta/backend/internal/providers/llm"
	mongorepo "github.com/notevanta/backend/internal/repositories/mongo"
	pgrepo "github.com/notevanta/backend/internal/repositories/postgres"
	"github.com/notevanta/backend/internal/services"
	"github.com/notevanta/backend/internal/vectorindex"
)

func main() {
	_ = godotenv.Load()
	l := logger.New()

	// Init MongoDB
	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("MongoDB index error: %v", err)
	}
	l.Info("MongoDB connected")

	// Init PostgreSQL
	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	l.Info("PostgreSQL connected")

	// Init Redis (embedding cache; the server runs without it)
	if err := config.InitRedis(); err != nil {
		l.WithField("error", err.Error()).Warn("Redis unavailable, embedding cache disabled")
	} else {
		l.Info("Redis connected")
	}

	ctx := context.Background()

	// Embeddings
	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		log.Fatal("GEMINI_API_KEY is not set")
	}
	embedClient, err := embedding.NewGemini(ctx, geminiKey, os.Getenv("EMBEDDING_MODEL"))
	if err != nil {
		log.Fatalf("embedding client init error: %v", err)
	}
	defer embedClient.Close()

	var embedder embedding.Embedder = embedClient
	if config.RedisClient != nil {
		embedder = embedding.NewCachingEmbedder(embedClient, cache.NewRedisCache(config.RedisClient), embedClient.Model())
	}

	// Vector index
	index, err := buildIndex()
	if err != nil {
		log.Fatalf("vector index init error: %v", err)
	}

	// Chat models
	gemini, err := llm.NewGemini(ctx, geminiKey, os.Getenv("GEMINI_CHAT_MODEL"))
	if err != nil {
		log.Fatalf("gemini client init error: %v", err)
	}
	registry := llm.NewRegistry()
	registry.Register(llm.ChoiceGemini, gemini)
	if groqKey := os.Getenv("GROQ_API_KEY"); groqKey != "" {
		registry.Register(llm.ChoiceGroq, llm.NewGroq(llm.GroqConfig{APIKey: groqKey}))
	}
	defer registry.Close()

	// Repositories
	mongoDB := config.MongoDatabase()
	docRepo := pgrepo.NewDocumentRepo(config.PostgresDB)
	chatRepo := mongorepo.NewChatRepo(mongoDB)
	quotaRepo := mongorepo.NewQuotaRepo(mongoDB)

	// Services
	adapter := loaders.NewAdapter(&http.Client{Timeout: 20 * time.Second}, l)
	splitter := chunker.New()

	quotaSvc := services.NewQuotaService(quotaRepo, dailyLimit())
	ingestSvc := services.NewIngestService(adapter, splitter, embedder, index, docRepo, l)
	documentSvc := services.NewDocumentService(docRepo, index, l)
	chatSvc := services.NewChatService(quotaSvc, embedder, index, registry, l)
	titleSvc := services.NewTitleService(gemini, l)
	historySvc := services.NewChatHistoryService(chatRepo, titleSvc, l)

	// HTTP
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(l))

	routes.RegisterRoutes(r, routes.Deps{
		Ingest:   handlers.NewIngestHandler(ingestSvc),
		Document: handlers.NewDocumentHandler(documentSvc),
		Chat:     handlers.NewChatHandler(chatSvc, historySvc, l),
		History:  handlers.NewHistoryHandler(historySvc),
		Quota:    handlers.NewQuotaHandler(quotaSvc),
		Title:    handlers.NewTitleHandler(titleSvc),
		WS:       handlers.NewWSHandler(chatSvc, historySvc, l),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// buildIndex selects the vector store backend. Qdrant is the default;
// VECTOR_STORE=pgvector keeps everything in PostgreSQL.
func buildIndex() (vectorindex.Index, error) {
	switch os.Getenv("VECTOR_STORE") {
	case "pgvector":
		return vectorindex.NewPGVector(config.PostgresDB)
	default:
		return vectorindex.NewQdrant(vectorindex.QdrantConfig{
			URL:    os.Getenv("QDRANT_URL"),
			APIKey: os.Getenv("QDRANT_API_KEY"),
		}), nil
	}
}

func dailyLimit() int {
	if s := os.Getenv("DAILY_MESSAGE_LIMIT"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return services.DefaultDailyLimit
}
