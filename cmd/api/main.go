package main

import (
	"fmt"
	"log"

	"chat-ai-be/internal/ai"
	"chat-ai-be/internal/blob"
	"chat-ai-be/internal/chat"
	"chat-ai-be/internal/config"
	"chat-ai-be/internal/database"
	"chat-ai-be/internal/http/handlers"
	"chat-ai-be/internal/http/middleware"
	"chat-ai-be/internal/models"
	"chat-ai-be/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.DBDSN == "" || cfg.JWTSecret == "" {
		log.Fatal("DB_DSN and JWT_SECRET must be set in .env")
	}

	db, err := database.ConnectMySQL(cfg.DBDSN)
	if err != nil {
		log.Fatal("failed connect db:", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Message{}); err != nil {
		log.Fatal("failed migrate:", err)
	}

	presence := ws.NewPresence()
	hub := ws.NewHub(presence)

	store := chat.NewStore(db)
	blobs := blob.NewClient(cfg.BlobUploadURL, cfg.BlobUploadPreset)
	sender := chat.NewSender(store, blobs, hub)

	provider, err := ai.NewProvider(ai.Config{
		Provider:     cfg.AIProvider,
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		OpenAIModel:  cfg.OpenAIModel,
	})
	if err != nil {
		log.Fatal("failed init ai provider:", err)
	}
	aiSvc := ai.NewService(store, provider)

	r := gin.Default()

	// Auth
	authH := &handlers.AuthHandler{DB: db, JWTSecret: cfg.JWTSecret, Blobs: blobs}
	r.POST("/api/v1/auth/register", authH.Register)
	r.POST("/api/v1/auth/login", authH.Login)

	// WebSocket endpoint
	wsH := &handlers.WSHandler{
		Hub:                  hub,
		JWTSecret:            cfg.JWTSecret,
		WSInsecureSkipVerify: cfg.WSInsecureSkipVerify,
	}
	r.GET("/ws", wsH.Handle)

	// Protected routes
	authed := r.Group("/api/v1")
	authed.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	authed.GET("/auth/me", authH.Me)
	authed.PUT("/auth/profile", authH.UpdateProfile)

	msgH := &handlers.MessageHandler{Store: store, Sender: sender}
	authed.GET("/messages/users", msgH.ListPartners)
	authed.GET("/messages/:id", msgH.ListMessages)
	authed.POST("/messages/send/:id", msgH.SendMessage)

	aiH := &handlers.AIHandler{AI: aiSvc}
	authed.POST("/ai/analyze", aiH.Analyze)
	authed.POST("/ai/query", aiH.Query)
	authed.POST("/ai/follow-ups", aiH.FollowUps)
	authed.POST("/ai/replies", aiH.Replies)
	authed.POST("/ai/refine", aiH.Refine)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Println("listening on", addr)
	log.Fatal(r.Run(addr))
}
