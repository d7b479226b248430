package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docuchat-backend/internal/ai"
	"docuchat-backend/internal/chat"
	"docuchat-backend/internal/chunker"
	"docuchat-backend/internal/config"
	"docuchat-backend/internal/extractor"
	"docuchat-backend/internal/index"
	"docuchat-backend/internal/ingest"
	"docuchat-backend/internal/loader"
	"docuchat-backend/internal/logger"
	"docuchat-backend/internal/session"
	"docuchat-backend/internal/store"
	"docuchat-backend/internal/telemetry"
	"docuchat-backend/middleware"
	"docuchat-backend/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	// Initialize tracing when an OTLP endpoint is configured
	if cfg.TelemetryEnabled {
		shutdownTracer, err := telemetry.InitTracer("docuchat-backend", cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("Tracing disabled", "error", err)
		} else {
			defer shutdownTracer()
		}
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	// Document storage backing both ingestion and indexing
	docStore, err := store.NewDirStore(cfg.DocumentDir)
	if err != nil {
		log.Fatal("Failed to open document directory:", err)
	}

	// Session history lives in Redis when configured, otherwise in memory
	var sessions session.Store = session.NewMemoryStore()
	if cfg.RedisURL != "" {
		redisClient, err := config.NewRedisClient(cfg)
		if err != nil {
			log.Fatal("Failed to connect to Redis:", err)
		}
		defer redisClient.Close()
		sessions = session.NewRedisStore(redisClient, cfg.SessionTTL)
		logger.Info("Session store: redis", "url", cfg.RedisURL)
	}

	ctx := context.Background()
	gemini, err := ai.NewGeminiClient(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to create Gemini client:", err)
	}
	defer gemini.Close()

	splitter, err := chunker.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap, '\n')
	if err != nil {
		log.Fatal("Invalid chunking configuration:", err)
	}

	ext := extractor.NewExtractor(cfg.RenderTimeout, cfg.NetworkIdleAfter)
	ingestor := ingest.NewIngestor(docStore, ext)

	orchestrator := chat.NewOrchestrator(
		docStore,
		loader.NewLoader(),
		splitter,
		index.NewBuilder(gemini),
		gemini,
		sessions,
		cfg.TopK,
	).WithMetrics(metrics)

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	if cfg.TelemetryEnabled {
		router.Use(middleware.TracingMiddleware())
		router.Use(middleware.EnrichTrace())
	}
	router.Use(middleware.MetricsMiddleware(metrics))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	// Setup routes
	routes.SetupIngestRoutes(router, cfg, ingestor, docStore, metrics)
	routes.SetupChatRoutes(router, orchestrator, metrics)
	routes.SetupFallbackRoutes(router)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
