package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"docuchat-backend/models"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// Provider configuration
	GeminiAPIKey    string
	EmbeddingModel  string
	GenerationModel string
	ProviderTimeout time.Duration

	// Ingestion
	DocumentDir string
	MaxFileSize int64

	// Extraction
	RenderTimeout    time.Duration
	NetworkIdleAfter time.Duration

	// Chunking / retrieval
	ChunkSize    int
	ChunkOverlap int
	TopK         int

	// Session storage. Sessions live in process memory unless a Redis
	// address is configured.
	RedisURL      string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration

	// Telemetry
	OTLPEndpoint     string
	TelemetryEnabled bool
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "5000"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		GenerationModel: getEnv("GENERATION_MODEL", "gemini-2.0-flash"),
		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT", 30*time.Second),

		DocumentDir: getEnv("DOCUMENT_DIR", "./documents"),
		MaxFileSize: getEnvInt64("MAX_FILE_SIZE", 20971520), // 20MB

		RenderTimeout:    getEnvDuration("RENDER_TIMEOUT", 45*time.Second),
		NetworkIdleAfter: getEnvDuration("NETWORK_IDLE_AFTER", 1200*time.Millisecond),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),
		TopK:         getEnvInt("RETRIEVAL_TOP_K", 4),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SessionTTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),

		OTLPEndpoint:     getEnv("OTLP_ENDPOINT", "localhost:4317"),
		TelemetryEnabled: getEnvBool("TELEMETRY_ENABLED", false),
	}

	// Validate required fields once, at startup, instead of per provider call.
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is required - set it in .env file", models.ErrConfig)
	}

	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: CHUNK_SIZE must be positive, got %d", models.ErrConfig, cfg.ChunkSize)
	}

	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("%w: CHUNK_OVERLAP must satisfy 0 <= overlap < size, got %d/%d",
			models.ErrConfig, cfg.ChunkOverlap, cfg.ChunkSize)
	}

	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("%w: RETRIEVAL_TOP_K must be positive, got %d", models.ErrConfig, cfg.TopK)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
