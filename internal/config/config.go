package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Ai       AIConfig
	Agent    AgentConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type AIConfig struct {
	EmbeddingProvider string // "tei" or "ollama"
	EmbeddingBaseURL  string
	EmbeddingModel    string
	EmbeddingDim      int
	LLMProvider       string // "openai" or "ollama"
	LLMBaseURL        string
	LLMAPIKey         string
	LLMModel          string // default (light) generation model
	LLMModelLarge     string // high-capacity model for long contexts
	RerankBaseURL     string
	RerankAPIKey      string
	RerankModel       string
	OllamaBaseURL     string
}

type AgentConfig struct {
	CacheDistanceThreshold float64 // semantic cache hit distance
	CacheTTLHours          int
	MemoryWindow           int // turns kept per session
	MemoryTTLDays          int
	SQLMaxAttempts         int
	LargeModelThreshold    int // combined context chars before switching models
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", "smtp.naver.com"),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "DeepNexus"),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "tei"),
			EmbeddingBaseURL:  getEnv("EMBEDDING_BASE_URL", "http://localhost:8080"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "nlpai-lab/KURE-v1"),
			EmbeddingDim:      getEnvAsInt("EMBEDDING_DIM", 1024),
			LLMProvider:       getEnv("LLM_PROVIDER", "openai"),
			LLMBaseURL:        getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			LLMAPIKey:         getEnv("LLM_API_KEY", ""),
			LLMModel:          getEnv("LLM_MODEL", "gpt-4o-mini"),
			LLMModelLarge:     getEnv("LLM_MODEL_LARGE", "gpt-4o"),
			RerankBaseURL:     getEnv("RERANK_BASE_URL", "http://localhost:8081"),
			RerankAPIKey:      getEnv("RERANK_API_KEY", ""),
			RerankModel:       getEnv("RERANK_MODEL", "BAAI/bge-reranker-v2-m3"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		},
		Agent: AgentConfig{
			CacheDistanceThreshold: getEnvAsFloat("CACHE_DISTANCE_THRESHOLD", 0.1),
			CacheTTLHours:          getEnvAsInt("CACHE_TTL_HOURS", 24),
			MemoryWindow:           getEnvAsInt("MEMORY_WINDOW", 30),
			MemoryTTLDays:          getEnvAsInt("MEMORY_TTL_DAYS", 7),
			SQLMaxAttempts:         getEnvAsInt("SQL_MAX_ATTEMPTS", 3),
			LargeModelThreshold:    getEnvAsInt("LARGE_MODEL_THRESHOLD", 15000),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
