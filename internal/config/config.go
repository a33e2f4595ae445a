package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Auth      AuthConfig
	Ai        AIConfig
	LightRAG  LightRAGConfig
	Memory    MemoryConfig
	Events    EventsConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Port               string        `env:"APP_PORT" env-default:"3000"`
	Environment        string        `env:"GO_ENV" env-default:"development"`
	LogFilePath        string        `env:"LOG_FILE_PATH" env-default:"logs/app.log"`
	LLMLogFilePath     string        `env:"LLM_LOG_FILE_PATH" env-default:"logs/llm_rag.log"`
	CorsAllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:5173"`
	SessionTTL         time.Duration `env:"SESSION_TTL" env-default:"24h"`
	DefaultBackend     string        `env:"DEFAULT_BACKEND" env-default:"openai"`
}

type AuthConfig struct {
	// Empty disables authentication; every session then belongs to "anonymous".
	JwtSecret string `env:"JWT_SECRET"`
}

type AIConfig struct {
	OpenAIAPIKey  string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL"`
	OpenAIModel   string        `env:"OPENAI_MODEL" env-default:"gpt-4o"`
	LMStudioURL   string        `env:"LMSTUDIO_URL" env-default:"http://localhost:1234/v1/chat/completions"`
	LMStudioModel string        `env:"LMSTUDIO_MODEL" env-default:"medgemma-4b-it"`
	Timeout       time.Duration `env:"LLM_TIMEOUT" env-default:"120s"`
}

type LightRAGConfig struct {
	ServerURL  string        `env:"LIGHTRAG_SERVER_URL" env-default:"http://localhost:9621"`
	ChunksPath string        `env:"LIGHTRAG_CHUNKS_PATH" env-default:"rag_storage/kv_store_text_chunks.json"`
	Timeout    time.Duration `env:"LIGHTRAG_TIMEOUT" env-default:"10s"`
}

type MemoryConfig struct {
	Source   string `env:"MEMORY_SOURCE" env-default:"file"` // "file" or "redis"
	RedisURL string `env:"REDIS_URL" env-default:"redis://localhost:6379"`
	RedisKey string `env:"MEMORY_REDIS_KEY" env-default:"medconsult:chunks"`
}

type EventsConfig struct {
	// Empty keeps events in-process only.
	NatsURL string `env:"NATS_URL"`
}

type TelemetryConfig struct {
	OtelEnabled  bool   `env:"OTEL_ENABLED" env-default:"false"`
	OtelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4318"`
}

// IsProduction reports whether GO_ENV selects production logging.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Load reads .env (if any) and the process environment once.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}
	return read()
}

func read() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	cfg.Memory.Source = strings.ToLower(strings.TrimSpace(cfg.Memory.Source))
	switch cfg.Memory.Source {
	case "file", "redis":
	default:
		return nil, fmt.Errorf("MEMORY_SOURCE must be file or redis, got %q", cfg.Memory.Source)
	}
	return &cfg, nil
}
