package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Llm      LLMConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LlmLogFilePath     string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	DedupBackend       string // "memory" or "redis"
	RateLimitPerMinute int
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	Gemini    string
	OpenAI    string
	Anthropic string
	Tavily    string
	Serper    string
	Jina      string
}

type LLMConfig struct {
	FallbackChain []string
	VisionChain   []string
	Temperature   float64
	MaxTokens     int
	CallTimeout   time.Duration
	Cooldown      time.Duration
	OllamaBaseURL string
}

var (
	DefaultFallbackChain = []string{
		"gemini/gemini-2.5-pro",
		"gemini/gemini-2.5-flash",
		"gemini/gemini-2.0-flash",
		"openai/gpt-4o-mini",
		"anthropic/claude-3-haiku",
	}
	DefaultVisionChain = []string{
		"gemini/gemini-2.5-pro",
		"gemini/gemini-3-pro",
		"openai/gpt-4o",
	}
)

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			LlmLogFilePath:     getEnv("LLM_LOG_FILE_PATH", "logs/llm.log"),
			CorsAllowedOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			DedupBackend:       getEnv("DEDUP_BACKEND", "memory"),
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 20),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			Gemini:    getEnv("GEMINI_API_KEY", ""),
			OpenAI:    getEnv("OPENAI_API_KEY", ""),
			Anthropic: getEnv("ANTHROPIC_API_KEY", ""),
			Tavily:    getEnv("TAVILY_API_KEY", ""),
			Serper:    getEnv("SERPER_API_KEY", ""),
			Jina:      getEnv("JINA_API_KEY", ""),
		},
		Llm: LLMConfig{
			FallbackChain: getEnvAsList("LLM_FALLBACK_CHAIN", DefaultFallbackChain),
			VisionChain:   getEnvAsList("LLM_VISION_CHAIN", DefaultVisionChain),
			Temperature:   getEnvAsFloat("LLM_TEMPERATURE", 0.3),
			MaxTokens:     getEnvAsInt("LLM_MAX_TOKENS", 2000),
			CallTimeout:   getEnvAsDuration("LLM_CALL_TIMEOUT", 90*time.Second),
			Cooldown:      getEnvAsDuration("LLM_COOLDOWN", 600*time.Second),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", ""),
		},
	}
}

// IsProduction reports whether GO_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// CorsOrigins splits the comma separated origin list.
func (c *Config) CorsOrigins() []string {
	return splitList(c.App.CorsAllowedOrigins)
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	items := splitList(getEnv(key, ""))
	if len(items) == 0 {
		return append([]string(nil), fallback...)
	}
	return items
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
