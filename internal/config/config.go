package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	APIPort  string
	LogLevel string

	GeminiAPIKey string
	GeminiModel  string
	GeminiURL    string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	AnthropicAPIKey string
	AnthropicModel  string
	AnthropicURL    string

	AIProviderOrder   []string
	AIProviderTimeout time.Duration

	OllamaURL        string
	MLSummaryEnabled bool
	MLSummaryModel   string
	MLInitTimeout    time.Duration
	MLIdleTimeout    time.Duration

	VocabularyFile string
	StageDelay     time.Duration

	ResultStore    string
	RedisAddr      string
	RedisResultTTL time.Duration

	NATSURL             string
	NATSIngestSubject   string
	NATSProgressSubject string

	PostgresDSN string

	QdrantURL        string
	QdrantCollection string
	ChunkSize        int
	ChunkOverlap     int

	StoragePath       string
	MaxUploadBytes    int64
	APIRateLimitRPS   float64
	APIRateLimitBurst int

	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      int
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls int

	WorkerMetricsPort string
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		GeminiAPIKey: mustEnv("GEMINI_API_KEY", ""),
		GeminiModel:  mustEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiURL:    mustEnv("GEMINI_URL", "https://generativelanguage.googleapis.com/v1beta"),

		OpenAIAPIKey:  mustEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   mustEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: mustEnv("OPENAI_BASE_URL", ""),

		AnthropicAPIKey: mustEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  mustEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		AnthropicURL:    mustEnv("ANTHROPIC_URL", "https://api.anthropic.com"),

		AIProviderOrder:   mustEnvList("AI_PROVIDER_ORDER", []string{"gemini", "openai", "anthropic"}),
		AIProviderTimeout: mustEnvDuration("AI_PROVIDER_TIMEOUT", 30*time.Second),

		OllamaURL:        mustEnv("OLLAMA_URL", "http://localhost:11434"),
		MLSummaryEnabled: mustEnvBool("ML_SUMMARY_ENABLED", false),
		MLSummaryModel:   mustEnv("ML_SUMMARY_MODEL", "llama3.2:1b"),
		MLInitTimeout:    mustEnvDuration("ML_INIT_TIMEOUT", 5*time.Second),
		MLIdleTimeout:    mustEnvDuration("ML_IDLE_TIMEOUT", 5*time.Minute),

		VocabularyFile: mustEnv("VOCABULARY_FILE", ""),
		StageDelay:     mustEnvDuration("STAGE_DELAY", 500*time.Millisecond),

		ResultStore:    strings.ToLower(mustEnv("RESULT_STORE", "memory")),
		RedisAddr:      mustEnv("REDIS_ADDR", "localhost:6379"),
		RedisResultTTL: mustEnvDuration("REDIS_RESULT_TTL", 24*time.Hour),

		NATSURL:             mustEnv("NATS_URL", ""),
		NATSIngestSubject:   mustEnv("NATS_INGEST_SUBJECT", "documents.ingest"),
		NATSProgressSubject: mustEnv("NATS_PROGRESS_SUBJECT", "documents.progress"),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		QdrantURL:        mustEnv("QDRANT_URL", ""),
		QdrantCollection: mustEnv("QDRANT_COLLECTION", "transit_documents"),
		ChunkSize:        mustEnvInt("CHUNK_SIZE", 900),
		ChunkOverlap:     mustEnvInt("CHUNK_OVERLAP", 150),

		StoragePath:       mustEnv("STORAGE_PATH", "./data/uploads"),
		MaxUploadBytes:    int64(mustEnvInt("MAX_UPLOAD_BYTES", 25<<20)),
		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 20),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 40),

		RetryMaxAttempts:    mustEnvInt("RETRY_MAX_ATTEMPTS", 2),
		RetryInitialBackoff: mustEnvDuration("RETRY_INITIAL_BACKOFF", 200*time.Millisecond),
		RetryMaxBackoff:     mustEnvDuration("RETRY_MAX_BACKOFF", time.Second),
		RetryMultiplier:     mustEnvFloat("RETRY_MULTIPLIER", 2),

		BreakerEnabled:          mustEnvBool("BREAKER_ENABLED", true),
		BreakerMinRequests:      mustEnvInt("BREAKER_MIN_REQUESTS", 5),
		BreakerFailureRatio:     mustEnvFloat("BREAKER_FAILURE_RATIO", 0.6),
		BreakerOpenTimeout:      mustEnvDuration("BREAKER_OPEN_TIMEOUT", time.Minute),
		BreakerHalfOpenMaxCalls: mustEnvInt("BREAKER_HALF_OPEN_MAX_CALLS", 1),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

func mustEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvDuration accepts Go duration strings or a bare number of seconds.
func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func mustEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
