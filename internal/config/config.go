package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/document-qa/internal/core/domain"
)

// Config is read from an optional YAML file (CONFIG_FILE) and then overridden
// by environment variables of the same name in upper case.
type Config struct {
	APIPort    string `yaml:"api_port"`
	LogLevel   string `yaml:"log_level"`
	APIAuthKey string `yaml:"api_auth_key"`

	EmbedderBackend     string `yaml:"embedder_backend"`
	CompleterBackend    string `yaml:"completer_backend"`
	LocalEmbedDimension int    `yaml:"local_embed_dimension"`
	EmbedBatchSize      int    `yaml:"embed_batch_size"`
	BackendTimeoutSecs  int    `yaml:"backend_timeout_seconds"`

	OpenAIAPIType     string  `yaml:"openai_api_type"`
	OpenAIBaseURL     string  `yaml:"openai_base_url"`
	OpenAIAPIKey      string  `yaml:"openai_api_key"`
	OpenAIAPIVersion  string  `yaml:"openai_api_version"`
	OpenAIEmbedModel  string  `yaml:"openai_embed_model"`
	OpenAIChatModel   string  `yaml:"openai_chat_model"`
	OpenAITemperature float64 `yaml:"openai_temperature"`

	OllamaURL        string `yaml:"ollama_url"`
	OllamaGenModel   string `yaml:"ollama_gen_model"`
	OllamaEmbedModel string `yaml:"ollama_embed_model"`

	ChunkSize           int     `yaml:"chunk_size"`
	ChunkOverlap        int     `yaml:"chunk_overlap"`
	RAGTopK             int     `yaml:"rag_top_k"`
	RAGMinScore         float64 `yaml:"rag_min_score"`
	RAGRequireGrounding bool    `yaml:"rag_require_grounding"`

	SessionMaxCount    int     `yaml:"session_max_count"`
	SessionIdleTTLSecs int     `yaml:"session_idle_ttl_seconds"`
	MaxUploadBytes     int64   `yaml:"max_upload_bytes"`
	RateLimitRPS       float64 `yaml:"rate_limit_rps"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`
	MaxInFlight        int     `yaml:"max_in_flight"`

	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`

	ResilienceRetryMaxAttempts      int     `yaml:"resilience_retry_max_attempts"`
	ResilienceRetryInitialBackoffMS int     `yaml:"resilience_retry_initial_backoff_ms"`
	ResilienceRetryMaxBackoffMS     int     `yaml:"resilience_retry_max_backoff_ms"`
	ResilienceBreakerEnabled        bool    `yaml:"resilience_breaker_enabled"`
	ResilienceBreakerMinRequests    int     `yaml:"resilience_breaker_min_requests"`
	ResilienceBreakerFailureRatio   float64 `yaml:"resilience_breaker_failure_ratio"`
	ResilienceBreakerOpenTimeoutSec int     `yaml:"resilience_breaker_open_timeout_seconds"`
}

func Defaults() Config {
	return Config{
		APIPort:  "8080",
		LogLevel: "info",

		EmbedderBackend:     "local",
		CompleterBackend:    "openai",
		LocalEmbedDimension: 384,
		EmbedBatchSize:      64,
		BackendTimeoutSecs:  60,

		OpenAIAPIType:     "openai",
		OpenAIEmbedModel:  "text-embedding-3-small",
		OpenAIChatModel:   "gpt-3.5-turbo",
		OpenAITemperature: 0,

		OllamaURL:        "http://localhost:11434",
		OllamaGenModel:   "llama3.1:8b",
		OllamaEmbedModel: "nomic-embed-text",

		ChunkSize:    900,
		ChunkOverlap: 150,
		RAGTopK:      5,
		RAGMinScore:  math.Inf(-1),

		SessionMaxCount:    100,
		SessionIdleTTLSecs: 1800,
		MaxUploadBytes:     20 << 20,
		RateLimitRPS:       10,
		RateLimitBurst:     20,
		MaxInFlight:        32,

		NATSSubject: "docqa.index.events",

		ResilienceRetryMaxAttempts:      1,
		ResilienceRetryInitialBackoffMS: 200,
		ResilienceRetryMaxBackoffMS:     2000,
		ResilienceBreakerEnabled:        true,
		ResilienceBreakerMinRequests:    5,
		ResilienceBreakerFailureRatio:   0.6,
		ResilienceBreakerOpenTimeoutSec: 30,
	}
}

func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func overlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidConfig, "read config file", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return domain.WrapError(domain.ErrInvalidConfig, "parse config file", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.APIPort = mustEnv("API_PORT", cfg.APIPort)
	cfg.LogLevel = mustEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.APIAuthKey = mustEnv("API_AUTH_KEY", cfg.APIAuthKey)

	cfg.EmbedderBackend = strings.ToLower(mustEnv("EMBEDDER_BACKEND", cfg.EmbedderBackend))
	cfg.CompleterBackend = strings.ToLower(mustEnv("COMPLETER_BACKEND", cfg.CompleterBackend))
	cfg.LocalEmbedDimension = mustEnvInt("LOCAL_EMBED_DIMENSION", cfg.LocalEmbedDimension)
	cfg.EmbedBatchSize = mustEnvInt("EMBED_BATCH_SIZE", cfg.EmbedBatchSize)
	cfg.BackendTimeoutSecs = mustEnvInt("BACKEND_TIMEOUT_SECONDS", cfg.BackendTimeoutSecs)

	cfg.OpenAIAPIType = strings.ToLower(mustEnv("OPENAI_API_TYPE", cfg.OpenAIAPIType))
	cfg.OpenAIBaseURL = mustEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.OpenAIAPIKey = mustEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIAPIVersion = mustEnv("OPENAI_API_VERSION", cfg.OpenAIAPIVersion)
	cfg.OpenAIEmbedModel = mustEnv("OPENAI_EMBED_MODEL", cfg.OpenAIEmbedModel)
	cfg.OpenAIChatModel = mustEnv("OPENAI_CHAT_MODEL", cfg.OpenAIChatModel)
	cfg.OpenAITemperature = mustEnvFloat("OPENAI_TEMPERATURE", cfg.OpenAITemperature)

	cfg.OllamaURL = mustEnv("OLLAMA_URL", cfg.OllamaURL)
	cfg.OllamaGenModel = mustEnv("OLLAMA_GEN_MODEL", cfg.OllamaGenModel)
	cfg.OllamaEmbedModel = mustEnv("OLLAMA_EMBED_MODEL", cfg.OllamaEmbedModel)

	cfg.ChunkSize = mustEnvInt("CHUNK_SIZE", cfg.ChunkSize)
	cfg.ChunkOverlap = mustEnvInt("CHUNK_OVERLAP", cfg.ChunkOverlap)
	cfg.RAGTopK = mustEnvInt("RAG_TOP_K", cfg.RAGTopK)
	cfg.RAGMinScore = mustEnvFloat("RAG_MIN_SCORE", cfg.RAGMinScore)
	cfg.RAGRequireGrounding = mustEnvBool("RAG_REQUIRE_GROUNDING", cfg.RAGRequireGrounding)

	cfg.SessionMaxCount = mustEnvInt("SESSION_MAX_COUNT", cfg.SessionMaxCount)
	cfg.SessionIdleTTLSecs = mustEnvInt("SESSION_IDLE_TTL_SECONDS", cfg.SessionIdleTTLSecs)
	cfg.MaxUploadBytes = int64(mustEnvInt("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))
	cfg.RateLimitRPS = mustEnvFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = mustEnvInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.MaxInFlight = mustEnvInt("MAX_IN_FLIGHT", cfg.MaxInFlight)

	cfg.NATSURL = mustEnv("NATS_URL", cfg.NATSURL)
	cfg.NATSSubject = mustEnv("NATS_SUBJECT", cfg.NATSSubject)

	cfg.ResilienceRetryMaxAttempts = mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", cfg.ResilienceRetryMaxAttempts)
	cfg.ResilienceRetryInitialBackoffMS = mustEnvInt("RESILIENCE_RETRY_INITIAL_BACKOFF_MS", cfg.ResilienceRetryInitialBackoffMS)
	cfg.ResilienceRetryMaxBackoffMS = mustEnvInt("RESILIENCE_RETRY_MAX_BACKOFF_MS", cfg.ResilienceRetryMaxBackoffMS)
	cfg.ResilienceBreakerEnabled = mustEnvBool("RESILIENCE_BREAKER_ENABLED", cfg.ResilienceBreakerEnabled)
	cfg.ResilienceBreakerMinRequests = mustEnvInt("RESILIENCE_BREAKER_MIN_REQUESTS", cfg.ResilienceBreakerMinRequests)
	cfg.ResilienceBreakerFailureRatio = mustEnvFloat("RESILIENCE_BREAKER_FAILURE_RATIO", cfg.ResilienceBreakerFailureRatio)
	cfg.ResilienceBreakerOpenTimeoutSec = mustEnvInt("RESILIENCE_BREAKER_OPEN_TIMEOUT_SECONDS", cfg.ResilienceBreakerOpenTimeoutSec)
}

// Validate reports every problem at once, wrapped as domain.ErrInvalidConfig.
func (c Config) Validate() error {
	var problems []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Errorf(format, args...))
		}
	}

	check(strings.TrimSpace(c.APIPort) != "", "api_port is empty")
	check(c.ChunkSize > 0, "chunk_size must be positive, got %d", c.ChunkSize)
	check(c.ChunkOverlap >= 0 && c.ChunkOverlap < c.ChunkSize, "chunk_overlap must be in [0, chunk_size), got %d", c.ChunkOverlap)
	check(c.RAGTopK > 0, "rag_top_k must be positive, got %d", c.RAGTopK)
	check(!math.IsNaN(c.RAGMinScore), "rag_min_score is NaN")
	check(c.EmbedBatchSize > 0, "embed_batch_size must be positive, got %d", c.EmbedBatchSize)
	check(c.BackendTimeoutSecs > 0, "backend_timeout_seconds must be positive, got %d", c.BackendTimeoutSecs)
	check(c.SessionMaxCount > 0, "session_max_count must be positive, got %d", c.SessionMaxCount)
	check(c.SessionIdleTTLSecs > 0, "session_idle_ttl_seconds must be positive, got %d", c.SessionIdleTTLSecs)
	check(c.MaxUploadBytes > 0, "max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	check(c.RateLimitRPS >= 0, "rate_limit_rps must not be negative")
	check(c.MaxInFlight >= 0, "max_in_flight must not be negative")

	switch c.EmbedderBackend {
	case "local":
		check(c.LocalEmbedDimension > 0, "local_embed_dimension must be positive, got %d", c.LocalEmbedDimension)
	case "openai":
	case "ollama":
	default:
		check(false, "embedder_backend must be local, openai or ollama, got %q", c.EmbedderBackend)
	}
	switch c.CompleterBackend {
	case "openai", "ollama":
	default:
		check(false, "completer_backend must be openai or ollama, got %q", c.CompleterBackend)
	}
	if c.EmbedderBackend == "openai" || c.CompleterBackend == "openai" {
		check(c.OpenAIAPIKey != "", "openai_api_key is required for the openai backend")
		check(c.OpenAIAPIType == "openai" || c.OpenAIAPIType == "azure", "openai_api_type must be openai or azure, got %q", c.OpenAIAPIType)
		if c.OpenAIAPIType == "azure" {
			check(c.OpenAIBaseURL != "", "openai_base_url (azure endpoint) is required for azure")
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return domain.WrapError(domain.ErrInvalidConfig, "validate config", errors.Join(problems...))
}

// LogValue keeps secrets and the unbounded min score out of structured logs.
func (c Config) LogValue() slog.Value {
	minScore := "none"
	if !math.IsInf(c.RAGMinScore, -1) {
		minScore = strconv.FormatFloat(c.RAGMinScore, 'f', -1, 64)
	}
	return slog.GroupValue(
		slog.String("api_port", c.APIPort),
		slog.Bool("api_auth", c.APIAuthKey != ""),
		slog.String("embedder_backend", c.EmbedderBackend),
		slog.String("completer_backend", c.CompleterBackend),
		slog.String("openai_api_type", c.OpenAIAPIType),
		slog.Bool("openai_api_key_set", c.OpenAIAPIKey != ""),
		slog.Int("chunk_size", c.ChunkSize),
		slog.Int("chunk_overlap", c.ChunkOverlap),
		slog.Int("rag_top_k", c.RAGTopK),
		slog.String("rag_min_score", minScore),
		slog.Bool("rag_require_grounding", c.RAGRequireGrounding),
		slog.Int("session_max_count", c.SessionMaxCount),
		slog.Bool("nats", c.NATSURL != ""),
	)
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
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
	n, err := strconv.Atoi(v)
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
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
