package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/document-qa/internal/config"
	"github.com/kirillkom/document-qa/internal/core/domain"
	"github.com/kirillkom/document-qa/internal/core/ports"
	"github.com/kirillkom/document-qa/internal/core/usecase"
	"github.com/kirillkom/document-qa/internal/infrastructure/chunking"
	"github.com/kirillkom/document-qa/internal/infrastructure/embedding/hashing"
	natsevents "github.com/kirillkom/document-qa/internal/infrastructure/events/nats"
	"github.com/kirillkom/document-qa/internal/infrastructure/extractor"
	"github.com/kirillkom/document-qa/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/document-qa/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/document-qa/internal/infrastructure/extractor/spreadsheet"
	"github.com/kirillkom/document-qa/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/document-qa/internal/infrastructure/llm/openai"
	"github.com/kirillkom/document-qa/internal/infrastructure/resilience"
	"github.com/kirillkom/document-qa/internal/infrastructure/vector/memory"
)

// App holds the process-wide collaborators shared by every session.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Embedder  ports.Embedder
	Completer ports.Completer
	Extractor ports.TextExtractor
	Events    ports.EventPublisher

	closeFn func()
}

func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	executor := resilience.NewExecutor(resilienceConfig(cfg), logger)
	timeout := time.Duration(cfg.BackendTimeoutSecs) * time.Second

	var openaiClient *openai.Client
	if cfg.EmbedderBackend == "openai" || cfg.CompleterBackend == "openai" {
		client, err := openai.New(openai.Config{
			APIType:    cfg.OpenAIAPIType,
			BaseURL:    cfg.OpenAIBaseURL,
			APIKey:     cfg.OpenAIAPIKey,
			APIVersion: cfg.OpenAIAPIVersion,
			EmbedModel: cfg.OpenAIEmbedModel,
			ChatModel:  cfg.OpenAIChatModel,
			Timeout:    timeout,
		}, executor)
		if err != nil {
			return nil, fmt.Errorf("init openai client: %w", err)
		}
		openaiClient = client
	}
	var ollamaClient *ollama.Client
	if cfg.EmbedderBackend == "ollama" || cfg.CompleterBackend == "ollama" {
		ollamaClient = ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, timeout, executor)
	}

	var embedder ports.Embedder
	switch cfg.EmbedderBackend {
	case "local":
		local, err := hashing.New(cfg.LocalEmbedDimension)
		if err != nil {
			return nil, fmt.Errorf("init local embedder: %w", err)
		}
		embedder = local
	case "openai":
		embedder = openai.NewEmbedder(openaiClient, cfg.EmbedBatchSize)
	case "ollama":
		embedder = ollama.NewEmbedder(ollamaClient, cfg.EmbedBatchSize)
	default:
		return nil, domain.WrapError(domain.ErrInvalidConfig, "select embedder", fmt.Errorf("unknown backend %q", cfg.EmbedderBackend))
	}

	var completer ports.Completer
	switch cfg.CompleterBackend {
	case "openai":
		completer = openai.NewCompleter(openaiClient, cfg.OpenAITemperature)
	case "ollama":
		completer = ollama.NewCompleter(ollamaClient)
	default:
		return nil, domain.WrapError(domain.ErrInvalidConfig, "select completer", fmt.Errorf("unknown backend %q", cfg.CompleterBackend))
	}

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Embedder:  embedder,
		Completer: completer,
		Extractor: NewExtractor(),
		closeFn:   func() {},
	}

	if cfg.NATSURL != "" {
		publisher, err := natsevents.NewPublisher(cfg.NATSURL, cfg.NATSSubject, natsevents.Options{
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		app.Events = publisher
		app.closeFn = publisher.Close
	}

	logger.Info("bootstrap_ready",
		"embedder", embedder.Name(),
		"completer", cfg.CompleterBackend,
		"events", cfg.NATSURL != "",
	)
	return app, nil
}

// NewSession returns an empty session index configured from the app config.
func (a *App) NewSession(sessionID string) (ports.DocumentSession, error) {
	session, err := usecase.NewSessionIndex(usecase.SessionConfig{
		SessionID:    sessionID,
		ChunkSize:    a.Config.ChunkSize,
		ChunkOverlap: a.Config.ChunkOverlap,
		Retrieval: usecase.RetrievalPolicy{
			TopK:             a.Config.RAGTopK,
			MinScore:         a.Config.RAGMinScore,
			RequireGrounding: a.Config.RAGRequireGrounding,
		},
	}, usecase.SessionDeps{
		NewChunker: newChunker,
		NewIndex:   newIndex,
		Embedder:   a.Embedder,
		Completer:  a.Completer,
		Events:     a.Events,
		Logger:     a.Logger,
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// NewExtractor registers every supported upload format.
func NewExtractor() *extractor.Registry {
	return extractor.NewRegistryWith(
		extractor.Format{Reader: plaintext.NewReader(), Extensions: plaintext.Extensions, MimeTypes: plaintext.MimeTypes},
		extractor.Format{Reader: pdf.NewReader(), Extensions: pdf.Extensions, MimeTypes: pdf.MimeTypes},
		extractor.Format{Reader: spreadsheet.NewReader(), Extensions: spreadsheet.Extensions, MimeTypes: spreadsheet.MimeTypes},
	)
}

func newChunker(chunkSize, overlap int) (ports.Chunker, error) {
	splitter, err := chunking.NewSplitter(chunkSize, overlap)
	if err != nil {
		return nil, err
	}
	return splitter, nil
}

func newIndex() ports.VectorIndex {
	return memory.New()
}

func resilienceConfig(cfg config.Config) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:    cfg.ResilienceRetryMaxAttempts,
		RetryInitialBackoff: time.Duration(cfg.ResilienceRetryInitialBackoffMS) * time.Millisecond,
		RetryMaxBackoff:     time.Duration(cfg.ResilienceRetryMaxBackoffMS) * time.Millisecond,
		RetryMultiplier:     2,

		BreakerEnabled:          cfg.ResilienceBreakerEnabled,
		BreakerMinRequests:      uint32(max(cfg.ResilienceBreakerMinRequests, 0)),
		BreakerFailureRatio:     cfg.ResilienceBreakerFailureRatio,
		BreakerOpenTimeout:      time.Duration(cfg.ResilienceBreakerOpenTimeoutSec) * time.Second,
		BreakerHalfOpenMaxCalls: 1,
	}
}
