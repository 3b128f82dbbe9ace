// Package bootstrap wires configuration into the core use cases and their
// infrastructure adapters.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kirillkom/docintel/internal/config"
	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/ports"
	"github.com/kirillkom/docintel/internal/core/progress"
	"github.com/kirillkom/docintel/internal/core/textfeatures"
	"github.com/kirillkom/docintel/internal/core/usecase"
	"github.com/kirillkom/docintel/internal/infrastructure/chunking"
	"github.com/kirillkom/docintel/internal/infrastructure/llm/anthropic"
	"github.com/kirillkom/docintel/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/docintel/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/docintel/internal/infrastructure/llm/openai"
	"github.com/kirillkom/docintel/internal/infrastructure/ocr"
	"github.com/kirillkom/docintel/internal/infrastructure/queue/nats"
	"github.com/kirillkom/docintel/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/docintel/internal/infrastructure/resilience"
	"github.com/kirillkom/docintel/internal/infrastructure/resultstore/memory"
	redisstore "github.com/kirillkom/docintel/internal/infrastructure/resultstore/redis"
	"github.com/kirillkom/docintel/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/docintel/internal/infrastructure/summarizer/ml"
	"github.com/kirillkom/docintel/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/docintel/internal/observability/metrics"
)

// Role selects which optional infrastructure a binary connects to.
type Role int

const (
	RoleAPI Role = iota
	RoleWorker
	RoleBatch
	RoleMCP
)

type Options struct {
	Role   Role
	Logger *slog.Logger
	// Registerer receives the analyzer metrics; nil skips them.
	Registerer prometheus.Registerer
	Service    string
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	Analyzer  *usecase.AnalyzeDocumentUseCase
	Processor *usecase.ProcessDocumentUseCase
	Ingest    *usecase.IngestDocumentUseCase
	Results   *usecase.ResultLookup
	Hub       *progress.Hub
	Storage   *localfs.Storage

	// Optional adapters; nil when not configured for the role.
	Queue   *nats.Queue
	Archive *postgres.ResultRepository
	Search  *qdrant.Client

	closers []func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (_ *App, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	vocab, err := textfeatures.LoadVocabulary(cfg.VocabularyFile)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	extractor := textfeatures.NewExtractor(vocab)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	app.Storage = storage

	store, err := app.newResultStore(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.PostgresDSN != "" && opts.Role != RoleMCP {
		db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		app.closers = append(app.closers, func() { _ = db.Close() })
		repo := postgres.NewResultRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		app.Archive = repo
	}

	if cfg.NATSURL != "" && (opts.Role == RoleAPI || opts.Role == RoleWorker) {
		queue, err := nats.New(cfg.NATSURL, nats.Options{
			IngestSubject:      cfg.NATSIngestSubject,
			ProgressSubject:    cfg.NATSProgressSubject,
			ResilienceExecutor: resilience.NewExecutor(resilienceConfig(cfg), logger),
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.closers = append(app.closers, queue.Close)
		app.Queue = queue
	}

	var indexer ports.SearchIndexer
	if cfg.QdrantURL != "" {
		app.Search = qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap), logger)
		indexer = app.Search
	}

	var summarizer ports.Summarizer
	if cfg.MLSummaryEnabled {
		s := ml.New(ollama.New(cfg.OllamaURL, cfg.MLSummaryModel), ml.Config{
			InitTimeout: cfg.MLInitTimeout,
			IdleTimeout: cfg.MLIdleTimeout,
			Extractor:   extractor,
			Logger:      logger,
		})
		app.closers = append(app.closers, func() { _ = s.Close() })
		summarizer = s
	}

	var recorder ports.AnalysisRecorder
	if opts.Registerer != nil {
		recorder = metrics.NewAnalyzerMetrics(opts.Service, opts.Registerer)
	}
	app.Analyzer = usecase.NewAnalyzeDocumentUseCase(usecase.AnalyzerConfig{
		Providers:       providerSpecs(cfg, logger),
		ProviderTimeout: cfg.AIProviderTimeout,
		Summarizer:      summarizer,
		Extractor:       extractor,
		Recorder:        recorder,
		Logger:          logger,
	})

	// Only the worker forwards progress to NATS; the API receives it back
	// from there into its hub.
	var publisher ports.ProgressPublisher
	if opts.Role == RoleWorker && app.Queue != nil {
		publisher = app.Queue
	}
	app.Hub = progress.NewHub(progress.DefaultBuffer, logger)
	app.Processor = usecase.NewProcessDocumentUseCase(usecase.ProcessorConfig{
		Analyzer:   app.Analyzer,
		OCR:        ocr.New(logger),
		Store:      store,
		Indexer:    indexer,
		Publisher:  publisher,
		Hub:        app.Hub,
		StageDelay: cfg.StageDelay,
		Logger:     logger,
	})

	var archive ports.ResultArchive
	if app.Archive != nil {
		archive = app.Archive
	}
	app.Results = usecase.NewResultLookup(app.Processor, archive)

	var queue ports.JobQueue
	if opts.Role == RoleAPI && app.Queue != nil {
		queue = app.Queue
	}
	app.Ingest = usecase.NewIngestDocumentUseCase(storage, queue, app.Processor, logger)

	logger.Info("bootstrap_complete",
		"providers", app.Analyzer.EnabledProviders(),
		"result_store", cfg.ResultStore,
		"queue", app.Queue != nil,
		"archive", app.Archive != nil,
		"search", app.Search != nil,
		"ml_summary", summarizer != nil,
	)
	return app, nil
}

func (a *App) newResultStore(ctx context.Context) (ports.ResultStore, error) {
	switch a.Config.ResultStore {
	case "", "memory":
		return memory.New(), nil
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: a.Config.RedisAddr})
		a.closers = append(a.closers, func() { _ = client.Close() })
		store := redisstore.New(client, a.Config.RedisResultTTL)
		if err := store.Ping(ctx); err != nil {
			return nil, fmt.Errorf("connect redis result store: %w", err)
		}
		return store, nil
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "result store",
			errors.New("unknown RESULT_STORE "+a.Config.ResultStore))
	}
}

// providerSpecs follows AI_PROVIDER_ORDER. Each provider gets its own
// executor so an open breaker on one never blocks the others.
func providerSpecs(cfg config.Config, logger *slog.Logger) []usecase.ProviderSpec {
	rc := resilienceConfig(cfg)
	specs := make([]usecase.ProviderSpec, 0, len(cfg.AIProviderOrder))
	for _, name := range cfg.AIProviderOrder {
		exec := resilience.NewExecutor(rc, logger.With("provider", name))
		switch name {
		case domain.ProviderGemini:
			specs = append(specs, usecase.ProviderSpec{
				Name:       name,
				Credential: cfg.GeminiAPIKey,
				Client:     gemini.New(cfg.GeminiURL, cfg.GeminiModel, cfg.GeminiAPIKey, cfg.AIProviderTimeout, exec),
			})
		case domain.ProviderOpenAI:
			specs = append(specs, usecase.ProviderSpec{
				Name:       name,
				Credential: cfg.OpenAIAPIKey,
				Client:     openai.New(cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.OpenAIAPIKey, cfg.AIProviderTimeout, exec),
			})
		case domain.ProviderAnthropic:
			specs = append(specs, usecase.ProviderSpec{
				Name:       name,
				Credential: cfg.AnthropicAPIKey,
				Client:     anthropic.New(cfg.AnthropicURL, cfg.AnthropicModel, cfg.AnthropicAPIKey, cfg.AIProviderTimeout, exec),
			})
		default:
			logger.Warn("unknown_ai_provider", "provider", name)
		}
	}
	return specs
}

func resilienceConfig(cfg config.Config) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:        cfg.RetryMaxAttempts,
		RetryInitialBackoff:     cfg.RetryInitialBackoff,
		RetryMaxBackoff:         cfg.RetryMaxBackoff,
		RetryMultiplier:         cfg.RetryMultiplier,
		BreakerEnabled:          cfg.BreakerEnabled,
		BreakerMinRequests:      uint32(max(cfg.BreakerMinRequests, 0)),
		BreakerFailureRatio:     cfg.BreakerFailureRatio,
		BreakerOpenTimeout:      cfg.BreakerOpenTimeout,
		BreakerHalfOpenMaxCalls: uint32(max(cfg.BreakerHalfOpenMaxCalls, 0)),
	}
}

// Close releases adapters in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
