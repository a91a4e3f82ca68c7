package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/answer-evidence/internal/config"
	"github.com/kirillkom/answer-evidence/internal/core/domain"
	"github.com/kirillkom/answer-evidence/internal/core/ports"
	"github.com/kirillkom/answer-evidence/internal/core/scoring"
	"github.com/kirillkom/answer-evidence/internal/core/usecase"
	"github.com/kirillkom/answer-evidence/internal/infrastructure/cache"
	"github.com/kirillkom/answer-evidence/internal/infrastructure/knowledge/neo4j"
	"github.com/kirillkom/answer-evidence/internal/infrastructure/queue/nats"
	"github.com/kirillkom/answer-evidence/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/answer-evidence/internal/infrastructure/resilience"
	"github.com/kirillkom/answer-evidence/internal/infrastructure/schemafile"
	"github.com/kirillkom/answer-evidence/internal/infrastructure/search"
	"github.com/kirillkom/answer-evidence/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/answer-evidence/internal/observability/metrics"
)

const (
	EngineFullText = "fulltext"
	EngineLexical  = "lexical"
	EngineKB       = "kb"
)

type Options struct {
	Logger *slog.Logger
	// Metrics receives search cache collectors. Nil disables them.
	Metrics prometheus.Registerer
	// WithQueue connects to NATS for question consumption.
	WithQueue bool
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	Registry *scoring.Registry
	Pipeline ports.CandidateCollector
	Queue    ports.QuestionQueue
	Pressure *cache.PressureWatcher

	closeFn []func()
}

// New wires every component. A missing or unreadable index is returned as
// domain.ErrIndexUnavailable and must abort startup.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}

	db, err := postgres.OpenDB(ctx, cfg.IndexDSN)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	app.closeFn = append(app.closeFn, func() { _ = db.Close() })
	passages := postgres.NewPassageRepository(db)
	if err := passages.VerifyIndex(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("verify index: %w", err)
	}

	registry := scoring.NewRegistry()
	if err := schemafile.Load(cfg.SchemaFile, registry); err != nil {
		app.Close()
		return nil, fmt.Errorf("load schema file: %w", err)
	}
	app.Registry = registry

	executor := resilience.NewExecutor(resilienceConfig(cfg), logger)

	var searchMetrics *metrics.SearchMetrics
	if opts.Metrics != nil {
		searchMetrics = metrics.NewSearchMetrics(opts.Metrics)
	}

	var (
		engines []ports.Engine
		caches  cache.Shrinkers
	)
	addEngine := func(name string, backend ports.SearchBackend, docs ports.DocumentStore, classifier resilience.ErrorClassifier) error {
		var cacheOpts []cache.Option
		if searchMetrics != nil {
			cacheOpts = append(cacheOpts, cache.WithObserver(searchMetrics.CacheObserver(name)))
		}
		hits, err := cache.NewSingleFlight[string, []domain.Hit](cfg.SearchCacheSize, cacheOpts...)
		if err != nil {
			return fmt.Errorf("init %s cache: %w", name, err)
		}
		caches = append(caches, hits)
		gateway := search.NewGateway(name, backend, hits,
			search.WithLogger(logger.With("engine", name)),
			search.WithExecutor(executor, classifier),
			search.WithMinQueryChars(cfg.SearchMinQueryChars),
			search.WithTopN(cfg.SearchTopN),
		)
		engines = append(engines, ports.Engine{Name: name, Searcher: gateway, Documents: docs})
		return nil
	}

	if err := addEngine(EngineFullText, passages, passages, resilience.ClassifyTransient); err != nil {
		app.Close()
		return nil, err
	}
	if cfg.QdrantEnabled {
		client := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
		if err := addEngine(EngineLexical, client, client, qdrant.ClassifyError); err != nil {
			app.Close()
			return nil, err
		}
	}
	if cfg.Neo4jEnabled {
		store, err := neo4j.Open(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jIndex)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("open knowledge base: %w", err)
		}
		app.closeFn = append(app.closeFn, func() { _ = store.Close(context.Background()) })
		if err := addEngine(EngineKB, store, store, neo4j.ClassifyError); err != nil {
			app.Close()
			return nil, err
		}
	}

	normalizer := scoring.NewNormalizer(registry, cfg.NormalizeProtectedField)
	app.Pipeline = usecase.NewCandidatePipeline(registry, normalizer, engines,
		usecase.WithPipelineLogger(logger),
	)

	app.Pressure = cache.NewPressureWatcher(
		caches,
		uint64(max(cfg.SearchMemoryLimitMB, 0))<<20,
		cfg.SearchMemoryCheckInterval,
		logger,
	)
	if searchMetrics != nil {
		app.Pressure.OnShrink(searchMetrics.AddPressureEvictions)
	}

	if opts.WithQueue {
		queue, err := nats.New(cfg.NATSURL, cfg.NATSQuestionSubject, cfg.NATSResultSubject, nats.Options{
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.closeFn = append(app.closeFn, queue.Close)
		app.Queue = queue
	}

	logger.Info("bootstrap_complete",
		"engines", len(engines),
		"fields", registry.Len(),
		"cache_size", cfg.SearchCacheSize,
	)
	return app, nil
}

func (a *App) Close() {
	for i := len(a.closeFn) - 1; i >= 0; i-- {
		a.closeFn[i]()
	}
	a.closeFn = nil
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	if cfg.ResilienceRetryMaxAttempts > 0 {
		out.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	}
	out.BreakerEnabled = cfg.ResilienceBreakerEnabled
	if cfg.ResilienceBreakerOpenTimeout > 0 {
		out.BreakerOpenTimeout = cfg.ResilienceBreakerOpenTimeout
	}
	return out
}
