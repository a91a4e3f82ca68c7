// Package search fronts retrieval backends with a single-flight query cache.
package search

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/kirillkom/answer-evidence/internal/core/domain"
	"github.com/kirillkom/answer-evidence/internal/core/ports"
	"github.com/kirillkom/answer-evidence/internal/infrastructure/cache"
	"github.com/kirillkom/answer-evidence/internal/infrastructure/resilience"
)

const DefaultMinQueryChars = 3

// Gateway caches backend queries by raw text. The hit count is not part of the
// cache key: with WithTopN every backend call fetches that many hits and
// callers receive a prefix; without it one gateway must always be queried with
// the same count.
type Gateway struct {
	engine     string
	topN       int
	backend    ports.SearchBackend
	cache      *cache.SingleFlight[string, []domain.Hit]
	executor   *resilience.Executor
	classifier resilience.ErrorClassifier
	minChars   int
	logger     *slog.Logger
}

type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithExecutor runs backend calls with retries and a circuit breaker.
func WithExecutor(executor *resilience.Executor, classifier resilience.ErrorClassifier) Option {
	return func(g *Gateway) {
		g.executor = executor
		if classifier != nil {
			g.classifier = classifier
		}
	}
}

// WithTopN fixes the number of hits requested from the backend.
func WithTopN(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.topN = n
		}
	}
}

// WithMinQueryChars overrides the admission threshold in characters.
func WithMinQueryChars(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.minChars = n
		}
	}
}

func NewGateway(
	engine string,
	backend ports.SearchBackend,
	hits *cache.SingleFlight[string, []domain.Hit],
	opts ...Option,
) *Gateway {
	g := &Gateway{
		engine:     engine,
		backend:    backend,
		cache:      hits,
		classifier: resilience.ClassifyTransient,
		minChars:   DefaultMinQueryChars,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) Engine() string {
	return g.engine
}

// Query returns up to count hits for text. Short queries and backend failures
// yield an empty slice.
func (g *Gateway) Query(ctx context.Context, text string, count int) []domain.Hit {
	if utf8.RuneCountInString(text) < g.minChars {
		return []domain.Hit{}
	}

	fetch := count
	if g.topN > 0 {
		fetch = g.topN
	}

	hits, err := g.cache.Get(text, func() ([]domain.Hit, error) {
		return resilience.Call(ctx, g.executor, "search."+g.engine, func(ctx context.Context) ([]domain.Hit, error) {
			return g.backend.Search(ctx, text, fetch)
		}, g.classifier)
	})
	if err != nil {
		g.logger.Warn("search_query_failed",
			"engine", g.engine,
			"query", text,
			"count", count,
			"error", err,
		)
		return []domain.Hit{}
	}

	if g.topN > 0 && count >= 0 && count < len(hits) {
		hits = hits[:count]
	}
	out := make([]domain.Hit, len(hits))
	copy(out, hits)
	return out
}
