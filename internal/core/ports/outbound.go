package ports

import (
	"context"

	"github.com/kirillkom/answer-evidence/internal/core/domain"
)

// SearchBackend runs one uncached query against a retrieval engine.
type SearchBackend interface {
	Search(ctx context.Context, text string, topN int) ([]domain.Hit, error)
}

// DocumentStore resolves hit document ids to their title and body.
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
}

// HitSearcher is the cached, failure-absorbing query surface over a backend.
// It never returns an error; failures degrade to an empty slice.
type HitSearcher interface {
	Query(ctx context.Context, text string, count int) []domain.Hit
}

// Engine is one named retrieval source used by the candidate pipeline.
type Engine struct {
	Name      string
	Searcher  HitSearcher
	Documents DocumentStore
}

// QuestionQueue consumes questions and publishes scored candidate pools.
type QuestionQueue interface {
	SubscribeQuestions(ctx context.Context, handler func(context.Context, domain.Question) error) error
	PublishPool(ctx context.Context, pool *domain.CandidatePool) error
}

// FeatureExporter writes candidate feature rows for model training.
type FeatureExporter interface {
	WriteFeatureMatrix(path string, fields []string, pools []*domain.CandidatePool) error
}
