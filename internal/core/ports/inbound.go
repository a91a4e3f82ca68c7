package ports

import (
	"context"

	"github.com/kirillkom/answer-evidence/internal/core/domain"
)

// CandidateCollector is the inbound contract for building a scored candidate
// pool for one question.
type CandidateCollector interface {
	Collect(ctx context.Context, question domain.Question, limit int) (*domain.CandidatePool, error)
	Fields() []string
}
