package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/answer-evidence/internal/core/domain"
	"github.com/kirillkom/answer-evidence/internal/core/ports"
	"github.com/kirillkom/answer-evidence/internal/core/scoring"
)

const (
	defaultCandidateLimit = 10
	// MaxCandidateLimit caps hits requested per engine.
	MaxCandidateLimit = 100

	LabelField           = "CORRECT"
	QuestionOverlapField = "QUESTION_OVERLAP"
)

// EngineFields names the evidence fields one engine contributes.
type EngineFields struct {
	ReciprocalRank string
	Score          string
	Present        string
	Hits           string
}

func FieldsFor(engine string) EngineFields {
	prefix := strings.ToUpper(engine)
	return EngineFields{
		ReciprocalRank: prefix + "_RECIPROCAL_RANK",
		Score:          prefix + "_SCORE",
		Present:        prefix + "_PRESENT",
		Hits:           prefix + "_HITS",
	}
}

// RegisterStandardFields registers the label, overlap and per-engine fields.
func RegisterStandardFields(registry *scoring.Registry, engines []string) {
	registry.Register(LabelField, 0, scoring.Max)
	registry.Register(QuestionOverlapField, 0, scoring.Max)
	for _, name := range engines {
		f := FieldsFor(name)
		registry.Register(f.ReciprocalRank, 0, scoring.Max)
		registry.Register(f.Score, 0, scoring.Max)
		registry.Register(f.Present, 0, scoring.Or)
		registry.Register(f.Hits, 0, scoring.Sum)
	}
}

type PipelineOption func(*CandidatePipeline)

func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *CandidatePipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithIDGenerator replaces the generator used for questions without an id.
func WithIDGenerator(fn func() string) PipelineOption {
	return func(p *CandidatePipeline) {
		if fn != nil {
			p.newID = fn
		}
	}
}

type CandidatePipeline struct {
	registry   *scoring.Registry
	normalizer *scoring.Normalizer
	engines    []ports.Engine
	logger     *slog.Logger
	newID      func() string
}

func NewCandidatePipeline(
	registry *scoring.Registry,
	normalizer *scoring.Normalizer,
	engines []ports.Engine,
	opts ...PipelineOption,
) *CandidatePipeline {
	names := make([]string, 0, len(engines))
	for _, e := range engines {
		names = append(names, e.Name)
	}
	RegisterStandardFields(registry, names)

	p := &CandidatePipeline{
		registry:   registry,
		normalizer: normalizer,
		engines:    engines,
		logger:     slog.Default(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *CandidatePipeline) Fields() []string {
	return p.registry.Fields()
}

// Collect gathers candidates from every engine, merges duplicates and
// normalizes the group. Engine failures degrade to fewer candidates.
func (p *CandidatePipeline) Collect(ctx context.Context, question domain.Question, limit int) (*domain.CandidatePool, error) {
	question.Text = strings.TrimSpace(question.Text)
	if question.Text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "collect candidates", fmt.Errorf("question text is required"))
	}
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	if limit > MaxCandidateLimit {
		limit = MaxCandidateLimit
	}
	if question.ID == "" {
		question.ID = p.newID()
	}

	perEngine := make([][]*domain.AnswerCandidate, len(p.engines))
	g, gctx := errgroup.WithContext(ctx)
	for i, engine := range p.engines {
		i, engine := i, engine
		g.Go(func() error {
			found, err := p.gather(gctx, engine, question.Text, limit)
			if err != nil {
				return err
			}
			perEngine[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("gather candidates: %w", err)
	}

	var all []*domain.AnswerCandidate
	for _, found := range perEngine {
		all = append(all, found...)
	}
	merged := mergeDuplicates(all)

	rankFields := make([]string, 0, len(p.engines))
	for _, e := range p.engines {
		rankFields = append(rankFields, FieldsFor(e.Name).ReciprocalRank)
	}
	orderByFusedRank(merged, rankFields)

	if len(merged) > 0 {
		if _, err := scoring.NormalizeGroup(p.normalizer, merged); err != nil {
			if errors.Is(err, scoring.ErrEmptyGroup) {
				return nil, domain.WrapError(domain.ErrInvalidInput, "normalize candidates", err)
			}
			return nil, fmt.Errorf("normalize candidates: %w", err)
		}
	}

	fields := p.registry.Fields()
	pool := &domain.CandidatePool{
		QuestionID: question.ID,
		Question:   question.Text,
		Fields:     fields,
		Candidates: make([]domain.PoolCandidate, 0, len(merged)),
	}
	for _, c := range merged {
		pool.Candidates = append(pool.Candidates, domain.PoolCandidate{
			Title:        c.Title,
			Text:         c.Text,
			SourceEngine: c.SourceEngine,
			Rank:         c.Rank,
			Features:     c.Scores.GetEach(fields),
		})
	}

	p.logger.Debug("candidate_pool_built",
		"question_id", pool.QuestionID,
		"candidates", len(pool.Candidates),
		"before_merge", len(all),
	)
	return pool, nil
}

func (p *CandidatePipeline) gather(ctx context.Context, engine ports.Engine, text string, limit int) ([]*domain.AnswerCandidate, error) {
	hits := engine.Searcher.Query(ctx, text, limit)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fields := FieldsFor(engine.Name)
	questionTokens := toTokenSet(text)
	out := make([]*domain.AnswerCandidate, 0, len(hits))
	for rank, hit := range hits {
		doc, err := engine.Documents.GetDocument(ctx, hit.DocumentID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			level := slog.LevelWarn
			if domain.IsKind(err, domain.ErrDocumentNotFound) {
				level = slog.LevelDebug
			}
			p.logger.Log(ctx, level, "candidate_document_skipped",
				"engine", engine.Name,
				"document_id", hit.DocumentID,
				"error", err,
			)
			continue
		}

		scores := p.registry.Empty()
		scores.Set(scoring.CountField, 1)
		scores.Set(fields.ReciprocalRank, 1/float64(rank+1))
		scores.Set(fields.Score, hit.Score)
		scores.Set(fields.Present, 1)
		scores.Set(fields.Hits, 1)
		scores.Set(QuestionOverlapField, questionOverlap(questionTokens, doc.Title+" "+doc.Body))

		out = append(out, &domain.AnswerCandidate{
			Title:        doc.Title,
			Text:         doc.Body,
			SourceEngine: engine.Name,
			Rank:         rank,
			Scores:       scores,
		})
	}
	return out, nil
}
