package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kirillkom/answer-evidence/internal/core/domain"
	"github.com/kirillkom/answer-evidence/internal/core/ports"
	"github.com/kirillkom/answer-evidence/internal/core/scoring"
)

type fakeSearcher struct {
	hits      []domain.Hit
	calls     int
	lastCount int
}

func (f *fakeSearcher) Query(_ context.Context, _ string, count int) []domain.Hit {
	f.calls++
	f.lastCount = count
	if count < len(f.hits) {
		return f.hits[:count]
	}
	return f.hits
}

type fakeDocuments struct {
	docs map[string]domain.Document
}

func (f *fakeDocuments) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	return &doc, nil
}

func newTestPipeline(engines ...ports.Engine) (*CandidatePipeline, *scoring.Registry) {
	reg := scoring.NewRegistry()
	norm := scoring.NewNormalizer(reg, LabelField)
	p := NewCandidatePipeline(reg, norm, engines, WithIDGenerator(func() string { return "generated" }))
	return p, reg
}

func TestCollectMergesDuplicateTitlesAcrossEngines(t *testing.T) {
	fulltext := ports.Engine{
		Name: "fulltext",
		Searcher: &fakeSearcher{hits: []domain.Hit{
			{DocumentID: "p1", Score: 0.9},
			{DocumentID: "p2", Score: 0.4},
		}},
		Documents: &fakeDocuments{docs: map[string]domain.Document{
			"p1": {ID: "p1", Title: "African Elephant", Body: "largest land animal"},
			"p2": {ID: "p2", Title: "Giraffe", Body: "tallest land animal"},
		}},
	}
	kb := ports.Engine{
		Name:     "kb",
		Searcher: &fakeSearcher{hits: []domain.Hit{{DocumentID: "e1", Score: 3}}},
		Documents: &fakeDocuments{docs: map[string]domain.Document{
			"e1": {ID: "e1", Title: "  african   ELEPHANT ", Body: "Loxodonta"},
		}},
	}

	p, _ := newTestPipeline(fulltext, kb)
	pool, err := p.Collect(context.Background(), domain.Question{Text: "largest land animal"}, 5)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if pool.QuestionID != "generated" {
		t.Fatalf("expected generated question id, got %q", pool.QuestionID)
	}
	if len(pool.Candidates) != 2 {
		t.Fatalf("expected 2 candidates after merge, got %d", len(pool.Candidates))
	}

	first := pool.Candidates[0]
	if first.Title != "African Elephant" || first.SourceEngine != "fulltext" {
		t.Fatalf("expected first-seen provenance to win, got %+v", first)
	}

	countIdx := indexOf(pool.Fields, scoring.CountField)
	if countIdx < 0 {
		t.Fatalf("COUNT missing from fields %v", pool.Fields)
	}
	// COUNT 2 vs 1 normalizes to +1 / -1.
	if math.Abs(first.Features[countIdx]-1) > 1e-9 {
		t.Fatalf("expected merged COUNT to normalize to 1, got %f", first.Features[countIdx])
	}
	for _, c := range pool.Candidates {
		if len(c.Features) != len(pool.Fields) {
			t.Fatalf("feature row length %d != fields %d", len(c.Features), len(pool.Fields))
		}
	}
}

func TestCollectLeavesLabelUntouched(t *testing.T) {
	engine := ports.Engine{
		Name: "fulltext",
		Searcher: &fakeSearcher{hits: []domain.Hit{
			{DocumentID: "a", Score: 2},
			{DocumentID: "b", Score: 1},
		}},
		Documents: &fakeDocuments{docs: map[string]domain.Document{
			"a": {ID: "a", Title: "A"},
			"b": {ID: "b", Title: "B"},
		}},
	}
	p, _ := newTestPipeline(engine)
	pool, err := p.Collect(context.Background(), domain.Question{ID: "q", Text: "which letter"}, 5)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	label := indexOf(pool.Fields, LabelField)
	score := indexOf(pool.Fields, FieldsFor("fulltext").Score)
	for _, c := range pool.Candidates {
		if c.Features[label] != 0 {
			t.Fatalf("label must keep its raw value, got %f", c.Features[label])
		}
		if math.Abs(math.Abs(c.Features[score])-1) > 1e-9 {
			t.Fatalf("expected score normalized to +/-1, got %f", c.Features[score])
		}
	}
}

func TestCollectSkipsMissingDocuments(t *testing.T) {
	engine := ports.Engine{
		Name:      "fulltext",
		Searcher:  &fakeSearcher{hits: []domain.Hit{{DocumentID: "gone"}, {DocumentID: "a"}}},
		Documents: &fakeDocuments{docs: map[string]domain.Document{"a": {ID: "a", Title: "A"}}},
	}
	p, _ := newTestPipeline(engine)
	pool, err := p.Collect(context.Background(), domain.Question{Text: "anything"}, 5)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(pool.Candidates) != 1 || pool.Candidates[0].Rank != 1 {
		t.Fatalf("expected only the resolvable hit at rank 1, got %+v", pool.Candidates)
	}
}

func TestCollectEmptyPoolIsNotAnError(t *testing.T) {
	engine := ports.Engine{Name: "fulltext", Searcher: &fakeSearcher{}, Documents: &fakeDocuments{}}
	p, _ := newTestPipeline(engine)
	pool, err := p.Collect(context.Background(), domain.Question{Text: "nothing matches"}, 5)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(pool.Candidates) != 0 {
		t.Fatalf("expected empty pool, got %d", len(pool.Candidates))
	}
}

func TestCollectRejectsBlankQuestion(t *testing.T) {
	p, _ := newTestPipeline()
	_, err := p.Collect(context.Background(), domain.Question{Text: "   "}, 5)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCollectDefaultsAndClampsLimit(t *testing.T) {
	searcher := &fakeSearcher{}
	engine := ports.Engine{Name: "fulltext", Searcher: searcher, Documents: &fakeDocuments{}}
	p, _ := newTestPipeline(engine)

	if _, err := p.Collect(context.Background(), domain.Question{Text: "q text"}, 0); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if searcher.lastCount != defaultCandidateLimit {
		t.Fatalf("expected default limit %d, got %d", defaultCandidateLimit, searcher.lastCount)
	}

	if _, err := p.Collect(context.Background(), domain.Question{Text: "q text"}, 5000); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if searcher.lastCount != MaxCandidateLimit {
		t.Fatalf("expected clamped limit %d, got %d", MaxCandidateLimit, searcher.lastCount)
	}
}

func TestCollectReturnsContextError(t *testing.T) {
	engine := ports.Engine{
		Name:      "fulltext",
		Searcher:  &fakeSearcher{hits: []domain.Hit{{DocumentID: "a"}}},
		Documents: &fakeDocuments{docs: map[string]domain.Document{"a": {ID: "a", Title: "A"}}},
	}
	p, _ := newTestPipeline(engine)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Collect(ctx, domain.Question{Text: "q text"}, 5); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRegisterStandardFieldsPerEngine(t *testing.T) {
	reg := scoring.NewRegistry()
	RegisterStandardFields(reg, []string{"kb"})
	for name, want := range map[string]scoring.MergeStrategy{
		"KB_RECIPROCAL_RANK": scoring.Max,
		"KB_SCORE":           scoring.Max,
		"KB_PRESENT":         scoring.Or,
		"KB_HITS":            scoring.Sum,
		LabelField:           scoring.Max,
	} {
		e, ok := reg.Entry(name)
		if !ok || e.Strategy != want {
			t.Fatalf("field %s: got %+v ok=%v", name, e, ok)
		}
	}
}

func indexOf(fields []string, name string) int {
	for i, f := range fields {
		if f == name {
			return i
		}
	}
	return -1
}
