package neo4j

import (
	"context"
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/answer-evidence/internal/core/domain"
)

type runnerFake struct {
	cypher  string
	params  map[string]any
	records []*neo4j.Record
	err     error
}

func (f *runnerFake) run(_ context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	f.cypher = cypher
	f.params = params
	return f.records, f.err
}

func TestSearchMapsRecordsToHits(t *testing.T) {
	fake := &runnerFake{records: []*neo4j.Record{
		{Keys: []string{"id", "score"}, Values: []any{"kb:Elephant", 4.2}},
		{Keys: []string{"id", "score"}, Values: []any{"kb:Mammoth", 1.5}},
	}}
	store := &Store{run: fake.run, index: "entity_labels"}

	hits, err := store.Search(context.Background(), "african elephant", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 || hits[0].DocumentID != "kb:Elephant" || hits[1].Score != 1.5 {
		t.Fatalf("unexpected hits %+v", hits)
	}
	if fake.params["index"] != "entity_labels" || fake.params["limit"] != int64(10) {
		t.Fatalf("unexpected params %v", fake.params)
	}
}

func TestSearchEscapesQuerySyntax(t *testing.T) {
	fake := &runnerFake{}
	store := &Store{run: fake.run, index: "entity_labels"}

	if _, err := store.Search(context.Background(), "AC/DC (band)", 3); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := fake.params["query"]; got != `AC\/DC \(band\)` {
		t.Fatalf("unexpected escaped query %q", got)
	}
}

func TestSearchPropagatesRunnerError(t *testing.T) {
	store := &Store{run: (&runnerFake{err: errors.New("unavailable")}).run}
	if _, err := store.Search(context.Background(), "elephant", 3); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	store := &Store{run: (&runnerFake{}).run}
	_, err := store.GetDocument(context.Background(), "kb:Nothing")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestGetDocumentReadsTitleAndBody(t *testing.T) {
	fake := &runnerFake{records: []*neo4j.Record{
		{Keys: []string{"title", "body"}, Values: []any{"Elephant", "Largest land animal."}},
	}}
	store := &Store{run: fake.run}

	doc, err := store.GetDocument(context.Background(), "kb:Elephant")
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if doc.ID != "kb:Elephant" || doc.Title != "Elephant" || doc.Body != "Largest land animal." {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestClassifyErrorFallsBackToTransientRules(t *testing.T) {
	if got := ClassifyError(context.Canceled); got.Retryable || got.RecordFailure {
		t.Fatalf("expected cancellation to be ignored, got %+v", got)
	}
	if got := ClassifyError(errors.New("syntax error")); got.Retryable {
		t.Fatalf("expected plain error not to be retried, got %+v", got)
	}
}
