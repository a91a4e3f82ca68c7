package usecase

import (
	"testing"

	"github.com/kirillkom/answer-evidence/internal/core/domain"
	"github.com/kirillkom/answer-evidence/internal/core/scoring"
)

func TestOrderByFusedRankPrefersAgreement(t *testing.T) {
	reg := scoring.NewRegistry()
	RegisterStandardFields(reg, []string{"a", "b"})
	a, b := FieldsFor("a"), FieldsFor("b")

	solo := &domain.AnswerCandidate{Title: "Solo", Scores: reg.Empty()}
	solo.Scores.Set(a.ReciprocalRank, 1)
	both := &domain.AnswerCandidate{Title: "Both", Scores: reg.Empty()}
	both.Scores.Set(a.ReciprocalRank, 0.5)
	both.Scores.Set(b.ReciprocalRank, 1)

	list := []*domain.AnswerCandidate{solo, both}
	orderByFusedRank(list, []string{a.ReciprocalRank, b.ReciprocalRank})
	if list[0] != both {
		t.Fatalf("expected candidate found by both engines first, got %s", list[0].Title)
	}
}

func TestOrderByFusedRankTieBreakByTitle(t *testing.T) {
	reg := scoring.NewRegistry()
	list := []*domain.AnswerCandidate{
		{Title: "beta", Scores: reg.Empty()},
		{Title: "alpha", Scores: reg.Empty()},
	}
	orderByFusedRank(list, nil)
	if list[0].Title != "alpha" {
		t.Fatalf("expected tie-break by title, got %s", list[0].Title)
	}
}

func TestMergeDuplicatesKeepsUntitledApart(t *testing.T) {
	reg := scoring.NewRegistry()
	list := []*domain.AnswerCandidate{
		{SourceEngine: "x", Text: "one", Scores: reg.Empty()},
		{SourceEngine: "x", Text: "two", Scores: reg.Empty()},
	}
	if got := mergeDuplicates(list); len(got) != 2 {
		t.Fatalf("expected untitled candidates to stay apart, got %d", len(got))
	}
}

func TestQuestionOverlap(t *testing.T) {
	q := toTokenSet("Largest land animal?")
	if got := questionOverlap(q, "The largest animal on land"); got != 1 {
		t.Fatalf("expected full overlap, got %f", got)
	}
	if got := questionOverlap(q, "a small bird"); got != 0 {
		t.Fatalf("expected no overlap, got %f", got)
	}
	if got := questionOverlap(map[string]struct{}{}, "x"); got != 0 {
		t.Fatalf("expected zero for empty question, got %f", got)
	}
}
