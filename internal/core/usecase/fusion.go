package usecase

import (
	"sort"
	"strings"
	"unicode"

	"github.com/kirillkom/answer-evidence/internal/core/domain"
	"github.com/kirillkom/answer-evidence/internal/core/scoring"
)

// mergeDuplicates folds candidates sharing a normalized title into the first
// one seen. Score vectors are combined with scoring.Merge.
func mergeDuplicates(candidates []*domain.AnswerCandidate) []*domain.AnswerCandidate {
	index := make(map[string]int, len(candidates))
	out := make([]*domain.AnswerCandidate, 0, len(candidates))
	for _, c := range candidates {
		key := candidateKey(c)
		if i, ok := index[key]; ok {
			kept := out[i]
			kept.Scores = scoring.Merge(kept.Scores, c.Scores)
			if kept.Text == "" && c.Text != "" {
				kept.Text = c.Text
			}
			continue
		}
		index[key] = len(out)
		out = append(out, c)
	}
	return out
}

// orderByFusedRank sorts candidates by the sum of their per-engine
// reciprocal ranks, descending, ties broken by title.
func orderByFusedRank(candidates []*domain.AnswerCandidate, rankFields []string) {
	fused := make(map[*domain.AnswerCandidate]float64, len(candidates))
	for _, c := range candidates {
		var total float64
		for _, f := range rankFields {
			total += c.Scores.Get(f)
		}
		fused[c] = total
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if fused[a] != fused[b] {
			return fused[a] > fused[b]
		}
		return a.Title < b.Title
	})
}

func candidateKey(c *domain.AnswerCandidate) string {
	key := normalizeTitle(c.Title)
	if key == "" {
		return "\x00" + c.SourceEngine + "\x00" + c.Text
	}
	return key
}

func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// questionOverlap is the fraction of question tokens present in text.
func questionOverlap(question map[string]struct{}, text string) float64 {
	if len(question) == 0 {
		return 0
	}
	found := toTokenSet(text)
	matched := 0
	for tok := range question {
		if _, ok := found[tok]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(question))
}

func toTokenSet(text string) map[string]struct{} {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if len([]rune(tok)) < 2 {
			continue
		}
		out[tok] = struct{}{}
	}
	return out
}
