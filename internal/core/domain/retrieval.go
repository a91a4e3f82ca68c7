package domain

import "github.com/kirillkom/answer-evidence/internal/core/scoring"

// Hit is one ranked backend result.
type Hit struct {
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
}

// AnswerCandidate is one proposed answer with its provenance and evidence.
type AnswerCandidate struct {
	Title        string
	Text         string
	SourceEngine string
	Rank         int
	Scores       *scoring.Vector
}

type Question struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// CandidatePool is the normalized set of candidates for one question.
// Features rows follow Fields.
type CandidatePool struct {
	QuestionID string          `json:"question_id"`
	Question   string          `json:"question"`
	Fields     []string        `json:"fields"`
	Candidates []PoolCandidate `json:"candidates"`
}

type PoolCandidate struct {
	Title        string    `json:"title"`
	Text         string    `json:"text"`
	SourceEngine string    `json:"source_engine"`
	Rank         int       `json:"rank"`
	Features     []float64 `json:"features"`
}

func (c *AnswerCandidate) ScoreVector() *scoring.Vector {
	return c.Scores
}
