package nats

import (
	"errors"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/answer-evidence/internal/core/domain"
)

func TestDecodeQuestionJSON(t *testing.T) {
	q, err := decodeQuestion([]byte(`{"id":"q-1","text":"Largest land animal?"}`))
	if err != nil {
		t.Fatalf("decodeQuestion() error = %v", err)
	}
	if q.ID != "q-1" || q.Text != "Largest land animal?" {
		t.Fatalf("unexpected question %+v", q)
	}
}

func TestDecodeQuestionPlainText(t *testing.T) {
	q, err := decodeQuestion([]byte("Largest land animal?"))
	if err != nil {
		t.Fatalf("decodeQuestion() error = %v", err)
	}
	if q.ID != "" || q.Text != "Largest land animal?" {
		t.Fatalf("unexpected question %+v", q)
	}
}

func TestDecodeQuestionEmptyIsInvalidInput(t *testing.T) {
	_, err := decodeQuestion([]byte(`{"id":"q-1"}`))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestWrapTemporaryForConnectionErrors(t *testing.T) {
	err := wrapTemporaryIfNeeded(nats.ErrConnectionClosed)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	permanent := errors.New("payload too large")
	if got := wrapTemporaryIfNeeded(permanent); got != permanent {
		t.Fatalf("expected permanent error to pass through, got %v", got)
	}
}
