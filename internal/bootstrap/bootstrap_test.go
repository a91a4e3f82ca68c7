package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/kirillkom/answer-evidence/internal/config"
	"github.com/kirillkom/answer-evidence/internal/core/domain"
)

func TestNewFailsFastWithoutIndexLocation(t *testing.T) {
	_, err := New(context.Background(), config.Config{}, Options{})
	if !domain.IsKind(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestResilienceConfigOverrides(t *testing.T) {
	out := resilienceConfig(config.Config{
		ResilienceRetryMaxAttempts:   4,
		ResilienceBreakerEnabled:     false,
		ResilienceBreakerOpenTimeout: time.Minute,
	})
	if out.RetryMaxAttempts != 4 || out.BreakerEnabled || out.BreakerOpenTimeout != time.Minute {
		t.Fatalf("unexpected resilience config %+v", out)
	}

	def := resilienceConfig(config.Config{ResilienceBreakerEnabled: true})
	if def.RetryMaxAttempts != 2 || !def.BreakerEnabled {
		t.Fatalf("expected defaults to survive, got %+v", def)
	}
}
