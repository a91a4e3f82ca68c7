package config

import (
	"testing"
	"time"
)

func TestLoadSearchDefaults(t *testing.T) {
	t.Setenv("SEARCH_CACHE_SIZE", "")
	t.Setenv("SEARCH_MIN_QUERY_CHARS", "")
	t.Setenv("SEARCH_TOP_N", "")
	t.Setenv("SEARCH_MEMORY_CHECK_INTERVAL", "")
	t.Setenv("NORMALIZE_PROTECTED_FIELD", "")
	t.Setenv("INDEX_DSN", "")

	cfg := Load()
	if cfg.SearchCacheSize != 1000 {
		t.Fatalf("expected default cache size 1000, got %d", cfg.SearchCacheSize)
	}
	if cfg.SearchMinQueryChars != 3 {
		t.Fatalf("expected default min query chars 3, got %d", cfg.SearchMinQueryChars)
	}
	if cfg.SearchTopN != 10 {
		t.Fatalf("expected default top n 10, got %d", cfg.SearchTopN)
	}
	if cfg.SearchMemoryCheckInterval != 10*time.Second {
		t.Fatalf("expected default check interval 10s, got %s", cfg.SearchMemoryCheckInterval)
	}
	if cfg.NormalizeProtectedField != "CORRECT" {
		t.Fatalf("expected protected field CORRECT, got %q", cfg.NormalizeProtectedField)
	}
	if cfg.IndexDSN != "" {
		t.Fatalf("expected no default index dsn, got %q", cfg.IndexDSN)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("SEARCH_CACHE_SIZE", "50")
	t.Setenv("SEARCH_MEMORY_CHECK_INTERVAL", "2s")
	t.Setenv("QDRANT_ENABLED", "true")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("RESILIENCE_BREAKER_ENABLED", "false")

	cfg := Load()
	if cfg.SearchCacheSize != 50 {
		t.Fatalf("expected cache size 50, got %d", cfg.SearchCacheSize)
	}
	if cfg.SearchMemoryCheckInterval != 2*time.Second {
		t.Fatalf("expected 2s interval, got %s", cfg.SearchMemoryCheckInterval)
	}
	if !cfg.QdrantEnabled {
		t.Fatalf("expected qdrant enabled")
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rps 2.5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.ResilienceBreakerEnabled {
		t.Fatalf("expected breaker disabled")
	}
}

func TestLoadFallsBackOnInvalidValues(t *testing.T) {
	t.Setenv("SEARCH_TOP_N", "many")
	t.Setenv("SEARCH_MEMORY_CHECK_INTERVAL", "-1s")
	t.Setenv("NEO4J_ENABLED", "maybe")

	cfg := Load()
	if cfg.SearchTopN != 10 {
		t.Fatalf("expected fallback top n 10, got %d", cfg.SearchTopN)
	}
	if cfg.SearchMemoryCheckInterval != 10*time.Second {
		t.Fatalf("expected fallback interval, got %s", cfg.SearchMemoryCheckInterval)
	}
	if cfg.Neo4jEnabled {
		t.Fatalf("expected neo4j disabled on invalid bool")
	}
}
