package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIPort  string
	LogLevel string

	// IndexDSN locates the required full-text passage index.
	IndexDSN string

	QdrantEnabled    bool
	QdrantURL        string
	QdrantCollection string

	Neo4jEnabled  bool
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jIndex    string

	NATSURL             string
	NATSQuestionSubject string
	NATSResultSubject   string

	SchemaFile string

	SearchCacheSize           int
	SearchMinQueryChars       int
	SearchTopN                int
	SearchMemoryLimitMB       int
	SearchMemoryCheckInterval time.Duration

	NormalizeProtectedField string

	ResilienceRetryMaxAttempts   int
	ResilienceBreakerEnabled     bool
	ResilienceBreakerOpenTimeout time.Duration

	APIRateLimitRPS   float64
	APIRateLimitBurst int

	WorkerMetricsPort string
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		IndexDSN: mustEnv("INDEX_DSN", ""),

		QdrantEnabled:    mustEnvBool("QDRANT_ENABLED", false),
		QdrantURL:        mustEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: mustEnv("QDRANT_COLLECTION", "passages"),

		Neo4jEnabled:  mustEnvBool("NEO4J_ENABLED", false),
		Neo4jURI:      mustEnv("NEO4J_URI", "neo4j://localhost:7687"),
		Neo4jUser:     mustEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword: mustEnv("NEO4J_PASSWORD", ""),
		Neo4jIndex:    mustEnv("NEO4J_FULLTEXT_INDEX", "entityLabels"),

		NATSURL:             mustEnv("NATS_URL", "nats://localhost:4222"),
		NATSQuestionSubject: mustEnv("NATS_QUESTION_SUBJECT", "questions.incoming"),
		NATSResultSubject:   mustEnv("NATS_RESULT_SUBJECT", "questions.candidates"),

		SchemaFile: mustEnv("SCHEMA_FILE", ""),

		SearchCacheSize:           mustEnvInt("SEARCH_CACHE_SIZE", 1000),
		SearchMinQueryChars:       mustEnvInt("SEARCH_MIN_QUERY_CHARS", 3),
		SearchTopN:                mustEnvInt("SEARCH_TOP_N", 10),
		SearchMemoryLimitMB:       mustEnvInt("SEARCH_MEMORY_LIMIT_MB", 0),
		SearchMemoryCheckInterval: mustEnvDuration("SEARCH_MEMORY_CHECK_INTERVAL", 10*time.Second),

		NormalizeProtectedField: mustEnv("NORMALIZE_PROTECTED_FIELD", "CORRECT"),

		ResilienceRetryMaxAttempts:   mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", 2),
		ResilienceBreakerEnabled:     mustEnvBool("RESILIENCE_BREAKER_ENABLED", true),
		ResilienceBreakerOpenTimeout: mustEnvDuration("RESILIENCE_BREAKER_OPEN_TIMEOUT", 15*time.Second),

		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 20),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 40),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
