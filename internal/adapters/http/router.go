package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/answer-evidence/internal/config"
	"github.com/kirillkom/answer-evidence/internal/core/domain"
	"github.com/kirillkom/answer-evidence/internal/core/ports"
	"github.com/kirillkom/answer-evidence/internal/core/scoring"
	"github.com/kirillkom/answer-evidence/internal/observability/metrics"
)

const (
	serviceName       = "candidate-api"
	maxRequestBytes   = 64 << 10
	maxInFlight       = 64
	backpressureWait  = 250 * time.Millisecond
	candidateEndpoint = "candidates"
)

// SchemaSource exposes the registered score fields.
type SchemaSource interface {
	Entries() []scoring.Entry
	Len() int
}

type Router struct {
	cfg       config.Config
	collector ports.CandidateCollector
	schema    SchemaSource
	metrics   *metrics.HTTPServerMetrics
	logger    *slog.Logger
}

type RouterOption func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
	}
}

func WithLogger(logger *slog.Logger) RouterOption {
	return func(rt *Router) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

func NewRouter(
	cfg config.Config,
	collector ports.CandidateCollector,
	schema SchemaSource,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:       cfg,
		collector: collector,
		schema:    schema,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/candidates", rt.collectCandidates)
	mux.HandleFunc("/v1/schema", rt.getSchema)

	var api http.Handler = mux
	api = backpressureMiddleware(api, maxInFlight, backpressureWait)
	api = rateLimitMiddleware(api, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)

	root := http.NewServeMux()
	if rt.metrics != nil {
		root.Handle("/metrics", rt.metrics.Handler())
		api = rt.metrics.Middleware(serviceName, api)
	}
	root.Handle("/", api)

	return requestIDMiddleware(accessLogMiddleware(rt.logger, root))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type candidatesRequest struct {
	QuestionID string `json:"question_id"`
	Question   string `json:"question"`
	Limit      int    `json:"limit"`
}

func (rt *Router) collectCandidates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req candidatesRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = rt.cfg.SearchTopN
	}

	start := time.Now()
	pool, err := rt.collector.Collect(r.Context(), domain.Question{ID: req.QuestionID, Text: req.Question}, limit)
	if err != nil {
		rt.logger.Warn("collect_candidates_failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordCandidatePool(serviceName, candidateEndpoint, len(pool.Candidates), time.Since(start))
	}

	writeJSON(w, http.StatusOK, pool)
}

type schemaField struct {
	Name    string  `json:"name"`
	Default float64 `json:"default"`
	Merge   string  `json:"merge"`
}

func (rt *Router) getSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	entries := rt.schema.Entries()
	fields := make([]schemaField, 0, len(entries))
	for _, e := range entries {
		fields = append(fields, schemaField{Name: e.Name, Default: e.Default, Merge: e.Strategy.String()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version": rt.schema.Len(),
		"fields":  fields,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
