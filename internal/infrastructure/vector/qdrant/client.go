package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/answer-evidence/internal/core/domain"
)

const sparseVectorName = "text_sparse"

// Client queries a Qdrant collection through its named sparse vector and
// reads passage payloads back as documents.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// HTTPStatusError carries a non-2xx Qdrant response.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("qdrant %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("qdrant %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func (c *Client) Search(ctx context.Context, text string, topN int) ([]domain.Hit, error) {
	sparse := encodeSparseQuery(text)
	if len(sparse.Indices) == 0 {
		return []domain.Hit{}, nil
	}

	reqBody := map[string]any{
		"vector": map[string]any{
			"name":   sparseVectorName,
			"vector": sparse,
		},
		"limit":        topN,
		"with_payload": false,
	}
	var searchResp struct {
		Result []struct {
			ID    any     `json:"id"`
			Score float64 `json:"score"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(c.collection))
	if err := c.do(ctx, "search", http.MethodPost, path, reqBody, &searchResp); err != nil {
		return nil, err
	}

	out := make([]domain.Hit, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.Hit{DocumentID: pointID(r.ID), Score: r.Score})
	}
	return out, nil
}

func (c *Client) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	var pointResp struct {
		Result *struct {
			ID      any            `json:"id"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/%s", url.PathEscape(c.collection), url.PathEscape(id))
	if err := c.do(ctx, "get point", http.MethodGet, path, nil, &pointResp); err != nil {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "qdrant get point", err)
		}
		return nil, err
	}
	if pointResp.Result == nil {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "qdrant get point", fmt.Errorf("id=%s", id))
	}
	return &domain.Document{
		ID:    id,
		Title: getStringPayload(pointResp.Result.Payload, "title"),
		Body:  getStringPayload(pointResp.Result.Payload, "text"),
	}, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", operation, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(msg),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func pointID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
