// Package neo4j serves knowledge-base entities as search hits. Entities are
// matched through a full-text index over their labels.
package neo4j

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/answer-evidence/internal/core/domain"
)

const (
	searchCypher = `
CALL db.index.fulltext.queryNodes($index, $query) YIELD node, score
RETURN node.uri AS id, score
ORDER BY score DESC, id ASC
LIMIT $limit`

	documentCypher = `
MATCH (e:Entity {uri: $id})
RETURN e.label AS title, coalesce(e.abstract, '') AS body
LIMIT 1`
)

type queryRunner func(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)

type Store struct {
	driver neo4j.DriverWithContext
	run    queryRunner
	index  string
}

// Open connects and verifies connectivity.
func Open(ctx context.Context, uri, user, password, index string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return &Store{
		driver: driver,
		run: func(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
			result, err := neo4j.ExecuteQuery(ctx, driver, cypher, params,
				neo4j.EagerResultTransformer,
				neo4j.ExecuteQueryWithReadersRouting(),
			)
			if err != nil {
				return nil, err
			}
			return result.Records, nil
		},
		index: index,
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Close(ctx)
}

func (s *Store) Search(ctx context.Context, text string, topN int) ([]domain.Hit, error) {
	query := escapeLucene(text)
	if query == "" {
		return []domain.Hit{}, nil
	}

	records, err := s.run(ctx, searchCypher, map[string]any{
		"index": s.index,
		"query": query,
		"limit": int64(topN),
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j entity search: %w", err)
	}

	hits := make([]domain.Hit, 0, len(records))
	for _, record := range records {
		id, _, err := neo4j.GetRecordValue[string](record, "id")
		if err != nil {
			return nil, fmt.Errorf("read entity id: %w", err)
		}
		score, _, err := neo4j.GetRecordValue[float64](record, "score")
		if err != nil {
			return nil, fmt.Errorf("read entity score: %w", err)
		}
		hits = append(hits, domain.Hit{DocumentID: id, Score: score})
	}
	return hits, nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	records, err := s.run(ctx, documentCypher, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("neo4j get entity: %w", err)
	}
	if len(records) == 0 {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "neo4j get entity", fmt.Errorf("uri=%s", id))
	}
	title, _, err := neo4j.GetRecordValue[string](records[0], "title")
	if err != nil {
		return nil, fmt.Errorf("read entity title: %w", err)
	}
	body, _, err := neo4j.GetRecordValue[string](records[0], "body")
	if err != nil {
		return nil, fmt.Errorf("read entity body: %w", err)
	}
	return &domain.Document{ID: id, Title: title, Body: body}, nil
}

const luceneSpecial = `+-&|!(){}[]^"~*?:\/`

// escapeLucene quotes query-syntax characters so free text is matched literally.
func escapeLucene(text string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(text) {
		if strings.ContainsRune(luceneSpecial, r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
