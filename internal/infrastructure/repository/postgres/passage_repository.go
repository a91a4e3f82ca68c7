package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/answer-evidence/internal/core/domain"
)

// PassageRepository serves full-text hits and documents from the passages
// table. The table and its search_vector column are built by the indexer.
type PassageRepository struct {
	db       *sql.DB
	language string
}

func NewPassageRepository(db *sql.DB) *PassageRepository {
	return &PassageRepository{db: db, language: "english"}
}

// OpenDB connects to the index database. Any failure is reported as
// domain.ErrIndexUnavailable.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "open index", errors.New("index location is not configured"))
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "sql open", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "db ping", err)
	}
	return db, nil
}

// VerifyIndex fails when the passages table is missing.
func (r *PassageRepository) VerifyIndex(ctx context.Context) error {
	var name sql.NullString
	if err := r.db.QueryRowContext(ctx, `SELECT to_regclass('public.passages')::text`).Scan(&name); err != nil {
		return domain.WrapError(domain.ErrIndexUnavailable, "verify index", err)
	}
	if !name.Valid || name.String == "" {
		return domain.WrapError(domain.ErrIndexUnavailable, "verify index", errors.New("table passages does not exist"))
	}
	return nil
}

func (r *PassageRepository) Search(ctx context.Context, text string, topN int) ([]domain.Hit, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, ts_rank(search_vector, query) AS rank
FROM passages, websearch_to_tsquery($1::regconfig, $2) AS query
WHERE search_vector @@ query
ORDER BY rank DESC, id ASC
LIMIT $3
`, r.language, text, topN)
	if err != nil {
		return nil, fmt.Errorf("query passages: %w", err)
	}
	defer rows.Close()

	hits := make([]domain.Hit, 0, topN)
	for rows.Next() {
		var hit domain.Hit
		if err := rows.Scan(&hit.DocumentID, &hit.Score); err != nil {
			return nil, fmt.Errorf("scan passage hit: %w", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passage hits: %w", err)
	}
	return hits, nil
}

func (r *PassageRepository) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, body
FROM passages
WHERE id = $1
`, id)

	var doc domain.Document
	if err := row.Scan(&doc.ID, &doc.Title, &doc.Body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get passage", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan passage: %w", err)
	}
	return &doc, nil
}
