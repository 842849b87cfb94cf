package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a PostgreSQL implementation of the DocumentStore
// interface. Documents live in a single table keyed by (collection, doc_id)
// with the body in a JSONB column.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ DocumentStore = (*PostgresStore)(nil)

// InitSchema creates the documents table if it does not exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			doc_id     TEXT NOT NULL,
			body       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, doc_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	return nil
}

// Get retrieves a document by its ID. A missing document is (nil, nil).
func (s *PostgresStore) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	var body []byte
	err := s.db.QueryRow(ctx,
		"SELECT body FROM documents WHERE collection = $1 AND doc_id = $2",
		collection, id,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", collection, id, err)
	}
	return body, nil
}

// Put writes a document, fully replacing any existing body under the key.
func (s *PostgresStore) Put(ctx context.Context, collection, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", collection, id, err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO documents (collection, doc_id, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, doc_id)
		DO UPDATE SET body = EXCLUDED.body, updated_at = now()
	`, collection, id, body)
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", collection, id, err)
	}
	return nil
}
