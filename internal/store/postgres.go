package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresStore keeps documents in a single jsonb table:
//
//	CREATE TABLE cdp_documents (
//	    collection TEXT NOT NULL,
//	    doc_key    TEXT NOT NULL,
//	    doc        JSONB,
//	    PRIMARY KEY (collection, doc_key)
//	)
//
// Scan streams rows through the driver cursor, so an early stop does
// not pull the whole collection over the wire.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an existing database handle (lib/pq driver).
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Ping verifies connectivity at startup.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get fetches one document by identity key.
func (s *PostgresStore) Get(ctx context.Context, collection, key string) (Record, bool, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM cdp_documents WHERE collection = $1 AND doc_key = $2`,
		collection, key,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("postgres get %s: %w", collection, err)
	}
	return Record{Key: key, Fields: decodeDoc(string(doc))}, true, nil
}

// Merge upserts one document, overlaying fields onto any existing row
// with the jsonb concatenation operator. A stored value that is not an
// object (including NULL) is replaced outright.
func (s *PostgresStore) Merge(ctx context.Context, collection, key string, fields map[string]any) error {
	doc, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("postgres merge encode: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cdp_documents (collection, doc_key, doc) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, doc_key) DO UPDATE
		 SET doc = CASE
		     WHEN jsonb_typeof(cdp_documents.doc) = 'object' THEN cdp_documents.doc || EXCLUDED.doc
		     ELSE EXCLUDED.doc
		 END`,
		collection, key, doc,
	)
	if err != nil {
		return fmt.Errorf("postgres merge %s: %w", collection, err)
	}
	return nil
}

// Scan returns a lazy iterator over the collection in key order.
func (s *PostgresStore) Scan(ctx context.Context, collection string) (Iterator, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_key, doc FROM cdp_documents WHERE collection = $1 ORDER BY doc_key`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres scan %s: %w", collection, err)
	}
	return &pgIterator{rows: rows}, nil
}

type pgIterator struct {
	rows *sql.Rows
}

func (it *pgIterator) Next(ctx context.Context) (Record, bool, error) {
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			return Record{}, false, fmt.Errorf("postgres scan: %w", err)
		}
		return Record{}, false, nil
	}
	var (
		key string
		doc []byte
	)
	if err := it.rows.Scan(&key, &doc); err != nil {
		return Record{}, false, fmt.Errorf("postgres scan row: %w", err)
	}
	return Record{Key: key, Fields: decodeDoc(string(doc))}, true, nil
}

func (it *pgIterator) Close() error { return it.rows.Close() }
