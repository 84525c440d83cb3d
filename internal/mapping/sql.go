package mapping

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Pure-Go sqlite driver for the mapping database.
	_ "modernc.org/sqlite"
)

// SQL is a repository backed by an ir_property_mappings table:
//
//	CREATE TABLE ir_property_mappings (
//	    ir_type    TEXT NOT NULL,
//	    ir_subtype TEXT NOT NULL,
//	    component  TEXT NOT NULL
//	);
type SQL struct {
	db *sql.DB
}

// OpenSQL opens a sqlite-backed repository from a DSN and verifies the
// connection.
func OpenSQL(ctx context.Context, dsn string) (*SQL, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening mapping database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to mapping database: %w", err)
	}

	return &SQL{db: db}, nil
}

// NewSQL wraps an existing database handle.
func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db}
}

// Lookup queries the mapping table for the pair.
func (s *SQL) Lookup(ctx context.Context, irType, irSubtype string) (string, error) {
	const query = `
		SELECT component
		FROM ir_property_mappings
		WHERE ir_type = ? AND ir_subtype = ?
		LIMIT 1`

	var component string

	err := s.db.QueryRowContext(ctx, query, irType, irSubtype).Scan(&component)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &NotFoundError{Key: Key{Type: irType, Subtype: irSubtype}}
	}

	if err != nil {
		return "", fmt.Errorf("querying mapping for (%s, %s): %w", irType, irSubtype, err)
	}

	return component, nil
}

// Close closes the database handle.
func (s *SQL) Close() error {
	return s.db.Close()
}
