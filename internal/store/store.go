// Package store holds the process-lifetime enrichment cache in an in-memory
// Badger database.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// Store wraps an in-memory Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// New opens an in-memory store. Nothing is written to disk.
func New(logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the database. Closing twice is a no-op.
func (s *Store) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close badger: %w", err)
	}
	return nil
}

// Ping reports whether the store can serve reads.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return errClosed
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}
