package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/holocronapp/holocron-server/internal/domain"
)

const (
	enrichedPrefix = "enriched:"

	// maxConflictRetries bounds retries of optimistic transactions that race
	// on the same key.
	maxConflictRetries = 5

	// clearBatchSize keeps each delete transaction well under badger's
	// per-transaction limits.
	clearBatchSize = 1000
)

var errClosed = errors.New("store closed")

func enrichedKey(category domain.Category, id string) []byte {
	return fmt.Appendf(nil, "%s%s:%s", enrichedPrefix, category, id)
}

// GetEnriched returns the cached entity for (category, id).
// Returns nil, nil on a miss.
func (s *Store) GetEnriched(ctx context.Context, category domain.Category, id string) (*domain.EnrichedEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var cached domain.EnrichedEntity
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(enrichedKey(category, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cached)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get enriched %s/%s: %w", category, id, err)
	}
	return &cached, nil
}

// PutEnriched stores e under (category, e.ID) unless an entry already
// exists. It returns the entry as stored, decoded from its persisted form,
// so the first caller sees exactly what later lookups will return.
func (s *Store) PutEnriched(ctx context.Context, category domain.Category, e domain.EnrichedEntity) (*domain.EnrichedEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal enriched: %w", err)
	}
	key := enrichedKey(category, e.ID)

	var stored []byte
	for range maxConflictRetries {
		err = s.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(key)
			switch {
			case err == nil:
				stored, err = item.ValueCopy(nil)
				return err
			case errors.Is(err, badger.ErrKeyNotFound):
				stored = data
				return txn.Set(key, data)
			default:
				return err
			}
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("put enriched %s/%s: %w", category, e.ID, err)
	}

	var canonical domain.EnrichedEntity
	if err := json.Unmarshal(stored, &canonical); err != nil {
		return nil, fmt.Errorf("decode enriched: %w", err)
	}
	return &canonical, nil
}

// ClearEnriched removes every cached entity and returns how many were dropped.
// Keys are read and deleted in the same transaction, so the count is exactly
// the number of entries this call removed even while writers are active.
func (s *Store) ClearEnriched(ctx context.Context) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		var n int
		var err error
		for range maxConflictRetries {
			n, err = s.deleteEnrichedBatch()
			if !errors.Is(err, badger.ErrConflict) {
				break
			}
		}
		if err != nil {
			return total, fmt.Errorf("clear enriched: %w", err)
		}
		total += n
		if n < clearBatchSize {
			break
		}
	}
	s.logger.Info("enrichment cache cleared", "entries", total)
	return total, nil
}

// deleteEnrichedBatch deletes up to clearBatchSize enriched keys in a single
// transaction and reports how many it deleted.
func (s *Store) deleteEnrichedBatch() (int, error) {
	n := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(enrichedPrefix)

		it := txn.NewIterator(opts)
		keys := make([][]byte, 0, clearBatchSize)
		for it.Rewind(); it.Valid() && len(keys) < clearBatchSize; it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		n = len(keys)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// CountEnriched returns the number of cached entities.
func (s *Store) CountEnriched(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(enrichedPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count enriched: %w", err)
	}
	return count, nil
}
