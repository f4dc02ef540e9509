package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/roster"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
)

// DraftStore implements roster.DraftStore. Batches are kept JSON-encoded so
// a stored batch behaves exactly like one read back from Redis.
type DraftStore struct {
	db    *draftTable
	clock func() time.Time
}

// NewDraftStore creates a draft store over the DB's draft table.
func NewDraftStore(db *DB) *DraftStore {
	return &DraftStore{db: db.drafts, clock: db.clock.Now}
}

var _ roster.DraftStore = (*DraftStore)(nil)

// Save stores the batch until ttl elapses.
func (s *DraftStore) Save(ctx context.Context, batch *roster.Batch, ttl time.Duration) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}

	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	s.db.t[batch.ID] = draftEntry{data: data, expiresAt: s.clock().Add(ttl)}
	if batch.Fingerprint != "" {
		s.db.byFingerprint[batch.Fingerprint] = batch.ID
	}
	return nil
}

// Get returns a fresh copy of the batch.
func (s *DraftStore) Get(ctx context.Context, id string) (*roster.Batch, error) {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	entry, ok := s.live(id)
	if !ok {
		return nil, shared.ErrImportBatchNotFound
	}

	var b roster.Batch
	if err := json.Unmarshal(entry.data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode batch %s: %w", id, err)
	}
	return &b, nil
}

// Delete removes the batch and its fingerprint index.
func (s *DraftStore) Delete(ctx context.Context, id string) error {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	delete(s.db.t, id)
	for fp, batchID := range s.db.byFingerprint {
		if batchID == id {
			delete(s.db.byFingerprint, fp)
		}
	}
	return nil
}

// FindByFingerprint returns the live batch created from identical input.
func (s *DraftStore) FindByFingerprint(ctx context.Context, fingerprint string) (string, bool, error) {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	id, ok := s.db.byFingerprint[fingerprint]
	if !ok {
		return "", false, nil
	}
	if _, live := s.live(id); !live {
		delete(s.db.byFingerprint, fingerprint)
		return "", false, nil
	}
	return id, true, nil
}

// live must be called with the mutex held. Expired entries are dropped.
func (s *DraftStore) live(id string) (draftEntry, bool) {
	entry, ok := s.db.t[id]
	if !ok {
		return draftEntry{}, false
	}
	if !s.clock().Before(entry.expiresAt) {
		delete(s.db.t, id)
		return draftEntry{}, false
	}
	return entry, true
}

// Purge drops every expired batch and returns how many were removed.
// Redis expires keys on its own; the in-memory table needs this from a job.
func (s *DraftStore) Purge(ctx context.Context) (int, error) {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	removed := 0
	for id := range s.db.t {
		if _, ok := s.live(id); !ok {
			removed++
		}
	}
	for fp, id := range s.db.byFingerprint {
		if _, ok := s.db.t[id]; !ok {
			delete(s.db.byFingerprint, fp)
		}
	}
	return removed, nil
}
