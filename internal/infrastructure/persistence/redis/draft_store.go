package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/roster"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
)

// DraftStore implements roster.DraftStore in Redis.
// The batch is stored as JSON under DraftKey and the input fingerprint
// points at the batch ID under FingerprintKey with the same TTL.
type DraftStore struct {
	store Store
}

// NewDraftStore creates a new DraftStore.
func NewDraftStore(store Store) *DraftStore {
	return &DraftStore{store: store}
}

var _ roster.DraftStore = (*DraftStore)(nil)

// Save stores the batch for ttl.
func (s *DraftStore) Save(ctx context.Context, batch *roster.Batch, ttl time.Duration) error {
	if err := s.store.Set(ctx, DraftKey(batch.ID), batch, ttl); err != nil {
		return fmt.Errorf("failed to save import draft %s: %w", batch.ID, err)
	}
	if batch.Fingerprint == "" {
		return nil
	}
	if err := s.store.SetString(ctx, FingerprintKey(batch.Fingerprint), batch.ID, ttl); err != nil {
		return fmt.Errorf("failed to index import draft %s: %w", batch.ID, err)
	}
	return nil
}

// Get loads the batch. Missing or expired batches return shared.ErrImportBatchNotFound.
func (s *DraftStore) Get(ctx context.Context, id string) (*roster.Batch, error) {
	var b roster.Batch
	if err := s.store.Get(ctx, DraftKey(id), &b); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrImportBatchNotFound
		}
		return nil, fmt.Errorf("failed to load import draft %s: %w", id, err)
	}
	return &b, nil
}

// Delete removes the batch and its fingerprint index.
func (s *DraftStore) Delete(ctx context.Context, id string) error {
	keys := []string{DraftKey(id)}

	var b roster.Batch
	if err := s.store.Get(ctx, DraftKey(id), &b); err == nil && b.Fingerprint != "" {
		keys = append(keys, FingerprintKey(b.Fingerprint))
	}
	return s.store.Delete(ctx, keys...)
}

// FindByFingerprint returns the ID of a live batch built from the same input.
func (s *DraftStore) FindByFingerprint(ctx context.Context, fingerprint string) (string, bool, error) {
	id, err := s.store.GetString(ctx, FingerprintKey(fingerprint))
	if errors.Is(err, ErrCacheMiss) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	live, err := s.store.Exists(ctx, DraftKey(id))
	if err != nil {
		return "", false, err
	}
	if !live {
		return "", false, nil
	}
	return id, true, nil
}
