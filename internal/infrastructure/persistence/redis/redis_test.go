package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojo-hub/dojo-community-hub/internal/domain/roster"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/shared"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/student"
	"github.com/dojo-hub/dojo-community-hub/internal/infrastructure/persistence/memory"
)

// fakeStore is an in-process Store. TTLs are recorded, not enforced.
type fakeStore struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = b
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) Get(_ context.Context, key string, dest any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	b, ok := f.data[key]
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (f *fakeStore) SetString(_ context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.data[key] = []byte(value)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) GetString(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	b, ok := f.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return string(b), nil
}

func (f *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok, f.err
}

func (f *fakeStore) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return f.err
}

func TestDraftStore_SaveGetFind(t *testing.T) {
	fs := newFakeStore()
	store := NewDraftStore(fs)
	ctx := context.Background()

	b := &roster.Batch{ID: "b-1", Fingerprint: "abc", SchemaVersion: roster.SchemaV1}
	require.NoError(t, store.Save(ctx, b, TTLImportDraft))
	assert.Equal(t, TTLImportDraft, fs.ttls[DraftKey("b-1")])
	assert.Equal(t, TTLImportDraft, fs.ttls[FingerprintKey("abc")])

	got, err := store.Get(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, roster.SchemaV1, got.SchemaVersion)

	id, ok, err := store.FindByFingerprint(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b-1", id)

	require.NoError(t, store.Delete(ctx, "b-1"))
	_, err = store.Get(ctx, "b-1")
	assert.ErrorIs(t, err, shared.ErrImportBatchNotFound)
	_, ok, err = store.FindByFingerprint(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDraftStore_StaleFingerprint(t *testing.T) {
	fs := newFakeStore()
	store := NewDraftStore(fs)
	ctx := context.Background()
	require.NoError(t, fs.SetString(ctx, FingerprintKey("old"), "gone", time.Hour))

	_, ok, err := store.FindByFingerprint(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachedStudentRepository_ReadThrough(t *testing.T) {
	inner := memory.NewStudentRepository(memory.Open())
	fs := newFakeStore()
	repo := NewCachedStudentRepository(inner, fs, nil)
	ctx := context.Background()

	require.NoError(t, inner.SaveStudents(ctx, []*student.Student{{ID: "s-1", Name: "Ana", BeltID: "white"}}))

	got, err := repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	assert.Contains(t, fs.data, StudentKey("s-1"), "miss populates the cache")

	// Served from cache even though the repository changed underneath.
	require.NoError(t, inner.SaveStudents(ctx, []*student.Student{{ID: "s-1", Name: "Ana Maria", BeltID: "white"}}))
	got, err = repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)

	// Writes through the decorator refresh the cache.
	got.Name = "Ana Lucia"
	require.NoError(t, repo.SaveStudents(ctx, []*student.Student{got}))
	again, err := repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Lucia", again.Name)

	require.NoError(t, repo.Invalidate(ctx, "s-1"))
	assert.NotContains(t, fs.data, StudentKey("s-1"))

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, shared.IsNotFound(err))
}

func TestCachedStudentRepository_CacheDownFallsBack(t *testing.T) {
	inner := memory.NewStudentRepository(memory.Open())
	fs := newFakeStore()
	fs.err = errors.New("connection refused")
	repo := NewCachedStudentRepository(inner, fs, nil)
	ctx := context.Background()

	require.NoError(t, repo.SaveStudents(ctx, []*student.Student{{ID: "s-1", Name: "Ana"}}))
	for i := 0; i < 10; i++ {
		got, err := repo.GetByID(ctx, "s-1")
		require.NoError(t, err)
		assert.Equal(t, "Ana", got.Name)
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "student:s-1", StudentKey("s-1"))
	assert.Equal(t, "import:draft:b", DraftKey("b"))
	assert.Equal(t, "import:fp:f", FingerprintKey("f"))

	opts, err := DefaultConfig().Options()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)

	opts, err = Config{URL: "redis://:secret@cache:6380/2"}.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
}
