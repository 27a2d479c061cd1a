package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadbroker/broker/pkg/clock"
	"github.com/leadbroker/broker/pkg/domain/lead"
)

type fakeStore struct {
	existing   *lead.Lead
	err        error
	lastSince  time.Time
	calls      int
}

func (f *fakeStore) FindRecentByContact(ctx context.Context, email, phone string, since time.Time) (*lead.Lead, error) {
	f.calls++
	f.lastSince = since
	return f.existing, f.err
}

type fakeCache struct {
	seen      map[string]string
	remembers map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{seen: map[string]string{}, remembers: map[string]string{}}
}

func (f *fakeCache) Seen(ctx context.Context, key string) (string, bool) {
	id, ok := f.seen[key]
	return id, ok
}

func (f *fakeCache) Remember(ctx context.Context, key, existingID string, window time.Duration) {
	f.remembers[key] = existingID
}

func TestCheck_NoMatchGoesToStore(t *testing.T) {
	store := &fakeStore{}
	clk := clock.NewFixed(time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC))
	d := New(store, nil, clk, 24*time.Hour)

	id, dup, err := d.Check(context.Background(), "jane@example.com", "")
	require.NoError(t, err)
	assert.False(t, dup)
	assert.Empty(t, id)
	assert.Equal(t, clk.Now().Add(-24*time.Hour), store.lastSince)
}

func TestCheck_StoreMatchReturnsDuplicate(t *testing.T) {
	store := &fakeStore{existing: &lead.Lead{ID: "lead-1"}}
	clk := clock.NewFixed(time.Now())
	d := New(store, nil, clk, 24*time.Hour)

	id, dup, err := d.Check(context.Background(), "jane@example.com", "")
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, "lead-1", id)
}

func TestCheck_CacheHitSkipsStore(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	cache.seen["email:jane@example.com"] = "lead-cached"
	clk := clock.NewFixed(time.Now())
	d := New(store, cache, clk, 24*time.Hour)

	id, dup, err := d.Check(context.Background(), "jane@example.com", "")
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, "lead-cached", id)
	assert.Equal(t, 0, store.calls)
}

func TestCheck_StoreMatchPopulatesCache(t *testing.T) {
	store := &fakeStore{existing: &lead.Lead{ID: "lead-1"}}
	cache := newFakeCache()
	clk := clock.NewFixed(time.Now())
	d := New(store, cache, clk, 24*time.Hour)

	_, dup, err := d.Check(context.Background(), "jane@example.com", "4155551234")
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, "lead-1", cache.remembers["email:jane@example.com"])
	assert.Equal(t, "lead-1", cache.remembers["phone:4155551234"])
}

func TestCheck_EmailOrPhoneOrSemantics(t *testing.T) {
	store := &fakeStore{}
	clk := clock.NewFixed(time.Now())
	d := New(store, nil, clk, 24*time.Hour)

	_, _, err := d.Check(context.Background(), "", "4155551234")
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls)
}

func TestCheck_PropagatesStoreError(t *testing.T) {
	store := &fakeStore{err: assert.AnError}
	clk := clock.NewFixed(time.Now())
	d := New(store, nil, clk, 24*time.Hour)

	_, _, err := d.Check(context.Background(), "jane@example.com", "")
	assert.ErrorIs(t, err, assert.AnError)
}
