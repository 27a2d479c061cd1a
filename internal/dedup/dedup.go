// Package dedup implements the deduplicator (C4): suppressing leads whose
// contact identity (email or phone) appeared within a recency window.
//
// Grounded directly on the teacher's internal/interruptions package
// (quantumlife-canon-core/internal/interruptions/dedup.go), which already
// implements "suppress if seen within a window" as a pure function over
// an injected DedupStore interface. The teacher's version tracks an
// opaque dedup key in memory; this version's authoritative store is the
// Lead Store itself (spec.md §4.4: "queries the Lead Store for any lead
// whose normalized email or phone equals the candidate's ... within the
// last 24 hours"), with an optional Redis-backed existence cache in front
// of it (SPEC_FULL.md §8) so a hot portal's retry storm doesn't have to
// hit Postgres for every duplicate.
package dedup

import (
	"context"
	"time"

	"github.com/leadbroker/broker/pkg/clock"
	"github.com/leadbroker/broker/pkg/domain/lead"
)

// RecentContactLookup finds an existing lead created within the dedup
// window matching the given email or phone (spec.md §4.4 — OR semantics,
// per the Open Question resolved in SPEC_FULL.md §13).
type RecentContactLookup interface {
	FindRecentByContact(ctx context.Context, email, phone string, since time.Time) (*lead.Lead, error)
}

// Cache is an optional fast-path existence cache in front of the
// authoritative store lookup (backed by Redis in production; see
// internal/store/rediscache.go for the client used here).
type Cache interface {
	// Seen returns the existing lead id for this contact key, if cached.
	Seen(ctx context.Context, key string) (string, bool)
	// Remember records that this contact key now maps to existingID,
	// valid for the given window.
	Remember(ctx context.Context, key, existingID string, window time.Duration)
}

// Deduplicator suppresses leads whose contact identity was already seen
// within the configured window.
type Deduplicator struct {
	store  RecentContactLookup
	cache  Cache // may be nil; dedup still works via store alone
	clk    clock.Clock
	window time.Duration
}

// New creates a Deduplicator. cache may be nil.
func New(store RecentContactLookup, cache Cache, clk clock.Clock, window time.Duration) *Deduplicator {
	return &Deduplicator{store: store, cache: cache, clk: clk, window: window}
}

// Check returns the existing lead id if the candidate's email or phone was
// seen within the window, matching spec.md §3 invariant 6: the window is
// enforced on created_at only, never on updates.
func (d *Deduplicator) Check(ctx context.Context, email, phone string) (existingID string, duplicate bool, err error) {
	if d.cache != nil {
		for _, key := range cacheKeys(email, phone) {
			if id, ok := d.cache.Seen(ctx, key); ok {
				return id, true, nil
			}
		}
	}

	since := d.clk.Now().Add(-d.window)
	existing, err := d.store.FindRecentByContact(ctx, email, phone, since)
	if err != nil {
		return "", false, err
	}
	if existing == nil {
		return "", false, nil
	}

	if d.cache != nil {
		for _, key := range cacheKeys(email, phone) {
			d.cache.Remember(ctx, key, existing.ID, d.window)
		}
	}
	return existing.ID, true, nil
}

func cacheKeys(email, phone string) []string {
	var keys []string
	if email != "" {
		keys = append(keys, "email:"+email)
	}
	if phone != "" {
		keys = append(keys, "phone:"+phone)
	}
	return keys
}
