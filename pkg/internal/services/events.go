package services

import (
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
)

var validate = validator.New()

// SnapshotQuery narrows and orders a snapshot. Direction is the caller's
// choice: ascending for chat transcripts, descending for feeds.
type SnapshotQuery struct {
	Kinds      []int
	Authors    []string
	Match      func(models.Event) bool
	Descending bool
	Limit      int
}

// EventStore is the ordered, deduplicated working set of protocol events,
// keyed by event id. The same event routinely arrives more than once (bulk
// query plus live subscription, or two relays); insertion is idempotent so
// whichever delivery wins the race is harmless.
type EventStore struct {
	mu           sync.RWMutex
	events       map[string]models.Event
	retentionCap int
}

// NewEventStore creates a store keeping at most retentionCap events; zero or
// negative means unbounded.
func NewEventStore(retentionCap int) *EventStore {
	return &EventStore{
		events:       make(map[string]models.Event),
		retentionCap: retentionCap,
	}
}

// Insert adds one event and reports whether it was new. Malformed events are
// rejected at this boundary and logged, never stored. A duplicate id returns
// false with no mutation.
func (v *EventStore) Insert(evt models.Event) bool {
	if err := validate.Struct(evt); err != nil {
		log.Warn().Err(err).Str("id", evt.ID).Msg("Rejected malformed event.")
		return false
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, exists := v.events[evt.ID]; exists {
		return false
	}
	v.events[evt.ID] = evt
	return true
}

// Merge inserts a batch and returns how many were actually new.
func (v *EventStore) Merge(events []models.Event) int {
	inserted := 0
	for _, evt := range events {
		if v.Insert(evt) {
			inserted++
		}
	}
	return inserted
}

func (v *EventStore) Has(id string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.events[id]
	return ok
}

// Get returns the event with the given id, if present.
func (v *EventStore) Get(id string) (models.Event, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	evt, ok := v.events[id]
	return evt, ok
}

func (v *EventStore) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.events)
}

// Snapshot returns a filtered copy sorted by created_at, ties broken by id so
// the order is identical regardless of insertion order.
func (v *EventStore) Snapshot(query SnapshotQuery) []models.Event {
	v.mu.RLock()
	out := make([]models.Event, 0, len(v.events))
	for _, evt := range v.events {
		if !matchesQuery(evt, query) {
			continue
		}
		out = append(out, evt)
	}
	v.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt == out[j].CreatedAt {
			if query.Descending {
				return out[i].ID > out[j].ID
			}
			return out[i].ID < out[j].ID
		}
		if query.Descending {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].CreatedAt < out[j].CreatedAt
	})

	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out
}

func matchesQuery(evt models.Event, query SnapshotQuery) bool {
	if len(query.Kinds) > 0 {
		matched := false
		for _, kind := range query.Kinds {
			if kind == evt.Kind {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if len(query.Authors) > 0 {
		matched := false
		for _, author := range query.Authors {
			if author == evt.PubKey {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if query.Match != nil && !query.Match(evt) {
		return false
	}
	return true
}

// EvictOldest drops the oldest events by created_at until the store is back
// under its retention cap, returning how many were dropped.
func (v *EventStore) EvictOldest() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.retentionCap <= 0 || len(v.events) <= v.retentionCap {
		return 0
	}

	all := make([]models.Event, 0, len(v.events))
	for _, evt := range v.events {
		all = append(all, evt)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt == all[j].CreatedAt {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt < all[j].CreatedAt
	})

	overflow := len(all) - v.retentionCap
	for _, evt := range all[:overflow] {
		delete(v.events, evt.ID)
	}
	return overflow
}
