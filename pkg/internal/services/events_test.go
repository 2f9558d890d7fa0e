package services

import (
	"reflect"
	"testing"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
)

func TestInsertIsIdempotent(t *testing.T) {
	store := NewEventStore(0)
	evt := fakeEvent(0x01, 0xa1, models.KindTextNote, 100, nil, "hello")

	if !store.Insert(evt) {
		t.Fatal("first insert should report new")
	}
	if store.Insert(evt) {
		t.Fatal("second insert of the same id should report not-new")
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 event, got %d", store.Len())
	}
}

func TestInsertRejectsMalformedEvents(t *testing.T) {
	store := NewEventStore(0)

	missingID := fakeEvent(0x01, 0xa1, models.KindTextNote, 100, nil, "x")
	missingID.ID = "short"
	if store.Insert(missingID) {
		t.Fatal("event with a malformed id should be rejected")
	}

	zeroTime := fakeEvent(0x02, 0xa1, models.KindTextNote, 0, nil, "x")
	if store.Insert(zeroTime) {
		t.Fatal("event without a timestamp should be rejected")
	}

	badSig := fakeEvent(0x03, 0xa1, models.KindTextNote, 100, nil, "x")
	badSig.Sig = "zz"
	if store.Insert(badSig) {
		t.Fatal("event with a malformed signature should be rejected")
	}

	if store.Len() != 0 {
		t.Fatalf("rejected events must not be stored, got %d", store.Len())
	}
}

func TestSnapshotOrderIgnoresInsertionOrder(t *testing.T) {
	early := fakeEvent(0x0a, 0xa1, models.KindTextNote, 100, nil, "early")
	tiedLow := fakeEvent(0x0b, 0xa2, models.KindTextNote, 200, nil, "tied low id")
	tiedHigh := fakeEvent(0x0c, 0xa3, models.KindTextNote, 200, nil, "tied high id")

	first := NewEventStore(0)
	first.Merge([]models.Event{early, tiedLow, tiedHigh})

	second := NewEventStore(0)
	second.Merge([]models.Event{tiedHigh, early, tiedLow})

	query := SnapshotQuery{Kinds: []int{models.KindTextNote}}
	if !reflect.DeepEqual(first.Snapshot(query), second.Snapshot(query)) {
		t.Fatal("snapshots should be identical regardless of insertion order")
	}

	got := first.Snapshot(query)
	wantIDs := []string{early.ID, tiedLow.ID, tiedHigh.ID}
	for i, evt := range got {
		if evt.ID != wantIDs[i] {
			t.Fatalf("position %d: got %s, want %s", i, evt.ID, wantIDs[i])
		}
	}
}

func TestSnapshotFiltersAndLimits(t *testing.T) {
	store := NewEventStore(0)
	store.Merge([]models.Event{
		fakeEvent(0x01, 0xa1, models.KindTextNote, 100, nil, "note"),
		fakeEvent(0x02, 0xa1, models.KindReaction, 110, nil, "+"),
		fakeEvent(0x03, 0xa2, models.KindTextNote, 120, nil, "other author"),
	})

	byKind := store.Snapshot(SnapshotQuery{Kinds: []int{models.KindTextNote}})
	if len(byKind) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(byKind))
	}

	byAuthor := store.Snapshot(SnapshotQuery{Authors: []string{fakeID(0xa1)}})
	if len(byAuthor) != 2 {
		t.Fatalf("expected 2 events by author, got %d", len(byAuthor))
	}

	newest := store.Snapshot(SnapshotQuery{Descending: true, Limit: 1})
	if len(newest) != 1 || newest[0].ID != fakeID(0x03) {
		t.Fatal("descending limit 1 should return only the newest event")
	}
}

func TestMergeReportsOnlyNewEvents(t *testing.T) {
	store := NewEventStore(0)
	evt := fakeEvent(0x01, 0xa1, models.KindTextNote, 100, nil, "x")

	if got := store.Merge([]models.Event{evt, evt}); got != 1 {
		t.Fatalf("expected 1 new event from duplicate batch, got %d", got)
	}
	if got := store.Merge([]models.Event{evt}); got != 0 {
		t.Fatalf("expected 0 new events on replay, got %d", got)
	}
}

func TestEvictOldestHonorsRetentionCap(t *testing.T) {
	store := NewEventStore(2)
	store.Merge([]models.Event{
		fakeEvent(0x01, 0xa1, models.KindTextNote, 100, nil, "oldest"),
		fakeEvent(0x02, 0xa1, models.KindTextNote, 200, nil, "middle"),
		fakeEvent(0x03, 0xa1, models.KindTextNote, 300, nil, "newest"),
	})

	if dropped := store.EvictOldest(); dropped != 1 {
		t.Fatalf("expected 1 eviction, got %d", dropped)
	}
	if store.Has(fakeID(0x01)) {
		t.Fatal("the oldest event should have been evicted")
	}
	if !store.Has(fakeID(0x02)) || !store.Has(fakeID(0x03)) {
		t.Fatal("newer events must survive eviction")
	}
	if dropped := store.EvictOldest(); dropped != 0 {
		t.Fatalf("store under cap should evict nothing, got %d", dropped)
	}
}
