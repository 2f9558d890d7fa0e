package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
)

const (
	testNpub = "npub1424242424242424242424242424242424242424242424242424qamrcaj"
	testNote = "note1hwamhwamhwamhwamhwamhwamhwamhwamhwamhwamhwamhwamhwashyvgw5"
)

// testNpub encodes the pubkey aa…aa, testNote the event id bb…bb.

type fakeEntitySource struct {
	profiles     map[string]*models.Profile
	events       map[string]models.Event
	profileCalls int
	queryCalls   int
	err          error
}

func (v *fakeEntitySource) GetProfile(_ context.Context, pubkey string) (*models.Profile, error) {
	v.profileCalls++
	if v.err != nil {
		return nil, v.err
	}
	return v.profiles[pubkey], nil
}

func (v *fakeEntitySource) Query(_ context.Context, filter models.Filter) ([]models.Event, error) {
	v.queryCalls++
	if v.err != nil {
		return nil, v.err
	}
	var out []models.Event
	for _, id := range filter.IDs {
		if evt, ok := v.events[id]; ok {
			out = append(out, evt)
		}
	}
	return out, nil
}

func TestParseReferencesReportsOffsets(t *testing.T) {
	resolver := NewReferenceResolver(&fakeEntitySource{}, NewEventStore(0), nil)

	content := "hey nostr:" + testNpub + " look at @" + testNote + " !"
	refs := resolver.ParseReferences(content)
	if len(refs) != 2 {
		t.Fatalf("expected 2 references, got %d", len(refs))
	}

	if refs[0].Type != models.ReferenceUser || refs[0].Data != testNpub {
		t.Fatalf("first reference wrong: %+v", refs[0])
	}
	if want := strings.Index(content, "nostr:"); refs[0].StartIndex != want {
		t.Fatalf("first start index %d, want %d", refs[0].StartIndex, want)
	}
	if want := strings.Index(content, testNpub) + len(testNpub); refs[0].EndIndex != want {
		t.Fatalf("first end index %d, want %d", refs[0].EndIndex, want)
	}

	if refs[1].Type != models.ReferenceNote || refs[1].Data != testNote {
		t.Fatalf("second reference wrong: %+v", refs[1])
	}

	if got := resolver.ParseReferences("plain text without citations"); got != nil {
		t.Fatalf("expected no references, got %v", got)
	}
}

func TestResolveFetchesEachEntityOnce(t *testing.T) {
	pubkey := fakeID(0xaa)
	source := &fakeEntitySource{
		profiles: map[string]*models.Profile{
			pubkey: {PubKey: pubkey, Name: "alice"},
		},
	}
	resolver := NewReferenceResolver(source, NewEventStore(0), nil)

	ref := models.Reference{Type: models.ReferenceUser, Data: testNpub}

	first := resolver.Resolve(context.Background(), ref)
	if first.Unavailable || first.Profile == nil || first.Profile.Name != "alice" {
		t.Fatalf("expected resolved profile, got %+v", first)
	}

	second := resolver.Resolve(context.Background(), ref)
	if second.Profile == nil || second.Profile.Name != "alice" {
		t.Fatalf("expected cached profile, got %+v", second)
	}
	if source.profileCalls != 1 {
		t.Fatalf("the same entity must be fetched exactly once, got %d calls", source.profileCalls)
	}
}

func TestResolvePrefersLocalEventStore(t *testing.T) {
	cited := fakeEvent(0xbb, 0xa1, models.KindTextNote, 100, nil, "already here")
	store := NewEventStore(0)
	store.Insert(cited)

	source := &fakeEntitySource{}
	resolver := NewReferenceResolver(source, store, nil)

	resolved := resolver.Resolve(context.Background(), models.Reference{
		Type: models.ReferenceNote,
		Data: testNote,
	})
	if resolved.Event == nil || resolved.Event.ID != cited.ID {
		t.Fatalf("expected the stored event, got %+v", resolved)
	}
	if source.queryCalls != 0 {
		t.Fatal("an event already in the store must not trigger a network fetch")
	}
}

func TestResolveUnavailableBecomesTombstone(t *testing.T) {
	source := &fakeEntitySource{err: errors.New("relay down")}
	resolver := NewReferenceResolver(source, NewEventStore(0), nil)

	ref := models.Reference{Type: models.ReferenceUser, Data: testNpub}

	resolved := resolver.Resolve(context.Background(), ref)
	if !resolved.Unavailable {
		t.Fatalf("failed lookup should resolve to a tombstone, got %+v", resolved)
	}

	resolver.Resolve(context.Background(), ref)
	if source.profileCalls != 1 {
		t.Fatalf("tombstones must be memoized too, got %d calls", source.profileCalls)
	}

	undecodable := resolver.Resolve(context.Background(), models.Reference{
		Type: models.ReferenceNote,
		Data: "note1notarealentity",
	})
	if !undecodable.Unavailable {
		t.Fatal("an undecodable entity should resolve to a tombstone")
	}
}

func TestDetectLanguage(t *testing.T) {
	resolver := NewReferenceResolver(&fakeEntitySource{}, NewEventStore(0), nil)

	if got := resolver.DetectLanguage("the quick brown fox jumps over the lazy dog"); got != "en" {
		t.Fatalf("expected en, got %q", got)
	}
	if got := resolver.DetectLanguage("   "); got != "" {
		t.Fatalf("blank content should be inconclusive, got %q", got)
	}
}
