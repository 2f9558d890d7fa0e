package services

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/pemistahl/lingua-go"
	"github.com/rs/zerolog/log"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
	"github.com/nocturnehq/nocturne/pkg/internal/nostr"
)

// EntitySource is the slice of the relay collaborator needed to resolve
// inline citations.
type EntitySource interface {
	GetProfile(ctx context.Context, pubkey string) (*models.Profile, error)
	Query(ctx context.Context, filter models.Filter) ([]models.Event, error)
}

var referencePattern = regexp.MustCompile(`(?:nostr:|@)((?:npub|nprofile|note|nevent)1[02-9ac-hj-np-z]+)`)

// ReferenceResolver extracts inline entity citations (user mentions, post
// citations) from event content and resolves them against cached entities,
// fetching lazily. A reference that cannot be fetched or decoded resolves to
// a tombstone so one bad citation never blocks the surrounding content.
type ReferenceResolver struct {
	source EntitySource
	store  *EventStore

	mu   sync.Mutex
	memo map[string]models.ResolvedReference

	marshal  *marshaler.Marshaler
	detector lingua.LanguageDetector
}

func NewReferenceResolver(source EntitySource, events *EventStore, cacheStore store.StoreInterface) *ReferenceResolver {
	resolver := &ReferenceResolver{
		source: source,
		store:  events,
		memo:   make(map[string]models.ResolvedReference),
		detector: lingua.NewLanguageDetectorBuilder().FromLanguages(
			lingua.English,
			lingua.Spanish,
			lingua.Portuguese,
			lingua.French,
			lingua.German,
			lingua.Japanese,
			lingua.Korean,
			lingua.Chinese,
		).Build(),
	}
	if cacheStore != nil {
		resolver.marshal = marshaler.New(cache.New[any](cacheStore))
	}
	return resolver
}

// ParseReferences scans content for citation markers and returns them in
// order with their byte offsets. Parsing never fetches anything.
func (v *ReferenceResolver) ParseReferences(content string) []models.Reference {
	matches := referencePattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return nil
	}

	out := make([]models.Reference, 0, len(matches))
	for _, match := range matches {
		entity := content[match[2]:match[3]]
		out = append(out, models.Reference{
			Type:       referenceTypeOf(entity),
			Data:       entity,
			StartIndex: match[0],
			EndIndex:   match[1],
		})
	}
	return out
}

func referenceTypeOf(entity string) models.ReferenceType {
	switch {
	case strings.HasPrefix(entity, "npub1"), strings.HasPrefix(entity, "nprofile1"):
		return models.ReferenceUser
	case strings.HasPrefix(entity, "note1"):
		return models.ReferenceNote
	default:
		return models.ReferenceEvent
	}
}

// Resolve returns the entity behind a citation, memoized per reference key so
// repeated renders of the same content never re-issue the same fetch.
func (v *ReferenceResolver) Resolve(ctx context.Context, ref models.Reference) models.ResolvedReference {
	v.mu.Lock()
	if hit, ok := v.memo[ref.Data]; ok {
		v.mu.Unlock()
		hit.Reference = ref
		return hit
	}
	v.mu.Unlock()

	if v.marshal != nil {
		if hit, err := v.marshal.Get(ctx, cacheKeyFor(ref), new(models.ResolvedReference)); err == nil {
			resolved := *hit.(*models.ResolvedReference)
			v.remember(ref.Data, resolved)
			resolved.Reference = ref
			return resolved
		}
	}

	resolved := v.lookup(ctx, ref)
	v.remember(ref.Data, resolved)
	if v.marshal != nil {
		_ = v.marshal.Set(ctx, cacheKeyFor(ref), resolved,
			store.WithExpiration(30*time.Minute),
			store.WithTags([]string{"reference"}),
		)
	}

	resolved.Reference = ref
	return resolved
}

func cacheKeyFor(ref models.Reference) string {
	return "reference#" + ref.Data
}

func (v *ReferenceResolver) remember(key string, resolved models.ResolvedReference) {
	v.mu.Lock()
	v.memo[key] = resolved
	v.mu.Unlock()
}

func (v *ReferenceResolver) lookup(ctx context.Context, ref models.Reference) models.ResolvedReference {
	tombstone := models.ResolvedReference{Reference: ref, Unavailable: true}

	prefix, value, err := nostr.DecodeEntity(ref.Data)
	if err != nil {
		log.Debug().Err(err).Str("entity", ref.Data).Msg("Skipped undecodable reference.")
		return tombstone
	}

	switch prefix {
	case "npub", "nprofile":
		profile, err := v.source.GetProfile(ctx, value)
		if err != nil || profile == nil {
			if err != nil {
				log.Warn().Err(err).Str("pubkey", value).Msg("An error occurred when resolving mentioned profile.")
			}
			return tombstone
		}
		return models.ResolvedReference{Reference: ref, Profile: profile}
	default:
		if evt, ok := v.store.Get(value); ok {
			return models.ResolvedReference{Reference: ref, Event: &evt}
		}
		events, err := v.source.Query(ctx, models.Filter{IDs: []string{value}, Limit: 1})
		if err != nil || len(events) == 0 {
			if err != nil {
				log.Warn().Err(err).Str("id", value).Msg("An error occurred when resolving cited event.")
			}
			return tombstone
		}
		cited := events[0]
		v.store.Insert(cited)
		return models.ResolvedReference{Reference: ref, Event: &cited}
	}
}

// DetectLanguage reports the ISO 639-1 code of the content's language, or an
// empty string when detection is inconclusive.
func (v *ReferenceResolver) DetectLanguage(content string) string {
	if len(strings.TrimSpace(content)) == 0 {
		return ""
	}
	language, ok := v.detector.DetectLanguageOf(content)
	if !ok {
		return ""
	}
	return strings.ToLower(language.IsoCode639_1().String())
}
