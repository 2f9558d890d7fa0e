package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
)

// ProfileFetcher is the slice of the relay collaborator that loads metadata.
type ProfileFetcher interface {
	GetProfile(ctx context.Context, pubkey string) (*models.Profile, error)
}

// ProfileCache is the durable local copy of profiles already seen, so known
// names render before (or without) a relay round trip.
type ProfileCache interface {
	SaveProfile(profile models.Profile) error
	LoadProfile(pubkey string) (*models.Profile, error)
}

// ProfileDirectory answers profile lookups local-first and keeps the cache
// warm with whatever the network returns.
type ProfileDirectory struct {
	source ProfileFetcher
	cache  ProfileCache
}

func NewProfileDirectory(source ProfileFetcher, cache ProfileCache) *ProfileDirectory {
	return &ProfileDirectory{source: source, cache: cache}
}

// Get returns the freshest profile available for a pubkey, or nil when the
// key has never published metadata. A network failure falls back to the
// cached copy instead of surfacing an error for a cosmetic lookup.
func (v *ProfileDirectory) Get(ctx context.Context, pubkey string) (*models.Profile, error) {
	profile, err := v.source.GetProfile(ctx, pubkey)
	if err == nil && profile != nil {
		if v.cache != nil {
			if err := v.cache.SaveProfile(*profile); err != nil {
				log.Warn().Err(err).Str("pubkey", pubkey).Msg("An error occurred when caching profile.")
			}
		}
		return profile, nil
	}

	if v.cache != nil {
		if cached, cacheErr := v.cache.LoadProfile(pubkey); cacheErr == nil && cached != nil {
			return cached, nil
		}
	}
	return profile, err
}
