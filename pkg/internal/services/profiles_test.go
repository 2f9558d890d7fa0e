package services

import (
	"context"
	"errors"
	"testing"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
)

type memoryProfileCache struct {
	profiles map[string]models.Profile
}

func (v *memoryProfileCache) SaveProfile(profile models.Profile) error {
	if v.profiles == nil {
		v.profiles = make(map[string]models.Profile)
	}
	v.profiles[profile.PubKey] = profile
	return nil
}

func (v *memoryProfileCache) LoadProfile(pubkey string) (*models.Profile, error) {
	if profile, ok := v.profiles[pubkey]; ok {
		return &profile, nil
	}
	return nil, nil
}

func TestProfileDirectoryWarmsTheCache(t *testing.T) {
	pubkey := fakeID(0xa1)
	source := &fakeEntitySource{
		profiles: map[string]*models.Profile{
			pubkey: {PubKey: pubkey, Name: "alice"},
		},
	}
	cache := &memoryProfileCache{}
	directory := NewProfileDirectory(source, cache)

	profile, err := directory.Get(context.Background(), pubkey)
	if err != nil || profile == nil || profile.Name != "alice" {
		t.Fatalf("expected the network profile, got %+v err=%v", profile, err)
	}
	if _, ok := cache.profiles[pubkey]; !ok {
		t.Fatal("a fetched profile should be written to the cache")
	}
}

func TestProfileDirectoryFallsBackToCache(t *testing.T) {
	pubkey := fakeID(0xa1)
	cache := &memoryProfileCache{}
	cache.SaveProfile(models.Profile{PubKey: pubkey, Name: "cached alice"})

	directory := NewProfileDirectory(&fakeEntitySource{err: errors.New("relay down")}, cache)

	profile, err := directory.Get(context.Background(), pubkey)
	if err != nil || profile == nil || profile.Name != "cached alice" {
		t.Fatalf("expected the cached copy on network failure, got %+v err=%v", profile, err)
	}
}
