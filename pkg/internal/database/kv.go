package database

import (
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
)

// KvStore exposes the persistence collaborator contract over the local
// sqlite cache: GetItem returns an empty string for missing keys.
type KvStore struct {
	db *gorm.DB
}

func NewKvStore(db *gorm.DB) *KvStore {
	return &KvStore{db: db}
}

func (v *KvStore) GetItem(key string) (string, error) {
	var entry models.KvEntry
	if err := v.db.Where("key = ?", key).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("unable to read kv entry: %v", err)
	}
	return string(entry.Value), nil
}

func (v *KvStore) SetItem(key, value string) error {
	entry := models.KvEntry{Key: key, Value: datatypes.JSON(value)}
	return v.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

// SaveProfile upserts a locally cached profile copy.
func (v *KvStore) SaveProfile(profile models.Profile) error {
	record := models.CachedProfile{
		PubKey:  profile.PubKey,
		Name:    profile.Name,
		About:   profile.About,
		Picture: profile.Picture,
		Nip05:   profile.Nip05,
	}
	return v.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pub_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "about", "picture", "nip05", "updated_at"}),
	}).Create(&record).Error
}

// LoadProfile returns the cached profile for a pubkey, or nil when absent.
func (v *KvStore) LoadProfile(pubkey string) (*models.Profile, error) {
	var record models.CachedProfile
	if err := v.db.Where("pub_key = ?", pubkey).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to read cached profile: %v", err)
	}
	return &models.Profile{
		PubKey:  record.PubKey,
		Name:    record.Name,
		About:   record.About,
		Picture: record.Picture,
		Nip05:   record.Nip05,
	}, nil
}
