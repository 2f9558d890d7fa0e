package models

import (
	"time"

	"gorm.io/datatypes"
)

// KvEntry backs the persistence collaborator: a plain key/value table used to
// seed the local like/repost caches before network data arrives.
type KvEntry struct {
	Key       string         `json:"key" gorm:"primaryKey"`
	Value     datatypes.JSON `json:"value"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CachedProfile is a locally persisted copy of kind-0 metadata so contact
// names render before the first profile query completes.
type CachedProfile struct {
	PubKey    string    `json:"pubkey" gorm:"primaryKey"`
	Name      string    `json:"name"`
	About     string    `json:"about"`
	Picture   string    `json:"picture"`
	Nip05     string    `json:"nip05"`
	UpdatedAt time.Time `json:"updated_at"`
}
