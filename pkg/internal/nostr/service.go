package nostr

import (
	"context"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
)

// EventDraft is an unsigned event handed to Publish, which signs it, sends it
// and returns the confirmed event under its real id.
type EventDraft struct {
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	CreatedAt int64      `json:"created_at"`
}

// ConnectionStatus describes the relay pool as a whole.
type ConnectionStatus struct {
	IsConnected        bool     `json:"is_connected"`
	ConnectedEndpoints []string `json:"connected_endpoints"`
}

// Service is the relay/transport collaborator consumed by the engine. The
// engine never talks to the network except through this contract, which keeps
// every state container testable without a live relay.
type Service interface {
	// Query runs a one-shot bulk fetch across the connected relays.
	Query(ctx context.Context, filter models.Filter) ([]models.Event, error)

	// Subscribe opens a live subscription; the callback may fire from the
	// transport's read loop at any time until Unsubscribe.
	Subscribe(filter models.Filter, onEvent func(models.Event)) (string, error)

	// Unsubscribe is idempotent; unknown ids are a no-op.
	Unsubscribe(id string)

	// Publish signs the draft, sends it and returns the confirmed event,
	// or fails. A timeout surfaces as a failure, never as a hang.
	Publish(ctx context.Context, draft EventDraft) (models.Event, error)

	// GetProfile returns the kind-0 metadata for a pubkey, or nil when the
	// network has none.
	GetProfile(ctx context.Context, pubkey string) (*models.Profile, error)

	// GetInteractionCounts reports authoritative like/repost/reply counts
	// for the given post ids.
	GetInteractionCounts(ctx context.Context, postIDs []string) (map[string]models.NetworkInteractions, error)

	ConnectionStatus() ConnectionStatus
}
