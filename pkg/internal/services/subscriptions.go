package services

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
)

// LiveSource is the slice of the relay collaborator the router needs.
type LiveSource interface {
	Subscribe(filter models.Filter, onEvent func(models.Event)) (string, error)
	Unsubscribe(id string)
}

type FeedState = int8

const (
	FeedIdle = FeedState(iota)
	FeedSubscribing
	FeedLive
	FeedClosed
)

// SubscriptionHandle identifies one local listener on a logical feed.
type SubscriptionHandle struct {
	id      string
	feedKey string
	closed  bool
}

// SubscriptionRouter binds logical feeds to upstream subscriptions. Exactly
// one upstream subscription exists per logical feed no matter how many local
// listeners attach; fan-out happens here. Close is idempotent because
// teardown can race with component lifecycle in the consuming UI.
type SubscriptionRouter struct {
	mu     sync.Mutex
	source LiveSource
	feeds  map[string]*routedFeed
}

type routedFeed struct {
	key        string
	state      FeedState
	upstreamID string
	handlers   map[string]func(models.Event)
}

func NewSubscriptionRouter(source LiveSource) *SubscriptionRouter {
	return &SubscriptionRouter{
		source: source,
		feeds:  make(map[string]*routedFeed),
	}
}

// feedKey derives a stable identity for a logical feed from its filter.
func feedKey(filter models.Filter) string {
	normalized := filter
	normalized.IDs = sortedCopy(filter.IDs)
	normalized.Authors = sortedCopy(filter.Authors)
	normalized.ETags = sortedCopy(filter.ETags)
	normalized.PTags = sortedCopy(filter.PTags)
	normalized.Kinds = append([]int(nil), filter.Kinds...)
	sort.Ints(normalized.Kinds)

	raw, _ := json.MarshalToString(normalized)
	return raw
}

func sortedCopy(in []string) []string {
	if in == nil {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

// Open attaches a listener to the logical feed described by the filter,
// opening the single upstream subscription if this is the first listener.
func (v *SubscriptionRouter) Open(filter models.Filter, onEvent func(models.Event)) (*SubscriptionHandle, error) {
	key := feedKey(filter)
	handle := &SubscriptionHandle{id: uuid.NewString(), feedKey: key}

	v.mu.Lock()
	if feed, ok := v.feeds[key]; ok {
		feed.handlers[handle.id] = onEvent
		v.mu.Unlock()
		return handle, nil
	}

	feed := &routedFeed{
		key:      key,
		state:    FeedSubscribing,
		handlers: map[string]func(models.Event){handle.id: onEvent},
	}
	v.feeds[key] = feed
	v.mu.Unlock()

	upstreamID, err := v.source.Subscribe(filter, func(evt models.Event) {
		v.dispatch(key, evt)
	})

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		delete(v.feeds, key)
		return nil, fmt.Errorf("unable to open subscription: %v", err)
	}
	if feed.state == FeedClosed {
		// A racing Close won; tear the fresh upstream down again.
		v.source.Unsubscribe(upstreamID)
		delete(v.feeds, key)
		return nil, fmt.Errorf("subscription closed while opening")
	}
	feed.upstreamID = upstreamID

	return handle, nil
}

func (v *SubscriptionRouter) dispatch(key string, evt models.Event) {
	v.mu.Lock()
	feed, ok := v.feeds[key]
	if !ok {
		v.mu.Unlock()
		return
	}
	if feed.state == FeedSubscribing {
		feed.state = FeedLive
	}
	handlers := make([]func(models.Event), 0, len(feed.handlers))
	for _, handler := range feed.handlers {
		handlers = append(handlers, handler)
	}
	v.mu.Unlock()

	for _, handler := range handlers {
		handler(evt)
	}
}

// Close detaches a listener. Closing a nil, unknown or already-closed handle
// is a no-op, not an error. The upstream subscription is torn down when the
// last listener leaves.
func (v *SubscriptionRouter) Close(handle *SubscriptionHandle) {
	if handle == nil {
		return
	}

	v.mu.Lock()
	if handle.closed {
		v.mu.Unlock()
		return
	}
	handle.closed = true

	feed, ok := v.feeds[handle.feedKey]
	if !ok {
		v.mu.Unlock()
		return
	}
	delete(feed.handlers, handle.id)
	if len(feed.handlers) > 0 {
		v.mu.Unlock()
		return
	}

	feed.state = FeedClosed
	upstreamID := feed.upstreamID
	delete(v.feeds, handle.feedKey)
	v.mu.Unlock()

	if len(upstreamID) > 0 {
		v.source.Unsubscribe(upstreamID)
	}
	log.Debug().Str("feed", handle.feedKey).Msg("Subscription feed closed.")
}

// FeedStatus reports the lifecycle state of the logical feed for a filter;
// feeds nobody has opened are Idle.
func (v *SubscriptionRouter) FeedStatus(filter models.Filter) FeedState {
	v.mu.Lock()
	defer v.mu.Unlock()

	if feed, ok := v.feeds[feedKey(filter)]; ok {
		return feed.state
	}
	return FeedIdle
}

// ListenerCount reports how many local handlers are attached to the feed.
func (v *SubscriptionRouter) ListenerCount(filter models.Filter) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	if feed, ok := v.feeds[feedKey(filter)]; ok {
		return len(feed.handlers)
	}
	return 0
}
