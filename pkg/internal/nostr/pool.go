package nostr

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
)

const defaultQueryWait = 5 * time.Second

var ErrPublishFailed = fmt.Errorf("publish rejected or timed out")

// RelayPool talks NIP-01 to a set of independent relays and implements
// Service on top of them. Different relays may deliver the same event; the
// pool deduplicates per subscription, and invalid-signature events are
// dropped at this boundary before the engine ever sees them.
type RelayPool struct {
	signer *Signer

	mu         sync.Mutex
	relays     map[string]*relayConn
	liveSubs   map[string]*liveSub
	collectors map[string]*queryCollector
	okWaiters  map[string]chan bool
}

type liveSub struct {
	filter  models.Filter
	onEvent func(models.Event)
	seen    map[string]bool
}

type queryCollector struct {
	events []models.Event
	seen   map[string]bool
	eose   map[string]bool
	want   int
	done   chan struct{}
	closed bool
}

func NewRelayPool(signer *Signer, urls []string) *RelayPool {
	pool := &RelayPool{
		signer:     signer,
		relays:     make(map[string]*relayConn),
		liveSubs:   make(map[string]*liveSub),
		collectors: make(map[string]*queryCollector),
		okWaiters:  make(map[string]chan bool),
	}

	handlers := relayHandlers{
		onEvent: pool.handleEvent,
		onEOSE:  pool.handleEOSE,
		onOK:    pool.handleOK,
	}

	for _, url := range urls {
		relay, err := dialRelay(url, handlers)
		if err != nil {
			log.Warn().Err(err).Str("relay", url).Msg("An error occurred when connecting to relay.")
			continue
		}
		pool.relays[url] = relay
		log.Info().Str("relay", url).Msg("Relay connected.")
	}

	return pool
}

func (v *RelayPool) handleEvent(relayURL, subID string, evt models.Event) {
	if !VerifyEvent(evt) {
		log.Warn().Str("relay", relayURL).Str("id", shortID(evt.ID)).Msg("Dropped event with invalid signature.")
		return
	}

	v.mu.Lock()
	if collector, ok := v.collectors[subID]; ok {
		if !collector.seen[evt.ID] {
			collector.seen[evt.ID] = true
			collector.events = append(collector.events, evt)
		}
		v.mu.Unlock()
		return
	}

	sub, ok := v.liveSubs[subID]
	if !ok || sub.seen[evt.ID] {
		v.mu.Unlock()
		return
	}
	sub.seen[evt.ID] = true
	callback := sub.onEvent
	v.mu.Unlock()

	callback(evt)
}

func (v *RelayPool) handleEOSE(relayURL, subID string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	collector, ok := v.collectors[subID]
	if !ok {
		return
	}
	collector.eose[relayURL] = true
	if len(collector.eose) >= collector.want && !collector.closed {
		collector.closed = true
		close(collector.done)
	}
}

func (v *RelayPool) handleOK(relayURL, eventID string, accepted bool, reason string) {
	if !accepted {
		log.Warn().Str("relay", relayURL).Str("id", shortID(eventID)).Str("reason", reason).Msg("Relay rejected event.")
	}

	v.mu.Lock()
	waiter, ok := v.okWaiters[eventID]
	v.mu.Unlock()
	if ok {
		select {
		case waiter <- accepted:
		default:
		}
	}
}

func (v *RelayPool) Query(ctx context.Context, filter models.Filter) ([]models.Event, error) {
	subID := uuid.NewString()

	v.mu.Lock()
	if len(v.relays) == 0 {
		v.mu.Unlock()
		return nil, fmt.Errorf("unable to query: no relay connected")
	}
	collector := &queryCollector{
		seen: make(map[string]bool),
		eose: make(map[string]bool),
		want: len(v.relays),
		done: make(chan struct{}),
	}
	v.collectors[subID] = collector
	relays := lo.Values(v.relays)
	v.mu.Unlock()

	for _, relay := range relays {
		if err := relay.subscribe(subID, filter); err != nil {
			log.Warn().Err(err).Str("relay", relay.url).Msg("An error occurred when sending query.")
		}
	}

	wait := time.NewTimer(defaultQueryWait)
	defer wait.Stop()
	select {
	case <-collector.done:
	case <-wait.C:
	case <-ctx.Done():
	}

	v.mu.Lock()
	delete(v.collectors, subID)
	events := collector.events
	v.mu.Unlock()

	for _, relay := range relays {
		_ = relay.unsubscribe(subID)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].CreatedAt == events[j].CreatedAt {
			return events[i].ID < events[j].ID
		}
		return events[i].CreatedAt < events[j].CreatedAt
	})

	return events, ctx.Err()
}

func (v *RelayPool) Subscribe(filter models.Filter, onEvent func(models.Event)) (string, error) {
	subID := uuid.NewString()

	v.mu.Lock()
	if len(v.relays) == 0 {
		v.mu.Unlock()
		return "", fmt.Errorf("unable to subscribe: no relay connected")
	}
	v.liveSubs[subID] = &liveSub{filter: filter, onEvent: onEvent, seen: make(map[string]bool)}
	relays := lo.Values(v.relays)
	v.mu.Unlock()

	for _, relay := range relays {
		if err := relay.subscribe(subID, filter); err != nil {
			log.Warn().Err(err).Str("relay", relay.url).Msg("An error occurred when opening subscription.")
		}
	}

	return subID, nil
}

func (v *RelayPool) Unsubscribe(id string) {
	v.mu.Lock()
	_, known := v.liveSubs[id]
	delete(v.liveSubs, id)
	relays := lo.Values(v.relays)
	v.mu.Unlock()

	if !known {
		return
	}
	for _, relay := range relays {
		_ = relay.unsubscribe(id)
	}
}

func (v *RelayPool) Publish(ctx context.Context, draft EventDraft) (models.Event, error) {
	if v.signer == nil {
		return models.Event{}, fmt.Errorf("unable to publish: no signing key configured")
	}
	if draft.CreatedAt == 0 {
		draft.CreatedAt = time.Now().Unix()
	}

	evt, err := v.signer.Sign(draft)
	if err != nil {
		return models.Event{}, err
	}

	waiter := make(chan bool, 1)
	v.mu.Lock()
	v.okWaiters[evt.ID] = waiter
	relays := lo.Values(v.relays)
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		delete(v.okWaiters, evt.ID)
		v.mu.Unlock()
	}()

	sent := 0
	for _, relay := range relays {
		if err := relay.publish(evt); err == nil {
			sent++
		}
	}
	if sent == 0 {
		return models.Event{}, ErrPublishFailed
	}

	wait := time.NewTimer(defaultQueryWait)
	defer wait.Stop()
	select {
	case accepted := <-waiter:
		if !accepted {
			return models.Event{}, ErrPublishFailed
		}
		return evt, nil
	case <-wait.C:
		return models.Event{}, ErrPublishFailed
	case <-ctx.Done():
		return models.Event{}, ErrPublishFailed
	}
}

func (v *RelayPool) GetProfile(ctx context.Context, pubkey string) (*models.Profile, error) {
	events, err := v.Query(ctx, models.Filter{
		Authors: []string{pubkey},
		Kinds:   []int{models.KindProfileMetadata},
		Limit:   1,
	})
	if err != nil && len(events) == 0 {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	// Metadata is replaceable; the newest one wins.
	latest := events[len(events)-1]
	var profile models.Profile
	if err := json.UnmarshalFromString(latest.Content, &profile); err != nil {
		return nil, fmt.Errorf("unable to parse profile metadata: %v", err)
	}
	profile.PubKey = pubkey
	return &profile, nil
}

func (v *RelayPool) GetInteractionCounts(ctx context.Context, postIDs []string) (map[string]models.NetworkInteractions, error) {
	queriedAt := time.Now().Unix()
	events, err := v.Query(ctx, models.Filter{
		Kinds: []int{models.KindTextNote, models.KindRepost, models.KindReaction},
		ETags: postIDs,
	})
	if err != nil && len(events) == 0 {
		return nil, err
	}

	selfKey := ""
	if v.signer != nil {
		selfKey = v.signer.PubKey()
	}

	out := make(map[string]models.NetworkInteractions, len(postIDs))
	for _, id := range postIDs {
		out[id] = models.NetworkInteractions{QueriedAt: queriedAt}
	}

	for _, evt := range events {
		target, ok := evt.ReplyTo()
		if !ok {
			continue
		}
		counts, tracked := out[target]
		if !tracked {
			continue
		}
		switch evt.Kind {
		case models.KindReaction:
			// "-" is a downvote reaction, not a like.
			if evt.Content == "-" {
				continue
			}
			counts.LikeCount++
			if evt.PubKey == selfKey {
				counts.UserLiked = true
			}
		case models.KindRepost:
			counts.RepostCount++
			if evt.PubKey == selfKey {
				counts.UserReposted = true
			}
		case models.KindTextNote:
			counts.ReplyCount++
		}
		out[target] = counts
	}

	return out, nil
}

func (v *RelayPool) ConnectionStatus() ConnectionStatus {
	v.mu.Lock()
	defer v.mu.Unlock()

	endpoints := lo.Keys(v.relays)
	sort.Strings(endpoints)
	return ConnectionStatus{
		IsConnected:        len(endpoints) > 0,
		ConnectedEndpoints: endpoints,
	}
}

func (v *RelayPool) Close() {
	v.mu.Lock()
	relays := lo.Values(v.relays)
	v.relays = make(map[string]*relayConn)
	v.mu.Unlock()

	for _, relay := range relays {
		relay.close()
	}
}

func shortID(id string) string {
	if len(id) >= 12 {
		return id[:12]
	}
	return id
}
