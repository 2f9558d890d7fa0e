package services

import (
	"context"
	"fmt"

	"github.com/eko/gocache/lib/v4/store"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
	"github.com/nocturnehq/nocturne/pkg/internal/nostr"
)

// Session owns the shared state containers for one signed-in user and wires
// them to the relay collaborator. Views consume the session; they never own
// state of their own.
type Session struct {
	Service       nostr.Service
	Store         *EventStore
	Reconciler    *InteractionReconciler
	Actions       *OptimisticActionManager
	Router        *SubscriptionRouter
	Conversations *ConversationService
	Feed          *FeedService
	Publish       *PublishService
	References    *ReferenceResolver
	Profiles      *ProfileDirectory

	selfKey string
	handles []*SubscriptionHandle
}

func NewSession(svc nostr.Service, kv KV, profileCache ProfileCache, cacheStore store.StoreInterface, selfKey string, retentionCap int) *Session {
	events := NewEventStore(retentionCap)
	reconciler := NewInteractionReconciler(kv)
	actions := NewOptimisticActionManager()
	references := NewReferenceResolver(svc, events, cacheStore)

	return &Session{
		Service:       svc,
		Store:         events,
		Reconciler:    reconciler,
		Actions:       actions,
		Router:        NewSubscriptionRouter(svc),
		Conversations: NewConversationService(events, actions, svc, selfKey),
		Feed:          NewFeedService(events, reconciler, actions, references, selfKey),
		Publish:       NewPublishService(events, reconciler, actions, svc, selfKey),
		References:    references,
		Profiles:      NewProfileDirectory(svc, profileCache),
		selfKey:       selfKey,
	}
}

// Bootstrap backfills the working set with bulk queries and opens the live
// subscriptions. Backfilled messages merge straight into the store so they
// never count as unread; only live deliveries do.
func (v *Session) Bootstrap(ctx context.Context) error {
	contacts, err := v.Service.Query(ctx, models.Filter{
		Authors: []string{v.selfKey},
		Kinds:   []int{models.KindContactList},
		Limit:   1,
	})
	if err != nil {
		return fmt.Errorf("unable to load contact list: %v", err)
	}
	v.Store.Merge(contacts)

	followed := lo.Keys(v.Feed.FollowedAuthors())

	posts, err := v.Service.Query(ctx, models.Filter{
		Authors: followed,
		Kinds:   []int{models.KindTextNote, models.KindRepost},
		Limit:   200,
	})
	if err != nil {
		return fmt.Errorf("unable to backfill feed: %v", err)
	}
	v.Store.Merge(posts)

	for _, filter := range v.messageFilters() {
		history, err := v.Service.Query(ctx, filter)
		if err != nil {
			log.Warn().Err(err).Msg("An error occurred when backfilling direct messages.")
			continue
		}
		v.Store.Merge(history)
	}

	if err := v.RefreshInteractions(ctx); err != nil {
		log.Warn().Err(err).Msg("An error occurred when loading interaction counts.")
	}

	feedFilter := models.Filter{
		Authors: followed,
		Kinds:   []int{models.KindTextNote, models.KindRepost, models.KindReaction},
	}
	handle, err := v.Router.Open(feedFilter, func(evt models.Event) {
		v.Store.Insert(evt)
	})
	if err != nil {
		return err
	}
	v.handles = append(v.handles, handle)

	for _, filter := range v.messageFilters() {
		handle, err := v.Router.Open(filter, func(evt models.Event) {
			v.Conversations.IngestMessage(evt)
		})
		if err != nil {
			return err
		}
		v.handles = append(v.handles, handle)
	}

	return nil
}

// messageFilters covers both directions of the user's direct messages.
func (v *Session) messageFilters() []models.Filter {
	return []models.Filter{
		{Kinds: []int{models.KindDirectMessage}, PTags: []string{v.selfKey}},
		{Kinds: []int{models.KindDirectMessage}, Authors: []string{v.selfKey}},
	}
}

// RefreshInteractions pulls authoritative counters for every root currently
// in the working set and reconciles them.
func (v *Session) RefreshInteractions(ctx context.Context) error {
	roots := lo.FilterMap(
		v.Store.Snapshot(SnapshotQuery{Kinds: []int{models.KindTextNote}}),
		func(evt models.Event, _ int) (string, bool) {
			_, isReply := evt.ReplyTo()
			return evt.ID, !isReply
		},
	)
	if len(roots) == 0 {
		return nil
	}

	counts, err := v.Service.GetInteractionCounts(ctx, roots)
	if err != nil {
		return err
	}
	for postID, report := range counts {
		v.Reconciler.RecordNetworkCounts(postID, report)
	}
	return nil
}

// Cleanup evicts events beyond the retention cap; scheduled from main.
func (v *Session) Cleanup() {
	if dropped := v.Store.EvictOldest(); dropped > 0 {
		log.Info().Int("dropped", dropped).Msg("Evicted events over retention cap.")
	}
}

// Shutdown closes the live subscriptions. In-flight optimistic actions are
// deliberately left alone: they still resolve into shared state so the view
// is consistent when the user returns.
func (v *Session) Shutdown() {
	for _, handle := range v.handles {
		v.Router.Close(handle)
	}
	v.handles = nil
}
