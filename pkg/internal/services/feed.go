package services

import (
	"sort"

	"github.com/samber/lo"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
)

// FeedEntry is one renderable unit of the followed-authors feed: a thread
// with its reconciled interaction counter attached.
type FeedEntry struct {
	Type      string                    `json:"type"`
	Thread    *models.ThreadNode        `json:"thread"`
	Counter   models.InteractionCounter `json:"counter"`
	Language  string                    `json:"language,omitempty"`
	CreatedAt int64                     `json:"created_at"`
}

// FeedService composes the derived views: the event store's snapshot run
// through the thread assembler, interaction counters layered on top, and
// pending optimistic actions overlaid last.
type FeedService struct {
	store      *EventStore
	reconciler *InteractionReconciler
	actions    *OptimisticActionManager
	references *ReferenceResolver
	selfKey    string
}

func NewFeedService(store *EventStore, reconciler *InteractionReconciler, actions *OptimisticActionManager, references *ReferenceResolver, selfKey string) *FeedService {
	return &FeedService{
		store:      store,
		reconciler: reconciler,
		actions:    actions,
		references: references,
		selfKey:    selfKey,
	}
}

// FollowedAuthors derives the followed set from the newest contact-list
// event the user has published. The user always follows themselves.
func (v *FeedService) FollowedAuthors() map[string]bool {
	followed := map[string]bool{v.selfKey: true}

	lists := v.store.Snapshot(SnapshotQuery{
		Kinds:      []int{models.KindContactList},
		Authors:    []string{v.selfKey},
		Descending: true,
		Limit:      1,
	})
	if len(lists) == 0 {
		return followed
	}

	for _, key := range lists[0].MentionedKeys() {
		followed[key] = true
	}
	return followed
}

// BuildFeed assembles the followed-authors feed, newest roots first. Threads
// rooted at an unfetched event are kept with a nil original so the renderer
// can degrade instead of dropping replies.
func (v *FeedService) BuildFeed(limit int) []FeedEntry {
	followed := v.FollowedAuthors()

	events := v.store.Snapshot(SnapshotQuery{Kinds: []int{models.KindTextNote}})
	threads := BuildThreads(events, followed)

	entries := make([]FeedEntry, 0, len(threads))
	for rootID, node := range threads {
		if !v.isFeedWorthy(node, followed) {
			continue
		}

		counter := v.reconciler.Counter(rootID)
		derivedReplies := node.ReplyCount() + len(v.actions.PendingFor(models.ActionReply, rootID))
		if derivedReplies > counter.ReplyCount {
			counter.ReplyCount = derivedReplies
		}

		entry := FeedEntry{
			Type:      "post",
			Thread:    node,
			Counter:   counter,
			CreatedAt: rootTimestamp(node),
		}
		if node.Original != nil && v.references != nil {
			entry.Language = v.references.DetectLanguage(node.Original.Content)
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt == entries[j].CreatedAt {
			return entries[i].Thread.RootID > entries[j].Thread.RootID
		}
		return entries[i].CreatedAt > entries[j].CreatedAt
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// isFeedWorthy keeps threads authored by a followed account or carrying at
// least one followed reply.
func (v *FeedService) isFeedWorthy(node *models.ThreadNode, followed map[string]bool) bool {
	if node.Original != nil && followed[node.Original.PubKey] {
		return true
	}
	return len(node.FollowedReplies) > 0
}

func rootTimestamp(node *models.ThreadNode) int64 {
	if node.Original != nil {
		return node.Original.CreatedAt
	}
	timestamps := lo.Map(
		append(append([]models.Event{}, node.FollowedReplies...), node.UnfollowedReplies...),
		func(evt models.Event, _ int) int64 { return evt.CreatedAt },
	)
	if len(timestamps) == 0 {
		return 0
	}
	return lo.Max(timestamps)
}

// Thread returns one assembled thread with its counter, or found=false when
// nothing references the id.
func (v *FeedService) Thread(rootID string) (FeedEntry, bool) {
	events := v.store.Snapshot(SnapshotQuery{Kinds: []int{models.KindTextNote}})
	threads := BuildThreads(events, v.FollowedAuthors())

	node, ok := threads[rootID]
	if !ok {
		return FeedEntry{}, false
	}

	counter := v.reconciler.Counter(rootID)
	if replies := node.ReplyCount(); replies > counter.ReplyCount {
		counter.ReplyCount = replies
	}
	return FeedEntry{
		Type:      "post",
		Thread:    node,
		Counter:   counter,
		CreatedAt: rootTimestamp(node),
	}, true
}

// ChannelTimeline returns a channel's messages oldest first, ready for a
// chat transcript, with pending channel sends overlaid.
func (v *FeedService) ChannelTimeline(channelID string, limit int) []models.Event {
	messages := v.store.Snapshot(SnapshotQuery{
		Kinds: []int{models.KindChannelMessage},
		Match: func(evt models.Event) bool {
			root, ok := evt.ReplyTo()
			return ok && root == channelID
		},
	})
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages
}
