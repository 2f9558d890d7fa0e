package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
	"github.com/nocturnehq/nocturne/pkg/internal/nostr"
)

// PublishService runs the optimistic write flows: register the pending
// action, apply the optimistic state, publish, then reconcile — promote to
// confirmed network state or roll the optimistic change back exactly.
type PublishService struct {
	store      *EventStore
	reconciler *InteractionReconciler
	actions    *OptimisticActionManager
	publisher  Publisher
	selfKey    string
}

func NewPublishService(store *EventStore, reconciler *InteractionReconciler, actions *OptimisticActionManager, publisher Publisher, selfKey string) *PublishService {
	return &PublishService{
		store:      store,
		reconciler: reconciler,
		actions:    actions,
		publisher:  publisher,
		selfKey:    selfKey,
	}
}

func (v *PublishService) publishAndReconcile(ctx context.Context, action models.PendingAction, draft nostr.EventDraft, confirm func(bool)) (models.Event, error) {
	evt, err := v.publisher.Publish(ctx, draft)
	if err != nil {
		if confirm != nil {
			confirm(false)
		}
		v.actions.Resolve(action.LocalID, false)
		log.Warn().Err(err).Str("kind", action.Kind).Msg("An error occurred when publishing action.")
		return models.Event{}, fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	if confirm != nil {
		confirm(true)
	}
	v.actions.Resolve(action.LocalID, true)
	v.store.Insert(evt)
	return evt, nil
}

// PublishNote publishes a new root post.
func (v *PublishService) PublishNote(ctx context.Context, content string) (models.Event, error) {
	action, err := v.actions.Begin(models.ActionSendMessage, "", map[string]any{"content": content})
	if err != nil {
		return models.Event{}, err
	}
	return v.publishAndReconcile(ctx, action, nostr.EventDraft{
		Kind:      models.KindTextNote,
		Content:   content,
		CreatedAt: time.Now().Unix(),
	}, nil)
}

// ReplyTo publishes a reply under a root post.
func (v *PublishService) ReplyTo(ctx context.Context, rootID, content string) (models.Event, error) {
	action, err := v.actions.Begin(models.ActionReply, rootID, map[string]any{"content": content})
	if err != nil {
		return models.Event{}, err
	}

	tags := [][]string{{models.TagEvent, rootID}}
	if root, ok := v.store.Get(rootID); ok {
		tags = append(tags, []string{models.TagPubkey, root.PubKey})
	}

	return v.publishAndReconcile(ctx, action, nostr.EventDraft{
		Kind:      models.KindTextNote,
		Tags:      tags,
		Content:   content,
		CreatedAt: time.Now().Unix(),
	}, nil)
}

// ToggleLike flips the like state of a post optimistically and publishes the
// matching reaction (or deletion of the earlier reaction). On failure the
// flip is inverted exactly and the error is retryable.
func (v *PublishService) ToggleLike(ctx context.Context, postID string) (models.InteractionCounter, error) {
	willLike := !v.reconciler.Counter(postID).UserLiked
	kind := models.ActionUnlike
	if willLike {
		kind = models.ActionLike
	}

	action, err := v.actions.Begin(kind, postID, nil)
	if err != nil {
		return v.reconciler.Counter(postID), err
	}

	_, confirm := v.reconciler.ToggleLike(postID)

	var draft nostr.EventDraft
	if willLike {
		tags := [][]string{{models.TagEvent, postID}}
		if post, ok := v.store.Get(postID); ok {
			tags = append(tags, []string{models.TagPubkey, post.PubKey})
		}
		draft = nostr.EventDraft{
			Kind:      models.KindReaction,
			Tags:      tags,
			Content:   "+",
			CreatedAt: time.Now().Unix(),
		}
	} else {
		// Undoing a like is a deletion of the earlier reaction event.
		target := postID
		if reactionID, ok := v.reconciler.ReactionFor(postID); ok {
			target = reactionID
		}
		draft = nostr.EventDraft{
			Kind:      models.KindEventDeletion,
			Tags:      [][]string{{models.TagEvent, target}},
			CreatedAt: time.Now().Unix(),
		}
	}

	evt, err := v.publishAndReconcile(ctx, action, draft, confirm)
	if err != nil {
		return v.reconciler.Counter(postID), err
	}
	if willLike {
		v.reconciler.RememberReaction(postID, evt.ID)
	}

	return v.reconciler.Counter(postID), nil
}

// Repost publishes a repost once; attempting it again while the post is
// already reposted is a no-op returning the current state.
func (v *PublishService) Repost(ctx context.Context, postID string) (models.InteractionCounter, error) {
	current, confirm, applied := v.reconciler.ToggleRepost(postID)
	if !applied {
		return current, nil
	}

	action, err := v.actions.Begin(models.ActionRepost, postID, nil)
	if err != nil {
		confirm(false)
		return v.reconciler.Counter(postID), err
	}

	tags := [][]string{{models.TagEvent, postID}}
	if post, ok := v.store.Get(postID); ok {
		tags = append(tags, []string{models.TagPubkey, post.PubKey})
	}

	if _, err := v.publishAndReconcile(ctx, action, nostr.EventDraft{
		Kind:      models.KindRepost,
		Tags:      tags,
		CreatedAt: time.Now().Unix(),
	}, confirm); err != nil {
		return v.reconciler.Counter(postID), err
	}

	return v.reconciler.Counter(postID), nil
}

// SendChannelMessage publishes into a public channel.
func (v *PublishService) SendChannelMessage(ctx context.Context, channelID, content string) (models.Event, error) {
	action, err := v.actions.Begin(models.ActionSendMessage, channelID, map[string]any{"content": content})
	if err != nil {
		return models.Event{}, err
	}
	return v.publishAndReconcile(ctx, action, nostr.EventDraft{
		Kind:      models.KindChannelMessage,
		Tags:      [][]string{{models.TagEvent, channelID, "", "root"}},
		Content:   content,
		CreatedAt: time.Now().Unix(),
	}, nil)
}
