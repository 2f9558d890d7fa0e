package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
	"github.com/nocturnehq/nocturne/pkg/internal/nostr"
)

// Publisher is the slice of the relay collaborator that signs and sends.
type Publisher interface {
	Publish(ctx context.Context, draft nostr.EventDraft) (models.Event, error)
}

// ConversationService maintains direct-message transcripts per contact.
// Message history is derived from the event store; only the unread counters
// are service state, incremented on live delivery and cleared by an explicit
// mark-as-read call.
type ConversationService struct {
	store     *EventStore
	actions   *OptimisticActionManager
	publisher Publisher
	selfKey   string

	mu     sync.Mutex
	unread map[string]int
}

func NewConversationService(store *EventStore, actions *OptimisticActionManager, publisher Publisher, selfKey string) *ConversationService {
	return &ConversationService{
		store:     store,
		actions:   actions,
		publisher: publisher,
		selfKey:   selfKey,
		unread:    make(map[string]int),
	}
}

// contactOf returns the other party of a direct message involving the user.
func (v *ConversationService) contactOf(evt models.Event) (string, bool) {
	if evt.Kind != models.KindDirectMessage {
		return "", false
	}
	if evt.PubKey != v.selfKey {
		return evt.PubKey, true
	}
	if target, ok := evt.TagValue(models.TagPubkey); ok {
		return target, true
	}
	return "", false
}

// IngestMessage feeds one delivered event into the conversation state and
// reports whether it was new. Duplicate deliveries from racing relays never
// bump the unread counter twice.
func (v *ConversationService) IngestMessage(evt models.Event) bool {
	contact, ok := v.contactOf(evt)
	if !ok {
		return false
	}

	if !v.store.Insert(evt) {
		return false
	}

	if evt.PubKey != v.selfKey {
		v.mu.Lock()
		v.unread[contact]++
		v.mu.Unlock()
	}
	return true
}

// Conversation builds the transcript with one contact: confirmed messages
// ascending by timestamp with pending optimistic sends interleaved.
func (v *ConversationService) Conversation(contactKey string) models.Conversation {
	confirmed := v.store.Snapshot(SnapshotQuery{
		Kinds: []int{models.KindDirectMessage},
		Match: func(evt models.Event) bool {
			contact, ok := v.contactOf(evt)
			return ok && contact == contactKey
		},
	})

	messages := lo.Map(confirmed, func(evt models.Event, _ int) models.ConversationMessage {
		return models.ConversationMessage{
			ID:        evt.ID,
			AuthorKey: evt.PubKey,
			Content:   evt.Content,
			CreatedAt: evt.CreatedAt,
		}
	})

	for _, action := range v.actions.PendingFor(models.ActionSendMessage, contactKey) {
		content, _ := action.Payload["content"].(string)
		messages = append(messages, models.ConversationMessage{
			ID:        action.LocalID,
			AuthorKey: v.selfKey,
			Content:   content,
			CreatedAt: action.CreatedAt.Unix(),
			Pending:   true,
		})
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt < messages[j].CreatedAt
	})

	conversation := models.Conversation{
		ContactKey: contactKey,
		Messages:   messages,
	}
	if len(messages) > 0 {
		last := messages[len(messages)-1]
		conversation.LastMessage = &last
	}

	v.mu.Lock()
	conversation.UnreadCount = v.unread[contactKey]
	v.mu.Unlock()

	return conversation
}

// Conversations lists every known conversation, most recent activity first.
func (v *ConversationService) Conversations() []models.Conversation {
	contacts := make(map[string]bool)
	for _, evt := range v.store.Snapshot(SnapshotQuery{Kinds: []int{models.KindDirectMessage}}) {
		if contact, ok := v.contactOf(evt); ok {
			contacts[contact] = true
		}
	}
	v.mu.Lock()
	for contact := range v.unread {
		contacts[contact] = true
	}
	v.mu.Unlock()

	out := make([]models.Conversation, 0, len(contacts))
	for contact := range contacts {
		out = append(out, v.Conversation(contact))
	}
	sort.Slice(out, func(i, j int) bool {
		left, right := int64(0), int64(0)
		if out[i].LastMessage != nil {
			left = out[i].LastMessage.CreatedAt
		}
		if out[j].LastMessage != nil {
			right = out[j].LastMessage.CreatedAt
		}
		if left == right {
			return out[i].ContactKey < out[j].ContactKey
		}
		return left > right
	})
	return out
}

// MarkRead clears the unread counter for a contact.
func (v *ConversationService) MarkRead(contactKey string) {
	v.mu.Lock()
	delete(v.unread, contactKey)
	v.mu.Unlock()
}

// SendMessage publishes a direct message optimistically: the pending entry is
// visible immediately, then either replaced by the confirmed event or removed
// on failure, restoring the prior transcript.
func (v *ConversationService) SendMessage(ctx context.Context, contactKey, content string) (models.PendingAction, error) {
	action, err := v.actions.Begin(models.ActionSendMessage, contactKey, map[string]any{"content": content})
	if err != nil {
		return action, err
	}

	evt, err := v.publisher.Publish(ctx, nostr.EventDraft{
		Kind:      models.KindDirectMessage,
		Tags:      [][]string{{models.TagPubkey, contactKey}},
		Content:   content,
		CreatedAt: time.Now().Unix(),
	})
	if err != nil {
		v.actions.Resolve(action.LocalID, false)
		return action, fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	resolved, _ := v.actions.Resolve(action.LocalID, true)
	v.store.Insert(evt)
	return resolved, nil
}
