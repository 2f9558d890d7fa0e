package services

import (
	"github.com/nocturnehq/nocturne/pkg/internal/models"
)

// BuildThreads turns a flat event set into threads: a mapping from root post
// id to the original event plus its direct replies, partitioned by whether
// the replier is in the viewer's followed-authors set.
//
// Two passes. The first builds an id lookup; the second assigns each event
// either as the original of its own thread (no reply tag) or as a reply under
// its target root. A reply whose root was never seen still yields a node with
// a nil Original so renderers can show "context unavailable" instead of
// dropping it. Duplicate ids are skipped, so rebuilding over a superset of
// previously seen events gives the same output as a single pass.
func BuildThreads(events []models.Event, followedAuthors map[string]bool) map[string]*models.ThreadNode {
	lookup := make(map[string]models.Event, len(events))
	for _, evt := range events {
		lookup[evt.ID] = evt
	}

	threads := make(map[string]*models.ThreadNode)
	seen := make(map[string]bool, len(events))

	ensure := func(rootID string) *models.ThreadNode {
		node, ok := threads[rootID]
		if !ok {
			node = &models.ThreadNode{RootID: rootID}
			if original, found := lookup[rootID]; found {
				node.Original = &original
			}
			threads[rootID] = node
		}
		return node
	}

	for _, evt := range events {
		if seen[evt.ID] {
			continue
		}
		seen[evt.ID] = true

		replyTo, isReply := evt.ReplyTo()
		if !isReply {
			node := ensure(evt.ID)
			original := evt
			node.Original = &original
			continue
		}

		node := ensure(replyTo)
		if followedAuthors[evt.PubKey] {
			node.FollowedReplies = append(node.FollowedReplies, evt)
		} else {
			node.UnfollowedReplies = append(node.UnfollowedReplies, evt)
		}
	}

	return threads
}
