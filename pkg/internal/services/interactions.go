package services

import (
	"sort"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// KV is the persistence collaborator boundary: a durable string store used
// only to seed the local like/repost caches before network data arrives.
type KV interface {
	GetItem(key string) (string, error)
	SetItem(key, value string) error
}

const (
	kvLikedKey    = "interactions.liked"
	kvRepostedKey = "interactions.reposted"
)

// InteractionReconciler keeps per-post like/repost/reply counters, merging
// locally cached user actions with network-confirmed counts. Network data
// wins over the local cache once it exists; the cache is only a fallback for
// the window between app start and the first interaction query.
type InteractionReconciler struct {
	mu     sync.Mutex
	kv     KV
	states map[string]*interactionState

	localLiked    map[string]bool
	localReposted map[string]bool

	// reactionIDs maps post id to the user's confirmed reaction event id,
	// needed to publish a deletion when the like is undone.
	reactionIDs map[string]string
}

type interactionState struct {
	counter        models.InteractionCounter
	networkSeen    bool
	lastResolvedAt int64
}

func NewInteractionReconciler(kv KV) *InteractionReconciler {
	reconciler := &InteractionReconciler{
		kv:            kv,
		states:        make(map[string]*interactionState),
		localLiked:    make(map[string]bool),
		localReposted: make(map[string]bool),
		reactionIDs:   make(map[string]string),
	}
	reconciler.loadLocalCaches()
	return reconciler
}

func (v *InteractionReconciler) loadLocalCaches() {
	if v.kv == nil {
		return
	}
	for key, target := range map[string]map[string]bool{
		kvLikedKey:    v.localLiked,
		kvRepostedKey: v.localReposted,
	} {
		raw, err := v.kv.GetItem(key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("An error occurred when loading interaction cache.")
			continue
		}
		if len(raw) == 0 {
			continue
		}
		var ids []string
		if err := json.UnmarshalFromString(raw, &ids); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Discarded unparsable interaction cache.")
			continue
		}
		for _, id := range ids {
			target[id] = true
		}
	}
}

func (v *InteractionReconciler) persistLocalCache(key string, source map[string]bool) {
	if v.kv == nil {
		return
	}
	ids := make([]string, 0, len(source))
	for id, flagged := range source {
		if flagged {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	raw, _ := json.MarshalToString(ids)
	if err := v.kv.SetItem(key, raw); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("An error occurred when persisting interaction cache.")
	}
}

// ensure returns the live state for a post, seeding the user flags from the
// local cache the first time the post is touched.
func (v *InteractionReconciler) ensure(postID string) *interactionState {
	state, ok := v.states[postID]
	if !ok {
		state = &interactionState{
			counter: models.InteractionCounter{
				UserLiked:    v.localLiked[postID],
				UserReposted: v.localReposted[postID],
			},
		}
		v.states[postID] = state
	}
	return state
}

// Counter returns the reconciled counter for a post. Before any network or
// local activity it reflects only the persisted local cache.
func (v *InteractionReconciler) Counter(postID string) models.InteractionCounter {
	v.mu.Lock()
	defer v.mu.Unlock()

	if state, ok := v.states[postID]; ok {
		return state.counter
	}
	return models.InteractionCounter{
		UserLiked:    v.localLiked[postID],
		UserReposted: v.localReposted[postID],
	}
}

// RecordNetworkCounts merges an authoritative report. Counts always win; the
// user flags win too, unless the report was issued before the most recent
// locally resolved toggle on the same post, in which case the local outcome
// is newer and stands.
func (v *InteractionReconciler) RecordNetworkCounts(postID string, counts models.NetworkInteractions) {
	v.mu.Lock()
	defer v.mu.Unlock()

	state := v.ensure(postID)
	state.counter.LikeCount = maxInt(counts.LikeCount, 0)
	state.counter.RepostCount = maxInt(counts.RepostCount, 0)
	state.counter.ReplyCount = maxInt(counts.ReplyCount, 0)

	if counts.QueriedAt == 0 || counts.QueriedAt >= state.lastResolvedAt {
		state.counter.UserLiked = counts.UserLiked
		state.counter.UserReposted = counts.UserReposted
	}
	state.networkSeen = true
}

// ToggleLike flips the user's like optimistically and returns the new counter
// along with a confirmation handle. confirm(true) finalizes the flip and
// updates the persisted cache; confirm(false) applies the exact inverse of
// the flip — not a refetch, since the network may not reflect the attempted
// change yet even on success.
func (v *InteractionReconciler) ToggleLike(postID string) (models.InteractionCounter, func(bool)) {
	v.mu.Lock()
	defer v.mu.Unlock()

	state := v.ensure(postID)
	priorLiked := state.counter.UserLiked

	var applied int
	if priorLiked {
		state.counter.UserLiked = false
		if state.counter.LikeCount > 0 {
			state.counter.LikeCount--
			applied = -1
		}
	} else {
		state.counter.UserLiked = true
		state.counter.LikeCount++
		applied = 1
	}
	optimistic := state.counter

	confirm := func(success bool) {
		v.mu.Lock()
		defer v.mu.Unlock()

		if success {
			state.lastResolvedAt = time.Now().Unix()
			v.localLiked[postID] = optimistic.UserLiked
			v.persistLocalCache(kvLikedKey, v.localLiked)
			return
		}

		state.counter.UserLiked = priorLiked
		state.counter.LikeCount -= applied
		if state.counter.LikeCount < 0 {
			state.counter.LikeCount = 0
		}
	}

	return optimistic, confirm
}

// ToggleRepost is the one-directional sibling of ToggleLike: a repost cannot
// be undone in this protocol, so a second attempt on an already-reposted post
// is a no-op reporting applied=false with the current state.
func (v *InteractionReconciler) ToggleRepost(postID string) (models.InteractionCounter, func(bool), bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	state := v.ensure(postID)
	if state.counter.UserReposted {
		return state.counter, nil, false
	}

	state.counter.UserReposted = true
	state.counter.RepostCount++
	optimistic := state.counter

	confirm := func(success bool) {
		v.mu.Lock()
		defer v.mu.Unlock()

		if success {
			state.lastResolvedAt = time.Now().Unix()
			v.localReposted[postID] = true
			v.persistLocalCache(kvRepostedKey, v.localReposted)
			return
		}

		state.counter.UserReposted = false
		if state.counter.RepostCount > 0 {
			state.counter.RepostCount--
		}
	}

	return optimistic, confirm, true
}

// RememberReaction records the id of the user's confirmed reaction event on a
// post so a later unlike can reference it in a deletion event.
func (v *InteractionReconciler) RememberReaction(postID, reactionEventID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reactionIDs[postID] = reactionEventID
}

// ReactionFor returns the remembered reaction event id for a post, if any.
func (v *InteractionReconciler) ReactionFor(postID string) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id, ok := v.reactionIDs[postID]
	return id, ok
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
