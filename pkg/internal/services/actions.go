package services

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
)

// OptimisticActionManager tracks tentative local mutations from the moment of
// user intent until the network confirms or rejects them. Pending entries are
// rendered interleaved with confirmed data by timestamp and destroyed on
// resolution either way; on success the caller inserts the confirmed event
// under its real id, on failure the prior view is restored by the removal
// alone.
type OptimisticActionManager struct {
	mu       sync.Mutex
	pending  map[string]models.PendingAction
	inflight map[string]string
}

func NewOptimisticActionManager() *OptimisticActionManager {
	return &OptimisticActionManager{
		pending:  make(map[string]models.PendingAction),
		inflight: make(map[string]string),
	}
}

func inflightKey(kind models.ActionKind, targetID string) string {
	return kind + "\x00" + targetID
}

// Begin registers a pending action, immediately visible to renderers. Toggle
// kinds allow at most one in-flight action per (kind, target) pair — a second
// attempt is rejected with ErrActionInProgress rather than queued, to avoid
// double-counting. Send and reply actions carry no such restriction since
// each produces a distinct new entity.
func (v *OptimisticActionManager) Begin(kind models.ActionKind, targetID string, payload map[string]any) (models.PendingAction, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	restricted := lo.Contains(models.ToggleActionKinds, kind)
	if restricted {
		if _, busy := v.inflight[inflightKey(kind, targetID)]; busy {
			return models.PendingAction{}, ErrActionInProgress
		}
	}

	action := models.PendingAction{
		LocalID:   uuid.NewString(),
		Kind:      kind,
		TargetID:  targetID,
		State:     models.ActionPending,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	v.pending[action.LocalID] = action
	if restricted {
		v.inflight[inflightKey(kind, targetID)] = action.LocalID
	}

	return action, nil
}

// Resolve finishes a pending action with the given outcome and removes it.
// Unknown ids report found=false, which covers double resolution races.
func (v *OptimisticActionManager) Resolve(localID string, succeeded bool) (models.PendingAction, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	action, ok := v.pending[localID]
	if !ok {
		return models.PendingAction{}, false
	}

	delete(v.pending, localID)
	key := inflightKey(action.Kind, action.TargetID)
	if v.inflight[key] == localID {
		delete(v.inflight, key)
	}

	if succeeded {
		action.State = models.ActionConfirmed
	} else {
		action.State = models.ActionFailed
	}
	return action, true
}

// Pending returns every in-flight action ordered by creation time.
func (v *OptimisticActionManager) Pending() []models.PendingAction {
	v.mu.Lock()
	out := lo.Values(v.pending)
	v.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].LocalID < out[j].LocalID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// PendingFor returns the in-flight actions of one kind aimed at one target.
func (v *OptimisticActionManager) PendingFor(kind models.ActionKind, targetID string) []models.PendingAction {
	return lo.Filter(v.Pending(), func(action models.PendingAction, _ int) bool {
		return action.Kind == kind && action.TargetID == targetID
	})
}
