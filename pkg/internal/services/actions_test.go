package services

import (
	"errors"
	"testing"
	"time"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
)

func TestBeginRejectsConcurrentToggleOnSameTarget(t *testing.T) {
	manager := NewOptimisticActionManager()
	target := fakeID(0x01)

	first, err := manager.Begin(models.ActionLike, target, nil)
	if err != nil {
		t.Fatalf("first toggle should start: %v", err)
	}

	if _, err := manager.Begin(models.ActionLike, target, nil); !errors.Is(err, ErrActionInProgress) {
		t.Fatalf("second toggle on the same target should be rejected, got %v", err)
	}

	if _, err := manager.Begin(models.ActionLike, fakeID(0x02), nil); err != nil {
		t.Fatalf("toggle on a different target should start: %v", err)
	}

	manager.Resolve(first.LocalID, true)
	if _, err := manager.Begin(models.ActionLike, target, nil); err != nil {
		t.Fatalf("toggle should start again after resolution: %v", err)
	}
}

func TestBeginAllowsParallelSends(t *testing.T) {
	manager := NewOptimisticActionManager()
	contact := fakeID(0xc1)

	for i := 0; i < 3; i++ {
		if _, err := manager.Begin(models.ActionSendMessage, contact, map[string]any{"content": "hi"}); err != nil {
			t.Fatalf("send %d should start: %v", i, err)
		}
	}
	if got := len(manager.PendingFor(models.ActionSendMessage, contact)); got != 3 {
		t.Fatalf("expected 3 pending sends, got %d", got)
	}
}

func TestResolveRemovesActionAndReportsOutcome(t *testing.T) {
	manager := NewOptimisticActionManager()

	action, _ := manager.Begin(models.ActionReply, fakeID(0x01), nil)

	resolved, ok := manager.Resolve(action.LocalID, false)
	if !ok || resolved.State != models.ActionFailed {
		t.Fatalf("expected failed resolution, got %+v ok=%v", resolved, ok)
	}
	if len(manager.Pending()) != 0 {
		t.Fatal("resolved actions must leave the pending set")
	}

	if _, ok := manager.Resolve(action.LocalID, true); ok {
		t.Fatal("double resolution should report not-found")
	}

	if _, ok := manager.Resolve("unknown", true); ok {
		t.Fatal("unknown local id should report not-found")
	}
}

func TestPendingIsOrderedByCreation(t *testing.T) {
	manager := NewOptimisticActionManager()

	first, _ := manager.Begin(models.ActionSendMessage, fakeID(0x01), nil)
	time.Sleep(time.Millisecond)
	second, _ := manager.Begin(models.ActionReply, fakeID(0x02), nil)

	pending := manager.Pending()
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending actions, got %d", len(pending))
	}
	if pending[0].LocalID != first.LocalID || pending[1].LocalID != second.LocalID {
		t.Fatal("pending actions should come back in creation order")
	}
}
