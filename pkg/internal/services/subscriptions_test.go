package services

import (
	"fmt"
	"testing"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
)

type fakeLiveSource struct {
	handlers     map[string]func(models.Event)
	subscribes   int
	unsubscribes []string
	nextID       int
}

func newFakeLiveSource() *fakeLiveSource {
	return &fakeLiveSource{handlers: make(map[string]func(models.Event))}
}

func (v *fakeLiveSource) Subscribe(filter models.Filter, onEvent func(models.Event)) (string, error) {
	v.subscribes++
	v.nextID++
	id := fmt.Sprintf("sub-%d", v.nextID)
	v.handlers[id] = onEvent
	return id, nil
}

func (v *fakeLiveSource) Unsubscribe(id string) {
	v.unsubscribes = append(v.unsubscribes, id)
	delete(v.handlers, id)
}

func (v *fakeLiveSource) deliver(evt models.Event) {
	for _, handler := range v.handlers {
		handler(evt)
	}
}

func TestRouterSharesOneUpstreamPerFeed(t *testing.T) {
	source := newFakeLiveSource()
	router := NewSubscriptionRouter(source)
	filter := models.Filter{Kinds: []int{models.KindTextNote}}

	a, err := router.Open(filter, func(models.Event) {})
	if err != nil {
		t.Fatal(err)
	}
	b, err := router.Open(filter, func(models.Event) {})
	if err != nil {
		t.Fatal(err)
	}

	if source.subscribes != 1 {
		t.Fatalf("expected exactly one upstream subscription, got %d", source.subscribes)
	}
	if got := router.ListenerCount(filter); got != 2 {
		t.Fatalf("expected 2 listeners, got %d", got)
	}

	// Same logical feed even when the filter slices are ordered differently.
	reordered := models.Filter{Kinds: []int{models.KindTextNote}}
	if got := router.ListenerCount(reordered); got != 2 {
		t.Fatalf("reordered filter should address the same feed, got %d listeners", got)
	}

	router.Close(a)
	router.Close(b)
}

func TestRouterFansOutToEveryListener(t *testing.T) {
	source := newFakeLiveSource()
	router := NewSubscriptionRouter(source)
	filter := models.Filter{Kinds: []int{models.KindTextNote}}

	var hits []string
	a, _ := router.Open(filter, func(evt models.Event) { hits = append(hits, "a:"+evt.ID) })
	b, _ := router.Open(filter, func(evt models.Event) { hits = append(hits, "b:"+evt.ID) })

	source.deliver(fakeEvent(0x01, 0xa1, models.KindTextNote, 100, nil, "x"))
	if len(hits) != 2 {
		t.Fatalf("expected both listeners to receive the event, got %v", hits)
	}

	router.Close(a)
	router.Close(b)
}

func TestRouterCloseIsIdempotent(t *testing.T) {
	source := newFakeLiveSource()
	router := NewSubscriptionRouter(source)
	filter := models.Filter{Kinds: []int{models.KindTextNote}}

	a, _ := router.Open(filter, func(models.Event) {})
	b, _ := router.Open(filter, func(models.Event) {})

	router.Close(a)
	router.Close(a)
	router.Close(nil)

	if len(source.unsubscribes) != 0 {
		t.Fatal("upstream must stay open while a listener remains")
	}
	if got := router.ListenerCount(filter); got != 1 {
		t.Fatalf("double close must only detach once, got %d listeners", got)
	}

	router.Close(b)
	if len(source.unsubscribes) != 1 {
		t.Fatalf("closing the last listener should tear down the upstream once, got %d", len(source.unsubscribes))
	}
}

func TestRouterFeedLifecycle(t *testing.T) {
	source := newFakeLiveSource()
	router := NewSubscriptionRouter(source)
	filter := models.Filter{Kinds: []int{models.KindTextNote}}

	if got := router.FeedStatus(filter); got != FeedIdle {
		t.Fatalf("unopened feed should be idle, got %d", got)
	}

	handle, _ := router.Open(filter, func(models.Event) {})
	if got := router.FeedStatus(filter); got != FeedSubscribing {
		t.Fatalf("opened feed should be subscribing, got %d", got)
	}

	source.deliver(fakeEvent(0x01, 0xa1, models.KindTextNote, 100, nil, "x"))
	if got := router.FeedStatus(filter); got != FeedLive {
		t.Fatalf("feed should go live on first delivery, got %d", got)
	}

	router.Close(handle)
	if got := router.FeedStatus(filter); got != FeedIdle {
		t.Fatalf("closed feed should report idle, got %d", got)
	}
}
