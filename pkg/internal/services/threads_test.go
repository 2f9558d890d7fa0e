package services

import (
	"reflect"
	"testing"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
)

func TestBuildThreadsPartitionsReplies(t *testing.T) {
	followed := map[string]bool{fakeID(0xa1): true, fakeID(0xa2): true}

	root := fakeEvent(0x01, 0xa1, models.KindTextNote, 100, nil, "original")
	followedReply := fakeEvent(0x02, 0xa2, models.KindTextNote, 110,
		[][]string{{models.TagEvent, root.ID}}, "from a followed account")
	strangerReply := fakeEvent(0x03, 0xa3, models.KindTextNote, 120,
		[][]string{{models.TagEvent, root.ID}}, "from a stranger")

	threads := BuildThreads([]models.Event{root, followedReply, strangerReply}, followed)

	node, ok := threads[root.ID]
	if !ok {
		t.Fatal("expected a thread rooted at the original")
	}
	if node.Original == nil || node.Original.ID != root.ID {
		t.Fatal("original should be attached to its thread")
	}
	if len(node.FollowedReplies) != 1 || node.FollowedReplies[0].ID != followedReply.ID {
		t.Fatal("followed reply landed in the wrong partition")
	}
	if len(node.UnfollowedReplies) != 1 || node.UnfollowedReplies[0].ID != strangerReply.ID {
		t.Fatal("stranger reply landed in the wrong partition")
	}
}

func TestBuildThreadsCoversEveryEventExactlyOnce(t *testing.T) {
	root := fakeEvent(0x01, 0xa1, models.KindTextNote, 100, nil, "root")
	reply := fakeEvent(0x02, 0xa2, models.KindTextNote, 110,
		[][]string{{models.TagEvent, root.ID}}, "reply")
	orphan := fakeEvent(0x03, 0xa3, models.KindTextNote, 120,
		[][]string{{models.TagEvent, fakeID(0xee)}}, "reply to something unfetched")

	threads := BuildThreads([]models.Event{root, reply, orphan}, nil)

	total := 0
	for _, node := range threads {
		if node.Original != nil {
			total++
		}
		total += len(node.FollowedReplies) + len(node.UnfollowedReplies)
	}
	if total != 3 {
		t.Fatalf("every event must appear exactly once across threads, counted %d", total)
	}

	orphanNode, ok := threads[fakeID(0xee)]
	if !ok {
		t.Fatal("a reply to an unfetched root should still produce a thread")
	}
	if orphanNode.Original != nil {
		t.Fatal("an unfetched root must stay nil, not be fabricated")
	}
	if orphanNode.ReplyCount() != 1 {
		t.Fatal("the orphaned reply should be retained under its root id")
	}
}

func TestBuildThreadsIgnoresDuplicateInput(t *testing.T) {
	root := fakeEvent(0x01, 0xa1, models.KindTextNote, 100, nil, "root")
	reply := fakeEvent(0x02, 0xa2, models.KindTextNote, 110,
		[][]string{{models.TagEvent, root.ID}}, "reply")

	once := BuildThreads([]models.Event{root, reply}, nil)
	twice := BuildThreads([]models.Event{root, reply, reply, root}, nil)

	if !reflect.DeepEqual(once, twice) {
		t.Fatal("duplicate events in the input must not change the result")
	}
	if twice[root.ID].ReplyCount() != 1 {
		t.Fatalf("expected 1 reply, got %d", twice[root.ID].ReplyCount())
	}
}
