package models

// ThreadNode is a root post plus its direct replies, partitioned by whether
// the replier is in the viewer's followed-authors set.
//
// Original may be nil when the root was never seen (pruned or not yet
// fetched); renderers treat that as "context unavailable", not an error.
type ThreadNode struct {
	RootID            string  `json:"root_id"`
	Original          *Event  `json:"original"`
	FollowedReplies   []Event `json:"followed_replies"`
	UnfollowedReplies []Event `json:"unfollowed_replies"`
}

// ReplyCount is the number of direct replies across both partitions.
func (v ThreadNode) ReplyCount() int {
	return len(v.FollowedReplies) + len(v.UnfollowedReplies)
}
