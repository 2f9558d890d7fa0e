package models

// InteractionCounter is the reconciled per-post interaction state handed to
// renderers. Counts never go below zero.
type InteractionCounter struct {
	LikeCount    int  `json:"like_count"`
	UserLiked    bool `json:"user_liked"`
	RepostCount  int  `json:"repost_count"`
	UserReposted bool `json:"user_reposted"`
	ReplyCount   int  `json:"reply_count"`
}

// NetworkInteractions is an authoritative count report from the relay
// collaborator. QueriedAt is when the query was issued; a report older than
// the last locally resolved toggle on the same post does not overwrite the
// user flags.
type NetworkInteractions struct {
	LikeCount    int   `json:"like_count"`
	RepostCount  int   `json:"repost_count"`
	ReplyCount   int   `json:"reply_count"`
	UserLiked    bool  `json:"user_liked"`
	UserReposted bool  `json:"user_reposted"`
	QueriedAt    int64 `json:"queried_at"`
}
