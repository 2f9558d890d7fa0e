package models

import "time"

type ActionState = int8

const (
	ActionPending = ActionState(iota)
	ActionConfirmed
	ActionFailed
)

type ActionKind = string

const (
	ActionSendMessage = "send-message"
	ActionLike        = "like"
	ActionUnlike      = "unlike"
	ActionRepost      = "repost"
	ActionReply       = "reply"
)

// ToggleActionKinds are the kinds restricted to one in-flight action per
// target; a second attempt would double-count.
var ToggleActionKinds = []ActionKind{ActionLike, ActionUnlike, ActionRepost}

// PendingAction is an optimistic local mutation awaiting network confirmation.
// LocalID is client-generated and distinct from any protocol event id.
type PendingAction struct {
	LocalID   string         `json:"local_id"`
	Kind      ActionKind     `json:"kind"`
	TargetID  string         `json:"target_id"`
	State     ActionState    `json:"state"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}
