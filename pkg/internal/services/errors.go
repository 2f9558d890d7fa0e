package services

import "errors"

var (
	// ErrActionInProgress rejects a duplicate toggle on a target that already
	// has an optimistic action in flight; callers surface it, never retry.
	ErrActionInProgress = errors.New("an action for this target is already in progress")

	// ErrPublishFailed marks a failed or timed-out publish after the
	// optimistic state has been rolled back; the action is retryable.
	ErrPublishFailed = errors.New("publish failed")
)
