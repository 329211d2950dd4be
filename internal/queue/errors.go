package queue

import "errors"

var (
	// ErrRequestLocked signals that another sender already holds the
	// request's lock. The request is left untouched.
	ErrRequestLocked = errors.New("request already locked")

	// ErrSendFailed signals that the remote dispatch failed. The request
	// was unlocked and remains queued for a future pass.
	ErrSendFailed = errors.New("remote dispatch failed")

	// ErrLogFailed signals that the campaign was dispatched remotely but
	// recording it locally failed. The request stays locked so a later
	// pass cannot dispatch it a second time; operator intervention is
	// required to reconcile.
	ErrLogFailed = errors.New("campaign dispatched but not recorded")

	// ErrUnknownEntityKind signals an entity link whose kind is not in
	// the host-supplied registry.
	ErrUnknownEntityKind = errors.New("unknown entity kind")
)
