package ratelimit

import "context"

// Publisher is the one upward hook the engine exposes: when set, it
// receives a notification on every denied decision. The engine only
// defines and calls this interface — it never implements the broadcast
// bus itself, which is out of scope (spec §1, §6).
type Publisher interface {
	Publish(ctx context.Context, channel string, message []byte) error
}

// quotaViolationChannel is the fixed channel name denied decisions are
// published to.
const quotaViolationChannel = "quota_violation"
