// Package queue defines message payloads exchanged over the message
// broker, a publisher for them, and the background consumer that turns
// them into the activity log.
package queue

// Activity event types carried in ActivityEvent.Type.
const (
	TypeInviteRedeemed = "invite.redeemed"
	TypeMatchUnmatched = "match.unmatched"
)

// InviteRedeemedEvent is published when an invite code is successfully
// redeemed. It carries enough for downstream consumers to log or notify
// without querying the primary database.
type InviteRedeemedEvent struct {
	Code        string `json:"code"`
	UserID      uint64 `json:"user_id"`
	CurrentUses uint32 `json:"current_uses"`
	MaxUses     uint32 `json:"max_uses"`
}

// MatchUnmatchedEvent is published when a match is moved to UNMATCHED.
type MatchUnmatchedEvent struct {
	MatchID uint64 `json:"match_id"`
	User1ID uint64 `json:"user1_id"`
	User2ID uint64 `json:"user2_id"`
	ActorID uint64 `json:"actor_id"`
}

// ActivityEvent is the envelope placed on the activity queue. Exactly
// one of the payload pointers is set, matching Type.
type ActivityEvent struct {
	Type       string               `json:"type"`
	OccurredAt string               `json:"occurred_at"`
	Invite     *InviteRedeemedEvent `json:"invite,omitempty"`
	Match      *MatchUnmatchedEvent `json:"match,omitempty"`
}
