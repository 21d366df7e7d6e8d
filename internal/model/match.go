package model

import "time"

// Match status values. A match moves MATCHED -> UNMATCHED exactly once;
// there is no transition back out of UNMATCHED.
const (
	MatchStatusMatched   = "MATCHED"
	MatchStatusUnmatched = "UNMATCHED"
)

// Match mirrors the `matches` table. The user pair is unordered: a given
// user may be stored on either side, so lookups must consider both
// columns. Rows are never deleted, only flipped to UNMATCHED.
//
// Fields:
//  ID        – primary key identifier.
//  User1ID   – one side of the pair.
//  User2ID   – the other side of the pair.
//  Status    – MATCHED or UNMATCHED.
//  CreatedAt – when the match was created.
type Match struct {
	ID        uint64    // matches.id
	User1ID   uint64    // matches.user1_id
	User2ID   uint64    // matches.user2_id
	Status    string    // matches.status
	CreatedAt time.Time // matches.created_at
}

// OtherUser returns the counterpart of userID in the pair. The second
// return value is false when userID is not a party to the match.
func (m Match) OtherUser(userID uint64) (uint64, bool) {
	switch userID {
	case m.User1ID:
		return m.User2ID, true
	case m.User2ID:
		return m.User1ID, true
	}
	return 0, false
}

// TypingStatus mirrors the `typing_status` table. At most one row exists
// per (match, user) pair; writes are upserts. The stored flag alone does
// not mean a user is typing — readers apply a staleness window against
// UpdatedAt at query time, so an abandoned "true" expires on its own.
//
// Fields:
//  ID        – primary key identifier.
//  MatchID   – match (conversation) the signal belongs to.
//  UserID    – user the signal is about.
//  IsTyping  – last written flag.
//  UpdatedAt – when the flag was last written (UTC, millisecond precision).
type TypingStatus struct {
	ID        uint64    // typing_status.id
	MatchID   uint64    // typing_status.match_id
	UserID    uint64    // typing_status.user_id
	IsTyping  bool      // typing_status.is_typing
	UpdatedAt time.Time // typing_status.updated_at
}
