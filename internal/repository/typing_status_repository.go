package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/junkurera13/detour-sub001/internal/model"
)

// TypingStatusRepo provides data access to the typing_status table. The
// table holds at most one row per (match, user) pair, enforced by a
// unique index; writes are upserts against that index. updated_at is
// stored with millisecond precision because the staleness window readers
// apply is itself measured in milliseconds.
type TypingStatusRepo struct {
	db *sql.DB
}

// NewTypingStatusRepo returns a new TypingStatusRepo bound to the provided database.
func NewTypingStatusRepo(db *sql.DB) *TypingStatusRepo { return &TypingStatusRepo{db: db} }

// Upsert writes the typing flag for a (match, user) pair, inserting the
// row on first use. updated_at is always refreshed to the database's
// clock at write time, including when the flag value is unchanged.
func (r *TypingStatusRepo) Upsert(ctx context.Context, matchID, userID uint64, isTyping bool) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO typing_status (match_id, user_id, is_typing, updated_at)
		 VALUES (?, ?, ?, UTC_TIMESTAMP(3))
		 ON DUPLICATE KEY UPDATE is_typing = VALUES(is_typing), updated_at = UTC_TIMESTAMP(3)`,
		matchID, userID, isTyping)
	return err
}

// GetByMatchAndUser fetches the typing row for a pair. Returns
// ErrNotFound when the pair has never written a signal.
func (r *TypingStatusRepo) GetByMatchAndUser(ctx context.Context, matchID, userID uint64) (model.TypingStatus, error) {
	var ts model.TypingStatus
	err := r.db.QueryRowContext(ctx,
		`SELECT id, match_id, user_id, is_typing, updated_at
		 FROM typing_status WHERE match_id = ? AND user_id = ? LIMIT 1`,
		matchID, userID).
		Scan(&ts.ID, &ts.MatchID, &ts.UserID, &ts.IsTyping, &ts.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TypingStatus{}, ErrNotFound
	}
	return ts, err
}

// ClearByUser forces is_typing=0 on every row of the user, across all of
// their matches, refreshing updated_at. Used when a user leaves the
// conversation context. The statement patches all rows it finds via the
// user_id index; there is no isolation against concurrent writers, which
// is acceptable for session-level state.
func (r *TypingStatusRepo) ClearByUser(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE typing_status SET is_typing = 0, updated_at = UTC_TIMESTAMP(3) WHERE user_id = ?`,
		userID)
	return err
}
