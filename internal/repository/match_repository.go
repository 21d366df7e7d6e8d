package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/junkurera13/detour-sub001/internal/model"
)

// MatchRepo provides data access to the matches table. The user pair is
// unordered, so user lookups query both indexed columns and union the
// result in one statement. Rows are soft state: a match is never
// deleted, only flipped to UNMATCHED.
type MatchRepo struct {
	db *sql.DB
}

// NewMatchRepo returns a new MatchRepo bound to the provided database.
func NewMatchRepo(db *sql.DB) *MatchRepo { return &MatchRepo{db: db} }

const matchCols = `id, user1_id, user2_id, status, created_at`

// GetByID fetches a match by primary key. Returns ErrNotFound when the
// id is absent.
func (r *MatchRepo) GetByID(ctx context.Context, id uint64) (model.Match, error) {
	var m model.Match
	err := r.db.QueryRowContext(ctx,
		`SELECT `+matchCols+` FROM matches WHERE id = ? LIMIT 1`, id).
		Scan(&m.ID, &m.User1ID, &m.User2ID, &m.Status, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Match{}, ErrNotFound
	}
	return m, err
}

// ListActiveByUser returns all MATCHED rows where the user occupies
// either side of the pair. Both user columns carry their own index; the
// OR query unions the two directions. Order is unspecified.
func (r *MatchRepo) ListActiveByUser(ctx context.Context, userID uint64) ([]model.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+matchCols+` FROM matches
		 WHERE (user1_id = ? OR user2_id = ?) AND status = ?`,
		userID, userID, model.MatchStatusMatched)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var matches []model.Match
	for rows.Next() {
		var m model.Match
		if err := rows.Scan(&m.ID, &m.User1ID, &m.User2ID, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

// SetUnmatched moves a match to UNMATCHED. The transition is terminal
// and idempotent: unmatching an already-unmatched row is a no-op. A
// missing id is reported as ErrNotFound.
func (r *MatchRepo) SetUnmatched(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE matches SET status = ? WHERE id = ?`,
		model.MatchStatusUnmatched, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		err := r.db.QueryRowContext(ctx,
			`SELECT 1 FROM matches WHERE id = ? LIMIT 1`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Create inserts a MATCHED pair and returns its generated ID. Pair order
// is preserved as given; readers must not rely on it.
func (r *MatchRepo) Create(ctx context.Context, user1ID, user2ID uint64) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO matches (user1_id, user2_id, status) VALUES (?, ?, ?)`,
		user1ID, user2ID, model.MatchStatusMatched)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}
