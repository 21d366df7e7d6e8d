package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/junkurera13/detour-sub001/internal/model"
)

// InviteCodeRepo provides data access to the invite_codes table. Codes
// are stored normalized (trimmed, upper-cased); callers are expected to
// normalize before lookup so the unique index behaves case-insensitively.
// All timestamps are UTC.
type InviteCodeRepo struct {
	db *sql.DB
}

// NewInviteCodeRepo returns a new InviteCodeRepo bound to the provided database.
func NewInviteCodeRepo(db *sql.DB) *InviteCodeRepo { return &InviteCodeRepo{db: db} }

const inviteCodeCols = `id, code, created_by, max_uses, current_uses, expires_at, is_active, used_by, created_at`

func scanInviteCode(row *sql.Row) (model.InviteCode, error) {
	var (
		ic        model.InviteCode
		createdBy sql.NullInt64
		expiresAt sql.NullTime
		usedBy    sql.NullInt64
	)
	err := row.Scan(&ic.ID, &ic.Code, &createdBy, &ic.MaxUses, &ic.CurrentUses,
		&expiresAt, &ic.IsActive, &usedBy, &ic.CreatedAt)
	if err != nil {
		return model.InviteCode{}, err
	}
	if createdBy.Valid {
		v := uint64(createdBy.Int64)
		ic.CreatedBy = &v
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		ic.ExpiresAt = &t
	}
	if usedBy.Valid {
		v := uint64(usedBy.Int64)
		ic.UsedBy = &v
	}
	return ic, nil
}

// GetByCode fetches a code by its normalized value via the unique index.
// Returns ErrNotFound when no such code exists.
func (r *InviteCodeRepo) GetByCode(ctx context.Context, code string) (model.InviteCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+inviteCodeCols+` FROM invite_codes WHERE code = ? LIMIT 1`, code)
	ic, err := scanInviteCode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.InviteCode{}, ErrNotFound
	}
	return ic, err
}

// Create inserts a new code with current_uses=0 and is_active=1 and
// returns its generated ID. There is no uniqueness pre-check; a
// duplicate insert hits the unique index and is reported as
// ErrCodeExists (MySQL error 1062).
func (r *InviteCodeRepo) Create(ctx context.Context, code string, createdBy *uint64, maxUses uint32, expiresAt *time.Time) (uint64, error) {
	var exp interface{}
	if expiresAt != nil {
		exp = expiresAt.UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO invite_codes (code, created_by, max_uses, current_uses, expires_at, is_active)
		 VALUES (?, ?, ?, 0, ?, 1)`,
		code, createdBy, maxUses, exp)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrCodeExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// SetActive flips is_active for a code. Deactivation is idempotent:
// setting an already-inactive code inactive again is a no-op, not an
// error. A missing id is reported as ErrNotFound.
func (r *InviteCodeRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invite_codes SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	// MySQL reports zero affected rows both for a missing id and for a
	// no-op write of the same value, so disambiguate with a lookup.
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		err := r.db.QueryRowContext(ctx,
			`SELECT 1 FROM invite_codes WHERE id = ? LIMIT 1`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Redeem consumes one use of the code and approves the redeeming user as
// a single transaction.
//
// The use increment is a guarded conditional UPDATE: the WHERE clause
// re-checks active, unexpired and current_uses < max_uses, so two
// concurrent redemptions racing for the last use serialize on the row and
// the loser affects zero rows. A failed guard returns ErrConflict; the
// caller re-validates to classify the reason and never overshoots the cap.
//
// The paired user-status write runs in the same transaction, guarded
// against users that are already APPROVED. If the user write cannot be
// applied the whole transaction rolls back, leaving no consumed use
// without a matching approval; the failure is reported as
// ErrAlreadyApproved or ErrInconsistent depending on whether the user
// row exists.
func (r *InviteCodeRepo) Redeem(ctx context.Context, code string, userID uint64) (model.InviteCode, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.InviteCode{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE invite_codes
		 SET current_uses = current_uses + 1, used_by = ?
		 WHERE code = ? AND is_active = 1
		   AND current_uses < max_uses
		   AND (expires_at IS NULL OR expires_at > UTC_TIMESTAMP(3))`,
		userID, code)
	if err != nil {
		return model.InviteCode{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.InviteCode{}, err
	} else if n == 0 {
		return model.InviteCode{}, ErrConflict
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE users SET user_status = ?, updated_at = UTC_TIMESTAMP()
		 WHERE id = ? AND user_status <> ?`,
		model.StatusApproved, userID, model.StatusApproved)
	if err != nil {
		return model.InviteCode{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.InviteCode{}, err
	} else if n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ? LIMIT 1`, userID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return model.InviteCode{}, ErrInconsistent
		}
		if err != nil {
			return model.InviteCode{}, err
		}
		return model.InviteCode{}, ErrAlreadyApproved
	}

	row := tx.QueryRowContext(ctx,
		`SELECT `+inviteCodeCols+` FROM invite_codes WHERE code = ? LIMIT 1`, code)
	ic, err := scanInviteCode(row)
	if err != nil {
		return model.InviteCode{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.InviteCode{}, err
	}
	return ic, nil
}
