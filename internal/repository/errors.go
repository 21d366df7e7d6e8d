// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// services to distinguish between different failure scenarios without
// inspecting driver-specific errors. For example, ErrConflict signals
// that a guarded conditional update matched no row, while
// ErrInconsistent marks the one condition redeem cannot recover from
// locally (a consumed use whose paired user approval could not be
// applied).
package repository

import "errors"

// ErrNotFound is returned when a point or index lookup matches no row.
// Services translate this into a typed not-found result rather than a
// fault, since absent records are an expected outcome.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a guarded atomic update affects no rows
// because another writer got there first (e.g. concurrent redemptions
// racing for the last use of a code). Callers should re-validate and
// may retry once.
var ErrConflict = errors.New("conflict")

// ErrCodeExists is returned when inserting an invite code whose
// normalized value collides with the unique index.
var ErrCodeExists = errors.New("invite code already exists")

// ErrEmailExists is returned when registering a user with an email that
// is already taken.
var ErrEmailExists = errors.New("email already exists")

// ErrAlreadyApproved is returned by Redeem when the redeeming user's
// status is already APPROVED. Policy: an approved user does not consume
// further invite uses.
var ErrAlreadyApproved = errors.New("user already approved")

// ErrInconsistent is returned when redeem's use increment succeeded but
// the paired user-status write could not be applied. The transaction is
// rolled back, but the condition is surfaced distinctly so it is never
// mistaken for an ordinary validation failure.
var ErrInconsistent = errors.New("inconsistent redemption state")
