// Package service implements the core services behind the HTTP layer:
// the invite gate, the match service and the presence tracker. Each
// service is a stateless request handler over a store interface; all
// shared state lives in the database and every operation re-reads it,
// so there is no in-process cache to go stale under concurrency.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/junkurera13/detour-sub001/internal/model"
	"github.com/junkurera13/detour-sub001/internal/repository"
)

// Reasons attached to invite validation failures. They are lower-case
// and intended for direct display to the end user.
const (
	ReasonNotFound        = "not-found"
	ReasonInactive        = "inactive"
	ReasonExpired         = "expired"
	ReasonExhausted       = "exhausted"
	ReasonAlreadyApproved = "already-approved"
)

// ValidationError is the expected-failure result of invite operations.
// It carries a display reason and is never a fault: handlers map it to a
// 4xx response with the reason in the body.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invite: " + e.Reason }

// ValidationResult is returned by Validate. Reason is empty when Valid.
type ValidationResult struct {
	Valid  bool
	Reason string
}

// InviteStore is the persistence surface the invite gate requires:
// lookup by the unique code index, plain inserts, activity toggling and
// the atomic redeem (use increment + user approval as one unit).
type InviteStore interface {
	GetByCode(ctx context.Context, code string) (model.InviteCode, error)
	Create(ctx context.Context, code string, createdBy *uint64, maxUses uint32, expiresAt *time.Time) (uint64, error)
	SetActive(ctx context.Context, id uint64, active bool) error
	Redeem(ctx context.Context, code string, userID uint64) (model.InviteCode, error)
}

// InviteService validates and redeems invite codes against usage and
// expiry policy. It is the sole writer of code usage counters.
type InviteService struct {
	store InviteStore
	now   func() time.Time
}

func NewInviteService(store InviteStore) *InviteService {
	return &InviteService{store: store, now: time.Now}
}

// NormalizeCode trims surrounding whitespace and upper-cases a code so
// that lookups behave case-insensitively. Every entry point normalizes;
// the store only ever sees normalized values.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// classify returns the failure reason for a code that is not redeemable,
// or "" when it is. Check order is fixed: inactive before expired,
// expired before exhausted.
func classify(ic model.InviteCode, now time.Time) string {
	if !ic.IsActive {
		return ReasonInactive
	}
	if ic.ExpiresAt != nil && !ic.ExpiresAt.After(now) {
		return ReasonExpired
	}
	if ic.CurrentUses >= ic.MaxUses {
		return ReasonExhausted
	}
	return ""
}

// Validate reports whether a code is currently redeemable. It is a pure
// read with no side effects and may be called pre-authentication. A
// missing code short-circuits before the remaining checks.
func (s *InviteService) Validate(ctx context.Context, code string) (ValidationResult, error) {
	ic, err := s.store.GetByCode(ctx, NormalizeCode(code))
	if errors.Is(err, repository.ErrNotFound) {
		return ValidationResult{Valid: false, Reason: ReasonNotFound}, nil
	}
	if err != nil {
		return ValidationResult{}, err
	}
	if reason := classify(ic, s.now().UTC()); reason != "" {
		return ValidationResult{Valid: false, Reason: reason}, nil
	}
	return ValidationResult{Valid: true}, nil
}

// Redeem consumes one use of the code and approves the user. The code is
// re-validated here regardless of any earlier Validate call — the gap
// between check and use is closed by the store's guarded increment, and
// the pre-check only exists to produce a precise reason cheaply.
//
// When the guarded increment loses a race (repository.ErrConflict) the
// code is read again to classify what changed: usually the last use was
// taken and the reason is exhausted. If the re-read still looks
// redeemable the conflict is transient and propagated so the caller may
// retry once.
func (s *InviteService) Redeem(ctx context.Context, code string, userID uint64) (model.InviteCode, error) {
	norm := NormalizeCode(code)

	res, err := s.Validate(ctx, norm)
	if err != nil {
		return model.InviteCode{}, err
	}
	if !res.Valid {
		return model.InviteCode{}, &ValidationError{Reason: res.Reason}
	}

	ic, err := s.store.Redeem(ctx, norm, userID)
	switch {
	case err == nil:
		return ic, nil
	case errors.Is(err, repository.ErrNotFound):
		return model.InviteCode{}, &ValidationError{Reason: ReasonNotFound}
	case errors.Is(err, repository.ErrAlreadyApproved):
		return model.InviteCode{}, &ValidationError{Reason: ReasonAlreadyApproved}
	case errors.Is(err, repository.ErrInconsistent):
		// A consumed use whose paired approval could not be applied.
		// The store rolls the increment back, but the condition is
		// logged distinctly so it is never confused with a validation
		// failure.
		log.Printf("consistency: redeem of %q for user %d left no applicable approval: %v", norm, userID, err)
		return model.InviteCode{}, fmt.Errorf("redeem %q: %w", norm, err)
	case errors.Is(err, repository.ErrConflict):
		after, verr := s.Validate(ctx, norm)
		if verr != nil {
			return model.InviteCode{}, verr
		}
		if !after.Valid {
			return model.InviteCode{}, &ValidationError{Reason: after.Reason}
		}
		return model.InviteCode{}, repository.ErrConflict
	default:
		return model.InviteCode{}, err
	}
}

// Create inserts a new code. maxUses must be positive; expiresAt may be
// nil for codes that never expire. Duplicate codes surface
// repository.ErrCodeExists from the store's unique index.
func (s *InviteService) Create(ctx context.Context, code string, createdBy *uint64, maxUses uint32, expiresAt *time.Time) (uint64, error) {
	norm := NormalizeCode(code)
	if norm == "" {
		return 0, fmt.Errorf("invite code must not be empty")
	}
	if maxUses == 0 {
		return 0, fmt.Errorf("max uses must be positive")
	}
	return s.store.Create(ctx, norm, createdBy, maxUses, expiresAt)
}

// Deactivate turns a code off. Idempotent: deactivating twice is a
// no-op. Codes are never deleted.
func (s *InviteService) Deactivate(ctx context.Context, id uint64) error {
	return s.store.SetActive(ctx, id, false)
}
