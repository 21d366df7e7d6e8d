package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/junkurera13/detour-sub001/internal/queue"
	"github.com/junkurera13/detour-sub001/internal/repository"
	"github.com/junkurera13/detour-sub001/internal/service"
)

// InviteHandler exposes the invite gate over HTTP. Validation is public
// (the onboarding screen checks a code before the user registers);
// redemption requires an authenticated caller; creation and deactivation
// are admin operations.
type InviteHandler struct {
	Invites *service.InviteService
}

func NewInviteHandler(s *service.InviteService) *InviteHandler {
	return &InviteHandler{Invites: s}
}

type createInviteReq struct {
	Code      string     `json:"code"`
	MaxUses   uint32     `json:"max_uses"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type redeemReq struct {
	Code string `json:"code"`
}

// Validate answers whether a code is currently redeemable. Pure read;
// the response carries the display reason on failure.
func (h *InviteHandler) Validate(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Invites.Validate(ctx, code)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "validate failed"})
	}
	if !res.Valid {
		return c.JSON(http.StatusOK, echo.Map{"valid": false, "reason": res.Reason})
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": true})
}

// Redeem consumes one use of a code for the authenticated user. On
// success the user's status is APPROVED and an activity event is
// published; publish failures never fail the request.
func (h *InviteHandler) Redeem(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req redeemReq
	if err := c.Bind(&req); err != nil || req.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ic, err := h.Invites.Redeem(ctx, req.Code, uid)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Reason})
		case errors.Is(err, repository.ErrConflict):
			// Transient loss of the guarded increment; the client may
			// re-validate and retry once.
			return c.JSON(http.StatusConflict, echo.Map{"error": "redemption conflict, retry"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "redeem failed"})
		}
	}

	_ = queue.PublishInviteRedeemed(ctx, queue.InviteRedeemedEvent{
		Code:        ic.Code,
		UserID:      uid,
		CurrentUses: ic.CurrentUses,
		MaxUses:     ic.MaxUses,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"status":       "approved",
		"code":         ic.Code,
		"current_uses": ic.CurrentUses,
		"max_uses":     ic.MaxUses,
	})
}

// Create inserts a new invite code (admin only).
func (h *InviteHandler) Create(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createInviteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if service.NormalizeCode(req.Code) == "" || req.MaxUses == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code and positive max_uses required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Invites.Create(ctx, req.Code, &uid, req.MaxUses, req.ExpiresAt)
	if err != nil {
		if errors.Is(err, repository.ErrCodeExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "code already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create code failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "code": service.NormalizeCode(req.Code)})
}

// Deactivate turns a code off (admin only). Idempotent: repeating the
// call returns 204 again.
func (h *InviteHandler) Deactivate(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Invites.Deactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "code not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deactivate failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
