package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/junkurera13/detour-sub001/internal/model"
	"github.com/junkurera13/detour-sub001/internal/queue"
	"github.com/junkurera13/detour-sub001/internal/repository"
	"github.com/junkurera13/detour-sub001/internal/service"
)

// MatchHandler exposes the match lifecycle and typing presence over
// HTTP. Party authorization lives here, not in the services: before any
// mutation the handler confirms the caller occupies one side of the
// match.
type MatchHandler struct {
	Matches  *service.MatchService
	Presence *service.PresenceService
}

func NewMatchHandler(m *service.MatchService, p *service.PresenceService) *MatchHandler {
	return &MatchHandler{Matches: m, Presence: p}
}

type matchEntryResp struct {
	MatchID   uint64          `json:"match_id"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	OtherUser service.Profile `json:"other_user"`
}

type matchDetailResp struct {
	MatchID   uint64          `json:"match_id"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	User1     service.Profile `json:"user1"`
	User2     service.Profile `json:"user2"`
}

type setTypingReq struct {
	IsTyping bool `json:"is_typing"`
}

type createMatchReq struct {
	User1ID uint64 `json:"user1_id"`
	User2ID uint64 `json:"user2_id"`
}

// loadForParty fetches a match and verifies the caller is one of the two
// parties. Absent ids read as 404; a non-party caller gets 403. When ok
// is false the response has already been written.
func (h *MatchHandler) loadForParty(ctx context.Context, c echo.Context, id, uid uint64) (service.MatchDetail, bool) {
	d, err := h.Matches.GetMatch(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = c.JSON(http.StatusNotFound, echo.Map{"error": "match not found"})
		} else {
			_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "load match failed"})
		}
		return service.MatchDetail{}, false
	}
	if _, ok := d.Match.OtherUser(uid); !ok {
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		return service.MatchDetail{}, false
	}
	return d, true
}

// List returns the caller's active matches, each annotated with the
// counterpart's profile. Order is unspecified.
func (h *MatchHandler) List(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Matches.ListActiveMatches(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list matches failed"})
	}
	out := make([]matchEntryResp, 0, len(entries))
	for _, e := range entries {
		out = append(out, matchEntryResp{
			MatchID:   e.Match.ID,
			Status:    e.Match.Status,
			CreatedAt: e.Match.CreatedAt,
			OtherUser: e.OtherUser,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns a fully hydrated match. Restricted to the two parties.
func (h *MatchHandler) Get(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, ok := h.loadForParty(ctx, c, id, uid)
	if !ok {
		return nil
	}
	return c.JSON(http.StatusOK, matchDetailResp{
		MatchID:   d.Match.ID,
		Status:    d.Match.Status,
		CreatedAt: d.Match.CreatedAt,
		User1:     d.User1,
		User2:     d.User2,
	})
}

// Unmatch moves the match to UNMATCHED. Idempotent: a second call on an
// already-unmatched record also returns 204. Publishes a match.unmatched
// activity event; publish failures never fail the request.
func (h *MatchHandler) Unmatch(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, ok := h.loadForParty(ctx, c, id, uid)
	if !ok {
		return nil
	}
	if err := h.Matches.Unmatch(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unmatch failed"})
	}

	if d.Match.Status == model.MatchStatusMatched {
		_ = queue.PublishMatchUnmatched(ctx, queue.MatchUnmatchedEvent{
			MatchID: id,
			User1ID: d.Match.User1ID,
			User2ID: d.Match.User2ID,
			ActorID: uid,
		})
	}
	return c.NoContent(http.StatusNoContent)
}

// Create seeds a MATCHED pair (admin only). The matching trigger itself
// is external to this service.
func (h *MatchHandler) Create(c echo.Context) error {
	var req createMatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.User1ID == 0 || req.User2ID == 0 || req.User1ID == req.User2ID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "two distinct user ids required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Matches.Create(ctx, req.User1ID, req.User2ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create match failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// SetTyping upserts the caller's typing flag for the match.
func (h *MatchHandler) SetTyping(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req setTypingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, ok := h.loadForParty(ctx, c, id, uid); !ok {
		return nil
	}
	if err := h.Presence.SetTyping(ctx, id, uid, req.IsTyping); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "set typing failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// GetTyping reports whether the caller's counterpart is typing right
// now, with the staleness window applied at query time.
func (h *MatchHandler) GetTyping(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	report, err := h.Presence.GetTypingStatus(ctx, id, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "match not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "get typing failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"is_typing":     report.IsTyping,
		"other_user_id": report.OtherUserID,
	})
}

// ClearTyping forces is_typing=false across all of the caller's matches,
// used when leaving the conversation screen.
func (h *MatchHandler) ClearTyping(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Presence.ClearTyping(ctx, uid); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "clear typing failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
