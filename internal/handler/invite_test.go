package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junkurera13/detour-sub001/internal/model"
	"github.com/junkurera13/detour-sub001/internal/repository"
	"github.com/junkurera13/detour-sub001/internal/service"
)

// stubInviteStore is a minimal in-memory service.InviteStore for
// exercising the HTTP layer without a database.
type stubInviteStore struct {
	mu    sync.Mutex
	codes map[string]*model.InviteCode
}

func newStubInviteStore(codes ...model.InviteCode) *stubInviteStore {
	s := &stubInviteStore{codes: make(map[string]*model.InviteCode)}
	for i := range codes {
		c := codes[i]
		c.ID = uint64(i + 1)
		s.codes[c.Code] = &c
	}
	return s
}

func (s *stubInviteStore) GetByCode(_ context.Context, code string) (model.InviteCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[code]
	if !ok {
		return model.InviteCode{}, repository.ErrNotFound
	}
	return *c, nil
}

func (s *stubInviteStore) Create(_ context.Context, code string, createdBy *uint64, maxUses uint32, expiresAt *time.Time) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[code]; ok {
		return 0, repository.ErrCodeExists
	}
	id := uint64(len(s.codes) + 1)
	s.codes[code] = &model.InviteCode{ID: id, Code: code, CreatedBy: createdBy, MaxUses: maxUses, ExpiresAt: expiresAt, IsActive: true}
	return id, nil
}

func (s *stubInviteStore) SetActive(_ context.Context, id uint64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.ID == id {
			c.IsActive = active
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *stubInviteStore) Redeem(_ context.Context, code string, userID uint64) (model.InviteCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[code]
	if !ok {
		return model.InviteCode{}, repository.ErrNotFound
	}
	if !c.IsActive || c.CurrentUses >= c.MaxUses {
		return model.InviteCode{}, repository.ErrConflict
	}
	c.CurrentUses++
	uid := userID
	c.UsedBy = &uid
	return *c, nil
}

func newInviteTestHandler(codes ...model.InviteCode) *InviteHandler {
	return NewInviteHandler(service.NewInviteService(newStubInviteStore(codes...)))
}

func TestValidateEndpoint(t *testing.T) {
	h := newInviteTestHandler(model.InviteCode{Code: "NOMAD2024", IsActive: true, MaxUses: 1})
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/v1/invites/validate?code=nomad2024", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Validate(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":true}`, rec.Body.String())
}

func TestValidateEndpointReportsReason(t *testing.T) {
	h := newInviteTestHandler(model.InviteCode{Code: "FULL", IsActive: true, MaxUses: 1, CurrentUses: 1})
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/v1/invites/validate?code=FULL", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Validate(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":false,"reason":"exhausted"}`, rec.Body.String())
}

func TestValidateEndpointRequiresCode(t *testing.T) {
	h := newInviteTestHandler()
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/v1/invites/validate", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Validate(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRedeemEndpointRejectsExhaustedCode(t *testing.T) {
	h := newInviteTestHandler(model.InviteCode{Code: "FULL", IsActive: true, MaxUses: 1, CurrentUses: 1})
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/v1/invites/redeem",
		strings.NewReader(`{"code":"FULL"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", float64(7)) // as JWTAuth stores the sub claim

	require.NoError(t, h.Redeem(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "exhausted")
}

func TestRedeemEndpointRequiresAuth(t *testing.T) {
	h := newInviteTestHandler()
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/v1/invites/redeem",
		strings.NewReader(`{"code":"ANY"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Redeem(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateEndpointRejectsWhitespaceCode(t *testing.T) {
	h := newInviteTestHandler()
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/invites",
		strings.NewReader(`{"code":"   ","max_uses":3}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", float64(1))

	// A code that normalizes to empty is bad input, not a server fault.
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeactivateEndpointIsIdempotent(t *testing.T) {
	h := newInviteTestHandler(model.InviteCode{Code: "OFF", IsActive: true, MaxUses: 1})
	e := echo.New()

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodDelete, "/v1/admin/invites/1", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("1")

		require.NoError(t, h.Deactivate(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}
