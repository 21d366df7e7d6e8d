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

// stubMatchStore is a minimal in-memory service.MatchStore for
// exercising the HTTP layer without a database.
type stubMatchStore struct {
	mu      sync.Mutex
	matches map[uint64]*model.Match
	nextID  uint64
}

func newStubMatchStore(matches ...model.Match) *stubMatchStore {
	s := &stubMatchStore{matches: make(map[uint64]*model.Match)}
	for i := range matches {
		m := matches[i]
		s.nextID++
		m.ID = s.nextID
		s.matches[m.ID] = &m
	}
	return s
}

func (s *stubMatchStore) GetByID(_ context.Context, id uint64) (model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return model.Match{}, repository.ErrNotFound
	}
	return *m, nil
}

func (s *stubMatchStore) ListActiveByUser(_ context.Context, userID uint64) ([]model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Match
	for _, m := range s.matches {
		if m.Status == model.MatchStatusMatched && (m.User1ID == userID || m.User2ID == userID) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *stubMatchStore) SetUnmatched(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.Status = model.MatchStatusUnmatched
	return nil
}

func (s *stubMatchStore) Create(_ context.Context, user1ID, user2ID uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.matches[s.nextID] = &model.Match{ID: s.nextID, User1ID: user1ID, User2ID: user2ID, Status: model.MatchStatusMatched}
	return s.nextID, nil
}

type stubProfileStore struct{ users map[uint64]model.User }

func (s *stubProfileStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

type stubTypingStore struct {
	mu   sync.Mutex
	rows map[[2]uint64]model.TypingStatus
}

func newStubTypingStore() *stubTypingStore {
	return &stubTypingStore{rows: make(map[[2]uint64]model.TypingStatus)}
}

func (s *stubTypingStore) Upsert(_ context.Context, matchID, userID uint64, isTyping bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[[2]uint64{matchID, userID}] = model.TypingStatus{
		MatchID: matchID, UserID: userID, IsTyping: isTyping, UpdatedAt: time.Now().UTC(),
	}
	return nil
}

func (s *stubTypingStore) GetByMatchAndUser(_ context.Context, matchID, userID uint64) (model.TypingStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.rows[[2]uint64{matchID, userID}]
	if !ok {
		return model.TypingStatus{}, repository.ErrNotFound
	}
	return ts, nil
}

func (s *stubTypingStore) ClearByUser(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, ts := range s.rows {
		if k[1] == userID {
			ts.IsTyping = false
			s.rows[k] = ts
		}
	}
	return nil
}

func newMatchTestHandler(matches ...model.Match) (*MatchHandler, *stubMatchStore, *stubTypingStore) {
	store := newStubMatchStore(matches...)
	users := &stubProfileStore{users: map[uint64]model.User{
		1: {ID: 1, DisplayName: "Ana", UserStatus: model.StatusApproved},
		2: {ID: 2, DisplayName: "Ben", UserStatus: model.StatusApproved},
	}}
	typing := newStubTypingStore()
	return NewMatchHandler(
		service.NewMatchService(store, users),
		service.NewPresenceService(typing, store, 0),
	), store, typing
}

func matchCtx(e *echo.Echo, method, target, body string, uid uint64, matchID string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if matchID != "" {
		c.SetParamNames("id")
		c.SetParamValues(matchID)
	}
	if uid != 0 {
		c.Set("user_id", float64(uid)) // as JWTAuth stores the sub claim
	}
	return c, rec
}

func TestUnmatchForbiddenForNonParty(t *testing.T) {
	h, store, _ := newMatchTestHandler(model.Match{User1ID: 1, User2ID: 2, Status: model.MatchStatusMatched})
	e := echo.New()

	c, rec := matchCtx(e, http.MethodDelete, "/v1/matches/1", "", 3, "1")
	require.NoError(t, h.Unmatch(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The match was untouched.
	m, err := store.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusMatched, m.Status)
}

func TestUnmatchMissingMatch(t *testing.T) {
	h, _, _ := newMatchTestHandler()
	e := echo.New()

	c, rec := matchCtx(e, http.MethodDelete, "/v1/matches/99", "", 1, "99")
	require.NoError(t, h.Unmatch(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnmatchRequiresAuth(t *testing.T) {
	h, _, _ := newMatchTestHandler(model.Match{User1ID: 1, User2ID: 2, Status: model.MatchStatusMatched})
	e := echo.New()

	c, rec := matchCtx(e, http.MethodDelete, "/v1/matches/1", "", 0, "1")
	require.NoError(t, h.Unmatch(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetMatchEndpointRestrictedToParties(t *testing.T) {
	h, _, _ := newMatchTestHandler(model.Match{User1ID: 1, User2ID: 2, Status: model.MatchStatusMatched})
	e := echo.New()

	// Either party may read the match.
	c, rec := matchCtx(e, http.MethodGet, "/v1/matches/1", "", 2, "1")
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ana")
	assert.Contains(t, rec.Body.String(), "Ben")

	// A third user gets 403, not the match body.
	c, rec = matchCtx(e, http.MethodGet, "/v1/matches/1", "", 3, "1")
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Ana")
}

func TestGetMatchEndpointMissingID(t *testing.T) {
	h, _, _ := newMatchTestHandler()
	e := echo.New()

	c, rec := matchCtx(e, http.MethodGet, "/v1/matches/42", "", 1, "42")
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetTypingForbiddenForNonParty(t *testing.T) {
	h, _, typing := newMatchTestHandler(model.Match{User1ID: 1, User2ID: 2, Status: model.MatchStatusMatched})
	e := echo.New()

	c, rec := matchCtx(e, http.MethodPut, "/v1/matches/1/typing", `{"is_typing":true}`, 3, "1")
	require.NoError(t, h.SetTyping(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// No signal was written.
	_, err := typing.GetByMatchAndUser(context.Background(), 1, 3)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSetAndGetTypingThroughHandlers(t *testing.T) {
	h, _, _ := newMatchTestHandler(model.Match{User1ID: 1, User2ID: 2, Status: model.MatchStatusMatched})
	e := echo.New()

	c, rec := matchCtx(e, http.MethodPut, "/v1/matches/1/typing", `{"is_typing":true}`, 1, "1")
	require.NoError(t, h.SetTyping(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	c, rec = matchCtx(e, http.MethodGet, "/v1/matches/1/typing", "", 2, "1")
	require.NoError(t, h.GetTyping(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_typing":true`)
}

func TestGetTypingNonPartyReadsNotFound(t *testing.T) {
	h, _, _ := newMatchTestHandler(model.Match{User1ID: 1, User2ID: 2, Status: model.MatchStatusMatched})
	e := echo.New()

	c, rec := matchCtx(e, http.MethodGet, "/v1/matches/1/typing", "", 3, "1")
	require.NoError(t, h.GetTyping(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEndpointReturnsOnlyCallersMatches(t *testing.T) {
	h, _, _ := newMatchTestHandler(
		model.Match{User1ID: 1, User2ID: 2, Status: model.MatchStatusMatched},
		model.Match{User1ID: 2, User2ID: 5, Status: model.MatchStatusMatched},
	)
	e := echo.New()

	c, rec := matchCtx(e, http.MethodGet, "/v1/matches", "", 1, "")
	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ben")
	assert.NotContains(t, rec.Body.String(), `"match_id":2`)
}
