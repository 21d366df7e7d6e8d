package service

// In-memory store fakes used across the service tests. They mirror the
// MySQL repositories' contract, including the guarded conditional
// update semantics of Redeem: the guard and the mutation happen under
// one lock, so concurrent callers serialize the same way rows do.

import (
	"context"
	"sync"
	"time"

	"github.com/junkurera13/detour-sub001/internal/model"
	"github.com/junkurera13/detour-sub001/internal/repository"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeInviteStore struct {
	mu     sync.Mutex
	codes  map[string]*model.InviteCode
	users  map[uint64]string // user id -> user_status
	nextID uint64
	now    func() time.Time
}

func newFakeInviteStore(now func() time.Time) *fakeInviteStore {
	return &fakeInviteStore{
		codes: make(map[string]*model.InviteCode),
		users: make(map[uint64]string),
		now:   now,
	}
}

func (f *fakeInviteStore) addCode(c model.InviteCode) *model.InviteCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c.ID = f.nextID
	f.codes[c.Code] = &c
	return &c
}

func (f *fakeInviteStore) addUser(id uint64, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = status
}

func (f *fakeInviteStore) userStatus(id uint64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id]
}

func (f *fakeInviteStore) GetByCode(_ context.Context, code string) (model.InviteCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.codes[code]
	if !ok {
		return model.InviteCode{}, repository.ErrNotFound
	}
	return *c, nil
}

func (f *fakeInviteStore) Create(_ context.Context, code string, createdBy *uint64, maxUses uint32, expiresAt *time.Time) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.codes[code]; ok {
		return 0, repository.ErrCodeExists
	}
	f.nextID++
	f.codes[code] = &model.InviteCode{
		ID:        f.nextID,
		Code:      code,
		CreatedBy: createdBy,
		MaxUses:   maxUses,
		ExpiresAt: expiresAt,
		IsActive:  true,
		CreatedAt: f.now().UTC(),
	}
	return f.nextID, nil
}

func (f *fakeInviteStore) SetActive(_ context.Context, id uint64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.codes {
		if c.ID == id {
			c.IsActive = active
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeInviteStore) Redeem(_ context.Context, code string, userID uint64) (model.InviteCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.codes[code]
	if !ok {
		return model.InviteCode{}, repository.ErrNotFound
	}
	now := f.now().UTC()
	if !c.IsActive || (c.ExpiresAt != nil && !c.ExpiresAt.After(now)) || c.CurrentUses >= c.MaxUses {
		return model.InviteCode{}, repository.ErrConflict
	}
	status, ok := f.users[userID]
	if !ok {
		return model.InviteCode{}, repository.ErrInconsistent
	}
	if status == model.StatusApproved {
		return model.InviteCode{}, repository.ErrAlreadyApproved
	}
	c.CurrentUses++
	uid := userID
	c.UsedBy = &uid
	f.users[userID] = model.StatusApproved
	return *c, nil
}

type fakeMatchStore struct {
	mu      sync.Mutex
	matches map[uint64]*model.Match
	nextID  uint64
}

func newFakeMatchStore() *fakeMatchStore {
	return &fakeMatchStore{matches: make(map[uint64]*model.Match)}
}

func (f *fakeMatchStore) add(user1, user2 uint64, status string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.matches[f.nextID] = &model.Match{ID: f.nextID, User1ID: user1, User2ID: user2, Status: status}
	return f.nextID
}

func (f *fakeMatchStore) GetByID(_ context.Context, id uint64) (model.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return model.Match{}, repository.ErrNotFound
	}
	return *m, nil
}

func (f *fakeMatchStore) ListActiveByUser(_ context.Context, userID uint64) ([]model.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Match
	for _, m := range f.matches {
		if m.Status != model.MatchStatusMatched {
			continue
		}
		if m.User1ID == userID || m.User2ID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMatchStore) SetUnmatched(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.Status = model.MatchStatusUnmatched
	return nil
}

func (f *fakeMatchStore) Create(_ context.Context, user1ID, user2ID uint64) (uint64, error) {
	return f.add(user1ID, user2ID, model.MatchStatusMatched), nil
}

type fakeProfileStore struct {
	mu    sync.Mutex
	users map[uint64]model.User
}

func newFakeProfileStore(users ...model.User) *fakeProfileStore {
	f := &fakeProfileStore{users: make(map[uint64]model.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeProfileStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

type typingKey struct {
	matchID uint64
	userID  uint64
}

type fakeTypingStore struct {
	mu   sync.Mutex
	rows map[typingKey]*model.TypingStatus
	now  func() time.Time
}

func newFakeTypingStore(now func() time.Time) *fakeTypingStore {
	return &fakeTypingStore{rows: make(map[typingKey]*model.TypingStatus), now: now}
}

func (f *fakeTypingStore) Upsert(_ context.Context, matchID, userID uint64, isTyping bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := typingKey{matchID, userID}
	if r, ok := f.rows[k]; ok {
		r.IsTyping = isTyping
		r.UpdatedAt = f.now().UTC()
		return nil
	}
	f.rows[k] = &model.TypingStatus{
		ID: uint64(len(f.rows) + 1), MatchID: matchID, UserID: userID,
		IsTyping: isTyping, UpdatedAt: f.now().UTC(),
	}
	return nil
}

func (f *fakeTypingStore) GetByMatchAndUser(_ context.Context, matchID, userID uint64) (model.TypingStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[typingKey{matchID, userID}]
	if !ok {
		return model.TypingStatus{}, repository.ErrNotFound
	}
	return *r, nil
}

func (f *fakeTypingStore) ClearByUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, r := range f.rows {
		if k.userID == userID {
			r.IsTyping = false
			r.UpdatedAt = f.now().UTC()
		}
	}
	return nil
}
