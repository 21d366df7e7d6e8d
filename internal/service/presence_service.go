package service

import (
	"context"
	"errors"
	"time"

	"github.com/junkurera13/detour-sub001/internal/model"
	"github.com/junkurera13/detour-sub001/internal/repository"
)

// DefaultTypingStaleness is how long a written typing signal counts as
// live without a refresh. The window is evaluated at query time, so a
// stale "true" flag self-expires with no cleanup job.
const DefaultTypingStaleness = 5 * time.Second

// TypingStore is the persistence surface for typing signals: upsert on
// the (match, user) pair, point reads, and a bulk clear via the user
// index.
type TypingStore interface {
	Upsert(ctx context.Context, matchID, userID uint64, isTyping bool) error
	GetByMatchAndUser(ctx context.Context, matchID, userID uint64) (model.TypingStatus, error)
	ClearByUser(ctx context.Context, userID uint64) error
}

// MatchResolver is the subset of match lookup the presence tracker needs
// to find the counterpart of a conversation.
type MatchResolver interface {
	GetByID(ctx context.Context, id uint64) (model.Match, error)
}

// TypingReport is the derived read returned by GetTypingStatus.
type TypingReport struct {
	IsTyping    bool
	OtherUserID uint64
}

// PresenceService records and reports short-lived typing indicators per
// (match, user) pair. Staleness is a named configuration value, not a
// literal in the logic.
type PresenceService struct {
	typing    TypingStore
	matches   MatchResolver
	staleness time.Duration
	now       func() time.Time
}

// NewPresenceService builds a tracker with the given staleness window.
// A non-positive window falls back to DefaultTypingStaleness.
func NewPresenceService(typing TypingStore, matches MatchResolver, staleness time.Duration) *PresenceService {
	if staleness <= 0 {
		staleness = DefaultTypingStaleness
	}
	return &PresenceService{typing: typing, matches: matches, staleness: staleness, now: time.Now}
}

// SetTyping upserts the typing flag for the pair, refreshing the write
// timestamp to call time even when the flag value is unchanged.
func (s *PresenceService) SetTyping(ctx context.Context, matchID, userID uint64, isTyping bool) error {
	return s.typing.Upsert(ctx, matchID, userID, isTyping)
}

// GetTypingStatus resolves the match to find the caller's counterpart
// and reports whether that counterpart is typing right now: the stored
// flag must be true AND written within the staleness window of the call.
// A missing match is reported as repository.ErrNotFound; a pair that has
// never written a signal reads as not typing.
func (s *PresenceService) GetTypingStatus(ctx context.Context, matchID, currentUserID uint64) (TypingReport, error) {
	m, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return TypingReport{}, err
	}
	otherID, ok := m.OtherUser(currentUserID)
	if !ok {
		return TypingReport{}, repository.ErrNotFound
	}
	ts, err := s.typing.GetByMatchAndUser(ctx, matchID, otherID)
	if errors.Is(err, repository.ErrNotFound) {
		return TypingReport{IsTyping: false, OtherUserID: otherID}, nil
	}
	if err != nil {
		return TypingReport{}, err
	}
	live := ts.IsTyping && s.now().UTC().Sub(ts.UpdatedAt) <= s.staleness
	return TypingReport{IsTyping: live, OtherUserID: otherID}, nil
}

// ClearTyping forces is_typing=false across all of the user's pairs in
// one operation, used when the user leaves the conversation context.
// Each row patch is independent; partial completion is acceptable.
func (s *PresenceService) ClearTyping(ctx context.Context, userID uint64) error {
	return s.typing.ClearByUser(ctx, userID)
}
