package service

import (
	"context"
	"errors"

	"github.com/junkurera13/detour-sub001/internal/model"
	"github.com/junkurera13/detour-sub001/internal/repository"
)

// MatchStore is the persistence surface for the symmetric match
// relation. Lookups by user must consider both sides of the pair.
type MatchStore interface {
	GetByID(ctx context.Context, id uint64) (model.Match, error)
	ListActiveByUser(ctx context.Context, userID uint64) ([]model.Match, error)
	SetUnmatched(ctx context.Context, id uint64) error
	Create(ctx context.Context, user1ID, user2ID uint64) (uint64, error)
}

// ProfileStore resolves user ids to profiles for hydration.
type ProfileStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Profile is the slice of a user that match results expose to the
// counterpart. The password hash and email never appear here.
type Profile struct {
	ID          uint64 `json:"id"`
	DisplayName string `json:"display_name"`
	UserStatus  string `json:"user_status"`
}

func profileOf(u model.User) Profile {
	return Profile{ID: u.ID, DisplayName: u.DisplayName, UserStatus: u.UserStatus}
}

// MatchEntry is one element of a user's match list: the match annotated
// with the counterpart's profile.
type MatchEntry struct {
	Match     model.Match
	OtherUser Profile
}

// MatchDetail is a fully hydrated match with both sides resolved.
type MatchDetail struct {
	Match model.Match
	User1 Profile
	User2 Profile
}

// MatchService queries and mutates the match relation and enforces its
// state machine: MATCHED -> UNMATCHED, terminal. Party authorization is
// the caller's responsibility, not enforced here.
type MatchService struct {
	matches MatchStore
	users   ProfileStore
}

func NewMatchService(matches MatchStore, users ProfileStore) *MatchService {
	return &MatchService{matches: matches, users: users}
}

// ListActiveMatches returns every MATCHED pair the user occupies either
// side of, each annotated with the counterpart's profile. The collection
// is unordered and a best-effort snapshot; entries whose counterpart row
// has vanished are skipped rather than failing the whole list.
func (s *MatchService) ListActiveMatches(ctx context.Context, userID uint64) ([]MatchEntry, error) {
	matches, err := s.matches.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries := make([]MatchEntry, 0, len(matches))
	for _, m := range matches {
		otherID, ok := m.OtherUser(userID)
		if !ok {
			continue
		}
		u, err := s.users.GetByID(ctx, otherID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, MatchEntry{Match: m, OtherUser: profileOf(u)})
	}
	return entries, nil
}

// GetMatch hydrates a match with both user profiles. An absent id is
// reported as repository.ErrNotFound, an expected outcome rather than a
// fault.
func (s *MatchService) GetMatch(ctx context.Context, id uint64) (MatchDetail, error) {
	m, err := s.matches.GetByID(ctx, id)
	if err != nil {
		return MatchDetail{}, err
	}
	u1, err := s.users.GetByID(ctx, m.User1ID)
	if err != nil {
		return MatchDetail{}, err
	}
	u2, err := s.users.GetByID(ctx, m.User2ID)
	if err != nil {
		return MatchDetail{}, err
	}
	return MatchDetail{Match: m, User1: profileOf(u1), User2: profileOf(u2)}, nil
}

// Unmatch moves a match to UNMATCHED. Idempotent: unmatching an
// already-unmatched record is not an error, and there is no way back.
func (s *MatchService) Unmatch(ctx context.Context, id uint64) error {
	return s.matches.SetUnmatched(ctx, id)
}

// Create seeds a MATCHED pair. The matching trigger itself (mutual-like
// detection) lives outside this service; this entry point exists for the
// administrative boundary.
func (s *MatchService) Create(ctx context.Context, user1ID, user2ID uint64) (uint64, error) {
	return s.matches.Create(ctx, user1ID, user2ID)
}
