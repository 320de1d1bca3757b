package service

import (
	"context"
	"errors"
	"time"

	"villageserver/internal/domain"
)

type FriendshipsStore interface {
	GetByPairKey(ctx context.Context, pairKey string) (domain.Friendship, error)
	CreatePending(ctx context.Context, f domain.Friendship) (domain.Friendship, error)
	UpsertAccepted(ctx context.Context, f domain.Friendship, when time.Time) error
	Accept(ctx context.Context, pairKey string, when time.Time) error
	ListForUser(ctx context.Context, userID string) ([]domain.Friendship, error)
	ListAcceptedAmong(ctx context.Context, probe []string) ([]domain.Friendship, error)
}

// ProfilesReader is the read-side every engine that snapshots profiles
// depends on.
type ProfilesReader interface {
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
	GetProfiles(ctx context.Context, userIDs []string) ([]domain.Profile, error)
}

type FriendsService struct {
	Profiles    ProfilesReader
	Friendships FriendshipsStore
	Now         func() time.Time
}

func (s *FriendsService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Request creates a pending friendship from sender to receiver, carrying a
// snapshot of both profiles taken now. The conflict error distinguishes who
// is waiting on whom.
func (s *FriendsService) Request(ctx context.Context, senderID, receiverID string) (domain.Friendship, error) {
	if senderID == receiverID {
		return domain.Friendship{}, domain.NewValidationError(map[string]string{"user_id": "cannot friend yourself"})
	}

	profiles, err := s.Profiles.GetProfiles(ctx, []string{senderID, receiverID})
	if err != nil {
		return domain.Friendship{}, err
	}
	var sender, receiver domain.Profile
	for _, p := range profiles {
		switch p.UserID {
		case senderID:
			sender = p
		case receiverID:
			receiver = p
		}
	}
	if sender.UserID == "" || receiver.UserID == "" {
		return domain.Friendship{}, domain.ErrNotFound
	}

	pairKey := domain.PairKey(senderID, receiverID)
	existing, err := s.Friendships.GetByPairKey(ctx, pairKey)
	if err == nil {
		switch {
		case existing.Status == domain.FriendshipAccepted:
			return domain.Friendship{}, domain.ErrAlreadyFriends
		case existing.SenderID == senderID:
			return domain.Friendship{}, domain.ErrRequestAlreadySent
		default:
			return domain.Friendship{}, domain.ErrRequestFromThem
		}
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Friendship{}, err
	}

	return s.Friendships.CreatePending(ctx, domain.Friendship{
		PairKey:    pairKey,
		SenderID:   senderID,
		Sender:     sender.Snapshot(),
		ReceiverID: receiverID,
		Receiver:   receiver.Snapshot(),
		Status:     domain.FriendshipPending,
		Members:    []string{senderID, receiverID},
	})
}

// Accept flips the pair's friendship from pending to accepted. Only the
// receiver of the request may accept, and the transition is one-way.
func (s *FriendsService) Accept(ctx context.Context, userID, counterpartID string) error {
	pairKey := domain.PairKey(userID, counterpartID)

	f, err := s.Friendships.GetByPairKey(ctx, pairKey)
	if err != nil {
		return err
	}
	if f.Status != domain.FriendshipPending {
		return domain.ErrNoPendingRequest
	}
	if f.ReceiverID != userID {
		return domain.ErrForbidden
	}

	return s.Friendships.Accept(ctx, pairKey, s.now())
}

func (s *FriendsService) AreFriends(ctx context.Context, a, b string) (bool, error) {
	return areFriends(ctx, s.Friendships, a, b)
}

func (s *FriendsService) Overview(ctx context.Context, userID string) (domain.FriendsOverview, error) {
	all, err := s.Friendships.ListForUser(ctx, userID)
	if err != nil {
		return domain.FriendsOverview{}, err
	}

	var out domain.FriendsOverview
	for _, f := range all {
		switch f.Status {
		case domain.FriendshipAccepted:
			if snap, ok := f.CounterpartOf(userID); ok {
				out.Friends = append(out.Friends, snap)
			}
		case domain.FriendshipPending:
			if f.ReceiverID == userID {
				out.Incoming = append(out.Incoming, f)
			} else {
				out.Outgoing = append(out.Outgoing, f)
			}
		}
	}
	return out, nil
}

// AcceptedFriendIDs returns the ids of everyone the user holds an accepted
// friendship with.
func (s *FriendsService) AcceptedFriendIDs(ctx context.Context, userID string) (map[string]bool, error) {
	return acceptedFriendIDs(ctx, s.Friendships, userID)
}
