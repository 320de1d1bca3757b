package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"villageserver/internal/domain"
)

type InvitationsStore interface {
	UpsertInvitation(ctx context.Context, inv domain.Invitation) (domain.Invitation, error)
	GetInvitation(ctx context.Context, id string) (domain.Invitation, error)
	ListBySender(ctx context.Context, senderID string) ([]domain.Invitation, error)
	MarkExpired(ctx context.Context, ids []string) error
	Refresh(ctx context.Context, id string, createdAt, expiresAt time.Time) error
}

type JoinRequestsStore interface {
	CreateJoinRequest(ctx context.Context, jr domain.JoinRequest) (domain.JoinRequest, error)
	GetJoinRequest(ctx context.Context, id string) (domain.JoinRequest, error)
	ListForReceiver(ctx context.Context, receiverID string) ([]domain.JoinRequest, error)
	SetStatus(ctx context.Context, id string, status domain.JoinRequestStatus) error
}

type InvitesTx interface {
	AcceptJoinRequest(ctx context.Context, requestID string, f domain.Friendship, when time.Time) error
	ResetInvitation(ctx context.Context, oldID string, fresh domain.Invitation) (domain.Invitation, error)
}

// InvitesService runs the invitation lifecycle: a sender keeps one reusable
// invitation, outsiders file join requests against it, and accepting a
// request establishes the friendship.
type InvitesService struct {
	Profiles     ProfilesReader
	Friendships  FriendshipsStore
	Invitations  InvitationsStore
	JoinRequests JoinRequestsStore
	Tx           InvitesTx
	Now          func() time.Time
}

func (s *InvitesService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create returns the sender's invitation, minting one if none exists and
// refreshing the existing one in place otherwise. The id survives a
// refresh, so links already shared keep working.
func (s *InvitesService) Create(ctx context.Context, senderID string) (domain.Invitation, error) {
	sender, err := s.Profiles.GetProfile(ctx, senderID)
	if err != nil {
		return domain.Invitation{}, err
	}

	now := s.now()
	return s.Invitations.UpsertInvitation(ctx, domain.Invitation{
		ID:        uuid.NewString(),
		SenderID:  senderID,
		Sender:    sender.Snapshot(),
		Status:    domain.InvitationPending,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.InvitationTTL),
	})
}

// List returns the sender's invitations with expiry corrected lazily: any
// pending invitation past its TTL is flipped to expired before it is
// returned.
func (s *InvitesService) List(ctx context.Context, senderID string) ([]domain.Invitation, error) {
	invs, err := s.Invitations.ListBySender(ctx, senderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var expired []string
	for i, inv := range invs {
		if inv.ExpiredBy(now) {
			expired = append(expired, inv.ID)
			invs[i].Status = domain.InvitationExpired
		}
	}
	if err := s.Invitations.MarkExpired(ctx, expired); err != nil {
		return nil, err
	}
	return invs, nil
}

// Resend restarts the invitation's TTL without changing its id.
func (s *InvitesService) Resend(ctx context.Context, senderID, invitationID string) (domain.Invitation, error) {
	inv, err := s.Invitations.GetInvitation(ctx, invitationID)
	if err != nil {
		return domain.Invitation{}, err
	}
	if inv.SenderID != senderID {
		return domain.Invitation{}, domain.ErrForbidden
	}

	now := s.now()
	if err := s.Invitations.Refresh(ctx, invitationID, now, now.Add(domain.InvitationTTL)); err != nil {
		return domain.Invitation{}, err
	}
	inv.Status = domain.InvitationPending
	inv.CreatedAt = now
	inv.ExpiresAt = now.Add(domain.InvitationTTL)
	return inv, nil
}

// Reset replaces the invitation with a fresh id and discards every pending
// join request filed against the old one. Anyone holding the old link is
// locked out.
func (s *InvitesService) Reset(ctx context.Context, senderID, invitationID string) (domain.Invitation, error) {
	inv, err := s.Invitations.GetInvitation(ctx, invitationID)
	if err != nil {
		return domain.Invitation{}, err
	}
	if inv.SenderID != senderID {
		return domain.Invitation{}, domain.ErrForbidden
	}

	sender, err := s.Profiles.GetProfile(ctx, senderID)
	if err != nil {
		return domain.Invitation{}, err
	}

	now := s.now()
	return s.Tx.ResetInvitation(ctx, invitationID, domain.Invitation{
		ID:        uuid.NewString(),
		SenderID:  senderID,
		Sender:    sender.Snapshot(),
		Status:    domain.InvitationPending,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.InvitationTTL),
	})
}

// RequestJoin files a join request from requester against an invitation.
// The invitation must still be pending and inside its TTL; an invitation
// found expired here is corrected in storage on the spot.
func (s *InvitesService) RequestJoin(ctx context.Context, requesterID, invitationID string) (domain.JoinRequest, error) {
	inv, err := s.Invitations.GetInvitation(ctx, invitationID)
	if err != nil {
		return domain.JoinRequest{}, err
	}

	now := s.now()
	if inv.ExpiredBy(now) {
		if err := s.Invitations.MarkExpired(ctx, []string{inv.ID}); err != nil {
			return domain.JoinRequest{}, err
		}
		return domain.JoinRequest{}, domain.ErrInvitationNotActive
	}
	if inv.Status != domain.InvitationPending {
		return domain.JoinRequest{}, domain.ErrInvitationNotActive
	}
	if inv.SenderID == requesterID {
		return domain.JoinRequest{}, domain.NewValidationError(map[string]string{"invitation_id": "cannot join your own invitation"})
	}

	already, err := areFriends(ctx, s.Friendships, requesterID, inv.SenderID)
	if err != nil {
		return domain.JoinRequest{}, err
	}
	if already {
		return domain.JoinRequest{}, domain.ErrAlreadyFriends
	}

	requester, err := s.Profiles.GetProfile(ctx, requesterID)
	if err != nil {
		return domain.JoinRequest{}, err
	}

	return s.JoinRequests.CreateJoinRequest(ctx, domain.JoinRequest{
		ID:           uuid.NewString(),
		InvitationID: inv.ID,
		RequesterID:  requesterID,
		Requester:    requester.Snapshot(),
		ReceiverID:   inv.SenderID,
		Receiver:     inv.Sender,
		Status:       domain.JoinRequestPending,
		CreatedAt:    now,
	})
}

// PendingRequests lists the join requests waiting on the receiver.
func (s *InvitesService) PendingRequests(ctx context.Context, receiverID string) ([]domain.JoinRequest, error) {
	return s.JoinRequests.ListForReceiver(ctx, receiverID)
}

// AcceptJoin marks the request accepted and creates the friendship in the
// same transaction. Accepting an already-accepted request is a no-op
// success: the friendship write is an upsert, so duplicate deliveries (or
// a racing direct friend request) converge on one accepted pair.
func (s *InvitesService) AcceptJoin(ctx context.Context, receiverID, requestID string) error {
	jr, err := s.JoinRequests.GetJoinRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if jr.ReceiverID != receiverID {
		return domain.ErrForbidden
	}
	switch jr.Status {
	case domain.JoinRequestAccepted:
		return nil
	case domain.JoinRequestRejected:
		return domain.ErrNoPendingRequest
	}

	// The request must still point at the receiver's current invitation;
	// a reset in between orphans it.
	inv, err := s.Invitations.GetInvitation(ctx, jr.InvitationID)
	if err != nil {
		return err
	}
	if inv.SenderID != receiverID {
		return domain.ErrForbidden
	}

	return s.Tx.AcceptJoinRequest(ctx, requestID, domain.Friendship{
		PairKey:    domain.PairKey(jr.RequesterID, jr.ReceiverID),
		SenderID:   jr.RequesterID,
		Sender:     jr.Requester,
		ReceiverID: jr.ReceiverID,
		Receiver:   jr.Receiver,
		Status:     domain.FriendshipAccepted,
		Members:    []string{jr.RequesterID, jr.ReceiverID},
	}, s.now())
}

func (s *InvitesService) RejectJoin(ctx context.Context, receiverID, requestID string) error {
	if _, err := s.pendingRequestFor(ctx, receiverID, requestID); err != nil {
		return err
	}
	return s.JoinRequests.SetStatus(ctx, requestID, domain.JoinRequestRejected)
}

func (s *InvitesService) pendingRequestFor(ctx context.Context, receiverID, requestID string) (domain.JoinRequest, error) {
	jr, err := s.JoinRequests.GetJoinRequest(ctx, requestID)
	if err != nil {
		return domain.JoinRequest{}, err
	}
	if jr.ReceiverID != receiverID {
		return domain.JoinRequest{}, domain.ErrForbidden
	}
	if jr.Status != domain.JoinRequestPending {
		return domain.JoinRequest{}, domain.ErrNoPendingRequest
	}
	return jr, nil
}

func areFriends(ctx context.Context, store FriendshipsStore, a, b string) (bool, error) {
	f, err := store.GetByPairKey(ctx, domain.PairKey(a, b))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return f.Status == domain.FriendshipAccepted, nil
}
