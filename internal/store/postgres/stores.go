package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"villageserver/internal/domain"
)

// Stores bundles the per-table stores over one pool and carries the
// operations that span tables. Each composite method runs inside a single
// transaction by rebinding the involved stores with WithTx.
type Stores struct {
	pool *pgxpool.Pool

	Users        *UsersStore
	Sessions     *SessionsStore
	Profiles     *ProfilesStore
	Friendships  *FriendshipsStore
	Groups       *GroupsStore
	Invitations  *InvitationsStore
	JoinRequests *JoinRequestsStore
	Updates      *UpdatesStore
	Summaries    *SummariesStore
	Devices      *DevicesStore
}

func NewStores(pool *pgxpool.Pool) *Stores {
	return &Stores{
		pool:         pool,
		Users:        NewUsersStore(pool),
		Sessions:     NewSessionsStore(pool),
		Profiles:     NewProfilesStore(pool),
		Friendships:  NewFriendshipsStore(pool),
		Groups:       NewGroupsStore(pool),
		Invitations:  NewInvitationsStore(pool),
		JoinRequests: NewJoinRequestsStore(pool),
		Updates:      NewUpdatesStore(pool),
		Summaries:    NewSummariesStore(pool),
		Devices:      NewDevicesStore(pool),
	}
}

// SaveProfileWithFanOut persists the profile and, when identity fields
// changed, rewrites every denormalized snapshot of it in the same
// transaction: friendships, group member lists, invitations and join
// requests all see the new identity or none of them do.
func (s *Stores) SaveProfileWithFanOut(ctx context.Context, p domain.Profile, change domain.IdentityChange, when time.Time) error {
	return RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.Profiles.WithTx(tx).SaveProfile(ctx, p, when); err != nil {
			return err
		}
		if change.Empty() {
			return nil
		}
		if err := s.Friendships.WithTx(tx).PropagateSnapshot(ctx, p.UserID, change); err != nil {
			return fmt.Errorf("propagate to friendships: %w", err)
		}
		if err := s.Groups.WithTx(tx).PropagateSnapshot(ctx, p.UserID, change); err != nil {
			return fmt.Errorf("propagate to groups: %w", err)
		}
		if err := s.Invitations.WithTx(tx).PropagateSnapshot(ctx, p.UserID, change); err != nil {
			return fmt.Errorf("propagate to invitations: %w", err)
		}
		if err := s.JoinRequests.WithTx(tx).PropagateSnapshot(ctx, p.UserID, change); err != nil {
			return fmt.Errorf("propagate to join requests: %w", err)
		}
		return nil
	})
}

// CreateGroupWithMembership creates the group and appends its id to every
// member's profile in one transaction.
func (s *Stores) CreateGroupWithMembership(ctx context.Context, g domain.Group) (domain.Group, error) {
	var created domain.Group
	err := RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		created, err = s.Groups.WithTx(tx).CreateGroup(ctx, g)
		if err != nil {
			return err
		}
		profiles := s.Profiles.WithTx(tx)
		for _, m := range created.Members {
			if err := profiles.AppendGroup(ctx, m, created.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Group{}, err
	}
	return created, nil
}

// AddGroupMembers extends the group's member list and stamps the group id
// onto each new member's profile atomically.
func (s *Stores) AddGroupMembers(ctx context.Context, groupID string, memberIDs []string, profiles []domain.ProfileSnapshot) error {
	return RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.Groups.WithTx(tx).AddMembers(ctx, groupID, memberIDs, profiles); err != nil {
			return err
		}
		ps := s.Profiles.WithTx(tx)
		for _, m := range memberIDs {
			if err := ps.AppendGroup(ctx, m, groupID); err != nil {
				return err
			}
		}
		return nil
	})
}

// AcceptJoinRequest marks the join request accepted and establishes (or
// re-establishes) the accepted friendship between requester and receiver in
// one transaction.
func (s *Stores) AcceptJoinRequest(ctx context.Context, requestID string, f domain.Friendship, when time.Time) error {
	return RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.JoinRequests.WithTx(tx).SetStatus(ctx, requestID, domain.JoinRequestAccepted); err != nil {
			return err
		}
		return s.Friendships.WithTx(tx).UpsertAccepted(ctx, f, when)
	})
}

// ResetInvitation discards the sender's current invitation together with all
// pending join requests against it, then installs the fresh one. Requests
// tied to the old invitation id can never be accepted afterwards.
func (s *Stores) ResetInvitation(ctx context.Context, oldID string, fresh domain.Invitation) (domain.Invitation, error) {
	var created domain.Invitation
	err := RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.JoinRequests.WithTx(tx).DeletePendingByInvitation(ctx, oldID); err != nil {
			return err
		}
		if err := s.Invitations.WithTx(tx).DeleteInvitation(ctx, oldID); err != nil {
			return err
		}
		var err error
		created, err = s.Invitations.WithTx(tx).UpsertInvitation(ctx, fresh)
		return err
	})
	if err != nil {
		return domain.Invitation{}, err
	}
	return created, nil
}

// ApplyPairSummaries writes the per-friend rolling summaries and the
// creator's own AI fields as one unit, so a worker crash never leaves the
// profile ahead of the pair documents.
func (s *Stores) ApplyPairSummaries(ctx context.Context, summaries []domain.PairSummary, creatorID, summary, suggestions string, insights domain.Insights, when time.Time) error {
	return RunInTx(ctx, s.pool, func(tx pgx.Tx) error {
		pairs := s.Summaries.WithTx(tx)
		for _, ps := range summaries {
			if err := pairs.UpsertPairSummary(ctx, ps, when); err != nil {
				return err
			}
		}
		return s.Profiles.WithTx(tx).SetAIFields(ctx, creatorID, summary, suggestions, insights, when)
	})
}
