package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"villageserver/internal/domain"
)

// cliqueProbeBatch caps how many member ids a single overlap query probes
// for. Validation partitions the candidate set and unions the results, so
// the pair check sees every accepted friendship among the members.
const cliqueProbeBatch = 10

type GroupsStore interface {
	GetGroup(ctx context.Context, id string) (domain.Group, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Group, error)
}

// GroupsTx is the transactional slice of the store layer the groups engine
// needs: membership writes touch both the group row and member profiles.
type GroupsTx interface {
	CreateGroupWithMembership(ctx context.Context, g domain.Group) (domain.Group, error)
	AddGroupMembers(ctx context.Context, groupID string, memberIDs []string, profiles []domain.ProfileSnapshot) error
}

type GroupsService struct {
	Profiles    ProfilesReader
	Friendships FriendshipsStore
	Groups      GroupsStore
	Tx          GroupsTx
	Now         func() time.Time
}

func (s *GroupsService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create validates that the creator plus the invited members form a clique
// of accepted friendships, then creates the group and stamps it onto every
// member's profile.
func (s *GroupsService) Create(ctx context.Context, creatorID, name, icon string, memberIDs []string) (domain.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Group{}, domain.NewValidationError(map[string]string{"name": "required"})
	}

	members := dedupeWith(creatorID, memberIDs)
	profiles, err := s.memberProfiles(ctx, members)
	if err != nil {
		return domain.Group{}, err
	}

	if missing, err := s.missingFriendships(ctx, members, nil); err != nil {
		return domain.Group{}, err
	} else if len(missing) > 0 {
		return domain.Group{}, &domain.CliqueError{Pairs: missing}
	}

	return s.Tx.CreateGroupWithMembership(ctx, domain.Group{
		ID:             uuid.NewString(),
		Name:           name,
		Icon:           icon,
		Members:        members,
		MemberProfiles: profiles,
		CreatedBy:      creatorID,
		CreatedAt:      s.now(),
	})
}

// AddMembers admits new members to an existing group. Each new member must
// be friends with everyone already inside and with each other; pairs made
// only of existing members were validated when they joined and are not
// re-checked, so a later unfriend between them cannot block admission.
func (s *GroupsService) AddMembers(ctx context.Context, callerID, groupID string, memberIDs []string) (domain.Group, error) {
	g, err := s.Groups.GetGroup(ctx, groupID)
	if err != nil {
		return domain.Group{}, err
	}
	if !g.HasMember(callerID) {
		return domain.Group{}, domain.ErrForbidden
	}

	var added []string
	for _, id := range dedupeWith("", memberIDs) {
		if id != "" && !g.HasMember(id) {
			added = append(added, id)
		}
	}
	if len(added) == 0 {
		return g, nil
	}

	profiles, err := s.memberProfiles(ctx, added)
	if err != nil {
		return domain.Group{}, err
	}

	union := append(append([]string{}, g.Members...), added...)
	if missing, err := s.missingFriendships(ctx, union, added); err != nil {
		return domain.Group{}, err
	} else if len(missing) > 0 {
		return domain.Group{}, &domain.CliqueError{Pairs: missing}
	}

	if err := s.Tx.AddGroupMembers(ctx, groupID, added, profiles); err != nil {
		return domain.Group{}, err
	}
	return s.Groups.GetGroup(ctx, groupID)
}

func (s *GroupsService) Get(ctx context.Context, callerID, groupID string) (domain.Group, error) {
	g, err := s.Groups.GetGroup(ctx, groupID)
	if err != nil {
		return domain.Group{}, err
	}
	if !g.HasMember(callerID) {
		return domain.Group{}, domain.ErrForbidden
	}
	return g, nil
}

func (s *GroupsService) ListForUser(ctx context.Context, userID string) ([]domain.Group, error) {
	return s.Groups.ListForUser(ctx, userID)
}

// Members returns the stored member snapshots; only members may look.
func (s *GroupsService) Members(ctx context.Context, callerID, groupID string) ([]domain.ProfileSnapshot, error) {
	g, err := s.Get(ctx, callerID, groupID)
	if err != nil {
		return nil, err
	}
	return g.MemberProfiles, nil
}

// missingFriendships returns every checked pair of candidate members
// without an accepted friendship. With a nil touching set all n*(n-1)/2
// pairs are checked; otherwise only pairs with at least one endpoint in
// touching. Accepted pairs are collected by probing the friendship index
// in batches.
func (s *GroupsService) missingFriendships(ctx context.Context, members, touching []string) ([]domain.NonFriendPair, error) {
	accepted := make(map[string]bool)
	for start := 0; start < len(members); start += cliqueProbeBatch {
		end := start + cliqueProbeBatch
		if end > len(members) {
			end = len(members)
		}
		batch, err := s.Friendships.ListAcceptedAmong(ctx, members[start:end])
		if err != nil {
			return nil, err
		}
		for _, f := range batch {
			accepted[f.PairKey] = true
		}
	}

	check := func(string, string) bool { return true }
	if touching != nil {
		inTouching := make(map[string]bool, len(touching))
		for _, id := range touching {
			inTouching[id] = true
		}
		check = func(a, b string) bool { return inTouching[a] || inTouching[b] }
	}

	var missing []domain.NonFriendPair
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			if !check(members[i], members[j]) {
				continue
			}
			if !accepted[domain.PairKey(members[i], members[j])] {
				missing = append(missing, domain.NonFriendPair{A: members[i], B: members[j]})
			}
		}
	}
	return missing, nil
}

func (s *GroupsService) memberProfiles(ctx context.Context, memberIDs []string) ([]domain.ProfileSnapshot, error) {
	profiles, err := s.Profiles.GetProfiles(ctx, memberIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.UserID] = p
	}

	snaps := make([]domain.ProfileSnapshot, 0, len(memberIDs))
	for _, id := range memberIDs {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("member %s: %w", id, domain.ErrNotFound)
		}
		snaps = append(snaps, p.Snapshot())
	}
	return snaps, nil
}

// dedupeWith returns first (when non-empty) followed by the rest with
// duplicates and repeats of first removed, preserving order.
func dedupeWith(first string, rest []string) []string {
	seen := make(map[string]bool)
	var out []string
	if first != "" {
		seen[first] = true
		out = append(out, first)
	}
	for _, id := range rest {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
