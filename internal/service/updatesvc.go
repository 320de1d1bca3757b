package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"villageserver/internal/domain"
)

type UpdatesStore interface {
	CreateUpdate(ctx context.Context, u domain.Update) (domain.Update, error)
	ListByCreator(ctx context.Context, creatorID string, page domain.Page) ([]domain.Update, error)
	ListVisibleTo(ctx context.Context, token string, page domain.Page) ([]domain.Update, error)
	ListVisibleToAny(ctx context.Context, tokens []string, page domain.Page) ([]domain.Update, error)
	ListByCreatorVisibleTo(ctx context.Context, creatorID, token string, page domain.Page) ([]domain.Update, error)
}

// SummaryEnqueuer hands a freshly created update to the summary pipeline.
type SummaryEnqueuer interface {
	Enqueue(ctx context.Context, updateID string) error
}

// UpdatesService creates updates and serves the read paths over the
// visible_to index. The index is written once at creation time; friendships
// or group memberships formed later never widen an old update's audience.
type UpdatesService struct {
	Profiles    ProfilesReader
	Friendships FriendshipsStore
	Groups      GroupsStore
	Updates     UpdatesStore
	Summaries   SummaryEnqueuer
	Logger      *slog.Logger
	Now         func() time.Time
}

func (s *UpdatesService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *UpdatesService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Create validates the audience and writes the update with its visibility
// tokens. Every listed friend must hold an accepted friendship with the
// creator, and the creator must be a member of every listed group.
func (s *UpdatesService) Create(ctx context.Context, creatorID string, u domain.Update) (domain.Update, error) {
	u.Content = strings.TrimSpace(u.Content)

	fields := map[string]string{}
	if u.Content == "" {
		fields["content"] = "required"
	}
	if len(u.FriendIDs) == 0 && len(u.GroupIDs) == 0 {
		fields["visibility"] = "at least one friend or group required"
	}
	if len(fields) > 0 {
		return domain.Update{}, domain.NewValidationError(fields)
	}

	u.FriendIDs = dedupeWith("", u.FriendIDs)
	u.GroupIDs = dedupeWith("", u.GroupIDs)

	if len(u.FriendIDs) > 0 {
		friends, err := acceptedFriendIDs(ctx, s.Friendships, creatorID)
		if err != nil {
			return domain.Update{}, err
		}
		for _, id := range u.FriendIDs {
			if !friends[id] {
				return domain.Update{}, domain.NewValidationError(map[string]string{"friend_ids": "not a friend: " + id})
			}
		}
	}
	for _, gid := range u.GroupIDs {
		g, err := s.Groups.GetGroup(ctx, gid)
		if err != nil {
			return domain.Update{}, err
		}
		if !g.HasMember(creatorID) {
			return domain.Update{}, domain.NewValidationError(map[string]string{"group_ids": "not a member: " + gid})
		}
	}

	u.ID = uuid.NewString()
	u.CreatedBy = creatorID
	u.VisibleTo = domain.VisibleTo(u.FriendIDs, u.GroupIDs)
	u.CreatedAt = s.now()

	created, err := s.Updates.CreateUpdate(ctx, u)
	if err != nil {
		return domain.Update{}, err
	}

	// Summary generation is asynchronous; the update stands even when the
	// hand-off fails, and the gap shows up in the logs. A nil enqueuer
	// means the pipeline is disabled.
	if s.Summaries != nil {
		if err := s.Summaries.Enqueue(ctx, created.ID); err != nil {
			s.logger().Error("updates: enqueue summary failed", "err", err, "update_id", created.ID)
		}
	}

	return created, nil
}

func (s *UpdatesService) OwnUpdates(ctx context.Context, userID string, page domain.Page) (domain.UpdatesPage, error) {
	page = page.Normalized()
	updates, err := s.Updates.ListByCreator(ctx, userID, page)
	if err != nil {
		return domain.UpdatesPage{}, err
	}
	return domain.NewUpdatesPage(updates, page.Limit), nil
}

// Feed returns updates shared into any of the caller's groups. A caller
// without a profile or without groups gets an empty page.
func (s *UpdatesService) Feed(ctx context.Context, userID string, page domain.Page) (domain.UpdatesPage, error) {
	page = page.Normalized()

	p, err := s.Profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.UpdatesPage{}, nil
		}
		return domain.UpdatesPage{}, err
	}
	if len(p.GroupIDs) == 0 {
		return domain.UpdatesPage{}, nil
	}

	tokens := make([]string, 0, len(p.GroupIDs))
	for _, gid := range p.GroupIDs {
		tokens = append(tokens, domain.GroupToken(gid))
	}

	updates, err := s.Updates.ListVisibleToAny(ctx, tokens, page)
	if err != nil {
		return domain.UpdatesPage{}, err
	}
	return domain.NewUpdatesPage(updates, page.Limit), nil
}

// GroupFeed returns updates shared into one group; members only.
func (s *UpdatesService) GroupFeed(ctx context.Context, callerID, groupID string, page domain.Page) (domain.UpdatesPage, error) {
	g, err := s.Groups.GetGroup(ctx, groupID)
	if err != nil {
		return domain.UpdatesPage{}, err
	}
	if !g.HasMember(callerID) {
		return domain.UpdatesPage{}, domain.ErrForbidden
	}

	page = page.Normalized()
	updates, err := s.Updates.ListVisibleTo(ctx, domain.GroupToken(groupID), page)
	if err != nil {
		return domain.UpdatesPage{}, err
	}
	return domain.NewUpdatesPage(updates, page.Limit), nil
}

// UserUpdates returns the target's updates that were shared to the caller
// directly, i.e. those carrying the caller's friend token.
func (s *UpdatesService) UserUpdates(ctx context.Context, callerID, targetID string, page domain.Page) (domain.UpdatesPage, error) {
	if callerID == targetID {
		return domain.UpdatesPage{}, domain.NewValidationError(map[string]string{"user_id": "use /me/updates for your own updates"})
	}
	if _, err := s.Profiles.GetProfile(ctx, targetID); err != nil {
		return domain.UpdatesPage{}, err
	}

	ok, err := areFriends(ctx, s.Friendships, callerID, targetID)
	if err != nil {
		return domain.UpdatesPage{}, err
	}
	if !ok {
		return domain.UpdatesPage{}, domain.ErrForbidden
	}

	page = page.Normalized()
	updates, err := s.Updates.ListByCreatorVisibleTo(ctx, targetID, domain.FriendToken(callerID), page)
	if err != nil {
		return domain.UpdatesPage{}, err
	}
	return domain.NewUpdatesPage(updates, page.Limit), nil
}

func acceptedFriendIDs(ctx context.Context, store FriendshipsStore, userID string) (map[string]bool, error) {
	all, err := store.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool)
	for _, f := range all {
		if f.Status != domain.FriendshipAccepted {
			continue
		}
		if snap, ok := f.CounterpartOf(userID); ok {
			out[snap.UserID] = true
		}
	}
	return out, nil
}
