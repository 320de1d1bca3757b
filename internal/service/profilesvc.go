package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"villageserver/internal/domain"
)

type ProfilesStore interface {
	ProfilesReader
	CreateProfile(ctx context.Context, p domain.Profile) (domain.Profile, error)
}

// ProfilesTx saves a profile and fans the identity change out to every
// denormalized snapshot as one unit.
type ProfilesTx interface {
	SaveProfileWithFanOut(ctx context.Context, p domain.Profile, change domain.IdentityChange, when time.Time) error
}

type ProfilesService struct {
	Profiles    ProfilesStore
	Friendships FriendshipsStore
	Tx          ProfilesTx
	Now         func() time.Time
}

func (s *ProfilesService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

var usernameRe = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

func validateUsername(username string) string {
	if username == "" {
		return "required"
	}
	if !usernameRe.MatchString(username) {
		return "must be 3-30 lowercase letters, digits or underscores"
	}
	return ""
}

func validateBirthday(birthday string) string {
	if birthday == "" {
		return ""
	}
	if _, err := time.Parse("2006-01-02", birthday); err != nil {
		return "must be YYYY-MM-DD"
	}
	return ""
}

// Create makes the user's profile. A user has at most one; username is
// globally unique.
func (s *ProfilesService) Create(ctx context.Context, userID string, p domain.Profile) (domain.Profile, error) {
	p.UserID = userID
	p.Username = strings.ToLower(strings.TrimSpace(p.Username))
	p.Name = strings.TrimSpace(p.Name)

	fields := map[string]string{}
	if msg := validateUsername(p.Username); msg != "" {
		fields["username"] = msg
	}
	if p.Name == "" {
		fields["name"] = "required"
	}
	if msg := validateBirthday(p.Birthday); msg != "" {
		fields["birthday"] = msg
	}
	if len(fields) > 0 {
		return domain.Profile{}, domain.NewValidationError(fields)
	}

	now := s.now()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.GroupIDs = nil
	p.Summary = ""
	p.Suggestions = ""
	p.Insights = domain.Insights{}

	return s.Profiles.CreateProfile(ctx, p)
}

func (s *ProfilesService) Get(ctx context.Context, userID string) (domain.Profile, error) {
	return s.Profiles.GetProfile(ctx, userID)
}

// GetPublic returns the reduced view of another user's profile. Only
// accepted friends may look; one's own profile goes through Get.
func (s *ProfilesService) GetPublic(ctx context.Context, callerID, targetID string) (domain.PublicProfile, error) {
	if callerID == targetID {
		return domain.PublicProfile{}, domain.NewValidationError(map[string]string{"user_id": "use /me/profile for your own profile"})
	}

	p, err := s.Profiles.GetProfile(ctx, targetID)
	if err != nil {
		return domain.PublicProfile{}, err
	}

	ok, err := areFriends(ctx, s.Friendships, callerID, targetID)
	if err != nil {
		return domain.PublicProfile{}, err
	}
	if !ok {
		return domain.PublicProfile{}, domain.ErrForbidden
	}
	return p.Public(), nil
}

// Update applies the patch to the stored profile. When any of the identity
// fields (username, name, avatar) actually changes value, the new snapshot
// is propagated to friendships, groups, invitations and join requests in
// the same transaction as the profile write.
func (s *ProfilesService) Update(ctx context.Context, userID string, patch domain.ProfilePatch) (domain.Profile, error) {
	p, err := s.Profiles.GetProfile(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}

	fields := map[string]string{}
	var change domain.IdentityChange

	if patch.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*patch.Username))
		if msg := validateUsername(username); msg != "" {
			fields["username"] = msg
		} else if username != p.Username {
			p.Username = username
			change.Username = &username
		}
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			fields["name"] = "required"
		} else if name != p.Name {
			p.Name = name
			change.Name = &name
		}
	}
	if patch.Avatar != nil && *patch.Avatar != p.Avatar {
		p.Avatar = *patch.Avatar
		change.Avatar = patch.Avatar
	}
	if patch.Location != nil {
		p.Location = *patch.Location
	}
	if patch.Birthday != nil {
		if msg := validateBirthday(*patch.Birthday); msg != "" {
			fields["birthday"] = msg
		} else {
			p.Birthday = *patch.Birthday
		}
	}
	if patch.Notification != nil {
		p.Notification = *patch.Notification
	}
	if len(fields) > 0 {
		return domain.Profile{}, domain.NewValidationError(fields)
	}

	now := s.now()
	p.UpdatedAt = now
	if err := s.Tx.SaveProfileWithFanOut(ctx, p, change, now); err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}
