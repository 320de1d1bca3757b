package domain

import "time"

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// User is the authentication identity. Everything user-facing (username,
// display name, avatar) lives on the Profile, which is created separately.
type User struct {
	ID          string
	Email       string
	Status      UserStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt *time.Time
}

type UserWithPassword struct {
	User
	PasswordHash string
}

type ExternalAccount struct {
	ID         string
	UserID     string
	Provider   string
	ProviderID string
	Email      string
	CreatedAt  time.Time
}

type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

type NotificationSettings struct {
	NudgesEnabled  bool `json:"nudges_enabled"`
	UpdatesEnabled bool `json:"updates_enabled"`
}

// Insights is the AI-derived sub-document attached to a profile.
type Insights struct {
	Text         string    `json:"text,omitempty"`
	LastUpdateID string    `json:"last_update_id,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitzero"`
}

type Profile struct {
	UserID       string               `json:"user_id"`
	Username     string               `json:"username"`
	Name         string               `json:"name"`
	Avatar       string               `json:"avatar,omitempty"`
	Location     string               `json:"location,omitempty"`
	Birthday     string               `json:"birthday,omitempty"`
	Notification NotificationSettings `json:"notification_settings"`
	GroupIDs     []string             `json:"group_ids,omitempty"`
	Summary      string               `json:"summary,omitempty"`
	Suggestions  string               `json:"suggestions,omitempty"`
	Insights     Insights             `json:"insights,omitzero"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// Snapshot is the denormalized copy of a profile carried by friendships,
// invitations, join requests and group member lists.
func (p Profile) Snapshot() ProfileSnapshot {
	return ProfileSnapshot{
		UserID:   p.UserID,
		Username: p.Username,
		Name:     p.Name,
		Avatar:   p.Avatar,
	}
}

type ProfileSnapshot struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
}

// PublicProfile is what a friend may see through /users/{id}/profile.
type PublicProfile struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
	Location string `json:"location,omitempty"`
	Birthday string `json:"birthday,omitempty"`
}

func (p Profile) Public() PublicProfile {
	return PublicProfile{
		UserID:   p.UserID,
		Username: p.Username,
		Name:     p.Name,
		Avatar:   p.Avatar,
		Location: p.Location,
		Birthday: p.Birthday,
	}
}

// ProfilePatch is a partial update. A nil field was not supplied at all; a
// pointer to the empty string clears the field. The identity fields
// (username, name, avatar) are the ones whose change fans out to every
// denormalized snapshot.
type ProfilePatch struct {
	Username     *string
	Name         *string
	Avatar       *string
	Location     *string
	Birthday     *string
	Notification *NotificationSettings
}

// IdentityChange is the subset of a patch that requires snapshot fan-out,
// reduced to the fields that actually differ from the stored profile.
type IdentityChange struct {
	Username *string
	Name     *string
	Avatar   *string
}

func (c IdentityChange) Empty() bool {
	return c.Username == nil && c.Name == nil && c.Avatar == nil
}

type Device struct {
	ID        string    `json:"-"`
	UserID    string    `json:"-"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
