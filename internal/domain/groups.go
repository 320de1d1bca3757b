package domain

import (
	"fmt"
	"time"
)

// Group membership is a clique: every pair of distinct members must hold an
// accepted friendship, enforced at creation and at add-members time.
// MemberProfiles holds one snapshot per member, matched by user id (never by
// list position) when profiles change.
type Group struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Icon           string            `json:"icon,omitempty"`
	Members        []string          `json:"members"`
	MemberProfiles []ProfileSnapshot `json:"member_profiles"`
	CreatedBy      string            `json:"created_by"`
	CreatedAt      time.Time         `json:"created_at"`
}

func (g Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// NonFriendPair names two group candidates without an accepted friendship.
type NonFriendPair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// CliqueError rejects a group operation and carries the offending pairs so
// the caller can see exactly which friendships are missing.
type CliqueError struct {
	Pairs []NonFriendPair
}

func (e *CliqueError) Error() string {
	return fmt.Sprintf("group members must all be friends: %d pair(s) are not", len(e.Pairs))
}
