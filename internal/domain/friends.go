package domain

import "time"

// PairKey returns the canonical order-independent identifier for an
// unordered pair of user ids: PairKey(a, b) == PairKey(b, a).
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "_" + b
}

type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
)

// Friendship is uniquely addressed by the pair key of its two members. The
// sender/receiver snapshots are denormalized copies maintained by the
// profile propagation engine; Members mirrors {SenderID, ReceiverID} for
// array-overlap queries.
type Friendship struct {
	PairKey    string           `json:"-"`
	SenderID   string           `json:"sender_id"`
	Sender     ProfileSnapshot  `json:"sender"`
	ReceiverID string           `json:"receiver_id"`
	Receiver   ProfileSnapshot  `json:"receiver"`
	Status     FriendshipStatus `json:"status"`
	Members    []string         `json:"-"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// CounterpartOf returns the snapshot of the other party, or false if the
// given user is not part of the friendship.
func (f Friendship) CounterpartOf(userID string) (ProfileSnapshot, bool) {
	switch userID {
	case f.SenderID:
		return f.Receiver, true
	case f.ReceiverID:
		return f.Sender, true
	}
	return ProfileSnapshot{}, false
}

type FriendsOverview struct {
	Friends  []ProfileSnapshot `json:"friends"`
	Incoming []Friendship      `json:"incoming_requests"`
	Outgoing []Friendship      `json:"outgoing_requests"`
}
