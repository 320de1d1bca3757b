package domain

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
	InvitationExpired  InvitationStatus = "expired"
)

// InvitationTTL is how long an invitation stays acceptable after creation
// or resend. Expiry is corrected lazily on read, not by a sweeper.
const InvitationTTL = 24 * time.Hour

// Invitation is a sender's reusable join token. A sender has at most one
// current invitation; reset mints a new id, which orphans join requests
// made against the old one.
type Invitation struct {
	ID        string           `json:"id"`
	SenderID  string           `json:"sender_id"`
	Sender    ProfileSnapshot  `json:"sender"`
	Status    InvitationStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

func (i Invitation) ExpiredBy(now time.Time) bool {
	return i.Status == InvitationPending && now.After(i.ExpiresAt)
}

type JoinRequestStatus string

const (
	JoinRequestPending  JoinRequestStatus = "pending"
	JoinRequestAccepted JoinRequestStatus = "accepted"
	JoinRequestRejected JoinRequestStatus = "rejected"
)

type JoinRequest struct {
	ID           string            `json:"id"`
	InvitationID string            `json:"invitation_id"`
	RequesterID  string            `json:"requester_id"`
	Requester    ProfileSnapshot   `json:"requester"`
	ReceiverID   string            `json:"receiver_id"`
	Receiver     ProfileSnapshot   `json:"receiver"`
	Status       JoinRequestStatus `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
}
