package domain

import "time"

// Visibility tokens stored in an update's visible_to index. The index is a
// snapshot taken at creation time: later friend or group changes never
// rewrite it.
const (
	friendTokenPrefix = "friend:"
	groupTokenPrefix  = "group:"
)

func FriendToken(userID string) string { return friendTokenPrefix + userID }
func GroupToken(groupID string) string { return groupTokenPrefix + groupID }

// VisibleTo derives the visibility index for an update: one friend token per
// visible friend plus one group token per target group.
func VisibleTo(friendIDs, groupIDs []string) []string {
	out := make([]string, 0, len(friendIDs)+len(groupIDs))
	for _, f := range friendIDs {
		out = append(out, FriendToken(f))
	}
	for _, g := range groupIDs {
		out = append(out, GroupToken(g))
	}
	return out
}

// Update is immutable once written; visible_to never leaves the server.
type Update struct {
	ID        string    `json:"id"`
	CreatedBy string    `json:"created_by"`
	Content   string    `json:"content"`
	Sentiment string    `json:"sentiment,omitempty"`
	FriendIDs []string  `json:"friend_ids,omitempty"`
	GroupIDs  []string  `json:"group_ids,omitempty"`
	VisibleTo []string  `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Page is a cursor-pagination request: items strictly older than After,
// newest first.
type Page struct {
	Limit int
	After *time.Time
}

const (
	PageLimitDefault = 20
	PageLimitMax     = 100
)

func (p Page) Normalized() Page {
	if p.Limit <= 0 {
		p.Limit = PageLimitDefault
	}
	if p.Limit > PageLimitMax {
		p.Limit = PageLimitMax
	}
	return p
}

// UpdatesPage carries the next cursor when the page came back full. A page
// of exactly Limit items implies there may be more; a short page ends the
// sequence.
type UpdatesPage struct {
	Updates    []Update   `json:"updates"`
	NextCursor *time.Time `json:"next_cursor,omitempty"`
}

func NewUpdatesPage(updates []Update, limit int) UpdatesPage {
	page := UpdatesPage{Updates: updates}
	if len(updates) == limit && limit > 0 {
		last := updates[len(updates)-1].CreatedAt
		page.NextCursor = &last
	}
	return page
}
