package events

import "portfolio/internal/models"

// Event types pushed to guestbook stream subscribers.
const (
	TypeGuestbookNew   = "guestbook:new"
	TypeGuestbookReply = "guestbook:reply"
	TypeGuestbookLike  = "guestbook:like"
)

// Like actions.
const (
	ActionLike   = "like"
	ActionUnlike = "unlike"
)

// Event is the JSON payload written to the stream. Only the fields belonging
// to Type are set.
type Event struct {
	Type string `json:"type"`

	// guestbook:new
	Entry *models.GuestbookEntry `json:"entry,omitempty"`

	// guestbook:reply
	ParentID string                 `json:"parentId,omitempty"`
	Reply    *models.GuestbookEntry `json:"reply,omitempty"`

	// guestbook:like
	ID        string `json:"id,omitempty"`
	UserEmail string `json:"userEmail,omitempty"`
	Action    string `json:"action,omitempty"`

	// Origin is the relay instance that produced a remote event; empty for
	// events emitted in this process.
	Origin string `json:"-"`
}

func NewEntry(entry *models.GuestbookEntry) Event {
	return Event{Type: TypeGuestbookNew, Entry: entry}
}

func NewReply(parentID string, reply *models.GuestbookEntry) Event {
	return Event{Type: TypeGuestbookReply, ParentID: parentID, Reply: reply}
}

func NewLike(entryID, userEmail, action string) Event {
	return Event{Type: TypeGuestbookLike, ID: entryID, UserEmail: userEmail, Action: action}
}
