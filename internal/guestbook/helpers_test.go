package guestbook

import (
	"testing"

	"portfolio/internal/db"
	"portfolio/internal/events"
	"portfolio/internal/models"
	"portfolio/internal/utils"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordedReply struct {
	recipient string
	replyID   string
}

type fakeNotifier struct {
	sent []recordedReply
}

func (n *fakeNotifier) GuestbookReply(recipient *models.User, reply *models.GuestbookEntry) {
	n.sent = append(n.sent, recordedReply{recipient: recipient.Email, replyID: reply.ID})
}

type fixture struct {
	db       *gorm.DB
	bus      *events.Bus
	cache    *utils.PageCache
	notifier *fakeNotifier
	svc      *Service
	events   []events.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn := db.OpenTest(t)
	cache, err := utils.NewPageCache(16)
	require.NoError(t, err)

	f := &fixture{
		db:       conn,
		bus:      events.NewBus(),
		cache:    cache,
		notifier: &fakeNotifier{},
	}
	f.svc = NewService(conn, f.bus, cache, f.notifier)
	f.bus.Subscribe(func(ev events.Event) { f.events = append(f.events, ev) })
	return f
}

func (f *fixture) user(t *testing.T, name, email string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: email}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

// rawEntry inserts a row directly, bypassing root resolution.
func (f *fixture) rawEntry(t *testing.T, author *models.User, parentID, rootID *string) *models.GuestbookEntry {
	t.Helper()
	e := &models.GuestbookEntry{Message: "m", AuthorID: author.ID, ParentID: parentID, RootID: rootID}
	require.NoError(t, f.db.Create(e).Error)
	return e
}
