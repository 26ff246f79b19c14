package livefeed

import (
	"testing"
	"time"

	"portfolio/internal/events"
	"portfolio/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func entry(id string, minute int) *models.GuestbookEntry {
	return &models.GuestbookEntry{ID: id, Message: id, CreatedAt: base.Add(time.Duration(minute) * time.Minute)}
}

func reply(id, parentID, rootID string, minute int) *models.GuestbookEntry {
	e := entry(id, minute)
	e.ParentID = &parentID
	if rootID != "" {
		e.RootID = &rootID
	}
	return e
}

func ids(entries []models.GuestbookEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestApplyNewReplyLike(t *testing.T) {
	s := New(nil)

	assert.True(t, s.Apply(events.NewEntry(entry("A", 0))))
	assert.True(t, s.Apply(events.NewReply("A", reply("r1", "A", "A", 1))))
	assert.True(t, s.Apply(events.NewLike("A", "u2@example.com", events.ActionLike)))

	got := s.Entries()
	require.Len(t, got, 1)
	assert.Equal(t, []string{"r1"}, ids(got[0].Replies))
	require.Len(t, got[0].Likes, 1)
	assert.Empty(t, got[0].Likes[0].ID)
	assert.Equal(t, "u2@example.com", got[0].Likes[0].User.Email)
}

func TestApplyDuplicateNewIgnored(t *testing.T) {
	s := New(nil)
	s.Apply(events.NewEntry(entry("A", 0)))

	assert.False(t, s.Apply(events.NewEntry(entry("A", 0))))
	assert.Len(t, s.Entries(), 1)
}

func TestApplyNewPrepends(t *testing.T) {
	s := New([]models.GuestbookEntry{*entry("old", 0)})
	s.Apply(events.NewEntry(entry("new", 5)))

	assert.Equal(t, []string{"new", "old"}, ids(s.Entries()))
}

func TestLikeThenUnlike(t *testing.T) {
	s := New([]models.GuestbookEntry{*entry("g1", 0)})

	s.Apply(events.NewLike("g1", "u2@example.com", events.ActionLike))
	assert.False(t, s.Apply(events.NewLike("g1", "u2@example.com", events.ActionLike)))
	assert.Len(t, s.Entries()[0].Likes, 1)

	assert.True(t, s.Apply(events.NewLike("g1", "u2@example.com", events.ActionUnlike)))
	assert.Empty(t, s.Entries()[0].Likes)
}

func TestLikeOnNestedReply(t *testing.T) {
	root := entry("g1", 0)
	root.Replies = []models.GuestbookEntry{*reply("r1", "g1", "g1", 1)}
	s := New([]models.GuestbookEntry{*root})

	assert.True(t, s.Apply(events.NewLike("r1", "u1@example.com", events.ActionLike)))
	got := s.Entries()[0]
	assert.Empty(t, got.Likes)
	assert.Len(t, got.Replies[0].Likes, 1)
}

func TestUnlikeRemovesServerLike(t *testing.T) {
	root := entry("g1", 0)
	root.Likes = []models.Like{{ID: "l1", User: models.User{Email: "u2@example.com"}}}
	initial := []models.GuestbookEntry{*root}
	s := New(initial)

	s.Apply(events.NewLike("g1", "u2@example.com", events.ActionUnlike))
	assert.Empty(t, s.Entries()[0].Likes)
	assert.Len(t, initial[0].Likes, 1)
}

func TestReplyToReplyNestsUnderParent(t *testing.T) {
	s := New(nil)
	s.Apply(events.NewEntry(entry("g1", 0)))
	s.Apply(events.NewReply("g1", reply("r1", "g1", "g1", 1)))
	s.Apply(events.NewReply("g1", reply("r3", "g1", "g1", 2)))
	s.Apply(events.NewReply("r1", reply("r2", "r1", "g1", 3)))

	assert.Equal(t, []string{"r1", "r2", "r3"}, ids(s.Entries()[0].Replies))
}

func TestReplyWithoutRootIDFallsBackToParent(t *testing.T) {
	s := New(nil)
	s.Apply(events.NewEntry(entry("g1", 0)))
	s.Apply(events.NewEntry(entry("g2", 1)))
	s.Apply(events.NewReply("g1", reply("r1", "g1", "", 2)))
	assert.True(t, s.Apply(events.NewReply("r1", reply("r2", "r1", "", 3))))

	got := s.Entries()
	assert.Empty(t, got[0].Replies)
	assert.Equal(t, []string{"r1", "r2"}, ids(got[1].Replies))
}

func TestReplyForUnknownThreadIgnored(t *testing.T) {
	s := New([]models.GuestbookEntry{*entry("g1", 0)})
	assert.False(t, s.Apply(events.NewReply("elsewhere", reply("r1", "elsewhere", "other", 1))))
}

func TestDuplicateReplyIgnored(t *testing.T) {
	s := New([]models.GuestbookEntry{*entry("g1", 0)})
	s.Apply(events.NewReply("g1", reply("r1", "g1", "g1", 1)))
	assert.False(t, s.Apply(events.NewReply("g1", reply("r1", "g1", "g1", 1))))
	assert.Len(t, s.Entries()[0].Replies, 1)
}

func TestOrderThread(t *testing.T) {
	replies := []models.GuestbookEntry{
		*reply("b", "g1", "g1", 2),
		*reply("a1", "a", "g1", 3),
		*reply("orphan", "gone", "g1", 0),
		*reply("a", "g1", "g1", 1),
		*reply("b1", "b", "g1", 5),
		*reply("a2", "a", "g1", 4),
	}

	got := OrderThread("g1", replies)
	assert.Equal(t, []string{"a", "a1", "a2", "b", "b1", "orphan"}, ids(got))
}

func TestOrderThreadEmpty(t *testing.T) {
	assert.Empty(t, OrderThread("g1", nil))
}
