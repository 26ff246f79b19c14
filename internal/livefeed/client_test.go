package livefeed

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"portfolio/internal/config"
	"portfolio/internal/events"
	"portfolio/internal/models"
	"portfolio/internal/response"
	"portfolio/internal/stream"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSite(t *testing.T, bus *events.Bus, snapshot []models.GuestbookEntry) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/api/guestbook", func(c *gin.Context) { response.Success(c, snapshot) })
	r.GET("/api/guestbook/stream", stream.NewHandler(bus, config.GuestbookConfig{KeepAlive: time.Hour}).Serve)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientSnapshot(t *testing.T) {
	srv := newSite(t, events.NewBus(), []models.GuestbookEntry{*entry("g1", 0)})

	got, err := NewClient(srv.URL+"/", nil).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, ids(got))
}

func TestClientRunAppliesEvents(t *testing.T) {
	bus := events.NewBus()
	srv := newSite(t, bus, []models.GuestbookEntry{*entry("g1", 0)})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var final []models.GuestbookEntry
	err := NewClient(srv.URL, nil).Run(ctx, func(s *State, ev *events.Event) {
		if ev == nil {
			bus.Emit(events.NewReply("g1", reply("r1", "g1", "g1", 1)))
			bus.Emit(events.NewLike("g1", "u2@example.com", events.ActionLike))
			return
		}
		if ev.Type == events.TypeGuestbookLike {
			final = s.Entries()
			cancel()
		}
	})

	assert.True(t, errors.Is(err, context.Canceled))
	require.Len(t, final, 1)
	assert.Equal(t, []string{"r1"}, ids(final[0].Replies))
	assert.Len(t, final[0].Likes, 1)
}
