package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"portfolio/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func startRelay(t *testing.T, s *miniredis.Miniredis, bus *Bus) *RedisRelay {
	t.Helper()
	relay, err := NewRedisRelay(bus, config.RedisConfig{Address: s.Addr(), Channel: "test:guestbook"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, relay.Start(ctx))
	t.Cleanup(func() {
		cancel()
		relay.Close()
	})
	return relay
}

func TestRelayForwardsBetweenInstances(t *testing.T) {
	s := miniredis.RunT(t)

	busA, busB := NewBus(), NewBus()
	startRelay(t, s, busA)
	startRelay(t, s, busB)

	var onA, onB recorder
	busA.Subscribe(onA.handle)
	busB.Subscribe(onB.handle)

	busA.Emit(NewLike("g1", "u2@example.com", ActionLike))

	require.Eventually(t, func() bool { return onB.len() == 1 }, 2*time.Second, 10*time.Millisecond)

	onB.mu.Lock()
	got := onB.events[0]
	onB.mu.Unlock()
	assert.Equal(t, TypeGuestbookLike, got.Type)
	assert.Equal(t, "g1", got.ID)
	assert.NotEmpty(t, got.Origin)

	// The origin instance must not see its own event twice.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, onA.len())
}

func TestNewRedisRelayFailsWithoutServer(t *testing.T) {
	_, err := NewRedisRelay(NewBus(), config.RedisConfig{Address: "127.0.0.1:1"})
	assert.Error(t, err)
}
