package utils

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) *PageCache {
	t.Helper()
	c, err := NewPageCache(16)
	require.NoError(t, err)
	return c
}

func TestGetExpires(t *testing.T) {
	c := newCache(t)
	c.Set("k", "v", -time.Second)
	assert.Nil(t, c.Get("k"))

	c.Set("k", "v", time.Minute)
	assert.Equal(t, "v", c.Get("k"))
}

func TestRevalidatePrefix(t *testing.T) {
	c := newCache(t)
	c.Set("/guestbook", 1, time.Minute)
	c.Set("/guestbook?page=2", 2, time.Minute)
	c.Set("/blog", 3, time.Minute)

	c.Revalidate("/guestbook")

	assert.Nil(t, c.Get("/guestbook"))
	assert.Nil(t, c.Get("/guestbook?page=2"))
	assert.Equal(t, 3, c.Get("/blog"))
}

func TestFetchCollapsesConcurrentFills(t *testing.T) {
	c := newCache(t)
	var fills atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Fetch("k", time.Minute, func() (interface{}, error) {
				fills.Add(1)
				<-release
				return "filled", nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "filled", v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), fills.Load())
	assert.Equal(t, "filled", c.Get("k"))
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	c := newCache(t)
	_, err := c.Fetch("k", time.Minute, func() (interface{}, error) {
		return nil, errors.New("boom")
	})
	assert.Error(t, err)
	assert.Nil(t, c.Get("k"))
}

func TestFetchDropsFillRacingRevalidate(t *testing.T) {
	c := newCache(t)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan interface{})
	go func() {
		v, err := c.Fetch("/guestbook", time.Minute, func() (interface{}, error) {
			close(started)
			<-release
			return "stale", nil
		})
		assert.NoError(t, err)
		done <- v
	}()

	<-started
	c.Revalidate("/guestbook")
	close(release)

	assert.Equal(t, "stale", <-done, "the caller still gets its own fill result")
	assert.Nil(t, c.Get("/guestbook"), "a fill that raced a revalidate must not be stored")

	v, err := c.Fetch("/guestbook", time.Minute, func() (interface{}, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, "fresh", c.Get("/guestbook"))
}

func TestFetchAfterRevalidateStartsNewFill(t *testing.T) {
	c := newCache(t)
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	go func() {
		_, _ = c.Fetch("/guestbook", time.Minute, func() (interface{}, error) {
			close(started)
			<-release
			return "stale", nil
		})
	}()

	<-started
	c.Revalidate("/guestbook")

	// 不应等待旧的填充
	v, err := c.Fetch("/guestbook", time.Minute, func() (interface{}, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, "fresh", c.Get("/guestbook"))
}

func TestRevalidateUnrelatedPrefixDropsRacingFill(t *testing.T) {
	c := newCache(t)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Fetch("/guestbook", time.Minute, func() (interface{}, error) {
			close(started)
			<-release
			return "list", nil
		})
	}()

	<-started
	c.Revalidate("/blog")
	close(release)
	<-done

	// generation moved, so the racing fill is dropped even for an unrelated prefix
	assert.Nil(t, c.Get("/guestbook"))
	c.mu.Lock()
	assert.Empty(t, c.inflight)
	c.mu.Unlock()
}
