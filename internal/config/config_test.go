package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Events.Driver)
	assert.Equal(t, 15*time.Second, cfg.Guestbook.KeepAlive)
	assert.Equal(t, "portfolio:guestbook", cfg.Events.Redis.Channel)
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("EVENTS_DRIVER", "redis")
	t.Setenv("ADMIN_EMAILS", "me@example.com, ops@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "redis", cfg.Events.Driver)
	assert.True(t, cfg.Admin.IsAdminEmail("ME@example.com"))
	assert.True(t, cfg.Admin.IsAdminEmail("ops@example.com"))
	assert.False(t, cfg.Admin.IsAdminEmail("guest@example.com"))
}
