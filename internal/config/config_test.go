package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "oxiforms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "http://localhost:3000", cfg.FrontendURL)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, 4, cfg.Storage.PoolSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, t.TempDir(), `
http:
  addr: ":9000"
storage:
  driver: badger
  path: /var/lib/oxiforms
log:
  level: debug
`)
	t.Setenv("OXIFORMS_LOG__LEVEL", "warn")
	t.Setenv("OXIFORMS_ADMIN__PASSWORD_HASH", "$2a$10$abc")
	t.Setenv("OXIFORMS_STORAGE__POOL_SIZE", "8")
	t.Setenv("OXIFORMS_JWT__TTL", "2h")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, DriverBadger, cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/oxiforms", cfg.Storage.Path)
	assert.Equal(t, "warn", cfg.Log.Level, "env wins over file")
	assert.Equal(t, "$2a$10$abc", cfg.Admin.PasswordHash)
	assert.Equal(t, 8, cfg.Storage.PoolSize)
	assert.Equal(t, 2*time.Hour, cfg.JWT.TTL)
}

func TestLoad_Invalid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "storage:\n  driver: postgres\nlog:\n  level: loud\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.driver")
	assert.Contains(t, err.Error(), "log.level")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "admin.password_hash", envKey("OXIFORMS_ADMIN__PASSWORD_HASH"))
	assert.Equal(t, "frontend_url", envKey("OXIFORMS_FRONTEND_URL"))
}

func TestMasked(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	m := cfg.Masked()
	assert.Equal(t, "********", m.JWT.Secret)
	assert.Equal(t, "********", m.Admin.Password)
	assert.Empty(t, m.Admin.PasswordHash)
	assert.Equal(t, DevJWTSecret, cfg.JWT.Secret, "receiver is not modified")
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeFile(t, t.TempDir(), "log:\n  level: info\n")
	ctx, cancel := context.WithCancel(context.Background())

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, zap.NewNop(), func(c *Config) {
			select {
			case changes <- c:
			default:
			}
		})
	}()

	// Rewrite until the watcher has started and picked up a change.
	var got *Config
	require.Eventually(t, func() bool {
		if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600); err != nil {
			return false
		}
		select {
		case got = <-changes:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "debug", got.Log.Level)

	cancel()
	require.NoError(t, <-done)
}
