package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func parse(t *testing.T, args ...string) Config {
	t.Helper()
	var cfg Config
	app := cli.NewApp()
	app.Flags = RegisterFlags(nil)
	app.Action = func(c *cli.Context) error {
		cfg = New(c)
		return nil
	}
	require.NoError(t, app.Run(append([]string{"movies"}, args...)))
	return cfg
}

// unsetEnv removes key for the duration of the test.  t.Setenv registers
// the restore.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "APP_ENV", "ALLOWED_ORIGINS", "DB_HOST", "CACHE_ENABLED", "CACHE_METHODS", "CACHE_TTL", "EVENTS_ENABLED"} {
		unsetEnv(t, k)
	}
	cfg := parse(t)
	require.Equal(t, "1234", cfg.Port)
	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, DefaultAllowedOrigins, cfg.AllowedOrigins)
	require.False(t, cfg.DB.Enabled())
	require.False(t, cfg.Cache.Enabled)
	require.True(t, cfg.Cache.Methods["GET"])
	require.Equal(t, 30*time.Second, cfg.Cache.TTL)
	require.False(t, cfg.EventsEnabled)
}

func TestFlagsOverrideDefaults(t *testing.T) {
	unsetEnv(t, "DB_PORT")
	cfg := parse(t,
		"--port", "9000",
		"--allowed-origins", " http://a.test , http://b.test,",
		"--db-host", "db.local",
		"--cache-enabled",
		"--cache-methods", "get,head",
	)
	require.Equal(t, "9000", cfg.Port)
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	require.True(t, cfg.DB.Enabled())
	require.Equal(t, "3306", cfg.DB.Port)
	require.True(t, cfg.Cache.Enabled)
	require.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Cache.Methods)
}

func TestEnvironmentFallback(t *testing.T) {
	t.Setenv("PORT", "4321")
	t.Setenv("EVENTS_ENABLED", "true")
	cfg := parse(t)
	require.Equal(t, "4321", cfg.Port)
	require.True(t, cfg.EventsEnabled)
}
