package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("should load a valid file over the defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
[log]
level = "debug"

[database]
path = "/var/lib/modguard"

[moderation]
log_channel = "mod-audit"
admin_roles = ["Staff"]
`)
		cfg, defaultsUsed, err := Load(path, false)
		require.NoError(t, err)
		require.False(t, defaultsUsed)
		require.Equal(t, DebugLevel, cfg.Log.Level)
		require.Equal(t, "/var/lib/modguard", cfg.DB.Path)
		require.Equal(t, "mod-audit", cfg.Moderation.LogChannel)
		require.Equal(t, []string{"Staff"}, cfg.Moderation.AdminRoles)
		// Untouched sections keep their defaults.
		require.NotEmpty(t, cfg.Moderation.WarnMessage)
		require.NotEmpty(t, cfg.Moderation.KickReason)
	})

	t.Run("should fail on a missing file without use-defaults", func(t *testing.T) {
		_, _, err := Load(filepath.Join(t.TempDir(), "missing.toml"), false)
		require.Error(t, err)
	})

	t.Run("should fall back to defaults when allowed", func(t *testing.T) {
		cfg, defaultsUsed, err := Load(filepath.Join(t.TempDir(), "missing.toml"), true)
		require.NoError(t, err)
		require.True(t, defaultsUsed)
		require.Equal(t, "moderator-log", cfg.Moderation.LogChannel)
		require.Equal(t, []string{"Admin", "Moderator"}, cfg.Moderation.AdminRoles)
	})

	t.Run("should reject an invalid log level", func(t *testing.T) {
		path := writeConfigFile(t, `
[log]
level = "verbose"
`)
		_, _, err := Load(path, false)
		require.Error(t, err)
	})

	t.Run("should reject an empty admin role list", func(t *testing.T) {
		path := writeConfigFile(t, `
[moderation]
admin_roles = []
`)
		_, _, err := Load(path, false)
		require.Error(t, err)
	})

	t.Run("should prefer the token from the environment", func(t *testing.T) {
		t.Setenv(TokenEnvVar, "env-token")
		path := writeConfigFile(t, `
[discord]
token = "file-token"
`)
		cfg, _, err := Load(path, false)
		require.NoError(t, err)
		require.Equal(t, "env-token", cfg.Discord.Token)
	})
}

func TestLogLevel_ToSlogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, DebugLevel.ToSlogLevel())
	require.Equal(t, slog.LevelInfo, InfoLevel.ToSlogLevel())
	require.Equal(t, slog.LevelWarn, WarnLevel.ToSlogLevel())
	require.Equal(t, slog.LevelError, ErrorLevel.ToSlogLevel())
}
