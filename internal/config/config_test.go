package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORAGE_MODE", "")
	t.Setenv("SERVER_PORT", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ModeFile, cfg.Storage.Mode)
	require.Equal(t, "3000", cfg.Server.Port)
	require.Equal(t, 3, cfg.Deploy.PushAttempts)
	require.Equal(t, 2*time.Second, cfg.Deploy.RetryDelay)
	require.Equal(t, 10, cfg.Chat.HistoryTurns)
	require.Equal(t, int64(5<<20), cfg.Upload.ImageMaxBytes)
	require.True(t, cfg.LocalSync())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("STORAGE_MODE", "GitHub")
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("GITHUB_OWNER", "someone")
	t.Setenv("GITHUB_REPO", "site")
	t.Setenv("DEPLOY_RETRY_DELAY_MS", "10")
	t.Setenv("RATE_LIMIT_ENABLED", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ModeGitHub, cfg.Storage.Mode)
	require.Equal(t, "ghp_test", cfg.GitHub.Token)
	require.Equal(t, "someone", cfg.GitHub.Owner)
	require.Equal(t, 10*time.Millisecond, cfg.Deploy.RetryDelay)
	require.True(t, cfg.RateLimit.Enabled)
	require.False(t, cfg.LocalSync())
}

func TestLoadConfigUnknownModeFallsBack(t *testing.T) {
	t.Setenv("STORAGE_MODE", "floppy")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ModeFile, cfg.Storage.Mode)
}
