package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/folio/folio/backend/go-services/internal/config"
)

func TestTargetSelection(t *testing.T) {
	ctx := context.Background()
	cases := map[string]string{
		config.ModeFile:   "file",
		config.ModeMemory: "memory",
		config.ModeGitHub: "github",
	}
	for mode, want := range cases {
		cfg := &config.Config{Storage: config.StorageConfig{Mode: mode, DataFile: filepath.Join(t.TempDir(), "db.json")}}
		target, cleanup, err := Target(ctx, cfg)
		require.NoError(t, err, mode)
		require.NotNil(t, cleanup)
		require.Equal(t, want, target.Name())
		cleanup()
	}
}

func TestObjectTargetNeedsEndpoint(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Mode: config.ModeObject}}
	_, cleanup, err := Target(context.Background(), cfg)
	require.Error(t, err)
	cleanup()
}

func TestRedis(t *testing.T) {
	require.Nil(t, Redis(context.Background(), config.RedisConfig{}))

	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := Redis(context.Background(), config.RedisConfig{Host: m.Host(), Port: m.Port()})
	require.NotNil(t, client)
	defer client.Close()

	m.Close()
	require.Nil(t, Redis(context.Background(), config.RedisConfig{Host: "127.0.0.1", Port: "1"}))
}
