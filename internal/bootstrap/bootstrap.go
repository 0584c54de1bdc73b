// Package bootstrap builds the runtime dependencies shared by the server and
// the operator CLI from the loaded configuration.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/folio/folio/backend/go-services/internal/config"
	"github.com/folio/folio/backend/go-services/internal/database"
	"github.com/folio/folio/backend/go-services/internal/deploy"
	"github.com/folio/folio/backend/go-services/internal/document/repository"
	"github.com/folio/folio/backend/go-services/internal/storage"
	"github.com/folio/folio/backend/go-services/pkg/logger"
)

const mongoConnectAttempts = 5

// Target opens the durable target selected by STORAGE_MODE. The returned
// cleanup func is never nil.
func Target(ctx context.Context, cfg *config.Config) (repository.Target, func(), error) {
	noop := func() {}
	switch cfg.Storage.Mode {
	case config.ModeMemory:
		return repository.NewMemoryTarget(), noop, nil
	case config.ModeGitHub:
		return repository.NewGitHubTarget(repository.GitHubOptions{
			APIURL:  cfg.GitHub.APIURL,
			Token:   cfg.GitHub.Token,
			Owner:   cfg.GitHub.Owner,
			Repo:    cfg.GitHub.Repo,
			Branch:  cfg.GitHub.Branch,
			Path:    cfg.GitHub.Path,
			Message: cfg.GitHub.Message,
		}), noop, nil
	case config.ModeObject:
		st, err := storage.NewMinIOStorage(storage.FromConfig(cfg.MinIO))
		if err != nil {
			return nil, noop, fmt.Errorf("object storage: %w", err)
		}
		return repository.NewObjectTarget(st, cfg.MinIO.Object), noop, nil
	case config.ModeMongo:
		client, err := database.ConnectWithRetry(ctx, cfg.MongoDB, mongoConnectAttempts)
		if err != nil {
			return nil, noop, fmt.Errorf("mongo: %w", err)
		}
		col := client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection)
		cleanup := func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}
		return repository.NewMongoTarget(col), cleanup, nil
	default:
		return repository.NewFileTarget(cfg.Storage.DataFile), noop, nil
	}
}

// Redis returns a connected client, or nil when REDIS_HOST is unset or the
// server does not answer.
func Redis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Host == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Host + ":" + cfg.Port, Password: cfg.Password, DB: cfg.DB})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		logger.Warnf("redis %s:%s unavailable, continuing without it: %v", cfg.Host, cfg.Port, err)
		_ = client.Close()
		return nil
	}
	logger.Infof("connected to redis %s:%s", cfg.Host, cfg.Port)
	return client
}

// Workflow builds the publish workflow from DEPLOY_* settings.
func Workflow(cfg config.DeployConfig) *deploy.Workflow {
	runner := deploy.ExecRunner{}
	return deploy.NewWorkflow(runner, deploy.NewLocator(runner, cfg.GitBinary), deploy.Options{
		Dir:           cfg.RepoDir,
		Remote:        cfg.Remote,
		Branch:        cfg.Branch,
		CommitMessage: cfg.CommitMessage,
		PushAttempts:  cfg.PushAttempts,
		RetryDelay:    cfg.RetryDelay,
	})
}
