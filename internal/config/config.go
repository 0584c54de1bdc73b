package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/folio/folio/backend/go-services/pkg/logger"
)

// Storage modes select the durable target for the site document.
const (
	ModeFile   = "file"
	ModeMemory = "memory"
	ModeGitHub = "github"
	ModeObject = "object"
	ModeMongo  = "mongo"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	GitHub    GitHubConfig
	MinIO     MinIOConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Deploy    DeployConfig
	Chat      ChatConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Upload    UploadConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type StorageConfig struct {
	Mode           string
	DataFile       string
	PersistTimeout time.Duration
}

// GitHubConfig addresses the remote copy of the document through the contents API.
type GitHubConfig struct {
	Token   string
	APIURL  string
	Owner   string
	Repo    string
	Branch  string
	Path    string
	Message string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Object    string
}

type MongoDBConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type DeployConfig struct {
	RepoDir       string
	Remote        string
	Branch        string
	GitBinary     string
	CommitMessage string
	PushAttempts  int
	RetryDelay    time.Duration
}

type ChatConfig struct {
	APIKey       string
	BaseURL      string
	BotID        string
	Model        string
	OwnerProfile string
	HistoryTurns int
	Timeout      time.Duration
	HistoryTTL   time.Duration
}

type AuthConfig struct {
	AdminPassword string
	JWTSecret     string
	RequireToken  bool
	TokenTTL      time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

// UploadConfig bounds upload sizes in bytes.
type UploadConfig struct {
	ImageMaxBytes      int64
	BackgroundMaxBytes int64
	MediaMaxBytes      int64
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "3000")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("SERVER_SHUTDOWN_SECONDS", 10)
	v.SetDefault("STORAGE_MODE", ModeFile)
	v.SetDefault("STORAGE_DATA_FILE", "data/db.json")
	v.SetDefault("STORAGE_PERSIST_TIMEOUT_SECONDS", 15)
	v.SetDefault("GITHUB_API_URL", "https://api.github.com")
	v.SetDefault("GITHUB_BRANCH", "main")
	v.SetDefault("GITHUB_PATH", "data/db.json")
	v.SetDefault("GITHUB_COMMIT_MESSAGE", "Update site content")
	v.SetDefault("MINIO_BUCKET", "folio")
	v.SetDefault("MINIO_OBJECT", "db.json")
	v.SetDefault("MONGODB_DATABASE", "folio")
	v.SetDefault("MONGODB_COLLECTION", "site")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("DEPLOY_REPO_DIR", ".")
	v.SetDefault("DEPLOY_REMOTE", "origin")
	v.SetDefault("DEPLOY_BRANCH", "main")
	v.SetDefault("DEPLOY_COMMIT_MESSAGE", "Update site content")
	v.SetDefault("DEPLOY_PUSH_ATTEMPTS", 3)
	v.SetDefault("DEPLOY_RETRY_DELAY_MS", 2000)
	v.SetDefault("CHAT_HISTORY_TURNS", 10)
	v.SetDefault("CHAT_TIMEOUT_SECONDS", 60)
	v.SetDefault("CHAT_HISTORY_TTL_MINUTES", 1440)
	v.SetDefault("AUTH_TOKEN_TTL_MINUTES", 720)
	v.SetDefault("RATE_LIMIT_RPS", 1)
	v.SetDefault("RATE_LIMIT_BURST", 5)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("UPLOAD_IMAGE_MAX_MB", 5)
	v.SetDefault("UPLOAD_BACKGROUND_MAX_MB", 10)
	v.SetDefault("UPLOAD_MEDIA_MAX_MB", 20)

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("SERVER_PORT"),
			Host:            v.GetString("SERVER_HOST"),
			Environment:     v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: time.Duration(v.GetInt("SERVER_SHUTDOWN_SECONDS")) * time.Second,
		},
		Storage: StorageConfig{
			Mode:           strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_MODE"))),
			DataFile:       v.GetString("STORAGE_DATA_FILE"),
			PersistTimeout: time.Duration(v.GetInt("STORAGE_PERSIST_TIMEOUT_SECONDS")) * time.Second,
		},
		GitHub: GitHubConfig{
			Token:   v.GetString("GITHUB_TOKEN"),
			APIURL:  v.GetString("GITHUB_API_URL"),
			Owner:   v.GetString("GITHUB_OWNER"),
			Repo:    v.GetString("GITHUB_REPO"),
			Branch:  v.GetString("GITHUB_BRANCH"),
			Path:    v.GetString("GITHUB_PATH"),
			Message: v.GetString("GITHUB_COMMIT_MESSAGE"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			Object:    v.GetString("MINIO_OBJECT"),
		},
		MongoDB: MongoDBConfig{
			URI:        v.GetString("MONGODB_URI"),
			Database:   v.GetString("MONGODB_DATABASE"),
			Collection: v.GetString("MONGODB_COLLECTION"),
			Timeout:    time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Deploy: DeployConfig{
			RepoDir:       v.GetString("DEPLOY_REPO_DIR"),
			Remote:        v.GetString("DEPLOY_REMOTE"),
			Branch:        v.GetString("DEPLOY_BRANCH"),
			GitBinary:     v.GetString("DEPLOY_GIT_BINARY"),
			CommitMessage: v.GetString("DEPLOY_COMMIT_MESSAGE"),
			PushAttempts:  v.GetInt("DEPLOY_PUSH_ATTEMPTS"),
			RetryDelay:    time.Duration(v.GetInt("DEPLOY_RETRY_DELAY_MS")) * time.Millisecond,
		},
		Chat: ChatConfig{
			APIKey:       v.GetString("CHAT_API_KEY"),
			BaseURL:      v.GetString("CHAT_BASE_URL"),
			BotID:        v.GetString("CHAT_BOT_ID"),
			Model:        v.GetString("CHAT_MODEL"),
			OwnerProfile: v.GetString("CHAT_OWNER_PROFILE"),
			HistoryTurns: v.GetInt("CHAT_HISTORY_TURNS"),
			Timeout:      time.Duration(v.GetInt("CHAT_TIMEOUT_SECONDS")) * time.Second,
			HistoryTTL:   time.Duration(v.GetInt("CHAT_HISTORY_TTL_MINUTES")) * time.Minute,
		},
		Auth: AuthConfig{
			AdminPassword: v.GetString("ADMIN_PASSWORD"),
			JWTSecret:     v.GetString("JWT_SECRET"),
			RequireToken:  v.GetBool("AUTH_REQUIRE_TOKEN"),
			TokenTTL:      time.Duration(v.GetInt("AUTH_TOKEN_TTL_MINUTES")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Upload: UploadConfig{
			ImageMaxBytes:      int64(v.GetInt("UPLOAD_IMAGE_MAX_MB")) << 20,
			BackgroundMaxBytes: int64(v.GetInt("UPLOAD_BACKGROUND_MAX_MB")) << 20,
			MediaMaxBytes:      int64(v.GetInt("UPLOAD_MEDIA_MAX_MB")) << 20,
		},
	}

	switch cfg.Storage.Mode {
	case ModeFile, ModeMemory, ModeGitHub, ModeObject, ModeMongo:
	default:
		logger.Warnf("unknown STORAGE_MODE %q, falling back to %q", cfg.Storage.Mode, ModeFile)
		cfg.Storage.Mode = ModeFile
	}
	if cfg.Auth.RequireToken && cfg.Auth.JWTSecret == "" {
		logger.Warnf("AUTH_REQUIRE_TOKEN is set but JWT_SECRET is empty; admin routes will reject every request")
	}

	return cfg, nil
}

// LocalSync reports whether the document is persisted to the local file only,
// which is the one mode where the deploy workflow has work to do.
func (c *Config) LocalSync() bool {
	return c.Storage.Mode == ModeFile
}
