package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/folio/folio/backend/go-services/handlers"
	"github.com/folio/folio/backend/go-services/internal/bootstrap"
	"github.com/folio/folio/backend/go-services/internal/chat"
	"github.com/folio/folio/backend/go-services/internal/config"
	"github.com/folio/folio/backend/go-services/internal/document/handler"
	"github.com/folio/folio/backend/go-services/internal/document/service"
	"github.com/folio/folio/backend/go-services/internal/tokens"
	"github.com/folio/folio/backend/go-services/pkg/logger"
	"github.com/folio/folio/backend/go-services/pkg/metrics"
	"github.com/folio/folio/backend/go-services/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: storage=%s redis=%v chat=%v require_token=%v",
		cfg.Storage.Mode, cfg.Redis.Host != "", cfg.Chat.APIKey != "", cfg.Auth.RequireToken)

	ctx := context.Background()
	rdb := bootstrap.Redis(ctx, cfg.Redis)

	target, closeTarget, err := bootstrap.Target(ctx, cfg)
	if err != nil {
		logger.Fatalf("storage target %s: %v", cfg.Storage.Mode, err)
	}
	defer closeTarget()
	store := service.NewStore(target, service.Options{PersistTimeout: cfg.Storage.PersistTimeout})
	store.Load(ctx)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(cors(), gin.Logger(), gin.Recovery())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(reg)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", readiness(cfg, store, rdb))
	handlers.RegisterSwagger(r)

	issuer := tokens.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if rdb != nil {
		issuer.WithRevocations(tokens.NewRedisRevocations(rdb, "revoked:token:"))
	} else {
		issuer.WithRevocations(tokens.NewMemoryRevocations())
	}
	var adminGuard []gin.HandlerFunc
	if cfg.Auth.RequireToken {
		adminGuard = append(adminGuard, middleware.AdminAuth(issuer))
	}
	if cfg.RateLimit.Enabled {
		adminGuard = append(adminGuard, limiter(cfg, rdb, "admin"))
	}
	var chatGuard []gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		chatGuard = append(chatGuard, limiter(cfg, rdb, "chat"))
	}

	api := r.Group("/api")
	handler.RegisterContentRoutes(api, store, handler.Limits{
		Image:      cfg.Upload.ImageMaxBytes,
		Background: cfg.Upload.BackgroundMaxBytes,
		Media:      cfg.Upload.MediaMaxBytes,
	}, adminGuard...)

	authGuard := api.Group("")
	if cfg.RateLimit.Enabled {
		authGuard.Use(limiter(cfg, rdb, "verify-password"))
	}
	handlers.NewAuthHandler(store, cfg.Auth.AdminPassword, issuer).Register(authGuard)
	handlers.NewDeployHandler(bootstrap.Workflow(cfg.Deploy), cfg.Storage.Mode, cfg.LocalSync()).Register(api, adminGuard...)

	var history chat.HistoryStore
	if rdb != nil {
		history = chat.NewRedisHistory(rdb, "chat:history:", cfg.Chat.HistoryTTL, cfg.Chat.HistoryTurns)
	} else {
		history = chat.NewMemoryHistory(cfg.Chat.HistoryTurns)
	}
	relay := chat.NewRelay(chat.Options{
		APIKey:       cfg.Chat.APIKey,
		BaseURL:      cfg.Chat.BaseURL,
		BotID:        cfg.Chat.BotID,
		Model:        cfg.Chat.Model,
		OwnerProfile: cfg.Chat.OwnerProfile,
		HistoryTurns: cfg.Chat.HistoryTurns,
		Timeout:      cfg.Chat.Timeout,
	}, store)
	if !relay.Enabled() {
		logger.Warnf("CHAT_API_KEY not set; chat answers with a demo reply")
	}
	handlers.NewChatHandler(relay, history).Register(api, chatGuard...)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("listening on %s (storage=%s)", addr, store.TargetName())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
	store.Wait()
	if rdb != nil {
		_ = rdb.Close()
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		h.Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func limiter(cfg *config.Config, rdb *redis.Client, name string) gin.HandlerFunc {
	if cfg.RateLimit.UseRedis && rdb != nil {
		win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
		return middleware.RedisRateLimit(rdb, name, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win)
	}
	return middleware.RateLimit(name, cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

// readiness reports 200 once the document has been loaded and, when redis
// backs the rate limiter, redis answers.
func readiness(cfg *config.Config, store *service.Store, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		deps := map[string]bool{"document": store.Loaded()}
		if cfg.Redis.Host != "" {
			ok := rdb != nil && rdb.Ping(c.Request.Context()).Err() == nil
			deps["redis"] = ok
		}
		ready := deps["document"]
		if cfg.RateLimit.UseRedis && cfg.Redis.Host != "" {
			ready = ready && deps["redis"]
		}
		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "storage": store.TargetName(), "deps": deps, "uptime": time.Since(startTime).String()})
	}
}
