package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Grekus14/MeChat/internal/cache"
	"github.com/Grekus14/MeChat/internal/config"
	"github.com/Grekus14/MeChat/internal/database"
	"github.com/Grekus14/MeChat/internal/domain"
	"github.com/Grekus14/MeChat/internal/handler"
	"github.com/Grekus14/MeChat/internal/hub"
	"github.com/Grekus14/MeChat/internal/log"
	"github.com/Grekus14/MeChat/internal/policy"
	"github.com/Grekus14/MeChat/internal/repository"
	"github.com/Grekus14/MeChat/internal/service"
	"github.com/Grekus14/MeChat/internal/storage"
	"github.com/Grekus14/MeChat/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log)
	logger := log.L()

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db,
		&domain.UserModel{},
		&domain.FriendshipModel{},
		&domain.MessageModel{},
	); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	// The profile cache is an optimization; the server runs without it.
	var userCache cache.UserCache
	redisCache, err := cache.NewRedisUserCache(
		cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CachePrefix)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, profile cache disabled")
	} else {
		userCache = redisCache
		defer redisCache.Close()
	}

	tokens, err := token.NewManager(cfg.Auth.AccessDuration, cfg.Auth.RefreshDuration, cfg.Auth.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token manager")
	}

	store, localStore, err := buildStorage(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	userRepo := repository.NewGormUserRepository(db)
	friendRepo := repository.NewGormFriendRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)

	h := hub.NewHub(cfg.WebSocket)
	go h.Run()

	userSvc := service.NewUserService(userRepo, userCache, tokens, store, service.UserConfig{
		CacheTTL:        cfg.Redis.CacheTTL,
		AvatarPrefix:    cfg.Storage.AvatarPrefix,
		PresignExpiry:   cfg.Storage.PresignExpiry,
		AvatarURLExpiry: cfg.Storage.AvatarURLExpiry,
	})
	friendSvc := service.NewFriendService(friendRepo, userRepo, messageRepo, store, cfg.Storage.AvatarURLExpiry)
	historySvc := service.NewHistoryService(friendRepo, messageRepo)
	chatSvc := service.NewChatService(h, tokens, friendRepo, messageRepo,
		policy.NewWordLengthPolicy(cfg.Chat.MaxWordLength))

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(log.GinMiddleware(logger))

	if localStore != nil {
		r.Static("/uploads", localStore.GetBasePath())
	}

	handler.NewHTTPHandler(userSvc, friendSvc, historySvc, tokens).RegisterRoutes(r)
	handler.NewWSHandler(h, chatSvc, cfg.WebSocket).RegisterRoutes(r)

	// Expired revocation entries only grow the map; sweep hourly.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			tokens.CleanupExpiredRevocations()
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	logger.Info().Msg("server stopped")
}

// buildStorage returns the configured storage backend. The second return is
// non-nil only for the local backend, whose files are served under /uploads.
func buildStorage(cfg *config.Config) (storage.Storage, *storage.LocalStorage, error) {
	switch cfg.Storage.Backend {
	case "s3":
		s3Store, err := storage.NewS3Storage(context.Background(), cfg.Storage.S3)
		if err != nil {
			return nil, nil, err
		}
		return s3Store, nil, nil

	case "local":
		localStore, err := storage.NewLocalStorage(cfg.Storage.Local)
		if err != nil {
			return nil, nil, err
		}
		return localStore, localStore, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}
