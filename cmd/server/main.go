package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"villageserver/internal/ai"
	"villageserver/internal/auth"
	"villageserver/internal/config"
	"villageserver/internal/httpapi"
	"villageserver/internal/notifications"
	"villageserver/internal/queue"
	"villageserver/internal/service"
	"villageserver/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		authSvc          *service.AuthService
		profilesSvc      *service.ProfilesService
		friendsSvc       *service.FriendsService
		groupsSvc        *service.GroupsService
		invitesSvc       *service.InvitesService
		updatesSvc       *service.UpdatesService
		notificationsSvc *service.NotificationsService
		summarySvc       *service.SummaryService
		dbPing           func(context.Context) error
	)

	var summaryQueue *queue.RedisQueue

	if cfg.DBDSN != "" {
		pgPool, err := postgres.Open(ctx, cfg.DBDSN)
		if err != nil {
			logger.Error("db open failed", "err", err)
			os.Exit(1)
		}
		defer pgPool.Close()

		stores := postgres.NewStores(pgPool)
		dbPing = pgPool.Ping

		if cfg.RedisURL != "" {
			summaryQueue, err = queue.NewRedisQueue(cfg.RedisURL)
			if err != nil {
				logger.Error("redis open failed", "err", err)
				os.Exit(1)
			}
			defer func() { _ = summaryQueue.Close() }()
		}

		var sender service.PushSender
		if cfg.FCMProjectID != "" {
			fcm, err := notifications.NewFCMSender(ctx, cfg.FCMProjectID, cfg.FCMCredentials)
			if err != nil {
				logger.Error("fcm setup failed", "err", err)
				os.Exit(1)
			}
			sender = fcm
		}

		authSvc = &service.AuthService{
			Users:      stores.Users,
			Sessions:   stores.Sessions,
			SessionTTL: cfg.SessionTTL,
		}
		profilesSvc = &service.ProfilesService{
			Profiles:    stores.Profiles,
			Friendships: stores.Friendships,
			Tx:          stores,
		}
		friendsSvc = &service.FriendsService{
			Profiles:    stores.Profiles,
			Friendships: stores.Friendships,
		}
		groupsSvc = &service.GroupsService{
			Profiles:    stores.Profiles,
			Friendships: stores.Friendships,
			Groups:      stores.Groups,
			Tx:          stores,
		}
		invitesSvc = &service.InvitesService{
			Profiles:     stores.Profiles,
			Friendships:  stores.Friendships,
			Invitations:  stores.Invitations,
			JoinRequests: stores.JoinRequests,
			Tx:           stores,
		}
		updatesSvc = &service.UpdatesService{
			Profiles:    stores.Profiles,
			Friendships: stores.Friendships,
			Groups:      stores.Groups,
			Updates:     stores.Updates,
			Logger:      logger,
		}
		if summaryQueue != nil {
			updatesSvc.Summaries = summaryQueue
		}
		notificationsSvc = &service.NotificationsService{
			Devices:     stores.Devices,
			Profiles:    stores.Profiles,
			Friendships: stores.Friendships,
			Sender:      sender,
			Logger:      logger,
		}

		if summaryQueue != nil && cfg.AIBaseURL != "" {
			summarySvc = &service.SummaryService{
				Profiles:  stores.Profiles,
				Updates:   stores.Updates,
				Pairs:     stores.Summaries,
				Tx:        stores,
				Generator: ai.NewClient(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel, cfg.AITimeout),
				Logger:    logger,
			}
		}
	}

	workerDone := make(chan struct{})
	if summarySvc != nil {
		worker := &queue.Worker{
			Queue:       summaryQueue,
			Handle:      summarySvc.Process,
			MaxAttempts: cfg.SummaryMaxAttempts,
			Logger:      logger,
		}
		go func() {
			defer close(workerDone)
			logger.Info("summary worker started", "max_attempts", cfg.SummaryMaxAttempts)
			worker.Run(ctx)
		}()
	} else {
		close(workerDone)
		logger.Info("summary worker disabled",
			"db_enabled", cfg.DBDSN != "",
			"redis_enabled", cfg.RedisURL != "",
			"ai_enabled", cfg.AIBaseURL != "")
	}

	router := httpapi.NewRouter(httpapi.RouterOpts{
		Logger:         logger,
		IsProd:         cfg.IsProd(),
		DBPing:         dbPing,
		Auth:           authSvc,
		Profiles:       profilesSvc,
		Friends:        friendsSvc,
		Groups:         groupsSvc,
		Invites:        invitesSvc,
		Updates:        updatesSvc,
		Notifications:  notificationsSvc,
		TokenCodec:     auth.NewTokenCodec([]byte(cfg.TokenSecret)),
		GoogleClientID: cfg.GoogleClientID,
		AppleClientID:  cfg.AppleServiceID,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		<-workerDone
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
