package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"biblioteca/internal/app"
	"biblioteca/internal/config"
	"biblioteca/internal/ratelimit"
	"biblioteca/internal/server"
	"biblioteca/internal/util"
	"biblioteca/pkg/queue"
	"biblioteca/pkg/storage"
	"biblioteca/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := util.InitLogger(cfg.LogLevel)

	var st store.Store
	if cfg.DatabaseURL != "" {
		gs, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "err", err)
			os.Exit(1)
		}
		st = gs
		logger.Info("using relational store")
	} else {
		st = store.NewMemoryStore()
		logger.Info("using in-memory store, records are lost on restart")
	}

	var backupQueue *queue.RedisBackupQueue
	if cfg.RedisAddr != "" {
		backupQueue, err = queue.NewRedisBackupQueue(queue.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Stream:   cfg.BackupStream,
		})
		if err != nil {
			logger.Error("failed to connect backup queue", "err", err)
			os.Exit(1)
		}
	}

	var objects storage.ObjectStore
	if cfg.MinioEndpoint != "" {
		objects, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			logger.Error("failed to init object store", "err", err)
			os.Exit(1)
		}
	}

	appCfg := app.Config{Store: st, Objects: objects}
	if backupQueue != nil {
		appCfg.Backups = backupQueue
	}
	appCore, err := app.New(appCfg)
	if err != nil {
		logger.Error("failed to init app", "err", err)
		os.Exit(1)
	}

	var limiter *ratelimit.FixedWindowLimiter
	if cfg.RateLimit > 0 {
		window := time.Duration(cfg.RateWindowSecs) * time.Second
		if window <= 0 {
			window = time.Minute
		}
		limiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "", cfg.RateLimit, window)
		if err != nil {
			logger.Error("failed to init rate limiter", "err", err)
			os.Exit(1)
		}
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Error("invalid trusted proxies", "err", err)
		os.Exit(1)
	}

	httpServer, err := server.New(server.Config{
		App:            appCore,
		Limiter:        limiter,
		TrustedProxies: trusted,
	})
	if err != nil {
		logger.Error("failed to init server", "err", err)
		os.Exit(1)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if backupQueue != nil {
		workers := cfg.BackupWorkers
		if workers <= 0 {
			workers = 1
		}
		backupQueue.Start(gctx, workers, appCore.HandleBackupJob)
	}

	g.Go(func() error {
		slog.Info("api server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	slog.Info("api server stopped")
}
