package main

import (
	"context"
	"errors"
	"filezone/internal/accounts"
	"filezone/internal/api"
	"filezone/internal/config"
	"filezone/internal/database"
	"filezone/internal/locks"
	"filezone/internal/logger"
	"filezone/internal/storage"
	"filezone/internal/tree"
	"filezone/internal/websocket"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(configFilePath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret must be set")
	}

	var pool *pgxpool.Pool
	if cfg.Index.Driver == "postgres" || cfg.Locks.Driver == "postgres" {
		pool, err = openPool(ctx, cfg.DB.Source)
		if err != nil {
			return err
		}
		defer pool.Close()
		log.Info("Connected to database")
	}

	index, users, err := buildIndex(cfg, pool)
	if err != nil {
		return err
	}

	blobs, err := buildStorage(ctx, cfg, log)
	if err != nil {
		return err
	}

	locker, closeLocker, err := buildLocker(ctx, cfg, pool, log)
	if err != nil {
		return err
	}
	defer closeLocker()

	wsHub := websocket.NewHub(log)
	go wsHub.Run()
	defer wsHub.Stop()

	treeService, err := tree.NewService(index, blobs,
		tree.WithLocker(locker),
		tree.WithEventPublisher(wsHub),
		tree.WithLogger(log),
	)
	if err != nil {
		return err
	}

	accountService := accounts.NewService(users, treeService, cfg.JWT.Secret, cfg.JWT.TTL, log)
	server := api.NewServer(cfg, treeService, accountService, wsHub, log)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("index", cfg.Index.Driver),
			zap.String("storage", cfg.Storage.Driver),
			zap.String("locks", cfg.Locks.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	log.Info("Server exited gracefully")
	return nil
}

func openPool(ctx context.Context, source string) (*pgxpool.Pool, error) {
	if source == "" {
		return nil, errors.New("db.source must be set")
	}
	pool, err := pgxpool.New(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

func buildIndex(cfg *config.Config, pool *pgxpool.Pool) (tree.Index, accounts.UserRepository, error) {
	switch cfg.Index.Driver {
	case "memory":
		return tree.NewMemoryIndex(), accounts.NewMemoryRepository(), nil
	case "postgres":
		store := database.NewStore(pool)
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown index driver %q", cfg.Index.Driver)
	}
}

func buildStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (tree.Storage, error) {
	switch cfg.Storage.Driver {
	case "local":
		log.Info("Initializing local storage", zap.String("path", cfg.Storage.Path))
		return storage.NewLocalStorage(cfg.Storage.Path)
	case "s3":
		log.Info("Initializing S3 storage", zap.String("bucket", cfg.Storage.S3.Bucket))
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:    cfg.Storage.S3.Bucket,
			Region:    cfg.Storage.S3.Region,
			Endpoint:  cfg.Storage.S3.Endpoint,
			AccessKey: cfg.Storage.S3.AccessKey,
			SecretKey: cfg.Storage.S3.SecretKey,
			Prefix:    cfg.Storage.S3.Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func buildLocker(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, log *zap.Logger) (tree.Locker, func(), error) {
	switch cfg.Locks.Driver {
	case "local":
		return locks.NewLocalLocker(), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Locks.RedisAddr,
			Password: cfg.Locks.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		locker := locks.NewRedisLocker(client, cfg.Locks.TTL, log)
		return locker, func() { locker.Close() }, nil
	case "postgres":
		return locks.NewPGLocker(pool, log), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown locks driver %q", cfg.Locks.Driver)
	}
}
