package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/kitchin/internal/backup"
	"github.com/dukerupert/kitchin/internal/config"
	"github.com/dukerupert/kitchin/internal/database"
	"github.com/dukerupert/kitchin/internal/foodfacts"
	"github.com/dukerupert/kitchin/internal/kitchen"
	"github.com/dukerupert/kitchin/internal/logging"
	"github.com/dukerupert/kitchin/internal/metrics"
	"github.com/dukerupert/kitchin/internal/middleware"
	"github.com/dukerupert/kitchin/internal/push"
	"github.com/dukerupert/kitchin/internal/server"
	"github.com/dukerupert/kitchin/internal/store"
	"github.com/dukerupert/kitchin/internal/tracing"
	ws "github.com/dukerupert/kitchin/internal/websocket"
)

const usage = `usage: kitchin [command]

commands:
  serve                  run the API server (default)
  restore <id> <path>    download backup <id> and write the database to <path>
  vapid-keys             print a new VAPID key pair for web push`

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "serve":
		err = serve()
	case "restore":
		err = restore(os.Args[2:])
	case "vapid-keys":
		err = vapidKeys()
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("kitchin failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, "kitchin", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown", "error", err)
		}
	}()

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	m := metrics.New()
	st := store.New(db)
	hub := ws.NewHub(logger.With("component", "websocket"), m)

	publishers := kitchen.Publishers{hub}
	var scheduler *push.Scheduler
	var notifier *push.Notifier
	if cfg.Push.Enabled() {
		svc := push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, cfg.Push.Subscriber, nil)
		notifier = push.NewNotifier(svc, st, m, logger.With("component", "push"))
		scheduler = push.NewScheduler(svc, st, m, logger.With("component", "push_scheduler"),
			cfg.Push.ScanInterval, cfg.Push.ExpiryWindow)
		publishers = append(publishers, notifier)
	} else {
		logger.Info("push notifications disabled, no VAPID keys configured")
	}

	k := kitchen.New(kitchen.Deps{
		Store:        st,
		Publisher:    publishers,
		Metrics:      m,
		Logger:       logger,
		DefaultImage: cfg.DefaultImageURL,
	})

	backupMgr := newBackupManager(cfg, db, st, m, logger)
	limiter := middleware.NewRateLimiter(cfg.JoinRateLimit, cfg.JoinRateWindow)

	srv := server.New(server.Options{
		DB:             db,
		Store:          st,
		Kitchen:        k,
		Hub:            hub,
		Metrics:        m,
		FoodFacts:      foodfacts.New(cfg.FoodFacts.BaseURL, cfg.FoodFacts.CacheTTL, cfg.FoodFacts.Timeout, m),
		Backup:         backupMgr,
		VAPIDPublicKey: cfg.Push.VAPIDPublicKey,
		SessionSecret:  []byte(cfg.SessionSecret),
		JoinLimiter:    limiter,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("kitchin running", "addr", "http://localhost:"+cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(sctx)
	})
	g.Go(func() error {
		return backupMgr.Run(gctx)
	})
	g.Go(func() error {
		cleanupLimiter(gctx, limiter, cfg.JoinRateWindow)
		return nil
	})
	if scheduler != nil {
		g.Go(func() error {
			return scheduler.Run(gctx)
		})
	}

	err = g.Wait()
	if notifier != nil {
		notifier.Wait()
	}
	return err
}

func cleanupLimiter(ctx context.Context, limiter *middleware.RateLimiter, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Cleanup()
		}
	}
}

func newBackupManager(cfg config.Config, db *sql.DB, st *store.Store, m *metrics.Metrics, logger *slog.Logger) *backup.Manager {
	var client backup.ObjectStore
	if cfg.Backup.Enabled() {
		client = backup.NewS3Client(backup.S3Config{
			Endpoint:  cfg.Backup.Endpoint,
			Region:    cfg.Backup.Region,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		})
	}
	return backup.NewManager(backup.Config{
		Bucket:     cfg.Backup.Bucket,
		Passphrase: cfg.Backup.Passphrase,
		Interval:   cfg.Backup.Interval,
		Retain:     cfg.Backup.Retain,
	}, db, st, client, m, logger)
}

func restore(args []string) error {
	if len(args) != 2 {
		return errors.New("restore takes a backup id and a destination path")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid backup id %q", args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if !cfg.Backup.Enabled() {
		return backup.ErrDisabled
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	mgr := newBackupManager(cfg, db, store.New(db), nil, logger)
	if err := mgr.Restore(context.Background(), id, args[1]); err != nil {
		return err
	}
	logger.Info("backup restored", "id", id, "path", args[1])
	return nil
}

func vapidKeys() error {
	pub, priv, err := push.GenerateVAPIDKeys()
	if err != nil {
		return err
	}
	fmt.Printf("KITCHIN_VAPID_PUBLIC_KEY=%s\nKITCHIN_VAPID_PRIVATE_KEY=%s\n", pub, priv)
	return nil
}
