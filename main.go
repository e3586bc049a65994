// biliwatch reports new videos from followed creators.
//
// Logs into the platform (saved cookies or QR scan), walks the configured
// follow groups, records every video not seen in earlier runs, and writes
// the new ones to a per-run report list.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mdp/qrterminal/v3"

	"biliwatch/internal/bili"
	"biliwatch/internal/config"
	"biliwatch/internal/store"
	"biliwatch/internal/watch"
)

var version = "dev"

const (
	configFile  = "config.yaml"
	cookiesFile = "bili_cookies.json"
	sqliteFile  = "bilibili_videos.db"
	logFile     = "biliwatch.log"
)

func main() {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	if err := run(); err != nil {
		slog.Error("biliwatch failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDirectory, 0o750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	runID := uuid.NewString()[:8]
	closeLog := setupLogging(cfg, runID)
	defer closeLog()

	slog.Info("starting biliwatch",
		slog.String("version", version),
		slog.Any("groups", []string(cfg.TargetGroupNames)),
		slog.Int("workers", cfg.Workers),
		slog.Bool("debug", cfg.Debug))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := bili.New(bili.Config{
		Retry: bili.RetryPolicy{
			Max:      cfg.RetryMax,
			Interval: time.Duration(cfg.RetryInterval) * time.Second,
		},
	})
	if err != nil {
		return err
	}

	cookiePath := filepath.Join(cfg.DataDirectory, cookiesFile)
	if err := authenticate(ctx, client, cookiePath); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	// One refresh up front; signed calls trigger further refreshes only on
	// signature rejection.
	if err := client.RefreshSigningKeys(ctx); err != nil {
		return fmt.Errorf("refresh signing keys: %w", err)
	}

	reg, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer reg.Close()

	seen := store.NewSeenCache(os.Getenv("REDIS_URL"))
	defer seen.Close()

	w := watch.New(client, reg, seen, watch.Options{
		Groups:  cfg.TargetGroupNames,
		Pause:   time.Duration(cfg.RetryInterval) * time.Second,
		Workers: cfg.Workers,
		Debug:   cfg.Debug,
	})

	res, err := w.Run(ctx)
	if err != nil {
		return err
	}

	if len(res.NewVideos) > 0 {
		reportPath, err := watch.WriteReport(cfg.DataDirectory, runID, res.NewVideos)
		if err != nil {
			return err
		}
		slog.Info("new videos found",
			slog.Int("count", len(res.NewVideos)),
			slog.String("report", reportPath))
	} else {
		slog.Info("no new videos")
	}

	slog.Info("run complete",
		slog.Int("groups_matched", res.GroupsMatched),
		slog.Int("creators_checked", res.CreatorsChecked),
		slog.Int("new_videos", len(res.NewVideos)),
		slog.Any("counters", bili.GetMetrics()))
	return nil
}

// authenticate restores a saved session when possible, falling back to the
// interactive QR flow. Cookies are persisted after every successful login so
// the next run skips the scan.
func authenticate(ctx context.Context, client *bili.Client, cookiePath string) error {
	if err := client.LoadCookies(cookiePath); err == nil {
		ok, err := client.ProbeSession(ctx)
		if err != nil {
			return err
		}
		if ok {
			return client.SaveCookies(cookiePath)
		}
		slog.Info("saved session expired, starting qr login")
	} else if !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("cookie restore failed, starting qr login", slog.Any("error", err))
	}

	if err := client.LoginByQRCode(ctx, presentQR); err != nil {
		return err
	}
	return client.SaveCookies(cookiePath)
}

// presentQR renders the login code in the terminal, with the raw URL below
// for terminals where half blocks do not render.
func presentQR(content string) {
	fmt.Println("请使用手机客户端扫码登录:")
	qrterminal.GenerateHalfBlock(content, qrterminal.L, os.Stdout)
	fmt.Println(content)
}

// openRegistry selects Postgres when DATABASE_URL is set, otherwise the
// SQLite file in the data directory.
func openRegistry(ctx context.Context, cfg *config.Config) (store.Registry, error) {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		return store.ConnectPostgres(ctx, dbURL)
	}
	return store.OpenSQLite(filepath.Join(cfg.DataDirectory, sqliteFile))
}

// setupLogging installs a text handler writing to stderr and, when the data
// directory is writable, a log file too. Every line carries the run id. The
// returned func closes the log file.
func setupLogging(cfg *config.Config, runID string) func() {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	out := io.Writer(os.Stderr)
	closer := func() {}
	logPath := filepath.Join(cfg.DataDirectory, logFile)
	if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err != nil {
		slog.Warn("log file unavailable, logging to stderr only",
			slog.String("path", logPath), slog.Any("error", err))
	} else {
		out = io.MultiWriter(os.Stderr, f)
		closer = func() { f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger.With(slog.String("run_id", runID)))
	return closer
}
