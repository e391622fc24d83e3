package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	httpx "github.com/altoslab447/openclaw-dashboard/internal/http"
	"github.com/altoslab447/openclaw-dashboard/internal/parser"
	"github.com/altoslab447/openclaw-dashboard/internal/service/events"
	"github.com/altoslab447/openclaw-dashboard/internal/service/snapshot"
	"github.com/altoslab447/openclaw-dashboard/internal/watcher"
	"github.com/altoslab447/openclaw-dashboard/internal/ws"
	"github.com/altoslab447/openclaw-dashboard/pkg/config"
	"github.com/altoslab447/openclaw-dashboard/pkg/logger"
)

var buildVersion = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("openclaw-dashboard", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to a TOML config file (env OPENCLAW_DASHBOARD_CONFIG)")
	addr := flags.String("addr", "", "listen address, overrides PORT and DASHBOARD_ADDR")
	level := flags.String("log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	showVersion := flags.Bool("version", false, "print the version and exit")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Println(strings.TrimSpace(buildVersion))
		return nil
	}

	cfg, err := config.LoadDashboardConfig(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *level != "" {
		cfg.LogLevel = *level
	}
	log := logger.New("openclaw-dashboard", logger.ParseLevel(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		log.Error("refusing to start", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub(log)
	eventSvc := events.New(hub, cfg.LogPath, cfg.BacklogMax, log)
	reader := parser.New(cfg.Home, cfg.Workspace)
	watch := watcher.New(cfg.LogPath, cfg.StatePaths(), watcher.Options{
		LogInterval:   cfg.LogPollInterval,
		StateInterval: cfg.StatePollInterval,
		FSNotify:      cfg.FSNotify,
	}, log)

	router := httpx.NewRouter(log, httpx.Dependencies{
		Events:    eventSvc,
		Snapshots: snapshot.New(reader),
		State:     reader,
		Hub:       hub,
		Watch:     watch,
		Limiter:   newLimiter(cfg, log),
		RateLimit: cfg.RateLimitPerMinute,
		StaticDir: cfg.StaticDir,
	})
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watch.Run(gctx, eventSvc.Publish)
	})
	g.Go(func() error {
		log.Info("dashboard server starting",
			"addr", cfg.Addr,
			"home", cfg.Home,
			"workspace", cfg.Workspace,
			"log_active", watch.LogActive(),
			"state_paths", len(watch.StatePaths()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// Streams never finish on their own; closing the hub ends them so
		// Shutdown can drain.
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		return nil
	})

	err = g.Wait()
	log.Info("dashboard server stopped")
	return err
}

func newLimiter(cfg config.DashboardConfig, log *slog.Logger) httpx.RateLimiter {
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		limiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err == nil {
			return limiter
		}
		log.Warn("redis rate limiter unavailable, using in-memory limiter", "error", err)
	}
	return httpx.NewMemoryRateLimiter()
}
