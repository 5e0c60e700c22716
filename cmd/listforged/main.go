// Command listforged runs the list-ingestion engine: the scheduler,
// importer and HTTP API in one process, following the teacher's
// cmd/hostapp entrypoint shape — build deps, start background workers,
// serve HTTP, shut down gracefully on signal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/listforge/listforge/internal/adapter"
	"github.com/listforge/listforge/internal/httpapi"
	"github.com/listforge/listforge/internal/importer"
	"github.com/listforge/listforge/internal/jobs"
	"github.com/listforge/listforge/internal/localdb"
	"github.com/listforge/listforge/internal/proxy"
	"github.com/listforge/listforge/internal/publish"
	"github.com/listforge/listforge/internal/scheduler"
	"github.com/listforge/listforge/internal/storage"
	"github.com/listforge/listforge/pkg/config"
)

func main() {
	initCmd := flag.Bool("init", false, "run the interactive setup wizard")
	flag.Parse()

	if *initCmd {
		if err := config.RunInitWizard(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "init failed:", err)
			os.Exit(1)
		}
		return
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init failed:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	if err := run(log); err != nil {
		log.Fatalw("fatal error", "error", err)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	store, err := storage.Open(cfg.StateDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	pub := publish.New(cfg.StateDir)

	runHistoryDB, err := localdb.OpenWithRetry(context.Background(), cfg.StateDir)
	if err != nil {
		return fmt.Errorf("open run-history store: %w", err)
	}
	defer runHistoryDB.Close()
	history := jobs.NewHistory(jobs.LocalPersist{DB: runHistoryDB})

	internal := &adapter.InternalResolver{
		ServerName: cfg.ServerName,
		Aliases:    cfg.InternalAliases,
		Lookup: func(ctx context.Context, kind, token string) ([]byte, string, bool, error) {
			return pub.Lookup(kind, token)
		},
	}

	imp := importer.New(store, internal, pub, history, log)

	loc, err := time.LoadLocation(cfg.SchedulerTimezone)
	if err != nil {
		return fmt.Errorf("invalid scheduler_timezone %q: %w", cfg.SchedulerTimezone, err)
	}
	sched := scheduler.New(loc, cfg.WorkerPoolSize, time.Duration(cfg.MisfireGraceSeconds)*time.Second, imp, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sched.LoadAll(ctx, store); err != nil {
		log.Warnw("failed to load all scheduled lists", "error", err)
	}
	sched.Start()

	allowlist, err := proxy.NewAllowlist(cfg.Allowlist)
	if err != nil {
		return fmt.Errorf("invalid admin allowlist: %w", err)
	}

	mux := httpapi.NewMux(httpapi.Deps{
		Store:          store,
		Scheduler:      sched,
		Publisher:      pub,
		History:        history,
		Log:            log,
		AdminAllowlist: allowlist,
	})

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("http shutdown error", "error", err)
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Warnw("scheduler shutdown error", "error", err)
	}
	return nil
}
