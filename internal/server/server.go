package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"dubber/internal/api"
	"dubber/internal/config"
	"dubber/internal/dubbing"
	"dubber/internal/jobs"
	"dubber/internal/logging"
	"dubber/internal/notifications"
	"dubber/internal/preflight"
	"dubber/internal/staging"
)

const (
	lockFileName  = "dubber.lock"
	shutdownGrace = 2 * time.Minute
	// queuePerWorker bounds waiting jobs so uploads fail fast under load.
	queuePerWorker = 4
)

// ErrAlreadyRunning is returned when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another dubber instance is already running")

// Options configures the service runtime.
type Options struct {
	LogLevel      string
	Development   bool
	SkipPreflight bool
}

// Run starts the service and blocks until ctx is cancelled or SIGINT/SIGTERM
// arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, logPath, err := newRunLogger(cfg, opts)
	if err != nil {
		return err
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "dubber-*.log", Exclude: []string{logPath}},
	)

	lock, err := acquireLock(cfg.Paths.LogDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release instance lock", logging.Error(err))
		}
	}()

	if !opts.SkipPreflight {
		if err := runPreflight(signalCtx, cfg, logger); err != nil {
			return err
		}
	}

	ledger, err := jobs.Open(signalCtx)
	if err != nil {
		return fmt.Errorf("open job ledger: %w", err)
	}
	defer ledger.Close()

	notifier := notifications.NewObserver(cfg, notifications.NewService(cfg), logger)
	pipeline, err := NewPipeline(cfg, logger, jobs.NewObserver(ledger, logger), notifier)
	if err != nil {
		return err
	}

	// Jobs run on a context detached from signals so shutdown can drain them.
	pool := dubbing.NewPool(pipeline.Orchestrator, cfg.Dubbing.Workers, cfg.Dubbing.Workers*queuePerWorker, logger)
	pool.Start(context.WithoutCancel(signalCtx))

	sweeper := staging.NewSweeper(staging.SweepConfig{
		WorkDir:   cfg.Paths.WorkDir,
		OutputDir: cfg.Paths.OutputDir,
		UploadDir: cfg.Paths.UploadDir,
		Retention: cfg.OutputRetention(),
	}, activeJobs(ledger), ledger, logger)
	go sweeper.Run(signalCtx)

	var cloner api.Cloner
	if pipeline.Cloner != nil {
		cloner = pipeline.Cloner
	}
	handler := api.NewRouter(api.Deps{
		Config:    cfg,
		Pool:      pool,
		Validator: pipeline.Orchestrator,
		Ledger:    ledger,
		Profiles:  pipeline.Profiles,
		Cloner:    cloner,
		Logger:    logger,
	})

	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Minute,
		// Process requests hold the connection for the whole pipeline run.
		WriteTimeout: time.Hour,
		IdleTimeout:  2 * time.Minute,
	}
	listener, err := net.Listen("tcp", cfg.Paths.APIBind)
	if err != nil {
		_ = pool.Stop(context.Background())
		return fmt.Errorf("api listen: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	logger.Info("dubber listening",
		logging.String(logging.FieldEventType, "server_started"),
		logging.String("address", listener.Addr().String()),
		logging.Int("workers", cfg.Dubbing.Workers),
		logging.Bool("cloning_enabled", cloner != nil),
		logging.String("log_path", logPath),
	)

	var runErr error
	select {
	case <-signalCtx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("api server: %w", err)
		}
	}

	logger.Info("dubber shutting down", logging.String(logging.FieldEventType, "server_stopping"))
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancelShutdown()
	if err := pool.Stop(shutdownCtx); err != nil {
		logger.Warn("dubbing workers did not drain", logging.Error(err))
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api server shutdown incomplete", logging.Error(err))
	}
	pipeline.Profiles.Clear()
	notifier.Wait()
	logger.Info("dubber stopped")
	return runErr
}

func newRunLogger(cfg *config.Config, opts Options) (*slog.Logger, string, error) {
	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("dubber-%s.log", runID))
	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return nil, "", fmt.Errorf("init logger: %w", err)
	}
	return logger, logPath, nil
}

func acquireLock(dir string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(dir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}
	return lock, nil
}

func runPreflight(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	results := preflight.RunAll(ctx, cfg)
	for _, result := range results {
		attrs := []logging.Attr{
			logging.String("check", result.Name),
			logging.Bool("passed", result.Passed),
			logging.String("detail", result.Detail),
		}
		switch {
		case result.Passed:
			logger.Debug("preflight check passed", logging.Args(attrs...)...)
		case result.Optional:
			logging.WarnWithContext(logger, "optional preflight check failed", "preflight_optional_failed", attrs...)
		default:
			logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed", attrs...)
		}
	}
	if failed := preflight.Failed(results); len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for _, result := range failed {
			names = append(names, result.Name)
		}
		return fmt.Errorf("preflight failed: %s", strings.Join(names, ", "))
	}
	return nil
}

// activeJobs reports ids of jobs that have not reached a terminal state so the
// sweeper leaves their workspaces alone.
func activeJobs(ledger *jobs.Ledger) func() map[string]struct{} {
	var running []dubbing.State
	for _, state := range dubbing.Order() {
		if !state.Terminal() {
			running = append(running, state)
		}
	}
	return func() map[string]struct{} {
		records, err := ledger.List(context.Background(), running...)
		if err != nil {
			return nil
		}
		active := make(map[string]struct{}, len(records))
		for _, rec := range records {
			active[rec.ID] = struct{}{}
		}
		return active
	}
}

// LockPath returns the instance lock location for cfg.
func LockPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, lockFileName)
}

// Running reports whether another process currently holds the instance lock.
func Running(cfg *config.Config) (bool, error) {
	lock := flock.New(LockPath(cfg))
	ok, err := lock.TryLock()
	if err != nil {
		return false, err
	}
	if ok {
		_ = lock.Unlock()
		return false, nil
	}
	return true, nil
}
