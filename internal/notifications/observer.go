package notifications

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"dubber/internal/config"
	"dubber/internal/dubbing"
	"dubber/internal/logging"
)

// Observer publishes terminal job events without blocking the pipeline.
type Observer struct {
	svc       Service
	logger    *slog.Logger
	timeout   time.Duration
	completed bool
	failed    bool
	wg        sync.WaitGroup
}

// NewObserver wraps svc with the event toggles from cfg.
func NewObserver(cfg *config.Config, svc Service, logger *slog.Logger) *Observer {
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Observer{
		svc:       svc,
		logger:    logging.NewComponentLogger(logger, "notifications"),
		timeout:   timeout,
		completed: cfg.Notifications.NotifyJobComplete,
		failed:    cfg.Notifications.NotifyJobFailed,
	}
}

// OnTransition implements dubbing.Observer.
func (o *Observer) OnTransition(*dubbing.Job, dubbing.State, dubbing.State, time.Duration) {}

// OnFinish implements dubbing.Observer.
func (o *Observer) OnFinish(job *dubbing.Job) {
	if o == nil || job == nil {
		return
	}
	jobID := job.ID
	var send func(context.Context) error
	switch {
	case job.State == dubbing.StateComplete && o.completed:
		target := job.TargetLanguage
		output := filepath.Base(job.Artifacts.OutputVideo.Path)
		elapsed := job.FinishedAt.Sub(job.CreatedAt)
		send = func(ctx context.Context) error {
			return o.svc.NotifyJobCompleted(ctx, jobID, target, output, elapsed)
		}
	case job.State == dubbing.StateFailed && o.failed && job.Err != nil:
		stage := job.Err.Stage.Label()
		cause := job.Err
		send = func(ctx context.Context) error {
			return o.svc.NotifyJobFailed(ctx, jobID, stage, cause)
		}
	default:
		return
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		defer cancel()
		if err := send(ctx); err != nil {
			logging.WarnWithContext(o.logger, "notification failed", "notification_failed",
				logging.String(logging.FieldJobID, jobID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check ntfy topic URL and network reachability"),
				logging.String(logging.FieldImpact, "job result is unaffected"),
			)
		}
	}()
}

// Wait blocks until in-flight notifications finish.
func (o *Observer) Wait() {
	if o != nil {
		o.wg.Wait()
	}
}

var _ dubbing.Observer = (*Observer)(nil)
