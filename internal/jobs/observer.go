package jobs

import (
	"context"
	"log/slog"
	"time"

	"dubber/internal/dubbing"
	"dubber/internal/logging"
)

// Observer mirrors pipeline events into the ledger.
type Observer struct {
	ledger *Ledger
	logger *slog.Logger
}

// NewObserver returns a dubbing.Observer writing to ledger.
func NewObserver(ledger *Ledger, logger *slog.Logger) *Observer {
	return &Observer{ledger: ledger, logger: logging.NewComponentLogger(logger, "jobs")}
}

// OnTransition implements dubbing.Observer.
func (o *Observer) OnTransition(job *dubbing.Job, _, to dubbing.State, _ time.Duration) {
	if to == dubbing.StateFailed {
		// OnFinish writes the failure details.
		return
	}
	if err := o.ledger.Save(context.Background(), FromJob(job)); err != nil {
		o.warn(job.ID, err)
	}
}

// OnFinish implements dubbing.Observer.
func (o *Observer) OnFinish(job *dubbing.Job) {
	if err := o.ledger.Save(context.Background(), FromJob(job)); err != nil {
		o.warn(job.ID, err)
	}
}

func (o *Observer) warn(jobID string, err error) {
	logging.WarnWithContext(o.logger, "job ledger update failed", "ledger_update_failed",
		logging.String(logging.FieldJobID, jobID),
		logging.Error(err),
		logging.String(logging.FieldImpact, "job status lookups may be stale"),
	)
}

var _ dubbing.Observer = (*Observer)(nil)
