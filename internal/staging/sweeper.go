package staging

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"dubber/internal/logging"
)

// Pruner drops ledger entries for jobs finished before cutoff.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// SweepConfig describes what a Sweeper cleans and how often.
type SweepConfig struct {
	WorkDir   string
	OutputDir string
	UploadDir string
	// Retention bounds how long finished outputs stay downloadable.
	Retention time.Duration
	// StaleAfter bounds leftover workspaces and uploads.
	StaleAfter time.Duration
	Interval   time.Duration
}

// Sweeper runs the retention and stale-workspace cleanup on a ticker.
type Sweeper struct {
	cfg    SweepConfig
	active func() map[string]struct{}
	ledger Pruner
	logger *slog.Logger
}

// NewSweeper builds a sweeper. active reports running job ids whose
// workspaces must survive; ledger may be nil.
func NewSweeper(cfg SweepConfig, active func() map[string]struct{}, ledger Pruner, logger *slog.Logger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 6 * time.Hour
	}
	if active == nil {
		active = func() map[string]struct{} { return nil }
	}
	return &Sweeper{
		cfg:    cfg,
		active: active,
		ledger: ledger,
		logger: logging.NewComponentLogger(logger, "staging"),
	}
}

// Run sweeps immediately and then on every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.Sweep(ctx)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one cleanup pass.
func (s *Sweeper) Sweep(ctx context.Context) CleanResult {
	var result CleanResult
	if s.cfg.Retention > 0 {
		result.merge(CleanOutputs(ctx, s.cfg.OutputDir, s.cfg.Retention, s.logger))
	}
	result.merge(CleanStale(ctx, s.cfg.WorkDir, s.cfg.StaleAfter, s.active(), s.logger))
	result.merge(CleanUploads(ctx, s.cfg.UploadDir, s.cfg.StaleAfter, s.logger))

	if s.ledger != nil && s.cfg.Retention > 0 {
		if pruned, err := s.ledger.Prune(ctx, time.Now().Add(-s.cfg.Retention)); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: "ledger", Error: err})
		} else if pruned > 0 {
			s.logger.Debug("pruned job ledger", logging.Int64("jobs", pruned))
		}
	}

	if len(result.Removed) > 0 {
		s.logger.Info("cleanup pass complete",
			logging.Int("removed", len(result.Removed)),
			logging.String("freed", humanize.Bytes(uint64(result.FreedBytes))),
			logging.Int("errors", len(result.Errors)),
			logging.String(logging.FieldEventType, "staging_sweep"),
		)
	}
	return result
}
