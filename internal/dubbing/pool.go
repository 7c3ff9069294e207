package dubbing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"dubber/internal/logging"
)

var (
	// ErrQueueFull is returned when every worker is busy and the queue is at capacity.
	ErrQueueFull = errors.New("dubbing queue is full")
	// ErrPoolClosed is returned after Stop.
	ErrPoolClosed = errors.New("dubbing pool is stopped")
)

// JobRunner runs a job to completion.
type JobRunner interface {
	Run(ctx context.Context, req Request) (*Job, error)
}

// Outcome is delivered once per submitted job.
type Outcome struct {
	Job *Job
	Err error
}

type task struct {
	req  Request
	done chan Outcome
}

// Pool runs jobs on a fixed number of workers. Jobs execute under the pool's
// context, so a submitter that stops waiting does not abort its job; the job
// still finishes and cleans up.
type Pool struct {
	runner  JobRunner
	workers int
	queue   chan task
	logger  *slog.Logger

	mu      sync.Mutex
	closed  bool
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPool builds a pool. queueSize bounds jobs waiting for a worker.
func NewPool(runner JobRunner, workers, queueSize int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pool{
		runner:  runner,
		workers: workers,
		queue:   make(chan task, queueSize),
		logger:  logging.NewComponentLogger(logger, "dubbing-pool"),
	}
}

// Start launches the workers. Cancelling ctx aborts running jobs.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 1; i <= p.workers; i++ {
		p.wg.Add(1)
		go p.work(ctx, i)
	}
	p.logger.Info("dubbing workers started", logging.Int("workers", p.workers))
}

func (p *Pool) work(ctx context.Context, id int) {
	defer p.wg.Done()
	for t := range p.queue {
		p.logger.Debug("worker picked up job", logging.Int("worker", id), logging.String(logging.FieldJobID, t.req.ID))
		job, err := p.run(ctx, t.req)
		t.done <- Outcome{Job: job, Err: err}
		close(t.done)
	}
}

func (p *Pool) run(ctx context.Context, req Request) (job *Job, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(p.logger, "dubbing job panicked", "job_panic",
				logging.String(logging.FieldJobID, req.ID),
				logging.Any("panic", r),
			)
			err = newError(KindLocalProcessing, StateFailed, "Internal error while dubbing", fmt.Errorf("panic: %v", r))
		}
	}()
	return p.runner.Run(ctx, req)
}

// Submit queues req without blocking. The returned channel yields exactly
// one Outcome.
func (p *Pool) Submit(req Request) (<-chan Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	t := task{req: req, done: make(chan Outcome, 1)}
	select {
	case p.queue <- t:
		return t.done, nil
	default:
		return nil, ErrQueueFull
	}
}

// Stop stops accepting jobs and waits for queued and running jobs to finish.
// Cancelling ctx aborts in-flight jobs instead of waiting.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	cancel := p.cancel
	started := p.started
	p.mu.Unlock()

	if !started {
		for t := range p.queue {
			t.done <- Outcome{Err: ErrPoolClosed}
			close(t.done)
		}
		return nil
	}

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		if cancel != nil {
			cancel()
		}
		<-finished
	}
	if cancel != nil {
		cancel()
	}
	p.logger.Info("dubbing workers stopped")
	return nil
}
