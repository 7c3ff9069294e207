package dubbing

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type stubRunner struct {
	started chan string
	release chan struct{}
	runs    atomic.Int32
	panicOn string
}

func (s *stubRunner) Run(ctx context.Context, req Request) (*Job, error) {
	s.runs.Add(1)
	if s.started != nil {
		s.started <- req.ID
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return &Job{ID: req.ID, State: StateFailed}, ctx.Err()
		}
	}
	if req.ID == s.panicOn {
		panic("boom")
	}
	return &Job{ID: req.ID, State: StateComplete}, nil
}

func TestPoolRunsSubmittedJobs(t *testing.T) {
	runner := &stubRunner{}
	pool := NewPool(runner, 2, 4, nil)
	pool.Start(context.Background())
	defer pool.Stop(context.Background())

	var outcomes []<-chan Outcome
	for _, id := range []string{"a", "b", "c"} {
		ch, err := pool.Submit(Request{ID: id})
		if err != nil {
			t.Fatalf("Submit(%s): %v", id, err)
		}
		outcomes = append(outcomes, ch)
	}
	for _, ch := range outcomes {
		select {
		case out := <-ch:
			if out.Err != nil || out.Job.State != StateComplete {
				t.Fatalf("unexpected outcome %+v", out)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for outcome")
		}
	}
}

func TestPoolRejectsWhenQueueFull(t *testing.T) {
	runner := &stubRunner{started: make(chan string, 1), release: make(chan struct{})}
	pool := NewPool(runner, 1, 1, nil)
	pool.Start(context.Background())

	if _, err := pool.Submit(Request{ID: "running"}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	<-runner.started
	if _, err := pool.Submit(Request{ID: "queued"}); err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if _, err := pool.Submit(Request{ID: "overflow"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	go func() {
		for range runner.started {
		}
	}()
	close(runner.release)
	if err := pool.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if runner.runs.Load() != 2 {
		t.Fatalf("expected queued job to drain before stop, ran %d", runner.runs.Load())
	}
	if _, err := pool.Submit(Request{ID: "late"}); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}

func TestPoolJobOutlivesSubmitter(t *testing.T) {
	runner := &stubRunner{started: make(chan string, 1), release: make(chan struct{})}
	pool := NewPool(runner, 1, 1, nil)
	pool.Start(context.Background())
	defer pool.Stop(context.Background())

	ch, err := pool.Submit(Request{ID: "detached"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-runner.started
	// The submitter walks away; the job must still finish.
	close(runner.release)
	out := <-ch
	if out.Err != nil || out.Job.State != StateComplete {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestPoolRecoversPanics(t *testing.T) {
	runner := &stubRunner{panicOn: "bad"}
	pool := NewPool(runner, 1, 1, nil)
	pool.Start(context.Background())
	defer pool.Stop(context.Background())

	ch, err := pool.Submit(Request{ID: "bad"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	out := <-ch
	if !IsKind(out.Err, KindLocalProcessing) {
		t.Fatalf("expected LocalProcessingError from panic, got %v", out.Err)
	}
}

func TestPoolStopWithoutStartFailsQueuedJobs(t *testing.T) {
	pool := NewPool(&stubRunner{}, 1, 1, nil)
	ch, err := pool.Submit(Request{ID: "x"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	_ = pool.Stop(context.Background())
	if out := <-ch; !errors.Is(out.Err, ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", out.Err)
	}
}
