package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"dubber/internal/dubbing"
	"dubber/internal/jobs"
	"dubber/internal/logging"
	"dubber/internal/services"
	"dubber/internal/voices"
)

func openLedger(t *testing.T) *jobs.Ledger {
	t.Helper()
	ledger, err := jobs.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = ledger.Close() })
	return ledger
}

func TestTrackAndGet(t *testing.T) {
	ledger := openLedger(t)
	ctx := context.Background()
	speed := 1.5
	req := dubbing.Request{
		ID:             "job-1",
		InputPath:      "/uploads/dubbing_clip.mp4",
		TargetLanguage: "es",
		Voice:          voices.Standard("nova"),
		SpeedFactor:    &speed,
		Session:        "sess-a",
	}
	if err := ledger.Track(ctx, req); err != nil {
		t.Fatalf("Track: %v", err)
	}

	rec, err := ledger.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.State != dubbing.StateReceived || rec.InputName != "dubbing_clip.mp4" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.SpeedFactor == nil || *rec.SpeedFactor != 1.5 {
		t.Fatalf("speed factor not stored: %v", rec.SpeedFactor)
	}
	if rec.Voice != "nova" || rec.VoiceType != "standard" {
		t.Fatalf("unexpected voice %q/%q", rec.Voice, rec.VoiceType)
	}
	if rec.Terminal() {
		t.Fatal("received job must not be terminal")
	}

	if err := ledger.UpdateState(ctx, "job-1", dubbing.StateTranscribed); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	rec, _ = ledger.Get(ctx, "job-1")
	if rec.State != dubbing.StateTranscribed {
		t.Fatalf("expected transcribed, got %s", rec.State)
	}
}

func TestGetMissingJob(t *testing.T) {
	ledger := openLedger(t)
	_, err := ledger.Get(context.Background(), "nope")
	if !errors.Is(err, jobs.ErrNotFound) || !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := ledger.UpdateState(context.Background(), "nope", dubbing.StateAligned); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected not found from UpdateState, got %v", err)
	}
}

func TestObserverRecordsOutcome(t *testing.T) {
	ledger := openLedger(t)
	obs := jobs.NewObserver(ledger, logging.NewNop())
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	done := &dubbing.Job{
		ID:             "ok",
		Session:        "sess-a",
		TargetLanguage: "fr",
		Voice:          voices.Standard("alloy"),
		State:          dubbing.StateComplete,
		CreatedAt:      created,
		FinishedAt:     created.Add(time.Minute),
	}
	done.Artifacts.Transcript = dubbing.Transcript{Text: "hello", Language: "en"}
	done.Artifacts.Translation = dubbing.Translation{Text: "bonjour", Language: "fr"}
	done.Artifacts.OutputVideo.Path = "/out/dubbed_ok.mp4"
	done.Alignment = dubbing.Alignment{EffectiveSpeed: 2, BoundExceeded: true}
	obs.OnFinish(done)

	failed := &dubbing.Job{
		ID:             "bad",
		Session:        "sess-a",
		TargetLanguage: "fr",
		Voice:          voices.Cloned("ana_1234abcd"),
		State:          dubbing.StateFailed,
		CreatedAt:      created.Add(2 * time.Minute),
		FinishedAt:     created.Add(3 * time.Minute),
		Err: &dubbing.Error{
			Kind:    dubbing.KindVoiceNotFound,
			Stage:   dubbing.StateSynthesized,
			Message: "Voice not found",
		},
	}
	obs.OnFinish(failed)

	ctx := context.Background()
	rec, err := ledger.Get(ctx, "bad")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.ErrorKind != dubbing.KindVoiceNotFound || rec.FailedStage != dubbing.StateSynthesized {
		t.Fatalf("unexpected failure record %+v", rec)
	}

	latest, err := ledger.LatestCompleted(ctx, "sess-a")
	if err != nil {
		t.Fatalf("LatestCompleted: %v", err)
	}
	if latest.ID != "ok" || latest.OutputPath != "/out/dubbed_ok.mp4" || !latest.BoundExceeded {
		t.Fatalf("unexpected latest record %+v", latest)
	}
	if latest.DetectedLanguage != "en" || latest.TranslatedText != "bonjour" {
		t.Fatalf("artifacts not captured: %+v", latest)
	}
	if got := latest.Elapsed(time.Now()); got != time.Minute {
		t.Fatalf("expected 1m elapsed, got %s", got)
	}
	if _, err := ledger.LatestCompleted(ctx, "other"); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected not found for other session, got %v", err)
	}

	counts, err := ledger.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts[dubbing.StateComplete] != 1 || counts[dubbing.StateFailed] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}

	failedOnly, err := ledger.List(ctx, dubbing.StateFailed)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(failedOnly) != 1 || failedOnly[0].ID != "bad" {
		t.Fatalf("unexpected filtered list %+v", failedOnly)
	}

	pruned, err := ledger.Prune(ctx, created.Add(150*time.Second))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected 1 pruned job, got %d", pruned)
	}
	all, _ := ledger.List(ctx)
	if len(all) != 1 || all[0].ID != "bad" {
		t.Fatalf("unexpected remaining jobs %+v", all)
	}
}
