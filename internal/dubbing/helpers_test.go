package dubbing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"dubber/internal/services/retry"
	"dubber/internal/voices"
)

// fakeMedia writes small marker files instead of invoking ffmpeg.
type fakeMedia struct {
	mu         sync.Mutex
	stretches  []float64
	remuxes    []RemuxRequest
	remuxErr   error
	extractErr error
}

func (m *fakeMedia) ExtractAudio(_ context.Context, video, dest string) error {
	if m.extractErr != nil {
		return m.extractErr
	}
	return os.WriteFile(dest, []byte("audio:"+filepath.Base(video)), 0o644)
}

func (m *fakeMedia) Stretch(_ context.Context, source, dest string, factor float64) error {
	m.mu.Lock()
	m.stretches = append(m.stretches, factor)
	m.mu.Unlock()
	data, err := os.ReadFile(source)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, append(data, []byte(fmt.Sprintf("@%g", factor))...), 0o644)
}

func (m *fakeMedia) Remux(_ context.Context, req RemuxRequest) error {
	m.mu.Lock()
	m.remuxes = append(m.remuxes, req)
	m.mu.Unlock()
	if m.remuxErr != nil {
		// Leave a partial file behind like a crashed ffmpeg would.
		_ = os.WriteFile(req.Output, []byte("partial"), 0o644)
		return m.remuxErr
	}
	video, err := os.ReadFile(req.Video)
	if err != nil {
		return err
	}
	return os.WriteFile(req.Output, append(video, []byte("|dubbed")...), 0o644)
}

// fakeProber answers by artifact name.
type fakeProber struct {
	input       MediaAsset
	synthesized float64
	noSpeech    bool
}

func (p *fakeProber) Probe(_ context.Context, path string) (MediaAsset, error) {
	if _, err := os.Stat(path); err != nil {
		return MediaAsset{}, err
	}
	base := filepath.Base(path)
	switch {
	case path == p.input.Path:
		asset := p.input
		return asset, nil
	case base == "speech.mp3":
		return MediaAsset{Path: path, Container: "mp3", HasAudio: !p.noSpeech, DurationSeconds: p.input.DurationSeconds}, nil
	case base == "synthesized.mp3":
		return MediaAsset{Path: path, Container: "mp3", HasAudio: true, DurationSeconds: p.synthesized}, nil
	case base == "aligned.mp3":
		data, _ := os.ReadFile(path)
		var factor float64
		if idx := strings.LastIndex(string(data), "@"); idx >= 0 {
			_, _ = fmt.Sscanf(string(data[idx+1:]), "%g", &factor)
		}
		if factor <= 0 {
			factor = 1
		}
		return MediaAsset{Path: path, Container: "mp3", HasAudio: true, DurationSeconds: p.synthesized / factor}, nil
	case strings.HasPrefix(base, "dubbed"):
		return MediaAsset{Path: path, Container: strings.TrimPrefix(filepath.Ext(path), "."), HasAudio: true, HasVideo: true, DurationSeconds: p.input.DurationSeconds}, nil
	}
	return MediaAsset{}, fmt.Errorf("unexpected probe of %s", path)
}

type fakeTranscriber struct {
	mu     sync.Mutex
	calls  int
	result Transcript
	errs   []error
}

func (t *fakeTranscriber) Transcribe(context.Context, string, string) (Transcript, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	if len(t.errs) > 0 {
		err := t.errs[0]
		t.errs = t.errs[1:]
		if err != nil {
			return Transcript{}, err
		}
	}
	return t.result, nil
}

type fakeTranslator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (t *fakeTranslator) Translate(_ context.Context, text, _, target string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	if t.err != nil {
		return "", t.err
	}
	return "[" + target + "] " + text, nil
}

type fakeBackend struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (b *fakeBackend) Speak(_ context.Context, voiceID, text, dest string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.err != nil {
		return b.err
	}
	return os.WriteFile(dest, []byte(voiceID+":"+text), 0o644)
}

type recordingObserver struct {
	mu          sync.Mutex
	transitions []State
	finished    []*Job
}

func (o *recordingObserver) OnTransition(_ *Job, _, to State, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, to)
}

func (o *recordingObserver) OnFinish(job *Job) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, job)
}

type harness struct {
	t           *testing.T
	root        string
	input       string
	media       *fakeMedia
	prober      *fakeProber
	transcriber *fakeTranscriber
	translator  *fakeTranslator
	standard    *fakeBackend
	cloned      *fakeBackend
	profiles    *voices.Registry
	observer    *recordingObserver
}

// newHarness builds a 10 s video whose speech spans 0-8 s and whose
// synthesized dub lasts 10 s.
func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	input := filepath.Join(root, "uploads", "clip.mp4")
	if err := os.MkdirAll(filepath.Dir(input), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(input, []byte("VIDEOSTREAM"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return &harness{
		t:     t,
		root:  root,
		input: input,
		media: &fakeMedia{},
		prober: &fakeProber{
			input:       MediaAsset{Path: input, Container: "mp4", HasAudio: true, HasVideo: true, DurationSeconds: 10},
			synthesized: 10,
		},
		transcriber: &fakeTranscriber{result: Transcript{
			Text:     "Hola a todos. Bienvenidos.",
			Language: "spanish",
			Segments: []TranscriptSegment{{Start: 3, End: 8, Text: "Bienvenidos."}, {Start: 0, End: 3, Text: "Hola a todos."}},
		}},
		translator: &fakeTranslator{},
		standard:   &fakeBackend{},
		cloned:     &fakeBackend{},
		profiles:   voices.NewRegistry(),
		observer:   &recordingObserver{},
	}
}

func (h *harness) orchestrator() *Orchestrator {
	h.t.Helper()
	o, err := NewOrchestrator(Config{
		WorkDir:           filepath.Join(h.root, "work"),
		OutputDir:         filepath.Join(h.root, "output"),
		Bounds:            Bounds{Min: 0.5, Max: 2.0},
		AllowedContainers: []string{"mp4", "avi", "mov", "mkv", "webm"},
		DefaultContainer:  "mp4",
		RemoteTimeout:     time.Second,
		MediaTimeout:      time.Second,
		Retry:             retry.Policy{MaxAttempts: 2, Sleeper: func(time.Duration) {}},
	}, Dependencies{
		Prober:      h.prober,
		Media:       h.media,
		Transcriber: h.transcriber,
		Translator:  h.translator,
		Voices:      &voices.Resolver{Standard: h.standard, Cloned: h.cloned, Profiles: h.profiles},
		Observers:   []Observer{h.observer},
	}, nil)
	if err != nil {
		h.t.Fatalf("NewOrchestrator: %v", err)
	}
	return o
}

func (h *harness) request() Request {
	return Request{
		InputPath:      h.input,
		TargetLanguage: "en",
		Voice:          voices.Standard("alloy"),
	}
}

func (h *harness) assertWorkspaceEmpty() {
	h.t.Helper()
	entries, err := os.ReadDir(filepath.Join(h.root, "work"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		h.t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		h.t.Fatalf("expected no leftover workspaces, found %d", len(entries))
	}
}

func (h *harness) outputs() []string {
	h.t.Helper()
	entries, _ := os.ReadDir(filepath.Join(h.root, "output"))
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func ptr(v float64) *float64 { return &v }
