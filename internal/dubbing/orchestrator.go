package dubbing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"dubber/internal/language"
	"dubber/internal/logging"
	"dubber/internal/services"
	"dubber/internal/services/retry"
	"dubber/internal/voices"
)

// Config holds the orchestrator's limits and locations.
type Config struct {
	WorkDir           string
	OutputDir         string
	Bounds            Bounds
	AllowedContainers []string
	DefaultContainer  string
	RemoteTimeout     time.Duration
	MediaTimeout      time.Duration
	Retry             retry.Policy
}

// Dependencies are the collaborators the pipeline drives.
type Dependencies struct {
	Prober      Prober
	Media       MediaProcessor
	Transcriber Transcriber
	Translator  Translator
	Voices      *voices.Resolver
	Observers   []Observer
}

// Orchestrator sequences the pipeline stages for one job at a time per call.
type Orchestrator struct {
	cfg       Config
	deps      Dependencies
	extractor Extractor
	aligner   Aligner
	remuxer   Remuxer
	logger    *slog.Logger
	now       func() time.Time
}

// NewOrchestrator wires an orchestrator.
func NewOrchestrator(cfg Config, deps Dependencies, logger *slog.Logger) (*Orchestrator, error) {
	switch {
	case deps.Prober == nil, deps.Media == nil:
		return nil, errors.New("dubbing: media collaborators are required")
	case deps.Transcriber == nil, deps.Translator == nil:
		return nil, errors.New("dubbing: transcriber and translator are required")
	case deps.Voices == nil:
		return nil, errors.New("dubbing: voice resolver is required")
	case cfg.WorkDir == "" || cfg.OutputDir == "":
		return nil, errors.New("dubbing: work and output directories are required")
	}
	if !cfg.Bounds.valid() {
		cfg.Bounds = DefaultBounds
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:       cfg,
		deps:      deps,
		extractor: Extractor{Media: deps.Media, Prober: deps.Prober},
		aligner:   Aligner{Media: deps.Media, Prober: deps.Prober},
		remuxer:   Remuxer{Media: deps.Media, Prober: deps.Prober},
		logger:    logging.NewComponentLogger(logger, "dubbing"),
		now:       time.Now,
	}, nil
}

// Bounds returns the clamping range in use.
func (o *Orchestrator) Bounds() Bounds {
	return o.cfg.Bounds
}

// Validate rejects a request before any pipeline work happens.
func (o *Orchestrator) Validate(req Request) error {
	fail := func(msg string) error { return newError(KindValidation, StateReceived, msg, nil) }
	if strings.TrimSpace(req.InputPath) == "" {
		return fail("No video file provided")
	}
	if info, err := os.Stat(req.InputPath); err != nil || info.IsDir() {
		return fail("Input video not found")
	}
	if strings.TrimSpace(req.TargetLanguage) == "" {
		return fail("Target language is required")
	}
	if !language.IsDubbingTarget(req.TargetLanguage) {
		return fail(fmt.Sprintf("Unsupported target language %q", req.TargetLanguage))
	}
	if strings.TrimSpace(req.Voice.ID) == "" {
		return fail("Voice is required")
	}
	if req.SpeedFactor != nil {
		if v := *req.SpeedFactor; math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fail("Speed factor must be a positive number")
		}
	}
	return nil
}

// Run executes a job to its terminal state. The returned job is non-nil
// whenever validation passed; err is the job's *Error when it failed.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Job, error) {
	if err := o.Validate(req); err != nil {
		if req.OwnsInput {
			_ = os.Remove(req.InputPath)
		}
		return nil, err
	}
	job := &Job{
		ID:             strings.TrimSpace(req.ID),
		Session:        req.Session,
		Input:          MediaAsset{Path: req.InputPath},
		SourceLanguage: language.Normalize(req.SourceLanguage),
		TargetLanguage: language.Normalize(req.TargetLanguage),
		Voice:          req.Voice,
		SpeedFactor:    req.SpeedFactor,
		State:          StateReceived,
		CreatedAt:      o.now().UTC(),
		ownsInput:      req.OwnsInput,
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	ctx = services.WithJobID(ctx, job.ID)
	exec := &execution{o: o, job: job, logger: o.logger.With(logging.String(logging.FieldJobID, job.ID))}

	defer exec.release()

	workspace, err := NewWorkspace(o.cfg.WorkDir, job.ID)
	if err != nil {
		exec.fail(StateAudioExtracted, newError(KindLocalProcessing, StateAudioExtracted, "Could not allocate job workspace", err))
		return job, job.Err
	}
	exec.workspace = workspace

	exec.logger.Info("dubbing job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("input", filepath.Base(req.InputPath)),
		logging.String("target_language", job.TargetLanguage),
		logging.String("voice", job.Voice.String()),
	)
	for _, t := range transitions {
		if job.State != t.from {
			exec.fail(t.to, newError(KindLocalProcessing, t.to, fmt.Sprintf("invalid transition from %s", job.State), nil))
			break
		}
		if err := ctx.Err(); err != nil {
			exec.fail(t.to, newError(KindLocalProcessing, t.to, "Job canceled", err))
			break
		}
		if stageErr := exec.step(ctx, t); stageErr != nil {
			exec.fail(t.to, stageErr)
			break
		}
	}
	if job.Err != nil {
		return job, job.Err
	}
	return job, nil
}

type stageFunc func(*execution, context.Context) *Error

type transition struct {
	from State
	to   State
	run  stageFunc
}

// transitions is the complete, ordered state machine. Every stage consumes
// only artifacts produced by earlier states.
var transitions = []transition{
	{from: StateReceived, to: StateAudioExtracted, run: (*execution).extractAudio},
	{from: StateAudioExtracted, to: StateTranscribed, run: (*execution).transcribe},
	{from: StateTranscribed, to: StateTranslated, run: (*execution).translate},
	{from: StateTranslated, to: StateSynthesized, run: (*execution).synthesize},
	{from: StateSynthesized, to: StateAligned, run: (*execution).align},
	{from: StateAligned, to: StateRemuxed, run: (*execution).remux},
	{from: StateRemuxed, to: StateComplete, run: (*execution).publish},
}

type execution struct {
	o         *Orchestrator
	job       *Job
	workspace *Workspace
	logger    *slog.Logger
	remuxed   string
}

func (e *execution) step(ctx context.Context, t transition) *Error {
	stageCtx := services.WithStage(ctx, string(t.to))
	logger := e.logger.With(logging.String(logging.FieldStage, string(t.to)))
	start := e.o.now()
	logger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))

	if err := t.run(e, stageCtx); err != nil {
		return err
	}

	elapsed := e.o.now().Sub(start)
	from := e.job.State
	e.job.State = t.to
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", elapsed),
	)
	for _, obs := range e.o.deps.Observers {
		obs.OnTransition(e.job, from, t.to, elapsed)
	}
	return nil
}

func (e *execution) fail(stage State, stageErr *Error) {
	from := e.job.State
	stageErr.Stage = stage
	e.job.Err = stageErr
	e.job.State = StateFailed
	logging.ErrorWithContext(e.logger, "dubbing job failed", "stage_failure",
		logging.String(logging.FieldStage, string(stage)),
		logging.String("error_kind", string(stageErr.Kind)),
		logging.String("error_message", stageErr.Message),
		logging.String(logging.FieldErrorHint, hintFor(stageErr.Kind)),
		logging.Error(stageErr.Err),
	)
	for _, obs := range e.o.deps.Observers {
		obs.OnTransition(e.job, from, StateFailed, 0)
	}
}

// release frees every temporary artifact. It runs on every exit path.
func (e *execution) release() {
	if e.workspace != nil {
		if err := e.workspace.Release(); err != nil {
			logging.WarnWithContext(e.logger, "workspace cleanup failed", "workspace_cleanup_failed",
				logging.String("dir", e.workspace.Dir()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "temporary files remain until the stale workspace sweep"),
			)
		}
	}
	if e.job.ownsInput {
		if err := os.Remove(e.job.Input.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			e.logger.Debug("input cleanup failed", logging.Error(err))
		}
	}
	e.job.FinishedAt = e.o.now().UTC()
	if e.job.State == StateComplete {
		e.logger.Info("dubbing job completed",
			logging.String(logging.FieldEventType, "job_complete"),
			logging.String("output", e.job.Artifacts.OutputVideo.Path),
			logging.Float64("effective_speed", e.job.Alignment.EffectiveSpeed),
			logging.Bool("alignment_bound_exceeded", e.job.Alignment.BoundExceeded),
			logging.Duration("job_duration", e.job.FinishedAt.Sub(e.job.CreatedAt)),
		)
	}
	for _, obs := range e.o.deps.Observers {
		obs.OnFinish(e.job)
	}
}

func (e *execution) local(ctx context.Context, fn func(context.Context) error) error {
	if e.o.cfg.MediaTimeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, e.o.cfg.MediaTimeout)
	defer cancel()
	return fn(callCtx)
}

func (e *execution) remote(ctx context.Context, op string, fn func(context.Context) error) error {
	policy := e.o.cfg.Retry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		logging.WarnWithContext(e.logger, "remote call failed, retrying", "remote_retry",
			logging.String("operation", op),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stage delayed"),
		)
	}
	return retry.Do(ctx, policy, func(ctx context.Context) error {
		if e.o.cfg.RemoteTimeout <= 0 {
			return fn(ctx)
		}
		callCtx, cancel := context.WithTimeout(ctx, e.o.cfg.RemoteTimeout)
		defer cancel()
		return fn(callCtx)
	})
}

func localError(kind Kind, stage State, message string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindLocalProcessing, stage, message+" (timed out)", err)
	}
	return newError(kind, stage, message, err)
}

func remoteError(stage State, message string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		message += " (timed out)"
	}
	return newError(KindRemoteService, stage, message, err)
}

func (e *execution) extractAudio(ctx context.Context) *Error {
	var input MediaAsset
	err := e.local(ctx, func(ctx context.Context) error {
		var inspectErr error
		input, inspectErr = e.o.extractor.Inspect(ctx, e.job.Input.Path)
		return inspectErr
	})
	switch {
	case errors.Is(err, errNoAudioTrack):
		return newError(KindNoAudioTrack, StateAudioExtracted, "The video has no audio track to dub", err)
	case errors.Is(err, errNoVideoTrack):
		return newError(KindValidation, StateAudioExtracted, "The uploaded file has no video stream", err)
	case err != nil:
		return localError(KindLocalProcessing, StateAudioExtracted, "The uploaded file is not a readable video", err)
	}
	e.job.Input = input

	var audio MediaAsset
	err = e.local(ctx, func(ctx context.Context) error {
		var extractErr error
		audio, extractErr = e.o.extractor.Extract(ctx, input, e.workspace.Path("speech.mp3"))
		return extractErr
	})
	switch {
	case errors.Is(err, errNoAudioTrack):
		return newError(KindNoAudioTrack, StateAudioExtracted, "The video has no decodable audio track", err)
	case err != nil:
		return localError(KindLocalProcessing, StateAudioExtracted, "Audio extraction failed", err)
	}
	e.job.Artifacts.Audio = audio
	return nil
}

func (e *execution) transcribe(ctx context.Context) *Error {
	var transcript Transcript
	err := e.remote(ctx, "transcribe", func(ctx context.Context) error {
		var callErr error
		transcript, callErr = e.o.deps.Transcriber.Transcribe(ctx, e.job.Artifacts.Audio.Path, e.job.SourceLanguage)
		return callErr
	})
	if errors.Is(err, ErrMalformedTranscript) {
		return newError(KindEmptyTranscript, StateTranscribed, "The transcription service returned an unreadable transcript", err)
	}
	if err != nil {
		return remoteError(StateTranscribed, "Transcription failed", err)
	}
	transcript.Text = strings.TrimSpace(transcript.Text)
	if transcript.Text == "" {
		return newError(KindEmptyTranscript, StateTranscribed, "No speech was detected in the video", nil)
	}
	transcript.Segments = normalizeSegments(transcript.Segments)
	if lang := language.Normalize(transcript.Language); lang != "" {
		transcript.Language = lang
	} else if e.job.SourceLanguage != "" {
		transcript.Language = e.job.SourceLanguage
	} else {
		transcript.Language = strings.ToLower(strings.TrimSpace(transcript.Language))
	}
	e.job.Artifacts.Transcript = transcript
	return nil
}

func (e *execution) translate(ctx context.Context) *Error {
	transcript := e.job.Artifacts.Transcript
	target := e.job.TargetLanguage
	if language.Same(transcript.Language, target) {
		e.job.Artifacts.Translation = Translation{Text: transcript.Text, Language: target, Skipped: true}
		return nil
	}
	var translated string
	err := e.remote(ctx, "translate", func(ctx context.Context) error {
		var callErr error
		translated, callErr = e.o.deps.Translator.Translate(ctx, transcript.Text, transcript.Language, target)
		return callErr
	})
	if err != nil {
		return remoteError(StateTranslated, "Translation failed", err)
	}
	translated = strings.TrimSpace(translated)
	if translated == "" {
		return newError(KindRemoteService, StateTranslated, "The translation service returned no text", nil)
	}
	e.job.Artifacts.Translation = Translation{Text: translated, Language: target}
	return nil
}

func (e *execution) synthesize(ctx context.Context) *Error {
	synth, err := e.job.Voice.Resolve(e.o.deps.Voices, e.job.Session)
	if errors.Is(err, voices.ErrVoiceNotFound) {
		return newError(KindVoiceNotFound, StateSynthesized, fmt.Sprintf("Voice %q not found", e.job.Voice.ID), err)
	}
	if err != nil {
		return newError(KindSynthesis, StateSynthesized, "Voice is not available", err)
	}

	dest := e.workspace.Path("synthesized.mp3")
	err = e.remote(ctx, "synthesize", func(ctx context.Context) error {
		return synth.Synthesize(ctx, e.job.Artifacts.Translation.Text, dest)
	})
	switch {
	case errors.Is(err, voices.ErrVoiceNotFound):
		return newError(KindVoiceNotFound, StateSynthesized, fmt.Sprintf("Voice %q not found", e.job.Voice.ID), err)
	case errors.Is(err, context.DeadlineExceeded):
		return remoteError(StateSynthesized, "Speech synthesis failed", err)
	case err != nil:
		return newError(KindSynthesis, StateSynthesized, "Speech synthesis failed", err)
	}

	var audio MediaAsset
	err = e.local(ctx, func(ctx context.Context) error {
		var probeErr error
		audio, probeErr = e.o.deps.Prober.Probe(ctx, dest)
		return probeErr
	})
	if err != nil {
		return newError(KindSynthesis, StateSynthesized, "Synthesized audio is unreadable", err)
	}
	if audio.DurationSeconds <= 0 {
		return newError(KindSynthesis, StateSynthesized, "Synthesized audio is empty", nil)
	}
	e.job.Artifacts.SynthesizedAudio = audio
	return nil
}

func (e *execution) align(ctx context.Context) *Error {
	alignment := ComputeAlignment(
		e.job.Artifacts.Transcript.SpeechSeconds(),
		e.job.Artifacts.SynthesizedAudio.DurationSeconds,
		e.job.SpeedFactor,
		e.o.cfg.Bounds,
	)
	if alignment.BoundExceeded {
		logging.WarnWithContext(e.logger, "speed factor clamped", "alignment_bound_exceeded",
			logging.Float64("ratio", alignment.Ratio),
			logging.Float64("effective_speed", alignment.EffectiveSpeed),
			logging.Bool("requested", alignment.Requested),
			logging.String("error_kind", string(KindAlignmentBoundExceeded)),
			logging.String(logging.FieldImpact, "dubbed speech drifts from the original timing"),
			logging.String(logging.FieldErrorHint, "shorter translations or a different voice may fit better"),
		)
	}

	var aligned MediaAsset
	err := e.local(ctx, func(ctx context.Context) error {
		var applyErr error
		aligned, applyErr = e.o.aligner.Apply(ctx, e.job.Artifacts.SynthesizedAudio, alignment, e.workspace.Path("aligned.mp3"))
		return applyErr
	})
	if err != nil {
		return localError(KindLocalProcessing, StateAligned, "Time-stretching the dubbed audio failed", err)
	}
	alignment.AlignedSeconds = aligned.DurationSeconds
	e.job.Alignment = alignment
	e.job.Artifacts.AlignedAudio = aligned
	return nil
}

func (e *execution) remux(ctx context.Context) *Error {
	container := outputContainer(e.job.Input.Path, e.o.cfg.AllowedContainers, e.o.cfg.DefaultContainer)
	output := e.workspace.Path("dubbed." + container)
	var asset MediaAsset
	err := e.local(ctx, func(ctx context.Context) error {
		var remuxErr error
		asset, remuxErr = e.o.remuxer.Remux(ctx, e.job.Input, e.job.Artifacts.AlignedAudio, output, language.ToISO3(e.job.TargetLanguage))
		return remuxErr
	})
	if err != nil {
		return localError(KindRemux, StateRemuxed, "Replacing the audio track failed", err)
	}
	e.remuxed = output
	e.job.Artifacts.OutputVideo = asset
	return nil
}

func (e *execution) publish(context.Context) *Error {
	ext := filepath.Ext(e.remuxed)
	dest := filepath.Join(e.o.cfg.OutputDir, "dubbed_"+e.job.ID+ext)
	if err := publish(e.remuxed, dest); err != nil {
		return newError(KindLocalProcessing, StateComplete, "Saving the dubbed video failed", err)
	}
	e.job.Artifacts.OutputVideo.Path = dest
	return nil
}

func hintFor(kind Kind) string {
	switch kind {
	case KindNoAudioTrack:
		return "upload a video that contains spoken audio"
	case KindEmptyTranscript:
		return "check that the video contains audible speech"
	case KindRemoteService:
		return "check API keys, network access, and provider status"
	case KindSynthesis:
		return "check the speech provider account and the selected voice"
	case KindVoiceNotFound:
		return "re-clone the voice or choose a standard voice"
	case KindRemux:
		return "the audio codec may not fit the container; try mp4 or mkv"
	case KindValidation:
		return "fix the request and resubmit"
	default:
		return "check ffmpeg availability and disk space"
	}
}
