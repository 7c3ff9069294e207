package dubbing

import (
	"context"
	"sort"
	"time"

	"dubber/internal/voices"
)

// MediaAsset is a read-only handle to a probed media file.
type MediaAsset struct {
	Path            string  `json:"path"`
	Container       string  `json:"container"`
	HasAudio        bool    `json:"has_audio_track"`
	HasVideo        bool    `json:"has_video_track"`
	DurationSeconds float64 `json:"duration_seconds"`
	VideoCodec      string  `json:"video_codec,omitempty"`
	AudioCodec      string  `json:"audio_codec,omitempty"`
	SizeBytes       int64   `json:"size_bytes,omitempty"`
}

// TranscriptSegment is one timed span of speech, in seconds.
type TranscriptSegment struct {
	Start float64 `json:"start_time"`
	End   float64 `json:"end_time"`
	Text  string  `json:"text"`
}

// Transcript is the transcription of the extracted audio.
type Transcript struct {
	Text     string              `json:"text"`
	Language string              `json:"language"`
	Segments []TranscriptSegment `json:"segments"`
}

// SpeechSeconds sums the segment spans.
func (t Transcript) SpeechSeconds() float64 {
	total := 0.0
	for _, seg := range t.Segments {
		if span := seg.End - seg.Start; span > 0 {
			total += span
		}
	}
	return total
}

// normalizeSegments orders segments by start and clips overlaps so spans are
// non-overlapping and monotonically increasing.
func normalizeSegments(segments []TranscriptSegment) []TranscriptSegment {
	out := make([]TranscriptSegment, 0, len(segments))
	for _, seg := range segments {
		if seg.Start < 0 {
			seg.Start = 0
		}
		if seg.End > seg.Start {
			out = append(out, seg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	clipped := out[:0]
	lastEnd := 0.0
	for _, seg := range out {
		if seg.Start < lastEnd {
			seg.Start = lastEnd
		}
		if seg.End <= seg.Start {
			continue
		}
		clipped = append(clipped, seg)
		lastEnd = seg.End
	}
	return clipped
}

// Translation is text tagged with its language.
type Translation struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	// Skipped is set when source and target were the same language.
	Skipped bool `json:"skipped"`
}

// Artifacts are the per-stage outputs of a job.
type Artifacts struct {
	Audio            MediaAsset  `json:"audio"`
	Transcript       Transcript  `json:"transcript"`
	Translation      Translation `json:"translation"`
	SynthesizedAudio MediaAsset  `json:"synthesized_audio"`
	AlignedAudio     MediaAsset  `json:"aligned_audio"`
	OutputVideo      MediaAsset  `json:"output_video"`
}

// Request is the caller's description of a dubbing job.
type Request struct {
	// ID is optional; a UUID is assigned when empty.
	ID             string
	InputPath      string
	SourceLanguage string
	TargetLanguage string
	Voice          voices.Selector
	SpeedFactor    *float64
	// OwnsInput deletes InputPath once the job is terminal.
	OwnsInput bool
	// Session tags the job with the caller that submitted it.
	Session string
}

// Job aggregates everything known about one dubbing run. Only the
// orchestrator mutates it.
type Job struct {
	ID             string          `json:"id"`
	Session        string          `json:"-"`
	Input          MediaAsset      `json:"input"`
	SourceLanguage string          `json:"source_language,omitempty"`
	TargetLanguage string          `json:"target_language"`
	Voice          voices.Selector `json:"voice"`
	SpeedFactor    *float64        `json:"speed_factor,omitempty"`
	State          State           `json:"state"`
	Artifacts      Artifacts       `json:"artifacts"`
	Alignment      Alignment       `json:"alignment"`
	Err            *Error          `json:"error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	FinishedAt     time.Time       `json:"finished_at,omitzero"`

	ownsInput bool
}

// DetectedLanguage is the transcript language, or the source hint.
func (j *Job) DetectedLanguage() string {
	if lang := j.Artifacts.Transcript.Language; lang != "" {
		return lang
	}
	return j.SourceLanguage
}

// Prober inspects a media file.
type Prober interface {
	Probe(ctx context.Context, path string) (MediaAsset, error)
}

// RemuxRequest replaces the audio of Video with Audio, writing Output.
type RemuxRequest struct {
	Video      string
	Audio      string
	Output     string
	PadSeconds float64
	Language   string
}

// MediaProcessor performs local media transformations.
type MediaProcessor interface {
	ExtractAudio(ctx context.Context, video, dest string) error
	Stretch(ctx context.Context, source, dest string, factor float64) error
	Remux(ctx context.Context, req RemuxRequest) error
}

// Transcriber turns speech audio into timed text. An empty languageHint
// requests auto-detection.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, languageHint string) (Transcript, error)
}

// Translator renders text in another language.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Observer receives job lifecycle events. Implementations must not block.
type Observer interface {
	OnTransition(job *Job, from, to State, elapsed time.Duration)
	OnFinish(job *Job)
}
