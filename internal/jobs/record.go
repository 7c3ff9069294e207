package jobs

import (
	"database/sql"
	"fmt"
	"time"

	"dubber/internal/dubbing"
)

// Record is the ledger's view of one job.
type Record struct {
	ID               string        `json:"job_id"`
	Session          string        `json:"-"`
	InputName        string        `json:"input_name,omitempty"`
	SourceLanguage   string        `json:"source_language,omitempty"`
	DetectedLanguage string        `json:"detected_language,omitempty"`
	TargetLanguage   string        `json:"target_language"`
	Voice            string        `json:"voice"`
	VoiceType        string        `json:"voice_type"`
	SpeedFactor      *float64      `json:"speed_factor,omitempty"`
	State            dubbing.State `json:"state"`
	FailedStage      dubbing.State `json:"stage,omitempty"`
	ErrorKind        dubbing.Kind  `json:"error_kind,omitempty"`
	ErrorMessage     string        `json:"error,omitempty"`
	EffectiveSpeed   float64       `json:"effective_speed,omitempty"`
	BoundExceeded    bool          `json:"alignment_bound_exceeded"`
	OriginalDuration float64       `json:"original_duration,omitempty"`
	FinalDuration    float64       `json:"final_duration,omitempty"`
	OriginalText     string        `json:"-"`
	TranslatedText   string        `json:"-"`
	OutputPath       string        `json:"-"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	FinishedAt       time.Time     `json:"finished_at,omitzero"`
}

// Terminal reports whether the job has finished.
func (r *Record) Terminal() bool {
	return r != nil && r.State.Terminal()
}

// Elapsed is the wall time from creation to finish, or to now while running.
func (r *Record) Elapsed(now time.Time) time.Duration {
	end := r.FinishedAt
	if end.IsZero() {
		end = now
	}
	if d := end.Sub(r.CreatedAt); d > 0 {
		return d
	}
	return 0
}

// FromJob snapshots a pipeline job.
func FromJob(job *dubbing.Job) Record {
	rec := Record{
		ID:               job.ID,
		Session:          job.Session,
		InputName:        baseName(job.Input.Path),
		SourceLanguage:   job.SourceLanguage,
		DetectedLanguage: job.DetectedLanguage(),
		TargetLanguage:   job.TargetLanguage,
		Voice:            job.Voice.ID,
		VoiceType:        string(job.Voice.Kind),
		SpeedFactor:      job.SpeedFactor,
		State:            job.State,
		EffectiveSpeed:   job.Alignment.EffectiveSpeed,
		BoundExceeded:    job.Alignment.BoundExceeded,
		OriginalDuration: job.Artifacts.Audio.DurationSeconds,
		FinalDuration:    job.Artifacts.AlignedAudio.DurationSeconds,
		OriginalText:     job.Artifacts.Transcript.Text,
		TranslatedText:   job.Artifacts.Translation.Text,
		OutputPath:       job.Artifacts.OutputVideo.Path,
		CreatedAt:        job.CreatedAt,
		FinishedAt:       job.FinishedAt,
	}
	if job.Err != nil {
		rec.FailedStage = job.Err.Stage
		rec.ErrorKind = job.Err.Kind
		rec.ErrorMessage = job.Err.Message
	}
	return rec
}

const recordColumns = `id, session, input_name, source_language, detected_language, target_language,
    voice, voice_type, speed_factor, state, failed_stage, error_kind, error_message,
    effective_speed, bound_exceeded, original_duration, final_duration,
    original_text, translated_text, output_path, created_at, updated_at, finished_at`

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		rec              Record
		session          sql.NullString
		inputName        sql.NullString
		sourceLanguage   sql.NullString
		detectedLanguage sql.NullString
		voice            sql.NullString
		voiceType        sql.NullString
		speedFactor      sql.NullFloat64
		state            string
		failedStage      sql.NullString
		errorKind        sql.NullString
		errorMessage     sql.NullString
		effectiveSpeed   sql.NullFloat64
		boundExceeded    int64
		originalDuration sql.NullFloat64
		finalDuration    sql.NullFloat64
		originalText     sql.NullString
		translatedText   sql.NullString
		outputPath       sql.NullString
		createdRaw       string
		updatedRaw       string
		finishedRaw      sql.NullString
	)
	if err := scanner.Scan(
		&rec.ID,
		&session,
		&inputName,
		&sourceLanguage,
		&detectedLanguage,
		&rec.TargetLanguage,
		&voice,
		&voiceType,
		&speedFactor,
		&state,
		&failedStage,
		&errorKind,
		&errorMessage,
		&effectiveSpeed,
		&boundExceeded,
		&originalDuration,
		&finalDuration,
		&originalText,
		&translatedText,
		&outputPath,
		&createdRaw,
		&updatedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	rec.Session = session.String
	rec.InputName = inputName.String
	rec.SourceLanguage = sourceLanguage.String
	rec.DetectedLanguage = detectedLanguage.String
	rec.Voice = voice.String
	rec.VoiceType = voiceType.String
	if speedFactor.Valid {
		value := speedFactor.Float64
		rec.SpeedFactor = &value
	}
	rec.State = dubbing.State(state)
	rec.FailedStage = dubbing.State(failedStage.String)
	rec.ErrorKind = dubbing.Kind(errorKind.String)
	rec.ErrorMessage = errorMessage.String
	rec.EffectiveSpeed = effectiveSpeed.Float64
	rec.BoundExceeded = boundExceeded != 0
	rec.OriginalDuration = originalDuration.Float64
	rec.FinalDuration = finalDuration.Float64
	rec.OriginalText = originalText.String
	rec.TranslatedText = translatedText.String
	rec.OutputPath = outputPath.String

	var err error
	if rec.CreatedAt, err = parseTime(createdRaw); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = parseTime(updatedRaw); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if finishedRaw.Valid && finishedRaw.String != "" {
		if rec.FinishedAt, err = parseTime(finishedRaw.String); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
	}
	return &rec, nil
}

func parseTime(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, raw)
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func boolInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
