package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"dubber/internal/dubbing"
	"dubber/internal/services"
)

// ErrNotFound is returned when no job matches the lookup.
var ErrNotFound = fmt.Errorf("%w: job not found", services.ErrNotFound)

// Track registers a job before the pipeline picks it up.
func (l *Ledger) Track(ctx context.Context, req dubbing.Request) error {
	now := formatTime(l.now())
	_, err := l.exec(ctx,
		`INSERT INTO jobs (
            id, session, input_name, source_language, target_language,
            voice, voice_type, speed_factor, state, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID,
		nullableString(req.Session),
		nullableString(baseName(req.InputPath)),
		nullableString(req.SourceLanguage),
		req.TargetLanguage,
		nullableString(req.Voice.ID),
		nullableString(string(req.Voice.Kind)),
		nullableFloat(req.SpeedFactor),
		dubbing.StateReceived,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("track job: %w", err)
	}
	return nil
}

// Save upserts the full record.
func (l *Ledger) Save(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = l.now()
	}
	_, err := l.exec(ctx,
		`INSERT INTO jobs (`+recordColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            session = excluded.session,
            input_name = excluded.input_name,
            source_language = excluded.source_language,
            detected_language = excluded.detected_language,
            target_language = excluded.target_language,
            voice = excluded.voice,
            voice_type = excluded.voice_type,
            speed_factor = excluded.speed_factor,
            state = excluded.state,
            failed_stage = excluded.failed_stage,
            error_kind = excluded.error_kind,
            error_message = excluded.error_message,
            effective_speed = excluded.effective_speed,
            bound_exceeded = excluded.bound_exceeded,
            original_duration = excluded.original_duration,
            final_duration = excluded.final_duration,
            original_text = excluded.original_text,
            translated_text = excluded.translated_text,
            output_path = excluded.output_path,
            updated_at = excluded.updated_at,
            finished_at = excluded.finished_at`,
		rec.ID,
		nullableString(rec.Session),
		nullableString(rec.InputName),
		nullableString(rec.SourceLanguage),
		nullableString(rec.DetectedLanguage),
		rec.TargetLanguage,
		nullableString(rec.Voice),
		nullableString(rec.VoiceType),
		nullableFloat(rec.SpeedFactor),
		rec.State,
		nullableString(string(rec.FailedStage)),
		nullableString(string(rec.ErrorKind)),
		nullableString(rec.ErrorMessage),
		rec.EffectiveSpeed,
		boolInt(rec.BoundExceeded),
		rec.OriginalDuration,
		rec.FinalDuration,
		nullableString(rec.OriginalText),
		nullableString(rec.TranslatedText),
		nullableString(rec.OutputPath),
		formatTime(rec.CreatedAt),
		formatTime(l.now()),
		formatTime(rec.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

// UpdateState moves a tracked job to state.
func (l *Ledger) UpdateState(ctx context.Context, id string, state dubbing.State) error {
	res, err := l.exec(ctx,
		`UPDATE jobs SET state = ?, updated_at = ? WHERE id = ?`,
		state, formatTime(l.now()), id,
	)
	if err != nil {
		return fmt.Errorf("update job state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get fetches a job by id.
func (l *Ledger) Get(ctx context.Context, id string) (*Record, error) {
	row := l.db.QueryRowContext(ensureContext(ctx), `SELECT `+recordColumns+` FROM jobs WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return rec, nil
}

// LatestCompleted returns the session's most recently finished successful job.
func (l *Ledger) LatestCompleted(ctx context.Context, session string) (*Record, error) {
	if strings.TrimSpace(session) == "" {
		return nil, ErrNotFound
	}
	row := l.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+recordColumns+` FROM jobs
        WHERE session = ? AND state = ?
        ORDER BY finished_at DESC LIMIT 1`,
		session, dubbing.StateComplete,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest completed job: %w", err)
	}
	return rec, nil
}

// List returns jobs ordered by creation time, optionally filtered by state.
func (l *Ledger) List(ctx context.Context, states ...dubbing.State) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM jobs`
	args := make([]any, 0, len(states))
	if len(states) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(states)), ",")
		query += ` WHERE state IN (` + placeholders + `)`
		for _, state := range states {
			args = append(args, state)
		}
	}
	query += ` ORDER BY created_at`

	rows, err := l.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Counts tallies jobs by state.
func (l *Ledger) Counts(ctx context.Context) (map[dubbing.State]int, error) {
	rows, err := l.db.QueryContext(ensureContext(ctx), `SELECT state, COUNT(*) FROM jobs GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[dubbing.State]int)
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("scan job count: %w", err)
		}
		counts[dubbing.State(state)] = n
	}
	return counts, rows.Err()
}

// Prune drops terminal jobs that finished before cutoff.
func (l *Ledger) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := l.exec(ctx,
		`DELETE FROM jobs WHERE finished_at IS NOT NULL AND finished_at < ?`,
		formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	return res.RowsAffected()
}

func baseName(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	return filepath.Base(path)
}
