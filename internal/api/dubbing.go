package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"dubber/internal/dubbing"
	"dubber/internal/jobs"
	"dubber/internal/language"
	"dubber/internal/logging"
	"dubber/internal/services"
	"dubber/internal/textutil"
	"dubber/internal/voices"
)

type processForm struct {
	SourceLanguage string
	TargetLanguage string   `validate:"required"`
	Voice          string   `validate:"required"`
	VoiceType      string   `validate:"oneof=standard cloned"`
	SpeedFactor    *float64 `validate:"omitnil,gt=0,lte=3"`
}

var processMessages = map[string]string{
	"TargetLanguage": "Target language is required",
	"Voice":          "Voice is required",
	"VoiceType":      "Voice type must be standard or cloned",
	"SpeedFactor":    "Speed factor must be greater than 0 and at most 3.0",
}

type processResponse struct {
	Success                bool    `json:"success"`
	Message                string  `json:"message"`
	JobID                  string  `json:"job_id"`
	VideoURL               string  `json:"video_url"`
	OriginalText           string  `json:"original_text"`
	TranslatedText         string  `json:"translated_text"`
	DetectedLanguage       string  `json:"detected_language"`
	TargetLanguage         string  `json:"target_language"`
	Voice                  string  `json:"voice"`
	VoiceType              string  `json:"voice_type"`
	SpeedFactor            float64 `json:"speed_factor"`
	OriginalDuration       float64 `json:"original_duration"`
	FinalDuration          float64 `json:"final_duration"`
	AlignmentBoundExceeded bool    `json:"alignment_bound_exceeded"`
}

// formValue returns the trimmed field, or fallback when the field is absent.
// A field that is present but blank stays blank.
func formValue(r *http.Request, key, fallback string) string {
	if values, ok := r.PostForm[key]; ok && len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return fallback
}

func (h *handlers) processDubbing(w http.ResponseWriter, r *http.Request) {
	maxBytes := h.cfg.MaxUploadBytes()
	if tooLarge, err := parseUpload(w, r, maxBytes); err != nil {
		if tooLarge {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Video file size exceeds maximum allowed size of %d MB", h.cfg.Dubbing.MaxUploadMB))
			return
		}
		writeError(w, http.StatusBadRequest, "No video file provided")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("video")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No video file provided")
		return
	}
	defer file.Close()
	if strings.TrimSpace(header.Filename) == "" {
		writeError(w, http.StatusBadRequest, "No file selected")
		return
	}
	invalidType := fmt.Sprintf("Invalid file type. Please upload a video file (%s).", strings.Join(h.cfg.Dubbing.AllowedExtensions, ", "))
	if !h.cfg.AllowsExtension(uploadExt(header)) {
		writeError(w, http.StatusBadRequest, invalidType)
		return
	}
	if header.Size > maxBytes {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Video file size exceeds maximum allowed size of %d MB", h.cfg.Dubbing.MaxUploadMB))
		return
	}

	form := processForm{
		SourceLanguage: formValue(r, "source_language", ""),
		TargetLanguage: formValue(r, "target_language", "en"),
		Voice:          formValue(r, "voice", "alloy"),
		VoiceType:      strings.ToLower(formValue(r, "voice_type", string(voices.KindStandard))),
	}
	if raw := formValue(r, "speed_factor", ""); raw != "" {
		speed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid speed factor")
			return
		}
		form.SpeedFactor = &speed
	}
	if err := h.validate.Struct(form); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err, processMessages))
		return
	}
	selector, err := voices.ParseSelector(form.VoiceType, form.Voice)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Voice is required")
		return
	}
	if selector.Kind == voices.KindCloned {
		if p, ok := h.profiles.Get(selector.ID); !ok || p.Session != sessionFrom(r.Context()) {
			writeError(w, http.StatusNotFound, "Voice not found")
			return
		}
	}

	path, err := saveUpload(file, header, h.cfg.Paths.UploadDir, "dubbing")
	if err != nil {
		logging.ErrorWithContext(h.logger, "upload save failed", "upload_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check upload_dir permissions and free space"),
		)
		writeError(w, http.StatusInternalServerError, "Could not store uploaded video")
		return
	}
	if _, err := sniffMedia(path); err != nil {
		_ = os.Remove(path)
		writeError(w, http.StatusBadRequest, invalidType)
		return
	}

	req := dubbing.Request{
		ID:             uuid.NewString(),
		InputPath:      path,
		SourceLanguage: form.SourceLanguage,
		TargetLanguage: form.TargetLanguage,
		Voice:          selector,
		SpeedFactor:    form.SpeedFactor,
		OwnsInput:      true,
		Session:        sessionFrom(r.Context()),
	}
	if err := h.check.Validate(req); err != nil {
		_ = os.Remove(path)
		h.writeFailure(w, err, "")
		return
	}

	ctx := r.Context()
	if err := h.ledger.Track(ctx, req); err != nil {
		logging.WarnWithContext(h.logger, "job ledger write failed", "ledger_write_failed",
			logging.String(logging.FieldJobID, req.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "job status lookups will miss this job"),
		)
	}
	done, err := h.pool.Submit(req)
	if err != nil {
		_ = os.Remove(path)
		_ = h.ledger.UpdateState(ctx, req.ID, dubbing.StateFailed)
		if errors.Is(err, dubbing.ErrQueueFull) || errors.Is(err, dubbing.ErrPoolClosed) {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Server is busy, please try again later", JobID: req.ID})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var outcome dubbing.Outcome
	select {
	case outcome = <-done:
	case <-ctx.Done():
		// The job keeps running; its result stays reachable through the ledger.
		h.logger.Info("client disconnected before job finished",
			logging.String(logging.FieldEventType, "client_disconnected"),
			logging.String(logging.FieldJobID, req.ID),
		)
		return
	}
	if outcome.Err != nil {
		if outcome.Job == nil {
			_ = h.ledger.UpdateState(ctx, req.ID, dubbing.StateFailed)
		}
		h.writeFailure(w, outcome.Err, req.ID)
		return
	}

	job := outcome.Job
	limit := h.cfg.Dubbing.TextPreviewChars
	writeJSON(w, http.StatusOK, processResponse{
		Success:                true,
		Message:                "Video dubbed successfully!",
		JobID:                  job.ID,
		VideoURL:               "/temp/" + filepath.Base(job.Artifacts.OutputVideo.Path),
		OriginalText:           textutil.Truncate(job.Artifacts.Transcript.Text, limit),
		TranslatedText:         textutil.Truncate(job.Artifacts.Translation.Text, limit),
		DetectedLanguage:       job.DetectedLanguage(),
		TargetLanguage:         job.TargetLanguage,
		Voice:                  job.Voice.ID,
		VoiceType:              string(job.Voice.Kind),
		SpeedFactor:            job.Alignment.EffectiveSpeed,
		OriginalDuration:       job.Artifacts.Audio.DurationSeconds,
		FinalDuration:          job.Artifacts.AlignedAudio.DurationSeconds,
		AlignmentBoundExceeded: job.Alignment.BoundExceeded,
	})
}

// writeFailure answers with the status services.HTTPStatus assigns to the
// error's marker. Validation failures carry only their message.
func (h *handlers) writeFailure(w http.ResponseWriter, err error, jobID string) {
	status := services.HTTPStatus(err)
	de, ok := dubbing.AsError(err)
	if !ok {
		writeJSON(w, status, errorResponse{Error: err.Error(), JobID: jobID})
		return
	}
	if de.Kind == dubbing.KindValidation {
		writeJSON(w, status, errorResponse{Error: de.Message, ErrorKind: string(de.Kind), JobID: jobID})
		return
	}
	message := de.Message
	if de.Err != nil {
		message = fmt.Sprintf("%s: %v", de.Message, de.Err)
	}
	writeJSON(w, status, errorResponse{
		Error:     message,
		Stage:     string(de.Stage),
		ErrorKind: string(de.Kind),
		JobID:     jobID,
	})
}

func (h *handlers) downloadDubbed(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ledger.LatestCompleted(r.Context(), sessionFrom(r.Context()))
	if err != nil || strings.TrimSpace(rec.OutputPath) == "" {
		writeError(w, http.StatusNotFound, "No dubbed video available")
		return
	}
	h.sendFile(w, r, rec.OutputPath, "dubbed_video"+filepath.Ext(rec.OutputPath), true)
}

// serveOutput serves a finished video by file name from the output dir.
func (h *handlers) serveOutput(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "file")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		writeError(w, http.StatusNotFound, "Dubbed video file not found")
		return
	}
	h.sendFile(w, r, filepath.Join(h.cfg.Paths.OutputDir, name), name, false)
}

func (h *handlers) sendFile(w http.ResponseWriter, r *http.Request, path, downloadName string, attachment bool) {
	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "Dubbed video file not found")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "Dubbed video file not found")
		return
	}
	if mtype, err := mimetype.DetectFile(path); err == nil {
		w.Header().Set("Content-Type", mtype.String())
	}
	if attachment {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	}
	http.ServeContent(w, r, downloadName, info.ModTime(), f)
}

func (h *handlers) languages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"languages": language.Catalog(),
	})
}

func (h *handlers) voices(w http.ResponseWriter, r *http.Request) {
	profiles := h.profiles.List(sessionFrom(r.Context()))
	standard := voices.StandardVoices()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"voices":         voices.Listing(profiles),
		"standard_count": len(standard),
		"cloned_count":   len(profiles),
	})
}

func (h *handlers) job(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ledger.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, jobs.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "job": rec})
}

// listJobs returns every tracked job, optionally filtered by ?state=.
func (h *handlers) listJobs(w http.ResponseWriter, r *http.Request) {
	var states []dubbing.State
	for _, value := range r.URL.Query()["state"] {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			states = append(states, dubbing.State(trimmed))
		}
	}
	records, err := h.ledger.List(r.Context(), states...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*jobs.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "jobs": records})
}
