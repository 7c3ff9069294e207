package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"unicode"

	"dubber/internal/logging"
	"dubber/internal/voices"
)

type cloneForm struct {
	VoiceName   string `validate:"required,max=80"`
	Description string `validate:"max=500"`
}

var cloneMessages = map[string]string{
	"VoiceName":   "Voice name is required",
	"Description": "Voice description is too long",
}

type deleteRequest struct {
	VoiceID string `json:"voice_id" validate:"required"`
}

type cloneResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	VoiceID   string `json:"voice_id"`
	VoiceName string `json:"voice_name"`
}

// stripControl drops control characters from user-supplied labels.
func stripControl(value string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value))
}

func (h *handlers) cloneVoice(w http.ResponseWriter, r *http.Request) {
	if h.cloner == nil {
		writeError(w, http.StatusServiceUnavailable, "Voice cloning is not configured")
		return
	}
	maxBytes := h.cfg.MaxSampleBytes()
	sizeMessage := fmt.Sprintf("Audio file size exceeds maximum allowed size of %d MB", h.cfg.VoiceClone.MaxSampleMB)
	if tooLarge, err := parseUpload(w, r, maxBytes); err != nil {
		if tooLarge {
			writeError(w, http.StatusBadRequest, sizeMessage)
			return
		}
		writeError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer file.Close()

	form := cloneForm{
		VoiceName:   stripControl(formValue(r, "voice_name", "")),
		Description: stripControl(formValue(r, "voice_description", "")),
	}
	if strings.TrimSpace(header.Filename) == "" {
		writeError(w, http.StatusBadRequest, "No file selected")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err, cloneMessages))
		return
	}
	if !h.cfg.AllowsSampleExtension(uploadExt(header)) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid file type. Please upload an audio file (%s).", strings.Join(h.cfg.VoiceClone.AllowedExtensions, ", ")))
		return
	}
	if header.Size > maxBytes {
		writeError(w, http.StatusBadRequest, sizeMessage)
		return
	}

	path, err := saveUpload(file, header, h.cfg.Paths.UploadDir, "voice_clone")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not store uploaded audio")
		return
	}
	defer os.Remove(path)
	if _, err := sniffMedia(path); err != nil {
		writeError(w, http.StatusBadRequest, "Uploaded file is not an audio recording")
		return
	}

	session := sessionFrom(r.Context())
	voiceID := voices.NewVoiceID(form.VoiceName)
	if err := h.cloner.Clone(r.Context(), path, voiceID, form.Description); err != nil {
		logging.WarnWithContext(h.logger, "voice clone failed", "voice_clone_failed",
			logging.String("voice_name", form.VoiceName),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check minimax api_key and group_id"),
		)
		writeError(w, http.StatusBadGateway, fmt.Sprintf("Voice cloning failed: %v", err))
		return
	}

	if existing, ok := h.profiles.FindByName(session, form.VoiceName); ok {
		h.profiles.Delete(existing.ID)
	}
	h.profiles.Put(voices.Profile{
		ID:          voiceID,
		Name:        form.VoiceName,
		Description: form.Description,
		Session:     session,
	})
	h.logger.Info("voice cloned",
		logging.String(logging.FieldEventType, "voice_cloned"),
		logging.String("voice_id", voiceID),
		logging.String("voice_name", form.VoiceName),
	)

	writeJSON(w, http.StatusOK, cloneResponse{
		Success:   true,
		Message:   fmt.Sprintf("Voice %q cloned successfully!", form.VoiceName),
		VoiceID:   voiceID,
		VoiceName: form.VoiceName,
	})
}

func (h *handlers) listClonedVoices(w http.ResponseWriter, r *http.Request) {
	profiles := h.profiles.List(sessionFrom(r.Context()))
	if profiles == nil {
		profiles = []voices.Profile{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "voices": profiles})
}

// deleteClonedVoice forgets a profile for this session. The provider keeps
// the voice; only the local registration goes away.
func (h *handlers) deleteClonedVoice(w http.ResponseWriter, r *http.Request) {
	var body deleteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Voice ID is required")
		return
	}
	body.VoiceID = strings.TrimSpace(body.VoiceID)
	if err := h.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "Voice ID is required")
		return
	}
	profile, ok := h.profiles.Get(body.VoiceID)
	if !ok || profile.Session != sessionFrom(r.Context()) {
		writeError(w, http.StatusNotFound, "Voice not found")
		return
	}
	h.profiles.Delete(body.VoiceID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Voice removed from session (MiniMax voices persist on server)",
	})
}
