package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ErrMalformedTranscript marks a 2xx transcription response that could not be decoded.
var ErrMalformedTranscript = errors.New("malformed transcript")

// Segment is one timed span of recognized speech, in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcription is the verbose_json result of a Whisper call.
type Transcription struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Segments []Segment `json:"segments"`
}

// Transcribe uploads the audio file and returns text with segment timing.
// languageHint may be empty to let the model detect the language.
func (c *Client) Transcribe(ctx context.Context, audioPath, languageHint string) (Transcription, error) {
	body, contentType, err := buildTranscriptionForm(audioPath, c.cfg.TranscriptionModel, languageHint)
	if err != nil {
		return Transcription{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/audio/transcriptions", body)
	if err != nil {
		return Transcription{}, fmt.Errorf("openai transcribe: new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	payload, err := c.do(req, "transcribe")
	if err != nil {
		return Transcription{}, err
	}
	var result Transcription
	if err := json.Unmarshal(payload, &result); err != nil {
		return Transcription{}, fmt.Errorf("openai transcribe: %w: %v", ErrMalformedTranscript, err)
	}
	result.Text = strings.TrimSpace(result.Text)
	for i := range result.Segments {
		result.Segments[i].Text = strings.TrimSpace(result.Segments[i].Text)
	}
	return result, nil
}

func buildTranscriptionForm(audioPath, model, languageHint string) (io.Reader, string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("openai transcribe: open audio: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"model", model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "segment"},
	}
	if hint := strings.TrimSpace(languageHint); hint != "" {
		fields = append(fields, [2]string{"language", hint})
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("openai transcribe: write field %s: %w", field[0], err)
		}
	}
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", fmt.Errorf("openai transcribe: create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("openai transcribe: copy audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("openai transcribe: close form: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}
