package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
)

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

// Speak synthesizes text with a catalog voice and writes mp3 audio to dest.
func (c *Client) Speak(ctx context.Context, voiceID, text, dest string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("openai speech: text required")
	}
	encoded, err := json.Marshal(speechRequest{
		Model:          c.cfg.SpeechModel,
		Voice:          voiceID,
		Input:          text,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return fmt.Errorf("openai speech: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/audio/speech", bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("openai speech: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	audio, err := c.do(req, "speech")
	if err != nil {
		return err
	}
	if len(audio) == 0 {
		return errors.New("openai speech: empty audio response")
	}
	if err := os.WriteFile(dest, audio, 0o644); err != nil {
		return fmt.Errorf("openai speech: write audio: %w", err)
	}
	return nil
}
