package minimax

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"dubber/internal/services/retry"
)

type voiceSetting struct {
	VoiceID string  `json:"voice_id"`
	Speed   float64 `json:"speed"`
	Vol     float64 `json:"vol"`
	Pitch   int     `json:"pitch"`
}

type audioSetting struct {
	SampleRate int    `json:"sample_rate"`
	Bitrate    int    `json:"bitrate"`
	Format     string `json:"format"`
	Channel    int    `json:"channel"`
}

type t2aRequest struct {
	Model        string       `json:"model"`
	Text         string       `json:"text"`
	Stream       bool         `json:"stream"`
	VoiceSetting voiceSetting `json:"voice_setting"`
	AudioSetting audioSetting `json:"audio_setting"`
	GroupID      string       `json:"group_id,omitempty"`
}

type t2aResponse struct {
	Data *struct {
		Audio    string `json:"audio"`
		AudioURL string `json:"audio_url"`
	} `json:"data"`
	BaseResp *baseResp `json:"base_resp"`
}

// Speak synthesizes text with a cloned voice and writes mp3 audio to dest.
func (c *Client) Speak(ctx context.Context, voiceID, text, dest string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("minimax t2a: text required")
	}
	payload, err := c.postJSON(ctx, "/t2a_v2", "t2a", t2aRequest{
		Model:        c.cfg.Model,
		Text:         text,
		VoiceSetting: voiceSetting{VoiceID: voiceID, Speed: 1, Vol: 1, Pitch: 0},
		AudioSetting: audioSetting{SampleRate: 32000, Bitrate: 128000, Format: "mp3", Channel: 1},
		GroupID:      c.cfg.GroupID,
	})
	if err != nil {
		return err
	}
	var parsed t2aResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return fmt.Errorf("minimax t2a: decode response: %w", err)
	}
	if err := parsed.BaseResp.err("t2a"); err != nil {
		return err
	}
	if parsed.Data == nil {
		return errors.New("minimax t2a: response carried no data")
	}

	var audio []byte
	switch {
	case strings.TrimSpace(parsed.Data.Audio) != "":
		audio, err = hex.DecodeString(strings.TrimSpace(parsed.Data.Audio))
		if err != nil {
			return fmt.Errorf("minimax t2a: decode hex audio: %w", err)
		}
	case strings.TrimSpace(parsed.Data.AudioURL) != "":
		audio, err = c.download(ctx, strings.TrimSpace(parsed.Data.AudioURL))
		if err != nil {
			return err
		}
	default:
		return errors.New("minimax t2a: response carried no audio")
	}
	if len(audio) == 0 {
		return errors.New("minimax t2a: empty audio")
	}
	if err := os.WriteFile(dest, audio, 0o644); err != nil {
		return fmt.Errorf("minimax t2a: write audio: %w", err)
	}
	return nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("minimax t2a: new download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("minimax t2a download: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("minimax t2a download: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, retry.NewStatusError(serviceName, resp, body)
	}
	return body, nil
}
