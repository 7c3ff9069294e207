package minimax

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultCloneText = "This is a cloned voice for text-to-speech."

var sampleContentTypes = map[string]string{
	".mp3": "audio/mpeg",
	".m4a": "audio/mp4",
	".wav": "audio/wav",
}

// UploadSample uploads an audio sample for cloning and returns its file id.
func (c *Client) UploadSample(ctx context.Context, samplePath string) (string, error) {
	body, contentType, err := buildUploadForm(samplePath)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/files/upload", body)
	if err != nil {
		return "", fmt.Errorf("minimax upload: new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	payload, err := c.do(req, "upload")
	if err != nil {
		return "", err
	}
	var parsed struct {
		File struct {
			FileID fileID `json:"file_id"`
		} `json:"file"`
		FileID fileID `json:"file_id"`
		Data   struct {
			FileID fileID `json:"file_id"`
		} `json:"data"`
		BaseResp *baseResp `json:"base_resp"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("minimax upload: decode response: %w", err)
	}
	if err := parsed.BaseResp.err("upload"); err != nil {
		return "", err
	}
	for _, candidate := range []fileID{parsed.File.FileID, parsed.FileID, parsed.Data.FileID} {
		if id := strings.TrimSpace(string(candidate)); id != "" {
			return id, nil
		}
	}
	return "", errors.New("minimax upload: response carried no file_id")
}

func buildUploadForm(samplePath string) (io.Reader, string, error) {
	file, err := os.Open(samplePath)
	if err != nil {
		return nil, "", fmt.Errorf("minimax upload: open sample: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("purpose", "voice_clone"); err != nil {
		return nil, "", fmt.Errorf("minimax upload: write purpose: %w", err)
	}
	mimeType, ok := sampleContentTypes[strings.ToLower(filepath.Ext(samplePath))]
	if !ok {
		mimeType = "audio/mpeg"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(samplePath)))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("minimax upload: create part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("minimax upload: copy sample: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("minimax upload: close form: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

// fileID accepts numeric or string ids and echoes numeric ones back unquoted.
type fileID string

func (f *fileID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*f = fileID(value)
		return nil
	}
	*f = fileID(raw)
	return nil
}

func (f fileID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(f), 10, 64); err == nil {
		return []byte(f), nil
	}
	return json.Marshal(string(f))
}

type cloneRequest struct {
	FileID  fileID `json:"file_id"`
	VoiceID string `json:"voice_id"`
	Text    string `json:"text"`
	Model   string `json:"model"`
}

// CloneVoice registers an uploaded sample under voiceID.
func (c *Client) CloneVoice(ctx context.Context, uploadedID, voiceID, description string) error {
	text := strings.TrimSpace(description)
	if text == "" {
		text = defaultCloneText
	}
	payload, err := c.postJSON(ctx, "/voice_clone", "clone", cloneRequest{
		FileID:  fileID(uploadedID),
		VoiceID: voiceID,
		Text:    text,
		Model:   c.cfg.Model,
	})
	if err != nil {
		return err
	}
	var parsed struct {
		BaseResp *baseResp `json:"base_resp"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return fmt.Errorf("minimax clone: decode response: %w", err)
	}
	return parsed.BaseResp.err("clone")
}

// Clone uploads samplePath and registers it as voiceID in one step.
func (c *Client) Clone(ctx context.Context, samplePath, voiceID, description string) error {
	uploadedID, err := c.UploadSample(ctx, samplePath)
	if err != nil {
		return err
	}
	return c.CloneVoice(ctx, uploadedID, voiceID, description)
}
