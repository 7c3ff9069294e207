package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	UploadDir string `toml:"upload_dir"`
	OutputDir string `toml:"output_dir"`
	WorkDir   string `toml:"work_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
	APIToken  string `toml:"api_token"`
}

// OpenAI contains configuration for transcription, translation, and standard voices.
type OpenAI struct {
	APIKey                 string  `toml:"api_key"`
	BaseURL                string  `toml:"base_url"`
	TranscriptionModel     string  `toml:"transcription_model"`
	TranslationModel       string  `toml:"translation_model"`
	TranslationTemperature float64 `toml:"translation_temperature"`
	SpeechModel            string  `toml:"speech_model"`
	TimeoutSeconds         int     `toml:"timeout_seconds"`
}

// MiniMax contains configuration for voice cloning and cloned-voice synthesis.
type MiniMax struct {
	APIKey         string `toml:"api_key"`
	GroupID        string `toml:"group_id"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Dubbing contains pipeline limits, defaults, and alignment bounds.
type Dubbing struct {
	MaxUploadMB           int      `toml:"max_upload_mb"`
	AllowedExtensions     []string `toml:"allowed_extensions"`
	MinSpeed              float64  `toml:"min_speed"`
	MaxSpeed              float64  `toml:"max_speed"`
	DefaultTargetLanguage string   `toml:"default_target_language"`
	DefaultVoice          string   `toml:"default_voice"`
	DefaultContainer      string   `toml:"default_container"`
	Workers               int      `toml:"workers"`
	MediaTimeoutSeconds   int      `toml:"media_timeout_seconds"`
	RetryAttempts         int      `toml:"retry_attempts"`
	RetryBackoffMillis    int      `toml:"retry_backoff_ms"`
	OutputRetentionHours  int      `toml:"output_retention_hours"`
	TextPreviewChars      int      `toml:"text_preview_chars"`
}

// VoiceClone contains limits for cloned-voice samples.
type VoiceClone struct {
	MaxSampleMB       int      `toml:"max_sample_mb"`
	AllowedExtensions []string `toml:"allowed_extensions"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic         string `toml:"ntfy_topic"`
	RequestTimeout    int    `toml:"request_timeout"`
	NotifyJobComplete bool   `toml:"notify_job_complete"`
	NotifyJobFailed   bool   `toml:"notify_job_failed"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for dubber.
//
// Configuration sections by subsystem:
//   - Paths: directories and API bind address
//   - OpenAI: transcription, translation, and standard voice synthesis
//   - MiniMax: voice cloning and cloned voice synthesis
//   - Dubbing: upload limits, alignment bounds, workers, retries
//   - VoiceClone: sample limits for voice cloning
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	OpenAI        OpenAI        `toml:"openai"`
	MiniMax       MiniMax       `toml:"minimax"`
	Dubbing       Dubbing       `toml:"dubbing"`
	VoiceClone    VoiceClone    `toml:"voice_clone"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/dubber/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dubber.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for server operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.UploadDir, c.Paths.OutputDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for extraction, stretching, and remuxing.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// MaxUploadBytes converts the upload limit to bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Dubbing.MaxUploadMB) * 1024 * 1024
}

// MaxSampleBytes converts the voice sample limit to bytes.
func (c *Config) MaxSampleBytes() int64 {
	return int64(c.VoiceClone.MaxSampleMB) * 1024 * 1024
}

// MediaTimeout bounds a single local ffmpeg/ffprobe invocation.
func (c *Config) MediaTimeout() time.Duration {
	return time.Duration(c.Dubbing.MediaTimeoutSeconds) * time.Second
}

// OutputRetention is how long finished videos remain downloadable.
func (c *Config) OutputRetention() time.Duration {
	return time.Duration(c.Dubbing.OutputRetentionHours) * time.Hour
}

// RetryBackoff is the base delay between attempts against remote services.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Dubbing.RetryBackoffMillis) * time.Millisecond
}

// AllowsExtension reports whether ext (with or without the leading dot) is an
// accepted input container.
func (c *Config) AllowsExtension(ext string) bool {
	return containsExtension(c.Dubbing.AllowedExtensions, ext)
}

// AllowsSampleExtension reports whether ext is an accepted voice sample format.
func (c *Config) AllowsSampleExtension(ext string) bool {
	return containsExtension(c.VoiceClone.AllowedExtensions, ext)
}

func containsExtension(allowed []string, ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" {
		return false
	}
	for _, candidate := range allowed {
		if candidate == ext {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
