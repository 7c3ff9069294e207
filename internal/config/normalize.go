package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOpenAI()
	c.normalizeMiniMax()
	c.normalizeDubbing()
	c.normalizeVoiceClone()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.UploadDir, err = expandPath(defaultIfBlank(c.Paths.UploadDir, defaultUploadDir)); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(defaultIfBlank(c.Paths.OutputDir, defaultOutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(defaultIfBlank(c.Paths.WorkDir, defaultWorkDir)); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(defaultIfBlank(c.Paths.LogDir, defaultLogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = defaultIfBlank(c.Paths.APIBind, defaultAPIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if value, ok := lookupEnv("DUBBER_API_TOKEN"); ok {
		c.Paths.APIToken = value
	}
	return nil
}

func (c *Config) normalizeOpenAI() {
	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	if value, ok := lookupEnv("OPENAI_API_KEY"); ok {
		c.OpenAI.APIKey = value
	}
	c.OpenAI.BaseURL = strings.TrimRight(defaultIfBlank(c.OpenAI.BaseURL, defaultOpenAIBaseURL), "/")
	c.OpenAI.TranscriptionModel = defaultIfBlank(c.OpenAI.TranscriptionModel, defaultTranscriptionModel)
	c.OpenAI.TranslationModel = defaultIfBlank(c.OpenAI.TranslationModel, defaultTranslationModel)
	c.OpenAI.SpeechModel = defaultIfBlank(c.OpenAI.SpeechModel, defaultSpeechModel)
	if c.OpenAI.TimeoutSeconds <= 0 {
		c.OpenAI.TimeoutSeconds = defaultOpenAITimeoutSeconds
	}
}

func (c *Config) normalizeMiniMax() {
	c.MiniMax.APIKey = strings.TrimSpace(c.MiniMax.APIKey)
	if value, ok := lookupEnv("MINIMAX_API_KEY"); ok {
		c.MiniMax.APIKey = value
	}
	c.MiniMax.GroupID = strings.TrimSpace(c.MiniMax.GroupID)
	if value, ok := lookupEnv("MINIMAX_GROUP_ID"); ok {
		c.MiniMax.GroupID = value
	}
	c.MiniMax.BaseURL = strings.TrimRight(defaultIfBlank(c.MiniMax.BaseURL, defaultMiniMaxBaseURL), "/")
	c.MiniMax.Model = defaultIfBlank(c.MiniMax.Model, defaultMiniMaxModel)
	if c.MiniMax.TimeoutSeconds <= 0 {
		c.MiniMax.TimeoutSeconds = defaultMiniMaxTimeoutSeconds
	}
}

func (c *Config) normalizeDubbing() {
	c.Dubbing.AllowedExtensions = normalizeExtensions(c.Dubbing.AllowedExtensions, defaultVideoExtensions)
	c.Dubbing.DefaultTargetLanguage = strings.ToLower(defaultIfBlank(c.Dubbing.DefaultTargetLanguage, defaultTargetLanguage))
	c.Dubbing.DefaultVoice = defaultIfBlank(c.Dubbing.DefaultVoice, defaultVoice)
	c.Dubbing.DefaultContainer = strings.ToLower(strings.TrimPrefix(defaultIfBlank(c.Dubbing.DefaultContainer, defaultContainer), "."))
	if c.Dubbing.Workers <= 0 {
		c.Dubbing.Workers = defaultWorkers
	}
	if c.Dubbing.TextPreviewChars <= 0 {
		c.Dubbing.TextPreviewChars = defaultTextPreviewChars
	}
	if c.Dubbing.RetryBackoffMillis < 0 {
		c.Dubbing.RetryBackoffMillis = 0
	}
}

func (c *Config) normalizeVoiceClone() {
	c.VoiceClone.AllowedExtensions = normalizeExtensions(c.VoiceClone.AllowedExtensions, defaultAudioExtensions)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func normalizeExtensions(values, fallback []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(value), "."))
		if ext == "" {
			continue
		}
		if _, exists := seen[ext]; exists {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}

func defaultIfBlank(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}

// lookupEnv returns a trimmed, non-empty environment value. Environment
// variables take precedence over values read from the config file.
func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
