package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOpenAI(); err != nil {
		return err
	}
	if err := c.validateDubbing(); err != nil {
		return err
	}
	if err := c.validateVoiceClone(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"openai.timeout_seconds":        c.OpenAI.TimeoutSeconds,
		"minimax.timeout_seconds":       c.MiniMax.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOpenAI() error {
	if c.OpenAI.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/dubber/config.toml"
		}
		return fmt.Errorf("openai.api_key is required. Set OPENAI_API_KEY env var or edit %s (create with 'dubber config init')", defaultPath)
	}
	if c.OpenAI.TranslationTemperature < 0 || c.OpenAI.TranslationTemperature > 2 {
		return errors.New("openai.translation_temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateDubbing() error {
	d := c.Dubbing
	if err := ensurePositiveMap(map[string]int{
		"dubbing.max_upload_mb":          d.MaxUploadMB,
		"dubbing.workers":                d.Workers,
		"dubbing.media_timeout_seconds":  d.MediaTimeoutSeconds,
		"dubbing.retry_attempts":         d.RetryAttempts,
		"dubbing.output_retention_hours": d.OutputRetentionHours,
	}); err != nil {
		return err
	}
	if d.MinSpeed <= 0 {
		return errors.New("dubbing.min_speed must be positive")
	}
	if d.MaxSpeed < d.MinSpeed {
		return errors.New("dubbing.max_speed must be greater than or equal to dubbing.min_speed")
	}
	if d.MinSpeed > 1 || d.MaxSpeed < 1 {
		return errors.New("dubbing speed bounds must include 1.0")
	}
	if !c.AllowsExtension(d.DefaultContainer) {
		return fmt.Errorf("dubbing.default_container %q must be one of dubbing.allowed_extensions (%s)",
			d.DefaultContainer, strings.Join(d.AllowedExtensions, ", "))
	}
	return nil
}

func (c *Config) validateVoiceClone() error {
	if c.VoiceClone.MaxSampleMB <= 0 {
		return errors.New("voice_clone.max_sample_mb must be positive")
	}
	return nil
}

// CloningEnabled reports whether MiniMax credentials are available.
func (c *Config) CloningEnabled() bool {
	return strings.TrimSpace(c.MiniMax.APIKey) != ""
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
