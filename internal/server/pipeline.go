package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dubber/internal/config"
	"dubber/internal/dubbing"
	"dubber/internal/media"
	"dubber/internal/services/llm"
	"dubber/internal/services/minimax"
	"dubber/internal/services/openai"
	"dubber/internal/services/retry"
	"dubber/internal/voices"
)

// Pipeline bundles the collaborators built from configuration.
type Pipeline struct {
	Orchestrator *dubbing.Orchestrator
	Profiles     *voices.Registry
	// Cloner is nil when MiniMax credentials are absent.
	Cloner *minimax.Client
}

// NewPipeline wires the orchestrator against OpenAI, MiniMax, and ffmpeg.
func NewPipeline(cfg *config.Config, logger *slog.Logger, observers ...dubbing.Observer) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	audio := openai.New(openai.Config{
		APIKey:             cfg.OpenAI.APIKey,
		BaseURL:            cfg.OpenAI.BaseURL,
		TranscriptionModel: cfg.OpenAI.TranscriptionModel,
		SpeechModel:        cfg.OpenAI.SpeechModel,
		TimeoutSeconds:     cfg.OpenAI.TimeoutSeconds,
	})
	chat := llm.NewClient(llm.Config{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		Model:          cfg.OpenAI.TranslationModel,
		TimeoutSeconds: cfg.OpenAI.TimeoutSeconds,
	})

	profiles := voices.NewRegistry()
	resolver := &voices.Resolver{Standard: audio, Profiles: profiles}
	var cloner *minimax.Client
	if cfg.CloningEnabled() {
		cloner = minimax.New(minimax.Config{
			APIKey:         cfg.MiniMax.APIKey,
			GroupID:        cfg.MiniMax.GroupID,
			BaseURL:        cfg.MiniMax.BaseURL,
			Model:          cfg.MiniMax.Model,
			TimeoutSeconds: cfg.MiniMax.TimeoutSeconds,
		})
		resolver.Cloned = cloner
	}

	toolkit := media.NewToolkit(cfg)
	orchestrator, err := dubbing.NewOrchestrator(OrchestratorConfig(cfg), dubbing.Dependencies{
		Prober:      toolkit,
		Media:       toolkit,
		Transcriber: transcriber{client: audio},
		Translator:  llm.NewTranslator(chat, cfg.OpenAI.TranslationTemperature),
		Voices:      resolver,
		Observers:   observers,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}
	return &Pipeline{Orchestrator: orchestrator, Profiles: profiles, Cloner: cloner}, nil
}

// OrchestratorConfig maps service configuration onto pipeline limits.
func OrchestratorConfig(cfg *config.Config) dubbing.Config {
	return dubbing.Config{
		WorkDir:           cfg.Paths.WorkDir,
		OutputDir:         cfg.Paths.OutputDir,
		Bounds:            dubbing.Bounds{Min: cfg.Dubbing.MinSpeed, Max: cfg.Dubbing.MaxSpeed},
		AllowedContainers: cfg.Dubbing.AllowedExtensions,
		DefaultContainer:  cfg.Dubbing.DefaultContainer,
		RemoteTimeout:     time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
		MediaTimeout:      cfg.MediaTimeout(),
		Retry: retry.Policy{
			MaxAttempts: cfg.Dubbing.RetryAttempts,
			BaseDelay:   cfg.RetryBackoff(),
		},
	}
}

// transcriber adapts the Whisper client to the pipeline's transcript model.
type transcriber struct {
	client *openai.Client
}

func (t transcriber) Transcribe(ctx context.Context, audioPath, languageHint string) (dubbing.Transcript, error) {
	result, err := t.client.Transcribe(ctx, audioPath, languageHint)
	if err != nil {
		if errors.Is(err, openai.ErrMalformedTranscript) {
			return dubbing.Transcript{}, fmt.Errorf("%w: %v", dubbing.ErrMalformedTranscript, err)
		}
		return dubbing.Transcript{}, err
	}
	return toTranscript(result), nil
}

func toTranscript(result openai.Transcription) dubbing.Transcript {
	segments := make([]dubbing.TranscriptSegment, 0, len(result.Segments))
	for _, seg := range result.Segments {
		segments = append(segments, dubbing.TranscriptSegment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	return dubbing.Transcript{Text: result.Text, Language: result.Language, Segments: segments}
}
