package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dubber/internal/config"
	"dubber/internal/dubbing"
	"dubber/internal/logging"
	"dubber/internal/server"
	"dubber/internal/voices"
)

type dubOptions struct {
	target    string
	source    string
	voice     string
	voiceType string
	speed     float64
	logLevel  string
}

func newDubCommand(ctx *commandContext) *cobra.Command {
	var opts dubOptions

	cmd := &cobra.Command{
		Use:   "dub <video>",
		Short: "Dub a local video file",
		Long: `Run a video on disk through the dubbing pipeline without the HTTP service.

Cloned voices are addressed by their MiniMax voice id with --voice-type cloned;
the voice must already exist on the MiniMax account.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			input, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve input: %w", err)
			}

			logger, err := logging.New(logging.Options{
				Level:       firstNonEmpty(opts.logLevel, "warn"),
				Format:      cfg.Logging.Format,
				OutputPaths: []string{"stderr"},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			pipeline, err := server.NewPipeline(cfg, logger)
			if err != nil {
				return err
			}
			selector, err := voices.ParseSelector(opts.voiceType, opts.voice)
			if err != nil {
				return err
			}
			if selector.Kind == voices.KindCloned {
				pipeline.Profiles.Put(voices.Profile{ID: selector.ID, Name: selector.ID})
			}

			req := dubbing.Request{
				InputPath:      input,
				SourceLanguage: opts.source,
				TargetLanguage: opts.target,
				Voice:          selector,
			}
			if cmd.Flags().Changed("speed") {
				req.SpeedFactor = &opts.speed
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			started := time.Now()
			job, err := pipeline.Orchestrator.Run(runCtx, req)
			if job == nil {
				return err
			}
			if ctx.JSONMode() {
				if encErr := writeJSON(cmd, job); encErr != nil {
					return encErr
				}
				return err
			}
			if err != nil {
				var stageErr *dubbing.Error
				if errors.As(err, &stageErr) {
					return fmt.Errorf("dubbing failed at %s (%s): %s", stageErr.Stage.Label(), stageErr.Kind, stageErr.Message)
				}
				return err
			}
			printDubSummary(cmd, job, time.Since(started))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.target, "target", "t", "en", "Target language code")
	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "Source language code (auto-detect when empty)")
	cmd.Flags().StringVarP(&opts.voice, "voice", "v", "alloy", "Voice id")
	cmd.Flags().StringVar(&opts.voiceType, "voice-type", string(voices.KindStandard), "Voice type: standard or cloned")
	cmd.Flags().Float64Var(&opts.speed, "speed", 1.0, "Explicit speed factor (measured from timing when omitted)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level for pipeline diagnostics (default warn)")
	return cmd
}

func printDubSummary(cmd *cobra.Command, job *dubbing.Job, elapsed time.Duration) {
	out := cmd.OutOrStdout()
	output := job.Artifacts.OutputVideo
	size := output.SizeBytes
	if size == 0 {
		if info, err := os.Stat(output.Path); err == nil {
			size = info.Size()
		}
	}
	fmt.Fprintf(out, "Dubbed video: %s (%s)\n", output.Path, humanize.IBytes(uint64(max(size, 0))))
	fmt.Fprintf(out, "Languages:    %s -> %s\n", firstNonEmpty(job.DetectedLanguage(), "unknown"), job.TargetLanguage)
	fmt.Fprintf(out, "Voice:        %s\n", job.Voice)
	speed := fmt.Sprintf("%.3fx", job.Alignment.EffectiveSpeed)
	if job.Alignment.BoundExceeded {
		speed += fmt.Sprintf(" (clamped from %.3fx)", job.Alignment.Ratio)
	}
	fmt.Fprintf(out, "Speed:        %s\n", speed)
	fmt.Fprintf(out, "Duration:     %.1fs -> %.1fs\n", job.Artifacts.Audio.DurationSeconds, job.Artifacts.AlignedAudio.DurationSeconds)
	fmt.Fprintf(out, "Elapsed:      %s\n", elapsed.Round(time.Second))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
