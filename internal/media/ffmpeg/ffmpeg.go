package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// CommandRunner executes a command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// Runner issues ffmpeg commands.
type Runner struct {
	Binary string
	Run    CommandRunner
}

func (r Runner) exec(ctx context.Context, op string, args []string) error {
	binary := strings.TrimSpace(r.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	run := r.Run
	if run == nil {
		run = ExecRunner
	}
	base := []string{"-y", "-hide_banner", "-loglevel", "error"}
	output, err := run(ctx, binary, append(base, args...)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg %s: %w", op, ctxErr)
		}
		return fmt.Errorf("ffmpeg %s: %w: %s", op, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// ExtractAudio writes the first audio stream of source as mono 16 kHz mp3.
func (r Runner) ExtractAudio(ctx context.Context, source, dest string) error {
	return r.exec(ctx, "extract", []string{
		"-i", source,
		"-map", "0:a:0",
		"-vn", "-sn", "-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "libmp3lame",
		"-b:a", "64k",
		dest,
	})
}

// Stretch changes the tempo of source by factor without shifting pitch.
// A factor above 1 shortens the audio.
func (r Runner) Stretch(ctx context.Context, source, dest string, factor float64) error {
	chain, err := AtempoChain(factor)
	if err != nil {
		return err
	}
	return r.exec(ctx, "stretch", []string{
		"-i", source,
		"-filter:a", chain,
		"-c:a", "libmp3lame",
		"-b:a", "192k",
		dest,
	})
}

// RemuxOptions describes an audio replacement.
type RemuxOptions struct {
	Video  string
	Audio  string
	Output string
	// PadSeconds appends silence when the new audio is shorter than the video.
	PadSeconds float64
	// Language is an ISO 639-2 tag for the new audio stream.
	Language string
}

// Remux copies the first video stream of Video and encodes Audio as the only
// audio stream. Output duration follows the shorter stream.
func (r Runner) Remux(ctx context.Context, opts RemuxOptions) error {
	if opts.Video == "" || opts.Audio == "" || opts.Output == "" {
		return errors.New("ffmpeg remux: video, audio, and output are required")
	}
	args := []string{
		"-i", opts.Video,
		"-i", opts.Audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
	}
	if opts.PadSeconds > 0 {
		args = append(args, "-af", "apad=pad_dur="+formatSeconds(opts.PadSeconds))
	}
	args = append(args, audioCodecArgs(filepath.Ext(opts.Output))...)
	args = append(args, "-shortest")
	if lang := strings.TrimSpace(opts.Language); lang != "" && lang != "und" {
		args = append(args, "-metadata:s:a:0", "language="+lang)
	}
	switch strings.ToLower(filepath.Ext(opts.Output)) {
	case ".mp4", ".mov":
		args = append(args, "-movflags", "+faststart")
	}
	args = append(args, opts.Output)
	return r.exec(ctx, "remux", args)
}

func audioCodecArgs(ext string) []string {
	switch strings.ToLower(ext) {
	case ".webm":
		return []string{"-c:a", "libopus", "-b:a", "128k"}
	case ".avi":
		return []string{"-c:a", "libmp3lame", "-b:a", "192k"}
	default:
		return []string{"-c:a", "aac", "-b:a", "192k"}
	}
}

const (
	minAtempo = 0.5
	maxAtempo = 2.0
)

// AtempoChain renders factor as one or more atempo filters, each inside the
// 0.5 to 2.0 range a single atempo stage accepts.
func AtempoChain(factor float64) (string, error) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return "", fmt.Errorf("ffmpeg stretch: invalid factor %v", factor)
	}
	var stages []string
	remaining := factor
	for remaining > maxAtempo {
		stages = append(stages, "atempo="+formatFactor(maxAtempo))
		remaining /= maxAtempo
	}
	for remaining < minAtempo {
		stages = append(stages, "atempo="+formatFactor(minAtempo))
		remaining /= minAtempo
	}
	stages = append(stages, "atempo="+formatFactor(remaining))
	return strings.Join(stages, ","), nil
}

func formatFactor(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
