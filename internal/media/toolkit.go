package media

import (
	"context"
	"path/filepath"
	"strings"

	"dubber/internal/config"
	"dubber/internal/dubbing"
	"dubber/internal/media/ffmpeg"
	"dubber/internal/media/ffprobe"
)

// Toolkit is the ffmpeg-backed media layer.
type Toolkit struct {
	FFmpeg  ffmpeg.Runner
	FFprobe ffprobe.Inspector
}

// NewToolkit uses the binaries named by cfg.
func NewToolkit(cfg *config.Config) *Toolkit {
	return &Toolkit{
		FFmpeg:  ffmpeg.Runner{Binary: cfg.FFmpegBinary()},
		FFprobe: ffprobe.Inspector{Binary: cfg.FFprobeBinary()},
	}
}

// Probe inspects path and summarizes it as a MediaAsset.
func (t *Toolkit) Probe(ctx context.Context, path string) (dubbing.MediaAsset, error) {
	result, err := t.FFprobe.Inspect(ctx, path)
	if err != nil {
		return dubbing.MediaAsset{}, err
	}
	return Asset(path, result), nil
}

// Asset converts an ffprobe result into a MediaAsset.
func Asset(path string, result ffprobe.Result) dubbing.MediaAsset {
	asset := dubbing.MediaAsset{
		Path:            path,
		Container:       containerName(path, result.Format.FormatName),
		DurationSeconds: result.DurationSeconds(),
		SizeBytes:       result.SizeBytes(),
	}
	if video, ok := result.FirstStream("video"); ok {
		asset.HasVideo = true
		asset.VideoCodec = video.CodecName
	}
	if audio, ok := result.FirstStream("audio"); ok {
		asset.HasAudio = true
		asset.AudioCodec = audio.CodecName
	}
	return asset
}

// containerName prefers the file extension since ffprobe reports demuxer
// families such as "mov,mp4,m4a,3gp,3g2,mj2".
func containerName(path, formatName string) string {
	if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext != "" {
		return ext
	}
	if name, _, _ := strings.Cut(formatName, ","); name != "" {
		return name
	}
	return "unknown"
}

// ExtractAudio implements dubbing.MediaProcessor.
func (t *Toolkit) ExtractAudio(ctx context.Context, video, dest string) error {
	return t.FFmpeg.ExtractAudio(ctx, video, dest)
}

// Stretch implements dubbing.MediaProcessor.
func (t *Toolkit) Stretch(ctx context.Context, source, dest string, factor float64) error {
	return t.FFmpeg.Stretch(ctx, source, dest, factor)
}

// Remux implements dubbing.MediaProcessor.
func (t *Toolkit) Remux(ctx context.Context, req dubbing.RemuxRequest) error {
	return t.FFmpeg.Remux(ctx, ffmpeg.RemuxOptions{
		Video:      req.Video,
		Audio:      req.Audio,
		Output:     req.Output,
		PadSeconds: req.PadSeconds,
		Language:   req.Language,
	})
}

var (
	_ dubbing.Prober         = (*Toolkit)(nil)
	_ dubbing.MediaProcessor = (*Toolkit)(nil)
)
