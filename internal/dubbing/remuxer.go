package dubbing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dubber/internal/fileutil"
)

// padThreshold ignores sub-frame differences between audio and video length.
const padThreshold = 0.05

// Remuxer swaps the audio stream of a video, copying the video stream.
type Remuxer struct {
	Media  MediaProcessor
	Prober Prober
}

// Remux writes output and returns its probed asset. A partially written
// output is removed on any failure.
func (r Remuxer) Remux(ctx context.Context, video, audio MediaAsset, output, isoLanguage string) (asset MediaAsset, err error) {
	defer func() {
		if err != nil {
			_ = os.Remove(output)
		}
	}()

	pad := 0.0
	if gap := video.DurationSeconds - audio.DurationSeconds; gap > padThreshold {
		pad = gap
	}
	if err = r.Media.Remux(ctx, RemuxRequest{
		Video:      video.Path,
		Audio:      audio.Path,
		Output:     output,
		PadSeconds: pad,
		Language:   isoLanguage,
	}); err != nil {
		return MediaAsset{}, err
	}
	asset, err = r.Prober.Probe(ctx, output)
	if err != nil {
		return MediaAsset{}, fmt.Errorf("probe remuxed output: %w", err)
	}
	if !asset.HasVideo || !asset.HasAudio {
		return MediaAsset{}, errors.New("remuxed output is missing a stream")
	}
	return asset, nil
}

// outputContainer keeps the input container when it is allowed, otherwise
// falls back to the default.
func outputContainer(inputPath string, allowed []string, fallback string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(inputPath), "."))
	for _, candidate := range allowed {
		if candidate == ext {
			return ext
		}
	}
	if fallback == "" {
		return "mp4"
	}
	return fallback
}

// publish moves a finished file into place.
func publish(src, dest string) error {
	if err := fileutil.MoveFile(src, dest); err != nil {
		return fmt.Errorf("publish output: %w", err)
	}
	return nil
}
