package dubbing

import (
	"context"
	"errors"
	"fmt"
)

var (
	errNoAudioTrack = errors.New("input has no audio stream")
	errNoVideoTrack = errors.New("input has no video stream")
)

// Extractor pulls normalized speech audio out of the input video.
type Extractor struct {
	Media  MediaProcessor
	Prober Prober
}

// Inspect probes the input and checks it carries both video and audio.
func (e Extractor) Inspect(ctx context.Context, path string) (MediaAsset, error) {
	asset, err := e.Prober.Probe(ctx, path)
	if err != nil {
		return MediaAsset{}, fmt.Errorf("probe input: %w", err)
	}
	if !asset.HasVideo {
		return asset, errNoVideoTrack
	}
	if !asset.HasAudio {
		return asset, errNoAudioTrack
	}
	return asset, nil
}

// Extract writes the first audio stream of input to dest and probes it.
func (e Extractor) Extract(ctx context.Context, input MediaAsset, dest string) (MediaAsset, error) {
	if err := e.Media.ExtractAudio(ctx, input.Path, dest); err != nil {
		return MediaAsset{}, err
	}
	audio, err := e.Prober.Probe(ctx, dest)
	if err != nil {
		return MediaAsset{}, fmt.Errorf("probe extracted audio: %w", err)
	}
	if !audio.HasAudio {
		return MediaAsset{}, errNoAudioTrack
	}
	return audio, nil
}
