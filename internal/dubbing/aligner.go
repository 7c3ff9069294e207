package dubbing

import (
	"context"
	"fmt"
	"math"
)

// Bounds clamps the effective speed.
type Bounds struct {
	Min float64
	Max float64
}

// DefaultBounds keeps stretched speech intelligible.
var DefaultBounds = Bounds{Min: 0.5, Max: 2.0}

func (b Bounds) valid() bool {
	return b.Min > 0 && b.Max >= b.Min
}

func (b Bounds) clamp(v float64) float64 {
	return math.Min(b.Max, math.Max(b.Min, v))
}

// Alignment records how synthesized speech was fitted to the original timing.
type Alignment struct {
	SpeechSeconds      float64 `json:"speech_seconds"`
	SynthesizedSeconds float64 `json:"synthesized_seconds"`
	// Ratio is the unclamped factor: requested, or synthesized/speech.
	Ratio          float64 `json:"ratio"`
	Requested      bool    `json:"requested"`
	EffectiveSpeed float64 `json:"effective_speed"`
	BoundExceeded  bool    `json:"alignment_bound_exceeded"`
	AlignedSeconds float64 `json:"aligned_seconds"`
}

// ComputeAlignment derives the effective speed. An explicit factor wins over
// the measured ratio; without speech timing the ratio is 1.
func ComputeAlignment(speechSeconds, synthesizedSeconds float64, requested *float64, bounds Bounds) Alignment {
	if !bounds.valid() {
		bounds = DefaultBounds
	}
	a := Alignment{SpeechSeconds: speechSeconds, SynthesizedSeconds: synthesizedSeconds, Ratio: 1}
	switch {
	case requested != nil:
		a.Ratio = *requested
		a.Requested = true
	case speechSeconds > 0 && synthesizedSeconds > 0:
		a.Ratio = synthesizedSeconds / speechSeconds
	}
	a.EffectiveSpeed = bounds.clamp(a.Ratio)
	a.BoundExceeded = a.Ratio < bounds.Min || a.Ratio > bounds.Max
	return a
}

// Aligner applies an Alignment to synthesized audio.
type Aligner struct {
	Media  MediaProcessor
	Prober Prober
}

// Apply writes the stretched audio to dest and returns the resulting asset.
// At speed 1 the synthesized audio is used as is.
func (a Aligner) Apply(ctx context.Context, synthesized MediaAsset, alignment Alignment, dest string) (MediaAsset, error) {
	if alignment.EffectiveSpeed == 1 {
		return synthesized, nil
	}
	if err := a.Media.Stretch(ctx, synthesized.Path, dest, alignment.EffectiveSpeed); err != nil {
		return MediaAsset{}, err
	}
	aligned, err := a.Prober.Probe(ctx, dest)
	if err != nil {
		return MediaAsset{}, fmt.Errorf("probe aligned audio: %w", err)
	}
	return aligned, nil
}
