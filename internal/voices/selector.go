package voices

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind tags a Selector variant.
type Kind string

const (
	KindStandard Kind = "standard"
	KindCloned   Kind = "cloned"
)

// ErrVoiceNotFound marks selectors that reference no known voice.
var ErrVoiceNotFound = errors.New("voice not found")

// NotFoundError names the voice that could not be resolved.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("voice %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrVoiceNotFound
}

// Selector is a tagged choice between a catalog voice and a cloned profile.
type Selector struct {
	Kind Kind   `json:"type"`
	ID   string `json:"id"`
}

// Standard selects a catalog voice.
func Standard(id string) Selector {
	return Selector{Kind: KindStandard, ID: strings.ToLower(strings.TrimSpace(id))}
}

// Cloned selects a registered profile.
func Cloned(id string) Selector {
	return Selector{Kind: KindCloned, ID: strings.TrimSpace(id)}
}

// ParseSelector builds a Selector from request fields. An empty kind means standard.
func ParseSelector(kind, id string) (Selector, error) {
	if strings.TrimSpace(id) == "" {
		return Selector{}, errors.New("voice is required")
	}
	switch Kind(strings.ToLower(strings.TrimSpace(kind))) {
	case "", KindStandard:
		return Standard(id), nil
	case KindCloned:
		return Cloned(id), nil
	default:
		return Selector{}, fmt.Errorf("unknown voice type %q", kind)
	}
}

func (s Selector) String() string {
	return string(s.Kind) + ":" + s.ID
}

// Synthesizer renders text as speech into dest.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, dest string) error
}

// Backend is a provider able to speak with a provider-side voice id.
type Backend interface {
	Speak(ctx context.Context, voiceID, text, dest string) error
}

// Resolver carries what a Selector needs to become a Synthesizer.
type Resolver struct {
	Standard Backend
	Cloned   Backend
	Profiles *Registry
}

// Resolve returns the synthesis capability for the selected voice. A cloned
// profile only resolves for the session that created it.
func (s Selector) Resolve(r *Resolver, session string) (Synthesizer, error) {
	if r == nil {
		return nil, errors.New("voice resolver not configured")
	}
	switch s.Kind {
	case KindStandard:
		if !IsStandard(s.ID) {
			return nil, &NotFoundError{ID: s.ID}
		}
		if r.Standard == nil {
			return nil, errors.New("standard voices not configured")
		}
		return backendVoice{backend: r.Standard, id: s.ID}, nil
	case KindCloned:
		if r.Profiles == nil {
			return nil, &NotFoundError{ID: s.ID}
		}
		if p, ok := r.Profiles.Get(s.ID); !ok || p.Session != session {
			return nil, &NotFoundError{ID: s.ID}
		}
		if r.Cloned == nil {
			return nil, errors.New("voice cloning not configured")
		}
		return clonedVoice{backend: r.Cloned, profiles: r.Profiles, id: s.ID}, nil
	default:
		return nil, fmt.Errorf("unknown voice type %q", s.Kind)
	}
}

type backendVoice struct {
	backend Backend
	id      string
}

func (v backendVoice) Synthesize(ctx context.Context, text, dest string) error {
	return v.backend.Speak(ctx, v.id, text, dest)
}

// clonedVoice re-checks the profile under its read lock so a concurrent
// delete either waits for synthesis or wins and yields ErrVoiceNotFound.
type clonedVoice struct {
	backend  Backend
	profiles *Registry
	id       string
}

func (v clonedVoice) Synthesize(ctx context.Context, text, dest string) error {
	return v.profiles.WithProfile(v.id, func(Profile) error {
		return v.backend.Speak(ctx, v.id, text, dest)
	})
}
