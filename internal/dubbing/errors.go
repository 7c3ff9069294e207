package dubbing

import (
	"errors"
	"fmt"
	"strings"

	"dubber/internal/services"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindValidation      Kind = "ValidationError"
	KindNoAudioTrack    Kind = "NoAudioTrack"
	KindRemoteService   Kind = "RemoteServiceError"
	KindEmptyTranscript Kind = "EmptyTranscriptError"
	KindSynthesis       Kind = "SynthesisError"
	KindVoiceNotFound   Kind = "VoiceNotFound"
	KindRemux           Kind = "RemuxError"
	KindLocalProcessing Kind = "LocalProcessingError"
)

// KindAlignmentBoundExceeded tags clamp warnings in the job log. It never
// appears on an *Error; see Alignment.BoundExceeded.
const KindAlignmentBoundExceeded Kind = "AlignmentBoundExceeded"

// ErrMalformedTranscript is wrapped by Transcriber implementations when the
// service answered but the payload could not be understood.
var ErrMalformedTranscript = errors.New("malformed transcript")

// Error is a terminal pipeline failure tagged with the stage it stopped at.
type Error struct {
	Kind    Kind   `json:"kind"`
	Stage   State  `json:"stage"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s at %s: %s: %v", e.Kind, e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s at %s: %s", e.Kind, e.Stage, e.Message)
}

// Unwrap exposes the services marker for the kind and the cause.
func (e *Error) Unwrap() []error {
	out := []error{e.Kind.marker()}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func (k Kind) marker() error {
	switch k {
	case KindValidation:
		return services.ErrValidation
	case KindVoiceNotFound:
		return services.ErrNotFound
	case KindRemoteService:
		return services.ErrRemote
	default:
		return services.ErrExternalTool
	}
}

func newError(kind Kind, stage State, message string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Message: strings.TrimSpace(message), Err: err}
}

// AsError extracts a pipeline error from err.
func AsError(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsKind reports whether err is a pipeline error of kind.
func IsKind(err error, kind Kind) bool {
	target, ok := AsError(err)
	return ok && target.Kind == kind
}
