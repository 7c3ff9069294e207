package dubbing

// State is a position in the job state machine.
type State string

const (
	StateReceived       State = "received"
	StateAudioExtracted State = "audio_extracted"
	StateTranscribed    State = "transcribed"
	StateTranslated     State = "translated"
	StateSynthesized    State = "synthesized"
	StateAligned        State = "aligned"
	StateRemuxed        State = "remuxed"
	StateComplete       State = "complete"
	StateFailed         State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Order lists the non-failure states in pipeline order.
func Order() []State {
	return []State{
		StateReceived,
		StateAudioExtracted,
		StateTranscribed,
		StateTranslated,
		StateSynthesized,
		StateAligned,
		StateRemuxed,
		StateComplete,
	}
}

// Label renders the state for humans.
func (s State) Label() string {
	switch s {
	case StateReceived:
		return "Received"
	case StateAudioExtracted:
		return "Audio extracted"
	case StateTranscribed:
		return "Transcribed"
	case StateTranslated:
		return "Translated"
	case StateSynthesized:
		return "Synthesized"
	case StateAligned:
		return "Aligned"
	case StateRemuxed:
		return "Remuxed"
	case StateComplete:
		return "Complete"
	case StateFailed:
		return "Failed"
	default:
		return string(s)
	}
}
