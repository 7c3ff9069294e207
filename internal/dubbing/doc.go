// Package dubbing runs the video dubbing pipeline.
//
// A job walks a fixed state machine:
//
//	Received → AudioExtracted → Transcribed → Translated → Synthesized → Aligned → Remuxed → Complete
//
// with Failed reachable from every non-terminal state. Each transition is a
// stage function that consumes the artifacts of the previous states and
// either records new ones or returns a classified *Error. The orchestrator
// owns a per-job Workspace and releases it on every exit path; only the
// published output video outlives the job.
//
// Remote collaborators (transcription, translation, synthesis) are consumed
// through narrow interfaces and wrapped in a bounded retry with a per-call
// timeout. Local media work goes through Prober and MediaProcessor, backed in
// production by ffprobe and ffmpeg.
//
// Alignment uses one global speed factor: synthesized duration divided by the
// summed spoken segment duration, clamped to configured bounds.
package dubbing
