// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Inspector: binary name plus an injectable command runner
//
// Helper methods on Result give stream counts, the first stream of a kind,
// and duration parsing.
package ffprobe
