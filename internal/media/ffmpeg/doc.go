// Package ffmpeg builds and runs the ffmpeg invocations the dubbing pipeline
// needs: speech extraction, pitch-preserving tempo changes, and audio-track
// replacement with the video stream copied untouched.
package ffmpeg
