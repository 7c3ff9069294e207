// Package services defines shared utilities consumed by the dubbing pipeline
// and its remote integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so failures from ffmpeg,
//     OpenAI, and MiniMax classify consistently into HTTP statuses.
//
// Subpackages hold the remote clients (llm, openai, minimax) and the shared
// retry policy they are driven through.
package services
