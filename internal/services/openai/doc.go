// Package openai wraps the OpenAI audio endpoints used by the dubbing
// pipeline: Whisper transcription with segment timestamps and tts-1 speech
// for catalog voices. Chat-based translation lives in package llm.
//
// Clients issue exactly one HTTP request per call. Non-2xx responses are
// returned as *retry.StatusError so callers decide whether to repeat.
package openai
