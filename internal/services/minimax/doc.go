// Package minimax is the client for MiniMax voice cloning and cloned-voice
// text-to-audio (t2a_v2).
//
// Cloning is two calls: upload the sample with purpose voice_clone, then
// register it under a caller-chosen voice id. Every MiniMax response carries
// base_resp; a non-zero status_code is surfaced as *APIError even on HTTP 200.
package minimax
