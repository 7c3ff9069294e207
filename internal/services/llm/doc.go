// Package llm provides an OpenAI-compatible chat completion client and the
// Translator built on top of it.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: plain-text completion with an explicit temperature.
// Client.CompleteJSON: JSON-only completion, tolerant of code fences.
// Client.HealthCheck: verify API key and model availability.
// NewTranslator: wrap a Client so it satisfies the pipeline's translation contract.
//
// # Retry Behaviour
//
// A single request is issued by default. Pass WithRetryPolicy to let the
// client repeat 408/429/5xx and network-timeout failures itself; the dubbing
// pipeline instead applies its own policy around each stage.
package llm
