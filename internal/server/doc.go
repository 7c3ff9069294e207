// Package server assembles the dubbing service: it builds the pipeline from
// configuration, runs preflight checks, holds the single-instance lock, and
// serves the HTTP API until a termination signal arrives.
//
// NewPipeline is shared with the CLI so one-off local dubs go through the
// same orchestrator, voice resolver, and media toolkit as the service.
package server
