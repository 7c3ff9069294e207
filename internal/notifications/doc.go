// Package notifications delivers dubbing job events via ntfy.
//
// NewService returns a no-op implementation when no topic is configured so
// callers never need to branch on whether notifications are enabled.
// Observer adapts a Service to the dubbing pipeline's lifecycle hooks and
// publishes in the background.
package notifications
