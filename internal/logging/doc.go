// Package logging builds the slog loggers used by the dubbing server and CLI.
//
// Two output formats are supported: a console layout that prints a header line
// followed by indented key/value fields, and a JSON layout suitable for log
// shippers. Loggers carry standardized field keys (component, job_id, stage,
// correlation_id, event_type) so a single job can be traced across the API,
// the worker pool, and the pipeline stages.
package logging
