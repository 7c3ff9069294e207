// Package jobs keeps an in-memory SQLite ledger of dubbing jobs.
//
// The ledger backs job status lookups, per-session downloads, and the CLI
// status view. It lives only as long as the process: Open always creates a
// fresh in-memory database.
package jobs
