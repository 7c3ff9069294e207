// Package preflight provides readiness checks for the binaries, directories,
// and remote services dubber depends on.
//
// The server runs RunAll at startup and refuses to accept jobs when a
// required check fails. The CLI "dubber status" command reuses the same
// checks to display service health.
package preflight
