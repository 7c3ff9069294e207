// Package staging reclaims disk space used by dubbing jobs.
//
// Finished videos in the output directory are kept for the configured
// retention window. Job workspaces and uploads normally vanish when a job
// reaches a terminal state; anything left behind by a crash is swept once it
// is older than the stale threshold and no running job claims it.
package staging
