// Command dubber runs the video dubbing service and offers local utilities:
// one-off dubs of a file on disk, the language and voice catalogs, job and
// dependency status for a running service, workspace cleanup, and config
// scaffolding.
package main
