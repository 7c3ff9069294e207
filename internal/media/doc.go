// Package media adapts the ffprobe and ffmpeg wrappers to the dubbing
// pipeline's Prober and MediaProcessor contracts.
package media
