package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"dubber/internal/config"
)

// Requirements lists the binaries the dubbing pipeline shells out to.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Extracts, stretches, and remuxes audio",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Inspects uploaded media",
		},
	}
}

// OutputRunner runs a command and returns its combined output.
type OutputRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Filters and encoders the pipeline depends on.
var (
	requiredFilters  = []string{"atempo", "apad"}
	requiredEncoders = []string{"aac", "libmp3lame", "libopus"}
)

// CheckFFmpegCapabilities confirms the ffmpeg build provides the filters and
// encoders used for alignment and remuxing. A nil run uses os/exec.
func CheckFFmpegCapabilities(ctx context.Context, binary string, run OutputRunner) Status {
	if run == nil {
		run = execOutput
	}
	status := Status{
		Name:        "FFmpeg capabilities",
		Command:     binary,
		Description: "atempo/apad filters and aac/mp3/opus encoders",
	}

	filters, err := run(ctx, binary, "-hide_banner", "-filters")
	if err != nil {
		status.Detail = fmt.Sprintf("list filters: %v", err)
		return status
	}
	encoders, err := run(ctx, binary, "-hide_banner", "-encoders")
	if err != nil {
		status.Detail = fmt.Sprintf("list encoders: %v", err)
		return status
	}

	var missing []string
	missing = append(missing, missingNames(string(filters), requiredFilters)...)
	missing = append(missing, missingNames(string(encoders), requiredEncoders)...)
	if len(missing) > 0 {
		status.Detail = "missing: " + strings.Join(missing, ", ")
		return status
	}
	status.Available = true
	return status
}

// missingNames scans ffmpeg's listing format, where the name is the second
// whitespace-separated column.
func missingNames(listing string, names []string) []string {
	present := make(map[string]struct{})
	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			present[fields[1]] = struct{}{}
		}
	}
	var missing []string
	for _, name := range names {
		if _, ok := present[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
