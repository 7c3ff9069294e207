package deps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dubber/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
}

func TestRequirementsNameBothBinaries(t *testing.T) {
	cfg := config.Default()
	reqs := Requirements(&cfg)
	if len(reqs) != 2 || reqs[0].Command != "ffmpeg" || reqs[1].Command != "ffprobe" {
		t.Fatalf("unexpected requirements %+v", reqs)
	}
}

const filterListing = `Filters:
  T.. = Timeline support
 ... apad              A->A       Pad audio with silence.
 ... atempo            A->A       Adjust audio tempo.
`

func TestCheckFFmpegCapabilities(t *testing.T) {
	encoders := " A....D aac  AAC (Advanced Audio Coding)\n A....D libmp3lame  MP3\n A....D libopus  Opus\n"
	run := func(_ context.Context, _ string, args ...string) ([]byte, error) {
		if args[len(args)-1] == "-filters" {
			return []byte(filterListing), nil
		}
		return []byte(encoders), nil
	}
	status := CheckFFmpegCapabilities(context.Background(), "ffmpeg", run)
	if !status.Available {
		t.Fatalf("expected capabilities available, got %+v", status)
	}
}

func TestCheckFFmpegCapabilitiesReportsMissing(t *testing.T) {
	run := func(_ context.Context, _ string, args ...string) ([]byte, error) {
		if args[len(args)-1] == "-filters" {
			return []byte(filterListing), nil
		}
		return []byte(" A....D aac  AAC\n"), nil
	}
	status := CheckFFmpegCapabilities(context.Background(), "ffmpeg", run)
	if status.Available || !strings.Contains(status.Detail, "libmp3lame") || !strings.Contains(status.Detail, "libopus") {
		t.Fatalf("expected missing encoders, got %+v", status)
	}

	failing := func(context.Context, string, ...string) ([]byte, error) { return nil, errors.New("exec failed") }
	status = CheckFFmpegCapabilities(context.Background(), "ffmpeg", failing)
	if status.Available || !strings.Contains(status.Detail, "list filters") {
		t.Fatalf("expected exec failure detail, got %+v", status)
	}
}
