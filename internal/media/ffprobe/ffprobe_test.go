package ffprobe

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const sampleJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1280, "height": 720, "duration": "10.010"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "48000", "channels": 2, "duration": "9.98"}
  ],
  "format": {"filename": "in.mp4", "nb_streams": 2, "duration": "10.010000", "size": "1048576", "format_name": "mov,mp4,m4a,3gp,3g2,mj2"}
}`

func TestInspectParsesOutput(t *testing.T) {
	var gotArgs []string
	inspector := Inspector{Binary: "ffprobe", Run: func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte(sampleJSON), nil
	}}
	result, err := inspector.Inspect(context.Background(), "/videos/in.mp4")
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if gotArgs[len(gotArgs)-1] != "/videos/in.mp4" || gotArgs[len(gotArgs)-2] != "--" {
		t.Fatalf("unexpected args %v", gotArgs)
	}
	if len(result.Streams) != 2 {
		t.Fatalf("unexpected stream count %d", len(result.Streams))
	}
	audio, ok := result.FirstStream("audio")
	if !ok || audio.CodecName != "aac" || audio.Channels != 2 {
		t.Fatalf("unexpected audio stream %+v", audio)
	}
	if result.DurationSeconds() != 10.01 {
		t.Fatalf("unexpected duration %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1048576 {
		t.Fatalf("unexpected size %d", result.SizeBytes())
	}
}

func TestInspectPropagatesRunnerError(t *testing.T) {
	inspector := Inspector{Run: func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("Invalid data found when processing input")
	}}
	_, err := inspector.Inspect(context.Background(), "/videos/broken.mp4")
	if err == nil || !strings.Contains(err.Error(), "Invalid data") {
		t.Fatalf("expected runner error, got %v", err)
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	if _, err := (Inspector{}).Inspect(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestDurationFallsBackToStreams(t *testing.T) {
	result := Result{
		Streams: []Stream{{Duration: "4.5"}, {Duration: "N/A"}, {Duration: "6.25"}},
		Format:  Format{Duration: "N/A", Size: "-1"},
	}
	if result.DurationSeconds() != 6.25 {
		t.Fatalf("unexpected duration %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("unexpected size %d", result.SizeBytes())
	}
}
