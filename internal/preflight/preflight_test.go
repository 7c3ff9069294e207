package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"dubber/internal/config"
)

func okChatServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-key" {
			http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed || result.Detail == "" {
		t.Fatalf("expected failure with detail for missing dir, got %+v", result)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDiskSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckDiskSpace("disk", dir, 1); !result.Passed {
		t.Fatalf("expected pass with a 1 byte floor, got %s", result.Detail)
	}
	if result := CheckDiskSpace("disk", dir, ^uint64(0)); result.Passed {
		t.Fatal("expected failure with an impossible floor")
	}
	if result := CheckDiskSpace("disk", filepath.Join(dir, "missing"), 1); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckOpenAI(t *testing.T) {
	srv := okChatServer(t)
	cfg := config.Default()
	cfg.OpenAI.BaseURL = srv.URL
	cfg.OpenAI.APIKey = "good-key"
	if result := CheckOpenAI(context.Background(), &cfg); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}

	cfg.OpenAI.APIKey = "bad-key"
	if result := CheckOpenAI(context.Background(), &cfg); result.Passed {
		t.Fatal("expected failure for bad key")
	}

	cfg.OpenAI.APIKey = ""
	if result := CheckOpenAI(context.Background(), &cfg); result.Passed || result.Detail != "API key missing" {
		t.Fatalf("unexpected result for missing key: %+v", result)
	}
}

func TestCheckMiniMaxIsOptional(t *testing.T) {
	cfg := config.Default()
	result := CheckMiniMax(&cfg)
	if !result.Optional || !result.Passed {
		t.Fatalf("unexpected result %+v", result)
	}
	cfg.MiniMax.APIKey = "mm-key"
	if result := CheckMiniMax(&cfg); result.Detail == "" || !result.Passed {
		t.Fatalf("unexpected configured result %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_CoversDirectoriesAndServices(t *testing.T) {
	srv := okChatServer(t)
	cfg := config.Default()
	cfg.OpenAI.BaseURL = srv.URL
	cfg.OpenAI.APIKey = "good-key"
	cfg.Paths.UploadDir = t.TempDir()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Dubbing.MaxUploadMB = 1

	results := RunAll(context.Background(), &cfg)
	byName := make(map[string]Result, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}
	for _, name := range []string{"Upload directory", "Work directory", "Output directory", "Work disk space", "OpenAI", "MiniMax"} {
		r, ok := byName[name]
		if !ok {
			t.Fatalf("missing check %q in %+v", name, results)
		}
		if !r.Passed {
			t.Errorf("check %q failed: %s", name, r.Detail)
		}
	}
	if _, ok := byName["FFmpeg"]; !ok {
		t.Fatal("expected FFmpeg binary check")
	}
}

func TestFailedIgnoresOptional(t *testing.T) {
	results := []Result{
		{Name: "a", Passed: true},
		{Name: "b"},
		{Name: "c", Optional: true},
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "b" {
		t.Fatalf("unexpected failed set %+v", failed)
	}
}
