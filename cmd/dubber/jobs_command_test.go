package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dubber/internal/dubbing"
	"dubber/internal/jobs"
	"dubber/internal/testsupport"
)

func serveJobs(t *testing.T, token string, records []*jobs.Record) (*httptest.Server, *[]string) {
	t.Helper()
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"error":"unauthorized"}`))
			return
		}
		switch r.URL.Path {
		case "/health":
			_, _ = w.Write([]byte(`{"success":true,"status":"ok","cloning_enabled":true}`))
		case "/dubbing/jobs":
			queries = append(queries, r.URL.RawQuery)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "jobs": records})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &queries
}

func sampleRecords() []*jobs.Record {
	now := time.Now().UTC()
	return []*jobs.Record{
		{
			ID:             "3f2a9c4e-aaaa-bbbb-cccc-000000000001",
			TargetLanguage: "es",
			Voice:          "alloy",
			VoiceType:      "standard",
			State:          dubbing.StateComplete,
			EffectiveSpeed: 1.25,
			InputName:      "clip.mp4",
			CreatedAt:      now.Add(-time.Hour),
			UpdatedAt:      now,
		},
		{
			ID:             "9b7d1e2f-aaaa-bbbb-cccc-000000000002",
			TargetLanguage: "fr",
			Voice:          "nova",
			VoiceType:      "standard",
			State:          dubbing.StateFailed,
			FailedStage:    dubbing.StateTranscribed,
			ErrorKind:      dubbing.KindEmptyTranscript,
			ErrorMessage:   "no speech detected",
			CreatedAt:      now.Add(-2 * time.Hour),
			UpdatedAt:      now,
		},
	}
}

func TestJobsCommandTable(t *testing.T) {
	srv, queries := serveJobs(t, "secret", sampleRecords())
	env := setupCLITestEnv(t, testsupport.WithAPIToken("secret"))
	env.cfg.Paths.APIBind = strings.TrimPrefix(srv.URL, "http://")
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"jobs", "--state", "failed"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	requireContains(t, out, "3f2a9c4e")
	requireContains(t, out, "1.25x")
	requireContains(t, out, "no speech detected")
	if len(*queries) != 1 || (*queries)[0] != "state=failed" {
		t.Fatalf("unexpected queries %v", *queries)
	}
}

func TestJobsCommandJSON(t *testing.T) {
	srv, _ := serveJobs(t, "", sampleRecords())
	env := setupCLITestEnv(t)
	env.cfg.Paths.APIBind = strings.TrimPrefix(srv.URL, "http://")
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"jobs", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs --json: %v", err)
	}
	var records []jobs.Record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode jobs: %v", err)
	}
	if len(records) != 2 || records[1].ErrorKind != dubbing.KindEmptyTranscript {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestJobsCommandUnauthorized(t *testing.T) {
	srv, _ := serveJobs(t, "secret", nil)
	env := setupCLITestEnv(t, testsupport.WithAPIToken("wrong"))
	env.cfg.Paths.APIBind = strings.TrimPrefix(srv.URL, "http://")
	writeTestConfig(t, env.configPath, env.cfg)

	_, _, err := runCLI(t, []string{"jobs"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unauthorized") {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestStatusCommandReportsRunningService(t *testing.T) {
	srv, _ := serveJobs(t, "", sampleRecords())
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())
	env.cfg.Paths.APIBind = strings.TrimPrefix(srv.URL, "http://")
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "[OK] Running")
	requireContains(t, out, "== Jobs ==")
	requireContains(t, out, "== Dependencies ==")
	requireContains(t, out, "FFmpeg")

	out, _, err = runCLI(t, []string{"status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !report.APIReachable || report.Jobs["complete"] != 1 || report.Jobs["failed"] != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestStatusCommandServiceDown(t *testing.T) {
	srv, _ := serveJobs(t, "", nil)
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())
	env.cfg.Paths.APIBind = addr
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "[ERROR] Not running")
}

func TestJobRowsFlagsBoundExceeded(t *testing.T) {
	now := time.Now()
	rows := jobRows([]*jobs.Record{{
		ID:             "abc",
		State:          dubbing.StateComplete,
		EffectiveSpeed: 2,
		BoundExceeded:  true,
		CreatedAt:      now.Add(-time.Minute),
	}}, now)
	if rows[0][0] != "abc" || rows[0][4] != "2.00x*" {
		t.Fatalf("unexpected row %v", rows[0])
	}
}
