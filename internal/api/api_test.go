package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"dubber/internal/api"
	"dubber/internal/config"
	"dubber/internal/dubbing"
	"dubber/internal/jobs"
	"dubber/internal/testsupport"
	"dubber/internal/voices"
)

var (
	mp4Bytes = append([]byte("\x00\x00\x00\x20ftypisom\x00\x00\x02\x00isomiso2avc1mp41"), make([]byte, 64)...)
	wavBytes = append([]byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00"), make([]byte, 64)...)
)

type fakePool struct {
	mu       sync.Mutex
	requests []dubbing.Request
	outcome  func(req dubbing.Request) dubbing.Outcome
	err      error
}

func (p *fakePool) Submit(req dubbing.Request) (<-chan dubbing.Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.requests = append(p.requests, req)
	ch := make(chan dubbing.Outcome, 1)
	if p.outcome != nil {
		ch <- p.outcome(req)
	}
	return ch, nil
}

func (p *fakePool) submitted() []dubbing.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]dubbing.Request(nil), p.requests...)
}

type validatorFunc func(dubbing.Request) error

func (f validatorFunc) Validate(req dubbing.Request) error { return f(req) }

type fakeCloner struct {
	calls []string
	err   error
}

func (c *fakeCloner) Clone(_ context.Context, samplePath, voiceID, _ string) error {
	if _, err := os.Stat(samplePath); err != nil {
		return err
	}
	c.calls = append(c.calls, voiceID)
	return c.err
}

type harness struct {
	cfg      *config.Config
	pool     *fakePool
	ledger   *jobs.Ledger
	profiles *voices.Registry
	cloner   *fakeCloner
	handler  http.Handler
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	h := &harness{
		cfg:      testsupport.NewConfig(t, opts...),
		pool:     &fakePool{},
		ledger:   testsupport.MustOpenLedger(t),
		profiles: voices.NewRegistry(),
		cloner:   &fakeCloner{},
	}
	h.handler = api.NewRouter(api.Deps{
		Config:    h.cfg,
		Pool:      h.pool,
		Validator: validatorFunc(func(dubbing.Request) error { return nil }),
		Ledger:    h.ledger,
		Profiles:  h.profiles,
		Cloner:    h.cloner,
	})
	return h
}

func (h *harness) do(t *testing.T, req *http.Request, session string) *httptest.ResponseRecorder {
	t.Helper()
	if session != "" {
		req.Header.Set("X-Session-ID", session)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func multipartRequest(t *testing.T, target, fileField, fileName string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileField != "" {
		part, err := mw.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return payload
}

func uploadCount(t *testing.T, cfg *config.Config) int {
	t.Helper()
	entries, err := os.ReadDir(cfg.Paths.UploadDir)
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	return len(entries)
}

func TestHealthSkipsAuth(t *testing.T) {
	h := newHarness(t, testsupport.WithAPIToken("secret"))

	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/health", nil), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/dubbing/languages", nil), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/dubbing/languages", nil)
	req.Header.Set("Authorization", "Bearer secret")
	if rec = h.do(t, req, ""); rec.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d", rec.Code)
	}
}

func TestSessionCookieIssued(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/dubbing/voices", nil), "")
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "dubber_session" || cookies[0].Value == "" {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/dubbing/voices", nil), "caller-1")
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("no cookie expected when the session header is present")
	}
}

func TestLanguagesCatalog(t *testing.T) {
	h := newHarness(t)
	payload := decode(t, h.do(t, httptest.NewRequest(http.MethodGet, "/dubbing/languages", nil), ""))
	langs, ok := payload["languages"].([]any)
	if !ok || len(langs) != 15 {
		t.Fatalf("expected 15 languages, got %v", payload["languages"])
	}
	first := langs[0].(map[string]any)
	if first["code"] != "en" || first["name"] != "English" {
		t.Fatalf("unexpected first language %v", first)
	}
}

func TestVoicesScopedToSession(t *testing.T) {
	h := newHarness(t)
	h.profiles.Put(voices.Profile{ID: "narrator_1234abcd", Name: "Narrator", Session: "caller-1"})

	payload := decode(t, h.do(t, httptest.NewRequest(http.MethodGet, "/dubbing/voices", nil), "caller-1"))
	if payload["standard_count"] != float64(6) || payload["cloned_count"] != float64(1) {
		t.Fatalf("unexpected counts %v/%v", payload["standard_count"], payload["cloned_count"])
	}
	list := payload["voices"].([]any)
	last := list[len(list)-1].(map[string]any)
	if last["name"] != "Narrator (Cloned)" || last["type"] != "cloned" {
		t.Fatalf("unexpected cloned entry %v", last)
	}

	payload = decode(t, h.do(t, httptest.NewRequest(http.MethodGet, "/dubbing/voices", nil), "caller-2"))
	if payload["cloned_count"] != float64(0) {
		t.Fatalf("other session sees cloned voices: %v", payload["cloned_count"])
	}
}

func TestProcessRejectsClonedVoiceFromAnotherSession(t *testing.T) {
	h := newHarness(t)
	h.profiles.Put(voices.Profile{ID: "narrator_1234abcd", Name: "Narrator", Session: "caller-1"})
	fields := map[string]string{"voice": "narrator_1234abcd", "voice_type": "cloned"}

	rec := h.do(t, multipartRequest(t, "/dubbing/process", "video", "clip.mp4", mp4Bytes, fields), "caller-2")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if msg := decode(t, rec)["error"]; msg != "Voice not found" {
		t.Fatalf("error = %v", msg)
	}
	if n := len(h.pool.submitted()); n != 0 {
		t.Fatalf("expected no submissions, got %d", n)
	}
	if n := uploadCount(t, h.cfg); n != 0 {
		t.Fatalf("expected no stored uploads, got %d", n)
	}

	h.pool.outcome = func(req dubbing.Request) dubbing.Outcome {
		stageErr := &dubbing.Error{Kind: dubbing.KindRemoteService, Stage: dubbing.StateTranscribed, Message: "stage failed"}
		return dubbing.Outcome{Err: stageErr}
	}
	h.do(t, multipartRequest(t, "/dubbing/process", "video", "clip.mp4", mp4Bytes, fields), "caller-1")
	submitted := h.pool.submitted()
	if len(submitted) != 1 || submitted[0].Voice != voices.Cloned("narrator_1234abcd") || submitted[0].Session != "caller-1" {
		t.Fatalf("owning session should submit the job, got %+v", submitted)
	}
}

func TestProcessDubbingSuccess(t *testing.T) {
	h := newHarness(t)
	longText := strings.Repeat("ü", 700)
	h.pool.outcome = func(req dubbing.Request) dubbing.Outcome {
		job := &dubbing.Job{
			ID:             req.ID,
			TargetLanguage: "es",
			Voice:          req.Voice,
			State:          dubbing.StateComplete,
			Artifacts: dubbing.Artifacts{
				Audio:        dubbing.MediaAsset{DurationSeconds: 10},
				Transcript:   dubbing.Transcript{Text: "hello there", Language: "en"},
				Translation:  dubbing.Translation{Text: longText, Language: "es"},
				AlignedAudio: dubbing.MediaAsset{DurationSeconds: 8},
				OutputVideo:  dubbing.MediaAsset{Path: filepath.Join(h.cfg.Paths.OutputDir, "dubbed_"+req.ID+".mp4")},
			},
			Alignment: dubbing.Alignment{EffectiveSpeed: 1.25},
		}
		return dubbing.Outcome{Job: job}
	}

	req := multipartRequest(t, "/dubbing/process", "video", "clip.mp4", mp4Bytes, map[string]string{
		"target_language": "es",
		"voice":           "Nova",
	})
	rec := h.do(t, req, "caller-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	payload := decode(t, rec)

	submitted := h.pool.submitted()
	if len(submitted) != 1 {
		t.Fatalf("expected one submission, got %d", len(submitted))
	}
	got := submitted[0]
	if got.TargetLanguage != "es" || got.Voice != voices.Standard("nova") || got.SpeedFactor != nil {
		t.Fatalf("unexpected request %+v", got)
	}
	if !got.OwnsInput || got.Session != "caller-1" {
		t.Fatalf("expected owned input for caller-1, got %+v", got)
	}
	if !strings.HasPrefix(filepath.Base(got.InputPath), "dubbing_") || filepath.Ext(got.InputPath) != ".mp4" {
		t.Fatalf("unexpected upload name %q", got.InputPath)
	}

	if payload["success"] != true || payload["message"] != "Video dubbed successfully!" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if payload["video_url"] != "/temp/dubbed_"+got.ID+".mp4" {
		t.Fatalf("video_url = %v", payload["video_url"])
	}
	if translated := payload["translated_text"].(string); len([]rune(translated)) != 500 {
		t.Fatalf("translated_text not truncated to 500 runes: %d", len([]rune(translated)))
	}
	if payload["speed_factor"] != 1.25 || payload["detected_language"] != "en" {
		t.Fatalf("unexpected alignment fields %v", payload)
	}
	if payload["original_duration"] != float64(10) || payload["final_duration"] != float64(8) {
		t.Fatalf("unexpected durations %v/%v", payload["original_duration"], payload["final_duration"])
	}

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/dubbing/jobs/"+got.ID, nil), "caller-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("job lookup status = %d", rec.Code)
	}
}

func TestProcessDubbingRejectsInput(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		file     string
		content  []byte
		fields   map[string]string
		wantErr  string
		contains bool
	}{
		{name: "missing video", fields: map[string]string{"voice": "alloy"}, wantErr: "No video file provided"},
		{name: "bad extension", field: "video", file: "notes.txt", content: mp4Bytes, wantErr: "Invalid file type", contains: true},
		{name: "blank target", field: "video", file: "clip.mp4", content: mp4Bytes, fields: map[string]string{"target_language": " "}, wantErr: "Target language is required"},
		{name: "blank voice", field: "video", file: "clip.mp4", content: mp4Bytes, fields: map[string]string{"voice": ""}, wantErr: "Voice is required"},
		{name: "unparsable speed", field: "video", file: "clip.mp4", content: mp4Bytes, fields: map[string]string{"speed_factor": "fast"}, wantErr: "Invalid speed factor"},
		{name: "speed above range", field: "video", file: "clip.mp4", content: mp4Bytes, fields: map[string]string{"speed_factor": "3.5"}, wantErr: "Speed factor must be greater than 0 and at most 3.0"},
		{name: "zero speed", field: "video", file: "clip.mp4", content: mp4Bytes, fields: map[string]string{"speed_factor": "0"}, wantErr: "Speed factor must be greater than 0 and at most 3.0"},
		{name: "unknown voice type", field: "video", file: "clip.mp4", content: mp4Bytes, fields: map[string]string{"voice_type": "robot"}, wantErr: "Voice type must be standard or cloned"},
		{name: "not media", field: "video", file: "clip.mp4", content: []byte("just some text, not a video"), wantErr: "Invalid file type", contains: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			rec := h.do(t, multipartRequest(t, "/dubbing/process", tt.field, tt.file, tt.content, tt.fields), "caller-1")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
			}
			msg, _ := decode(t, rec)["error"].(string)
			if tt.contains && !strings.Contains(msg, tt.wantErr) || !tt.contains && msg != tt.wantErr {
				t.Fatalf("error = %q, want %q", msg, tt.wantErr)
			}
			if n := len(h.pool.submitted()); n != 0 {
				t.Fatalf("expected no submissions, got %d", n)
			}
			if n := uploadCount(t, h.cfg); n != 0 {
				t.Fatalf("expected no stored uploads, got %d", n)
			}
		})
	}
}

func TestProcessDubbingRejectsOversizedUpload(t *testing.T) {
	h := newHarness(t)
	h.cfg.Dubbing.MaxUploadMB = 1
	content := append(append([]byte(nil), mp4Bytes...), make([]byte, 3<<20)...)

	rec := h.do(t, multipartRequest(t, "/dubbing/process", "video", "clip.mp4", content, nil), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if msg := decode(t, rec)["error"]; msg != "Video file size exceeds maximum allowed size of 1 MB" {
		t.Fatalf("error = %v", msg)
	}
}

func TestProcessDubbingValidationRemovesUpload(t *testing.T) {
	h := newHarness(t)
	h.handler = api.NewRouter(api.Deps{
		Config: h.cfg,
		Pool:   h.pool,
		Validator: validatorFunc(func(dubbing.Request) error {
			return &dubbing.Error{Kind: dubbing.KindValidation, Stage: dubbing.StateReceived, Message: `Unsupported target language "xx"`}
		}),
		Ledger:   h.ledger,
		Profiles: h.profiles,
	})

	rec := h.do(t, multipartRequest(t, "/dubbing/process", "video", "clip.mp4", mp4Bytes, map[string]string{"target_language": "xx"}), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if n := uploadCount(t, h.cfg); n != 0 {
		t.Fatalf("upload not removed, %d entries", n)
	}
}

func TestProcessDubbingFailureStatus(t *testing.T) {
	tests := []struct {
		kind       dubbing.Kind
		stage      dubbing.State
		wantStatus int
	}{
		{dubbing.KindRemoteService, dubbing.StateTranscribed, http.StatusBadGateway},
		{dubbing.KindVoiceNotFound, dubbing.StateSynthesized, http.StatusNotFound},
		{dubbing.KindNoAudioTrack, dubbing.StateAudioExtracted, http.StatusInternalServerError},
		{dubbing.KindEmptyTranscript, dubbing.StateTranscribed, http.StatusInternalServerError},
		{dubbing.KindSynthesis, dubbing.StateSynthesized, http.StatusInternalServerError},
		{dubbing.KindRemux, dubbing.StateRemuxed, http.StatusInternalServerError},
		{dubbing.KindLocalProcessing, dubbing.StateAligned, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			h := newHarness(t)
			h.pool.outcome = func(req dubbing.Request) dubbing.Outcome {
				stageErr := &dubbing.Error{Kind: tt.kind, Stage: tt.stage, Message: "stage failed"}
				return dubbing.Outcome{Job: &dubbing.Job{ID: req.ID, State: dubbing.StateFailed, Err: stageErr}, Err: stageErr}
			}
			rec := h.do(t, multipartRequest(t, "/dubbing/process", "video", "clip.mp4", mp4Bytes, nil), "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			payload := decode(t, rec)
			if payload["success"] != false || payload["stage"] != string(tt.stage) || payload["error_kind"] != string(tt.kind) {
				t.Fatalf("unexpected failure payload %v", payload)
			}
		})
	}
}

func TestProcessDubbingQueueFull(t *testing.T) {
	h := newHarness(t)
	h.pool.err = dubbing.ErrQueueFull

	rec := h.do(t, multipartRequest(t, "/dubbing/process", "video", "clip.mp4", mp4Bytes, nil), "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if n := uploadCount(t, h.cfg); n != 0 {
		t.Fatalf("upload not removed, %d entries", n)
	}
}

func TestDownloadUsesSessionLatest(t *testing.T) {
	h := newHarness(t)
	output := filepath.Join(h.cfg.Paths.OutputDir, "dubbed_job-1.mp4")
	if err := os.WriteFile(output, mp4Bytes, 0o644); err != nil {
		t.Fatalf("write output: %v", err)
	}
	now := time.Now().UTC()
	if err := h.ledger.Save(context.Background(), jobs.Record{
		ID:             "job-1",
		Session:        "caller-1",
		TargetLanguage: "es",
		State:          dubbing.StateComplete,
		OutputPath:     output,
		CreatedAt:      now,
		FinishedAt:     now,
	}); err != nil {
		t.Fatalf("save record: %v", err)
	}

	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/dubbing/download", nil), "caller-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d body=%s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "dubbed_video.mp4") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	if !bytes.Equal(rec.Body.Bytes(), mp4Bytes) {
		t.Fatal("download body mismatch")
	}

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/dubbing/download", nil), "caller-2")
	if rec.Code != http.StatusNotFound || decode(t, rec)["error"] != "No dubbed video available" {
		t.Fatalf("other session status = %d", rec.Code)
	}

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/temp/dubbed_job-1.mp4", nil), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("temp status = %d", rec.Code)
	}
	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/temp/missing.mp4", nil), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing temp status = %d", rec.Code)
	}
}

func TestJobLookup(t *testing.T) {
	h := newHarness(t)
	req := dubbing.Request{ID: "job-7", TargetLanguage: "fr", Voice: voices.Standard("alloy")}
	if err := h.ledger.Track(context.Background(), req); err != nil {
		t.Fatalf("track: %v", err)
	}

	payload := decode(t, h.do(t, httptest.NewRequest(http.MethodGet, "/dubbing/jobs/job-7", nil), ""))
	job := payload["job"].(map[string]any)
	if job["job_id"] != "job-7" || job["state"] != string(dubbing.StateReceived) {
		t.Fatalf("unexpected job %v", job)
	}

	payload = decode(t, h.do(t, httptest.NewRequest(http.MethodGet, "/dubbing/jobs?state=received", nil), ""))
	if list := payload["jobs"].([]any); len(list) != 1 {
		t.Fatalf("expected one received job, got %d", len(list))
	}

	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/dubbing/jobs/unknown", nil), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown job status = %d", rec.Code)
	}
}

func TestCloneVoiceReplacesSameName(t *testing.T) {
	h := newHarness(t)
	clone := func() map[string]any {
		req := multipartRequest(t, "/voice-clone/clone", "audio", "sample.wav", wavBytes, map[string]string{
			"voice_name":        "Narrator",
			"voice_description": "calm",
		})
		rec := h.do(t, req, "caller-1")
		if rec.Code != http.StatusOK {
			t.Fatalf("clone status = %d body=%s", rec.Code, rec.Body.String())
		}
		return decode(t, rec)
	}

	first := clone()
	second := clone()
	if first["message"] != `Voice "Narrator" cloned successfully!` {
		t.Fatalf("unexpected message %v", first["message"])
	}
	if first["voice_id"] == second["voice_id"] {
		t.Fatal("expected a fresh voice id per clone")
	}
	if !strings.HasPrefix(second["voice_id"].(string), "narrator_") {
		t.Fatalf("unexpected voice id %v", second["voice_id"])
	}
	profiles := h.profiles.List("caller-1")
	if len(profiles) != 1 || profiles[0].ID != second["voice_id"] {
		t.Fatalf("expected the second clone to replace the first, got %+v", profiles)
	}
	if len(h.cloner.calls) != 2 {
		t.Fatalf("expected two clone calls, got %d", len(h.cloner.calls))
	}
	if n := uploadCount(t, h.cfg); n != 0 {
		t.Fatalf("sample not removed, %d entries", n)
	}

	payload := decode(t, h.do(t, httptest.NewRequest(http.MethodGet, "/voice-clone/list", nil), "caller-1"))
	if list := payload["voices"].([]any); len(list) != 1 {
		t.Fatalf("expected one listed voice, got %d", len(list))
	}
}

func TestCloneVoiceValidation(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, multipartRequest(t, "/voice-clone/clone", "", "", nil, map[string]string{"voice_name": "x"}), "")
	if msg := decode(t, rec)["error"]; rec.Code != http.StatusBadRequest || msg != "No audio file provided" {
		t.Fatalf("missing audio: %d %v", rec.Code, msg)
	}
	rec = h.do(t, multipartRequest(t, "/voice-clone/clone", "audio", "sample.wav", wavBytes, nil), "")
	if msg := decode(t, rec)["error"]; rec.Code != http.StatusBadRequest || msg != "Voice name is required" {
		t.Fatalf("missing name: %d %v", rec.Code, msg)
	}
	if len(h.cloner.calls) != 0 {
		t.Fatal("cloner should not be called for invalid input")
	}
}

func TestCloneVoiceDisabled(t *testing.T) {
	h := newHarness(t)
	h.handler = api.NewRouter(api.Deps{Config: h.cfg, Pool: h.pool, Ledger: h.ledger, Profiles: h.profiles})
	rec := h.do(t, multipartRequest(t, "/voice-clone/clone", "audio", "sample.wav", wavBytes, map[string]string{"voice_name": "x"}), "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDeleteClonedVoice(t *testing.T) {
	h := newHarness(t)
	h.profiles.Put(voices.Profile{ID: "narrator_1234abcd", Name: "Narrator", Session: "caller-1"})
	deleteReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/voice-clone/delete", strings.NewReader(`{"voice_id":"narrator_1234abcd"}`))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	if rec := h.do(t, deleteReq(), "caller-2"); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign session delete status = %d", rec.Code)
	}
	rec := h.do(t, deleteReq(), "caller-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if msg := decode(t, rec)["message"]; msg != "Voice removed from session (MiniMax voices persist on server)" {
		t.Fatalf("unexpected message %v", msg)
	}
	if h.profiles.Len() != 0 {
		t.Fatal("profile still registered")
	}

	empty := httptest.NewRequest(http.MethodPost, "/voice-clone/delete", strings.NewReader(`{}`))
	if rec := h.do(t, empty, "caller-1"); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty delete status = %d", rec.Code)
	}
}
