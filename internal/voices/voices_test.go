package voices_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"dubber/internal/voices"
)

type recordingBackend struct {
	mu    sync.Mutex
	calls []string
	block chan struct{}
}

func (b *recordingBackend) Speak(_ context.Context, voiceID, text, _ string) error {
	if b.block != nil {
		<-b.block
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, voiceID+"|"+text)
	return nil
}

func TestParseSelector(t *testing.T) {
	sel, err := voices.ParseSelector("", " Nova ")
	if err != nil || sel.Kind != voices.KindStandard || sel.ID != "nova" {
		t.Fatalf("sel=%+v err=%v", sel, err)
	}
	sel, err = voices.ParseSelector("cloned", "maria_1a2b3c4d")
	if err != nil || sel.Kind != voices.KindCloned {
		t.Fatalf("sel=%+v err=%v", sel, err)
	}
	if _, err := voices.ParseSelector("robot", "x"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if _, err := voices.ParseSelector("standard", ""); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestResolveStandardAndCloned(t *testing.T) {
	standard := &recordingBackend{}
	cloned := &recordingBackend{}
	registry := voices.NewRegistry()
	registry.Put(voices.Profile{ID: "maria_1a2b3c4d", Name: "Maria"})
	resolver := &voices.Resolver{Standard: standard, Cloned: cloned, Profiles: registry}

	for _, sel := range []voices.Selector{voices.Standard("alloy"), voices.Cloned("maria_1a2b3c4d")} {
		synth, err := sel.Resolve(resolver, "")
		if err != nil {
			t.Fatalf("resolve %s: %v", sel, err)
		}
		if err := synth.Synthesize(context.Background(), "hola", "/tmp/out.mp3"); err != nil {
			t.Fatalf("synthesize %s: %v", sel, err)
		}
	}
	if len(standard.calls) != 1 || standard.calls[0] != "alloy|hola" {
		t.Fatalf("standard calls = %v", standard.calls)
	}
	if len(cloned.calls) != 1 || cloned.calls[0] != "maria_1a2b3c4d|hola" {
		t.Fatalf("cloned calls = %v", cloned.calls)
	}
}

func TestResolveUnknownVoices(t *testing.T) {
	resolver := &voices.Resolver{Standard: &recordingBackend{}, Cloned: &recordingBackend{}, Profiles: voices.NewRegistry()}
	for _, sel := range []voices.Selector{voices.Standard("bogus"), voices.Cloned("missing")} {
		if _, err := sel.Resolve(resolver, ""); !errors.Is(err, voices.ErrVoiceNotFound) {
			t.Fatalf("resolve %s: expected ErrVoiceNotFound, got %v", sel, err)
		}
	}
}

func TestResolveClonedRequiresOwningSession(t *testing.T) {
	registry := voices.NewRegistry()
	registry.Put(voices.Profile{ID: "v1", Name: "V", Session: "a"})
	resolver := &voices.Resolver{Cloned: &recordingBackend{}, Profiles: registry}

	if _, err := voices.Cloned("v1").Resolve(resolver, "b"); !errors.Is(err, voices.ErrVoiceNotFound) {
		t.Fatalf("expected ErrVoiceNotFound for another session, got %v", err)
	}
	if _, err := voices.Cloned("v1").Resolve(resolver, "a"); err != nil {
		t.Fatalf("owning session should resolve: %v", err)
	}
}

func TestClonedVoiceDeletedAfterResolve(t *testing.T) {
	registry := voices.NewRegistry()
	registry.Put(voices.Profile{ID: "v1", Name: "V"})
	backend := &recordingBackend{}
	synth, err := voices.Cloned("v1").Resolve(&voices.Resolver{Cloned: backend, Profiles: registry}, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !registry.Delete("v1") {
		t.Fatal("expected delete to remove profile")
	}
	err = synth.Synthesize(context.Background(), "text", "/tmp/x.mp3")
	if !errors.Is(err, voices.ErrVoiceNotFound) {
		t.Fatalf("expected ErrVoiceNotFound, got %v", err)
	}
	if len(backend.calls) != 0 {
		t.Fatalf("backend should not be called, got %v", backend.calls)
	}
}

func TestDeleteWaitsForInFlightSynthesis(t *testing.T) {
	registry := voices.NewRegistry()
	registry.Put(voices.Profile{ID: "v1", Name: "V"})
	backend := &recordingBackend{block: make(chan struct{})}
	synth, err := voices.Cloned("v1").Resolve(&voices.Resolver{Cloned: backend, Profiles: registry}, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	synthDone := make(chan error, 1)
	go func() { synthDone <- synth.Synthesize(context.Background(), "t", "/tmp/x") }()

	// Give the synthesis goroutine time to take the read lock.
	time.Sleep(20 * time.Millisecond)
	deleted := make(chan bool, 1)
	go func() { deleted <- registry.Delete("v1") }()

	select {
	case <-deleted:
		t.Fatal("delete returned while synthesis held the profile")
	case <-time.After(20 * time.Millisecond):
	}
	close(backend.block)
	if err := <-synthDone; err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if !<-deleted {
		t.Fatal("expected delete to succeed after synthesis")
	}
}

func TestRegistryListAndFind(t *testing.T) {
	registry := voices.NewRegistry()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	registry.Put(voices.Profile{ID: "b", Name: "Bob", Session: "s1", CreatedAt: base.Add(time.Minute)})
	registry.Put(voices.Profile{ID: "a", Name: "Ann", Session: "s1", CreatedAt: base})
	registry.Put(voices.Profile{ID: "c", Name: "Cat", Session: "s2", CreatedAt: base})

	list := registry.List("s1")
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" {
		t.Fatalf("unexpected list %+v", list)
	}
	if len(registry.List("")) != 3 {
		t.Fatal("empty session should list all profiles")
	}
	if p, ok := registry.FindByName("s1", "bob"); !ok || p.ID != "b" {
		t.Fatalf("FindByName = %+v %v", p, ok)
	}
	if _, ok := registry.FindByName("s2", "bob"); ok {
		t.Fatal("profiles from another session must not match")
	}

	registry.Clear()
	if registry.Len() != 0 {
		t.Fatalf("expected empty registry after Clear, got %d", registry.Len())
	}
}

func TestListingAppendsClonedProfiles(t *testing.T) {
	listing := voices.Listing([]voices.Profile{{ID: "x", Name: "Xena"}})
	if len(listing) != 7 {
		t.Fatalf("expected 7 voices, got %d", len(listing))
	}
	last := listing[6]
	if last.Name != "Xena (Cloned)" || last.Type != voices.KindCloned || last.Description != "Custom cloned voice" {
		t.Fatalf("unexpected cloned entry %+v", last)
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Çağrı Öztürk":  "cagr_ozturk",
		"My Voice #1":   "my_voice_1",
		"  __ok__  ":    "ok",
		"日本語":           "",
		"Crème brûlée!": "creme_brulee",
	}
	for in, want := range cases {
		if got := voices.Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewVoiceID(t *testing.T) {
	if id := voices.NewVoiceID("Maria"); !regexp.MustCompile(`^maria_[0-9a-f]{8}$`).MatchString(id) {
		t.Fatalf("unexpected id %q", id)
	}
	if id := voices.NewVoiceID("日本語"); !regexp.MustCompile(`^voice_[0-9a-f]{12}$`).MatchString(id) {
		t.Fatalf("unexpected fallback id %q", id)
	}
}
