package voices

import (
	"errors"
	"testing"
)

func TestRegistryDropsLocksOnDelete(t *testing.T) {
	r := NewRegistry()
	r.Put(Profile{ID: "v1", Name: "V"})
	if len(r.locks) != 1 {
		t.Fatalf("expected one lock after Put, got %d", len(r.locks))
	}
	if !r.Delete("v1") {
		t.Fatal("expected delete to remove profile")
	}
	if r.Delete("v1") {
		t.Fatal("second delete should report nothing removed")
	}
	if err := r.WithProfile("unknown", func(Profile) error { return nil }); !errors.Is(err, ErrVoiceNotFound) {
		t.Fatalf("expected ErrVoiceNotFound, got %v", err)
	}
	if len(r.locks) != 0 {
		t.Fatalf("expected no locks left, got %d", len(r.locks))
	}
}

func TestRegistryClearDropsLocks(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"a", "b", "c"} {
		r.Put(Profile{ID: id})
	}
	r.Clear()
	if len(r.locks) != 0 || r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d locks %d profiles", len(r.locks), r.Len())
	}
}
