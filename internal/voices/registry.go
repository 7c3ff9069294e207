package voices

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Profile is a cloned voice registered with the remote provider.
type Profile struct {
	ID          string    `json:"voice_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Session     string    `json:"-"`
}

// Registry holds cloned voice profiles for the lifetime of the process.
type Registry struct {
	mu       sync.Mutex
	profiles map[string]Profile
	locks    map[string]*sync.RWMutex
	now      func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		profiles: make(map[string]Profile),
		locks:    make(map[string]*sync.RWMutex),
		now:      time.Now,
	}
}

// acquire takes the per-id lock and returns its release func. Without
// create, ok is false when no lock exists for id. A lock dropped by Delete
// while we waited is discarded and the lookup retried.
func (r *Registry) acquire(id string, create, write bool) (release func(), ok bool) {
	for {
		r.mu.Lock()
		lock, found := r.locks[id]
		if !found {
			if !create {
				r.mu.Unlock()
				return nil, false
			}
			lock = &sync.RWMutex{}
			r.locks[id] = lock
		}
		r.mu.Unlock()

		if write {
			lock.Lock()
			release = lock.Unlock
		} else {
			lock.RLock()
			release = lock.RUnlock
		}

		r.mu.Lock()
		current := r.locks[id]
		r.mu.Unlock()
		if current == lock {
			return release, true
		}
		release()
	}
}

// Put registers or replaces a profile. CreatedAt is stamped when zero.
func (r *Registry) Put(profile Profile) Profile {
	release, _ := r.acquire(profile.ID, true, true)
	defer release()

	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = r.now().UTC()
	}
	r.mu.Lock()
	r.profiles[profile.ID] = profile
	r.mu.Unlock()
	return profile
}

// Delete removes the profile and its lock, waiting for in-flight readers of
// that id. It reports whether a profile was removed.
func (r *Registry) Delete(id string) bool {
	release, ok := r.acquire(id, false, true)
	if !ok {
		return false
	}
	defer release()

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locks, id)
	if _, ok := r.profiles[id]; !ok {
		return false
	}
	delete(r.profiles, id)
	return true
}

// Get returns the profile for id.
func (r *Registry) Get(id string) (Profile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	return p, ok
}

// WithProfile runs fn while holding the read side of the profile's lock.
// ErrVoiceNotFound is returned when the profile does not exist at entry.
func (r *Registry) WithProfile(id string, fn func(Profile) error) error {
	release, ok := r.acquire(id, false, false)
	if !ok {
		return &NotFoundError{ID: id}
	}
	defer release()

	profile, ok := r.Get(id)
	if !ok {
		return &NotFoundError{ID: id}
	}
	return fn(profile)
}

// FindByName returns the session's profile with a case-insensitive name match.
func (r *Registry) FindByName(session, name string) (Profile, bool) {
	name = strings.TrimSpace(name)
	for _, p := range r.List(session) {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Profile{}, false
}

// List returns the profiles owned by session ordered by creation time.
// An empty session lists every profile.
func (r *Registry) List(session string) []Profile {
	r.mu.Lock()
	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		if session == "" || p.Session == session {
			out = append(out, p)
		}
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len reports how many profiles are registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.profiles)
}

// Clear removes every profile, waiting for in-flight readers of each.
func (r *Registry) Clear() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.Delete(id)
	}
}
