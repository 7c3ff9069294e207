package dubbing

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Workspace is the scratch directory that holds a job's temporary artifacts.
type Workspace struct {
	dir      string
	once     sync.Once
	released bool
	mu       sync.Mutex
}

// NewWorkspace creates root/<jobID>.
func NewWorkspace(root, jobID string) (*Workspace, error) {
	if root == "" || jobID == "" {
		return nil, errors.New("workspace: root and job id are required")
	}
	dir := filepath.Join(root, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: create %s: %w", dir, err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path returns the location for a named artifact inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, filepath.Base(name))
}

// Release deletes the workspace and everything in it. Safe to call twice.
func (w *Workspace) Release() error {
	var err error
	w.once.Do(func() {
		err = os.RemoveAll(w.dir)
		w.mu.Lock()
		w.released = true
		w.mu.Unlock()
	})
	return err
}

// Released reports whether Release has run.
func (w *Workspace) Released() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.released
}
