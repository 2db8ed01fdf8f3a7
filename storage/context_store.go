package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Context document names. Every pipeline stage reads and writes these
// under a fixed per-project key scheme.
const (
	ContextTopic    = "topic-context"
	ContextScene    = "scene-context"
	ContextMedia    = "media-context"
	ContextAudio    = "audio-context"
	ContextManifest = "production-manifest"
)

// ErrContextNotFound is returned when a context document does not
// exist for a project.
var ErrContextNotFound = errors.New("context document not found")

// ContextStore reads and writes named JSON documents under a
// per-project namespace. Keys resolve as
// <base>/<projectID>/context/<name>.json.
type ContextStore struct {
	baseDir string
}

// NewContextStore creates a context store rooted at baseDir.
func NewContextStore(baseDir string) *ContextStore {
	return &ContextStore{baseDir: baseDir}
}

// ProjectDir returns the root of a project's namespace.
func (s *ContextStore) ProjectDir(projectID string) string {
	return filepath.Join(s.baseDir, projectID)
}

// OutputDir returns the fixed per-project location for rendered
// outputs.
func (s *ContextStore) OutputDir(projectID string) string {
	return filepath.Join(s.baseDir, projectID, "output")
}

func (s *ContextStore) contextPath(projectID, name string) string {
	return filepath.Join(s.baseDir, projectID, "context", name+".json")
}

// Get reads the named context document into out.
func (s *ContextStore) Get(projectID, name string, out any) error {
	data, err := os.ReadFile(s.contextPath(projectID, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s for project %s", ErrContextNotFound, name, projectID)
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s for project %s: %w", name, projectID, err)
	}
	return nil
}

// Put writes the named context document atomically (temp file plus
// rename) so readers never observe a partial document.
func (s *ContextStore) Put(projectID, name string, doc any) error {
	path := s.contextPath(projectID, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create context directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}
	return nil
}

// Exists reports whether the named context document is present.
func (s *ContextStore) Exists(projectID, name string) bool {
	_, err := os.Stat(s.contextPath(projectID, name))
	return err == nil
}

// ResolveKey maps a storage key to a local path inside the project's
// namespace. Remote http(s) keys are returned unchanged; the caller is
// responsible for fetching them.
func (s *ContextStore) ResolveKey(projectID, key string) string {
	if IsRemoteKey(key) {
		return key
	}
	// Keys are stored relative to the project namespace.
	return filepath.Join(s.baseDir, projectID, filepath.FromSlash(key))
}

// IsRemoteKey reports whether a storage key points at a remote object.
func IsRemoteKey(key string) bool {
	return strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://")
}
