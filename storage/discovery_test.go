package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hitechparadigm/youtube-video-upload-sub006/models"
)

func seedFile(t *testing.T, store *ContextStore, projectID, key, content string) {
	t.Helper()
	path := store.ResolveKey(projectID, key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", key, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", key, err)
	}
}

func TestDiscoverClassification(t *testing.T) {
	store := NewContextStore(t.TempDir())
	d := NewDiscovery(store)

	seedFile(t, store, "proj-1", "media/scene-1/beach.jpg", "img")
	seedFile(t, store, "proj-1", "media/scene-2/waves.mp4", "clip")
	seedFile(t, store, "proj-1", "audio/scene_1.mp3", "audio")
	seedFile(t, store, "proj-1", "context/topic-context.json", "{}")
	seedFile(t, store, "proj-1", "media/notes.txt", "ignored")

	discovered, err := d.Discover("proj-1")
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if len(discovered.Images) != 2 {
		t.Errorf("Expected 2 images, got %d", len(discovered.Images))
	}
	if len(discovered.AudioFiles) != 1 {
		t.Errorf("Expected 1 audio file, got %d", len(discovered.AudioFiles))
	}
	if len(discovered.ContextDocs) != 1 {
		t.Errorf("Expected 1 context doc, got %d", len(discovered.ContextDocs))
	}
}

func TestDiscoverSceneInference(t *testing.T) {
	store := NewContextStore(t.TempDir())
	d := NewDiscovery(store)

	seedFile(t, store, "proj-1", "media/scene-3/shot.jpg", "img")
	seedFile(t, store, "proj-1", "media/scene_7_closeup.png", "img")
	seedFile(t, store, "proj-1", "media/unattributed.jpg", "img")

	discovered, err := d.Discover("proj-1")
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	byKey := make(map[string]models.DiscoveredObject)
	for _, obj := range discovered.Images {
		byKey[obj.Key] = obj
	}

	if obj := byKey["media/scene-3/shot.jpg"]; obj.SceneNumber != 3 || !obj.Inferred {
		t.Errorf("scene-3 key: got scene %d, inferred %v", obj.SceneNumber, obj.Inferred)
	}
	if obj := byKey["media/scene_7_closeup.png"]; obj.SceneNumber != 7 || !obj.Inferred {
		t.Errorf("scene_7 key: got scene %d, inferred %v", obj.SceneNumber, obj.Inferred)
	}
	// No scene token anywhere defaults to scene 1.
	if obj := byKey["media/unattributed.jpg"]; obj.SceneNumber != 1 || !obj.Inferred {
		t.Errorf("unattributed key: got scene %d, inferred %v", obj.SceneNumber, obj.Inferred)
	}
}

func TestDiscoverMetadataOverridesKeyToken(t *testing.T) {
	store := NewContextStore(t.TempDir())
	d := NewDiscovery(store)

	seedFile(t, store, "proj-1", "media/scene-2/shot.jpg", "img")
	seedFile(t, store, "proj-1", "media/scene-2/shot.jpg.meta.json", `{"scene_number": 5}`)

	discovered, err := d.Discover("proj-1")
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if len(discovered.Images) != 1 {
		t.Fatalf("Expected 1 image (sidecar excluded), got %d", len(discovered.Images))
	}
	obj := discovered.Images[0]
	if obj.SceneNumber != 5 {
		t.Errorf("Expected metadata scene 5 to win over key token, got %d", obj.SceneNumber)
	}
	if obj.Inferred {
		t.Error("Metadata attribution should not be marked inferred")
	}
}

func TestDiscoverMissingProject(t *testing.T) {
	store := NewContextStore(t.TempDir())
	d := NewDiscovery(store)

	discovered, err := d.Discover("proj-none")
	if err != nil {
		t.Fatalf("Discover on missing project should not error, got %v", err)
	}
	if len(discovered.Images) != 0 || len(discovered.AudioFiles) != 0 {
		t.Errorf("Expected empty result, got %+v", discovered)
	}
}

func TestSceneFromKey(t *testing.T) {
	tests := []struct {
		key      string
		expected int
		matched  bool
	}{
		{"media/scene-4/img.jpg", 4, true},
		{"media/Scene_12_wide.png", 12, true},
		{"media/img.jpg", 0, false},
		{"media/scene-0/img.jpg", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			n, ok := SceneFromKey(tt.key)
			if ok != tt.matched || n != tt.expected {
				t.Errorf("SceneFromKey(%q) = (%d, %v), expected (%d, %v)", tt.key, n, ok, tt.expected, tt.matched)
			}
		})
	}
}

func TestMemoryStatusStore(t *testing.T) {
	s := NewMemoryStatusStore()

	if _, err := s.Get("proj-1"); err != ErrStatusNotFound {
		t.Errorf("Expected ErrStatusNotFound, got %v", err)
	}

	if err := s.Set("proj-1", models.StatusProcessing, "assembly started"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	status, err := s.Get("proj-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if status.Status != models.StatusProcessing || status.Message != "assembly started" {
		t.Errorf("Unexpected status: %+v", status)
	}

	if err := s.Set("proj-1", models.StatusCompleted, "done"); err != nil {
		t.Fatalf("Second Set failed: %v", err)
	}
	status, _ = s.Get("proj-1")
	if status.Status != models.StatusCompleted {
		t.Errorf("Expected completed, got %s", status.Status)
	}
}
