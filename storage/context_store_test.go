package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/hitechparadigm/youtube-video-upload-sub006/models"
)

func TestContextStoreRoundtrip(t *testing.T) {
	store := NewContextStore(t.TempDir())

	topic := models.TopicContext{
		ProjectID: "proj-1",
		Topic:     "space telescopes",
		Keywords:  []string{"space", "telescope"},
	}
	if err := store.Put("proj-1", ContextTopic, topic); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !store.Exists("proj-1", ContextTopic) {
		t.Error("Exists returned false after Put")
	}

	var loaded models.TopicContext
	if err := store.Get("proj-1", ContextTopic, &loaded); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded.Topic != topic.Topic || len(loaded.Keywords) != 2 {
		t.Errorf("Roundtrip mismatch: got %+v", loaded)
	}
}

func TestContextStoreNotFound(t *testing.T) {
	store := NewContextStore(t.TempDir())

	var out models.TopicContext
	err := store.Get("proj-missing", ContextTopic, &out)
	if !errors.Is(err, ErrContextNotFound) {
		t.Errorf("Expected ErrContextNotFound, got %v", err)
	}
	if store.Exists("proj-missing", ContextTopic) {
		t.Error("Exists returned true for absent document")
	}
}

func TestContextStoreOverwrite(t *testing.T) {
	store := NewContextStore(t.TempDir())

	if err := store.Put("proj-1", ContextTopic, models.TopicContext{Topic: "first"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put("proj-1", ContextTopic, models.TopicContext{Topic: "second"}); err != nil {
		t.Fatalf("Second Put failed: %v", err)
	}

	var loaded models.TopicContext
	if err := store.Get("proj-1", ContextTopic, &loaded); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded.Topic != "second" {
		t.Errorf("Expected overwritten value, got %q", loaded.Topic)
	}
}

func TestResolveKey(t *testing.T) {
	base := t.TempDir()
	store := NewContextStore(base)

	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{
			name:     "Local key",
			key:      "media/scene-1/img.jpg",
			expected: filepath.Join(base, "proj-1", "media", "scene-1", "img.jpg"),
		},
		{
			name:     "Remote http key passes through",
			key:      "http://cdn.example.com/img.jpg",
			expected: "http://cdn.example.com/img.jpg",
		},
		{
			name:     "Remote https key passes through",
			key:      "https://cdn.example.com/img.jpg",
			expected: "https://cdn.example.com/img.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := store.ResolveKey("proj-1", tt.key); got != tt.expected {
				t.Errorf("ResolveKey(%q) = %q, expected %q", tt.key, got, tt.expected)
			}
		})
	}
}

func TestIsRemoteKey(t *testing.T) {
	if IsRemoteKey("media/scene-1/img.jpg") {
		t.Error("Local key classified as remote")
	}
	if !IsRemoteKey("https://example.com/a.jpg") {
		t.Error("https key not classified as remote")
	}
}
