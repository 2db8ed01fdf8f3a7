package storage

import (
	"encoding/json"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/hitechparadigm/youtube-video-upload-sub006/models"
)

var sceneTokenPattern = regexp.MustCompile(`scene[-_](\d+)`)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".mp4": true, ".mov": true,
}

var audioExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".aac": true,
}

// Discovery lists and classifies a project's stored artifacts. It is
// the fallback path when explicit media/audio contexts are missing or
// stale.
type Discovery struct {
	store *ContextStore
}

// NewDiscovery creates a discovery component over the given store.
func NewDiscovery(store *ContextStore) *Discovery {
	return &Discovery{store: store}
}

// Discover walks the project namespace and classifies every object by
// folder segment and file extension. Scene attribution prefers an
// explicit scene number in the object's sidecar metadata; the scene-N
// key token is the fallback, and unmatched objects default to scene 1
// with a logged warning rather than an error.
func (d *Discovery) Discover(projectID string) (*models.Discovered, error) {
	root := d.store.ProjectDir(projectID)
	result := &models.Discovered{}

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipAll
			}
			return err
		}
		if entry.IsDir() || strings.HasSuffix(path, ".meta.json") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)

		info, err := entry.Info()
		if err != nil {
			return err
		}

		folder := topFolder(key)
		ext := strings.ToLower(filepath.Ext(key))

		switch {
		case folder == "context" && ext == ".json":
			result.ContextDocs = append(result.ContextDocs, models.DiscoveredObject{
				Key:  key,
				Size: info.Size(),
			})
		case (folder == "media" || folder == "images") && imageExtensions[ext]:
			result.Images = append(result.Images, d.classifyScene(projectID, key, info.Size()))
		case folder == "audio" && audioExtensions[ext]:
			result.AudioFiles = append(result.AudioFiles, d.classifyScene(projectID, key, info.Size()))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Project %s] discovery: %d images, %d audio files, %d context documents",
		projectID, len(result.Images), len(result.AudioFiles), len(result.ContextDocs))
	return result, nil
}

// classifyScene attributes an object to a scene. Explicit sidecar
// metadata wins; a disagreement between metadata and the key token is
// reported as a warning, never a silent reassignment.
func (d *Discovery) classifyScene(projectID, key string, size int64) models.DiscoveredObject {
	obj := models.DiscoveredObject{Key: key, Size: size}

	metaScene := d.sidecarScene(projectID, key)
	keyScene, keyMatched := SceneFromKey(key)

	switch {
	case metaScene > 0:
		obj.SceneNumber = metaScene
		if keyMatched && keyScene != metaScene {
			log.Printf("[Project %s] warning: %s metadata says scene %d but key token says scene %d; using metadata",
				projectID, key, metaScene, keyScene)
		}
	case keyMatched:
		obj.SceneNumber = keyScene
		obj.Inferred = true
	default:
		obj.SceneNumber = 1
		obj.Inferred = true
		log.Printf("[Project %s] warning: no scene attribution for %s, defaulting to scene 1", projectID, key)
	}
	return obj
}

// sidecarScene reads <key>.meta.json and returns its scene number, or
// zero when the sidecar is absent or unreadable.
func (d *Discovery) sidecarScene(projectID, key string) int {
	metaPath := d.store.ResolveKey(projectID, key) + ".meta.json"
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return 0
	}
	var meta struct {
		SceneNumber int `json:"scene_number"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return 0
	}
	return meta.SceneNumber
}

// SceneFromKey extracts a scene-N token from a storage key.
func SceneFromKey(key string) (int, bool) {
	match := sceneTokenPattern.FindStringSubmatch(strings.ToLower(key))
	if match == nil {
		return 0, false
	}
	n, err := strconv.Atoi(match[1])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func topFolder(key string) string {
	if i := strings.Index(key, "/"); i > 0 {
		return key[:i]
	}
	return ""
}
