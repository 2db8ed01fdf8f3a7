package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/hitechparadigm/youtube-video-upload-sub006/config"
	"github.com/hitechparadigm/youtube-video-upload-sub006/metrics"
	"github.com/hitechparadigm/youtube-video-upload-sub006/models"
	"github.com/hitechparadigm/youtube-video-upload-sub006/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:                     "8080",
		StoreDir:                 t.TempDir(),
		TempDir:                  t.TempDir(),
		MinVisualsPerScene:       1,
		AudioToleranceSeconds:    2.0,
		VideoWidth:               1920,
		VideoHeight:              1080,
		VideoFPS:                 30,
		VideoBitrate:             "5M",
		AudioBitrate:             "192k",
		AudioSampleRate:          44100,
		VideoCodec:               "libx264",
		TransitionDuration:       0.5,
		MaxConcurrentSegments:    2,
		DownloadMaxRetries:       1,
		ProbeMaxRetries:          1,
		SubprocessTimeoutSeconds: 10,
		DownloadTimeoutSeconds:   10,
	}
}

func testRouter(t *testing.T, cfg *config.Config) (*gin.Engine, *PipelineHandler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewPipelineHandler(cfg, storage.NewMemoryStatusStore(), metrics.New())

	router := gin.New()
	api := router.Group("/api")
	{
		api.POST("/manifest/build", h.BuildManifest)
		api.POST("/assemble", h.Assemble)
		api.GET("/status/:project_id", h.GetStatus)
		api.GET("/download/:project_id", h.Download)
	}
	return router, h
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// seedReadyProject writes the context documents for a project whose
// manifest build should pass with one visual per scene.
func seedReadyProject(t *testing.T, cfg *config.Config, projectID string) {
	t.Helper()
	store := storage.NewContextStore(cfg.StoreDir)

	put := func(name string, doc any) {
		if err := store.Put(projectID, name, doc); err != nil {
			t.Fatalf("Failed to seed %s: %v", name, err)
		}
	}

	put(storage.ContextTopic, models.TopicContext{ProjectID: projectID, Topic: "glaciers", Title: "Rivers of Ice"})
	put(storage.ContextScene, models.SceneContext{
		ProjectID: projectID,
		Scenes: []models.Scene{
			{SceneNumber: 1, Duration: 20, Narration: "Ice moves.", Visuals: models.VisualRequirements{Keywords: []string{"glacier"}}},
			{SceneNumber: 2, Duration: 40, Narration: "Slowly.", Visuals: models.VisualRequirements{Keywords: []string{"ice"}}},
		},
	})
	put(storage.ContextMedia, models.MediaContext{
		ProjectID: projectID,
		ByScene: map[int][]models.MediaAsset{
			1: {{StorageKey: "media/scene-1/glacier.jpg", Type: models.AssetTypeImage, Tags: []string{"glacier"}}},
			2: {{StorageKey: "media/scene-2/ice.jpg", Type: models.AssetTypeImage, Tags: []string{"ice"}}},
		},
	})
	put(storage.ContextAudio, models.AudioContext{
		ProjectID: projectID,
		Segments: []models.AudioSegment{
			{SceneNumber: 1, StorageKey: "audio/scene_1.mp3", Duration: 20},
			{SceneNumber: 2, StorageKey: "audio/scene_2.mp3", Duration: 40},
		},
		Master: &models.MasterAudio{StorageKey: "audio/master-narration.mp3", Duration: 60},
	})
}

func TestBuildManifestInvalidRequest(t *testing.T) {
	router, _ := testRouter(t, testConfig(t))

	w := postJSON(router, "/api/manifest/build", map[string]any{"min_visuals": 2})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing project_id, got %d", w.Code)
	}
}

func TestBuildManifestMissingContexts(t *testing.T) {
	router, _ := testRouter(t, testConfig(t))

	w := postJSON(router, "/api/manifest/build", models.BuildRequest{ProjectID: "proj-none"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Error  string                   `json:"error"`
		Issues []models.ValidationIssue `json:"issues"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Response not JSON: %v", err)
	}
	if len(resp.Issues) == 0 {
		t.Error("Expected itemized issues in 422 body")
	}
}

func TestBuildManifestSuccess(t *testing.T) {
	cfg := testConfig(t)
	router, _ := testRouter(t, cfg)
	seedReadyProject(t, cfg, "proj-ok")

	w := postJSON(router, "/api/manifest/build", models.BuildRequest{ProjectID: "proj-ok"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var manifest models.Manifest
	if err := json.Unmarshal(w.Body.Bytes(), &manifest); err != nil {
		t.Fatalf("Response not a manifest: %v", err)
	}
	if !manifest.ReadyForRendering {
		t.Errorf("Expected ready manifest, warnings: %v", manifest.Warnings)
	}
	if manifest.KPIs.ScenesDetected != 2 || manifest.KPIs.ImagesTotal != 2 {
		t.Errorf("Unexpected KPIs: %+v", manifest.KPIs)
	}
}

func TestBuildManifestInsufficientVisuals(t *testing.T) {
	cfg := testConfig(t)
	cfg.MinVisualsPerScene = 3
	router, _ := testRouter(t, cfg)
	seedReadyProject(t, cfg, "proj-thin")

	w := postJSON(router, "/api/manifest/build", models.BuildRequest{ProjectID: "proj-thin"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		SceneNumbers []int `json:"scene_numbers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Response not JSON: %v", err)
	}
	if len(resp.SceneNumbers) != 2 {
		t.Errorf("Expected both scenes listed, got %v", resp.SceneNumbers)
	}
}

func TestAssembleWithoutManifest(t *testing.T) {
	router, _ := testRouter(t, testConfig(t))

	w := postJSON(router, "/api/assemble", models.AssembleRequest{ProjectID: "proj-none"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without a manifest, got %d", w.Code)
	}
}

func TestAssembleRejectsUnreadyManifest(t *testing.T) {
	cfg := testConfig(t)
	router, _ := testRouter(t, cfg)

	store := storage.NewContextStore(cfg.StoreDir)
	manifest := models.Manifest{ProjectID: "proj-unready", ReadyForRendering: false}
	if err := store.Put("proj-unready", storage.ContextManifest, manifest); err != nil {
		t.Fatalf("Failed to seed manifest: %v", err)
	}

	w := postJSON(router, "/api/assemble", models.AssembleRequest{ProjectID: "proj-unready"})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for unready manifest, got %d", w.Code)
	}
}

func TestGetStatusNotFound(t *testing.T) {
	router, _ := testRouter(t, testConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/api/status/proj-none", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestDownloadNotFound(t *testing.T) {
	router, _ := testRouter(t, testConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/api/download/proj-none", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}
