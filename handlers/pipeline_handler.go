package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hitechparadigm/youtube-video-upload-sub006/config"
	"github.com/hitechparadigm/youtube-video-upload-sub006/metrics"
	"github.com/hitechparadigm/youtube-video-upload-sub006/models"
	"github.com/hitechparadigm/youtube-video-upload-sub006/services"
	"github.com/hitechparadigm/youtube-video-upload-sub006/storage"
	"github.com/hitechparadigm/youtube-video-upload-sub006/utils"
)

// PipelineHandler handles manifest building and video assembly requests
type PipelineHandler struct {
	cfg        *config.Config
	store      *storage.ContextStore
	statuses   storage.StatusStore
	metrics    *metrics.Metrics
	manifest   *services.ManifestService
	timeline   *services.TimelineService
	subtitles  *services.SubtitleService
	compositor *services.CompositorService
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(cfg *config.Config, statuses storage.StatusStore, m *metrics.Metrics) *PipelineHandler {
	store := storage.NewContextStore(cfg.StoreDir)
	discovery := storage.NewDiscovery(store)
	matcher := services.NewMatcherService()

	subprocessTimeout := time.Duration(cfg.SubprocessTimeoutSeconds) * time.Second
	downloadTimeout := time.Duration(cfg.DownloadTimeoutSeconds) * time.Second

	narration := services.NewNarrationService(
		store,
		cfg.AudioSampleRate,
		cfg.AudioBitrate,
		cfg.ProbeMaxRetries,
		subprocessTimeout,
	)

	manifest := services.NewManifestService(store, discovery, matcher, narration, cfg.AudioToleranceSeconds)

	media := services.NewMediaService(store, downloadTimeout, cfg.MaxConcurrentSegments, cfg.DownloadMaxRetries)
	subtitles := services.NewSubtitleService()

	spec := models.OutputSpec{
		Width:        cfg.VideoWidth,
		Height:       cfg.VideoHeight,
		FPS:          cfg.VideoFPS,
		VideoBitrate: cfg.VideoBitrate,
		AudioBitrate: cfg.AudioBitrate,
		Codec:        cfg.VideoCodec,
	}

	compositor := services.NewCompositorService(
		store,
		media,
		subtitles,
		spec,
		cfg.TransitionDuration,
		cfg.MaxConcurrentSegments,
		subprocessTimeout,
	)

	return &PipelineHandler{
		cfg:        cfg,
		store:      store,
		statuses:   statuses,
		metrics:    m,
		manifest:   manifest,
		timeline:   services.NewTimelineService(),
		subtitles:  subtitles,
		compositor: compositor,
	}
}

// BuildManifest handles POST /api/manifest/build
func (h *PipelineHandler) BuildManifest(c *gin.Context) {
	var req models.BuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	minVisuals := req.MinVisuals
	if minVisuals <= 0 {
		minVisuals = h.cfg.MinVisualsPerScene
	}

	manifest, err := h.manifest.Build(c.Request.Context(), req.ProjectID, minVisuals, req.AllowPlaceholders)
	if err != nil {
		var vf *models.ValidationFailure
		if errors.As(err, &vf) {
			h.metrics.IncManifestBuild("rejected")
			log.Printf("[Project %s] manifest rejected: %v", req.ProjectID, vf)
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":         "manifest validation failed",
				"issues":        vf.Issues,
				"scene_numbers": vf.SceneNumbers(),
			})
			return
		}
		h.metrics.IncManifestBuild("error")
		log.Printf("[Project %s] manifest build failed: %v", req.ProjectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if manifest.ReadyForRendering {
		h.metrics.IncManifestBuild("ready")
	} else {
		h.metrics.IncManifestBuild("not_ready")
	}
	c.JSON(http.StatusOK, manifest)
}

// Assemble handles POST /api/assemble
func (h *PipelineHandler) Assemble(c *gin.Context) {
	var req models.AssembleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	manifest, err := h.manifest.Load(req.ProjectID)
	if err != nil {
		if errors.Is(err, storage.ErrContextNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no production manifest for project, build one first"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !manifest.ReadyForRendering {
		c.JSON(http.StatusConflict, gin.H{"error": "manifest is not ready for rendering", "kpis": manifest.KPIs})
		return
	}

	attemptID := uuid.New().String()
	h.setStatus(req.ProjectID, models.StatusProcessing, "assembly started, attempt "+attemptID)
	started := time.Now()

	output, err := h.runAssembly(c, req.ProjectID, attemptID, manifest)
	h.metrics.ObserveAssemblyDuration(time.Since(started).Seconds())
	if err != nil {
		h.metrics.IncAssembly("failed")
		h.setStatus(req.ProjectID, models.StatusFailed, err.Error())
		log.Printf("[Project %s] assembly failed: %v", req.ProjectID, err)
		status := http.StatusInternalServerError
		if models.IsRetryable(err) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error(), "retryable": models.IsRetryable(err)})
		return
	}

	if output.Fallback {
		h.metrics.IncAssembly("fallback")
		h.metrics.IncFallbacks()
		h.setStatus(req.ProjectID, models.StatusCompleted, "render instructions produced at "+output.Path)
	} else {
		h.metrics.IncAssembly("completed")
		h.setStatus(req.ProjectID, models.StatusCompleted, "video rendered at "+output.Path)
	}
	log.Printf("[Project %s] assembly completed in %.1fs (fallback=%t)", req.ProjectID, time.Since(started).Seconds(), output.Fallback)

	c.JSON(http.StatusOK, models.AssembleResponse{
		VideoPath:  output.Path,
		Duration:   output.Duration,
		Resolution: output.Resolution,
		FileSize:   output.FileSize,
		Fallback:   output.Fallback,
	})
}

// runAssembly executes one assembly attempt against a ready manifest.
func (h *PipelineHandler) runAssembly(c *gin.Context, projectID, attemptID string, manifest *models.Manifest) (*models.VideoOutput, error) {
	dirs, err := utils.CreateWorkDirs(h.cfg.TempDir, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to create work directories: %w", err)
	}
	defer dirs.Cleanup()

	timeline, err := h.timeline.Generate(projectID, manifest.Scenes, manifest.MasterAudio.Duration)
	if err != nil {
		return nil, err
	}
	cues := h.subtitles.Generate(timeline, manifest.Scenes)

	masterAudioPath := h.store.ResolveKey(projectID, manifest.MasterAudio.StorageKey)
	if !utils.FileExists(masterAudioPath) {
		return nil, fmt.Errorf("master narration missing at %s", masterAudioPath)
	}

	outputPath := filepath.Join(h.store.OutputDir(projectID), "final_video.mp4")
	output, err := h.compositor.Assemble(c.Request.Context(), timeline, cues, masterAudioPath, dirs, outputPath)
	if err != nil {
		return nil, err
	}
	output.KPIs = manifest.KPIs
	return output, nil
}

// GetStatus handles GET /api/status/:project_id
func (h *PipelineHandler) GetStatus(c *gin.Context) {
	projectID := c.Param("project_id")

	status, err := h.statuses.Get(projectID)
	if err != nil {
		if errors.Is(err, storage.ErrStatusNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

// Download handles GET /api/download/:project_id
func (h *PipelineHandler) Download(c *gin.Context) {
	projectID := c.Param("project_id")

	videoPath := filepath.Join(h.store.OutputDir(projectID), "final_video.mp4")
	if !utils.FileExists(videoPath) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video file not found"})
		return
	}

	c.Header("Content-Type", "video/mp4")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=video_%s.mp4", projectID))
	c.File(videoPath)

	// Rendered output is retained for a day after first download.
	utils.ScheduleCleanup(h.store.OutputDir(projectID), 24*time.Hour)
}

// DownloadSubtitles handles GET /api/download-subtitles/:project_id
func (h *PipelineHandler) DownloadSubtitles(c *gin.Context) {
	projectID := c.Param("project_id")

	srtPath := filepath.Join(h.store.OutputDir(projectID), "final_video.srt")
	if !utils.FileExists(srtPath) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subtitle file not found"})
		return
	}

	c.Header("Content-Type", "application/x-subrip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=subtitles_%s.srt", projectID))
	c.File(srtPath)
}

func (h *PipelineHandler) setStatus(projectID, status, message string) {
	if err := h.statuses.Set(projectID, status, message); err != nil {
		log.Printf("[Project %s] failed to record status %q: %v", projectID, status, err)
	}
}
