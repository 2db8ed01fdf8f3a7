package models

import (
	"fmt"
	"time"
)

// Scene purposes as produced by the script generation stage.
const (
	PurposeHook        = "hook"
	PurposeMainContent = "main_content"
	PurposeConclusion  = "conclusion"
)

// Media asset types. Placeholder is an explicit state for scenes that
// have no real media yet; it is never represented as fake bytes.
const (
	AssetTypeImage       = "image"
	AssetTypeClip        = "clip"
	AssetTypePlaceholder = "placeholder"
)

// Transition kinds attached to timeline segments.
const (
	TransitionFadeIn    = "fade-in"
	TransitionCrossfade = "crossfade"
)

// VisualRequirements describes what media a scene needs.
type VisualRequirements struct {
	Keywords    []string `json:"keywords"`
	ShotTypes   []string `json:"shot_types,omitempty"`
	TargetCount int      `json:"target_count"`
}

// Scene is one time-bounded narrative unit of the script.
type Scene struct {
	SceneNumber int                `json:"scene_number"`
	Title       string             `json:"title"`
	Purpose     string             `json:"purpose"`
	StartTime   float64            `json:"start_time"`
	EndTime     float64            `json:"end_time"`
	Duration    float64            `json:"duration"`
	Narration   string             `json:"narration"`
	Visuals     VisualRequirements `json:"visual_requirements"`
}

// TopicContext is produced by the topic expansion stage.
type TopicContext struct {
	ProjectID      string   `json:"project_id"`
	Topic          string   `json:"topic"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Keywords       []string `json:"keywords"`
	TargetDuration float64  `json:"target_duration"`
}

// SceneContext is produced by the script generation stage.
type SceneContext struct {
	ProjectID     string  `json:"project_id"`
	TotalDuration float64 `json:"total_duration"`
	Scenes        []Scene `json:"scenes"`
}

// MediaAsset is one curated image or clip. SceneNumber is written at
// curation time; when zero, the scene is inferred from the storage key.
type MediaAsset struct {
	StorageKey     string   `json:"storage_key"`
	Size           int64    `json:"size"`
	Source         string   `json:"source"`
	RelevanceScore float64  `json:"relevance_score"`
	Type           string   `json:"type"`
	Tags           []string `json:"tags,omitempty"`
	SceneNumber    int      `json:"scene_number,omitempty"`
}

// MediaContext maps scene numbers to curated assets.
type MediaContext struct {
	ProjectID string               `json:"project_id"`
	ByScene   map[int][]MediaAsset `json:"assets_by_scene"`
}

// AudioSegment is one per-scene narration file.
type AudioSegment struct {
	SceneNumber int     `json:"scene_number"`
	StorageKey  string  `json:"storage_key"`
	Duration    float64 `json:"duration"`
}

// MasterAudio is the single concatenated narration track.
type MasterAudio struct {
	StorageKey string  `json:"storage_key"`
	Duration   float64 `json:"duration"`
	SampleRate int     `json:"sample_rate,omitempty"`
	Channels   int     `json:"channels,omitempty"`
}

// AudioContext is produced by the narration synthesis stage, with the
// master track filled in by this engine when absent.
type AudioContext struct {
	ProjectID string         `json:"project_id"`
	Segments  []AudioSegment `json:"segments"`
	Master    *MasterAudio   `json:"master_audio,omitempty"`
}

// KPIs are the computed metrics that gate rendering.
type KPIs struct {
	ScenesDetected int     `json:"scenes_detected"`
	ImagesTotal    int     `json:"images_total"`
	AudioSegments  int     `json:"audio_segments"`
	QualityScore   float64 `json:"quality_score"`
}

// ManifestScene is a scene with its resolved media and audio.
type ManifestScene struct {
	Scene
	Media    []MediaAsset `json:"media"`
	AudioKey string       `json:"audio_key,omitempty"`
}

// ChapterMarker marks a scene boundary for publishing metadata.
type ChapterMarker struct {
	Title string  `json:"title"`
	Start float64 `json:"start"`
}

// Publishing holds the metadata handed to the publishing stage.
type Publishing struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Tags        []string        `json:"tags,omitempty"`
	Chapters    []ChapterMarker `json:"chapters,omitempty"`
}

// Manifest is the single validated, render-ready description of a
// project. Rendering consumes only this document, never raw contexts.
type Manifest struct {
	ProjectID         string          `json:"project_id"`
	Scenes            []ManifestScene `json:"scenes"`
	KPIs              KPIs            `json:"kpis"`
	ReadyForRendering bool            `json:"ready_for_rendering"`
	MasterAudio       MasterAudio     `json:"master_audio"`
	Publishing        Publishing      `json:"publishing"`
	Warnings          []string        `json:"warnings,omitempty"`
	GeneratedAt       time.Time       `json:"generated_at"`
}

// Segment is one time-coded slice of the timeline.
type Segment struct {
	SceneNumber int        `json:"scene_number"`
	SourceMedia MediaAsset `json:"source_media"`
	StartTime   float64    `json:"start_time"`
	EndTime     float64    `json:"end_time"`
	Duration    float64    `json:"duration"`
	Transition  string     `json:"transition"`
}

// Timeline is the in-memory ordered segment list driving composition.
// It is rebuilt on every render and never persisted on its own.
type Timeline struct {
	ProjectID     string    `json:"project_id"`
	Segments      []Segment `json:"segments"`
	TotalDuration float64   `json:"total_duration"`
}

// SubtitleCue is one SRT caption entry.
type SubtitleCue struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// AudioProbeResult is the measured metadata of an audio file.
type AudioProbeResult struct {
	Duration   float64 `json:"duration"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	BitRate    int     `json:"bit_rate"`
}

// OutputSpec describes the rendered video format.
type OutputSpec struct {
	Width        int
	Height       int
	FPS          int
	VideoBitrate string
	AudioBitrate string
	Codec        string
}

// Resolution returns the WxH string ffmpeg filters expect.
func (s OutputSpec) Resolution() string {
	if s.Width == 0 || s.Height == 0 {
		return "1920x1080"
	}
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// VideoOutput describes the rendered file or fallback bundle.
type VideoOutput struct {
	Path       string  `json:"path"`
	Duration   float64 `json:"duration"`
	Resolution string  `json:"resolution"`
	Codec      string  `json:"codec"`
	FileSize   int64   `json:"file_size"`
	Fallback   bool    `json:"fallback"`
	KPIs       KPIs    `json:"kpis"`
}

// Project status values.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ProjectStatus is the per-project status row updated at each major
// pipeline transition.
type ProjectStatus struct {
	ProjectID string    `gorm:"primaryKey;size:64" json:"project_id"`
	Status    string    `gorm:"size:16;not null" json:"status"`
	Message   string    `gorm:"type:text" json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProjectStatus) TableName() string {
	return "project_statuses"
}

// DiscoveredObject is one stored artifact found under a project's
// namespace. Inferred marks a scene number derived from the key
// pattern rather than explicit metadata.
type DiscoveredObject struct {
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	SceneNumber int    `json:"scene_number"`
	Inferred    bool   `json:"inferred"`
}

// Discovered groups a project's stored artifacts by kind.
type Discovered struct {
	Images      []DiscoveredObject `json:"images"`
	AudioFiles  []DiscoveredObject `json:"audio_files"`
	ContextDocs []DiscoveredObject `json:"context_documents"`
}

// BuildRequest is the input to POST /api/manifest/build.
type BuildRequest struct {
	ProjectID         string `json:"project_id" binding:"required"`
	MinVisuals        int    `json:"min_visuals"`
	AllowPlaceholders bool   `json:"allow_placeholders"`
}

// AssembleRequest is the input to POST /api/assemble.
type AssembleRequest struct {
	ProjectID   string `json:"project_id" binding:"required"`
	UseManifest bool   `json:"use_manifest"`
}

// AssembleResponse is returned on a successful assembly.
type AssembleResponse struct {
	VideoPath  string  `json:"video_path"`
	Duration   float64 `json:"duration"`
	Resolution string  `json:"resolution"`
	FileSize   int64   `json:"file_size"`
	Fallback   bool    `json:"fallback,omitempty"`
}
