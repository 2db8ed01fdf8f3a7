package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/hitechparadigm/youtube-video-upload-sub006/models"
	"github.com/hitechparadigm/youtube-video-upload-sub006/storage"
	"github.com/hitechparadigm/youtube-video-upload-sub006/utils"
)

// ManifestService is the quality gatekeeper. It validates that topic,
// scene, media and audio contexts are jointly sufficient, computes the
// KPIs, and either persists a unified manifest or fails the pipeline
// before any rendering starts.
type ManifestService struct {
	store     *storage.ContextStore
	discovery *storage.Discovery
	matcher   *MatcherService
	narration *NarrationService
	tolerance float64
}

// NewManifestService creates a new manifest service
func NewManifestService(store *storage.ContextStore, discovery *storage.Discovery, matcher *MatcherService, narration *NarrationService, toleranceSeconds float64) *ManifestService {
	return &ManifestService{
		store:     store,
		discovery: discovery,
		matcher:   matcher,
		narration: narration,
		tolerance: toleranceSeconds,
	}
}

// Load reads the persisted manifest for a project.
func (ms *ManifestService) Load(projectID string) (*models.Manifest, error) {
	var manifest models.Manifest
	if err := ms.store.Get(projectID, storage.ContextManifest, &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// Build validates all contexts and produces the manifest. It is
// idempotent: unchanged contexts yield identical KPIs and the same
// readiness verdict. On quality failure it returns a ValidationFailure
// listing exactly the offending scene numbers; it never silently pads
// scenes with filler content unless placeholders were explicitly
// allowed.
func (ms *ManifestService) Build(ctx context.Context, projectID string, minVisuals int, allowPlaceholders bool) (*models.Manifest, error) {
	if minVisuals < 1 {
		minVisuals = 1
	}

	contexts, failure, err := ms.loadContexts(ctx, projectID, allowPlaceholders)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return nil, failure
	}

	var issues []models.ValidationIssue
	var warnings []string

	issues = append(issues, validateSceneOrdering(contexts.scenes.Scenes)...)

	// Resolve media per scene, best match first.
	manifestScenes := make([]models.ManifestScene, 0, len(contexts.scenes.Scenes))
	realAssets := 0
	sufficiencySum := 0.0
	relevanceSum := 0.0
	for _, scene := range contexts.scenes.Scenes {
		candidates := contexts.media.ByScene[scene.SceneNumber]
		ranked := ms.matcher.Rank(scene, candidates)
		for i := range ranked {
			if ranked[i].SceneNumber == 0 {
				ranked[i].SceneNumber = scene.SceneNumber
			}
		}

		realCount := 0
		for _, asset := range ranked {
			if asset.Type != models.AssetTypePlaceholder {
				realCount++
				relevanceSum += clamp01(asset.RelevanceScore)
			}
		}
		realAssets += realCount
		sufficiencySum += math.Min(1, float64(realCount)/float64(minVisuals))

		if realCount < minVisuals {
			if !allowPlaceholders {
				issues = append(issues, models.ValidationIssue{
					SceneNumber: scene.SceneNumber,
					Field:       "media",
					Reason:      fmt.Sprintf("%d visual(s) resolved, minimum is %d", realCount, minVisuals),
				})
			} else {
				for i := len(ranked); i < minVisuals; i++ {
					ranked = append(ranked, models.MediaAsset{
						StorageKey:  fmt.Sprintf("placeholder://scene-%d/%d", scene.SceneNumber, i+1),
						Type:        models.AssetTypePlaceholder,
						SceneNumber: scene.SceneNumber,
					})
				}
				warnings = append(warnings, fmt.Sprintf("scene %d uses %d placeholder visual(s)", scene.SceneNumber, minVisuals-realCount))
			}
		}

		manifestScenes = append(manifestScenes, models.ManifestScene{
			Scene:    scene,
			Media:    ranked,
			AudioKey: audioKeyForScene(contexts.audio, scene.SceneNumber),
		})
	}

	// The master narration track is assembled here when the upstream
	// stage delivered only per-scene segments.
	if contexts.audio.Master == nil && len(contexts.audio.Segments) > 0 {
		master, err := ms.narration.AssembleMaster(ctx, projectID, contexts.audio)
		if err != nil {
			return nil, err
		}
		contexts.audio.Master = master
		if err := ms.store.Put(projectID, storage.ContextAudio, contexts.audio); err != nil {
			return nil, err
		}
	}

	scriptTotal := 0.0
	for _, scene := range contexts.scenes.Scenes {
		scriptTotal += scene.Duration
	}

	audioOK := false
	switch {
	case contexts.audio.Master == nil:
		issues = append(issues, models.ValidationIssue{
			Field:  "audio",
			Reason: "master narration track missing",
		})
	case scriptTotal > 0 && math.Abs(contexts.audio.Master.Duration-scriptTotal) > ms.tolerance:
		issues = append(issues, models.ValidationIssue{
			Field: "audio",
			Reason: fmt.Sprintf("master narration is %.2fs but script totals %.2fs (tolerance %.1fs)",
				contexts.audio.Master.Duration, scriptTotal, ms.tolerance),
		})
	default:
		audioOK = true
	}

	if contexts.audio.Master != nil {
		segmentTotal := 0.0
		for _, segment := range contexts.audio.Segments {
			segmentTotal += segment.Duration
		}
		if segmentTotal > 0 && math.Abs(contexts.audio.Master.Duration-segmentTotal) > ms.tolerance {
			warnings = append(warnings, fmt.Sprintf("master narration %.2fs differs from segment sum %.2fs",
				contexts.audio.Master.Duration, segmentTotal))
		}
	}

	if len(issues) > 0 && !allowPlaceholders {
		return nil, &models.ValidationFailure{ProjectID: projectID, Issues: issues}
	}
	for _, issue := range issues {
		warnings = append(warnings, issue.Reason)
	}

	sceneCount := len(contexts.scenes.Scenes)
	kpis := models.KPIs{
		ScenesDetected: sceneCount,
		ImagesTotal:    realAssets,
		AudioSegments:  len(contexts.audio.Segments),
		QualityScore:   qualityScore(sceneCount, sufficiencySum, realAssets, relevanceSum),
	}

	ready := audioOK && len(issues) == 0
	if allowPlaceholders {
		// Placeholders satisfy the visual minimum; only audio problems
		// and ordering issues still block rendering.
		ready = audioOK && !hasBlockingIssues(issues)
	}

	manifest := &models.Manifest{
		ProjectID:         projectID,
		Scenes:            manifestScenes,
		KPIs:              kpis,
		ReadyForRendering: ready,
		Publishing:        buildPublishing(contexts.topic, contexts.scenes.Scenes),
		Warnings:          warnings,
		GeneratedAt:       time.Now().UTC(),
	}
	if contexts.audio.Master != nil {
		manifest.MasterAudio = *contexts.audio.Master
	}

	if err := ms.store.Put(projectID, storage.ContextManifest, manifest); err != nil {
		return nil, err
	}

	log.Printf("[Project %s] manifest built: %d scenes, %d images, quality %.1f, ready=%v",
		projectID, kpis.ScenesDetected, kpis.ImagesTotal, kpis.QualityScore, ready)
	return manifest, nil
}

type projectContexts struct {
	topic  *models.TopicContext
	scenes *models.SceneContext
	media  *models.MediaContext
	audio  *models.AudioContext
}

// loadContexts fetches all four context documents. Any absent document
// fails the build immediately unless placeholders are allowed, in
// which case content discovery reconstructs what it can.
func (ms *ManifestService) loadContexts(ctx context.Context, projectID string, allowPlaceholders bool) (*projectContexts, *models.ValidationFailure, error) {
	contexts := &projectContexts{
		topic:  &models.TopicContext{},
		scenes: &models.SceneContext{},
		media:  &models.MediaContext{},
		audio:  &models.AudioContext{},
	}

	var missing []models.ValidationIssue
	load := func(name string, out any) bool {
		if err := ms.store.Get(projectID, name, out); err != nil {
			missing = append(missing, models.ValidationIssue{
				Field:  name,
				Reason: fmt.Sprintf("context document %s missing", name),
			})
			return false
		}
		return true
	}

	load(storage.ContextTopic, contexts.topic)
	haveScenes := load(storage.ContextScene, contexts.scenes)
	haveMedia := load(storage.ContextMedia, contexts.media)
	haveAudio := load(storage.ContextAudio, contexts.audio)

	if len(missing) > 0 && !allowPlaceholders {
		return nil, &models.ValidationFailure{ProjectID: projectID, Issues: missing}, nil
	}

	if !haveMedia || !haveAudio || !haveScenes {
		discovered, err := ms.discovery.Discover(projectID)
		if err != nil {
			return nil, nil, err
		}
		if !haveMedia {
			contexts.media = mediaFromDiscovery(projectID, discovered)
		}
		if !haveAudio {
			contexts.audio = audioFromDiscovery(projectID, discovered)
		}
		if !haveScenes {
			var renumber map[int]int
			contexts.scenes, renumber = scenesFromDiscovery(projectID, discovered)
			remapSceneNumbers(contexts.media, contexts.audio, renumber)
		}
	}
	if contexts.media.ByScene == nil {
		contexts.media.ByScene = make(map[int][]models.MediaAsset)
	}
	if contexts.topic.Title == "" {
		contexts.topic.Title = contexts.topic.Topic
	}

	return contexts, nil, nil
}

// validateSceneOrdering checks that scenes are 1-based, contiguous and
// non-overlapping.
func validateSceneOrdering(scenes []models.Scene) []models.ValidationIssue {
	var issues []models.ValidationIssue
	if len(scenes) == 0 {
		return []models.ValidationIssue{{Field: "scenes", Reason: "scene context has no scenes"}}
	}
	for i, scene := range scenes {
		if scene.SceneNumber != i+1 {
			issues = append(issues, models.ValidationIssue{
				SceneNumber: scene.SceneNumber,
				Field:       "scenes",
				Reason:      fmt.Sprintf("scene numbering not contiguous: position %d holds scene %d", i+1, scene.SceneNumber),
			})
		}
		if i > 0 && scene.StartTime > 0 && scenes[i-1].EndTime > 0 && scene.StartTime < scenes[i-1].EndTime {
			issues = append(issues, models.ValidationIssue{
				SceneNumber: scene.SceneNumber,
				Field:       "scenes",
				Reason:      fmt.Sprintf("scene %d overlaps scene %d", scene.SceneNumber, scenes[i-1].SceneNumber),
			})
		}
	}
	return issues
}

func hasBlockingIssues(issues []models.ValidationIssue) bool {
	for _, issue := range issues {
		if issue.Field == "scenes" {
			return true
		}
	}
	return false
}

// qualityScore is a 0-100 weighted average of per-scene asset-count
// sufficiency and curated media relevance.
func qualityScore(sceneCount int, sufficiencySum float64, realAssets int, relevanceSum float64) float64 {
	if sceneCount == 0 {
		return 0
	}
	sufficiency := sufficiencySum / float64(sceneCount)
	relevance := 0.0
	if realAssets > 0 {
		relevance = relevanceSum / float64(realAssets)
	}
	score := 100 * (0.6*sufficiency + 0.4*relevance)
	return math.Round(score*10) / 10
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func audioKeyForScene(audio *models.AudioContext, sceneNumber int) string {
	for _, segment := range audio.Segments {
		if segment.SceneNumber == sceneNumber {
			return segment.StorageKey
		}
	}
	return ""
}

func buildPublishing(topic *models.TopicContext, scenes []models.Scene) models.Publishing {
	publishing := models.Publishing{
		Title:       topic.Title,
		Description: topic.Description,
		Tags:        topic.Keywords,
	}
	var chapterLines []string
	cursor := 0.0
	for _, scene := range scenes {
		title := scene.Title
		if title == "" {
			title = fmt.Sprintf("Scene %d", scene.SceneNumber)
		}
		start := scene.StartTime
		if start == 0 && scene.SceneNumber > 1 {
			start = cursor
		}
		cursor += scene.Duration
		publishing.Chapters = append(publishing.Chapters, models.ChapterMarker{
			Title: title,
			Start: start,
		})
		chapterLines = append(chapterLines, fmt.Sprintf("%s %s", utils.FormatChapterTimestamp(start), title))
	}
	// Chapter list appended in the timestamp format video platforms parse.
	if len(chapterLines) > 0 {
		if publishing.Description != "" {
			publishing.Description += "\n\n"
		}
		publishing.Description += strings.Join(chapterLines, "\n")
	}
	return publishing
}

// mediaFromDiscovery reconstructs a media context from discovered
// objects when the explicit document is absent.
func mediaFromDiscovery(projectID string, discovered *models.Discovered) *models.MediaContext {
	media := &models.MediaContext{
		ProjectID: projectID,
		ByScene:   make(map[int][]models.MediaAsset),
	}
	for _, obj := range discovered.Images {
		assetType := models.AssetTypeImage
		switch strings.ToLower(path.Ext(obj.Key)) {
		case ".mp4", ".mov":
			assetType = models.AssetTypeClip
		}
		media.ByScene[obj.SceneNumber] = append(media.ByScene[obj.SceneNumber], models.MediaAsset{
			StorageKey:  obj.Key,
			Size:        obj.Size,
			Source:      "discovery",
			Type:        assetType,
			SceneNumber: obj.SceneNumber,
		})
	}
	return media
}

func audioFromDiscovery(projectID string, discovered *models.Discovered) *models.AudioContext {
	audio := &models.AudioContext{ProjectID: projectID}
	for _, obj := range discovered.AudioFiles {
		audio.Segments = append(audio.Segments, models.AudioSegment{
			SceneNumber: obj.SceneNumber,
			StorageKey:  obj.Key,
		})
	}
	sort.SliceStable(audio.Segments, func(i, j int) bool {
		return audio.Segments[i].SceneNumber < audio.Segments[j].SceneNumber
	})
	return audio
}

// scenesFromDiscovery synthesizes untimed scenes from discovered media
// scene attribution, enabling the timeline's fallback mode. Discovered
// scene numbers may be sparse, so they are renumbered contiguously and
// the mapping is returned for media and audio attribution.
func scenesFromDiscovery(projectID string, discovered *models.Discovered) (*models.SceneContext, map[int]int) {
	numbers := make(map[int]bool)
	for _, obj := range discovered.Images {
		numbers[obj.SceneNumber] = true
	}
	if len(numbers) == 0 {
		return &models.SceneContext{ProjectID: projectID}, nil
	}

	sorted := make([]int, 0, len(numbers))
	for n := range numbers {
		sorted = append(sorted, n)
	}
	sort.Ints(sorted)

	scenes := &models.SceneContext{ProjectID: projectID}
	renumber := make(map[int]int, len(sorted))
	for i, original := range sorted {
		renumber[original] = i + 1
		scenes.Scenes = append(scenes.Scenes, models.Scene{
			SceneNumber: i + 1,
			Title:       fmt.Sprintf("Scene %d", i+1),
			Purpose:     models.PurposeMainContent,
		})
	}
	return scenes, renumber
}

// remapSceneNumbers rewrites media and audio scene attribution after
// discovery-synthesized scenes were renumbered.
func remapSceneNumbers(media *models.MediaContext, audio *models.AudioContext, renumber map[int]int) {
	if len(renumber) == 0 {
		return
	}
	remapped := make(map[int][]models.MediaAsset, len(media.ByScene))
	for original, assets := range media.ByScene {
		target, ok := renumber[original]
		if !ok {
			target = 1
		}
		for i := range assets {
			assets[i].SceneNumber = target
		}
		remapped[target] = append(remapped[target], assets...)
	}
	media.ByScene = remapped

	for i := range audio.Segments {
		if target, ok := renumber[audio.Segments[i].SceneNumber]; ok {
			audio.Segments[i].SceneNumber = target
		} else {
			audio.Segments[i].SceneNumber = 1
		}
	}
}
