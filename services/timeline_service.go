package services

import (
	"fmt"

	"github.com/hitechparadigm/youtube-video-upload-sub006/models"
)

// TimelineService produces the ordered, time-coded segment list that
// drives composition. Timelines are rebuilt on every render and never
// persisted on their own.
type TimelineService struct{}

// NewTimelineService creates a new timeline service
func NewTimelineService() *TimelineService {
	return &TimelineService{}
}

// Generate builds the timeline from manifest scenes and the master
// narration's real duration. Segments are contiguous, start at zero
// and never overlap by construction: every boundary is derived from a
// single running cursor, and the final segment is pinned to the master
// audio duration.
//
// Primary mode uses per-scene timing, dividing each scene's span into
// equal sub-segments, one per matched asset. Fallback mode, for the
// discovery-only path where scenes carry no timing, divides the master
// duration evenly across all media items.
func (ts *TimelineService) Generate(projectID string, scenes []models.ManifestScene, masterAudioDuration float64) (*models.Timeline, error) {
	if len(scenes) == 0 {
		return nil, fmt.Errorf("cannot generate timeline: no scenes")
	}
	if masterAudioDuration <= 0 {
		return nil, fmt.Errorf("cannot generate timeline: master audio duration is %.3f", masterAudioDuration)
	}
	for _, scene := range scenes {
		if len(scene.Media) == 0 {
			return nil, fmt.Errorf("cannot generate timeline: scene %d has no media", scene.SceneNumber)
		}
	}

	if hasSceneTiming(scenes) {
		return ts.generateFromSceneTiming(projectID, scenes, masterAudioDuration), nil
	}
	return ts.generateEvenSplit(projectID, scenes, masterAudioDuration), nil
}

// generateFromSceneTiming scales scene durations onto the master audio
// duration so segment boundaries always land exactly on it.
func (ts *TimelineService) generateFromSceneTiming(projectID string, scenes []models.ManifestScene, masterDuration float64) *models.Timeline {
	scriptTotal := 0.0
	for _, scene := range scenes {
		scriptTotal += scene.Duration
	}
	scale := masterDuration / scriptTotal

	timeline := &models.Timeline{ProjectID: projectID, TotalDuration: masterDuration}

	elapsed := 0.0 // scaled scene durations consumed so far
	first := true
	for _, scene := range scenes {
		sceneDuration := scene.Duration * scale
		sceneStart := elapsed
		elapsed += sceneDuration

		n := len(scene.Media)
		for i, asset := range scene.Media {
			start := sceneStart + sceneDuration*float64(i)/float64(n)
			end := sceneStart + sceneDuration*float64(i+1)/float64(n)
			timeline.Segments = append(timeline.Segments, models.Segment{
				SceneNumber: scene.SceneNumber,
				SourceMedia: asset,
				StartTime:   start,
				EndTime:     end,
				Duration:    end - start,
				Transition:  transitionFor(first),
			})
			first = false
		}
	}

	pinFinalSegment(timeline, masterDuration)
	return timeline
}

// generateEvenSplit divides the master duration evenly across all
// media items, one segment per item.
func (ts *TimelineService) generateEvenSplit(projectID string, scenes []models.ManifestScene, masterDuration float64) *models.Timeline {
	total := 0
	for _, scene := range scenes {
		total += len(scene.Media)
	}

	timeline := &models.Timeline{ProjectID: projectID, TotalDuration: masterDuration}

	index := 0
	for _, scene := range scenes {
		for _, asset := range scene.Media {
			start := masterDuration * float64(index) / float64(total)
			end := masterDuration * float64(index+1) / float64(total)
			timeline.Segments = append(timeline.Segments, models.Segment{
				SceneNumber: scene.SceneNumber,
				SourceMedia: asset,
				StartTime:   start,
				EndTime:     end,
				Duration:    end - start,
				Transition:  transitionFor(index == 0),
			})
			index++
		}
	}

	pinFinalSegment(timeline, masterDuration)
	return timeline
}

// pinFinalSegment absorbs floating point residue into the last
// segment so the timeline ends exactly at the master audio duration.
func pinFinalSegment(timeline *models.Timeline, masterDuration float64) {
	if len(timeline.Segments) == 0 {
		return
	}
	last := &timeline.Segments[len(timeline.Segments)-1]
	last.EndTime = masterDuration
	last.Duration = last.EndTime - last.StartTime
}

func transitionFor(first bool) string {
	if first {
		return models.TransitionFadeIn
	}
	return models.TransitionCrossfade
}

// hasSceneTiming reports whether per-scene timing exists in the scene
// context.
func hasSceneTiming(scenes []models.ManifestScene) bool {
	for _, scene := range scenes {
		if scene.Duration <= 0 {
			return false
		}
	}
	return true
}

// SceneBounds returns the start and end of a scene's span on the
// timeline, derived from its first and last segments.
func SceneBounds(timeline *models.Timeline, sceneNumber int) (start, end float64, ok bool) {
	found := false
	for _, segment := range timeline.Segments {
		if segment.SceneNumber != sceneNumber {
			continue
		}
		if !found {
			start = segment.StartTime
			found = true
		}
		end = segment.EndTime
	}
	return start, end, found
}
