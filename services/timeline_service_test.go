package services

import (
	"fmt"
	"math"
	"testing"

	"github.com/hitechparadigm/youtube-video-upload-sub006/models"
)

func timelineScenes(durations []float64, assetsPerScene int) []models.ManifestScene {
	scenes := make([]models.ManifestScene, len(durations))
	for i, d := range durations {
		scene := models.ManifestScene{
			Scene: models.Scene{SceneNumber: i + 1, Duration: d},
		}
		for k := 0; k < assetsPerScene; k++ {
			scene.Media = append(scene.Media, models.MediaAsset{
				StorageKey: fmt.Sprintf("media/scene-%d/img_%d.jpg", i+1, k+1),
				Type:       models.AssetTypeImage,
			})
		}
		scenes[i] = scene
	}
	return scenes
}

// checkContiguous verifies the structural invariants every timeline
// must hold: starts at zero, no gaps or overlaps, ends exactly on the
// master audio duration.
func checkContiguous(t *testing.T, timeline *models.Timeline, masterDuration float64) {
	t.Helper()
	if len(timeline.Segments) == 0 {
		t.Fatal("Timeline has no segments")
	}
	if timeline.Segments[0].StartTime != 0 {
		t.Errorf("First segment starts at %.4f, expected 0", timeline.Segments[0].StartTime)
	}
	for i := 1; i < len(timeline.Segments); i++ {
		prev, cur := timeline.Segments[i-1], timeline.Segments[i]
		if math.Abs(cur.StartTime-prev.EndTime) > 1e-9 {
			t.Errorf("Segment %d starts at %.6f but previous ends at %.6f", i, cur.StartTime, prev.EndTime)
		}
	}
	last := timeline.Segments[len(timeline.Segments)-1]
	if last.EndTime != masterDuration {
		t.Errorf("Last segment ends at %.6f, expected exactly %.6f", last.EndTime, masterDuration)
	}
	if timeline.TotalDuration != masterDuration {
		t.Errorf("TotalDuration is %.6f, expected %.6f", timeline.TotalDuration, masterDuration)
	}
}

func TestGenerateFromSceneTiming(t *testing.T) {
	ts := NewTimelineService()
	scenes := timelineScenes([]float64{15, 60, 45}, 2)

	timeline, err := ts.Generate("proj-1", scenes, 120)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	checkContiguous(t, timeline, 120)

	if len(timeline.Segments) != 6 {
		t.Fatalf("Expected 6 segments (2 per scene), got %d", len(timeline.Segments))
	}

	// Script total equals master duration here, so scene spans match
	// the script durations and each scene splits evenly.
	if d := timeline.Segments[0].Duration; math.Abs(d-7.5) > 1e-9 {
		t.Errorf("Scene 1 sub-segment duration %.4f, expected 7.5", d)
	}
	start, end, ok := SceneBounds(timeline, 2)
	if !ok {
		t.Fatal("Scene 2 not found on timeline")
	}
	if math.Abs(start-15) > 1e-9 || math.Abs(end-75) > 1e-9 {
		t.Errorf("Scene 2 spans [%.4f, %.4f], expected [15, 75]", start, end)
	}
}

func TestGenerateScalesToMasterDuration(t *testing.T) {
	ts := NewTimelineService()
	// Script says 100s but the measured narration is 90s.
	scenes := timelineScenes([]float64{40, 60}, 1)

	timeline, err := ts.Generate("proj-1", scenes, 90)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	checkContiguous(t, timeline, 90)
	if d := timeline.Segments[0].Duration; math.Abs(d-36) > 1e-9 {
		t.Errorf("Scene 1 segment duration %.4f, expected 36 (40 scaled by 0.9)", d)
	}
}

func TestGenerateEvenSplitWithoutTiming(t *testing.T) {
	ts := NewTimelineService()
	scenes := timelineScenes([]float64{0, 0, 0}, 1)

	timeline, err := ts.Generate("proj-1", scenes, 60)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	checkContiguous(t, timeline, 60)
	for i, segment := range timeline.Segments {
		if math.Abs(segment.Duration-20) > 1e-9 {
			t.Errorf("Segment %d duration %.4f, expected 20", i, segment.Duration)
		}
	}
}

func TestGenerateTransitions(t *testing.T) {
	ts := NewTimelineService()
	scenes := timelineScenes([]float64{30, 30}, 2)

	timeline, err := ts.Generate("proj-1", scenes, 60)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if timeline.Segments[0].Transition != models.TransitionFadeIn {
		t.Errorf("First segment transition %q, expected %q", timeline.Segments[0].Transition, models.TransitionFadeIn)
	}
	for i := 1; i < len(timeline.Segments); i++ {
		if timeline.Segments[i].Transition != models.TransitionCrossfade {
			t.Errorf("Segment %d transition %q, expected %q", i, timeline.Segments[i].Transition, models.TransitionCrossfade)
		}
	}
}

func TestGenerateErrors(t *testing.T) {
	ts := NewTimelineService()

	if _, err := ts.Generate("proj-1", nil, 60); err == nil {
		t.Error("Expected error for empty scenes")
	}

	scenes := timelineScenes([]float64{30}, 1)
	if _, err := ts.Generate("proj-1", scenes, 0); err == nil {
		t.Error("Expected error for zero master duration")
	}

	noMedia := []models.ManifestScene{{Scene: models.Scene{SceneNumber: 1, Duration: 30}}}
	if _, err := ts.Generate("proj-1", noMedia, 60); err == nil {
		t.Error("Expected error for scene without media")
	}
}

func TestGenerateResidueAbsorbedByFinalSegment(t *testing.T) {
	ts := NewTimelineService()
	// Durations chosen so float accumulation leaves residue.
	scenes := timelineScenes([]float64{10.1, 20.3, 33.3}, 3)

	timeline, err := ts.Generate("proj-1", scenes, 63.7)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	checkContiguous(t, timeline, 63.7)
}
