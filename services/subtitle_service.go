package services

import (
	"fmt"
	"os"
	"strings"

	"github.com/hitechparadigm/youtube-video-upload-sub006/models"
	"github.com/hitechparadigm/youtube-video-upload-sub006/utils"
)

// SubtitleService emits caption cues aligned to timeline scene
// boundaries: one cue per scene, not per sub-segment.
type SubtitleService struct{}

// NewSubtitleService creates a new subtitle service
func NewSubtitleService() *SubtitleService {
	return &SubtitleService{}
}

// Generate returns one cue per scene spanning that scene's full range
// on the timeline, carrying its narration script. Indices are 1-based
// and sequential; cues are sorted and non-overlapping by construction
// since scene bounds do not overlap.
func (ss *SubtitleService) Generate(timeline *models.Timeline, scenes []models.ManifestScene) []models.SubtitleCue {
	var cues []models.SubtitleCue
	for _, scene := range scenes {
		text := strings.TrimSpace(scene.Narration)
		if text == "" {
			continue
		}
		start, end, ok := SceneBounds(timeline, scene.SceneNumber)
		if !ok || end <= start {
			continue
		}
		cues = append(cues, models.SubtitleCue{
			Index: len(cues) + 1,
			Start: start,
			End:   end,
			Text:  text,
		})
	}
	return cues
}

// WriteSRT writes the cue list as an SRT file.
func (ss *SubtitleService) WriteSRT(cues []models.SubtitleCue, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create SRT file: %w", err)
	}
	defer file.Close()

	for _, cue := range cues {
		_, err := fmt.Fprintf(file, "%d\n%s --> %s\n%s\n\n",
			cue.Index,
			utils.FormatSRTTimestamp(cue.Start),
			utils.FormatSRTTimestamp(cue.End),
			cue.Text,
		)
		if err != nil {
			return fmt.Errorf("failed to write SRT cue %d: %w", cue.Index, err)
		}
	}
	return nil
}
