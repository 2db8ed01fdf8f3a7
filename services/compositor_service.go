package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hitechparadigm/youtube-video-upload-sub006/models"
	"github.com/hitechparadigm/youtube-video-upload-sub006/storage"
	"github.com/hitechparadigm/youtube-video-upload-sub006/utils"
)

// CompositorService drives the media-processing subprocess: per-segment
// scale and pad, ordered concatenation, narration mux, and a separate
// subtitle burn pass. When the subprocess is unavailable or fails, it
// produces a structured render-instructions bundle instead of a corrupt
// or empty file.
type CompositorService struct {
	store              *storage.ContextStore
	media              *MediaService
	subtitles          *SubtitleService
	spec               models.OutputSpec
	transitionDuration float64
	maxConcurrent      int
	subprocessTimeout  time.Duration

	// lookPath is swapped in tests to simulate a missing subprocess.
	lookPath func(string) (string, error)
}

// NewCompositorService creates a new compositor service
func NewCompositorService(store *storage.ContextStore, media *MediaService, subtitles *SubtitleService, spec models.OutputSpec, transitionDuration float64, maxConcurrent int, subprocessTimeout time.Duration) *CompositorService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &CompositorService{
		store:              store,
		media:              media,
		subtitles:          subtitles,
		spec:               spec,
		transitionDuration: transitionDuration,
		maxConcurrent:      maxConcurrent,
		subprocessTimeout:  subprocessTimeout,
		lookPath:           exec.LookPath,
	}
}

// Assemble renders the timeline into outputPath with the master
// narration muxed in and subtitles burned over. Composition errors are
// fatal for the attempt and are converted into a fallback bundle; the
// component never retries the subprocess on its own.
func (cs *CompositorService) Assemble(ctx context.Context, timeline *models.Timeline, cues []models.SubtitleCue, masterAudioPath string, dirs *utils.WorkDirs, outputPath string) (*models.VideoOutput, error) {
	if len(timeline.Segments) == 0 {
		return nil, fmt.Errorf("cannot assemble: timeline has no segments")
	}

	if _, err := cs.lookPath("ffmpeg"); err != nil {
		log.Printf("[Project %s] ffmpeg unavailable, producing render-instructions bundle", timeline.ProjectID)
		return cs.writeFallbackBundle(timeline, cues, masterAudioPath, outputPath, "media-processing subprocess unavailable")
	}

	output, err := cs.render(ctx, timeline, cues, masterAudioPath, dirs, outputPath)
	if err != nil {
		var compErr *models.CompositionError
		if errors.As(err, &compErr) {
			log.Printf("[Project %s] composition failed (exit %d): %s", timeline.ProjectID, compErr.ExitCode, compErr.Command)
			if compErr.Stderr != "" {
				log.Printf("[Project %s] ffmpeg stderr: %s", timeline.ProjectID, lastLines(compErr.Stderr, 5))
			}
			return cs.writeFallbackBundle(timeline, cues, masterAudioPath, outputPath,
				fmt.Sprintf("composition failed with exit code %d", compErr.ExitCode))
		}
		return nil, err
	}
	return output, nil
}

// render runs the full composition pipeline against real media.
func (cs *CompositorService) render(ctx context.Context, timeline *models.Timeline, cues []models.SubtitleCue, masterAudioPath string, dirs *utils.WorkDirs, outputPath string) (*models.VideoOutput, error) {
	localPaths, err := cs.media.Materialize(ctx, timeline.ProjectID, timeline, dirs.Input)
	if err != nil {
		return nil, err
	}

	// Per-segment preparation runs concurrently; segments are
	// independent until concatenation, which preserves timeline order.
	segmentPaths := make([]string, len(timeline.Segments))
	errs := make([]error, len(timeline.Segments))
	sem := make(chan struct{}, cs.maxConcurrent)
	var wg sync.WaitGroup
	for i, segment := range timeline.Segments {
		wg.Add(1)
		go func(index int, segment models.Segment) {
			defer wg.Done()
			sem <- struct{}{}        // Acquire semaphore
			defer func() { <-sem }() // Release semaphore

			outPath := filepath.Join(dirs.Temp, fmt.Sprintf("segment_%03d.mp4", index))
			if err := cs.prepareSegment(ctx, segment, localPaths, outPath); err != nil {
				errs[index] = err
			} else {
				segmentPaths[index] = outPath
			}
		}(i, segment)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("failed to prepare segment %d: %w", i, err)
		}
	}

	// Ordered concatenation into one silent stream.
	listPath := filepath.Join(dirs.Temp, "segments_concat.txt")
	if err := utils.WriteConcatList(segmentPaths, listPath); err != nil {
		return nil, err
	}
	silentPath := filepath.Join(dirs.Temp, "silent_video.mp4")
	if err := cs.runStep(ctx, utils.ConcatSegmentsArgs(listPath, silentPath)); err != nil {
		return nil, err
	}

	// Mux the master narration; audio governs output duration.
	muxedPath := filepath.Join(dirs.Temp, "muxed_video.mp4")
	if err := cs.runStep(ctx, utils.MuxAudioArgs(silentPath, masterAudioPath, muxedPath, cs.spec)); err != nil {
		return nil, err
	}

	// Subtitle burn is a separate pass so its failure never forces the
	// scaling and concatenation work to be redone.
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	srtPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".srt"
	if len(cues) > 0 {
		if err := cs.subtitles.WriteSRT(cues, srtPath); err != nil {
			return nil, err
		}
		if err := cs.runStep(ctx, utils.BurnSubtitlesArgs(muxedPath, srtPath, outputPath, cs.spec)); err != nil {
			return nil, err
		}
	} else {
		if err := utils.CopyFile(muxedPath, outputPath); err != nil {
			return nil, fmt.Errorf("failed to place output: %w", err)
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, cs.subprocessTimeout)
	defer cancel()
	duration, err := utils.ProbeDuration(probeCtx, outputPath)
	if err != nil {
		duration = timeline.TotalDuration
	}
	size, err := utils.GetFileSize(outputPath)
	if err != nil {
		return nil, fmt.Errorf("rendered file missing: %w", err)
	}

	output := &models.VideoOutput{
		Path:       outputPath,
		Duration:   duration,
		Resolution: cs.spec.Resolution(),
		Codec:      cs.spec.Codec,
		FileSize:   size,
	}
	if err := writeOutputMetadata(outputPath, output); err != nil {
		log.Printf("[Project %s] warning: failed to write output metadata: %v", timeline.ProjectID, err)
	}
	return output, nil
}

// prepareSegment scales and pads one timeline segment to the output
// resolution, preserving aspect ratio.
func (cs *CompositorService) prepareSegment(ctx context.Context, segment models.Segment, localPaths map[string]string, outPath string) error {
	asset := segment.SourceMedia

	if asset.Type == models.AssetTypePlaceholder {
		return cs.runStep(ctx, utils.PlaceholderSegmentArgs(outPath, segment.Duration, cs.spec))
	}

	sourcePath, ok := localPaths[asset.StorageKey]
	if !ok {
		return fmt.Errorf("no local media for %s", asset.StorageKey)
	}

	if asset.Type == models.AssetTypeClip {
		probeCtx, cancel := context.WithTimeout(ctx, cs.subprocessTimeout)
		clipDuration, err := utils.ProbeDuration(probeCtx, sourcePath)
		cancel()
		if err != nil {
			// Assume the clip covers the segment; trim handles excess.
			clipDuration = segment.Duration
		}
		return cs.runStep(ctx, utils.ClipSegmentArgs(sourcePath, outPath, segment.Duration, clipDuration, segment.Transition, cs.transitionDuration, cs.spec))
	}

	return cs.runStep(ctx, utils.ImageSegmentArgs(sourcePath, outPath, segment.Duration, segment.Transition, cs.transitionDuration, cs.spec))
}

func (cs *CompositorService) runStep(ctx context.Context, args []string) error {
	stepCtx, cancel := context.WithTimeout(ctx, cs.subprocessTimeout)
	defer cancel()
	return utils.RunFFmpeg(stepCtx, args)
}

// renderInstructions is the degraded-mode artifact: a well-formed
// bundle describing exactly how to finish the render, never opaque
// bytes masquerading as a playable video.
type renderInstructions struct {
	ProjectID   string               `json:"project_id"`
	GeneratedAt time.Time            `json:"generated_at"`
	Reason      string               `json:"reason"`
	Fallback    bool                 `json:"fallback"`
	Resolution  string               `json:"resolution"`
	MasterAudio string               `json:"master_audio"`
	Timeline    *models.Timeline     `json:"timeline"`
	Subtitles   []models.SubtitleCue `json:"subtitles,omitempty"`
	Commands    [][]string           `json:"ffmpeg_commands"`
}

func (cs *CompositorService) writeFallbackBundle(timeline *models.Timeline, cues []models.SubtitleCue, masterAudioPath, outputPath, reason string) (*models.VideoOutput, error) {
	bundlePath := filepath.Join(filepath.Dir(outputPath), "render-instructions.json")
	if err := os.MkdirAll(filepath.Dir(bundlePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	bundle := renderInstructions{
		ProjectID:   timeline.ProjectID,
		GeneratedAt: time.Now().UTC(),
		Reason:      reason,
		Fallback:    true,
		Resolution:  cs.spec.Resolution(),
		MasterAudio: masterAudioPath,
		Timeline:    timeline,
		Subtitles:   cues,
		Commands:    cs.planCommands(timeline, cues, masterAudioPath, outputPath),
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode render instructions: %w", err)
	}
	if err := os.WriteFile(bundlePath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write render instructions: %w", err)
	}

	output := &models.VideoOutput{
		Path:       bundlePath,
		Duration:   timeline.TotalDuration,
		Resolution: cs.spec.Resolution(),
		Codec:      "none",
		FileSize:   int64(len(data)),
		Fallback:   true,
	}
	if err := writeOutputMetadata(bundlePath, output); err != nil {
		log.Printf("[Project %s] warning: failed to write output metadata: %v", timeline.ProjectID, err)
	}
	return output, nil
}

// planCommands lists the exact subprocess argument vectors a later run
// would execute, in order.
func (cs *CompositorService) planCommands(timeline *models.Timeline, cues []models.SubtitleCue, masterAudioPath, outputPath string) [][]string {
	var commands [][]string
	segmentPaths := make([]string, len(timeline.Segments))
	for i, segment := range timeline.Segments {
		segPath := fmt.Sprintf("temp/segment_%03d.mp4", i)
		segmentPaths[i] = segPath
		asset := segment.SourceMedia

		var args []string
		switch {
		case asset.Type == models.AssetTypePlaceholder:
			args = utils.PlaceholderSegmentArgs(segPath, segment.Duration, cs.spec)
		case asset.Type == models.AssetTypeClip:
			args = utils.ClipSegmentArgs(cs.resolveForPlan(timeline.ProjectID, asset.StorageKey), segPath, segment.Duration, segment.Duration, segment.Transition, cs.transitionDuration, cs.spec)
		default:
			args = utils.ImageSegmentArgs(cs.resolveForPlan(timeline.ProjectID, asset.StorageKey), segPath, segment.Duration, segment.Transition, cs.transitionDuration, cs.spec)
		}
		commands = append(commands, append([]string{"ffmpeg"}, args...))
	}

	commands = append(commands, append([]string{"ffmpeg"}, utils.ConcatSegmentsArgs("temp/segments_concat.txt", "temp/silent_video.mp4")...))
	commands = append(commands, append([]string{"ffmpeg"}, utils.MuxAudioArgs("temp/silent_video.mp4", masterAudioPath, "temp/muxed_video.mp4", cs.spec)...))
	if len(cues) > 0 {
		srtPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".srt"
		commands = append(commands, append([]string{"ffmpeg"}, utils.BurnSubtitlesArgs("temp/muxed_video.mp4", srtPath, outputPath, cs.spec)...))
	}
	return commands
}

func (cs *CompositorService) resolveForPlan(projectID, key string) string {
	if storage.IsRemoteKey(key) {
		return key
	}
	return cs.store.ResolveKey(projectID, key)
}

func writeOutputMetadata(outputPath string, output *models.VideoOutput) error {
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath+".meta.json", data, 0644)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
