package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hitechparadigm/youtube-video-upload-sub006/models"
	"github.com/hitechparadigm/youtube-video-upload-sub006/storage"
	"github.com/hitechparadigm/youtube-video-upload-sub006/utils"
)

// MasterAudioKey is the fixed storage key of the concatenated
// narration track within a project's namespace.
const MasterAudioKey = "audio/master-narration.mp3"

// NarrationService concatenates per-scene narration segments into the
// single master track and measures its real duration.
type NarrationService struct {
	store        *storage.ContextStore
	sampleRate   int
	audioBitrate string
	probeRetries int
	timeout      time.Duration
}

// NewNarrationService creates a new narration service
func NewNarrationService(store *storage.ContextStore, sampleRate int, audioBitrate string, probeRetries int, timeout time.Duration) *NarrationService {
	return &NarrationService{
		store:        store,
		sampleRate:   sampleRate,
		audioBitrate: audioBitrate,
		probeRetries: probeRetries,
		timeout:      timeout,
	}
}

// AssembleMaster builds the master narration track from the per-scene
// segments in the audio context and returns its probed metadata. The
// measured duration, never an estimate, becomes the authoritative
// total for downstream timing.
func (ns *NarrationService) AssembleMaster(ctx context.Context, projectID string, audioCtx *models.AudioContext) (*models.MasterAudio, error) {
	if len(audioCtx.Segments) == 0 {
		return nil, fmt.Errorf("no narration segments for project %s", projectID)
	}

	segments := make([]models.AudioSegment, len(audioCtx.Segments))
	copy(segments, audioCtx.Segments)
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].SceneNumber < segments[j].SceneNumber
	})

	paths := make([]string, 0, len(segments))
	for _, segment := range segments {
		p := ns.store.ResolveKey(projectID, segment.StorageKey)
		if !utils.FileExists(p) {
			return nil, fmt.Errorf("narration segment missing for scene %d: %s", segment.SceneNumber, segment.StorageKey)
		}
		paths = append(paths, p)
	}

	masterPath := ns.store.ResolveKey(projectID, MasterAudioKey)
	if err := os.MkdirAll(filepath.Dir(masterPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audio directory: %w", err)
	}

	listPath := masterPath + ".concat.txt"
	if err := utils.WriteConcatList(paths, listPath); err != nil {
		return nil, err
	}
	defer os.Remove(listPath)

	runCtx, cancel := context.WithTimeout(ctx, ns.timeout)
	defer cancel()
	if err := utils.RunFFmpeg(runCtx, utils.ConcatAudioArgs(listPath, masterPath, ns.sampleRate, ns.audioBitrate)); err != nil {
		return nil, fmt.Errorf("failed to assemble master narration: %w", err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, ns.timeout)
	defer cancel()
	probed, err := utils.ProbeAudioWithRetry(probeCtx, masterPath, ns.probeRetries)
	if err != nil {
		return nil, err
	}

	log.Printf("[Project %s] master narration assembled: %d segments, %.2fs", projectID, len(paths), probed.Duration)
	return &models.MasterAudio{
		StorageKey: MasterAudioKey,
		Duration:   probed.Duration,
		SampleRate: probed.SampleRate,
		Channels:   probed.Channels,
	}, nil
}
