package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/hitechparadigm/youtube-video-upload-sub006/models"
	"github.com/hitechparadigm/youtube-video-upload-sub006/storage"
	"github.com/hitechparadigm/youtube-video-upload-sub006/utils"
)

// MediaService materializes timeline assets into local files: local
// storage keys are resolved in place, remote keys are downloaded with
// bounded retry and backoff.
type MediaService struct {
	store         *storage.ContextStore
	httpClient    *http.Client
	maxConcurrent int
	maxRetries    int
}

// NewMediaService creates a new media service
func NewMediaService(store *storage.ContextStore, downloadTimeout time.Duration, maxConcurrent, maxRetries int) *MediaService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &MediaService{
		store: store,
		httpClient: &http.Client{
			Timeout: downloadTimeout,
		},
		maxConcurrent: maxConcurrent,
		maxRetries:    maxRetries,
	}
}

// Materialize resolves every unique non-placeholder asset in the
// timeline to a local path. Fetches run concurrently across scenes
// since they are independent; ordering is restored later by the
// compositor, which walks the timeline in segment order.
func (ms *MediaService) Materialize(ctx context.Context, projectID string, timeline *models.Timeline, destDir string) (map[string]string, error) {
	keys := make([]string, 0, len(timeline.Segments))
	seen := make(map[string]bool)
	for _, segment := range timeline.Segments {
		key := segment.SourceMedia.StorageKey
		if segment.SourceMedia.Type == models.AssetTypePlaceholder || key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}

	localPaths := make([]string, len(keys))
	errs := make([]error, len(keys))

	sem := make(chan struct{}, ms.maxConcurrent)
	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(index int, key string) {
			defer wg.Done()
			sem <- struct{}{}        // Acquire semaphore
			defer func() { <-sem }() // Release semaphore

			localPath, err := ms.materializeOne(ctx, projectID, key, destDir, index)
			if err != nil {
				errs[index] = err
			} else {
				localPaths[index] = localPath
			}
		}(i, key)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	resolved := make(map[string]string, len(keys))
	for i, key := range keys {
		resolved[key] = localPaths[i]
	}
	return resolved, nil
}

func (ms *MediaService) materializeOne(ctx context.Context, projectID, key, destDir string, index int) (string, error) {
	if storage.IsRemoteKey(key) {
		return ms.fetchRemote(ctx, projectID, key, destDir, index)
	}

	localPath := ms.store.ResolveKey(projectID, key)
	if !utils.FileExists(localPath) {
		return "", &models.DownloadError{
			Key:      key,
			Attempts: 1,
			Err:      fmt.Errorf("object not found in project namespace"),
		}
	}
	return localPath, nil
}

// fetchRemote downloads a remote asset with bounded retries and
// exponential backoff.
func (ms *MediaService) fetchRemote(ctx context.Context, projectID, key, destDir string, index int) (string, error) {
	destPath := filepath.Join(destDir, fmt.Sprintf("asset_%03d%s", index, path.Ext(key)))

	var lastErr error
	for attempt := 0; attempt < ms.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return "", &models.DownloadError{Key: key, Attempts: attempt, Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		if err := utils.DownloadFile(ctx, ms.httpClient, key, destPath); err != nil {
			lastErr = err
			log.Printf("[Project %s] download attempt %d failed for %s: %v", projectID, attempt+1, key, err)
			continue
		}
		return destPath, nil
	}

	return "", &models.DownloadError{Key: key, Attempts: ms.maxRetries, Err: lastErr}
}
