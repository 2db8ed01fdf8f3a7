package utils

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hitechparadigm/youtube-video-upload-sub006/models"
)

// WorkDirs are the local working directories owned exclusively by one
// in-flight render attempt.
type WorkDirs struct {
	Root   string
	Input  string
	Output string
	Temp   string
}

// CreateWorkDirs creates the input/output/temp working directories for
// a render attempt.
func CreateWorkDirs(baseDir, attemptID string) (*WorkDirs, error) {
	root := filepath.Join(baseDir, attemptID)
	dirs := &WorkDirs{
		Root:   root,
		Input:  filepath.Join(root, "input"),
		Output: filepath.Join(root, "output"),
		Temp:   filepath.Join(root, "temp"),
	}

	for _, dir := range []string{dirs.Input, dirs.Output, dirs.Temp} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return dirs, nil
}

// Cleanup removes the attempt's working tree. Failures are reported as
// CleanupError: logged by callers, never propagated to the API client.
func (w *WorkDirs) Cleanup() {
	if err := os.RemoveAll(w.Root); err != nil {
		cleanupErr := &models.CleanupError{Dir: w.Root, Err: err}
		log.Printf("warning: %v", cleanupErr)
	}
}

// DownloadFile downloads a remote object to destPath.
func DownloadFile(ctx context.Context, client *http.Client, url, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// CopyFile copies a local file to destPath.
func CopyFile(srcPath, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// ScheduleCleanup schedules removal of a directory after a delay.
func ScheduleCleanup(dir string, delay time.Duration) {
	go func() {
		time.Sleep(delay)
		_ = os.RemoveAll(dir)
	}()
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// GetFileSize returns file size in bytes
func GetFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
