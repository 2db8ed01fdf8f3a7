package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hitechparadigm/youtube-video-upload-sub006/models"
)

// RunFFmpeg executes an FFmpeg command. A non-zero exit becomes a
// CompositionError carrying the full command line and captured stderr.
func RunFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return &models.CompositionError{
			Command:  "ffmpeg " + strings.Join(args, " "),
			ExitCode: exitCode,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}
	return nil
}

// ffprobeOutput is the machine-readable shape of ffprobe -print_format json.
type ffprobeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		BitRate    string `json:"bit_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
}

// ProbeAudio inspects an audio file and returns its exact duration and
// format metadata. This is the single source of truth for real audio
// duration; timing is never estimated from script length when a real
// file exists.
func ProbeAudio(ctx context.Context, path string) (*models.AudioProbeResult, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, &models.ProbeError{Path: path, Output: string(output), Err: err}
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, &models.ProbeError{Path: path, Output: string(output), Err: err}
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(probe.Format.Duration), 64)
	if err != nil {
		return nil, &models.ProbeError{
			Path:   path,
			Output: string(output),
			Err:    fmt.Errorf("failed to parse duration %q: %w", probe.Format.Duration, err),
		}
	}

	result := &models.AudioProbeResult{Duration: duration}
	if probe.Format.BitRate != "" {
		result.BitRate, _ = strconv.Atoi(probe.Format.BitRate)
	}
	for _, stream := range probe.Streams {
		if stream.CodecType != "audio" {
			continue
		}
		result.Channels = stream.Channels
		if stream.SampleRate != "" {
			result.SampleRate, _ = strconv.Atoi(stream.SampleRate)
		}
		break
	}

	return result, nil
}

// ProbeAudioWithRetry probes with bounded attempts and linear backoff.
func ProbeAudioWithRetry(ctx context.Context, path string, maxAttempts int) (*models.AudioProbeResult, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := ProbeAudio(ctx, path)
		if err == nil {
			return result, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, lastErr
		case <-time.After(time.Duration(attempt+1) * time.Second):
		}
	}
	return nil, lastErr
}

// ProbeDuration returns the duration of a media file in seconds.
func ProbeDuration(ctx context.Context, path string) (float64, error) {
	result, err := ProbeAudio(ctx, path)
	if err != nil {
		return 0, err
	}
	return result.Duration, nil
}

// scalePadFilter normalizes a stream to the output resolution while
// preserving aspect ratio, padding the remainder.
func scalePadFilter(spec models.OutputSpec) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%d,format=yuv420p",
		spec.Width, spec.Height, spec.Width, spec.Height, spec.FPS)
}

// transitionFilter maps a segment transition to a fade filter that
// keeps the segment's exact duration.
func transitionFilter(transition string, transitionDuration float64) string {
	switch transition {
	case models.TransitionFadeIn:
		return fmt.Sprintf(",fade=t=in:st=0:d=%.2f", transitionDuration)
	case models.TransitionCrossfade:
		// A short fade-in softens the cut without changing timing.
		return fmt.Sprintf(",fade=t=in:st=0:d=%.2f", transitionDuration/2)
	default:
		return ""
	}
}

// ImageSegmentArgs builds the command for turning a still image into a
// fixed-duration video segment.
func ImageSegmentArgs(imagePath, outPath string, duration float64, transition string, transitionDuration float64, spec models.OutputSpec) []string {
	return []string{
		"-loop", "1",
		"-i", imagePath,
		"-t", fmt.Sprintf("%.3f", duration),
		"-vf", scalePadFilter(spec) + transitionFilter(transition, transitionDuration),
		"-c:v", spec.Codec,
		"-preset", "fast",
		"-crf", "22",
		"-an",
		"-y", outPath,
	}
}

// ClipSegmentArgs builds the command for trimming or looping a video
// clip to a fixed-duration segment.
func ClipSegmentArgs(clipPath, outPath string, duration, clipDuration float64, transition string, transitionDuration float64, spec models.OutputSpec) []string {
	args := []string{}
	if clipDuration > 0 && clipDuration < duration {
		loops := int(duration/clipDuration) + 1
		args = append(args, "-stream_loop", strconv.Itoa(loops))
	}
	args = append(args,
		"-i", clipPath,
		"-t", fmt.Sprintf("%.3f", duration),
		"-vf", scalePadFilter(spec)+transitionFilter(transition, transitionDuration),
		"-c:v", spec.Codec,
		"-preset", "fast",
		"-crf", "22",
		"-an",
		"-y", outPath,
	)
	return args
}

// PlaceholderSegmentArgs renders an explicit placeholder segment as a
// labeled dark frame. No fake media bytes are ever synthesized.
func PlaceholderSegmentArgs(outPath string, duration float64, spec models.OutputSpec) []string {
	source := fmt.Sprintf("color=c=0x1a1a2e:s=%s:r=%d", spec.Resolution(), spec.FPS)
	return []string{
		"-f", "lavfi",
		"-i", source,
		"-t", fmt.Sprintf("%.3f", duration),
		"-c:v", spec.Codec,
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		"-an",
		"-y", outPath,
	}
}

// ConcatSegmentsArgs concatenates pre-normalized segments in list
// order without re-encoding.
func ConcatSegmentsArgs(listPath, outPath string) []string {
	return []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y", outPath,
	}
}

// ConcatAudioArgs concatenates narration segments into the master
// track, normalizing sample rate and bitrate.
func ConcatAudioArgs(listPath, outPath string, sampleRate int, bitrate string) []string {
	return []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-ar", strconv.Itoa(sampleRate),
		"-ab", bitrate,
		"-y", outPath,
	}
}

// MuxAudioArgs muxes the master narration onto a silent video stream.
// The audio stream governs the output duration.
func MuxAudioArgs(videoPath, audioPath, outPath string, spec models.OutputSpec) []string {
	return []string{
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", spec.AudioBitrate,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-shortest",
		"-movflags", "+faststart",
		"-y", outPath,
	}
}

// BurnSubtitlesArgs burns an SRT cue list into the video in a second
// composition pass.
func BurnSubtitlesArgs(videoPath, srtPath, outPath string, spec models.OutputSpec) []string {
	return []string{
		"-i", videoPath,
		"-vf", "subtitles=" + escapeFilterPath(srtPath),
		"-c:v", spec.Codec,
		"-preset", "fast",
		"-crf", "22",
		"-c:a", "copy",
		"-y", outPath,
	}
}

// WriteConcatList writes a concat demuxer list file.
func WriteConcatList(paths []string, listPath string) error {
	var lines []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		lines = append(lines, fmt.Sprintf("file '%s'", abs))
	}
	if err := os.WriteFile(listPath, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}
	return nil
}

// escapeFilterPath escapes characters the subtitles filter treats
// specially.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "\\\\")
	path = strings.ReplaceAll(path, ":", "\\:")
	path = strings.ReplaceAll(path, "'", "\\'")
	return path
}
