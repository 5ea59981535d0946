// Package transcode invokes the external ffmpeg/ffprobe binaries. The worker
// treats the tool as an opaque process: it either produces the output file or
// fails with the tool's stderr attached.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/Boptone/boptone-ai-sub008/internal/model"
)

// waitDelay bounds how long a cancelled tool process may linger before it is
// killed, so a job-level timeout never orphans a running ffmpeg.
const waitDelay = 5 * time.Second

// Runner is the transcoding surface the worker drives.
type Runner interface {
	Transcode(ctx context.Context, inputPath, outputPath string, format model.RenditionFormat) error
	ExtractThumbnail(ctx context.Context, inputPath, outputPath string) error
	ProbeHeight(ctx context.Context, inputPath string) (int, error)
}

// FFmpeg runs the ffmpeg and ffprobe binaries found at the configured paths.
type FFmpeg struct {
	FFmpegPath  string
	FFprobePath string
}

// NewFFmpeg returns a runner using the given binary paths, defaulting to the
// binaries on PATH.
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
}

// Transcode produces one rendition of the source file.
func (f *FFmpeg) Transcode(ctx context.Context, inputPath, outputPath string, format model.RenditionFormat) error {
	return f.runFFmpeg(ctx, format.TranscodeArgs(inputPath, outputPath))
}

// ExtractThumbnail grabs a single frame near the start of the source.
func (f *FFmpeg) ExtractThumbnail(ctx context.Context, inputPath, outputPath string) error {
	return f.runFFmpeg(ctx, model.ThumbnailArgs(inputPath, outputPath))
}

func (f *FFmpeg) runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, f.FFmpegPath, args...)
	cmd.WaitDelay = waitDelay

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, stderrTail(stderr.String()))
	}
	return nil
}

// ProbeHeight returns the source's video stream height in pixels.
func (f *FFmpeg) ProbeHeight(ctx context.Context, inputPath string) (int, error) {
	cmd := exec.CommandContext(ctx, f.FFprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=height",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	)
	cmd.WaitDelay = waitDelay

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseHeight(string(output))
}

func parseHeight(output string) (int, error) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return 0, errors.New("empty ffprobe output")
	}
	// Multi-stream sources report one height per line; the first video stream
	// is the one selected above.
	if idx := strings.IndexAny(trimmed, "\r\n"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	height, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parse height %q: %w", trimmed, err)
	}
	if height <= 0 {
		return 0, fmt.Errorf("invalid height %d", height)
	}
	return height, nil
}

// stderrTail keeps the last few lines of tool output, which is where ffmpeg
// reports the actual failure.
func stderrTail(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	const keep = 5
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	return strings.TrimSpace(strings.Join(lines, " "))
}
