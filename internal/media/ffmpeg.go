package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Static errors for media operations.
var (
	// ErrEmptyPath is returned when one of the mux paths is blank.
	ErrEmptyPath = errors.New("video, image and output paths must not be empty")
	// ErrFFmpegVersion is returned when the version probe fails.
	ErrFFmpegVersion = errors.New("ffmpeg version probe failed")
)

// Compile-time check that FFmpegMuxer implements Muxer.
var _ Muxer = (*FFmpegMuxer)(nil)

// FFmpegMuxer implements Muxer using the ffmpeg CLI.
type FFmpegMuxer struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
}

// NewFFmpegMuxer creates a new FFmpegMuxer.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegMuxer(ffmpegPath string) *FFmpegMuxer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegMuxer{ffmpegPath: ffmpegPath}
}

// Path returns the configured ffmpeg binary.
func (m *FFmpegMuxer) Path() string {
	return m.ffmpegPath
}

// CoverArgs returns the ffmpeg argument list that muxes image into video as
// an attached picture. The order is significant to ffmpeg's grammar: the
// trailing -y applies to the output that precedes it.
func CoverArgs(video, image, output string) []string {
	return []string{
		"-i", video, // Input 0: the video
		"-i", image, // Input 1: the cover image
		"-map", "1", // Output stream 0 is the image
		"-map", "0", // Followed by every stream of the video
		"-c", "copy", // Stream copy, no re-encode
		"-disposition:0", "attached_pic", // Flag stream 0 as cover art
		output,
		"-y", // Overwrite output file without asking
	}
}

// AttachCover muxes image into video and writes the result to output.
func (m *FFmpegMuxer) AttachCover(ctx context.Context, video, image, output string) error {
	if video == "" || image == "" || output == "" {
		return ErrEmptyPath
	}
	return m.runFFmpeg(ctx, CoverArgs(video, image, output))
}

// Version returns the first line of `ffmpeg -version`.
func (m *FFmpegMuxer) Version(ctx context.Context) (string, error) {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, m.ffmpegPath, "-version")
	hideConsole(cmd)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrFFmpegVersion, err)
	}

	line, _, _ := strings.Cut(stdout.String(), "\n")
	return strings.TrimSpace(line), nil
}

// runFFmpeg executes ffmpeg with the given arguments. A process that never
// started yields *SpawnError; a non-zero exit yields *FFmpegError carrying
// the captured stderr.
func (m *FFmpegMuxer) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, m.ffmpegPath, args...)
	hideConsole(cmd)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	// Check if context was cancelled
	if ctx.Err() != nil {
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    fmt.Errorf("ffmpeg cancelled: %w", ctx.Err()),
		}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return &SpawnError{Path: m.ffmpegPath, Err: err}
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// SpawnError is returned when the ffmpeg process could not be started,
// typically because the binary is missing from PATH.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
