// Package media wraps the external ffmpeg binary used to mux cover art into
// video containers.
package media

import "context"

// Muxer attaches a still image to a video as its cover-art stream.
// Implementations shell out to a transcoding tool; tests substitute a fake.
type Muxer interface {
	// AttachCover writes output containing the image as stream 0 (flagged as
	// an attached picture) followed by every stream of video, stream-copied.
	// An existing file at output is overwritten.
	//
	// A *SpawnError is returned when the tool cannot be started at all and a
	// *FFmpegError when it ran and exited non-zero.
	AttachCover(ctx context.Context, video, image, output string) error
}
