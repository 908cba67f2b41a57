package thumbnail

import "errors"

// Static errors for the embed operation. Every failure returned by Embedder
// matches exactly one of these with errors.Is.
var (
	// ErrMissingImageSource is returned when neither an image path nor image data was given.
	ErrMissingImageSource = errors.New("No image source provided (file path or captured data).")
	// ErrInvalidSaveMode is returned for a save mode other than "overwrite" or "new".
	ErrInvalidSaveMode = errors.New("invalid save mode")
	// ErrDecode is returned when inline image data is not valid base64.
	ErrDecode = errors.New("failed to decode image data")
	// ErrTempWrite is returned when the decoded image cannot be written to the temp directory.
	ErrTempWrite = errors.New("failed to write temporary image")
	// ErrSpawn is returned when ffmpeg could not be started.
	ErrSpawn = errors.New("Failed to execute ffmpeg")
	// ErrMux is returned when ffmpeg ran and exited non-zero.
	ErrMux = errors.New("ffmpeg exited with an error")
	// ErrDeleteOriginal is returned when the original could not be removed before the swap.
	ErrDeleteOriginal = errors.New("failed to delete original file")
	// ErrRename is returned when the staging file could not be moved over the original.
	ErrRename = errors.New("failed to rename staging file")
)

// MuxError carries ffmpeg's diagnostic output verbatim. It matches ErrMux
// and unwraps to the underlying muxer error.
type MuxError struct {
	Stderr string
	Err    error
}

func (e *MuxError) Error() string {
	return "FFmpeg Error:\n" + e.Stderr
}

func (e *MuxError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMux}
	}
	return []error{ErrMux, e.Err}
}
