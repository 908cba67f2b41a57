// Package thumbnail embeds a still image into a video file as its cover art.
//
// The heavy lifting is delegated to a media.Muxer; this package owns the
// orchestration around it: resolving the image source, choosing where the
// muxed file is written, cleaning up temporary files and replacing the
// original when asked to.
package thumbnail

import "fmt"

// ImageSource identifies where the cover image comes from. It is either a
// FilePath or an InlineData; a nil ImageSource means none was provided.
type ImageSource interface {
	imageSource()
}

// FilePath is an image file already on disk.
type FilePath string

// InlineData is base64 image data, optionally prefixed with a data-URL
// header such as "data:image/png;base64,".
type InlineData string

func (FilePath) imageSource()   {}
func (InlineData) imageSource() {}

// SaveMode decides where the muxed video ends up: Overwrite or SaveAsNew.
type SaveMode interface {
	saveMode()
	// Name is the wire name of the mode ("overwrite" or "new").
	Name() string
}

// Overwrite replaces the original video once the mux succeeds.
type Overwrite struct{}

// SaveAsNew writes a new file next to the original. A blank OutputFilename
// selects "<stem>_thumb". The name is used verbatim otherwise.
type SaveAsNew struct {
	OutputFilename string
}

func (Overwrite) saveMode() {}
func (SaveAsNew) saveMode() {}

// Name implements SaveMode.
func (Overwrite) Name() string { return ModeOverwrite }

// Name implements SaveMode.
func (SaveAsNew) Name() string { return ModeNew }

// Wire names of the save modes.
const (
	ModeOverwrite = "overwrite"
	ModeNew       = "new"
)

// ParseSaveMode maps a wire name onto a SaveMode. An empty name means "new".
func ParseSaveMode(name, outputFilename string) (SaveMode, error) {
	switch name {
	case ModeOverwrite:
		return Overwrite{}, nil
	case "", ModeNew:
		return SaveAsNew{OutputFilename: outputFilename}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSaveMode, name)
	}
}

// Request is a single embed invocation.
type Request struct {
	// VideoPath is the video to attach the image to. Its existence is not
	// checked here; the muxer fails if it is missing.
	VideoPath string
	// Image is the cover image. Nil fails with ErrMissingImageSource.
	Image ImageSource
	// Mode defaults to SaveAsNew{} when nil.
	Mode SaveMode
}

// MaterializedImage is the concrete image file handed to the muxer.
type MaterializedImage struct {
	Path string
	// OwnedTemp reports whether Path was created by this package and must
	// be removed once the mux attempt is over.
	OwnedTemp bool
}

// Result describes a successful embed.
type Result struct {
	// FinalPath is where the video with the cover art now lives.
	FinalPath string
	// Overwrote is true when the original file was replaced in place.
	Overwrote bool
}

// Mode returns the wire name of the mode that produced r.
func (r Result) Mode() string {
	if r.Overwrote {
		return ModeOverwrite
	}
	return ModeNew
}

// Message is the human-readable outcome shown to callers.
func (r Result) Message() string {
	if r.Overwrote {
		return "Thumbnail set successfully!\n\nOriginal file updated:\n" + r.FinalPath
	}
	return "Thumbnail set successfully!\n\nOutput saved to:\n" + r.FinalPath
}
