package thumbnail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/maauso/thumbembed/internal/media"
	"github.com/maauso/thumbembed/internal/storage"
)

// TempStore is the part of storage.Storage the embedder needs for decoded
// inline images.
type TempStore interface {
	SaveTemp(ctx context.Context, name string, data io.Reader) (string, error)
	CleanupTemp(ctx context.Context, paths []string) error
}

// Compile-time check that storage.Storage satisfies TempStore.
var _ TempStore = (storage.Storage)(nil)

// Embedder runs the embed operation.
//
// Embedder holds no per-call state. Concurrent calls for the same video in
// overwrite mode, or with inline data for the same stem, share file names
// and race; callers that need safety serialize per video path.
type Embedder struct {
	muxer  media.Muxer
	temp   TempStore
	logger *slog.Logger

	remove func(string) error
	rename func(string, string) error
}

// NewEmbedder creates an Embedder. temp receives decoded inline images.
func NewEmbedder(muxer media.Muxer, temp TempStore, logger *slog.Logger) *Embedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{
		muxer:  muxer,
		temp:   temp,
		logger: logger,
		remove: os.Remove,
		rename: os.Rename,
	}
}

// EmbedThumbnail is the string-in/string-out form of Embed. A non-empty
// imagePath takes precedence over imageData; saveMode is "overwrite" or
// "new" (the default when empty).
func (e *Embedder) EmbedThumbnail(ctx context.Context, videoPath string, imagePath, imageData *string, saveMode string, outputFilename *string) (string, error) {
	mode, err := ParseSaveMode(saveMode, deref(outputFilename))
	if err != nil {
		return "", err
	}

	res, err := e.Embed(ctx, Request{
		VideoPath: videoPath,
		Image:     SourceFrom(deref(imagePath), deref(imageData)),
		Mode:      mode,
	})
	if err != nil {
		return "", err
	}
	return res.Message(), nil
}

// SourceFrom picks the image source from loosely typed inputs: a non-empty
// path wins over non-empty data, and nil is returned when both are empty.
func SourceFrom(imagePath, imageData string) ImageSource {
	switch {
	case imagePath != "":
		return FilePath(imagePath)
	case imageData != "":
		return InlineData(imageData)
	default:
		return nil
	}
}

// Embed attaches req.Image to req.VideoPath as cover art.
//
// The muxer never writes to the file it reads: in overwrite mode the output
// goes to "<stem>_temp.<ext>" and replaces the original only after a
// successful mux. If ffmpeg fails the original is untouched and the staging
// file, if any, is left in place. If the swap itself fails the original may
// already be gone; ErrDeleteOriginal and ErrRename report that window.
func (e *Embedder) Embed(ctx context.Context, req Request) (Result, error) {
	mode := req.Mode
	if mode == nil {
		mode = SaveAsNew{}
	}

	paths := ResolvePaths(req.VideoPath)
	target := ComputeTarget(req.VideoPath, paths, mode)

	e.logger.Debug("embedding thumbnail",
		slog.String("video", req.VideoPath),
		slog.String("mode", mode.Name()),
		slog.String("staging", target.StagingPath),
	)

	if err := e.muxWithImage(ctx, req, paths, target); err != nil {
		e.logger.Warn("thumbnail embed failed",
			slog.String("video", req.VideoPath),
			slog.String("error", err.Error()),
		)
		return Result{}, err
	}

	_, overwrite := mode.(Overwrite)
	if overwrite {
		if err := e.replaceOriginal(target); err != nil {
			e.logger.Error("failed to replace original",
				slog.String("video", req.VideoPath),
				slog.String("staging", target.StagingPath),
				slog.String("error", err.Error()),
			)
			return Result{}, err
		}
	}

	e.logger.Info("thumbnail embedded",
		slog.String("output", target.FinalPath),
		slog.Bool("overwrote", overwrite),
	)

	return Result{FinalPath: target.FinalPath, Overwrote: overwrite}, nil
}

// muxWithImage materializes the image, runs the muxer and releases an owned
// temp image as soon as the muxer returns, whatever the outcome.
func (e *Embedder) muxWithImage(ctx context.Context, req Request, paths ResolvedPaths, target OutputTarget) error {
	img, err := e.Materialize(ctx, req.Image, paths)
	if err != nil {
		return err
	}
	defer e.release(ctx, img)

	return classifyMuxError(e.muxer.AttachCover(ctx, req.VideoPath, img.Path, target.StagingPath))
}

// Materialize turns src into a file the muxer can read. Inline data is
// decoded and written to the temp store as "thumb_<stem>.png"; the caller
// must release it.
func (e *Embedder) Materialize(ctx context.Context, src ImageSource, paths ResolvedPaths) (MaterializedImage, error) {
	switch s := src.(type) {
	case FilePath:
		if s == "" {
			return MaterializedImage{}, ErrMissingImageSource
		}
		return MaterializedImage{Path: string(s)}, nil
	case InlineData:
		data, err := DecodeImageData(string(s))
		if err != nil {
			return MaterializedImage{}, err
		}
		path, err := e.temp.SaveTemp(ctx, tempImageName(paths.Stem), bytes.NewReader(data))
		if err != nil {
			return MaterializedImage{}, fmt.Errorf("%w: %w", ErrTempWrite, err)
		}
		return MaterializedImage{Path: path, OwnedTemp: true}, nil
	default:
		return MaterializedImage{}, ErrMissingImageSource
	}
}

// DecodeImageData strips everything up to and including the first comma
// (a data-URL header) and decodes the rest as standard base64.
func DecodeImageData(data string) ([]byte, error) {
	if _, payload, found := strings.Cut(data, ","); found {
		data = payload
	}
	decoded, err := base64.StdEncoding.Strict().DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return decoded, nil
}

func (e *Embedder) release(ctx context.Context, img MaterializedImage) {
	if !img.OwnedTemp {
		return
	}
	if err := e.temp.CleanupTemp(context.WithoutCancel(ctx), []string{img.Path}); err != nil {
		e.logger.Warn("failed to remove temporary image",
			slog.String("path", img.Path),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Embedder) replaceOriginal(target OutputTarget) error {
	if err := e.remove(target.FinalPath); err != nil {
		return fmt.Errorf("%w %s: %w", ErrDeleteOriginal, target.FinalPath, err)
	}
	if err := e.rename(target.StagingPath, target.FinalPath); err != nil {
		return fmt.Errorf("%w %s -> %s: %w", ErrRename, target.StagingPath, target.FinalPath, err)
	}
	return nil
}

// classifyMuxError maps muxer failures onto ErrSpawn and ErrMux.
func classifyMuxError(err error) error {
	if err == nil {
		return nil
	}

	var spawnErr *media.SpawnError
	if errors.As(err, &spawnErr) {
		return fmt.Errorf("%w: %w", ErrSpawn, spawnErr.Err)
	}

	var ffErr *media.FFmpegError
	if errors.As(err, &ffErr) {
		return &MuxError{Stderr: ffErr.Stderr, Err: err}
	}

	return &MuxError{Stderr: err.Error(), Err: err}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
