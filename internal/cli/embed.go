package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maauso/thumbembed/internal/bootstrap"
	"github.com/maauso/thumbembed/internal/job"
	"github.com/maauso/thumbembed/internal/thumbnail"
)

type embedFlags struct {
	video         string
	image         string
	imageData     string
	imageDataFile string
	mode          string
	output        string
	pushToS3      bool
}

func newEmbedCmd(state *rootState) *cobra.Command {
	var f embedFlags

	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Embed a thumbnail into a video",
		Long: `Embed attaches an image to a video as its cover art.

In "new" mode (the default) the result is written next to the video as
<name>_thumb.<ext>, or as --output.<ext> when --output is given. In
"overwrite" mode the original video is replaced once ffmpeg succeeds.`,
		Example: `  # Write clip_thumb.mp4 next to clip.mp4
  thumbembed embed --video clip.mp4 --image cover.png

  # Replace the original using a captured frame
  thumbembed embed --video clip.mp4 --image-data-file frame.b64 --mode overwrite`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := newDeps(state)
			if err != nil {
				return err
			}

			var imagePath, imageData, output *string
			if cmd.Flags().Changed("image") {
				imagePath = &f.image
			}
			if cmd.Flags().Changed("image-data") {
				imageData = &f.imageData
			}
			if cmd.Flags().Changed("image-data-file") {
				b, err := os.ReadFile(f.imageDataFile)
				if err != nil {
					return fmt.Errorf("read image data: %w", err)
				}
				s := strings.TrimSpace(string(b))
				imageData = &s
			}
			if cmd.Flags().Changed("output") {
				output = &f.output
			}

			var msg string
			if f.pushToS3 {
				msg, err = embedAndPublish(cmd, deps, f, imagePath, imageData, output)
			} else {
				msg, err = deps.Embedder.EmbedThumbnail(cmd.Context(), f.video, imagePath, imageData, f.mode, output)
			}
			if msg != "" {
				fmt.Fprintln(cmd.OutOrStdout(), msg)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&f.video, "video", "", "video file to attach the thumbnail to")
	cmd.Flags().StringVar(&f.image, "image", "", "image file to use as the thumbnail")
	cmd.Flags().StringVar(&f.imageData, "image-data", "", "base64 image data, optionally as a data URL")
	cmd.Flags().StringVar(&f.imageDataFile, "image-data-file", "", "file holding base64 image data")
	cmd.Flags().StringVar(&f.mode, "mode", thumbnail.ModeNew, `save mode: "new" or "overwrite"`)
	cmd.Flags().StringVar(&f.output, "output", "", `output file name without extension ("new" mode only)`)
	cmd.Flags().BoolVar(&f.pushToS3, "push-to-s3", false, "upload the result to the configured S3 bucket")

	_ = cmd.MarkFlagRequired("video")
	cmd.MarkFlagsMutuallyExclusive("image", "image-data", "image-data-file")

	return cmd
}

// embedAndPublish runs the embed through the job service so the result is
// uploaded afterwards.
func embedAndPublish(cmd *cobra.Command, deps *bootstrap.Dependencies, f embedFlags, imagePath, imageData, output *string) (string, error) {
	mode, err := thumbnail.ParseSaveMode(f.mode, deref(output))
	if err != nil {
		return "", err
	}

	out, err := deps.EmbedService.Embed(cmd.Context(), job.EmbedInput{
		VideoPath: f.video,
		Image:     thumbnail.SourceFrom(deref(imagePath), deref(imageData)),
		Mode:      mode,
		PushToS3:  true,
	})
	if err != nil {
		if out != nil {
			// The local embed succeeded; only the upload failed.
			return out.Message(), err
		}
		return "", err
	}
	return out.Message() + "\n\nPublished to:\n" + out.VideoURL, nil
}

func newDeps(state *rootState) (*bootstrap.Dependencies, error) {
	return bootstrap.NewDependencies(state.cfg, state.logger)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
