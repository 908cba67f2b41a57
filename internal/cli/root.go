// Package cli implements the thumbembed command line.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/maauso/thumbembed/internal/config"
)

// rootState is shared by the subcommands once PersistentPreRunE has run.
type rootState struct {
	ffmpegPath string
	cfg        *config.Config
	logger     *slog.Logger
}

// NewRootCmd builds the thumbembed command tree.
func NewRootCmd() *cobra.Command {
	state := &rootState{}

	cmd := &cobra.Command{
		Use:   "thumbembed",
		Short: "Attach a cover image to a video with ffmpeg",
		Long: `thumbembed attaches an image to a video file as its cover art (the
attached_pic stream) without re-encoding anything.

The image can come from a file or from base64 data, and the result either
replaces the original video or is written next to it as a new file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("ffmpeg") {
				cfg.FFmpegPath = state.ffmpegPath
			}
			state.cfg = cfg
			state.logger = cfg.NewLoggerTo(cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&state.ffmpegPath, "ffmpeg", "", "ffmpeg binary to run (overrides FFMPEG_PATH)")

	cmd.AddCommand(newEmbedCmd(state))
	cmd.AddCommand(newServeCmd(state))
	cmd.AddCommand(newVersionCmd(state))

	return cmd
}

func newVersionCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "ffmpeg-version",
		Short: "Print the ffmpeg build thumbembed will use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := newDeps(state)
			if err != nil {
				return err
			}
			v, err := deps.Muxer.Version(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
			return err
		},
	}
}
