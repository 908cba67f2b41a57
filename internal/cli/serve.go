package cli

import (
	"github.com/spf13/cobra"

	"github.com/maauso/thumbembed/internal/bootstrap"
)

func newServeCmd(state *rootState) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Starts the thumbembed HTTP API.

Videos and images are paths on the machine running the server. Set
S3_BUCKET and S3_REGION to allow uploading results with push_to_s3.`,
		Example: `  # Start server on the port from PORT (default 8080)
  thumbembed serve

  # Start server on a custom port
  thumbembed serve --port 3000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				state.cfg.Port = port
			}
			if err := state.cfg.Validate(); err != nil {
				return err
			}
			return bootstrap.Serve(cmd.Context(), state.cfg, state.logger)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on (overrides PORT)")

	return cmd
}
