package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/asgardeo/mcp-launcher/internal/console"
	"github.com/asgardeo/mcp-launcher/internal/service/builder"
)

var (
	sourceDir  string
	outputPath string

	// buildCmd compiles the server from a source checkout instead of downloading it.
	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Build the MCP server from source with the local Go toolchain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return failed("Build failed", err)
			}

			_, err = builder.Run(ctx, &builder.Options{
				Config:  cfg,
				Source:  sourceDir,
				Output:  outputPath,
				Printer: console.New(cmd.OutOrStdout()),
				Stdout:  cmd.OutOrStdout(),
				Stderr:  cmd.ErrOrStderr(),
			})
			if err != nil {
				return failed("Build failed", err)
			}

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	buildCmd.Flags().StringVarP(&sourceDir, "source", "s", ".", "module directory to build")
	buildCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output path (default: the install path)")
}
