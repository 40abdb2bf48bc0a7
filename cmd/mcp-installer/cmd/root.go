package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/asgardeo/mcp-launcher/internal/console"
	"github.com/asgardeo/mcp-launcher/internal/logger"
	"github.com/asgardeo/mcp-launcher/internal/service/installer"
	"github.com/asgardeo/mcp-launcher/internal/version"
)

var (
	// configPath to the configuration YAML file; empty means next to the executable.
	configPath string

	// installDir overrides the configured install directory.
	installDir string

	// force reinstalls over an existing binary.
	force bool

	// rootCmd downloads the prebuilt server binary for this platform.
	rootCmd = &cobra.Command{
		Use:           "mcp-installer",
		Short:         "Install the MCP server binary from the latest release",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return failed("Installation failed", err)
			}

			_, err = installer.Run(ctx, &installer.Options{
				Config:   cfg,
				Force:    force,
				Printer:  console.New(cmd.OutOrStdout()),
				Progress: console.Progress,
			})
			if err != nil {
				return failed("Installation failed", err)
			}

			return nil
		},
	}
)

// Execute runs the mcp-installer CLI and exits with non-zero status on error.
func Execute() {
	logger.UseStderr()
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		console.Stderr().Failure("%s", err)
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default: mcp-launcher.yaml next to the executable)")
	rootCmd.PersistentFlags().StringVar(&installDir, "install-dir", "", "directory to install the binary into")
	rootCmd.Flags().BoolVarP(&force, "force", "f", false, "reinstall even if the binary already exists")

	rootCmd.AddCommand(verifyCmd, buildCmd)
}
