package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/asgardeo/mcp-launcher/internal/config"
	"github.com/asgardeo/mcp-launcher/internal/console"
	"github.com/asgardeo/mcp-launcher/internal/logger"
	"github.com/asgardeo/mcp-launcher/internal/service/launcher"
)

var (
	// cfg is loaded once per run; the launcher takes no flags to override it.
	cfg *config.Config

	// rootCmd runs the installed server with every argument passed through untouched.
	// Flag parsing is disabled so "--help", "--version" and friends reach the server.
	rootCmd = &cobra.Command{
		Use:                "mcp-launcher [server arguments...]",
		Short:              "Run the installed MCP server, forwarding arguments, stdio and signals",
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
		RunE: func(_ *cobra.Command, args []string) error {
			status, err := launcher.Run(context.Background(), &launcher.Options{
				Config: cfg,
				Args:   args,
			})
			if err != nil {
				return err
			}

			launcher.Relay(status)

			return nil
		},
	}
)

// Execute runs the launcher and exits with the child's status.
func Execute() {
	// Stdout belongs to the server.
	logger.UseStderr()

	var err error

	cfg, err = config.Load("")
	if err != nil {
		console.Stderr().Failure("Invalid configuration: %s", err)
		os.Exit(1)
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	if err = rootCmd.Execute(); err != nil {
		os.Exit(report(os.Stderr, cfg, err))
	}
}

// report prints err for the user and returns the exit status.
func report(w io.Writer, cfg *config.Config, err error) int {
	if errors.Is(err, launcher.ErrBinaryNotFound) {
		_, _ = fmt.Fprintln(w, launcher.Remediation(cfg))
		return 1
	}

	console.New(w).Failure("Failed to start %s: %s", cfg.DisplayName, err)

	return 1
}
