package cmd

import (
	"github.com/spf13/cobra"

	"github.com/asgardeo/mcp-launcher/internal/console"
	"github.com/asgardeo/mcp-launcher/internal/platform"
	"github.com/asgardeo/mcp-launcher/internal/service/installer"
)

// verifyCmd checks an existing installation.
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the installed binary exists and is executable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		printer := console.New(cmd.OutOrStdout())

		cfg, err := loadConfig()
		if err != nil {
			return failed("Test failed", err)
		}

		printer.Step("🧪 Testing %s installation...", cfg.DisplayName)

		host, err := platform.Detect(cmd.Context(), cfg.Platforms)
		if err != nil {
			return failed("Test failed", err)
		}

		report, err := installer.Verify(cfg, host.Descriptor)
		if report != nil {
			printer.Success("Binary installed successfully")

			if report.Executable {
				printer.Success("Binary is executable")
			} else {
				printer.Warning("Binary may not be executable")
			}
		}

		if err != nil {
			return failed("Test failed", err)
		}

		printer.Success("All tests passed!")

		return nil
	},
}
