package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/porticus-lab/go-screencapture/config"
)

var (
	version = "dev" // semantic version
	commit  string  // git commit SHA
	date    string  // build timestamp
)

// SetVersion sets the version information displayed by --version. It is
// called by the main package with values injected via ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the screencapture CLI with ctx and returns the first command
// error.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          "screencapture",
		Short:        "Capture page regions as images or PDF documents",
		Long:         `screencapture renders a web page in headless Chrome, captures one element as PNG, JPEG or paginated PDF, and delivers it as a download, in a viewer, or as a chunked upload.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), logLevel(cfg.Settings.LogLevel, verbose))
			if configPath != "" {
				logger.Debug("loaded configuration", "path", configPath)
			}
			ctx := withConfig(withLogger(cmd.Context(), logger), cfg)
			cmd.SetContext(ctx)
			return nil
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("screencapture %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (.yaml, .toml or .jsonc)")

	root.AddCommand(newCaptureCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newInspectCmd())

	return root
}
