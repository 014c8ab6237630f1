package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version,
// typically injected via ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the fusionmatch CLI and returns an error if any
// command fails.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the CLI under ctx, so long-running commands like
// serve stop cleanly on SIGINT.
//
// Logging defaults to info level on stderr; --verbose (-v) flips to
// debug. The logger is attached to the context and accessible to all
// commands via loggerFromContext.
func ExecuteContext(ctx context.Context) error {
	var verbose bool

	root := &cobra.Command{
		Use:          "fusionmatch",
		Short:        "fusionmatch decodes QEC syndromes with exact minimum-weight perfect matching",
		Long:         `fusionmatch is a minimum-weight perfect matching decoder for quantum error correction syndromes, with a partition-and-fuse parallel solver, example code generators, benchmark tooling and visualizer output.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("fusionmatch %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newBenchmarkCmd())
	root.AddCommand(newRenderCmd())
	root.AddCommand(newServeCmd())

	return root.ExecuteContext(ctx)
}
