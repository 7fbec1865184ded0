// Package cmd provides the CLI commands for pkgbuilder.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// Version information, set by main before Execute.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// errConflicts is returned by --strict runs that found peer conflicts.
var errConflicts = errors.New("peer dependency conflicts found")

// NewRootCmd returns a fresh command tree. Cobra flags keep state between
// runs, so each invocation in tests builds its own tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pkgbuilder",
		Short: "Assemble package.json files and check peer dependencies",
		Long: `pkgbuilder assembles an npm package.json, checks the selected
dependencies for conflicting peer-dependency requirements against the
registry, and prints the canonical manifest.

Run "pkgbuilder session" for an interactive builder, or use build and
check from scripts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Version = fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
	root.SetVersionTemplate("pkgbuilder {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default ./.pkgbuilder.yaml)")
	flags.String("registry", "", "registry ecosystem: npm or local")
	flags.String("registry-url", "", "registry base URL, or a directory for the local registry")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.Int("concurrency", 0, "maximum metadata fetches in flight")

	root.AddCommand(
		newBuildCmd(),
		newCheckCmd(),
		newSearchCmd(),
		newSessionCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		stop()
		os.Exit(1)
	}
}
