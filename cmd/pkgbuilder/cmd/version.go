package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE:  runVersion,
	}
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "pkgbuilder %s\n", Version)
	fmt.Fprintf(out, "  commit:   %s\n", Commit)
	fmt.Fprintf(out, "  built:    %s\n", Date)
	fmt.Fprintf(out, "  go:       %s\n", runtime.Version())
	fmt.Fprintf(out, "  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	return nil
}
