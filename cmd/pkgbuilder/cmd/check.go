package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/pkgbuilder/internal/display"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <package>...",
		Short: "Check packages for peer dependency conflicts",
		Long: `Check a set of packages for conflicting peer-dependency requirements.

A peer conflicts when two selected packages declare it with different
range strings.

Examples:
  pkgbuilder check react-dom react-redux
  pkgbuilder check react@18.3.1 --dev @types/react --strict`,
		RunE: runCheck,
	}
	cmd.Flags().StringArray("dev", nil, "also check a devDependency (repeatable)")
	cmd.Flags().Bool("strict", false, "exit non-zero when peer conflicts exist")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	devDeps, _ := cmd.Flags().GetStringArray("dev")
	strict, _ := cmd.Flags().GetBool("strict")
	if len(args) == 0 && len(devDeps) == 0 {
		return errors.New("requires at least one package")
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	m := a.newManifest()
	d := a.detector()
	for _, ref := range args {
		name, version, err := d.Resolve(ctx, ref)
		if err != nil {
			return err
		}
		m.AddDependency(name, version, false)
	}
	for _, ref := range devDeps {
		name, version, err := d.Resolve(ctx, ref)
		if err != nil {
			return err
		}
		m.AddDependency(name, version, true)
	}

	report := d.Compute(ctx, m)
	a.warnUnhealthy()
	fmt.Fprint(cmd.OutOrStdout(), display.Report(report))

	if strict && report.HasConflicts() {
		return errConflicts
	}
	return nil
}
