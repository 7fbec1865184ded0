package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/pkgbuilder/internal/display"
	"github.com/git-pkgs/pkgbuilder/manifest"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a package.json",
		Long: `Build a package.json from flags and print it.

Packages may be given as name, name@version or a PURL. Without a version
the latest published version is used. Peer dependency conflicts are
reported on stderr.

Examples:
  pkgbuilder build --name my-app --dep react --dep react-dom@18.3.1
  pkgbuilder build --dep react --dev typescript -o package.json --strict`,
		Args: cobra.NoArgs,
		RunE: runBuild,
	}
	cmd.Flags().String("name", manifest.DefaultName, "package name")
	cmd.Flags().String("version", manifest.DefaultVersion, "package version")
	cmd.Flags().String("description", manifest.DefaultDescription, "package description")
	cmd.Flags().StringArray("dep", nil, "add a dependency (repeatable)")
	cmd.Flags().StringArray("dev", nil, "add a devDependency (repeatable)")
	cmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")
	cmd.Flags().Bool("strict", false, "exit non-zero when peer conflicts exist")
	cmd.Flags().Bool("lint", false, "report manifest problems on stderr")
	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	name, _ := cmd.Flags().GetString("name")
	version, _ := cmd.Flags().GetString("version")
	description, _ := cmd.Flags().GetString("description")
	deps, _ := cmd.Flags().GetStringArray("dep")
	devDeps, _ := cmd.Flags().GetStringArray("dev")
	output, _ := cmd.Flags().GetString("output")
	strict, _ := cmd.Flags().GetBool("strict")
	lint, _ := cmd.Flags().GetBool("lint")

	m := a.newManifest()
	m.SetProjectDetails(name, version, description)

	d := a.detector()
	for _, group := range []struct {
		refs []string
		dev  bool
	}{{deps, false}, {devDeps, true}} {
		for _, ref := range group.refs {
			pkg, ver, err := d.Resolve(ctx, ref)
			if err != nil {
				return err
			}
			m.AddDependency(pkg, ver, group.dev)
		}
	}

	report := d.Compute(ctx, m)
	a.warnUnhealthy()

	data, err := manifest.Render(m)
	if err != nil {
		return fmt.Errorf("rendering manifest: %w", err)
	}
	if output == "" {
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	} else {
		if err := os.WriteFile(output, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}
		a.logger.Info("manifest written", "path", output)
	}

	stderr := cmd.ErrOrStderr()
	if report.HasConflicts() || len(report.Unavailable) > 0 {
		fmt.Fprint(stderr, display.Report(report))
	}
	if lint {
		if issues := manifest.Lint(m); len(issues) > 0 {
			fmt.Fprint(stderr, display.Lint(issues))
		}
	}

	if strict && report.HasConflicts() {
		return errConflicts
	}
	return nil
}
