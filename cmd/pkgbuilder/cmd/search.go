package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/pkgbuilder"
	"github.com/git-pkgs/pkgbuilder/internal/display"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the registry",
		Long: `Search the registry for packages.

With --maintainer the query is a username and every package that user
maintains is listed.

Examples:
  pkgbuilder search react state
  pkgbuilder search --maintainer gaearon`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearch,
	}
	cmd.Flags().Bool("maintainer", false, "list packages maintained by a user")
	cmd.Flags().Int("size", 20, "maximum number of results")
	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	maintainer, _ := cmd.Flags().GetBool("maintainer")
	size, _ := cmd.Flags().GetInt("size")

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	query := strings.Join(args, " ")

	var results []pkgbuilder.SearchResult
	if maintainer {
		searcher, ok := a.registry.(pkgbuilder.MaintainerSearcher)
		if !ok {
			return fmt.Errorf("%s registry does not support maintainer search", a.registry.Ecosystem())
		}
		results, err = searcher.SearchMaintainer(ctx, query)
	} else {
		results, err = a.registry.Search(ctx, query, size)
	}
	if err != nil {
		return fmt.Errorf("searching %s: %w", a.registry.Ecosystem(), err)
	}

	fmt.Fprint(cmd.OutOrStdout(), display.Search(results, a.registry.URLs()))
	return nil
}
