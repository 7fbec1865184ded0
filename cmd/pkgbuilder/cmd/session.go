package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/pkgbuilder/compat"
	"github.com/git-pkgs/pkgbuilder/internal/session"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Build a package.json interactively",
		Long: `Start an interactive session that edits a package.json and keeps
its peer dependency report current as dependencies are added and removed.

Type "help" inside the session for the list of commands.`,
		Args: cobra.NoArgs,
		RunE: runSession,
	}
	cmd.Flags().Bool("prompt", true, "print a prompt before each command")
	return cmd
}

func runSession(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	prompt, _ := cmd.Flags().GetBool("prompt")
	if !cmd.Flags().Changed("prompt") {
		prompt = isTerminal(cmd.InOrStdin())
	}

	model := compat.NewModel(a.newManifest(), a.detector())
	s := session.New(a.registry, model, cmd.OutOrStdout(),
		session.WithLogger(a.logger),
		session.WithPrompt(prompt),
	)
	return s.Run(cmd.Context(), cmd.InOrStdin())
}

// isTerminal reports whether r is an interactive character device.
func isTerminal(r any) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
