// Package main is the entry point for the pkgbuilder CLI.
package main

import "github.com/git-pkgs/pkgbuilder/cmd/pkgbuilder/cmd"

// Version information, set by build flags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.Version = version
	cmd.Commit = commit
	cmd.Date = date
	cmd.Execute()
}
