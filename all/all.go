// Package all imports all supported registry implementations.
//
// Import this package for its side effects to register all ecosystems:
//
//	import (
//		"github.com/git-pkgs/pkgbuilder"
//		_ "github.com/git-pkgs/pkgbuilder/all"
//	)
//
//	// Now all ecosystems are available
//	ecosystems := pkgbuilder.SupportedEcosystems()
//	// ["local", "npm"]
package all

import (
	_ "github.com/git-pkgs/pkgbuilder/internal/local"
	_ "github.com/git-pkgs/pkgbuilder/internal/npm"
)
