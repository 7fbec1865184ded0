package core

import (
	"github.com/git-pkgs/pkgbuilder/client"
)

// Type aliases so ecosystem implementations only import core.
type (
	Client     = client.Client
	Option     = client.Option
	URLBuilder = client.URLBuilder
	BaseURLs   = client.BaseURLs
)

// Function aliases.
var (
	DefaultClient  = client.DefaultClient
	NewClient      = client.NewClient
	WithTimeout    = client.WithTimeout
	WithMaxRetries = client.WithMaxRetries
	BuildURLs      = client.BuildURLs
)
