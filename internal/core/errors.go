package core

import "github.com/git-pkgs/pkgbuilder/client"

// Error aliases so registry implementations only import core.
var (
	ErrNotFound    = client.ErrNotFound
	ErrCircuitOpen = client.ErrCircuitOpen
)

type (
	HTTPError      = client.HTTPError
	NotFoundError  = client.NotFoundError
	RateLimitError = client.RateLimitError
)
