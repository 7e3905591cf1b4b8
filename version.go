package main

// Build metadata, overridden with
// -ldflags "-X main.VERSION=1.2.0 -X main.GITCOMMIT=$(git rev-parse --short HEAD) -X main.BUILDTIME=$(date -u +%FT%TZ)"
var (
	VERSION   = "0.1.0"
	GITCOMMIT = "unknown"
	BUILDTIME = "unknown"
)
