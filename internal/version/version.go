package version

// Build metadata, injected at build time via -ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)
