package version

// Build information, set with -ldflags "-X github.com/liquidmods/modlink/internal/version.Version=..."
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
