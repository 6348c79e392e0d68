package version

// Set with -ldflags "-X github.com/uvyne-rop/movie-watchlist/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)
