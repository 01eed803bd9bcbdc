package version

// Set at build time via -ldflags "-X github.com/jeanpaul/cursor-memory-mcp/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
)

// String returns "Version (Commit)".
func String() string {
	return Version + " (" + Commit + ")"
}
