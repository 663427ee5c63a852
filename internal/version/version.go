package version

import "fmt"

// Set with -ldflags "-X github.com/jypelle/busboard/internal/version.Commit=..."
var (
	Commit    = "unknown"
	BuildTime = "unknown"
)

type Version struct {
	MajorNumber int64
	MinorNumber int64
	PatchNumber int64
}

// String generate a human readable Version
func (m Version) String() string {
	return fmt.Sprintf("%d.%d.%d", m.MajorNumber, m.MinorNumber, m.PatchNumber)
}

// Full adds build information to the version number
func (m Version) Full() string {
	return fmt.Sprintf("%s (commit %s, built %s)", m.String(), Commit, BuildTime)
}

var (
	AppVersion = Version{
		MajorNumber: 0,
		MinorNumber: 3,
		PatchNumber: 0,
	}
)
