package prewarm

// Build profile of a pre-warm pass.
type Profile int

const (
	Debug   Profile = iota // Unoptimized build.
	Release                // Optimized build.
)

// Both profiles, in the order they are built.
var Profiles = []Profile{Debug, Release}

func (p Profile) String() string {
	switch p {
	case Debug:
		return "debug"
	case Release:
		return "release"
	default:
		return "unknown"
	}
}

// Returns the Cargo arguments that build the profile.
func (p Profile) Args() []string {
	if p == Release {
		return []string{"build", "--release"}
	}
	return []string{"build"}
}
