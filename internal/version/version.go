package version

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Build metadata. Override with -ldflags "-X pyrust/internal/version.GitCommit=...".
var (
	Major = "0"
	Minor = "3"
	Patch = "0"
	Pre   = "dev"

	GitCommit = ""
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Plain returns the uncolored semantic version, e.g. "0.3.0-dev".
func Plain() string {
	v := Major + "." + Minor + "." + Patch
	if Pre != "" {
		v += "-" + Pre
	}
	return v
}

// Colored returns the version with each component highlighted. Color output
// follows color.NoColor.
func Colored() string {
	v := majorColor.Sprint(Major) + "." + minorColor.Sprint(Minor) + "." + patchColor.Sprint(Patch)
	if Pre != "" {
		v += "-" + Pre
	}
	return v
}

// Banner renders the multi-line output of `pyrust version`.
func Banner() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pyrust %s\n", Colored())
	if GitCommit != "" {
		fmt.Fprintf(&b, "commit: %s\n", GitCommit)
	}
	if BuildDate != "" {
		fmt.Fprintf(&b, "built:  %s\n", BuildDate)
	}
	return b.String()
}
