package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestPlain(t *testing.T) {
	if got := Plain(); got != "0.3.0-dev" {
		t.Fatalf("Plain() = %q", got)
	}
}

func TestBannerWithoutColor(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	GitCommit = "abc123"
	defer func() { GitCommit = "" }()

	b := Banner()
	if !strings.HasPrefix(b, "pyrust 0.3.0-dev\n") || !strings.Contains(b, "commit: abc123") {
		t.Fatalf("unexpected banner %q", b)
	}
}
