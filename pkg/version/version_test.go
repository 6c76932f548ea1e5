package version

import (
	"strings"
	"testing"
)

func TestVersionString(t *testing.T) {
	v := Version{Major: "1", Minor: "2", Patch: "3", Metadata: "rc1", Build: "abcdef"}
	if got, want := v.String(), "Version: 1.2.3-rc1\nBuild: abcdef"; got != want {
		t.Fatalf("expected %q got %q", want, got)
	}

	v.Metadata = ""
	if got := v.String(); !strings.HasPrefix(got, "Version: 1.2.3\n") {
		t.Fatalf("unexpected version string %q", got)
	}
}

func TestBuildInfo(t *testing.T) {
	lines := strings.Split(BuildInfo(), "\n")
	if !strings.Contains(lines[0], "go") {
		t.Fatalf("expected the Go version first, got %q", lines[0])
	}
	if len(lines) < 2 || lines[1] == "" {
		t.Fatalf("expected module information after %q", lines[0])
	}
}
