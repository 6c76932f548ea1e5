// Package version reports the version of ppc64dec and the modules it was
// built with.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Version represents the current version of ppc64dec.
type Version struct {
	Major    string
	Minor    string
	Patch    string
	Metadata string
	Build    string
}

// DecoderVersion is the current version of ppc64dec. Build is replaced at
// link time by cmd/ppc64dec, or by the VCS revision Go records.
var DecoderVersion = Version{
	Major: "0", Minor: "3", Patch: "0",
	Build: "$Id$",
}

func (v Version) String() string {
	if strings.HasPrefix(v.Build, "$Id$") {
		v.Build = vcsRevision(v.Build)
	}
	s := fmt.Sprintf("Version: %s.%s.%s", v.Major, v.Minor, v.Patch)
	if v.Metadata != "" {
		s += "-" + v.Metadata
	}
	return s + "\nBuild: " + v.Build
}

func vcsRevision(def string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return def
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			return setting.Value
		}
	}
	return def
}

// BuildInfo returns the Go version followed by one line per module
// ppc64dec was built with.
func BuildInfo() string {
	var b strings.Builder
	b.WriteString(runtime.Version())
	b.WriteByte('\n')
	info, ok := debug.ReadBuildInfo()
	if !ok {
		b.WriteString("not built in module mode\n")
		return b.String()
	}
	writeModule(&b, "mod", &info.Main)
	for _, dep := range info.Deps {
		writeModule(&b, "dep", dep)
	}
	return b.String()
}

func writeModule(b *strings.Builder, kind string, m *debug.Module) {
	fmt.Fprintf(b, " %s\t%s\t%s", kind, m.Path, m.Version)
	if m.Replace != nil {
		fmt.Fprintf(b, "\t=> %s\t%s", m.Replace.Path, m.Replace.Version)
	}
	b.WriteByte('\n')
}
