package main

import (
	"fmt"
	"os"

	"github.com/go-delve/ppc64dec/cmd/ppc64dec/cmds"
	"github.com/go-delve/ppc64dec/pkg/version"
)

// Build is the git sha of this binaries build.
var Build string

func main() {
	if Build != "" {
		version.DecoderVersion.Build = Build
	}

	if err := cmds.New(false).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
