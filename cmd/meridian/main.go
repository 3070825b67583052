// Package main is the entry point for the meridian CLI.
//
// meridian is a control plane for provisioning isolated compute clusters
// across AWS, Azure, Google Cloud and operator-managed static hosts. It
// keeps provider credentials in an encrypted vault, provisions clusters
// asynchronously and retrieves their kubeconfigs on demand.
//
// Commands: credentials, cluster, version.
//
// For detailed usage information, run:
//
//	meridian --help
package main

import (
	"fmt"
	"os"

	"github.com/meridian-cp/meridian/cmd/meridian/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
