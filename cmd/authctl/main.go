// Command authctl is a terminal client for the marketplace auth service.
// The session is kept in a file so consecutive invocations stay logged in.
package main

import (
	"os"
)

var version = "dev"

func main() {
	cmd := NewRootCmd()
	cmd.Version = version

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
