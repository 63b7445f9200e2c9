package main

import (
	"os"

	"github.com/isometry/ldap-sync/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
