// Command roora-admin runs one-off maintenance tasks against the planner
// database: migrations, user creation, budget exports and overdue scans.
// It also runs the OAuth consent flow for Google Sheets exports.
package main

import (
	"os"

	"roora/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
