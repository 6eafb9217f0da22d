// Package main is the entry point for strava-mcp.
package main

import (
	"fmt"
	"os"

	"strava-mcp/internal/cli"
)

func main() {
	cli.Init()

	if err := cli.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
