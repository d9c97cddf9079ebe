// Package main is the entry point for the crowdprice server.
package main

import (
	"os"

	"github.com/crowdprice/crowdprice/cmd/crowdprice/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
