// Package main is the entry point for codecenginectl, the operator harness
// for the codec engine.
package main

import (
	"os"

	"github.com/streamforge/codecengine/cmd/codecenginectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
