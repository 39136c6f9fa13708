// Package main implements the cpggen CLI.
// It analyzes C/C++ translation units and produces the ICFG, PDG, and
// compute-graph representations consumed by the auto-vectorization
// pipeline, with optional DOT visualization output.
package main

import (
	"os"

	"github.com/cpggen/cpggen/cmd/cpggen/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
