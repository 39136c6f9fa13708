// Package commands provides the CLI commands for the cpggen tool.
package commands

import (
	"github.com/spf13/cobra"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "cpggen",
	Short: "cpggen - compute-graph extraction for auto-vectorization",
	Long: `cpggen analyzes C/C++ source code and produces three interconnected
program representations used as input to an auto-vectorization pipeline:

  ICFG          Interprocedural control flow graph across all user functions
  PDG           Per-function data and control dependencies
  Compute Graph Vectorization-oriented IR built outward from anchor
                expressions found inside loops

Use "cpggen analyze <source files...>" to run the pipeline.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.AddCommand(analyzeCmd)
}
