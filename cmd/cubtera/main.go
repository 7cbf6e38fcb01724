// Command cubtera is the CLI surface over pkg/invapi (the "im"/"log"
// subcommands) and pkg/runner (the "run" subcommand), plus a "config"
// subcommand that dumps the resolved configuration (spec.md §6.4).
//
// Grounded on the teacher's cobra root-command shape
// (_examples/sgl-project-ome/cmd/ome-agent/main.go), trimmed of its fx
// dependency-injection container (SPEC_FULL.md §B.9) in favour of the
// explicit bootstrap.New constructor every subcommand calls directly.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Blank-imported so their init() functions register the tf and tofu
	// runner variants (pkg/runner's database/sql-style driver pattern —
	// see DESIGN.md's C5 entry).
	_ "github.com/cubtera/cubtera/pkg/runner/tf"
	_ "github.com/cubtera/cubtera/pkg/runner/tofu"

	"github.com/cubtera/cubtera/internal/bootstrap"
	"github.com/cubtera/cubtera/pkg/version"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "cubtera",
	Short:         "Dimensional inventory and unit runner",
	Version:       fmt.Sprintf("gitVersion=%s, gitCommit=%s", version.GitVersion, version.GitCommit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", os.Getenv("CUBTERA_CONFIG"), "path to config file")

	rootCmd.AddCommand(newImCommand())
	rootCmd.AddCommand(newLogCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newConfigCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cubtera: %v\n", err)
		os.Exit(1)
	}
}

// printJSON writes v as indented JSON to stdout, matching the original's
// "print the envelope" CLI convention.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
