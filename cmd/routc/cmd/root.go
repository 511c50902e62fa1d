package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// errorContextLines is how many source lines of context surround a
// reported error on either side, shared by compile and ast.
const errorContextLines = 1

var rootCmd = &cobra.Command{
	Use:   "routc",
	Short: "Whole-program compiler for IL, targeting WebAssembly text format",
	Long: `routc compiles a small statically-typed imperative language (IL) ahead
of time into a single self-contained WebAssembly text-format (WAT) module.

A program is one or more top-level variable, type, and routine
declarations. Compilation runs the full pipeline in one pass: lex,
parse, check, optimize, generate.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
}

func exitWithError(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}
