package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/routlang/routc/internal/codegen"
	"github.com/routlang/routc/internal/errors"
	"github.com/routlang/routc/internal/lexer"
	"github.com/routlang/routc/internal/optimizer"
	"github.com/routlang/routc/internal/parser"
	"github.com/routlang/routc/internal/semantic"
)

var (
	emitWatOnly bool
	noColor     bool
)

var compileCmd = &cobra.Command{
	Use:   "compile <input.rout> [output_dir]",
	Short: "Compile an IL source file to a WebAssembly module",
	Long: `compile runs the full pipeline — lex, parse, check, optimize,
generate — and writes a single self-contained WebAssembly text-format
module.

By default the .wat file is also assembled to .wasm by shelling out to
wat2wasm; pass --emit-wat-only to skip that step (useful when wat2wasm
isn't installed).

Examples:
  # Compile to ./output/program.wat and ./output/program.wasm
  routc compile program.rout

  # Compile into a specific directory
  routc compile program.rout build

  # Only emit the .wat file
  routc compile program.rout --emit-wat-only`,
	Args: cobra.RangeArgs(1, 2),
	RunE: compileScript,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().BoolVar(&emitWatOnly, "emit-wat-only", false, "write the .wat file only, skip assembling .wasm")
	compileCmd.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI colors in error output")
}

func compileScript(cmd *cobra.Command, args []string) error {
	filename := args[0]
	outDir := "output"
	if len(args) == 2 {
		outDir = args[1]
	}

	verbose, _ := cmd.Flags().GetBool("verbose")

	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	input := string(content)

	if verbose {
		fmt.Fprintf(os.Stderr, "Compiling %s...\n", filename)
	}

	program, err := parser.New(lexer.New(input)).ParseProgram()
	if err != nil {
		perr, ok := err.(*parser.ParseError)
		if !ok {
			return fmt.Errorf("parsing failed: %w", err)
		}
		cerr := errors.NewCompilerError(perr.Pos, perr.Error(), input, filename)
		fmt.Fprint(os.Stderr, errors.FormatErrors([]*errors.CompilerError{cerr}, errorContextLines, !noColor))
		fmt.Fprintln(os.Stderr)
		return fmt.Errorf("parsing failed")
	}

	analyzer := semantic.NewAnalyzer(input, filename)
	if err := analyzer.Analyze(program); err != nil {
		fmt.Fprint(os.Stderr, errors.FormatErrors(analyzer.Errors(), errorContextLines, !noColor))
		fmt.Fprintln(os.Stderr)
		return fmt.Errorf("semantic analysis failed with %d error(s)", len(analyzer.Errors()))
	}
	for _, w := range analyzer.Warnings() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	opt := optimizer.New()
	program = opt.Optimize(program)
	if verbose {
		fmt.Fprintf(os.Stderr, "Optimizer applied %d rewrite(s)\n", opt.Applied())
	}

	wat, err := codegen.New(analyzer.Symbols()).Generate(program)
	if err != nil {
		return fmt.Errorf("code generation failed: %w", err)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", outDir, err)
	}

	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	watPath := filepath.Join(outDir, name+".wat")
	if err := os.WriteFile(watPath, []byte(wat), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", watPath, err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Wrote %s\n", watPath)
	}

	if emitWatOnly {
		fmt.Printf("Compiled %s -> %s\n", filename, watPath)
		return nil
	}

	wasmPath := filepath.Join(outDir, name+".wasm")
	wat2wasm := exec.Command("wat2wasm", watPath, "-o", wasmPath)
	wat2wasm.Stdout = os.Stderr
	wat2wasm.Stderr = os.Stderr
	if err := wat2wasm.Run(); err != nil {
		return fmt.Errorf("wat2wasm failed: %w", err)
	}

	fmt.Printf("Compiled %s -> %s\n", filename, wasmPath)
	return nil
}
