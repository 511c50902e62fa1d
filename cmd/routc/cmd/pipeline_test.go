package cmd

import (
	"strings"
	"testing"

	"github.com/routlang/routc/internal/codegen"
	"github.com/routlang/routc/internal/lexer"
	"github.com/routlang/routc/internal/optimizer"
	"github.com/routlang/routc/internal/parser"
	"github.com/routlang/routc/internal/semantic"
)

// compileToWat drives the same lex -> parse -> analyze -> optimize ->
// generate pipeline the compile subcommand runs, skipping the file I/O
// and wat2wasm shell-out, and returns the generated module text.
func compileToWat(t *testing.T, src string, optimize bool) string {
	t.Helper()
	program, err := parser.New(lexer.New(src)).ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram() error = %v", err)
	}

	a := semantic.NewAnalyzer(src, "test.rout")
	if err := a.Analyze(program); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if optimize {
		program = optimizer.New().Optimize(program)
	}

	out, err := codegen.New(a.Symbols()).Generate(program)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return out
}

func TestEndToEndModuleShape(t *testing.T) {
	wat := compileToWat(t, `
routine main() is
  print "hello";
end`, true)

	for _, want := range []string{
		`(import "env" "printInt"`,
		`(import "env" "printFloat"`,
		`(import "env" "printString"`,
		`(import "env" "printBool"`,
		`(import "env" "printNewline"`,
		`(memory`,
		`(export "main"`,
		`$main`,
	} {
		if !strings.Contains(wat, want) {
			t.Errorf("generated module missing %q:\n%s", want, wat)
		}
	}
}

func TestEndToEndOptimizedMatchesUnoptimizedOutputShape(t *testing.T) {
	src := `
routine main() is
  print 2 + 3;
end`
	raw := compileToWat(t, src, false)
	optimized := compileToWat(t, src, true)

	for _, want := range []string{`call $printInt`, `call $printNewline`} {
		if !strings.Contains(raw, want) || !strings.Contains(optimized, want) {
			t.Errorf("both raw and optimized output must emit %q", want)
		}
	}
	if !strings.Contains(optimized, "i32.const 5") {
		t.Errorf("optimized output should fold 2 + 3 into a single constant:\n%s", optimized)
	}
	if strings.Contains(optimized, "i32.add") {
		t.Errorf("optimized output should not still contain the addition:\n%s", optimized)
	}
	if !strings.Contains(raw, "i32.add") {
		t.Errorf("unoptimized output should still contain the addition:\n%s", raw)
	}
}

func TestEndToEndArrayAndControlFlow(t *testing.T) {
	wat := compileToWat(t, `
routine main() is
  var a : array[3] integer is [10, 20, 30];
  var total : integer is 0;
  for x in a loop
    total := total + x;
  end
  if total > 0 then
    print total;
  else
    print 0;
  end
end`, true)

	for _, want := range []string{"loop $", "br_if", "if\n", "i32.store", "i32.load"} {
		if !strings.Contains(wat, want) {
			t.Errorf("generated module missing %q:\n%s", want, wat)
		}
	}
}

func TestEndToEndParseErrorReported(t *testing.T) {
	_, err := parser.New(lexer.New(`routine main( is end`)).ParseProgram()
	if err == nil {
		t.Fatal("expected a parse error for a malformed parameter list")
	}
	if _, ok := err.(*parser.ParseError); !ok {
		t.Fatalf("error = %T, want *parser.ParseError", err)
	}
}
