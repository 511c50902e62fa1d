package semantic

import (
	"testing"

	"github.com/routlang/routc/internal/lexer"
	"github.com/routlang/routc/internal/parser"
)

func analyze(t *testing.T, src string) *Analyzer {
	t.Helper()
	program, err := parser.New(lexer.New(src)).ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram() error = %v", err)
	}
	a := NewAnalyzer(src, "test.rout")
	a.Analyze(program)
	return a
}

func TestAnalyzeAcceptsValidProgram(t *testing.T) {
	a := analyze(t, `
routine sum(arr: array[] integer): integer is
  var s : integer is 0;
  for x in arr loop
    s := s + x;
  end
  return s;
end

routine main() is
  var a : array[4] integer is [2, 2, 2, 2];
  print sum(a);
end`)
	if err := a.ctx.Diag.FirstError(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAnalyzeUndeclaredVariable(t *testing.T) {
	a := analyze(t, "routine main() is print x; end")
	if len(a.Errors()) == 0 {
		t.Fatal("expected an undeclared-variable error")
	}
}

func TestAnalyzeArityMismatch(t *testing.T) {
	a := analyze(t, `
routine add(a: integer, b: integer): integer => a + b;
routine main() is
  print add(1);
end`)
	if len(a.Errors()) == 0 {
		t.Fatal("expected an arity-mismatch error")
	}
}

func TestAnalyzeUndeclaredRoutine(t *testing.T) {
	a := analyze(t, "routine main() is print missing(); end")
	if len(a.Errors()) == 0 {
		t.Fatal("expected an undeclared-routine error")
	}
}

func TestAnalyzeDuplicateVarInSameScope(t *testing.T) {
	a := analyze(t, `
routine main() is
  var x : integer is 1;
  var x : integer is 2;
end`)
	if len(a.Errors()) == 0 {
		t.Fatal("expected a duplicate-declaration error")
	}
}

func TestAnalyzeUnusedVariableWarning(t *testing.T) {
	a := analyze(t, "routine main() is var x : integer is 1; end")
	if err := a.ctx.Diag.FirstError(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.Warnings()) != 1 {
		t.Fatalf("got %d warnings, want 1", len(a.Warnings()))
	}
}

func TestAnalyzeInitializerCannotReferenceOwnVariable(t *testing.T) {
	a := analyze(t, "routine main() is var x : integer is x; end")
	if len(a.Errors()) == 0 {
		t.Fatal("expected an undeclared-variable error for self-referencing initializer")
	}
}

func TestAnalyzeIntegerWidensToReal(t *testing.T) {
	a := analyze(t, "routine main() is var x : real is 5; end")
	if err := a.ctx.Diag.FirstError(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAnalyzeRealDoesNotNarrowToInteger(t *testing.T) {
	a := analyze(t, "routine main() is var x : integer is 5.0; end")
	if len(a.Errors()) == 0 {
		t.Fatal("expected a type-mismatch error assigning real to integer")
	}
}

func TestAnalyzeReturnOutsideRoutineReturnType(t *testing.T) {
	a := analyze(t, "routine main() is return 5; end")
	if len(a.Errors()) == 0 {
		t.Fatal("expected an error returning a value from a routine with no return type")
	}
}

func TestAnalyzeForEachRequiresArraySource(t *testing.T) {
	a := analyze(t, `
routine main() is
  var x : integer is 0;
  for v in x loop
    print v;
  end
end`)
	if len(a.Errors()) == 0 {
		t.Fatal("expected an error iterating a non-array with for-each")
	}
}

func TestAnalyzeScopeRestoredAfterFatalError(t *testing.T) {
	a := analyze(t, "routine main() is print x; end")
	if depth := a.ScopeDepth(); depth != 1 {
		t.Errorf("ScopeDepth() = %d, want 1 (only the global scope should remain)", depth)
	}
}

func TestAnalyzeRecordFieldAccess(t *testing.T) {
	a := analyze(t, `
type point is record x : integer; y : integer; end
routine main() is
  var p : point is { x: 1, y: 2 };
  print p.x;
end`)
	if err := a.ctx.Diag.FirstError(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAnalyzeUnknownRecordField(t *testing.T) {
	a := analyze(t, `
type point is record x : integer; y : integer; end
routine main() is
  var p : point is { x: 1, y: 2 };
  print p.z;
end`)
	if len(a.Errors()) == 0 {
		t.Fatal("expected an unknown-field error")
	}
}
