package optimizer

import (
	"testing"

	"github.com/routlang/routc/internal/ast"
	"github.com/routlang/routc/internal/lexer"
	"github.com/routlang/routc/internal/parser"
	"github.com/routlang/routc/internal/semantic"
)

func checkedProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	program, err := parser.New(lexer.New(src)).ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram() error = %v", err)
	}
	a := semantic.NewAnalyzer(src, "test.rout")
	if err := a.Analyze(program); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	return program
}

func mainBody(t *testing.T, program *ast.Program) []ast.BodyElem {
	t.Helper()
	for _, d := range program.Declarations {
		if rd, ok := d.(*ast.RoutineDecl); ok && rd.Name == "main" {
			return rd.Body
		}
	}
	t.Fatal("no routine main in program")
	return nil
}

func TestOptimizeFoldsIntegerArithmetic(t *testing.T) {
	program := checkedProgram(t, `
routine main() is
  print 1 + 2 * 3;
end`)
	out := New().Optimize(program)
	body := mainBody(t, out)
	ps, ok := body[0].(*ast.PrintStmt)
	if !ok {
		t.Fatalf("body[0] = %T, want *ast.PrintStmt", body[0])
	}
	lit, ok := ps.Args[0].(*ast.IntLit)
	if !ok || lit.Value != 7 {
		t.Fatalf("print arg = %#v, want IntLit{7}", ps.Args[0])
	}
}

func TestOptimizeDoesNotFoldDivisionByZero(t *testing.T) {
	program := checkedProgram(t, `
routine main() is
  var x : integer is 0;
  print 5 / x;
end`)
	out := New().Optimize(program)
	body := mainBody(t, out)
	ps := body[1].(*ast.PrintStmt)
	if _, ok := ps.Args[0].(*ast.IntLit); ok {
		t.Fatal("5 / x folded despite x not being a literal zero; this assertion guards the wrong thing if x was folded away")
	}
	if _, ok := ps.Args[0].(*ast.BinaryExpr); !ok {
		t.Fatalf("print arg = %#v, want an unfolded BinaryExpr", ps.Args[0])
	}
}

func TestOptimizeDoesNotFoldLiteralDivisionByZero(t *testing.T) {
	program := checkedProgram(t, `
routine main() is
  print 5 / 0;
end`)
	out := New().Optimize(program)
	body := mainBody(t, out)
	ps := body[0].(*ast.PrintStmt)
	if _, ok := ps.Args[0].(*ast.IntLit); ok {
		t.Fatal("5 / 0 must not be folded at compile time")
	}
}

func TestOptimizeMixedIntRealPromotes(t *testing.T) {
	program := checkedProgram(t, `
routine main() is
  print 1 + 2.5;
end`)
	out := New().Optimize(program)
	body := mainBody(t, out)
	ps := body[0].(*ast.PrintStmt)
	lit, ok := ps.Args[0].(*ast.RealLit)
	if !ok || lit.Value != 3.5 {
		t.Fatalf("print arg = %#v, want RealLit{3.5}", ps.Args[0])
	}
}

func TestOptimizeFoldsBooleanAndOr(t *testing.T) {
	program := checkedProgram(t, `
routine main() is
  print true and false;
  print true or false;
end`)
	out := New().Optimize(program)
	body := mainBody(t, out)

	and := body[0].(*ast.PrintStmt).Args[0].(*ast.BoolLit)
	if and.Value != false {
		t.Errorf("true and false = %v, want false", and.Value)
	}
	or := body[1].(*ast.PrintStmt).Args[0].(*ast.BoolLit)
	if or.Value != true {
		t.Errorf("true or false = %v, want true", or.Value)
	}
}

func TestOptimizeDoesNotFoldXor(t *testing.T) {
	program := checkedProgram(t, `
routine main() is
  print true xor false;
end`)
	out := New().Optimize(program)
	body := mainBody(t, out)
	ps := body[0].(*ast.PrintStmt)
	if _, ok := ps.Args[0].(*ast.BoolLit); ok {
		t.Fatal("true xor false must not fold; xor is excluded by spec")
	}
	if _, ok := ps.Args[0].(*ast.BinaryExpr); !ok {
		t.Fatalf("print arg = %#v, want an unfolded BinaryExpr", ps.Args[0])
	}
}

func TestOptimizeFoldsNotLiteral(t *testing.T) {
	program := checkedProgram(t, `
routine main() is
  print not true;
end`)
	out := New().Optimize(program)
	body := mainBody(t, out)
	lit := body[0].(*ast.PrintStmt).Args[0].(*ast.BoolLit)
	if lit.Value != false {
		t.Errorf("not true = %v, want false", lit.Value)
	}
}

func TestOptimizeFoldsDoubleNegation(t *testing.T) {
	program := checkedProgram(t, `
routine main() is
  var x : integer is 5;
  print - - x;
end`)
	out := New().Optimize(program)
	body := mainBody(t, out)
	ps := body[1].(*ast.PrintStmt)
	if _, ok := ps.Args[0].(*ast.UnaryExpr); ok {
		t.Fatal("- - x should fold away both unary minuses")
	}
	ident, ok := ps.Args[0].(*ast.Identifier)
	if !ok || ident.Name != "x" {
		t.Fatalf("print arg = %#v, want Identifier{x}", ps.Args[0])
	}
}

func TestOptimizeDoesNotFoldSingleNegationOfLiteral(t *testing.T) {
	program := checkedProgram(t, `
routine main() is
  print - 5;
end`)
	out := New().Optimize(program)
	body := mainBody(t, out)
	ps := body[0].(*ast.PrintStmt)
	if _, ok := ps.Args[0].(*ast.UnaryExpr); !ok {
		t.Fatalf("print arg = %#v, want an unfolded UnaryExpr (only `- -x` is specified to fold)", ps.Args[0])
	}
}

func TestOptimizeIfTrueSplicesThenBranch(t *testing.T) {
	program := checkedProgram(t, `
routine main() is
  if true then
    print 1;
  else
    print 2;
  end
  print 3;
end`)
	out := New().Optimize(program)
	body := mainBody(t, out)
	if len(body) != 2 {
		t.Fatalf("got %d body elements, want 2 (spliced then-branch + trailing print)", len(body))
	}
	first := body[0].(*ast.PrintStmt).Args[0].(*ast.IntLit)
	if first.Value != 1 {
		t.Errorf("first print = %d, want 1", first.Value)
	}
}

func TestOptimizeIfFalseWithNoElseRemovesStatement(t *testing.T) {
	program := checkedProgram(t, `
routine main() is
  if false then
    print 1;
  end
  print 2;
end`)
	out := New().Optimize(program)
	body := mainBody(t, out)
	if len(body) != 1 {
		t.Fatalf("got %d body elements, want 1 (the if-statement should vanish)", len(body))
	}
	lit := body[0].(*ast.PrintStmt).Args[0].(*ast.IntLit)
	if lit.Value != 2 {
		t.Errorf("remaining print = %d, want 2", lit.Value)
	}
}

func TestOptimizeDropsCodeAfterReturn(t *testing.T) {
	program := checkedProgram(t, `
routine f(): integer is
  return 1;
  print 2;
end
routine main() is
  print f();
end`)
	out := New().Optimize(program)
	var body []ast.BodyElem
	for _, d := range out.Declarations {
		if rd, ok := d.(*ast.RoutineDecl); ok && rd.Name == "f" {
			body = rd.Body
		}
	}
	if len(body) != 1 {
		t.Fatalf("got %d body elements after return, want 1", len(body))
	}
	if _, ok := body[0].(*ast.ReturnStmt); !ok {
		t.Fatalf("body[0] = %T, want *ast.ReturnStmt", body[0])
	}
}

func TestOptimizeAppliedCountsRewrites(t *testing.T) {
	program := checkedProgram(t, `
routine main() is
  print 1 + 2;
  print true and false;
end`)
	o := New()
	o.Optimize(program)
	if o.Applied() != 2 {
		t.Errorf("Applied() = %d, want 2", o.Applied())
	}
}

func TestOptimizeLeavesNonFoldableBinaryUnchanged(t *testing.T) {
	program := checkedProgram(t, `
routine main() is
  var x : integer is 1;
  var y : integer is 2;
  print x + y;
end`)
	out := New().Optimize(program)
	body := mainBody(t, out)
	ps := body[2].(*ast.PrintStmt)
	if _, ok := ps.Args[0].(*ast.BinaryExpr); !ok {
		t.Fatalf("print arg = %#v, want an unfolded BinaryExpr (operands are variables, not literals)", ps.Args[0])
	}
}

func TestOptimizeFoldsIndexExpressionInsideAssignmentTarget(t *testing.T) {
	program := checkedProgram(t, `
routine main() is
  var a : array[4] integer is [1, 2, 3, 4];
  a[1 + 1] := 9;
end`)
	out := New().Optimize(program)
	body := mainBody(t, out)
	assign := body[1].(*ast.AssignmentStmt)
	idx := assign.Target.Accesses[0].(*ast.IndexAccess)
	lit, ok := idx.Index.(*ast.IntLit)
	if !ok || lit.Value != 2 {
		t.Fatalf("index expr = %#v, want IntLit{2}", idx.Index)
	}
}
