package parser

import (
	"testing"

	"github.com/routlang/routc/internal/ast"
	"github.com/routlang/routc/internal/lexer"
)

func testParser(input string) *Parser {
	return New(lexer.New(input))
}

func mustParseRoutineBody(t *testing.T, src string) []ast.BodyElem {
	t.Helper()
	program, err := testParser(src).ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram() error = %v", err)
	}
	if len(program.Declarations) != 1 {
		t.Fatalf("program has %d declarations, want 1", len(program.Declarations))
	}
	rd, ok := program.Declarations[0].(*ast.RoutineDecl)
	if !ok {
		t.Fatalf("declaration is %T, want *ast.RoutineDecl", program.Declarations[0])
	}
	return rd.Body
}

func TestParseVarDecl(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"typed only", "var x : integer;"},
		{"init only", "var x is 5;"},
		{"typed and init", "var x : integer is 5;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, err := testParser(tt.input).ParseProgram()
			if err != nil {
				t.Fatalf("ParseProgram() error = %v", err)
			}
			if len(program.Declarations) != 1 {
				t.Fatalf("got %d declarations, want 1", len(program.Declarations))
			}
			vd, ok := program.Declarations[0].(*ast.VarDecl)
			if !ok {
				t.Fatalf("declaration is %T, want *ast.VarDecl", program.Declarations[0])
			}
			if vd.Name != "x" {
				t.Errorf("Name = %q, want x", vd.Name)
			}
		})
	}
}

func TestParseTypeDecl(t *testing.T) {
	program, err := testParser("type point is record x : integer; y : integer; end;").ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram() error = %v", err)
	}
	td, ok := program.Declarations[0].(*ast.TypeDecl)
	if !ok {
		t.Fatalf("declaration is %T, want *ast.TypeDecl", program.Declarations[0])
	}
	rt, ok := td.Aliased.(*ast.RecordType)
	if !ok {
		t.Fatalf("Aliased is %T, want *ast.RecordType", td.Aliased)
	}
	if len(rt.Fields) != 2 {
		t.Fatalf("got %d fields, want 2", len(rt.Fields))
	}
	if off := rt.FieldOffset("y"); off != 4 {
		t.Errorf("FieldOffset(y) = %d, want 4", off)
	}
}

func TestParseRoutineExpressionForm(t *testing.T) {
	program, err := testParser("routine square(x: integer): integer => x * x;").ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram() error = %v", err)
	}
	rd, ok := program.Declarations[0].(*ast.RoutineDecl)
	if !ok {
		t.Fatalf("declaration is %T, want *ast.RoutineDecl", program.Declarations[0])
	}
	if rd.ExprBody == nil {
		t.Fatal("ExprBody is nil")
	}
	if rd.Body != nil {
		t.Fatal("Body should be nil for expression-form routine")
	}
	if _, ok := rd.ExprBody.(*ast.BinaryExpr); !ok {
		t.Fatalf("ExprBody is %T, want *ast.BinaryExpr", rd.ExprBody)
	}
}

func TestParseRoutineRefParam(t *testing.T) {
	program, err := testParser("routine bump(ref x: integer) is end").ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram() error = %v", err)
	}
	rd := program.Declarations[0].(*ast.RoutineDecl)
	if len(rd.Params) != 1 || !rd.Params[0].ByRef {
		t.Fatalf("Params = %+v, want one by-ref param", rd.Params)
	}
}

func TestParseAssignment(t *testing.T) {
	body := mustParseRoutineBody(t, "routine main() is x := 5; end")
	if len(body) != 1 {
		t.Fatalf("got %d body elements, want 1", len(body))
	}
	stmt, ok := body[0].(*ast.AssignmentStmt)
	if !ok {
		t.Fatalf("body[0] is %T, want *ast.AssignmentStmt", body[0])
	}
	if stmt.Target.Base != "x" {
		t.Errorf("Target.Base = %q, want x", stmt.Target.Base)
	}
}

func TestParseAssignmentWithAccessChain(t *testing.T) {
	body := mustParseRoutineBody(t, "routine main() is a[0].field := 5; end")
	stmt, ok := body[0].(*ast.AssignmentStmt)
	if !ok {
		t.Fatalf("body[0] is %T, want *ast.AssignmentStmt", body[0])
	}
	if len(stmt.Target.Accesses) != 2 {
		t.Fatalf("got %d accesses, want 2", len(stmt.Target.Accesses))
	}
	if _, ok := stmt.Target.Accesses[0].(*ast.IndexAccess); !ok {
		t.Errorf("Accesses[0] is %T, want *ast.IndexAccess", stmt.Target.Accesses[0])
	}
	if _, ok := stmt.Target.Accesses[1].(*ast.FieldAccess); !ok {
		t.Errorf("Accesses[1] is %T, want *ast.FieldAccess", stmt.Target.Accesses[1])
	}
}

func TestParseCallStatement(t *testing.T) {
	body := mustParseRoutineBody(t, "routine main() is greet(\"hi\"); end")
	stmt, ok := body[0].(*ast.CallStmt)
	if !ok {
		t.Fatalf("body[0] is %T, want *ast.CallStmt", body[0])
	}
	if stmt.Name != "greet" || len(stmt.Args) != 1 {
		t.Fatalf("CallStmt = %+v", stmt)
	}
}

func TestParsePrintStatementBareAndParenthesized(t *testing.T) {
	for _, src := range []string{
		"routine main() is print 1, 2; end",
		"routine main() is print(1, 2); end",
	} {
		body := mustParseRoutineBody(t, src)
		stmt, ok := body[0].(*ast.PrintStmt)
		if !ok {
			t.Fatalf("%q: body[0] is %T, want *ast.PrintStmt", src, body[0])
		}
		if len(stmt.Args) != 2 {
			t.Fatalf("%q: got %d args, want 2", src, len(stmt.Args))
		}
	}
}

func TestParseIfElse(t *testing.T) {
	body := mustParseRoutineBody(t, `
routine main() is
  if x > 0 then
    print x;
  else
    print 0;
  end
end`)
	stmt, ok := body[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("body[0] is %T, want *ast.IfStmt", body[0])
	}
	if len(stmt.Then) != 1 || len(stmt.Else) != 1 {
		t.Fatalf("Then=%d Else=%d, want 1 and 1", len(stmt.Then), len(stmt.Else))
	}
}

func TestParseWhileLoop(t *testing.T) {
	body := mustParseRoutineBody(t, `
routine main() is
  while x < 10 loop
    x := x + 1;
  end
end`)
	if _, ok := body[0].(*ast.WhileStmt); !ok {
		t.Fatalf("body[0] is %T, want *ast.WhileStmt", body[0])
	}
}

func TestParseForRange(t *testing.T) {
	body := mustParseRoutineBody(t, `
routine main() is
  for i in 1..10 loop
    print i;
  end
end`)
	stmt, ok := body[0].(*ast.ForStmt)
	if !ok {
		t.Fatalf("body[0] is %T, want *ast.ForStmt", body[0])
	}
	if stmt.IsForEach() {
		t.Error("IsForEach() = true, want false for a bounded range")
	}
	if stmt.Reverse {
		t.Error("Reverse = true, want false")
	}
}

func TestParseForEachReverse(t *testing.T) {
	body := mustParseRoutineBody(t, `
routine main() is
  for v in items reverse loop
    print v;
  end
end`)
	stmt, ok := body[0].(*ast.ForStmt)
	if !ok {
		t.Fatalf("body[0] is %T, want *ast.ForStmt", body[0])
	}
	if !stmt.IsForEach() {
		t.Error("IsForEach() = false, want true")
	}
	if !stmt.Reverse {
		t.Error("Reverse = false, want true")
	}
}

func TestParseReturnWithAndWithoutValue(t *testing.T) {
	body := mustParseRoutineBody(t, "routine main() is return 5; end")
	ret, ok := body[0].(*ast.ReturnStmt)
	if !ok {
		t.Fatalf("body[0] is %T, want *ast.ReturnStmt", body[0])
	}
	if ret.Value == nil {
		t.Error("Value is nil, want 5")
	}

	body = mustParseRoutineBody(t, "routine main() is return; end")
	ret, ok = body[0].(*ast.ReturnStmt)
	if !ok {
		t.Fatalf("body[0] is %T, want *ast.ReturnStmt", body[0])
	}
	if ret.Value != nil {
		t.Error("Value is non-nil, want nil for bare return")
	}
}

func TestParsePrecedenceViaVarInit(t *testing.T) {
	program, err := testParser("var r is 1 + 2 * 3;").ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram() error = %v", err)
	}
	vd := program.Declarations[0].(*ast.VarDecl)
	bin, ok := vd.Init.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("Init is %T, want *ast.BinaryExpr", vd.Init)
	}
	if bin.Op != lexer.PLUS {
		t.Fatalf("top operator = %v, want PLUS", bin.Op)
	}
	if _, ok := bin.Right.(*ast.BinaryExpr); !ok {
		t.Fatalf("Right is %T, want nested *ast.BinaryExpr for 2 * 3", bin.Right)
	}
}

func TestParseArrayLiteral(t *testing.T) {
	program, err := testParser("var a is [1, 2, 3];").ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram() error = %v", err)
	}
	vd := program.Declarations[0].(*ast.VarDecl)
	lit, ok := vd.Init.(*ast.ArrayLit)
	if !ok {
		t.Fatalf("Init is %T, want *ast.ArrayLit", vd.Init)
	}
	if len(lit.Elements) != 3 {
		t.Fatalf("got %d elements, want 3", len(lit.Elements))
	}
}

func TestParseRecordLiteral(t *testing.T) {
	program, err := testParser("var p is { x: 1, y: 2 };").ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram() error = %v", err)
	}
	vd := program.Declarations[0].(*ast.VarDecl)
	lit, ok := vd.Init.(*ast.RecordLit)
	if !ok {
		t.Fatalf("Init is %T, want *ast.RecordLit", vd.Init)
	}
	if len(lit.Fields) != 2 || lit.Fields[0].Name != "x" {
		t.Fatalf("Fields = %+v", lit.Fields)
	}
}

func TestParseArrayType(t *testing.T) {
	program, err := testParser("var a : array[10] integer;").ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram() error = %v", err)
	}
	vd := program.Declarations[0].(*ast.VarDecl)
	at, ok := vd.Type.(*ast.ArrayType)
	if !ok {
		t.Fatalf("Type is %T, want *ast.ArrayType", vd.Type)
	}
	if at.Size == nil {
		t.Error("Size is nil, want 10")
	}
	if _, ok := at.Elem.(*ast.PrimitiveType); !ok {
		t.Fatalf("Elem is %T, want *ast.PrimitiveType", at.Elem)
	}
}

func TestParseErrorOnMissingSemicolon(t *testing.T) {
	_, err := testParser("var x : integer").ParseProgram()
	if err == nil {
		t.Fatal("expected a parse error for a missing semicolon")
	}
	if _, ok := err.(*ParseError); !ok {
		t.Fatalf("error is %T, want *ParseError", err)
	}
}

func TestParseErrorOnUnknownDeclaration(t *testing.T) {
	_, err := testParser("42;").ParseProgram()
	if err == nil {
		t.Fatal("expected a parse error for a bare statement at top level")
	}
}
