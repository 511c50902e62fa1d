// Package optimizer rewrites a fully-checked AST into an equivalent
// one with constant folding, if-simplification, and post-return dead
// code elimination applied, per spec §4.4.
//
// The teacher repo's own optimizer (internal/bytecode/optimizer.go)
// operates on a flat bytecode stream with a pass/config registry; an
// AST-to-AST pass has no instruction stream to walk, so this package
// is new code. What carries over from the teacher's shape is the
// published "how many rewrites fired" counter used for diagnostics,
// mirrored here as Optimizer.Applied.
package optimizer

import (
	"github.com/routlang/routc/internal/ast"
	"github.com/routlang/routc/internal/lexer"
)

// Optimizer runs one bottom-up rewrite pass over a Program. It is not
// iterated to a fixed point: strict bottom-up order means no
// transformation below can open a folding opportunity the same pass
// already walked past.
type Optimizer struct {
	applied int
}

// New creates an Optimizer with its rewrite counter at zero.
func New() *Optimizer { return &Optimizer{} }

// Applied returns the number of rewrites performed by the most recent
// call to Optimize.
func (o *Optimizer) Applied() int { return o.applied }

// Optimize returns a new Program with every RoutineDecl and top-level
// VarDecl initializer rewritten. TypeDecls are untouched: they carry
// no expressions to fold.
func (o *Optimizer) Optimize(program *ast.Program) *ast.Program {
	o.applied = 0
	decls := make([]ast.Declaration, len(program.Declarations))
	for i, d := range program.Declarations {
		decls[i] = o.optimizeDeclaration(d)
	}
	return &ast.Program{Declarations: decls}
}

func (o *Optimizer) optimizeDeclaration(d ast.Declaration) ast.Declaration {
	switch decl := d.(type) {
	case *ast.VarDecl:
		if decl.Init == nil {
			return decl
		}
		nv := *decl
		nv.Init = o.optimizeExpr(decl.Init)
		return &nv
	case *ast.RoutineDecl:
		nr := *decl
		if decl.ExprBody != nil {
			nr.ExprBody = o.optimizeExpr(decl.ExprBody)
		} else {
			nr.Body = o.optimizeBody(decl.Body)
		}
		return &nr
	default:
		return d
	}
}

// optimizeBody rewrites every element, then applies post-return dead
// code elimination (rule 4) to the resulting flat list. If-
// simplification (rule 3) can splice a single element into many (the
// then/else branch's statements) or zero (an eliminated else-less
// if), so each element expands before the elements are concatenated.
func (o *Optimizer) optimizeBody(body []ast.BodyElem) []ast.BodyElem {
	var expanded []ast.BodyElem
	for _, elem := range body {
		expanded = append(expanded, o.optimizeBodyElem(elem)...)
	}
	return o.dropDeadCode(expanded)
}

func (o *Optimizer) dropDeadCode(body []ast.BodyElem) []ast.BodyElem {
	for i, elem := range body {
		if _, ok := elem.(*ast.ReturnStmt); ok {
			if i+1 < len(body) {
				o.applied++
			}
			return body[:i+1]
		}
	}
	return body
}

func (o *Optimizer) optimizeBodyElem(elem ast.BodyElem) []ast.BodyElem {
	switch e := elem.(type) {
	case *ast.VarDecl:
		if e.Init == nil {
			return []ast.BodyElem{e}
		}
		nv := *e
		nv.Init = o.optimizeExpr(e.Init)
		return []ast.BodyElem{&nv}

	case *ast.TypeDecl:
		return []ast.BodyElem{e}

	case *ast.AssignmentStmt:
		ns := *e
		nt := *e.Target
		nt.Accesses = o.optimizeAccesses(e.Target.Accesses)
		ns.Target = &nt
		ns.Value = o.optimizeExpr(e.Value)
		return []ast.BodyElem{&ns}

	case *ast.CallStmt:
		nc := *e
		nc.Args = o.optimizeExprList(e.Args)
		return []ast.BodyElem{&nc}

	case *ast.ReturnStmt:
		if e.Value == nil {
			return []ast.BodyElem{e}
		}
		nr := *e
		nr.Value = o.optimizeExpr(e.Value)
		return []ast.BodyElem{&nr}

	case *ast.PrintStmt:
		np := *e
		np.Args = o.optimizeExprList(e.Args)
		return []ast.BodyElem{&np}

	case *ast.IfStmt:
		return o.optimizeIf(e)

	case *ast.WhileStmt:
		nw := *e
		nw.Cond = o.optimizeExpr(e.Cond)
		nw.Body = o.optimizeBody(e.Body)
		return []ast.BodyElem{&nw}

	case *ast.ForStmt:
		nf := *e
		r := *e.Range
		if r.Start != nil {
			r.Start = o.optimizeExpr(r.Start)
		}
		r.End = o.optimizeExpr(r.End)
		nf.Range = &r
		nf.Body = o.optimizeBody(e.Body)
		return []ast.BodyElem{&nf}

	default:
		return []ast.BodyElem{elem}
	}
}

// optimizeIf implements rule 3: a condition that folds to a BOOL
// literal collapses the statement to one branch, or removes it
// entirely when the condition is false with no else.
func (o *Optimizer) optimizeIf(e *ast.IfStmt) []ast.BodyElem {
	cond := o.optimizeExpr(e.Cond)
	then := o.optimizeBody(e.Then)
	var els []ast.BodyElem
	if e.Else != nil {
		els = o.optimizeBody(e.Else)
	}

	if lit, ok := cond.(*ast.BoolLit); ok {
		o.applied++
		if lit.Value {
			return then
		}
		return els
	}

	ni := *e
	ni.Cond = cond
	ni.Then = then
	ni.Else = els
	return []ast.BodyElem{&ni}
}

func (o *Optimizer) optimizeExprList(exprs []ast.Expression) []ast.Expression {
	if exprs == nil {
		return nil
	}
	out := make([]ast.Expression, len(exprs))
	for i, e := range exprs {
		out[i] = o.optimizeExpr(e)
	}
	return out
}

func (o *Optimizer) optimizeExpr(e ast.Expression) ast.Expression {
	switch expr := e.(type) {
	case *ast.IntLit, *ast.RealLit, *ast.BoolLit, *ast.StringLit, *ast.Identifier:
		return e

	case *ast.UnaryExpr:
		return o.optimizeUnary(expr)

	case *ast.BinaryExpr:
		return o.optimizeBinary(expr)

	case *ast.FunctionCall:
		nc := *expr
		nc.Args = o.optimizeExprList(expr.Args)
		return &nc

	case *ast.ModifiablePrimary:
		nm := *expr
		nm.Accesses = o.optimizeAccesses(expr.Accesses)
		return &nm

	case *ast.ArrayLit:
		na := *expr
		na.Elements = o.optimizeExprList(expr.Elements)
		return &na

	case *ast.RecordLit:
		nr := *expr
		fields := make([]*ast.FieldInit, len(expr.Fields))
		for i, f := range expr.Fields {
			nf := *f
			nf.Value = o.optimizeExpr(f.Value)
			fields[i] = &nf
		}
		nr.Fields = fields
		return &nr

	default:
		return e
	}
}

func (o *Optimizer) optimizeAccesses(accesses []ast.Access) []ast.Access {
	if accesses == nil {
		return nil
	}
	out := make([]ast.Access, len(accesses))
	for i, a := range accesses {
		if idx, ok := a.(*ast.IndexAccess); ok {
			ni := *idx
			ni.Index = o.optimizeExpr(idx.Index)
			out[i] = &ni
			continue
		}
		out[i] = a
	}
	return out
}

// optimizeUnary implements rule 2: `not literal-bool` folds to its
// negation, and `-(-x)` folds away to `x`. No other unary fold is
// specified, so no other unary fold is performed.
func (o *Optimizer) optimizeUnary(expr *ast.UnaryExpr) ast.Expression {
	operand := o.optimizeExpr(expr.Operand)

	if expr.Op == lexer.NOT {
		if b, ok := operand.(*ast.BoolLit); ok {
			o.applied++
			return &ast.BoolLit{Value: !b.Value, Pos: expr.Pos}
		}
	}
	if expr.Op == lexer.MINUS {
		if inner, ok := operand.(*ast.UnaryExpr); ok && inner.Op == lexer.MINUS {
			o.applied++
			return inner.Operand
		}
	}

	if operand == expr.Operand {
		return expr
	}
	nu := *expr
	nu.Operand = operand
	return &nu
}

// optimizeBinary implements rule 1: constant folding across the
// literal/operator combinations spec §4.4 enumerates.
func (o *Optimizer) optimizeBinary(expr *ast.BinaryExpr) ast.Expression {
	left := o.optimizeExpr(expr.Left)
	right := o.optimizeExpr(expr.Right)

	if folded, ok := foldBinary(expr.Op, left, right, expr.Pos); ok {
		o.applied++
		return folded
	}

	if left == expr.Left && right == expr.Right {
		return expr
	}
	nb := *expr
	nb.Left = left
	nb.Right = right
	return &nb
}

func foldBinary(op lexer.TokenType, left, right ast.Expression, pos lexer.Position) (ast.Expression, bool) {
	switch l := left.(type) {
	case *ast.IntLit:
		if r, ok := right.(*ast.IntLit); ok {
			return foldIntInt(op, l.Value, r.Value, pos)
		}
		if r, ok := right.(*ast.RealLit); ok {
			return foldRealReal(op, float64(l.Value), r.Value, pos)
		}
	case *ast.RealLit:
		if r, ok := right.(*ast.RealLit); ok {
			return foldRealReal(op, l.Value, r.Value, pos)
		}
		if r, ok := right.(*ast.IntLit); ok {
			return foldRealReal(op, l.Value, float64(r.Value), pos)
		}
	case *ast.BoolLit:
		if r, ok := right.(*ast.BoolLit); ok {
			return foldBoolBool(op, l.Value, r.Value, pos)
		}
	}
	return nil, false
}

// foldIntInt folds two integer literals. Division and modulo by zero
// are explicitly excluded from folding per spec §4.4 rule 1.
func foldIntInt(op lexer.TokenType, l, r int32, pos lexer.Position) (ast.Expression, bool) {
	switch op {
	case lexer.PLUS:
		return &ast.IntLit{Value: l + r, Pos: pos}, true
	case lexer.MINUS:
		return &ast.IntLit{Value: l - r, Pos: pos}, true
	case lexer.ASTERISK:
		return &ast.IntLit{Value: l * r, Pos: pos}, true
	case lexer.SLASH:
		if r == 0 {
			return nil, false
		}
		return &ast.IntLit{Value: l / r, Pos: pos}, true
	case lexer.PERCENT:
		if r == 0 {
			return nil, false
		}
		return &ast.IntLit{Value: l % r, Pos: pos}, true
	case lexer.LESS:
		return &ast.BoolLit{Value: l < r, Pos: pos}, true
	case lexer.LESS_EQ:
		return &ast.BoolLit{Value: l <= r, Pos: pos}, true
	case lexer.GREATER:
		return &ast.BoolLit{Value: l > r, Pos: pos}, true
	case lexer.GREATER_EQ:
		return &ast.BoolLit{Value: l >= r, Pos: pos}, true
	case lexer.EQ:
		return &ast.BoolLit{Value: l == r, Pos: pos}, true
	case lexer.NOT_EQ:
		return &ast.BoolLit{Value: l != r, Pos: pos}, true
	default:
		return nil, false
	}
}

func foldRealReal(op lexer.TokenType, l, r float64, pos lexer.Position) (ast.Expression, bool) {
	switch op {
	case lexer.PLUS:
		return &ast.RealLit{Value: l + r, Pos: pos}, true
	case lexer.MINUS:
		return &ast.RealLit{Value: l - r, Pos: pos}, true
	case lexer.ASTERISK:
		return &ast.RealLit{Value: l * r, Pos: pos}, true
	case lexer.SLASH:
		if r == 0 {
			return nil, false
		}
		return &ast.RealLit{Value: l / r, Pos: pos}, true
	case lexer.LESS:
		return &ast.BoolLit{Value: l < r, Pos: pos}, true
	case lexer.LESS_EQ:
		return &ast.BoolLit{Value: l <= r, Pos: pos}, true
	case lexer.GREATER:
		return &ast.BoolLit{Value: l > r, Pos: pos}, true
	case lexer.GREATER_EQ:
		return &ast.BoolLit{Value: l >= r, Pos: pos}, true
	case lexer.EQ:
		return &ast.BoolLit{Value: l == r, Pos: pos}, true
	case lexer.NOT_EQ:
		return &ast.BoolLit{Value: l != r, Pos: pos}, true
	default:
		return nil, false
	}
}

// foldBoolBool folds two boolean literals. `and`/`or`/`=`/`/=` fold;
// `xor` is the "other boolean operator" spec §4.4 rule 1 excludes.
func foldBoolBool(op lexer.TokenType, l, r bool, pos lexer.Position) (ast.Expression, bool) {
	switch op {
	case lexer.AND:
		return &ast.BoolLit{Value: l && r, Pos: pos}, true
	case lexer.OR:
		return &ast.BoolLit{Value: l || r, Pos: pos}, true
	case lexer.EQ:
		return &ast.BoolLit{Value: l == r, Pos: pos}, true
	case lexer.NOT_EQ:
		return &ast.BoolLit{Value: l != r, Pos: pos}, true
	default:
		return nil, false
	}
}
