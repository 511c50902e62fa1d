package semantic

import (
	"github.com/routlang/routc/internal/ast"
	"github.com/routlang/routc/internal/lexer"
)

// BodyPass is spec §4.3's Pass 2: it walks every declaration in
// source order, descending into routine bodies, enforcing the scope,
// lookup, arity, and return-context rules of §4.3 and the assignment-
// compatibility/string-operator resolutions of SPEC_FULL.md §4.3a.
//
// The reserved-encoding bypass the source spec describes for
// "array_literal", "record_literal", "field", and for-each marker
// calls has no counterpart here: those are first-class AST variants
// (ArrayLit, RecordLit/FieldInit, ForStmt) rather than string-tagged
// RoutineCalls, so there is nothing to bypass.
type BodyPass struct{}

func (BodyPass) Name() string { return "body" }

func (p BodyPass) Run(program *ast.Program, ctx *Context) error {
	for _, decl := range program.Declarations {
		switch d := decl.(type) {
		case *ast.VarDecl:
			p.checkTopLevelVar(d, ctx)
		case *ast.RoutineDecl:
			p.checkRoutine(d, ctx)
		}
	}
	return nil
}

func (p BodyPass) checkTopLevelVar(d *ast.VarDecl, ctx *Context) {
	if d.Init == nil {
		return
	}
	initType := p.inferExpr(d.Init, ctx)
	sym := ctx.Symbols.varScopes[0][key(d.Name)]
	if sym == nil {
		return // already reported as a duplicate/unknown-type error in pass 1
	}
	if sym.Resolved == nil {
		sym.Resolved = initType // type omitted: infer it from the initializer
		return
	}
	if initType != nil && !assignable(sym.Resolved.Kind, initType.Kind) {
		ctx.Diag.Errorf(d.Pos, "cannot initialize '%s' of type %s with a value of type %s", d.Name, sym.Resolved.Kind, initType.Kind)
	}
}

func (p BodyPass) checkRoutine(d *ast.RoutineDecl, ctx *Context) {
	sym, _ := ctx.Symbols.ResolveRoutine(d.Name)

	ctx.Symbols.PushVarScope()
	ctx.Symbols.PushTypeScope()
	ctx.Symbols.EnterRoutine(sym)

	for _, param := range d.Params {
		resolved, _ := ctx.Symbols.Resolve(param.Type)
		if !ctx.Symbols.DeclareVar(param.Name, param.Type, resolved, param.Pos) {
			ctx.Diag.Errorf(param.Pos, "parameter '%s' already declared", param.Name)
		}
	}

	if d.ExprBody != nil {
		exprType := p.inferExpr(d.ExprBody, ctx)
		if sym != nil && sym.Resolved != nil && exprType != nil && !assignable(sym.Resolved.Kind, exprType.Kind) {
			ctx.Diag.Errorf(d.ExprBody.Position(), "expression body of '%s' has type %s, expected %s", d.Name, exprType.Kind, sym.Resolved.Kind)
		}
	} else {
		p.walkBody(d.Body, ctx)
	}

	ctx.Symbols.ExitRoutine()
	for _, w := range ctx.Symbols.PopVarScope() {
		ctx.Diag.Warnf("%s", w)
	}
	ctx.Symbols.PopTypeScope()
}

func (p BodyPass) walkBody(body []ast.BodyElem, ctx *Context) {
	for _, elem := range body {
		switch e := elem.(type) {
		case *ast.VarDecl:
			p.checkLocalVar(e, ctx)
		case *ast.TypeDecl:
			ctx.Symbols.DeclareType(e.Name, e.Aliased)
		case *ast.AssignmentStmt:
			p.checkAssignment(e, ctx)
		case *ast.CallStmt:
			p.checkCall(e.Name, e.Args, e.Pos, ctx)
		case *ast.ReturnStmt:
			p.checkReturn(e, ctx)
		case *ast.PrintStmt:
			p.checkPrint(e, ctx)
		case *ast.IfStmt:
			p.checkIf(e, ctx)
		case *ast.WhileStmt:
			p.checkWhile(e, ctx)
		case *ast.ForStmt:
			p.checkFor(e, ctx)
		}
	}
}

// checkLocalVar implements rule 2: the initializer is checked before
// the variable itself is declared, so it cannot refer to itself.
func (p BodyPass) checkLocalVar(d *ast.VarDecl, ctx *Context) {
	var initType *ResolvedType
	if d.Init != nil {
		initType = p.inferExpr(d.Init, ctx)
	}

	var resolved *ResolvedType
	if d.Type != nil {
		r, ok := ctx.Symbols.Resolve(d.Type)
		if !ok {
			ctx.Diag.Errorf(d.Pos, "unknown type used in declaration of '%s'", d.Name)
		}
		resolved = r
	} else {
		resolved = initType
	}

	if d.Type != nil && initType != nil && resolved != nil && !assignable(resolved.Kind, initType.Kind) {
		ctx.Diag.Errorf(d.Pos, "cannot initialize '%s' of type %s with a value of type %s", d.Name, resolved.Kind, initType.Kind)
	}

	if !ctx.Symbols.DeclareVar(d.Name, d.Type, resolved, d.Pos) {
		ctx.Diag.Errorf(d.Pos, "variable '%s' already declared in this scope", d.Name)
	}
}

func (p BodyPass) checkAssignment(s *ast.AssignmentStmt, ctx *Context) {
	targetType := p.resolveAccessChain(s.Target, ctx)
	valueType := p.inferExpr(s.Value, ctx)
	if targetType != nil && valueType != nil && !assignable(targetType.Kind, valueType.Kind) {
		ctx.Diag.Errorf(s.Pos, "cannot assign value of type %s to target of type %s", valueType.Kind, targetType.Kind)
	}
}

func (p BodyPass) checkCall(name string, args []ast.Expression, pos lexer.Position, ctx *Context) {
	sym, ok := ctx.Symbols.ResolveRoutine(name)
	if !ok {
		ctx.Diag.Errorf(pos, "routine '%s' is not declared", name)
		for _, a := range args {
			p.inferExpr(a, ctx)
		}
		return
	}
	if len(args) != len(sym.Params) {
		ctx.Diag.Errorf(pos, "routine '%s' expects %d argument(s), got %d", name, len(sym.Params), len(args))
	}
	for i, a := range args {
		argType := p.inferExpr(a, ctx)
		if i < len(sym.Params) {
			paramType, ok := ctx.Symbols.Resolve(sym.Params[i].Type)
			if ok && argType != nil && !assignable(paramType.Kind, argType.Kind) {
				ctx.Diag.Errorf(a.Position(), "argument %d to '%s' has type %s, expected %s", i+1, name, argType.Kind, paramType.Kind)
			}
		}
	}
}

func (p BodyPass) checkReturn(s *ast.ReturnStmt, ctx *Context) {
	routine := ctx.Symbols.CurrentRoutine()
	if routine == nil {
		ctx.Diag.Errorf(s.Pos, "return used outside of a routine")
		return
	}
	if s.Value == nil {
		if routine.ReturnType != nil {
			ctx.Diag.Errorf(s.Pos, "routine '%s' must return a value of type %s", routine.Name, routine.Resolved.Kind)
		}
		return
	}
	valueType := p.inferExpr(s.Value, ctx)
	if routine.ReturnType == nil {
		ctx.Diag.Errorf(s.Pos, "routine '%s' does not return a value", routine.Name)
		return
	}
	if valueType != nil && routine.Resolved != nil && !assignable(routine.Resolved.Kind, valueType.Kind) {
		ctx.Diag.Errorf(s.Pos, "returned value has type %s, expected %s", valueType.Kind, routine.Resolved.Kind)
	}
}

func (p BodyPass) checkPrint(s *ast.PrintStmt, ctx *Context) {
	for _, arg := range s.Args {
		t := p.inferExpr(arg, ctx)
		if t != nil && t.Kind != KindInteger && t.Kind != KindReal && t.Kind != KindBoolean && t.Kind != KindString {
			ctx.Diag.Errorf(arg.Position(), "print does not support values of type %s", t.Kind)
		}
	}
}

func (p BodyPass) checkIf(s *ast.IfStmt, ctx *Context) {
	if t := p.inferExpr(s.Cond, ctx); t != nil && t.Kind != KindBoolean {
		ctx.Diag.Errorf(s.Cond.Position(), "if condition must be boolean, got %s", t.Kind)
	}

	ctx.Symbols.PushVarScope()
	p.walkBody(s.Then, ctx)
	for _, w := range ctx.Symbols.PopVarScope() {
		ctx.Diag.Warnf("%s", w)
	}

	if s.Else != nil {
		ctx.Symbols.PushVarScope()
		p.walkBody(s.Else, ctx)
		for _, w := range ctx.Symbols.PopVarScope() {
			ctx.Diag.Warnf("%s", w)
		}
	}
}

func (p BodyPass) checkWhile(s *ast.WhileStmt, ctx *Context) {
	if t := p.inferExpr(s.Cond, ctx); t != nil && t.Kind != KindBoolean {
		ctx.Diag.Errorf(s.Cond.Position(), "while condition must be boolean, got %s", t.Kind)
	}

	ctx.Symbols.PushVarScope()
	ctx.Symbols.EnterLoop()
	p.walkBody(s.Body, ctx)
	ctx.Symbols.ExitLoop()
	for _, w := range ctx.Symbols.PopVarScope() {
		ctx.Diag.Warnf("%s", w)
	}
}

// checkFor implements rule 3: the loop opens a fresh variable scope,
// range-bound expressions are checked before the loop variable
// exists, and the loop variable is then declared inside that scope.
func (p BodyPass) checkFor(s *ast.ForStmt, ctx *Context) {
	ctx.Symbols.PushVarScope()

	var loopVarType *ResolvedType
	if s.IsForEach() {
		ident, ok := s.Range.End.(*ast.Identifier)
		if !ok {
			ctx.Diag.Errorf(s.Range.End.Position(), "for-each loop source must be an identifier naming an array")
		} else {
			arrType := p.inferExpr(ident, ctx)
			if arrType != nil {
				if arrType.Kind != KindArray {
					ctx.Diag.Errorf(ident.Pos, "for-each loop source '%s' is not an array", ident.Name)
				} else {
					loopVarType = arrType.Elem
				}
			}
		}
	} else {
		startType := p.inferExpr(s.Range.Start, ctx)
		endType := p.inferExpr(s.Range.End, ctx)
		if startType != nil && startType.Kind != KindInteger {
			ctx.Diag.Errorf(s.Range.Start.Position(), "for-range start must be integer, got %s", startType.Kind)
		}
		if endType != nil && endType.Kind != KindInteger {
			ctx.Diag.Errorf(s.Range.End.Position(), "for-range end must be integer, got %s", endType.Kind)
		}
		loopVarType = &ResolvedType{Kind: KindInteger}
	}

	if !ctx.Symbols.DeclareVar(s.LoopVar, nil, loopVarType, s.Pos) {
		ctx.Diag.Errorf(s.Pos, "loop variable '%s' already declared in this scope", s.LoopVar)
	}

	ctx.Symbols.EnterLoop()
	p.walkBody(s.Body, ctx)
	ctx.Symbols.ExitLoop()

	for _, w := range ctx.Symbols.PopVarScope() {
		ctx.Diag.Warnf("%s", w)
	}
}

// resolveAccessChain resolves a ModifiablePrimary used as an L-value,
// reporting undeclared bases, unknown fields, and non-array indexing.
func (p BodyPass) resolveAccessChain(m *ast.ModifiablePrimary, ctx *Context) *ResolvedType {
	sym, ok := ctx.Symbols.ResolveVar(m.Base)
	if !ok {
		ctx.Diag.Errorf(m.Pos, "variable '%s' is not declared", m.Base)
		return nil
	}
	current := sym.Resolved
	for _, access := range m.Accesses {
		if current == nil {
			return nil
		}
		switch a := access.(type) {
		case *ast.FieldAccess:
			if current.Kind == KindArray && a.Name == "size" {
				current = &ResolvedType{Kind: KindInteger}
				continue
			}
			if current.Kind != KindRecord {
				ctx.Diag.Errorf(a.Pos, "'%s' is not a record", m.Base)
				return nil
			}
			field, _, ok := current.FieldType(a.Name)
			if !ok {
				ctx.Diag.Errorf(a.Pos, "record has no field '%s'", a.Name)
				return nil
			}
			current = field
		case *ast.IndexAccess:
			if current.Kind != KindArray {
				ctx.Diag.Errorf(a.Pos, "'%s' is not an array", m.Base)
				return nil
			}
			idxType := p.inferExpr(a.Index, ctx)
			if idxType != nil && idxType.Kind != KindInteger {
				ctx.Diag.Errorf(a.Index.Position(), "array index must be integer, got %s", idxType.Kind)
			}
			current = current.Elem
		}
	}
	return current
}

// inferExpr computes the resolved type of expr, recording diagnostics
// for undeclared names, arity mismatches, and operator/operand
// mismatches along the way. Returns nil when the type cannot be
// determined (an error has already been recorded in that case).
func (p BodyPass) inferExpr(expr ast.Expression, ctx *Context) *ResolvedType {
	switch e := expr.(type) {
	case *ast.IntLit:
		return &ResolvedType{Kind: KindInteger}
	case *ast.RealLit:
		return &ResolvedType{Kind: KindReal}
	case *ast.BoolLit:
		return &ResolvedType{Kind: KindBoolean}
	case *ast.StringLit:
		return &ResolvedType{Kind: KindString}
	case *ast.Identifier:
		sym, ok := ctx.Symbols.ResolveVar(e.Name)
		if !ok {
			ctx.Diag.Errorf(e.Pos, "variable '%s' is not declared", e.Name)
			return nil
		}
		return sym.Resolved
	case *ast.ModifiablePrimary:
		return p.resolveAccessChain(e, ctx)
	case *ast.UnaryExpr:
		return p.inferUnary(e, ctx)
	case *ast.BinaryExpr:
		return p.inferBinary(e, ctx)
	case *ast.FunctionCall:
		return p.inferCall(e, ctx)
	case *ast.ArrayLit:
		return p.inferArrayLit(e, ctx)
	case *ast.RecordLit:
		return p.inferRecordLit(e, ctx)
	default:
		return nil
	}
}

func (p BodyPass) inferUnary(e *ast.UnaryExpr, ctx *Context) *ResolvedType {
	t := p.inferExpr(e.Operand, ctx)
	if t == nil {
		return nil
	}
	switch e.Op {
	case lexer.NOT:
		if t.Kind != KindBoolean {
			ctx.Diag.Errorf(e.Pos, "'not' requires a boolean operand, got %s", t.Kind)
			return nil
		}
		return t
	case lexer.MINUS:
		if !t.Kind.IsNumeric() {
			ctx.Diag.Errorf(e.Pos, "unary '-' requires a numeric operand, got %s", t.Kind)
			return nil
		}
		return t
	}
	return nil
}

func (p BodyPass) inferBinary(e *ast.BinaryExpr, ctx *Context) *ResolvedType {
	left := p.inferExpr(e.Left, ctx)
	right := p.inferExpr(e.Right, ctx)
	if left == nil || right == nil {
		return nil
	}

	switch e.Op {
	case lexer.AND, lexer.OR, lexer.XOR:
		if left.Kind != KindBoolean || right.Kind != KindBoolean {
			ctx.Diag.Errorf(e.Pos, "'%s' requires boolean operands, got %s and %s", e.Op, left.Kind, right.Kind)
			return nil
		}
		return &ResolvedType{Kind: KindBoolean}

	case lexer.LESS, lexer.LESS_EQ, lexer.GREATER, lexer.GREATER_EQ:
		if !left.Kind.IsNumeric() || !right.Kind.IsNumeric() {
			ctx.Diag.Errorf(e.Pos, "'%s' requires numeric operands, got %s and %s", e.Op, left.Kind, right.Kind)
			return nil
		}
		return &ResolvedType{Kind: KindBoolean}

	case lexer.EQ, lexer.NOT_EQ:
		if left.Kind.IsNumeric() && right.Kind.IsNumeric() {
			return &ResolvedType{Kind: KindBoolean}
		}
		if left.Kind == right.Kind {
			return &ResolvedType{Kind: KindBoolean}
		}
		ctx.Diag.Errorf(e.Pos, "'%s' requires operands of compatible type, got %s and %s", e.Op, left.Kind, right.Kind)
		return nil

	case lexer.PLUS, lexer.MINUS, lexer.ASTERISK, lexer.SLASH, lexer.PERCENT:
		if !left.Kind.IsNumeric() || !right.Kind.IsNumeric() {
			ctx.Diag.Errorf(e.Pos, "'%s' requires numeric operands, got %s and %s", e.Op, left.Kind, right.Kind)
			return nil
		}
		if left.Kind == KindReal || right.Kind == KindReal {
			return &ResolvedType{Kind: KindReal}
		}
		return &ResolvedType{Kind: KindInteger}

	default:
		return nil
	}
}

func (p BodyPass) inferCall(e *ast.FunctionCall, ctx *Context) *ResolvedType {
	sym, ok := ctx.Symbols.ResolveRoutine(e.Name)
	if !ok {
		ctx.Diag.Errorf(e.Pos, "routine '%s' is not declared", e.Name)
		for _, a := range e.Args {
			p.inferExpr(a, ctx)
		}
		return nil
	}
	if len(e.Args) != len(sym.Params) {
		ctx.Diag.Errorf(e.Pos, "routine '%s' expects %d argument(s), got %d", e.Name, len(sym.Params), len(e.Args))
	}
	for i, a := range e.Args {
		argType := p.inferExpr(a, ctx)
		if i < len(sym.Params) {
			paramType, ok := ctx.Symbols.Resolve(sym.Params[i].Type)
			if ok && argType != nil && !assignable(paramType.Kind, argType.Kind) {
				ctx.Diag.Errorf(a.Position(), "argument %d to '%s' has type %s, expected %s", i+1, e.Name, argType.Kind, paramType.Kind)
			}
		}
	}
	if sym.ReturnType == nil {
		ctx.Diag.Errorf(e.Pos, "routine '%s' does not return a value", e.Name)
		return nil
	}
	return sym.Resolved
}

func (p BodyPass) inferArrayLit(e *ast.ArrayLit, ctx *Context) *ResolvedType {
	var elem *ResolvedType
	for _, el := range e.Elements {
		t := p.inferExpr(el, ctx)
		if t == nil {
			continue
		}
		if elem == nil {
			elem = t
		} else if elem.Kind != t.Kind {
			ctx.Diag.Errorf(el.Position(), "array literal elements have mismatched types %s and %s", elem.Kind, t.Kind)
		}
	}
	return &ResolvedType{Kind: KindArray, Elem: elem}
}

func (p BodyPass) inferRecordLit(e *ast.RecordLit, ctx *Context) *ResolvedType {
	fields := make([]ResolvedField, 0, len(e.Fields))
	for i, f := range e.Fields {
		t := p.inferExpr(f.Value, ctx)
		fields = append(fields, ResolvedField{Name: f.Name, Type: t, Offset: i * 4})
	}
	return &ResolvedType{Kind: KindRecord, Fields: fields}
}

// assignable reports whether a value of kind `value` may be assigned
// to a target of kind `target`, per SPEC_FULL.md §4.3a resolution 3:
// identical kinds always match, and integer widens to real.
func assignable(target, value Kind) bool {
	if target == value {
		return true
	}
	return target == KindReal && value == KindInteger
}
