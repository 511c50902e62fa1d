package codegen

import (
	"fmt"
	"strings"

	"github.com/routlang/routc/internal/ast"
	"github.com/routlang/routc/internal/lexer"
	"github.com/routlang/routc/internal/semantic"
)

// kindOf classifies an expression's resolved Kind directly from the
// (checked, optimized) tree, rather than consulting an annotation left
// by the analyzer: the optimizer is free to replace any node wholesale,
// so no earlier annotation keyed by node identity would reliably
// survive to this stage. The tree is assumed already valid, so no
// error path is needed here — only classification.
func (g *Generator) kindOf(e ast.Expression) *semantic.ResolvedType {
	switch ex := e.(type) {
	case *ast.IntLit:
		return &semantic.ResolvedType{Kind: semantic.KindInteger}
	case *ast.RealLit:
		return &semantic.ResolvedType{Kind: semantic.KindReal}
	case *ast.BoolLit:
		return &semantic.ResolvedType{Kind: semantic.KindBoolean}
	case *ast.StringLit:
		return &semantic.ResolvedType{Kind: semantic.KindString}
	case *ast.Identifier:
		return g.varType(ex.Name)
	case *ast.ModifiablePrimary:
		return g.accessChainType(ex)
	case *ast.UnaryExpr:
		if ex.Op == lexer.NOT {
			return &semantic.ResolvedType{Kind: semantic.KindBoolean}
		}
		return g.kindOf(ex.Operand)
	case *ast.BinaryExpr:
		return g.binaryKind(ex)
	case *ast.FunctionCall:
		if sym, ok := g.symbols.ResolveRoutine(ex.Name); ok && sym.Resolved != nil {
			return sym.Resolved
		}
		return &semantic.ResolvedType{Kind: semantic.KindInteger}
	case *ast.ArrayLit:
		var elem *semantic.ResolvedType
		if len(ex.Elements) > 0 {
			elem = g.kindOf(ex.Elements[0])
		}
		return &semantic.ResolvedType{Kind: semantic.KindArray, Elem: elem}
	case *ast.RecordLit:
		fields := make([]semantic.ResolvedField, len(ex.Fields))
		for i, f := range ex.Fields {
			fields[i] = semantic.ResolvedField{Name: f.Name, Type: g.kindOf(f.Value), Offset: i * 4}
		}
		return &semantic.ResolvedType{Kind: semantic.KindRecord, Fields: fields}
	default:
		return &semantic.ResolvedType{Kind: semantic.KindInteger}
	}
}

func (g *Generator) binaryKind(ex *ast.BinaryExpr) *semantic.ResolvedType {
	switch ex.Op {
	case lexer.AND, lexer.OR, lexer.XOR, lexer.LESS, lexer.LESS_EQ,
		lexer.GREATER, lexer.GREATER_EQ, lexer.EQ, lexer.NOT_EQ:
		return &semantic.ResolvedType{Kind: semantic.KindBoolean}
	default:
		left := g.kindOf(ex.Left)
		right := g.kindOf(ex.Right)
		if (left != nil && left.Kind == semantic.KindReal) || (right != nil && right.Kind == semantic.KindReal) {
			return &semantic.ResolvedType{Kind: semantic.KindReal}
		}
		return &semantic.ResolvedType{Kind: semantic.KindInteger}
	}
}

func (g *Generator) varType(name string) *semantic.ResolvedType {
	if t, ok := g.locals[name]; ok {
		return t
	}
	if sym, ok := g.symbols.GlobalVars()[strings.ToLower(name)]; ok {
		return sym.Resolved
	}
	return &semantic.ResolvedType{Kind: semantic.KindInteger}
}

func (g *Generator) isLocal(name string) bool {
	_, ok := g.locals[name]
	return ok
}

func (g *Generator) accessChainType(m *ast.ModifiablePrimary) *semantic.ResolvedType {
	current := g.varType(m.Base)
	for _, access := range m.Accesses {
		if current == nil {
			return &semantic.ResolvedType{Kind: semantic.KindInteger}
		}
		switch a := access.(type) {
		case *ast.FieldAccess:
			if current.Kind == semantic.KindArray && a.Name == "size" {
				current = &semantic.ResolvedType{Kind: semantic.KindInteger}
				continue
			}
			if field, _, ok := current.FieldType(a.Name); ok {
				current = field
			} else {
				current = &semantic.ResolvedType{Kind: semantic.KindInteger}
			}
		case *ast.IndexAccess:
			current = current.Elem
		}
	}
	if current == nil {
		return &semantic.ResolvedType{Kind: semantic.KindInteger}
	}
	return current
}

func (g *Generator) emitVarRead(b *strings.Builder, name, ind string) {
	if g.isLocal(name) {
		fmt.Fprintf(b, "%slocal.get $%s\n", ind, name)
		return
	}
	fmt.Fprintf(b, "%sglobal.get $%s\n", ind, name)
}

// emitExpr lowers e, leaving its value on top of the stack.
func (g *Generator) emitExpr(b *strings.Builder, e ast.Expression, ind string) {
	switch ex := e.(type) {
	case *ast.IntLit:
		fmt.Fprintf(b, "%si32.const %d\n", ind, ex.Value)
	case *ast.RealLit:
		fmt.Fprintf(b, "%sf64.const %s\n", ind, formatFloat(ex.Value))
	case *ast.BoolLit:
		fmt.Fprintf(b, "%si32.const %d\n", ind, boolToI32(ex.Value))
	case *ast.StringLit:
		fmt.Fprintf(b, "%si32.const %d\n", ind, g.strLiterals[ex.Value])
	case *ast.Identifier:
		g.emitVarRead(b, ex.Name, ind)
	case *ast.ModifiablePrimary:
		g.emitAccessRead(b, ex, ind)
	case *ast.UnaryExpr:
		g.emitUnary(b, ex, ind)
	case *ast.BinaryExpr:
		g.emitBinary(b, ex, ind)
	case *ast.FunctionCall:
		for _, a := range ex.Args {
			g.emitExpr(b, a, ind)
		}
		fmt.Fprintf(b, "%scall $%s\n", ind, ex.Name)
	case *ast.ArrayLit:
		g.emitArrayLit(b, ex, ind)
	case *ast.RecordLit:
		g.emitRecordLit(b, ex, ind)
	}
}

// emitAccessRead lowers a ModifiablePrimary read: push the base value,
// then walk each access step computing an address and loading through
// it. `base.size` is the special pseudo-field reading an array's
// header word; `base[i]` uses the 1-based offset spec §4.5 specifies.
func (g *Generator) emitAccessRead(b *strings.Builder, m *ast.ModifiablePrimary, ind string) {
	g.emitVarRead(b, m.Base, ind)
	if len(m.Accesses) == 0 {
		return
	}

	current := g.varType(m.Base)
	for _, access := range m.Accesses {
		switch a := access.(type) {
		case *ast.FieldAccess:
			if current != nil && current.Kind == semantic.KindArray && a.Name == "size" {
				fmt.Fprintf(b, "%si32.load\n", ind)
				current = &semantic.ResolvedType{Kind: semantic.KindInteger}
				continue
			}
			var field *semantic.ResolvedType
			offset := 0
			if current != nil {
				field, offset, _ = current.FieldType(a.Name)
			}
			if offset != 0 {
				fmt.Fprintf(b, "%si32.const %d\n%si32.add\n", ind, offset, ind)
			}
			fmt.Fprintf(b, "%si32.load\n", ind)
			current = field
		case *ast.IndexAccess:
			fmt.Fprintf(b, "%si32.const 4\n%si32.add\n", ind, ind)
			g.emitExpr(b, a.Index, ind)
			fmt.Fprintf(b, "%si32.const 1\n%si32.sub\n%si32.const 4\n%si32.mul\n%si32.add\n", ind, ind, ind, ind, ind)
			fmt.Fprintf(b, "%si32.load\n", ind)
			if current != nil {
				current = current.Elem
			}
		}
	}
}

func (g *Generator) emitUnary(b *strings.Builder, ex *ast.UnaryExpr, ind string) {
	g.emitExpr(b, ex.Operand, ind)
	switch ex.Op {
	case lexer.NOT:
		fmt.Fprintf(b, "%si32.eqz\n", ind)
	case lexer.MINUS:
		if k := g.kindOf(ex.Operand); k != nil && k.Kind == semantic.KindReal {
			fmt.Fprintf(b, "%sf64.neg\n", ind)
		} else {
			fmt.Fprintf(b, "%si32.const -1\n%si32.mul\n", ind, ind)
		}
	}
}

// emitBinary lowers a BinaryExpr. The effective operand type is f64 if
// either side infers to f64, per spec §4.5; the narrower side is
// converted with f64.convert_i32_s before the operator.
func (g *Generator) emitBinary(b *strings.Builder, ex *ast.BinaryExpr, ind string) {
	leftKind := g.kindOf(ex.Left)
	rightKind := g.kindOf(ex.Right)
	isReal := (leftKind != nil && leftKind.Kind == semantic.KindReal) || (rightKind != nil && rightKind.Kind == semantic.KindReal)

	g.emitExpr(b, ex.Left, ind)
	if isReal && (leftKind == nil || leftKind.Kind != semantic.KindReal) {
		fmt.Fprintf(b, "%sf64.convert_i32_s\n", ind)
	}
	g.emitExpr(b, ex.Right, ind)
	if isReal && (rightKind == nil || rightKind.Kind != semantic.KindReal) {
		fmt.Fprintf(b, "%sf64.convert_i32_s\n", ind)
	}

	switch ex.Op {
	case lexer.AND:
		fmt.Fprintf(b, "%si32.and\n", ind)
	case lexer.OR:
		fmt.Fprintf(b, "%si32.or\n", ind)
	case lexer.XOR:
		fmt.Fprintf(b, "%si32.xor\n", ind)
	case lexer.PLUS:
		fmt.Fprintf(b, "%s%s.add\n", ind, arithType(isReal))
	case lexer.MINUS:
		fmt.Fprintf(b, "%s%s.sub\n", ind, arithType(isReal))
	case lexer.ASTERISK:
		fmt.Fprintf(b, "%s%s.mul\n", ind, arithType(isReal))
	case lexer.SLASH:
		if isReal {
			fmt.Fprintf(b, "%sf64.div\n", ind)
		} else {
			fmt.Fprintf(b, "%si32.div_s\n", ind)
		}
	case lexer.PERCENT:
		if isReal {
			fmt.Fprintf(b, "%scall $__fmod\n", ind)
		} else {
			fmt.Fprintf(b, "%si32.rem_s\n", ind)
		}
	case lexer.LESS:
		fmt.Fprintf(b, "%s%s\n", ind, cmp(isReal, "lt_s", "lt"))
	case lexer.LESS_EQ:
		fmt.Fprintf(b, "%s%s\n", ind, cmp(isReal, "le_s", "le"))
	case lexer.GREATER:
		fmt.Fprintf(b, "%s%s\n", ind, cmp(isReal, "gt_s", "gt"))
	case lexer.GREATER_EQ:
		fmt.Fprintf(b, "%s%s\n", ind, cmp(isReal, "ge_s", "ge"))
	case lexer.EQ:
		fmt.Fprintf(b, "%s%s\n", ind, cmp(isReal, "eq", "eq"))
	case lexer.NOT_EQ:
		fmt.Fprintf(b, "%s%s\n", ind, cmp(isReal, "ne", "ne"))
	}
}

func arithType(isReal bool) string {
	if isReal {
		return "f64"
	}
	return "i32"
}

// cmp names the comparison opcode for the operand type: i32 comparisons
// use the signed *_s spellings, f64 comparisons use the correct
// unsigned-less-than-free f64.lt/le/gt/ge/eq/ne family (spec §4.5:
// `f64.lt_s` is not valid WAT).
func cmp(isReal bool, i32Op, f64Op string) string {
	if isReal {
		return "f64." + f64Op
	}
	return "i32." + i32Op
}

// emitArrayLit lowers [e1, ..., eN]: a header word N, then N i32
// words, bump-allocated at $__bump and left as the result pointer.
func (g *Generator) emitArrayLit(b *strings.Builder, ex *ast.ArrayLit, ind string) {
	local := g.aggLocals[ex]
	fmt.Fprintf(b, "%sglobal.get $__bump\n%slocal.set $%s\n", ind, ind, local)
	fmt.Fprintf(b, "%slocal.get $%s\n%si32.const %d\n%si32.store\n", ind, local, ind, len(ex.Elements), ind)

	for i, el := range ex.Elements {
		offset := 4 + 4*i
		fmt.Fprintf(b, "%slocal.get $%s\n%si32.const %d\n%si32.add\n", ind, local, ind, offset, ind)
		g.emitExpr(b, el, ind)
		if k := g.kindOf(el); k != nil && k.Kind == semantic.KindReal {
			fmt.Fprintf(b, "%si32.trunc_f64_s\n", ind)
		}
		fmt.Fprintf(b, "%si32.store\n", ind)
	}

	size := 4 + 4*len(ex.Elements)
	fmt.Fprintf(b, "%sglobal.get $__bump\n%si32.const %d\n%si32.add\n%sglobal.set $__bump\n", ind, ind, size, ind, ind)
	fmt.Fprintf(b, "%slocal.get $%s\n", ind, local)
}

// emitRecordLit lowers {f1: v1, ..., fk: vk}: k consecutive i32 words
// at offsets taken from the literal's own field order, bump-allocated
// and left as the result pointer. This matches the declared record
// type's offsets exactly when the literal lists fields in declaration
// order, which every field-access path in this generator relies on;
// see DESIGN.md for the tradeoff.
func (g *Generator) emitRecordLit(b *strings.Builder, ex *ast.RecordLit, ind string) {
	local := g.aggLocals[ex]
	fmt.Fprintf(b, "%sglobal.get $__bump\n%slocal.set $%s\n", ind, ind, local)

	for i, f := range ex.Fields {
		offset := 4 * i
		fmt.Fprintf(b, "%slocal.get $%s\n", ind, local)
		if offset != 0 {
			fmt.Fprintf(b, "%si32.const %d\n%si32.add\n", ind, offset, ind)
		}
		g.emitExpr(b, f.Value, ind)
		if k := g.kindOf(f.Value); k != nil && k.Kind == semantic.KindReal {
			fmt.Fprintf(b, "%si32.trunc_f64_s\n", ind)
		}
		fmt.Fprintf(b, "%si32.store\n", ind)
	}

	size := 4 * len(ex.Fields)
	fmt.Fprintf(b, "%sglobal.get $__bump\n%si32.const %d\n%si32.add\n%sglobal.set $__bump\n", ind, ind, size, ind, ind)
	fmt.Fprintf(b, "%slocal.get $%s\n", ind, local)
}
