package codegen

import (
	"fmt"
	"strings"

	"github.com/routlang/routc/internal/ast"
	"github.com/routlang/routc/internal/semantic"
)

// emitBody lowers a statement sequence in order.
func (g *Generator) emitBody(b *strings.Builder, body []ast.BodyElem, ind string) {
	for _, elem := range body {
		switch e := elem.(type) {
		case *ast.VarDecl:
			g.emitLocalVarDecl(b, e, ind)
		case *ast.AssignmentStmt:
			g.emitAssignment(b, e, ind)
		case *ast.CallStmt:
			for _, a := range e.Args {
				g.emitExpr(b, a, ind)
			}
			fmt.Fprintf(b, "%scall $%s\n", ind, e.Name)
			if sym, ok := g.symbols.ResolveRoutine(e.Name); ok && sym.ReturnType != nil {
				fmt.Fprintf(b, "%sdrop\n", ind)
			}
		case *ast.ReturnStmt:
			if e.Value != nil {
				g.emitExpr(b, e.Value, ind)
			}
			fmt.Fprintf(b, "%sreturn\n", ind)
		case *ast.PrintStmt:
			g.emitPrint(b, e, ind)
		case *ast.IfStmt:
			g.emitIf(b, e, ind)
		case *ast.WhileStmt:
			g.emitWhile(b, e, ind)
		case *ast.ForStmt:
			g.emitFor(b, e, ind)
		}
	}
}

func (g *Generator) emitLocalVarDecl(b *strings.Builder, e *ast.VarDecl, ind string) {
	if e.Init == nil {
		return // WASM locals start zeroed; nothing further to emit
	}
	g.emitExpr(b, e.Init, ind)
	g.emitConvert(b, g.kindOf(e.Init), g.locals[e.Name], ind)
	fmt.Fprintf(b, "%slocal.set $%s\n", ind, e.Name)
}

func (g *Generator) emitPrint(b *strings.Builder, e *ast.PrintStmt, ind string) {
	for _, a := range e.Args {
		g.emitExpr(b, a, ind)
		fmt.Fprintf(b, "%scall $%s\n", ind, printFuncFor(g.kindOf(a)))
	}
	fmt.Fprintf(b, "%scall $printNewline\n", ind)
}

func printFuncFor(k *semantic.ResolvedType) string {
	if k == nil {
		return "printInt"
	}
	switch k.Kind {
	case semantic.KindReal:
		return "printFloat"
	case semantic.KindBoolean:
		return "printBool"
	case semantic.KindString:
		return "printString"
	default:
		return "printInt"
	}
}

// emitConvert bridges an i32/f64 mismatch between a computed value
// (from) and the slot it is being stored into (to). A nil side (kind
// unknown) is left alone rather than guessed at.
func (g *Generator) emitConvert(b *strings.Builder, from, to *semantic.ResolvedType, ind string) {
	if from == nil || to == nil || from.Kind == to.Kind {
		return
	}
	switch {
	case to.Kind == semantic.KindReal && from.Kind != semantic.KindReal:
		fmt.Fprintf(b, "%sf64.convert_i32_s\n", ind)
	case to.Kind != semantic.KindReal && from.Kind == semantic.KindReal:
		fmt.Fprintf(b, "%si32.trunc_f64_s\n", ind)
	}
}

func storeType(t *semantic.ResolvedType) string {
	if t != nil && t.Kind == semantic.KindReal {
		return "f64"
	}
	return "i32"
}

// emitAssignment lowers Target := Value. A bare identifier target is a
// direct local.set/global.set; an access-chain target walks every step
// but the last the same way a read would (dereferencing through each
// intermediate pointer), then computes the final step's address
// without loading through it, so the address is ready for the store
// that follows the value.
func (g *Generator) emitAssignment(b *strings.Builder, s *ast.AssignmentStmt, ind string) {
	target := s.Target
	if len(target.Accesses) == 0 {
		g.emitExpr(b, s.Value, ind)
		g.emitConvert(b, g.kindOf(s.Value), g.varType(target.Base), ind)
		if g.isLocal(target.Base) {
			fmt.Fprintf(b, "%slocal.set $%s\n", ind, target.Base)
		} else {
			fmt.Fprintf(b, "%sglobal.set $%s\n", ind, target.Base)
		}
		return
	}

	g.emitVarRead(b, target.Base, ind)
	current := g.varType(target.Base)
	for i, access := range target.Accesses {
		last := i == len(target.Accesses)-1
		switch a := access.(type) {
		case *ast.FieldAccess:
			var field *semantic.ResolvedType
			offset := 0
			if current != nil {
				field, offset, _ = current.FieldType(a.Name)
			}
			if offset != 0 {
				fmt.Fprintf(b, "%si32.const %d\n%si32.add\n", ind, offset, ind)
			}
			if !last {
				fmt.Fprintf(b, "%si32.load\n", ind)
			}
			current = field
		case *ast.IndexAccess:
			fmt.Fprintf(b, "%si32.const 4\n%si32.add\n", ind, ind)
			g.emitExpr(b, a.Index, ind)
			fmt.Fprintf(b, "%si32.const 1\n%si32.sub\n%si32.const 4\n%si32.mul\n%si32.add\n", ind, ind, ind, ind, ind)
			if !last {
				fmt.Fprintf(b, "%si32.load\n", ind)
			}
			if current != nil {
				current = current.Elem
			}
		}
	}

	g.emitExpr(b, s.Value, ind)
	g.emitConvert(b, g.kindOf(s.Value), current, ind)
	fmt.Fprintf(b, "%s%s.store\n", ind, storeType(current))
}

func (g *Generator) emitIf(b *strings.Builder, e *ast.IfStmt, ind string) {
	g.emitExpr(b, e.Cond, ind)
	fmt.Fprintf(b, "%sif\n", ind)
	g.emitBody(b, e.Then, ind+"  ")
	if len(e.Else) > 0 {
		fmt.Fprintf(b, "%selse\n", ind)
		g.emitBody(b, e.Else, ind+"  ")
	}
	fmt.Fprintf(b, "%send\n", ind)
}

func (g *Generator) emitWhile(b *strings.Builder, e *ast.WhileStmt, ind string) {
	endLabel := g.nextLabel("while_end")
	startLabel := g.nextLabel("while_start")
	fmt.Fprintf(b, "%sblock %s\n", ind, endLabel)
	fmt.Fprintf(b, "%s  loop %s\n", ind, startLabel)
	g.emitExpr(b, e.Cond, ind+"    ")
	fmt.Fprintf(b, "%s    i32.eqz\n", ind)
	fmt.Fprintf(b, "%s    br_if %s\n", ind, endLabel)
	g.emitBody(b, e.Body, ind+"    ")
	fmt.Fprintf(b, "%s    br %s\n", ind, startLabel)
	fmt.Fprintf(b, "%s  end\n", ind)
	fmt.Fprintf(b, "%send\n", ind)
}

func (g *Generator) emitFor(b *strings.Builder, e *ast.ForStmt, ind string) {
	if e.IsForEach() {
		g.emitForEach(b, e, ind)
		return
	}

	g.emitExpr(b, e.Range.Start, ind)
	fmt.Fprintf(b, "%slocal.set $%s\n", ind, e.LoopVar)

	endLabel := g.nextLabel("for_end")
	startLabel := g.nextLabel("for_start")
	fmt.Fprintf(b, "%sblock %s\n", ind, endLabel)
	fmt.Fprintf(b, "%s  loop %s\n", ind, startLabel)

	fmt.Fprintf(b, "%s    local.get $%s\n", ind, e.LoopVar)
	g.emitExpr(b, e.Range.End, ind+"    ")
	if e.Reverse {
		fmt.Fprintf(b, "%s    i32.lt_s\n", ind)
	} else {
		fmt.Fprintf(b, "%s    i32.gt_s\n", ind)
	}
	fmt.Fprintf(b, "%s    br_if %s\n", ind, endLabel)

	g.emitBody(b, e.Body, ind+"    ")

	fmt.Fprintf(b, "%s    local.get $%s\n", ind, e.LoopVar)
	fmt.Fprintf(b, "%s    i32.const 1\n", ind)
	if e.Reverse {
		fmt.Fprintf(b, "%s    i32.sub\n", ind)
	} else {
		fmt.Fprintf(b, "%s    i32.add\n", ind)
	}
	fmt.Fprintf(b, "%s    local.set $%s\n", ind, e.LoopVar)
	fmt.Fprintf(b, "%s    br %s\n", ind, startLabel)
	fmt.Fprintf(b, "%s  end\n", ind)
	fmt.Fprintf(b, "%send\n", ind)
}

// emitForEach lowers `for x in arr loop ... end`: a hidden 1-based index
// local walks the array's header-word length, loading each element
// into LoopVar before the body runs.
func (g *Generator) emitForEach(b *strings.Builder, e *ast.ForStmt, ind string) {
	idx := g.forIndexes[e]

	arrName := ""
	if ident, ok := e.Range.End.(*ast.Identifier); ok {
		arrName = ident.Name
	}

	fmt.Fprintf(b, "%si32.const 1\n%slocal.set $%s\n", ind, ind, idx)

	endLabel := g.nextLabel("foreach_end")
	startLabel := g.nextLabel("foreach_start")
	fmt.Fprintf(b, "%sblock %s\n", ind, endLabel)
	fmt.Fprintf(b, "%s  loop %s\n", ind, startLabel)

	fmt.Fprintf(b, "%s    local.get $%s\n", ind, idx)
	g.emitVarRead(b, arrName, ind+"    ")
	fmt.Fprintf(b, "%s    i32.load\n", ind) // array header word: element count
	fmt.Fprintf(b, "%s    i32.gt_s\n", ind)
	fmt.Fprintf(b, "%s    br_if %s\n", ind, endLabel)

	g.emitVarRead(b, arrName, ind+"    ")
	fmt.Fprintf(b, "%s    i32.const 4\n%s    i32.add\n", ind, ind)
	fmt.Fprintf(b, "%s    local.get $%s\n", ind, idx)
	fmt.Fprintf(b, "%s    i32.const 1\n%s    i32.sub\n%s    i32.const 4\n%s    i32.mul\n%s    i32.add\n", ind, ind, ind, ind, ind)
	fmt.Fprintf(b, "%s    i32.load\n", ind)
	elemKind := g.locals[e.LoopVar]
	arrKind := g.varType(arrName)
	if arrKind != nil {
		g.emitConvert(b, arrKind.Elem, elemKind, ind+"    ")
	}
	fmt.Fprintf(b, "%s    local.set $%s\n", ind, e.LoopVar)

	g.emitBody(b, e.Body, ind+"    ")

	fmt.Fprintf(b, "%s    local.get $%s\n", ind, idx)
	fmt.Fprintf(b, "%s    i32.const 1\n%s    i32.add\n", ind, ind)
	fmt.Fprintf(b, "%s    local.set $%s\n", ind, idx)
	fmt.Fprintf(b, "%s    br %s\n", ind, startLabel)
	fmt.Fprintf(b, "%s  end\n", ind)
	fmt.Fprintf(b, "%send\n", ind)
}
