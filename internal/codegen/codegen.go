// Package codegen lowers a checked, optimized AST into a single
// self-contained WebAssembly text-format (WAT) module string, per
// spec §4.5. There is no direct teacher equivalent — the teacher
// compiles to an in-process bytecode Chunk (internal/bytecode), not a
// text format consumed by an external host — so the three-file split
// here (module assembly, expression lowering, statement lowering)
// mirrors the teacher's own compiler_core/compiler_expressions/
// compiler_statements split in spirit rather than in borrowed code.
package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/routlang/routc/internal/ast"
	"github.com/routlang/routc/internal/lexer"
	"github.com/routlang/routc/internal/semantic"
)

// Generator lowers one Program into one WAT module. A Generator is
// reusable: Generate resets the bump-allocator and string-table state
// at the start of every call.
type Generator struct {
	symbols *semantic.SymbolContext

	strLiterals map[string]int // literal value -> byte offset
	strOrder    []string
	nextOffset  int
	bumpStart   int

	// per-function scratch, reset by beginFunction.
	locals     map[string]*semantic.ResolvedType
	localOrder []string
	aggLocals  map[ast.Expression]string
	forIndexes map[*ast.ForStmt]string // hidden 1-based index local for for-each loops
	labelNum   int
}

// New creates a Generator consulting symbols for global variables,
// routine signatures, and type aliases. symbols must be the
// SymbolContext populated by a prior, successful semantic.Analyzer
// run over the same program.
func New(symbols *semantic.SymbolContext) *Generator {
	return &Generator{symbols: symbols}
}

// Generate returns the WAT text for program. program should be the
// tree returned by the optimizer (or the checked tree directly, if
// optimization was skipped); codegen infers its own expression kinds
// rather than trusting annotations from an earlier stage, since the
// optimizer is free to replace nodes wholesale.
func (g *Generator) Generate(program *ast.Program) (string, error) {
	g.strLiterals = make(map[string]int)
	g.strOrder = nil
	g.nextOffset = 0
	g.collectStrings(program)

	g.bumpStart = g.nextOffset
	if rem := g.bumpStart % 4; rem != 0 {
		g.bumpStart += 4 - rem
	}
	if g.bumpStart == 0 {
		// Keep address 0 free so a zero-valued pointer global never
		// aliases a live allocation.
		g.bumpStart = 4
	}

	var b strings.Builder
	b.WriteString("(module\n")
	b.WriteString("  (import \"env\" \"printInt\" (func $printInt (param i32)))\n")
	b.WriteString("  (import \"env\" \"printFloat\" (func $printFloat (param f64)))\n")
	b.WriteString("  (import \"env\" \"printString\" (func $printString (param i32)))\n")
	b.WriteString("  (import \"env\" \"printBool\" (func $printBool (param i32)))\n")
	b.WriteString("  (import \"env\" \"printNewline\" (func $printNewline))\n")
	b.WriteString("  (memory (export \"memory\") 1)\n")

	for _, s := range g.strOrder {
		fmt.Fprintf(&b, "  (data (i32.const %d) %s)\n", g.strLiterals[s], watStringLiteral(s))
	}

	fmt.Fprintf(&b, "  (global $__bump (mut i32) (i32.const %d))\n", g.bumpStart)

	g.emitGlobals(&b, program)
	b.WriteString(fmodHelper)

	hasMain := false
	for _, decl := range program.Declarations {
		rd, ok := decl.(*ast.RoutineDecl)
		if !ok {
			continue
		}
		g.emitRoutine(&b, rd)
		if strings.EqualFold(rd.Name, "main") {
			hasMain = true
		}
	}
	if hasMain {
		b.WriteString("  (export \"main\" (func $main))\n")
	}
	b.WriteString(")\n")
	return b.String(), nil
}

// collectStrings walks the whole program in source order, assigning
// each distinct string literal value a rising byte offset. Values are
// deduplicated: a literal seen twice shares one data entry.
func (g *Generator) collectStrings(program *ast.Program) {
	for _, decl := range program.Declarations {
		switch d := decl.(type) {
		case *ast.VarDecl:
			if d.Init != nil {
				g.walkStrings(d.Init)
			}
		case *ast.RoutineDecl:
			if d.ExprBody != nil {
				g.walkStrings(d.ExprBody)
			} else {
				g.walkStringsBody(d.Body)
			}
		}
	}
}

func (g *Generator) walkStringsBody(body []ast.BodyElem) {
	for _, elem := range body {
		switch e := elem.(type) {
		case *ast.VarDecl:
			if e.Init != nil {
				g.walkStrings(e.Init)
			}
		case *ast.AssignmentStmt:
			g.walkStringsAccesses(e.Target.Accesses)
			g.walkStrings(e.Value)
		case *ast.CallStmt:
			for _, a := range e.Args {
				g.walkStrings(a)
			}
		case *ast.ReturnStmt:
			if e.Value != nil {
				g.walkStrings(e.Value)
			}
		case *ast.PrintStmt:
			for _, a := range e.Args {
				g.walkStrings(a)
			}
		case *ast.IfStmt:
			g.walkStrings(e.Cond)
			g.walkStringsBody(e.Then)
			g.walkStringsBody(e.Else)
		case *ast.WhileStmt:
			g.walkStrings(e.Cond)
			g.walkStringsBody(e.Body)
		case *ast.ForStmt:
			if e.Range.Start != nil {
				g.walkStrings(e.Range.Start)
			}
			g.walkStrings(e.Range.End)
			g.walkStringsBody(e.Body)
		}
	}
}

func (g *Generator) walkStringsAccesses(accesses []ast.Access) {
	for _, a := range accesses {
		if idx, ok := a.(*ast.IndexAccess); ok {
			g.walkStrings(idx.Index)
		}
	}
}

func (g *Generator) walkStrings(e ast.Expression) {
	switch ex := e.(type) {
	case *ast.StringLit:
		g.internString(ex.Value)
	case *ast.BinaryExpr:
		g.walkStrings(ex.Left)
		g.walkStrings(ex.Right)
	case *ast.UnaryExpr:
		g.walkStrings(ex.Operand)
	case *ast.FunctionCall:
		for _, a := range ex.Args {
			g.walkStrings(a)
		}
	case *ast.ModifiablePrimary:
		g.walkStringsAccesses(ex.Accesses)
	case *ast.ArrayLit:
		for _, el := range ex.Elements {
			g.walkStrings(el)
		}
	case *ast.RecordLit:
		for _, f := range ex.Fields {
			g.walkStrings(f.Value)
		}
	}
}

func (g *Generator) internString(value string) int {
	if off, ok := g.strLiterals[value]; ok {
		return off
	}
	off := g.nextOffset
	g.strLiterals[value] = off
	g.strOrder = append(g.strOrder, value)
	g.nextOffset += len(value) + 1 // +1 for the NUL terminator
	return off
}

// watStringLiteral renders s as a WAT string literal, NUL-terminated,
// escaping characters WAT requires escaped.
func watStringLiteral(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c >= 0x20 && c < 0x7f:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "\\%02x", c)
		}
	}
	b.WriteString("\\00\"")
	return b.String()
}

// emitGlobals declares one WASM global per top-level VarDecl, plus a
// companion "$NAME_size" global for every array-typed one, per
// spec §4.5 rule 5.
//
// Array- and record-typed globals always start out zero (null
// pointer / zero length): constructing an aggregate requires bump-
// allocator instructions that WAT's constant global-initializer
// syntax cannot express, so those globals are populated the first
// time a routine assigns to them rather than at module load. A
// top-level var whose aggregate literal initializer is never
// reassigned by a routine therefore never runs that initializer —
// there is no start-function lowering for it, so it silently stays
// the zero pointer (see DESIGN.md). Scalar globals take their literal
// initializer directly since the optimizer has already constant-
// folded anything foldable by the time codegen runs; a negated numeric
// literal (which the optimizer leaves as a UnaryExpr) is read as its
// negative value, and any other non-literal scalar initializer (one
// that references another global or calls a routine, which the
// optimizer cannot fold) falls back to the type's zero value.
func (g *Generator) emitGlobals(b *strings.Builder, program *ast.Program) {
	globals := g.symbols.GlobalVars()
	for _, decl := range program.Declarations {
		vd, ok := decl.(*ast.VarDecl)
		if !ok {
			continue
		}
		sym, ok := globals[strings.ToLower(vd.Name)]
		if !ok || sym.Resolved == nil {
			continue
		}
		switch sym.Resolved.Kind {
		case semantic.KindArray:
			fmt.Fprintf(b, "  (global $%s (mut i32) (i32.const 0))\n", vd.Name)
			fmt.Fprintf(b, "  (global $%s_size (mut i32) (i32.const 0))\n", vd.Name)
		case semantic.KindRecord:
			fmt.Fprintf(b, "  (global $%s (mut i32) (i32.const 0))\n", vd.Name)
		case semantic.KindString:
			fmt.Fprintf(b, "  (global $%s (mut i32) (i32.const %d))\n", vd.Name, g.literalStringOffset(vd.Init))
		case semantic.KindReal:
			fmt.Fprintf(b, "  (global $%s (mut f64) (f64.const %s))\n", vd.Name, formatFloat(literalRealValue(vd.Init)))
		case semantic.KindBoolean:
			fmt.Fprintf(b, "  (global $%s (mut i32) (i32.const %d))\n", vd.Name, boolToI32(literalBoolValue(vd.Init)))
		default:
			fmt.Fprintf(b, "  (global $%s (mut i32) (i32.const %d))\n", vd.Name, literalIntValue(vd.Init))
		}
	}
}

func (g *Generator) literalStringOffset(init ast.Expression) int {
	if lit, ok := init.(*ast.StringLit); ok {
		return g.strLiterals[lit.Value]
	}
	return 0
}

func literalIntValue(init ast.Expression) int32 {
	if lit, ok := init.(*ast.IntLit); ok {
		return lit.Value
	}
	if u, ok := init.(*ast.UnaryExpr); ok && u.Op == lexer.MINUS {
		return -literalIntValue(u.Operand)
	}
	return 0
}

func literalRealValue(init ast.Expression) float64 {
	if lit, ok := init.(*ast.RealLit); ok {
		return lit.Value
	}
	if u, ok := init.(*ast.UnaryExpr); ok && u.Op == lexer.MINUS {
		return -literalRealValue(u.Operand)
	}
	return 0
}

func literalBoolValue(init ast.Expression) bool {
	if lit, ok := init.(*ast.BoolLit); ok {
		return lit.Value
	}
	return false
}

func boolToI32(v bool) int {
	if v {
		return 1
	}
	return 0
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// fmodHelper computes a real % b as a - b*trunc(a/b). WAT has no
// native floating-point remainder instruction, so `%` on real operands
// calls this fixed helper instead of a single opcode.
const fmodHelper = `  (func $__fmod (param $a f64) (param $b f64) (result f64)
    local.get $a
    local.get $a
    local.get $b
    f64.div
    f64.trunc
    local.get $b
    f64.mul
    f64.sub
  )
`

// wasmType returns the WASM value type a ResolvedType lowers to: f64
// for real, i32 for everything else (integer, boolean, and every
// pointer-represented kind: string, array, record).
func wasmType(k semantic.Kind) string {
	if k == semantic.KindReal {
		return "f64"
	}
	return "i32"
}

// emitRoutine lowers one RoutineDecl to a (func ...) form.
func (g *Generator) emitRoutine(b *strings.Builder, rd *ast.RoutineDecl) {
	g.beginFunction(rd)

	fmt.Fprintf(b, "  (func $%s", rd.Name)
	for _, p := range rd.Params {
		fmt.Fprintf(b, " (param $%s %s)", p.Name, wasmType(g.locals[p.Name].Kind))
	}
	if rd.ReturnType != nil {
		sym, _ := g.symbols.ResolveRoutine(rd.Name)
		kind := semantic.KindInteger
		if sym != nil && sym.Resolved != nil {
			kind = sym.Resolved.Kind
		}
		fmt.Fprintf(b, " (result %s)", wasmType(kind))
	}
	b.WriteString("\n")

	isParam := make(map[string]bool, len(rd.Params))
	for _, p := range rd.Params {
		isParam[p.Name] = true
	}
	b.WriteString("    (local $__temp i32)\n")
	for _, name := range g.localOrder {
		if isParam[name] {
			continue
		}
		fmt.Fprintf(b, "    (local $%s %s)\n", name, wasmType(g.locals[name].Kind))
	}

	if rd.ExprBody != nil {
		g.emitExpr(b, rd.ExprBody, "    ")
	} else {
		g.emitBody(b, rd.Body, "    ")
	}
	b.WriteString("  )\n")
}

// beginFunction resets per-function scratch state and walks rd to
// collect every local WASM needs declared up front: parameters,
// VarDecls and for-loop variables found anywhere in the body
// (including nested if/while/for blocks), and one scratch i32 local
// per array/record literal for holding its base address during
// construction.
func (g *Generator) beginFunction(rd *ast.RoutineDecl) {
	g.locals = make(map[string]*semantic.ResolvedType)
	g.localOrder = nil
	g.aggLocals = make(map[ast.Expression]string)
	g.forIndexes = make(map[*ast.ForStmt]string)
	g.labelNum = 0

	for _, p := range rd.Params {
		g.addLocal(p.Name, g.resolveType(p.Type))
	}

	if rd.ExprBody != nil {
		g.collectAggregates(rd.ExprBody)
	} else {
		g.collectBody(rd.Body)
	}
}

func (g *Generator) addLocal(name string, t *semantic.ResolvedType) {
	if _, exists := g.locals[name]; exists {
		return
	}
	if t == nil {
		t = &semantic.ResolvedType{Kind: semantic.KindInteger}
	}
	g.locals[name] = t
	g.localOrder = append(g.localOrder, name)
}

func (g *Generator) resolveType(t ast.Type) *semantic.ResolvedType {
	if t == nil {
		return &semantic.ResolvedType{Kind: semantic.KindInteger}
	}
	if r, ok := g.symbols.Resolve(t); ok {
		return r
	}
	return &semantic.ResolvedType{Kind: semantic.KindInteger}
}

func (g *Generator) collectBody(body []ast.BodyElem) {
	for _, elem := range body {
		switch e := elem.(type) {
		case *ast.VarDecl:
			g.addLocal(e.Name, g.declaredOrInferredType(e.Type, e.Init))
			if e.Init != nil {
				g.collectAggregates(e.Init)
			}
		case *ast.AssignmentStmt:
			g.collectAggregatesAccesses(e.Target.Accesses)
			g.collectAggregates(e.Value)
		case *ast.CallStmt:
			for _, a := range e.Args {
				g.collectAggregates(a)
			}
		case *ast.ReturnStmt:
			if e.Value != nil {
				g.collectAggregates(e.Value)
			}
		case *ast.PrintStmt:
			for _, a := range e.Args {
				g.collectAggregates(a)
			}
		case *ast.IfStmt:
			g.collectAggregates(e.Cond)
			g.collectBody(e.Then)
			g.collectBody(e.Else)
		case *ast.WhileStmt:
			g.collectAggregates(e.Cond)
			g.collectBody(e.Body)
		case *ast.ForStmt:
			if e.Range.Start != nil {
				g.collectAggregates(e.Range.Start)
			}
			g.collectAggregates(e.Range.End)
			g.addLocal(e.LoopVar, g.forLoopVarType(e))
			if e.IsForEach() {
				idx := fmt.Sprintf("__idx%d", len(g.forIndexes))
				g.forIndexes[e] = idx
				g.addLocal(idx, &semantic.ResolvedType{Kind: semantic.KindInteger})
			}
			g.collectBody(e.Body)
		}
	}
}

func (g *Generator) declaredOrInferredType(t ast.Type, init ast.Expression) *semantic.ResolvedType {
	if t != nil {
		return g.resolveType(t)
	}
	return g.kindOf(init)
}

func (g *Generator) forLoopVarType(s *ast.ForStmt) *semantic.ResolvedType {
	if s.IsForEach() {
		arr := g.kindOf(s.Range.End)
		if arr != nil && arr.Elem != nil {
			return arr.Elem
		}
		return &semantic.ResolvedType{Kind: semantic.KindInteger}
	}
	return &semantic.ResolvedType{Kind: semantic.KindInteger}
}

func (g *Generator) collectAggregatesAccesses(accesses []ast.Access) {
	for _, a := range accesses {
		if idx, ok := a.(*ast.IndexAccess); ok {
			g.collectAggregates(idx.Index)
		}
	}
}

func (g *Generator) collectAggregates(e ast.Expression) {
	switch ex := e.(type) {
	case *ast.BinaryExpr:
		g.collectAggregates(ex.Left)
		g.collectAggregates(ex.Right)
	case *ast.UnaryExpr:
		g.collectAggregates(ex.Operand)
	case *ast.FunctionCall:
		for _, a := range ex.Args {
			g.collectAggregates(a)
		}
	case *ast.ModifiablePrimary:
		g.collectAggregatesAccesses(ex.Accesses)
	case *ast.ArrayLit:
		name := fmt.Sprintf("__agg%d", len(g.aggLocals))
		g.aggLocals[ex] = name
		g.addLocal(name, &semantic.ResolvedType{Kind: semantic.KindInteger})
		for _, el := range ex.Elements {
			g.collectAggregates(el)
		}
	case *ast.RecordLit:
		name := fmt.Sprintf("__agg%d", len(g.aggLocals))
		g.aggLocals[ex] = name
		g.addLocal(name, &semantic.ResolvedType{Kind: semantic.KindInteger})
		for _, f := range ex.Fields {
			g.collectAggregates(f.Value)
		}
	}
}

func (g *Generator) nextLabel(prefix string) string {
	g.labelNum++
	return fmt.Sprintf("$%s%d", prefix, g.labelNum)
}
