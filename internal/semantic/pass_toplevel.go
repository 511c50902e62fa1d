package semantic

import "github.com/routlang/routc/internal/ast"

// TopLevelPass is spec §4.3's Pass 1: it walks only the top-level
// declaration list and records variables, routine signatures, and
// type aliases. It never descends into a routine body.
//
// Type aliases are registered before variables and routines so that a
// VarDecl or Parameter may name a TypeDecl appearing later in the
// file — the forward-reference allowance §4.3 grants routines by
// virtue of the two-pass design extends naturally to types here.
type TopLevelPass struct{}

func (TopLevelPass) Name() string { return "toplevel" }

func (p TopLevelPass) Run(program *ast.Program, ctx *Context) error {
	for _, decl := range program.Declarations {
		if td, ok := decl.(*ast.TypeDecl); ok {
			ctx.Symbols.DeclareType(td.Name, td.Aliased)
		}
	}

	for _, decl := range program.Declarations {
		switch d := decl.(type) {
		case *ast.VarDecl:
			p.declareVar(d, ctx)
		case *ast.RoutineDecl:
			p.declareRoutine(d, ctx)
		}
	}
	return nil
}

func (p TopLevelPass) declareVar(d *ast.VarDecl, ctx *Context) {
	var resolved *ResolvedType
	if d.Type != nil {
		r, ok := ctx.Symbols.Resolve(d.Type)
		if !ok {
			ctx.Diag.Errorf(d.Pos, "unknown type used in declaration of '%s'", d.Name)
		}
		resolved = r
	}
	if !ctx.Symbols.DeclareVar(d.Name, d.Type, resolved, d.Pos) {
		ctx.Diag.Errorf(d.Pos, "variable '%s' already declared in this scope", d.Name)
	}
}

func (p TopLevelPass) declareRoutine(d *ast.RoutineDecl, ctx *Context) {
	var resolved *ResolvedType
	if d.ReturnType != nil {
		r, ok := ctx.Symbols.Resolve(d.ReturnType)
		if !ok {
			ctx.Diag.Errorf(d.Pos, "unknown return type for routine '%s'", d.Name)
		}
		resolved = r
	}
	for _, param := range d.Params {
		if _, ok := ctx.Symbols.Resolve(param.Type); !ok {
			ctx.Diag.Errorf(param.Pos, "unknown type for parameter '%s' of routine '%s'", param.Name, d.Name)
		}
	}
	sym := &RoutineSymbol{Name: d.Name, Params: d.Params, ReturnType: d.ReturnType, Resolved: resolved, Pos: d.Pos}
	if !ctx.Symbols.DeclareRoutine(sym) {
		ctx.Diag.Errorf(d.Pos, "routine '%s' already declared", d.Name)
	}
}
