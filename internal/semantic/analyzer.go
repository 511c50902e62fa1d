// Package semantic implements spec §4.3's two-pass name/arity/return
// checker: TopLevelPass records declarations, BodyPass walks bodies
// against the resulting SymbolContext, and Analyzer drives both
// through a PassManager the way the teacher's own multi-pass semantic
// package composes its passes.
package semantic

import (
	cerrors "github.com/routlang/routc/internal/errors"

	"github.com/routlang/routc/internal/ast"
)

// Analyzer runs the full two-pass analysis over a Program and
// publishes a read-only SymbolContext for the code generator.
type Analyzer struct {
	ctx *Context
	pm  *PassManager
}

// NewAnalyzer creates an Analyzer. source and file are used only to
// render error context (source line + caret) in reported errors.
func NewAnalyzer(source, file string) *Analyzer {
	return &Analyzer{
		ctx: &Context{
			Symbols: NewSymbolContext(),
			Diag:    NewDiagnostics(source, file),
		},
		pm: NewPassManager(TopLevelPass{}, BodyPass{}),
	}
}

// Analyze runs both passes over program. It returns the first fatal
// error recorded, if any; all errors and warnings remain available
// through Errors and Warnings regardless of the return value.
func (a *Analyzer) Analyze(program *ast.Program) error {
	if err := a.pm.RunAll(program, a.ctx); err != nil {
		return err
	}
	if err := a.ctx.Diag.FirstError(); err != nil {
		return err
	}
	return nil
}

// Errors returns every fatal semantic error recorded during analysis.
func (a *Analyzer) Errors() []*cerrors.CompilerError { return a.ctx.Diag.Errors }

// Warnings returns every non-fatal semantic warning recorded.
func (a *Analyzer) Warnings() []string { return a.ctx.Diag.Warnings }

// Symbols returns the populated SymbolContext for the code generator
// to consult. Valid to call even after a fatal error: the first pass
// records every top-level routine signature before any body is
// checked, whether or not it reports errors.
func (a *Analyzer) Symbols() *SymbolContext { return a.ctx.Symbols }

// ScopeDepth exposes the variable-scope nesting depth, used by tests
// to assert the "scope restoration" property of spec §8.
func (a *Analyzer) ScopeDepth() int { return a.ctx.Symbols.VarScopeDepth() }
