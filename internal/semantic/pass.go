package semantic

import "github.com/routlang/routc/internal/ast"

// Context bundles the two pieces of state every Pass reads and
// writes: the symbol scopes being built up, and the diagnostics being
// accumulated. Passes never mutate the AST itself (§4.3: only the
// optimizer produces new trees).
type Context struct {
	Symbols *SymbolContext
	Diag    *Diagnostics
}

// Pass is one traversal of the program. The two-pass design in §4.3 —
// top-level declaration recording, then body walking — is modeled as
// two Pass implementations run in order, the way the teacher's own
// multi-pass semantic package separates concerns.
type Pass interface {
	Name() string
	Run(program *ast.Program, ctx *Context) error
}

// PassManager runs a fixed sequence of passes, stopping early once a
// pass has produced a fatal error (no point type-checking bodies
// against a top-level table that failed to build).
type PassManager struct {
	passes []Pass
}

// NewPassManager creates a manager running passes in the given order.
func NewPassManager(passes ...Pass) *PassManager {
	return &PassManager{passes: passes}
}

// RunAll executes every pass in order, stopping after the first one
// that leaves ctx.Diag.HasErrors() true.
func (pm *PassManager) RunAll(program *ast.Program, ctx *Context) error {
	for _, pass := range pm.passes {
		if err := pass.Run(program, ctx); err != nil {
			return err
		}
		if ctx.Diag.HasErrors() {
			break
		}
	}
	return nil
}
