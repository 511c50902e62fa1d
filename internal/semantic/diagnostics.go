package semantic

import (
	"fmt"

	cerrors "github.com/routlang/routc/internal/errors"
	"github.com/routlang/routc/internal/lexer"
)

// Diagnostics accumulates the errors and warnings produced while a
// Pass walks the tree. Errors are fatal to the pipeline; warnings
// never halt analysis. Mirrors the teacher's PassContext error list,
// narrowed to the two severities this language actually has.
type Diagnostics struct {
	Errors   []*cerrors.CompilerError
	Warnings []string

	source string
	file   string
}

// NewDiagnostics creates an empty Diagnostics bound to the source text
// used to render error context.
func NewDiagnostics(source, file string) *Diagnostics {
	return &Diagnostics{source: source, file: file}
}

// Errorf records a fatal semantic error at pos.
func (d *Diagnostics) Errorf(pos lexer.Position, format string, args ...any) {
	d.Errors = append(d.Errors, cerrors.NewCompilerError(pos, fmt.Sprintf(format, args...), d.source, d.file))
}

// Warnf records a non-fatal semantic warning.
func (d *Diagnostics) Warnf(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors reports whether any fatal error has been recorded.
func (d *Diagnostics) HasErrors() bool {
	return len(d.Errors) > 0
}

// FirstError returns the first recorded error, or nil.
func (d *Diagnostics) FirstError() error {
	if len(d.Errors) == 0 {
		return nil
	}
	return d.Errors[0]
}
