// Package errors renders compiler diagnostics: a source line, a caret
// under the offending column, and the message. Every fatal error at
// every pipeline stage (parse, semantic) is reported through
// CompilerError so the CLI has one place to format them.
package errors

import (
	"fmt"
	"strings"

	"github.com/routlang/routc/internal/lexer"
)

// CompilerError is one fatal diagnostic: a message tied to a source
// position, carrying enough of the original source to render a caret
// under the offending column.
type CompilerError struct {
	Message string
	Source  string
	File    string
	Pos     lexer.Position
}

// NewCompilerError builds a CompilerError from a position, message,
// and the full source it was found in.
func NewCompilerError(pos lexer.Position, message, source, file string) *CompilerError {
	return &CompilerError{
		Pos:     pos,
		Message: message,
		Source:  source,
		File:    file,
	}
}

func (e *CompilerError) Error() string {
	return e.Format(0, false)
}

// Format renders the error: a "file:line:col" header, contextLines of
// source on either side of the offending line (0 for just that line),
// a caret under the column, then the message. color adds ANSI bold/red
// for terminal output.
func (e *CompilerError) Format(contextLines int, color bool) string {
	var sb strings.Builder

	if e.File != "" {
		fmt.Fprintf(&sb, "Error in %s:%d:%d\n", e.File, e.Pos.Line, e.Pos.Column)
	} else {
		fmt.Fprintf(&sb, "Error at line %d:%d\n", e.Pos.Line, e.Pos.Column)
	}

	lines := e.sourceContext(contextLines)
	if len(lines) == 0 {
		return writeMessage(&sb, e.Message, color)
	}

	startLine := e.Pos.Line - contextLines
	if startLine < 1 {
		startLine = 1
	}

	for i, line := range lines {
		currentLine := startLine + i
		lineNumStr := fmt.Sprintf("%4d | ", currentLine)

		dim := color && currentLine != e.Pos.Line
		if dim {
			sb.WriteString("\033[2m")
		}
		sb.WriteString(lineNumStr)
		sb.WriteString(line)
		if dim {
			sb.WriteString("\033[0m")
		}
		sb.WriteString("\n")

		if currentLine == e.Pos.Line {
			sb.WriteString(strings.Repeat(" ", len(lineNumStr)+e.Pos.Column-1))
			if color {
				sb.WriteString("\033[1;31m") // Red bold
			}
			sb.WriteString("^")
			if color {
				sb.WriteString("\033[0m")
			}
			sb.WriteString("\n")
		}
	}

	return writeMessage(&sb, e.Message, color)
}

func writeMessage(sb *strings.Builder, message string, color bool) string {
	if color {
		sb.WriteString("\033[1m")
	}
	sb.WriteString(message)
	if color {
		sb.WriteString("\033[0m")
	}
	return sb.String()
}

// sourceContext returns the lines from (Pos.Line - contextLines) to
// (Pos.Line + contextLines), clamped to the source's extent, or nil if
// Source wasn't set or Pos.Line falls outside it.
func (e *CompilerError) sourceContext(contextLines int) []string {
	if e.Source == "" {
		return nil
	}

	all := strings.Split(e.Source, "\n")
	if e.Pos.Line < 1 || e.Pos.Line > len(all) {
		return nil
	}

	start := e.Pos.Line - contextLines
	if start < 1 {
		start = 1
	}
	end := e.Pos.Line + contextLines
	if end > len(all) {
		end = len(all)
	}
	return all[start-1 : end]
}

// FormatErrors renders every error in errors, each with contextLines
// of surrounding source, separated and numbered when there's more than
// one.
func FormatErrors(errs []*CompilerError, contextLines int, color bool) string {
	if len(errs) == 0 {
		return ""
	}
	if len(errs) == 1 {
		return errs[0].Format(contextLines, color)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Compilation failed with %d error(s):\n\n", len(errs))
	for i, err := range errs {
		fmt.Fprintf(&sb, "[Error %d of %d]\n", i+1, len(errs))
		sb.WriteString(err.Format(contextLines, color))
		if i < len(errs)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}
