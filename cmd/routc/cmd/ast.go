package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/routlang/routc/internal/ast"
	"github.com/routlang/routc/internal/errors"
	"github.com/routlang/routc/internal/lexer"
	"github.com/routlang/routc/internal/parser"
)

var astCmd = &cobra.Command{
	Use:   "ast <input.rout>",
	Short: "Parse a source file and print its AST as an s-expression",
	Long: `ast runs the lexer and parser only, printing a parenthesized
rendering of the resulting (pre-optimization) AST. Useful for debugging
the parser on a program that fails to type-check.`,
	Args: cobra.ExactArgs(1),
	RunE: dumpAST,
}

func init() {
	rootCmd.AddCommand(astCmd)
}

func dumpAST(_ *cobra.Command, args []string) error {
	filename := args[0]
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	input := string(content)

	program, err := parser.New(lexer.New(input)).ParseProgram()
	if err != nil {
		perr, ok := err.(*parser.ParseError)
		if !ok {
			return fmt.Errorf("parsing failed: %w", err)
		}
		cerr := errors.NewCompilerError(perr.Pos, perr.Error(), input, filename)
		fmt.Fprint(os.Stderr, errors.FormatErrors([]*errors.CompilerError{cerr}, errorContextLines, !noColor))
		fmt.Fprintln(os.Stderr)
		return fmt.Errorf("parsing failed")
	}

	var b strings.Builder
	sexprProgram(&b, program)
	fmt.Print(b.String())
	return nil
}

func sexprProgram(b *strings.Builder, p *ast.Program) {
	b.WriteString("(program\n")
	for _, d := range p.Declarations {
		b.WriteString("  ")
		sexprBodyElem(b, d, "  ")
		b.WriteString("\n")
	}
	b.WriteString(")\n")
}

func sexprBody(b *strings.Builder, body []ast.BodyElem, ind string) {
	for _, e := range body {
		b.WriteString(ind)
		sexprBodyElem(b, e, ind)
		b.WriteString("\n")
	}
}

func sexprBodyElem(b *strings.Builder, e ast.BodyElem, ind string) {
	switch n := e.(type) {
	case *ast.VarDecl:
		fmt.Fprintf(b, "(var %s", n.Name)
		if n.Init != nil {
			b.WriteString(" ")
			sexprExpr(b, n.Init)
		}
		b.WriteString(")")
	case *ast.TypeDecl:
		fmt.Fprintf(b, "(type %s)", n.Name)
	case *ast.RoutineDecl:
		sexprRoutine(b, n, ind)
	case *ast.AssignmentStmt:
		b.WriteString("(:= ")
		sexprAccessChain(b, n.Target)
		b.WriteString(" ")
		sexprExpr(b, n.Value)
		b.WriteString(")")
	case *ast.CallStmt:
		fmt.Fprintf(b, "(call %s", n.Name)
		for _, a := range n.Args {
			b.WriteString(" ")
			sexprExpr(b, a)
		}
		b.WriteString(")")
	case *ast.ReturnStmt:
		b.WriteString("(return")
		if n.Value != nil {
			b.WriteString(" ")
			sexprExpr(b, n.Value)
		}
		b.WriteString(")")
	case *ast.PrintStmt:
		b.WriteString("(print")
		for _, a := range n.Args {
			b.WriteString(" ")
			sexprExpr(b, a)
		}
		b.WriteString(")")
	case *ast.IfStmt:
		b.WriteString("(if ")
		sexprExpr(b, n.Cond)
		b.WriteString("\n")
		sexprBody(b, n.Then, ind+"  ")
		if len(n.Else) > 0 {
			fmt.Fprintf(b, "%selse\n", ind)
			sexprBody(b, n.Else, ind+"  ")
		}
		fmt.Fprintf(b, "%s)", ind)
	case *ast.WhileStmt:
		b.WriteString("(while ")
		sexprExpr(b, n.Cond)
		b.WriteString("\n")
		sexprBody(b, n.Body, ind+"  ")
		fmt.Fprintf(b, "%s)", ind)
	case *ast.ForStmt:
		fmt.Fprintf(b, "(for %s ", n.LoopVar)
		if n.Range.Start != nil {
			sexprExpr(b, n.Range.Start)
			b.WriteString(" .. ")
		}
		sexprExpr(b, n.Range.End)
		if n.Reverse {
			b.WriteString(" reverse")
		}
		b.WriteString("\n")
		sexprBody(b, n.Body, ind+"  ")
		fmt.Fprintf(b, "%s)", ind)
	default:
		fmt.Fprintf(b, "(unknown %T)", n)
	}
}

func sexprRoutine(b *strings.Builder, n *ast.RoutineDecl, ind string) {
	fmt.Fprintf(b, "(routine %s (", n.Name)
	for i, p := range n.Params {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(p.Name)
	}
	b.WriteString(")\n")
	if n.ExprBody != nil {
		fmt.Fprintf(b, "%s  ", ind)
		sexprExpr(b, n.ExprBody)
		b.WriteString("\n")
	} else {
		sexprBody(b, n.Body, ind+"  ")
	}
	fmt.Fprintf(b, "%s)", ind)
}

func sexprAccessChain(b *strings.Builder, m *ast.ModifiablePrimary) {
	b.WriteString(m.Base)
	for _, a := range m.Accesses {
		switch acc := a.(type) {
		case *ast.FieldAccess:
			fmt.Fprintf(b, ".%s", acc.Name)
		case *ast.IndexAccess:
			b.WriteString("[")
			sexprExpr(b, acc.Index)
			b.WriteString("]")
		}
	}
}

func sexprExpr(b *strings.Builder, e ast.Expression) {
	switch n := e.(type) {
	case *ast.IntLit:
		fmt.Fprintf(b, "%d", n.Value)
	case *ast.RealLit:
		fmt.Fprintf(b, "%g", n.Value)
	case *ast.BoolLit:
		fmt.Fprintf(b, "%t", n.Value)
	case *ast.StringLit:
		fmt.Fprintf(b, "%q", n.Value)
	case *ast.Identifier:
		b.WriteString(n.Name)
	case *ast.BinaryExpr:
		b.WriteString("(")
		b.WriteString(n.Op.String())
		b.WriteString(" ")
		sexprExpr(b, n.Left)
		b.WriteString(" ")
		sexprExpr(b, n.Right)
		b.WriteString(")")
	case *ast.UnaryExpr:
		fmt.Fprintf(b, "(%s ", n.Op.String())
		sexprExpr(b, n.Operand)
		b.WriteString(")")
	case *ast.FunctionCall:
		fmt.Fprintf(b, "(%s", n.Name)
		for _, a := range n.Args {
			b.WriteString(" ")
			sexprExpr(b, a)
		}
		b.WriteString(")")
	case *ast.ModifiablePrimary:
		sexprAccessChain(b, n)
	case *ast.ArrayLit:
		b.WriteString("[")
		for i, el := range n.Elements {
			if i > 0 {
				b.WriteString(" ")
			}
			sexprExpr(b, el)
		}
		b.WriteString("]")
	case *ast.RecordLit:
		b.WriteString("{")
		for i, f := range n.Fields {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(b, "%s: ", f.Name)
			sexprExpr(b, f.Value)
		}
		b.WriteString("}")
	default:
		fmt.Fprintf(b, "(unknown %T)", n)
	}
}
