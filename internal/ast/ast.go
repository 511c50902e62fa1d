// Package ast defines the closed set of node types produced by the parser.
//
// Every node carries its source position. There is no visitor hierarchy;
// passes consume nodes through exhaustive type switches, so adding a new
// variant is a compile-time prompt to update every consumer.
package ast

import "github.com/routlang/routc/internal/lexer"

// Node is satisfied by every AST node.
type Node interface {
	Position() lexer.Position
}

// Declaration is a top-level or nested declaration.
type Declaration interface {
	Node
	declarationNode()
	bodyElem()
}

// Statement is an executable statement inside a Body.
type Statement interface {
	Node
	statementNode()
	bodyElem()
}

// BodyElem is either a Declaration or a Statement; Body preserves the
// source order of the two kinds interleaved.
type BodyElem interface {
	Node
	bodyElem()
}

// Expression is any value-producing node.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root node: an ordered list of top-level declarations.
type Program struct {
	Declarations []Declaration
}

func (p *Program) Position() lexer.Position {
	if len(p.Declarations) == 0 {
		return lexer.Position{Line: 1, Column: 1}
	}
	return p.Declarations[0].Position()
}
