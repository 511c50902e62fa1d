package ast

import "github.com/routlang/routc/internal/lexer"

// VarDecl declares a variable, optionally typed and initialized.
// At least one of Type or Init is expected in well-formed source, but
// the parser accepts either absent; the analyzer does not enforce this.
type VarDecl struct {
	Name string
	Type Type // nil if omitted
	Init Expression // nil if omitted
	Pos  lexer.Position
}

func (d *VarDecl) Position() lexer.Position { return d.Pos }
func (d *VarDecl) declarationNode()         {}
func (d *VarDecl) bodyElem()                {}

// TypeDecl introduces a name for an existing Type.
type TypeDecl struct {
	Name    string
	Aliased Type
	Pos     lexer.Position
}

func (d *TypeDecl) Position() lexer.Position { return d.Pos }
func (d *TypeDecl) declarationNode()         {}
func (d *TypeDecl) bodyElem()                {}

// Parameter is one formal parameter of a RoutineDecl.
type Parameter struct {
	Name  string
	Type  Type
	ByRef bool
	Pos   lexer.Position
}

func (p *Parameter) Position() lexer.Position { return p.Pos }

// RoutineDecl declares a routine with either a block Body or a single
// expression body (the '=>' form) — never both.
type RoutineDecl struct {
	Name       string
	Params     []*Parameter
	ReturnType Type // nil if the routine returns nothing
	Body       []BodyElem
	ExprBody   Expression // non-nil only for the expression form
	Pos        lexer.Position
}

func (d *RoutineDecl) Position() lexer.Position { return d.Pos }
func (d *RoutineDecl) declarationNode()         {}
func (d *RoutineDecl) bodyElem()                {}
