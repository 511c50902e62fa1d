package ast

import "github.com/routlang/routc/internal/lexer"

// Type is one of the four closed type-expression variants.
type Type interface {
	Node
	typeNode()
}

// PrimitiveType is one of integer, real, boolean, string.
type PrimitiveType struct {
	Kind lexer.TokenType // INTEGER, REAL_KW, BOOLEAN, or STRING_KW
	Pos  lexer.Position
}

func (t *PrimitiveType) Position() lexer.Position { return t.Pos }
func (t *PrimitiveType) typeNode()                {}

// ArrayType is array[size?] elem. Size is nil for an unsized array,
// used in parameter position (e.g. array[] integer).
type ArrayType struct {
	Size Expression
	Elem Type
	Pos  lexer.Position
}

func (t *ArrayType) Position() lexer.Position { return t.Pos }
func (t *ArrayType) typeNode()                {}

// RecordType is an ordered list of named fields.
type RecordType struct {
	Fields []*VarDecl
	Pos    lexer.Position
}

func (t *RecordType) Position() lexer.Position { return t.Pos }
func (t *RecordType) typeNode()                {}

// FieldOffset returns the byte offset of the named field, computed from
// declared order (4 bytes per i32-lowered field), or -1 if not found.
func (t *RecordType) FieldOffset(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i * 4
		}
	}
	return -1
}

// UserType names a TypeDecl resolved later via the symbol context.
type UserType struct {
	Name string
	Pos  lexer.Position
}

func (t *UserType) Position() lexer.Position { return t.Pos }
func (t *UserType) typeNode()                {}
