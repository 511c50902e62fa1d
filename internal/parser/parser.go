// Package parser implements a hand-written, single-token-lookahead
// recursive-descent parser producing the node set in package ast.
package parser

import (
	"strconv"
	"strings"

	"github.com/routlang/routc/internal/ast"
	"github.com/routlang/routc/internal/lexer"
)

// Parser consumes tokens from a Lexer and builds an ast.Program.
// On the first syntax error it aborts; there is no error recovery.
type Parser struct {
	l *lexer.Lexer

	curToken  lexer.Token
	peekToken lexer.Token
}

// New creates a Parser over the given Lexer.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.next()
	p.next()
	return p
}

func (p *Parser) next() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curIs(t lexer.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekIs(t lexer.TokenType) bool { return p.peekToken.Type == t }

// expect consumes the current token if it matches t, otherwise returns
// a fatal ParseError carrying the expected and actual token.
func (p *Parser) expect(t lexer.TokenType) (lexer.Token, error) {
	if !p.curIs(t) {
		return lexer.Token{}, &ParseError{Expected: t.String(), Got: p.curToken, Pos: p.curToken.Pos}
	}
	tok := p.curToken
	p.next()
	return tok, nil
}

// skipSemicolons consumes any run of stray ';' tokens.
func (p *Parser) skipSemicolons() {
	for p.curIs(lexer.SEMICOLON) {
		p.next()
	}
}

// ParseProgram parses the entire token stream into a Program, or
// fails with the first syntax error encountered.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	p.skipSemicolons()
	for !p.curIs(lexer.EOF) {
		decl, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		prog.Declarations = append(prog.Declarations, decl)
		p.skipSemicolons()
	}
	return prog, nil
}

func (p *Parser) parseDeclaration() (ast.Declaration, error) {
	switch p.curToken.Type {
	case lexer.VAR:
		return p.parseVarDecl()
	case lexer.TYPE:
		return p.parseTypeDecl()
	case lexer.ROUTINE:
		return p.parseRoutineDecl()
	default:
		return nil, &ParseError{Expected: "declaration (var, type, or routine)", Got: p.curToken, Pos: p.curToken.Pos}
	}
}

// parseVarDecl parses: var NAME (':' Type)? ('is' Expression)? ';'
func (p *Parser) parseVarDecl() (*ast.VarDecl, error) {
	pos := p.curToken.Pos
	if _, err := p.expect(lexer.VAR); err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	decl := &ast.VarDecl{Name: name.Literal, Pos: pos}

	if p.curIs(lexer.COLON) {
		p.next()
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		decl.Type = t
	}
	if p.curIs(lexer.IS) {
		p.next()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		decl.Init = expr
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return decl, nil
}

// parseTypeDecl parses: type NAME 'is' Type ';'
func (p *Parser) parseTypeDecl() (*ast.TypeDecl, error) {
	pos := p.curToken.Pos
	if _, err := p.expect(lexer.TYPE); err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.IS); err != nil {
		return nil, err
	}
	aliased, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.TypeDecl{Name: name.Literal, Aliased: aliased, Pos: pos}, nil
}

// parseRoutineDecl parses:
//
//	routine NAME '(' Params? ')' (':' Type)? (Body | ExpressionForm)
func (p *Parser) parseRoutineDecl() (*ast.RoutineDecl, error) {
	pos := p.curToken.Pos
	if _, err := p.expect(lexer.ROUTINE); err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}

	decl := &ast.RoutineDecl{Name: name.Literal, Params: params, Pos: pos}

	if p.curIs(lexer.COLON) {
		p.next()
		rt, err := p.parseType()
		if err != nil {
			return nil, err
		}
		decl.ReturnType = rt
	}

	switch p.curToken.Type {
	case lexer.FAT_ARROW:
		p.next()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.SEMICOLON); err != nil {
			return nil, err
		}
		decl.ExprBody = expr
	case lexer.IS:
		p.next()
		body, err := p.parseBody()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.END); err != nil {
			return nil, err
		}
		decl.Body = body
	default:
		return nil, &ParseError{Expected: "'=>' or 'is'", Got: p.curToken, Pos: p.curToken.Pos}
	}

	return decl, nil
}

// parseParams parses a comma-separated list of ('ref')? NAME ':' Type.
func (p *Parser) parseParams() ([]*ast.Parameter, error) {
	var params []*ast.Parameter
	if p.curIs(lexer.RPAREN) {
		return params, nil
	}
	for {
		pos := p.curToken.Pos
		byRef := false
		if p.curIs(lexer.REF) {
			byRef = true
			p.next()
		}
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COLON); err != nil {
			return nil, err
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		params = append(params, &ast.Parameter{Name: name.Literal, Type: t, ByRef: byRef, Pos: pos})
		if p.curIs(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}
	return params, nil
}

// parseType dispatches on the first token of a type expression.
func (p *Parser) parseType() (ast.Type, error) {
	pos := p.curToken.Pos
	switch p.curToken.Type {
	case lexer.INTEGER, lexer.REAL_KW, lexer.BOOLEAN, lexer.STRING_KW:
		kind := p.curToken.Type
		p.next()
		return &ast.PrimitiveType{Kind: kind, Pos: pos}, nil
	case lexer.ARRAY:
		p.next()
		if _, err := p.expect(lexer.LBRACK); err != nil {
			return nil, err
		}
		var size ast.Expression
		if !p.curIs(lexer.RBRACK) {
			s, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			size = s
		}
		if _, err := p.expect(lexer.RBRACK); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &ast.ArrayType{Size: size, Elem: elem, Pos: pos}, nil
	case lexer.RECORD:
		p.next()
		var fields []*ast.VarDecl
		for !p.curIs(lexer.END) {
			fieldPos := p.curToken.Pos
			fname, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.COLON); err != nil {
				return nil, err
			}
			ftype, err := p.parseType()
			if err != nil {
				return nil, err
			}
			fields = append(fields, &ast.VarDecl{Name: fname.Literal, Type: ftype, Pos: fieldPos})
			if p.curIs(lexer.SEMICOLON) {
				p.next()
			}
		}
		if _, err := p.expect(lexer.END); err != nil {
			return nil, err
		}
		return &ast.RecordType{Fields: fields, Pos: pos}, nil
	case lexer.IDENT:
		name := p.curToken.Literal
		p.next()
		return &ast.UserType{Name: name, Pos: pos}, nil
	default:
		return nil, &ParseError{Expected: "type", Got: p.curToken, Pos: p.curToken.Pos}
	}
}

// parseBody parses alternating declarations and statements until it
// sees 'end' or 'else'.
func (p *Parser) parseBody() ([]ast.BodyElem, error) {
	var body []ast.BodyElem
	p.skipSemicolons()
	for !p.curIs(lexer.END) && !p.curIs(lexer.ELSE) && !p.curIs(lexer.EOF) {
		elem, err := p.parseBodyElem()
		if err != nil {
			return nil, err
		}
		body = append(body, elem)
		p.skipSemicolons()
	}
	return body, nil
}

func (p *Parser) parseBodyElem() (ast.BodyElem, error) {
	switch p.curToken.Type {
	case lexer.VAR:
		return p.parseVarDecl()
	case lexer.TYPE:
		return p.parseTypeDecl()
	default:
		return p.parseStatement()
	}
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.curToken.Type {
	case lexer.IDENT:
		return p.parseAssignmentOrCall()
	case lexer.PRINT:
		return p.parsePrintStatement()
	case lexer.IF:
		return p.parseIfStatement()
	case lexer.WHILE:
		return p.parseWhileStatement()
	case lexer.FOR:
		return p.parseForStatement()
	case lexer.RETURN:
		return p.parseReturnStatement()
	default:
		return nil, &ParseError{Expected: "statement", Got: p.curToken, Pos: p.curToken.Pos}
	}
}

// parseAssignmentOrCall disambiguates IDENT '(' (a call) from an
// assignment to a ModifiablePrimary access chain.
func (p *Parser) parseAssignmentOrCall() (ast.Statement, error) {
	pos := p.curToken.Pos
	name := p.curToken.Literal
	p.next()

	if p.curIs(lexer.LPAREN) {
		args, err := p.parseCallArgs()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.SEMICOLON); err != nil {
			return nil, err
		}
		return &ast.CallStmt{Name: name, Args: args, Pos: pos}, nil
	}

	accesses, err := p.parseAccessChain()
	if err != nil {
		return nil, err
	}
	target := &ast.ModifiablePrimary{Base: name, Accesses: accesses, Pos: pos}

	if _, err := p.expect(lexer.ASSIGN); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.AssignmentStmt{Target: target, Value: value, Pos: pos}, nil
}

// parseAccessChain parses a run of ".name" and "[expr]" steps.
func (p *Parser) parseAccessChain() ([]ast.Access, error) {
	var accesses []ast.Access
	for {
		switch p.curToken.Type {
		case lexer.DOT:
			pos := p.curToken.Pos
			p.next()
			name, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			accesses = append(accesses, &ast.FieldAccess{Name: name.Literal, Pos: pos})
		case lexer.LBRACK:
			pos := p.curToken.Pos
			p.next()
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RBRACK); err != nil {
				return nil, err
			}
			accesses = append(accesses, &ast.IndexAccess{Index: idx, Pos: pos})
		default:
			return accesses, nil
		}
	}
}

func (p *Parser) parseCallArgs() ([]ast.Expression, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var args []ast.Expression
	if p.curIs(lexer.RPAREN) {
		p.next()
		return args, nil
	}
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.curIs(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

// parsePrintStatement parses: print ('(' exprs ')' | exprs) ';'
func (p *Parser) parsePrintStatement() (ast.Statement, error) {
	pos := p.curToken.Pos
	p.next()

	parenWrapped := p.curIs(lexer.LPAREN)
	if parenWrapped {
		p.next()
	}

	var args []ast.Expression
	if !p.curIs(lexer.SEMICOLON) && !(parenWrapped && p.curIs(lexer.RPAREN)) {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.curIs(lexer.COMMA) {
				p.next()
				continue
			}
			break
		}
	}

	if parenWrapped {
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.PrintStmt{Args: args, Pos: pos}, nil
}

// parseIfStatement parses: if Cond then Body (else Body)? end
func (p *Parser) parseIfStatement() (ast.Statement, error) {
	pos := p.curToken.Pos
	p.next()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.THEN); err != nil {
		return nil, err
	}
	thenBody, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStmt{Cond: cond, Then: thenBody, Pos: pos}
	if p.curIs(lexer.ELSE) {
		p.next()
		elseBody, err := p.parseBody()
		if err != nil {
			return nil, err
		}
		stmt.Else = elseBody
	}
	if _, err := p.expect(lexer.END); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseWhileStatement parses: while Cond loop Body end
func (p *Parser) parseWhileStatement() (ast.Statement, error) {
	pos := p.curToken.Pos
	p.next()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LOOP); err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.END); err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Cond: cond, Body: body, Pos: pos}, nil
}

// parseForStatement parses: for NAME in Expr ('..' Expr)? ('reverse')? loop Body end
func (p *Parser) parseForStatement() (ast.Statement, error) {
	pos := p.curToken.Pos
	p.next()
	loopVar, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.IN); err != nil {
		return nil, err
	}
	first, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	rng := &ast.Range{Pos: first.Position()}
	if p.curIs(lexer.DOTDOT) {
		p.next()
		last, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		rng.Start, rng.End = first, last
	} else {
		// For-each form: start is absent, end names the array.
		rng.End = first
	}

	reverse := false
	if p.curIs(lexer.REVERSE) {
		reverse = true
		p.next()
	}

	if _, err := p.expect(lexer.LOOP); err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.END); err != nil {
		return nil, err
	}
	return &ast.ForStmt{LoopVar: loopVar.Literal, Range: rng, Reverse: reverse, Body: body, Pos: pos}, nil
}

// parseReturnStatement parses: return Expression? ';'
func (p *Parser) parseReturnStatement() (ast.Statement, error) {
	pos := p.curToken.Pos
	p.next()
	var value ast.Expression
	if !p.curIs(lexer.SEMICOLON) {
		v, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		value = v
	}
	if _, err := p.expect(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{Value: value, Pos: pos}, nil
}

// parseExpression is the entry point of the precedence cascade:
// or -> and -> comparison -> additive -> multiplicative -> unary -> primary.
func (p *Parser) parseExpression() (ast.Expression, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (ast.Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.curIs(lexer.OR) || p.curIs(lexer.XOR) {
		op := p.curToken.Type
		pos := p.curToken.Pos
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Left: left, Op: op, Right: right, Pos: pos}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expression, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.curIs(lexer.AND) {
		pos := p.curToken.Pos
		p.next()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Left: left, Op: lexer.AND, Right: right, Pos: pos}
	}
	return left, nil
}

func isComparisonOp(t lexer.TokenType) bool {
	switch t {
	case lexer.LESS, lexer.LESS_EQ, lexer.GREATER, lexer.GREATER_EQ, lexer.EQ, lexer.NOT_EQ:
		return true
	}
	return false
}

func (p *Parser) parseComparison() (ast.Expression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for isComparisonOp(p.curToken.Type) {
		op := p.curToken.Type
		pos := p.curToken.Pos
		p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Left: left, Op: op, Right: right, Pos: pos}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (ast.Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.curIs(lexer.PLUS) || p.curIs(lexer.MINUS) {
		op := p.curToken.Type
		pos := p.curToken.Pos
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Left: left, Op: op, Right: right, Pos: pos}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.curIs(lexer.ASTERISK) || p.curIs(lexer.SLASH) || p.curIs(lexer.PERCENT) {
		op := p.curToken.Type
		pos := p.curToken.Pos
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Left: left, Op: op, Right: right, Pos: pos}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	if p.curIs(lexer.NOT) || p.curIs(lexer.MINUS) {
		op := p.curToken.Type
		pos := p.curToken.Pos
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: op, Operand: operand, Pos: pos}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	pos := p.curToken.Pos
	switch p.curToken.Type {
	case lexer.INT:
		lit := p.curToken.Literal
		p.next()
		v, err := strconv.ParseInt(lit, 10, 32)
		if err != nil {
			return nil, &ParseError{Message: "invalid integer literal " + lit, Pos: pos}
		}
		return &ast.IntLit{Value: int32(v), Pos: pos}, nil
	case lexer.REAL:
		lit := p.curToken.Literal
		p.next()
		v, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return nil, &ParseError{Message: "invalid real literal " + lit, Pos: pos}
		}
		return &ast.RealLit{Value: v, Pos: pos}, nil
	case lexer.STRING:
		lit := p.curToken.Literal
		p.next()
		return &ast.StringLit{Value: lit, Pos: pos}, nil
	case lexer.BOOL:
		v := strings.EqualFold(p.curToken.Literal, "true")
		p.next()
		return &ast.BoolLit{Value: v, Pos: pos}, nil
	case lexer.LPAREN:
		p.next()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	case lexer.LBRACK:
		return p.parseArrayLiteral()
	case lexer.LBRACE:
		return p.parseRecordLiteral()
	case lexer.IDENT:
		name := p.curToken.Literal
		p.next()
		if p.curIs(lexer.LPAREN) {
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			return &ast.FunctionCall{Name: name, Args: args, Pos: pos}, nil
		}
		if p.curIs(lexer.DOT) || p.curIs(lexer.LBRACK) {
			accesses, err := p.parseAccessChain()
			if err != nil {
				return nil, err
			}
			return &ast.ModifiablePrimary{Base: name, Accesses: accesses, Pos: pos}, nil
		}
		return &ast.Identifier{Name: name, Pos: pos}, nil
	default:
		return nil, &ParseError{Expected: "expression", Got: p.curToken, Pos: p.curToken.Pos}
	}
}

// parseArrayLiteral parses: '[' (Expr (',' Expr)*)? ']'
func (p *Parser) parseArrayLiteral() (ast.Expression, error) {
	pos := p.curToken.Pos
	p.next()
	var elems []ast.Expression
	if !p.curIs(lexer.RBRACK) {
		for {
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.curIs(lexer.COMMA) {
				p.next()
				continue
			}
			break
		}
	}
	if _, err := p.expect(lexer.RBRACK); err != nil {
		return nil, err
	}
	return &ast.ArrayLit{Elements: elems, Pos: pos}, nil
}

// parseRecordLiteral parses: '{' NAME ':' Expr (',' NAME ':' Expr)* '}'
func (p *Parser) parseRecordLiteral() (ast.Expression, error) {
	pos := p.curToken.Pos
	p.next()
	var fields []*ast.FieldInit
	if !p.curIs(lexer.RBRACE) {
		for {
			fpos := p.curToken.Pos
			name, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.COLON); err != nil {
				return nil, err
			}
			value, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			fields = append(fields, &ast.FieldInit{Name: name.Literal, Value: value, Pos: fpos})
			if p.curIs(lexer.COMMA) {
				p.next()
				continue
			}
			break
		}
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return &ast.RecordLit{Fields: fields, Pos: pos}, nil
}
