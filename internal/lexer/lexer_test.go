package lexer

import "testing"

func collectTypes(t *testing.T, input string) []TokenType {
	t.Helper()
	l := New(input)
	var kinds []TokenType
	for {
		tok := l.NextToken()
		kinds = append(kinds, tok.Type)
		if tok.Type == EOF {
			break
		}
	}
	return kinds
}

func TestNextTokenOperatorsAndPunctuation(t *testing.T) {
	input := `var x : integer := 5; x := x + 1;`
	expected := []TokenType{
		VAR, IDENT, COLON, INTEGER, ASSIGN, INT, SEMICOLON,
		IDENT, ASSIGN, IDENT, PLUS, INT, SEMICOLON, EOF,
	}
	got := collectTypes(t, input)
	if len(got) != len(expected) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(expected), got)
	}
	for i, want := range expected {
		if got[i] != want {
			t.Errorf("token %d: got %s, want %s", i, got[i], want)
		}
	}
}

func TestRangeDoesNotLexAsReal(t *testing.T) {
	// "1..10" must lex as INT DOTDOT INT, never REAL DOT INT.
	got := collectTypes(t, "1..10")
	want := []TokenType{INT, DOTDOT, INT, EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRealLiteral(t *testing.T) {
	got := collectTypes(t, "3.14")
	want := []TokenType{REAL, EOF}
	if len(got) != len(want) || got[0] != REAL {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestASIInsertsSemicolonAcrossNewline(t *testing.T) {
	input := "x := 1\ny := 2\n"
	got := collectTypes(t, input)
	want := []TokenType{
		IDENT, ASSIGN, INT, SEMICOLON,
		IDENT, ASSIGN, INT, SEMICOLON,
		EOF,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestASISuppressedInsideBrackets(t *testing.T) {
	input := "f(1,\n2)"
	got := collectTypes(t, input)
	for _, tok := range got {
		if tok == SEMICOLON {
			t.Fatalf("no semicolon should be synthesized inside parens, got %v", got)
		}
	}
}

func TestASIAfterKeywordEnd(t *testing.T) {
	input := "if a then\nprint 1\nend\nprint 2\n"
	got := collectTypes(t, input)
	// ... end <SEMI> print 2 <SEMI>
	foundSemiAfterEnd := false
	for i, tok := range got {
		if tok == END && i+1 < len(got) && got[i+1] == SEMICOLON {
			foundSemiAfterEnd = true
		}
	}
	if !foundSemiAfterEnd {
		t.Fatalf("expected a synthesized semicolon after 'end', got %v", got)
	}
}

func TestLexerDeterminism(t *testing.T) {
	input := `routine main() is var x : integer is 5; print x end`
	first := collectTypes(t, input)
	second := collectTypes(t, input)
	if len(first) != len(second) {
		t.Fatalf("non-deterministic token count")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("token %d differs across runs: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestIllegalCharacterProducesErrorToken(t *testing.T) {
	l := New("x := @")
	var last Token
	for {
		tok := l.NextToken()
		last = tok
		if tok.Type == EOF {
			break
		}
	}
	_ = last
	got := collectTypes(t, "@")
	if got[0] != ILLEGAL {
		t.Fatalf("expected ILLEGAL token for '@', got %s", got[0])
	}
}

func TestKeywordsCaseInsensitive(t *testing.T) {
	got := collectTypes(t, "IF THEN Else")
	want := []TokenType{IF, THEN, ELSE, EOF}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBooleanLiterals(t *testing.T) {
	got := collectTypes(t, "true false")
	want := []TokenType{BOOL, BOOL, EOF}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}
