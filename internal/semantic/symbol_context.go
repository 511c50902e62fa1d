package semantic

import (
	"strings"

	"github.com/routlang/routc/internal/ast"
	"github.com/routlang/routc/internal/lexer"
)

// Kind is the resolved, alias-free classification of a Type: the set
// the code generator actually lowers against.
type Kind int

const (
	KindUnknown Kind = iota
	KindInteger
	KindReal
	KindBoolean
	KindString
	KindArray
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindBoolean:
		return "boolean"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether values of this kind participate in
// arithmetic with int/real promotion.
func (k Kind) IsNumeric() bool { return k == KindInteger || k == KindReal }

// ResolvedField is one field of a resolved record type, in declared order.
type ResolvedField struct {
	Name   string
	Type   *ResolvedType
	Offset int
}

// ResolvedType is a UserType-free, fully dereferenced type description.
// The analyzer builds these once per distinct Type and hands them to
// the code generator, which never has to walk an alias chain itself.
type ResolvedType struct {
	Kind   Kind
	Elem   *ResolvedType  // non-nil when Kind == KindArray
	Fields []ResolvedField // non-nil when Kind == KindRecord
}

// SymbolContext holds the three stacked scopes (variables, types, and
// the flat routine table) plus the current-routine marker and inLoop
// flag described in spec §4.3. Mirrors the teacher's SymbolTable
// outer-chain idiom, reshaped as an explicit scope stack since the
// analyzer (not the symbols) owns scope lifetime here.
type SymbolContext struct {
	varScopes  []map[string]*VarSymbol
	typeScopes []map[string]ast.Type

	routines map[string]*RoutineSymbol

	currentRoutine *RoutineSymbol
	loopDepth      int

	resolvedCache map[ast.Type]*ResolvedType
}

// VarSymbol is one entry in a variable scope.
type VarSymbol struct {
	Name     string
	Declared ast.Type
	Resolved *ResolvedType
	Pos      lexer.Position
	Used     bool
}

// RoutineSymbol is one entry in the flat routine table.
type RoutineSymbol struct {
	Name       string
	Params     []*ast.Parameter
	ReturnType ast.Type // nil for a routine with no return value
	Resolved   *ResolvedType // nil if ReturnType is nil
	Pos        lexer.Position
}

// NewSymbolContext creates a context with one (global) variable scope
// and one (global) type scope already pushed.
func NewSymbolContext() *SymbolContext {
	ctx := &SymbolContext{
		routines:      make(map[string]*RoutineSymbol),
		resolvedCache: make(map[ast.Type]*ResolvedType),
	}
	ctx.PushVarScope()
	ctx.PushTypeScope()
	return ctx
}

func key(name string) string { return strings.ToLower(name) }

// PushVarScope opens a new nested variable scope.
func (c *SymbolContext) PushVarScope() {
	c.varScopes = append(c.varScopes, make(map[string]*VarSymbol))
}

// PopVarScope closes the innermost variable scope and returns warnings
// for every symbol declared there that was never read.
func (c *SymbolContext) PopVarScope() []string {
	n := len(c.varScopes)
	scope := c.varScopes[n-1]
	c.varScopes = c.varScopes[:n-1]

	var warnings []string
	for _, sym := range scope {
		if !sym.Used {
			warnings = append(warnings, unusedVarWarning(sym))
		}
	}
	return warnings
}

func unusedVarWarning(sym *VarSymbol) string {
	return "Variable '" + sym.Name + "' declared at " + sym.Pos.String() + " is never used"
}

// PushTypeScope opens a new nested type scope.
func (c *SymbolContext) PushTypeScope() {
	c.typeScopes = append(c.typeScopes, make(map[string]ast.Type))
}

// PopTypeScope closes the innermost type scope.
func (c *SymbolContext) PopTypeScope() {
	c.typeScopes = c.typeScopes[:len(c.typeScopes)-1]
}

// VarScopeDepth reports the number of open variable scopes; used to
// assert scope restoration (spec §8) after analysis completes.
func (c *SymbolContext) VarScopeDepth() int { return len(c.varScopes) }

// DeclareVar adds name to the innermost variable scope. It reports
// whether name was already declared in that same scope (a duplicate
// declaration, resolved as fatal per SPEC_FULL.md §4.3a).
func (c *SymbolContext) DeclareVar(name string, declared ast.Type, resolved *ResolvedType, pos lexer.Position) bool {
	scope := c.varScopes[len(c.varScopes)-1]
	if _, exists := scope[key(name)]; exists {
		return false
	}
	scope[key(name)] = &VarSymbol{Name: name, Declared: declared, Resolved: resolved, Pos: pos}
	return true
}

// ResolveVar walks the variable scopes from innermost to outermost,
// marking the symbol used on success.
func (c *SymbolContext) ResolveVar(name string) (*VarSymbol, bool) {
	for i := len(c.varScopes) - 1; i >= 0; i-- {
		if sym, ok := c.varScopes[i][key(name)]; ok {
			sym.Used = true
			return sym, true
		}
	}
	return nil, false
}

// IsGlobalVar reports whether name resolves in the outermost
// (program-level) variable scope — the set of names the code
// generator must lower as WASM globals rather than locals.
func (c *SymbolContext) IsGlobalVar(name string) bool {
	_, ok := c.varScopes[0][key(name)]
	return ok
}

// GlobalVars returns every symbol declared in the outermost variable
// scope, keyed by lower-cased name. The map has no iteration order;
// codegen walks the program's declarations and looks names up here.
func (c *SymbolContext) GlobalVars() map[string]*VarSymbol {
	return c.varScopes[0]
}

// DeclareType adds a type alias to the innermost type scope.
func (c *SymbolContext) DeclareType(name string, t ast.Type) {
	scope := c.typeScopes[len(c.typeScopes)-1]
	scope[key(name)] = t
}

// ResolveTypeName walks the type scopes from innermost to outermost.
func (c *SymbolContext) ResolveTypeName(name string) (ast.Type, bool) {
	for i := len(c.typeScopes) - 1; i >= 0; i-- {
		if t, ok := c.typeScopes[i][key(name)]; ok {
			return t, true
		}
	}
	return nil, false
}

// DeclareRoutine adds name to the flat routine table. Returns false if
// a routine with that name is already declared (routines are only
// declared at program top level, so there is exactly one table).
func (c *SymbolContext) DeclareRoutine(sym *RoutineSymbol) bool {
	if _, exists := c.routines[key(sym.Name)]; exists {
		return false
	}
	c.routines[key(sym.Name)] = sym
	return true
}

// ResolveRoutine looks up a routine by name.
func (c *SymbolContext) ResolveRoutine(name string) (*RoutineSymbol, bool) {
	sym, ok := c.routines[key(name)]
	return sym, ok
}

// EnterRoutine sets the current-routine marker.
func (c *SymbolContext) EnterRoutine(sym *RoutineSymbol) { c.currentRoutine = sym }

// ExitRoutine clears the current-routine marker.
func (c *SymbolContext) ExitRoutine() { c.currentRoutine = nil }

// CurrentRoutine returns the routine currently being analyzed, or nil
// at program top level.
func (c *SymbolContext) CurrentRoutine() *RoutineSymbol { return c.currentRoutine }

// EnterLoop increments the loop-nesting depth.
func (c *SymbolContext) EnterLoop() { c.loopDepth++ }

// ExitLoop decrements the loop-nesting depth.
func (c *SymbolContext) ExitLoop() { c.loopDepth-- }

// InLoop reports whether analysis is currently inside any loop body.
func (c *SymbolContext) InLoop() bool { return c.loopDepth > 0 }

// Resolve dereferences t (following UserType aliases through the type
// scopes) into a cached ResolvedType. Returns false if a UserType name
// cannot be found.
func (c *SymbolContext) Resolve(t ast.Type) (*ResolvedType, bool) {
	if cached, ok := c.resolvedCache[t]; ok {
		return cached, true
	}
	r, ok := c.resolve(t)
	if ok {
		c.resolvedCache[t] = r
	}
	return r, ok
}

func (c *SymbolContext) resolve(t ast.Type) (*ResolvedType, bool) {
	switch tt := t.(type) {
	case *ast.PrimitiveType:
		return &ResolvedType{Kind: primitiveKind(tt.Kind)}, true
	case *ast.ArrayType:
		elem, ok := c.Resolve(tt.Elem)
		if !ok {
			return nil, false
		}
		return &ResolvedType{Kind: KindArray, Elem: elem}, true
	case *ast.RecordType:
		fields := make([]ResolvedField, 0, len(tt.Fields))
		for i, f := range tt.Fields {
			ft, ok := c.Resolve(f.Type)
			if !ok {
				return nil, false
			}
			fields = append(fields, ResolvedField{Name: f.Name, Type: ft, Offset: i * 4})
		}
		return &ResolvedType{Kind: KindRecord, Fields: fields}, true
	case *ast.UserType:
		aliased, ok := c.ResolveTypeName(tt.Name)
		if !ok {
			return nil, false
		}
		return c.Resolve(aliased)
	default:
		return nil, false
	}
}

func primitiveKind(tok lexer.TokenType) Kind {
	switch tok {
	case lexer.INTEGER:
		return KindInteger
	case lexer.REAL_KW:
		return KindReal
	case lexer.BOOLEAN:
		return KindBoolean
	case lexer.STRING_KW:
		return KindString
	default:
		return KindUnknown
	}
}

// FieldType looks up a field by name on a resolved record type.
func (r *ResolvedType) FieldType(name string) (*ResolvedType, int, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Type, f.Offset, true
		}
	}
	return nil, -1, false
}
