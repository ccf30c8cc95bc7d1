// Package symtab records the declarations the parser discovers: the
// locals of the function being parsed, globals, string literals and
// function signatures.
package symtab

import (
	"fmt"

	"github.com/xplshn/cbc/pkg/ast"
	"github.com/xplshn/cbc/pkg/token"
)

type Table struct {
	locals    []*ast.Symbol
	globals   []*ast.Symbol
	funcs     map[string]*ast.Symbol
	strCount  int
	inFunc    bool
	funcOrder []*ast.Symbol
}

func New() *Table {
	return &Table{funcs: make(map[string]*ast.Symbol)}
}

// BeginFunction resets the locals accumulator for a new function.
func (t *Table) BeginFunction() {
	t.locals = nil
	t.inFunc = true
}

// EndFunction hands back the accumulated locals, parameters first.
func (t *Table) EndFunction() []*ast.Symbol {
	locals := t.locals
	t.locals = nil
	t.inFunc = false
	return locals
}

func (t *Table) AddLocal(tok token.Token, name string, ty *ast.Type, kind ast.SymbolKind) *ast.Symbol {
	sym := &ast.Symbol{Name: name, Kind: kind, Ty: ty, Tok: tok}
	t.locals = append(t.locals, sym)
	return sym
}

func (t *Table) AddGlobal(tok token.Token, name string, ty *ast.Type) *ast.Symbol {
	sym := &ast.Symbol{Name: name, Kind: ast.SymGlobal, Ty: ty, Tok: tok}
	t.globals = append(t.globals, sym)
	return sym
}

// AddString creates anonymous static data for a string literal.
func (t *Table) AddString(tok token.Token, value string) *ast.Symbol {
	data := append([]byte(value), 0)
	sym := t.AddGlobal(tok, fmt.Sprintf(".L..%d", t.strCount), ast.ArrayOf(ast.TypeChar, len(data)))
	sym.InitData = data
	t.strCount++
	return sym
}

// AddFunc records a function signature. Redeclaring a function returns
// the existing symbol.
func (t *Table) AddFunc(tok token.Token, name string, ty *ast.Type) *ast.Symbol {
	if sym, ok := t.funcs[name]; ok {
		return sym
	}
	sym := &ast.Symbol{Name: name, Kind: ast.SymFunc, Ty: ty, Tok: tok}
	t.funcs[name] = sym
	t.funcOrder = append(t.funcOrder, sym)
	return sym
}

func (t *Table) LookupFunc(name string) *ast.Symbol { return t.funcs[name] }

// Lookup resolves a variable name: the newest local first, then globals.
// The first match wins, so a later declaration shadows an earlier one.
func (t *Table) Lookup(name string) *ast.Symbol {
	for i := len(t.locals) - 1; i >= 0; i-- {
		if t.locals[i].Name == name {
			return t.locals[i]
		}
	}
	for i := len(t.globals) - 1; i >= 0; i-- {
		if t.globals[i].Name == name {
			return t.globals[i]
		}
	}
	return nil
}

// LookupLocal searches only the current function's accumulator.
func (t *Table) LookupLocal(name string) *ast.Symbol {
	for i := len(t.locals) - 1; i >= 0; i-- {
		if t.locals[i].Name == name {
			return t.locals[i]
		}
	}
	return nil
}

// LookupGlobal searches globals only, ignoring string literals.
func (t *Table) LookupGlobal(name string) *ast.Symbol {
	for _, g := range t.globals {
		if g.Name == name && g.InitData == nil {
			return g
		}
	}
	return nil
}

func (t *Table) InFunction() bool      { return t.inFunc }
func (t *Table) Globals() []*ast.Symbol { return t.globals }
func (t *Table) Funcs() []*ast.Symbol   { return t.funcOrder }
