package symtab

import (
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/cbc/pkg/ast"
	"github.com/xplshn/cbc/pkg/token"
)

func TestLookupOrder(t *testing.T) {
	tab := New()
	g := tab.AddGlobal(token.Token{}, "x", ast.TypeInt)
	be.Equal(t, tab.Lookup("x"), g)

	tab.BeginFunction()
	p := tab.AddLocal(token.Token{}, "x", ast.TypeChar, ast.SymParam)
	be.Equal(t, tab.Lookup("x"), p)
	l := tab.AddLocal(token.Token{}, "x", ast.TypeInt, ast.SymLocal)
	be.Equal(t, tab.Lookup("x"), l)
	be.Equal(t, tab.LookupLocal("x"), l)
	be.True(t, tab.InFunction())

	locals := tab.EndFunction()
	be.Equal(t, len(locals), 2)
	be.Equal(t, locals[0], p)
	be.Equal(t, tab.Lookup("x"), g)
	be.True(t, tab.LookupLocal("x") == nil)
	be.True(t, !tab.InFunction())
}

func TestStringsAreAnonymousGlobals(t *testing.T) {
	tab := New()
	s0 := tab.AddString(token.Token{}, "hi")
	s1 := tab.AddString(token.Token{}, "")
	be.Equal(t, s0.Name, ".L..0")
	be.Equal(t, s1.Name, ".L..1")
	be.Equal(t, s0.Ty.Size, 3)
	be.Equal(t, s1.InitData, []byte{0})
	be.Equal(t, len(tab.Globals()), 2)
	be.True(t, tab.LookupGlobal(".L..0") == nil)
}

func TestFunctionsKeepFirstDeclaration(t *testing.T) {
	tab := New()
	first := tab.AddFunc(token.Token{}, "f", ast.FuncType(ast.TypeInt))
	again := tab.AddFunc(token.Token{}, "f", ast.FuncType(ast.TypeInt))
	be.Equal(t, again, first)
	be.Equal(t, len(tab.Funcs()), 1)
	be.True(t, tab.LookupFunc("g") == nil)
	be.True(t, tab.Lookup("f") == nil)
}
