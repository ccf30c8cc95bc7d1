package ast

import "github.com/xplshn/cbc/pkg/token"

type SymbolKind int

const (
	SymLocal SymbolKind = iota
	SymParam
	SymGlobal
	SymFunc
)

// Symbol is a named storage location or function. Locals and parameters
// live at Offset from the frame base once codegen.AssignOffsets has run;
// globals and string literals live in static data under their Name.
type Symbol struct {
	Name     string
	Kind     SymbolKind
	Ty       *Type
	Tok      token.Token
	Offset   int
	InitData []byte // string literal contents, NUL included
}

func (s *Symbol) IsLocal() bool { return s.Kind == SymLocal || s.Kind == SymParam }

type Function struct {
	Name      string
	Tok       token.Token
	Ty        *Type
	Params    []*Symbol
	Locals    []*Symbol // parameters first, then body locals in declaration order
	Body      *Node
	StackSize int
	IsDecl    bool // prototype only, nothing is emitted
}

// Program is the result of parsing one translation unit.
type Program struct {
	Globals []*Symbol // variables and string literals, in creation order
	Funcs   []*Function
}
