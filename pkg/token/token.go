package token

import "fmt"

type Type int

const (
	EOF Type = iota
	Ident
	Num
	Char
	String
	Int
	CharKw
	Return
	If
	Else
	For
	While
	Sizeof
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semi
	Comma
	Colon
	Question
	Dot
	Eq
	Plus
	Minus
	Star
	Slash
	Rem
	And
	Or
	Xor
	Not
	Complement
	EqEq
	Neq
	Lt
	Gt
	Lte
	Gte
)

var KeywordMap = map[string]Type{
	"return": Return,
	"if":     If,
	"else":   Else,
	"for":    For,
	"while":  While,
	"int":    Int,
	"char":   CharKw,
	"sizeof": Sizeof,
}

// Punctuators holds the single-character punctuators the lexer accepts.
var Punctuators = map[byte]Type{
	'(': LParen, ')': RParen, '{': LBrace, '}': RBrace, '[': LBracket, ']': RBracket,
	';': Semi, ',': Comma, ':': Colon, '?': Question, '.': Dot, '=': Eq,
	'+': Plus, '-': Minus, '*': Star, '/': Slash, '%': Rem, '&': And, '|': Or,
	'^': Xor, '!': Not, '~': Complement, '<': Lt, '>': Gt,
}

// TwoCharOps are matched greedily before single-character punctuators.
var TwoCharOps = map[string]Type{
	"==": EqEq,
	"!=": Neq,
	"<=": Lte,
	">=": Gte,
}

var TypeStrings = make(map[Type]string)

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
	for ch, typ := range Punctuators {
		TypeStrings[typ] = string(ch)
	}
	for str, typ := range TwoCharOps {
		TypeStrings[typ] = str
	}
	TypeStrings[EOF] = "end of input"
	TypeStrings[Ident] = "identifier"
	TypeStrings[Num] = "number"
	TypeStrings[Char] = "character literal"
	TypeStrings[String] = "string literal"
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// IsOperator reports whether t is a punctuator that takes operands.
func (t Type) IsOperator() bool {
	switch t {
	case Eq, Plus, Minus, Star, Slash, Rem, And, Or, Xor, Not, Complement, EqEq, Neq, Lt, Gt, Lte, Gte:
		return true
	}
	return false
}

// Token is a classified slice of the source. Line and column are not
// stored; util derives them from Pos when a diagnostic is printed.
type Token struct {
	Type  Type
	Value string // identifier text or decoded string literal
	Num   int64  // value of Num and Char tokens
	Pos   int    // byte offset into the source
	Len   int
}

// Text returns the token's spelling for diagnostics.
func (t Token) Text() string {
	switch t.Type {
	case Ident:
		return t.Value
	case Num:
		return fmt.Sprintf("%d", t.Num)
	case String:
		return fmt.Sprintf("%q", t.Value)
	}
	return t.Type.String()
}
