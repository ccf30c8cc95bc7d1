package ast

import "fmt"

type TypeKind int

const (
	TYPE_INT TypeKind = iota
	TYPE_CHAR
	TYPE_POINTER
	TYPE_FUNC
	TYPE_ARRAY
)

// Type is a C type. Base is the pointee, the array element or, for
// functions, the return type.
type Type struct {
	Kind TypeKind
	Base *Type
	Size int
	Len  int // arrays only
}

var (
	TypeInt  = &Type{Kind: TYPE_INT, Size: 8}
	TypeChar = &Type{Kind: TYPE_CHAR, Size: 1}
)

func PointerTo(base *Type) *Type {
	return &Type{Kind: TYPE_POINTER, Base: base, Size: 8}
}

func ArrayOf(base *Type, n int) *Type {
	return &Type{Kind: TYPE_ARRAY, Base: base, Size: base.Size * n, Len: n}
}

func FuncType(ret *Type) *Type {
	return &Type{Kind: TYPE_FUNC, Base: ret}
}

func (t *Type) IsInteger() bool { return t.Kind == TYPE_INT || t.Kind == TYPE_CHAR }

// HasBase reports whether t can be dereferenced or offset: pointers and
// arrays, which decay to a pointer to their first element.
func (t *Type) HasBase() bool { return t.Kind == TYPE_POINTER || t.Kind == TYPE_ARRAY }

func (t *Type) String() string {
	if t == nil {
		return "<untyped>"
	}
	switch t.Kind {
	case TYPE_INT:
		return "int"
	case TYPE_CHAR:
		return "char"
	case TYPE_POINTER:
		return t.Base.String() + "*"
	case TYPE_ARRAY:
		return fmt.Sprintf("%s[%d]", t.Base, t.Len)
	case TYPE_FUNC:
		return t.Base.String() + "()"
	}
	return "?"
}
