// Package ast defines the syntax tree, types and symbols shared by the
// parser, the type checker and the code generator.
package ast

import "github.com/xplshn/cbc/pkg/token"

// NodeType defines the kind of a node in the AST
type NodeType int

const (
	// Expressions
	Add NodeType = iota
	Sub
	Mul
	Div
	Neg
	Equal
	NotEqual
	Less
	LessEqual
	Assign
	AddressOf
	Deref
	Var
	Number
	FuncCall
	Sizeof

	// Statements
	ExprStmt
	Return
	If
	For
	Block
)

var nodeNames = [...]string{
	Add: "+", Sub: "-", Mul: "*", Div: "/", Neg: "neg",
	Equal: "==", NotEqual: "!=", Less: "<", LessEqual: "<=",
	Assign: "=", AddressOf: "addr", Deref: "deref", Var: "var", Number: "num",
	FuncCall: "call", Sizeof: "sizeof",
	ExprStmt: "expr", Return: "return", If: "if", For: "for", Block: "block",
}

func (t NodeType) String() string { return nodeNames[t] }

// Node is a single AST node. Which operand slots are used depends on Type:
// binary operators use Lhs and Rhs, unary ones Lhs, If uses Cond/Then/Else,
// For uses Init/Cond/Inc/Then, Block uses Body and FuncCall uses Args.
type Node struct {
	Type NodeType
	Tok  token.Token
	Ty   *Type // set by the type checker

	Lhs, Rhs         *Node
	Cond, Then, Else *Node
	Init, Inc        *Node
	Body             []*Node
	Args             []*Node

	Var      *Symbol // Var
	Val      int64   // Number
	FuncName string  // FuncCall
}

func newNode(tok token.Token, nodeType NodeType) *Node {
	return &Node{Type: nodeType, Tok: tok}
}

func NewBinary(tok token.Token, nodeType NodeType, lhs, rhs *Node) *Node {
	n := newNode(tok, nodeType)
	n.Lhs, n.Rhs = lhs, rhs
	return n
}

func NewUnary(tok token.Token, nodeType NodeType, expr *Node) *Node {
	n := newNode(tok, nodeType)
	n.Lhs = expr
	return n
}

func NewNumber(tok token.Token, val int64) *Node {
	n := newNode(tok, Number)
	n.Val = val
	return n
}

func NewVar(tok token.Token, sym *Symbol) *Node {
	n := newNode(tok, Var)
	n.Var = sym
	return n
}

func NewFuncCall(tok token.Token, name string, args []*Node) *Node {
	n := newNode(tok, FuncCall)
	n.FuncName, n.Args = name, args
	return n
}

func NewIf(tok token.Token, cond, then, els *Node) *Node {
	n := newNode(tok, If)
	n.Cond, n.Then, n.Else = cond, then, els
	return n
}

// NewFor builds the single loop node; a while loop is a For without Init
// and Inc.
func NewFor(tok token.Token, init, cond, inc, body *Node) *Node {
	n := newNode(tok, For)
	n.Init, n.Cond, n.Inc, n.Then = init, cond, inc, body
	return n
}

func NewBlock(tok token.Token, stmts []*Node) *Node {
	n := newNode(tok, Block)
	n.Body = stmts
	return n
}

// IsExpr reports whether the node kind produces a value.
func (n *Node) IsExpr() bool { return n.Type < ExprStmt }
