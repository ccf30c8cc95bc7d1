package typeChecker

import (
	"github.com/xplshn/cbc/pkg/ast"
	"github.com/xplshn/cbc/pkg/config"
	"github.com/xplshn/cbc/pkg/token"
	"github.com/xplshn/cbc/pkg/util"
)

// TypeChecker annotates every expression node with its type and rewrites
// the nodes whose meaning depends on types: pointer arithmetic is scaled
// by the element size and sizeof becomes a constant.
type TypeChecker struct {
	cfg         *config.Config
	currentFunc *ast.Function
}

func NewTypeChecker(cfg *config.Config) *TypeChecker {
	return &TypeChecker{cfg: cfg}
}

// Check annotates prog in place.
func Check(prog *ast.Program, cfg *config.Config) error {
	return NewTypeChecker(cfg).Check(prog)
}

func (tc *TypeChecker) Check(prog *ast.Program) (err error) {
	defer util.Catch(&err)
	for _, fn := range prog.Funcs {
		if fn.IsDecl {
			continue
		}
		tc.currentFunc = fn
		tc.checkNode(fn.Body)
	}
	tc.currentFunc = nil
	return nil
}

func (tc *TypeChecker) checkNode(n *ast.Node) {
	if n == nil || n.Ty != nil {
		return
	}

	tc.checkNode(n.Lhs)
	tc.checkNode(n.Rhs)
	tc.checkNode(n.Cond)
	tc.checkNode(n.Then)
	tc.checkNode(n.Else)
	tc.checkNode(n.Init)
	tc.checkNode(n.Inc)
	for _, s := range n.Body {
		tc.checkNode(s)
	}
	for _, a := range n.Args {
		tc.checkNode(a)
	}

	switch n.Type {
	case ast.Number, ast.Equal, ast.NotEqual, ast.Less, ast.LessEqual, ast.FuncCall:
		n.Ty = ast.TypeInt
	case ast.Var:
		n.Ty = n.Var.Ty
	case ast.Add:
		tc.checkAdd(n)
	case ast.Sub:
		tc.checkSub(n)
	case ast.Mul, ast.Div:
		if !n.Lhs.Ty.IsInteger() || !n.Rhs.Ty.IsInteger() {
			util.Error(util.TypeError, n.Tok, "Invalid operands to '%s' (%s and %s).", n.Tok.Type, n.Lhs.Ty, n.Rhs.Ty)
		}
		n.Ty = ast.TypeInt
	case ast.Neg:
		if !n.Lhs.Ty.IsInteger() {
			util.Error(util.TypeError, n.Tok, "Invalid operand to unary '-' (%s).", n.Lhs.Ty)
		}
		n.Ty = ast.TypeInt
	case ast.Assign:
		if n.Lhs.Ty.Kind == ast.TYPE_ARRAY || !isLvalue(n.Lhs) {
			util.Error(util.TypeError, n.Tok, "Left side of assignment is not an lvalue.")
		}
		n.Ty = n.Lhs.Ty
	case ast.AddressOf:
		if !isLvalue(n.Lhs) {
			util.Error(util.TypeError, n.Tok, "Cannot take the address of an rvalue.")
		}
		if n.Lhs.Ty.Kind == ast.TYPE_ARRAY {
			n.Ty = ast.PointerTo(n.Lhs.Ty.Base)
		} else {
			n.Ty = ast.PointerTo(n.Lhs.Ty)
		}
	case ast.Deref:
		if !n.Lhs.Ty.HasBase() {
			util.Error(util.TypeError, n.Tok, "Invalid pointer dereference of type %s.", n.Lhs.Ty)
		}
		n.Ty = n.Lhs.Ty.Base
	case ast.Sizeof:
		size := n.Lhs.Ty.Size
		n.Type, n.Val, n.Lhs, n.Ty = ast.Number, int64(size), nil, ast.TypeInt
	}
}

func isLvalue(n *ast.Node) bool {
	return n.Type == ast.Var || n.Type == ast.Deref
}

// checkAdd types an addition. int+ptr is normalized to ptr+int so the
// code generator only sees the pointer on the left.
func (tc *TypeChecker) checkAdd(n *ast.Node) {
	lt, rt := n.Lhs.Ty, n.Rhs.Ty
	switch {
	case lt.IsInteger() && rt.IsInteger():
		n.Ty = ast.TypeInt
	case lt.HasBase() && rt.HasBase():
		util.Error(util.TypeError, n.Tok, "Invalid operands to '+' (%s and %s).", lt, rt)
	case rt.HasBase():
		n.Lhs, n.Rhs = n.Rhs, n.Lhs
		tc.checkAdd(n)
	default:
		n.Rhs = scale(n.Rhs, lt.Base.Size)
		n.Ty = ast.PointerTo(lt.Base)
	}
}

// checkSub types a subtraction. ptr-ptr needs matching element types and
// becomes the element distance (lhs - rhs) / size.
func (tc *TypeChecker) checkSub(n *ast.Node) {
	lt, rt := n.Lhs.Ty, n.Rhs.Ty
	switch {
	case lt.IsInteger() && rt.IsInteger():
		n.Ty = ast.TypeInt
	case lt.HasBase() && rt.IsInteger():
		n.Rhs = scale(n.Rhs, lt.Base.Size)
		n.Ty = ast.PointerTo(lt.Base)
	case lt.HasBase() && rt.HasBase():
		if lt.Base.String() != rt.Base.String() {
			util.Error(util.TypeError, n.Tok, "Invalid operands to '-' (%s and %s).", lt, rt)
		}
		diff := ast.NewBinary(n.Tok, ast.Sub, n.Lhs, n.Rhs)
		diff.Ty = ast.TypeInt
		n.Type, n.Lhs, n.Rhs = ast.Div, diff, intConst(n.Tok, int64(lt.Base.Size))
		n.Ty = ast.TypeInt
	default:
		util.Error(util.TypeError, n.Tok, "Invalid operands to '-' (%s and %s).", lt, rt)
	}
}

// scale multiplies an integer offset by an element size. Literal offsets
// are folded.
func scale(n *ast.Node, size int) *ast.Node {
	if size == 1 {
		return n
	}
	if n.Type == ast.Number {
		n.Val *= int64(size)
		return n
	}
	mul := ast.NewBinary(n.Tok, ast.Mul, n, intConst(n.Tok, int64(size)))
	mul.Ty = ast.TypeInt
	return mul
}

func intConst(tok token.Token, val int64) *ast.Node {
	n := ast.NewNumber(tok, val)
	n.Ty = ast.TypeInt
	return n
}
