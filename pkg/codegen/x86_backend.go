package codegen

import (
	"bytes"
	"fmt"

	"github.com/xplshn/cbc/pkg/ast"
	"github.com/xplshn/cbc/pkg/config"
	"github.com/xplshn/cbc/pkg/util"
)

// x86Backend is a stack machine over %rax. Binary operators evaluate the
// right operand, push it, evaluate the left one and pop the right into
// %rdi.
type x86Backend struct {
	out        *bytes.Buffer
	cfg        *config.Config
	depth      int
	labelCount int
	currentFn  *ast.Function
}

var byteRegs = map[string]string{
	"%rdi": "%dil", "%rsi": "%sil", "%rdx": "%dl",
	"%rcx": "%cl", "%r8": "%r8b", "%r9": "%r9b",
}

func NewX86Backend() Backend { return &x86Backend{} }

func (b *x86Backend) Generate(prog *ast.Program, cfg *config.Config) (buf *bytes.Buffer, err error) {
	defer util.Catch(&err)
	b.out = new(bytes.Buffer)
	b.cfg = cfg
	b.depth = 0

	AssignOffsets(prog, cfg)
	b.emitData(prog)
	b.emitText(prog)
	return b.out, nil
}

func (b *x86Backend) emit(format string, args ...interface{}) {
	b.out.WriteString("  ")
	fmt.Fprintf(b.out, format, args...)
	b.out.WriteByte('\n')
}

func (b *x86Backend) label(format string, args ...interface{}) {
	fmt.Fprintf(b.out, format, args...)
	b.out.WriteString(":\n")
}

func (b *x86Backend) count() int {
	b.labelCount++
	return b.labelCount
}

func (b *x86Backend) push() {
	b.emit("push %%rax")
	b.depth++
}

func (b *x86Backend) pop(reg string) {
	b.emit("pop %s", reg)
	b.depth--
}

func (b *x86Backend) emitData(prog *ast.Program) {
	for _, g := range prog.Globals {
		name := b.cfg.Symbol(g.Name)
		b.emit(".data")
		if g.InitData == nil {
			b.emit(".globl %s", name)
		}
		b.label("%s", name)
		if g.InitData != nil {
			for _, c := range g.InitData {
				b.emit(".byte %d", c)
			}
			continue
		}
		b.emit(".zero %d", g.Ty.Size)
	}
}

func (b *x86Backend) emitText(prog *ast.Program) {
	for _, fn := range prog.Funcs {
		if fn.IsDecl {
			continue
		}
		b.currentFn = fn
		name := b.cfg.Symbol(fn.Name)
		b.emit(".globl %s", name)
		b.emit(".text")
		b.label("%s", name)

		b.emit("push %%rbp")
		b.emit("mov %%rsp, %%rbp")
		b.emit("sub $%d, %%rsp", fn.StackSize)

		for i, p := range fn.Params {
			reg := b.cfg.ArgRegs[i]
			if p.Ty.Size == 1 {
				b.emit("mov %s, %d(%%rbp)", byteRegs[reg], p.Offset)
			} else {
				b.emit("mov %s, %d(%%rbp)", reg, p.Offset)
			}
		}

		b.genStmt(fn.Body)

		b.label(".L.return.%s", fn.Name)
		b.emit("mov %%rbp, %%rsp")
		b.emit("pop %%rbp")
		b.emit("ret")
	}
	b.currentFn = nil
}

func (b *x86Backend) genStmt(n *ast.Node) {
	switch n.Type {
	case ast.If:
		c := b.count()
		b.genExpr(n.Cond)
		b.emit("cmp $0, %%rax")
		b.emit("je .L.else.%d", c)
		b.genStmt(n.Then)
		b.emit("jmp .L.end.%d", c)
		b.label(".L.else.%d", c)
		if n.Else != nil {
			b.genStmt(n.Else)
		}
		b.label(".L.end.%d", c)
	case ast.For:
		c := b.count()
		if n.Init != nil {
			b.genStmt(n.Init)
		}
		b.label(".L.begin.%d", c)
		if n.Cond != nil {
			b.genExpr(n.Cond)
			b.emit("cmp $0, %%rax")
			b.emit("je .L.end.%d", c)
		}
		b.genStmt(n.Then)
		if n.Inc != nil {
			b.genExpr(n.Inc)
		}
		b.emit("jmp .L.begin.%d", c)
		b.label(".L.end.%d", c)
	case ast.Block:
		for _, s := range n.Body {
			b.genStmt(s)
		}
	case ast.Return:
		b.genExpr(n.Lhs)
		b.emit("jmp .L.return.%s", b.currentFn.Name)
	case ast.ExprStmt:
		b.genExpr(n.Lhs)
	default:
		util.Error(util.InternalError, n.Tok, "Invalid statement '%s'.", n.Type)
	}

	if b.depth != 0 {
		util.Error(util.InternalError, n.Tok, "Unbalanced stack after statement (depth %d).", b.depth)
	}
}

// genAddr computes the address of an lvalue into %rax.
func (b *x86Backend) genAddr(n *ast.Node) {
	switch n.Type {
	case ast.Var:
		if n.Var.IsLocal() {
			b.emit("lea %d(%%rbp), %%rax", n.Var.Offset)
		} else {
			b.emit("lea %s(%%rip), %%rax", b.cfg.Symbol(n.Var.Name))
		}
	case ast.Deref:
		b.genExpr(n.Lhs)
	default:
		util.Error(util.TypeError, n.Tok, "Expression is not an lvalue.")
	}
}

// load replaces the address in %rax with the value it points to. An
// array is left as its address.
func (b *x86Backend) load(ty *ast.Type) {
	switch {
	case ty.Kind == ast.TYPE_ARRAY:
	case ty.Size == 1:
		b.emit("movsbq (%%rax), %%rax")
	default:
		b.emit("mov (%%rax), %%rax")
	}
}

// store writes %rax to the address on top of the stack.
func (b *x86Backend) store(ty *ast.Type) {
	b.pop("%rdi")
	if ty.Size == 1 {
		b.emit("mov %%al, (%%rdi)")
	} else {
		b.emit("mov %%rax, (%%rdi)")
	}
}

func (b *x86Backend) genExpr(n *ast.Node) {
	switch n.Type {
	case ast.Number:
		b.emit("mov $%d, %%rax", n.Val)
		return
	case ast.Neg:
		b.genExpr(n.Lhs)
		b.emit("neg %%rax")
		return
	case ast.Var:
		b.genAddr(n)
		b.load(n.Ty)
		return
	case ast.Deref:
		b.genExpr(n.Lhs)
		b.load(n.Ty)
		return
	case ast.AddressOf:
		b.genAddr(n.Lhs)
		return
	case ast.Assign:
		b.genAddr(n.Lhs)
		b.push()
		b.genExpr(n.Rhs)
		b.store(n.Ty)
		return
	case ast.FuncCall:
		b.genCall(n)
		return
	}

	b.genExpr(n.Rhs)
	b.push()
	b.genExpr(n.Lhs)
	b.pop("%rdi")

	switch n.Type {
	case ast.Add:
		b.emit("add %%rdi, %%rax")
	case ast.Sub:
		b.emit("sub %%rdi, %%rax")
	case ast.Mul:
		b.emit("imul %%rdi, %%rax")
	case ast.Div:
		b.emit("cqo")
		b.emit("idiv %%rdi")
	case ast.Equal, ast.NotEqual, ast.Less, ast.LessEqual:
		b.emit("cmp %%rdi, %%rax")
		b.emit("%s %%al", setInsn[n.Type])
		b.emit("movzb %%al, %%rax")
	default:
		util.Error(util.InternalError, n.Tok, "Invalid expression '%s'.", n.Type)
	}
}

var setInsn = map[ast.NodeType]string{
	ast.Equal:     "sete",
	ast.NotEqual:  "setne",
	ast.Less:      "setl",
	ast.LessEqual: "setle",
}

// genCall passes arguments in registers. The call is wrapped in an 8
// byte adjustment when an odd number of values is pushed, keeping %rsp
// 16-byte aligned at the call.
func (b *x86Backend) genCall(n *ast.Node) {
	regs := b.cfg.ArgRegs
	if len(n.Args) > len(regs) {
		util.Error(util.TypeError, n.Tok, "Call to '%s' has %d arguments; at most %d are supported.", n.FuncName, len(n.Args), len(regs))
	}

	for _, arg := range n.Args {
		b.genExpr(arg)
		b.push()
	}
	for i := len(n.Args) - 1; i >= 0; i-- {
		b.pop(regs[i])
	}

	name := b.cfg.Symbol(n.FuncName)
	if b.depth%2 == 1 {
		b.emit("sub $8, %%rsp")
		b.emit("mov $0, %%rax")
		b.emit("call %s", name)
		b.emit("add $8, %%rsp")
		return
	}
	b.emit("mov $0, %%rax")
	b.emit("call %s", name)
}
