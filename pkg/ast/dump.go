package ast

import (
	"fmt"
	"strings"
)

// Dump renders a node as an s-expression, e.g. (+ (var a) (num 1)).
// Types are included as a ":type" suffix when withTypes is set.
func Dump(n *Node, withTypes bool) string {
	var sb strings.Builder
	dump(&sb, n, withTypes)
	return sb.String()
}

func dump(sb *strings.Builder, n *Node, withTypes bool) {
	if n == nil {
		sb.WriteString("()")
		return
	}
	sb.WriteString("(")
	sb.WriteString(n.Type.String())
	switch n.Type {
	case Number:
		fmt.Fprintf(sb, " %d", n.Val)
	case Var:
		sb.WriteString(" " + n.Var.Name)
	case FuncCall:
		sb.WriteString(" " + n.FuncName)
		for _, a := range n.Args {
			sb.WriteString(" ")
			dump(sb, a, withTypes)
		}
	case Block:
		for _, s := range n.Body {
			sb.WriteString(" ")
			dump(sb, s, withTypes)
		}
	case If:
		for _, c := range []*Node{n.Cond, n.Then, n.Else} {
			sb.WriteString(" ")
			dump(sb, c, withTypes)
		}
	case For:
		for _, c := range []*Node{n.Init, n.Cond, n.Inc, n.Then} {
			sb.WriteString(" ")
			dump(sb, c, withTypes)
		}
	default:
		if n.Lhs != nil {
			sb.WriteString(" ")
			dump(sb, n.Lhs, withTypes)
		}
		if n.Rhs != nil {
			sb.WriteString(" ")
			dump(sb, n.Rhs, withTypes)
		}
	}
	sb.WriteString(")")
	if withTypes && n.Ty != nil {
		sb.WriteString(":" + n.Ty.String())
	}
}

// DumpProgram renders every function of prog, one per line.
func DumpProgram(prog *Program, withTypes bool) string {
	var sb strings.Builder
	for _, g := range prog.Globals {
		fmt.Fprintf(&sb, "global %s %s\n", g.Name, g.Ty)
	}
	for _, fn := range prog.Funcs {
		if fn.IsDecl {
			fmt.Fprintf(&sb, "decl %s\n", fn.Name)
			continue
		}
		fmt.Fprintf(&sb, "func %s %s\n", fn.Name, Dump(fn.Body, withTypes))
	}
	return sb.String()
}
