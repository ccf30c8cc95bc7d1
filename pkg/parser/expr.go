package parser

import (
	"github.com/xplshn/cbc/pkg/ast"
	"github.com/xplshn/cbc/pkg/token"
	"github.com/xplshn/cbc/pkg/util"
)

// Each precedence level consumes its operands through the next higher
// level, so precedence lives in the call structure.

func (p *Parser) parseExpr() *ast.Node {
	return p.parseAssign()
}

// assign = equality ("=" assign)?
func (p *Parser) parseAssign() *ast.Node {
	node := p.parseEquality()
	if p.match(token.Eq) {
		tok := p.previous
		return ast.NewBinary(tok, ast.Assign, node, p.parseAssign())
	}
	return node
}

// equality = relational ("==" relational | "!=" relational)*
func (p *Parser) parseEquality() *ast.Node {
	node := p.parseRelational()
	for {
		tok := p.current
		switch {
		case p.match(token.EqEq):
			node = ast.NewBinary(tok, ast.Equal, node, p.parseRelational())
		case p.match(token.Neq):
			node = ast.NewBinary(tok, ast.NotEqual, node, p.parseRelational())
		default:
			return node
		}
	}
}

// relational = add ("<" add | "<=" add | ">" add | ">=" add)*
//
// a > b is built as b < a and a >= b as b <= a.
func (p *Parser) parseRelational() *ast.Node {
	node := p.parseAdd()
	for {
		tok := p.current
		switch {
		case p.match(token.Lt):
			node = ast.NewBinary(tok, ast.Less, node, p.parseAdd())
		case p.match(token.Lte):
			node = ast.NewBinary(tok, ast.LessEqual, node, p.parseAdd())
		case p.match(token.Gt):
			node = ast.NewBinary(tok, ast.Less, p.parseAdd(), node)
		case p.match(token.Gte):
			node = ast.NewBinary(tok, ast.LessEqual, p.parseAdd(), node)
		default:
			return node
		}
	}
}

// add = mul ("+" mul | "-" mul)*
func (p *Parser) parseAdd() *ast.Node {
	node := p.parseMul()
	for {
		tok := p.current
		switch {
		case p.match(token.Plus):
			node = ast.NewBinary(tok, ast.Add, node, p.parseMul())
		case p.match(token.Minus):
			node = ast.NewBinary(tok, ast.Sub, node, p.parseMul())
		default:
			return node
		}
	}
}

// mul = unary ("*" unary | "/" unary)*
func (p *Parser) parseMul() *ast.Node {
	node := p.parseUnary()
	for {
		tok := p.current
		switch {
		case p.match(token.Star):
			node = ast.NewBinary(tok, ast.Mul, node, p.parseUnary())
		case p.match(token.Slash):
			node = ast.NewBinary(tok, ast.Div, node, p.parseUnary())
		default:
			return node
		}
	}
}

// unary = ("+" | "-" | "*" | "&") unary | postfix
func (p *Parser) parseUnary() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Plus):
		return p.parseUnary()
	case p.match(token.Minus):
		return ast.NewUnary(tok, ast.Neg, p.parseUnary())
	case p.match(token.Star):
		return ast.NewUnary(tok, ast.Deref, p.parseUnary())
	case p.match(token.And):
		return ast.NewUnary(tok, ast.AddressOf, p.parseUnary())
	}
	return p.parsePostfix()
}

// postfix = ident "(" (assign ("," assign)*)? ")" | primary
func (p *Parser) parsePostfix() *ast.Node {
	if p.check(token.Ident) && p.peek().Type == token.LParen {
		return p.parseFuncCall()
	}
	return p.parsePrimary()
}

func (p *Parser) parseFuncCall() *ast.Node {
	nameTok := p.current
	p.advance()
	p.advance()

	if p.syms.LookupFunc(nameTok.Value) == nil && p.syms.Lookup(nameTok.Value) != nil {
		util.Error(util.TypeError, nameTok, "Called object '%s' is not a function.", nameTok.Value)
	}

	var args []*ast.Node
	if !p.check(token.RParen) {
		for {
			args = append(args, p.parseAssign())
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.expect(token.RParen, "Expected ')' after function arguments.")
	return ast.NewFuncCall(nameTok, nameTok.Value, args)
}

// primary = "(" expr ")" | "sizeof" unary | ident | num | char | str
func (p *Parser) parsePrimary() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.LParen):
		node := p.parseExpr()
		p.expect(token.RParen, "Expected ')' after expression.")
		return node
	case p.match(token.Sizeof):
		return ast.NewUnary(tok, ast.Sizeof, p.parseUnary())
	case p.match(token.Ident):
		sym := p.syms.Lookup(tok.Value)
		if sym == nil {
			util.Error(util.NameError, tok, "Undefined variable '%s'.", tok.Value)
		}
		return ast.NewVar(tok, sym)
	case p.match(token.Num), p.match(token.Char):
		return ast.NewNumber(tok, tok.Num)
	case p.match(token.String):
		return ast.NewVar(tok, p.syms.AddString(tok, tok.Value))
	}

	// An operator with nothing after it is reported at the operator.
	if p.pos > 0 && p.previous.Type.IsOperator() {
		util.Error(util.SyntaxError, p.previous, "Expected an expression after '%s'.", p.previous.Type)
	}
	util.Error(util.SyntaxError, tok, "Expected an expression, found %s.", tok.Text())
	return nil
}
