package parser

import (
	"github.com/xplshn/cbc/pkg/ast"
	"github.com/xplshn/cbc/pkg/config"
	"github.com/xplshn/cbc/pkg/symtab"
	"github.com/xplshn/cbc/pkg/token"
	"github.com/xplshn/cbc/pkg/util"
)

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
	syms     *symtab.Table
	cfg      *config.Config
	defined  map[string]bool
}

// NewParser creates and initializes a new Parser from an EOF-terminated
// token stream
func NewParser(tokens []token.Token, cfg *config.Config) *Parser {
	p := &Parser{tokens: tokens, syms: symtab.New(), cfg: cfg, defined: make(map[string]bool)}
	if len(tokens) > 0 {
		p.current = p.tokens[0]
	}
	return p
}

// Parse builds the whole program. Parsing stops at the first error.
func Parse(tokens []token.Token, cfg *config.Config) (*ast.Program, error) {
	return NewParser(tokens, cfg).Parse()
}

func (p *Parser) Parse() (prog *ast.Program, err error) {
	defer util.Catch(&err)
	prog = &ast.Program{}
	for !p.check(token.EOF) {
		base := p.parseDeclspec()
		ty, nameTok := p.parseDeclarator(base)
		if p.check(token.LParen) {
			prog.Funcs = append(prog.Funcs, p.parseFunction(ty, nameTok))
			continue
		}
		p.parseGlobalVars(base, ty, nameTok)
	}
	prog.Globals = p.syms.Globals()
	return prog, nil
}

// Parser helpers
func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.previous = p.current
		p.pos++
		p.current = p.tokens[p.pos]
	}
}

func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type, message string) {
	if p.check(tokType) {
		p.advance()
		return
	}
	util.Error(util.SyntaxError, p.current, "%s", message)
}

func (p *Parser) isTypeName() bool {
	return p.check(token.Int) || p.check(token.CharKw)
}

// Declarations

// declspec = "int" | "char"
func (p *Parser) parseDeclspec() *ast.Type {
	switch {
	case p.match(token.Int):
		return ast.TypeInt
	case p.match(token.CharKw):
		return ast.TypeChar
	}
	util.Error(util.SyntaxError, p.current, "Expected a type name, found %s.", p.current.Text())
	return nil
}

// declarator = "*"* ident
func (p *Parser) parseDeclarator(base *ast.Type) (*ast.Type, token.Token) {
	ty := base
	for p.match(token.Star) {
		ty = ast.PointerTo(ty)
	}
	p.expect(token.Ident, "Expected a variable name.")
	return ty, p.previous
}

func (p *Parser) parseGlobalVars(base, ty *ast.Type, nameTok token.Token) {
	for {
		if p.check(token.Eq) {
			util.Error(util.SyntaxError, p.current, "Global initializers are not supported.")
		}
		if p.syms.LookupGlobal(nameTok.Value) != nil {
			util.Error(util.NameError, nameTok, "Redefinition of global '%s'.", nameTok.Value)
		}
		if p.syms.LookupFunc(nameTok.Value) != nil {
			util.Error(util.NameError, nameTok, "'%s' redeclared as a variable; it is a function.", nameTok.Value)
		}
		p.syms.AddGlobal(nameTok, nameTok.Value, ty)
		if !p.match(token.Comma) {
			break
		}
		ty, nameTok = p.parseDeclarator(base)
	}
	p.expect(token.Semi, "Expected ';' after global declaration.")
}

// function = declspec declarator "(" params? ")" (block | ";")
func (p *Parser) parseFunction(retTy *ast.Type, nameTok token.Token) *ast.Function {
	name := nameTok.Value
	if p.syms.LookupGlobal(name) != nil {
		util.Error(util.NameError, nameTok, "'%s' redeclared as a function; it is a global variable.", name)
	}
	p.expect(token.LParen, "Expected '(' after function name.")
	p.syms.BeginFunction()

	nparams := 0
	if !p.check(token.RParen) {
		for {
			pty, ptok := p.parseDeclarator(p.parseDeclspec())
			p.syms.AddLocal(ptok, ptok.Value, pty, ast.SymParam)
			nparams++
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.expect(token.RParen, "Expected ')' after parameters.")

	fn := &ast.Function{Name: name, Tok: nameTok, Ty: ast.FuncType(retTy)}
	p.syms.AddFunc(nameTok, name, fn.Ty)

	if p.match(token.Semi) {
		fn.IsDecl = true
		fn.Params = p.syms.EndFunction()
		return fn
	}

	if p.defined[name] {
		util.Error(util.NameError, nameTok, "Redefinition of function '%s'.", name)
	}
	p.defined[name] = true
	if nparams > len(p.cfg.ArgRegs) {
		util.Error(util.TypeError, nameTok, "Function '%s' has %d parameters; at most %d are supported.", name, nparams, len(p.cfg.ArgRegs))
	}

	if !p.check(token.LBrace) {
		util.Error(util.SyntaxError, p.current, "Expected '{' or ';' after function declarator.")
	}
	fn.Body = p.parseCompoundStmt()
	fn.Locals = p.syms.EndFunction()
	fn.Params = fn.Locals[:nparams]
	return fn
}

// declaration = declspec (declarator ("=" assign)? ("," declarator ("=" assign)?)*)? ";"
func (p *Parser) parseDeclaration() *ast.Node {
	tok := p.current
	base := p.parseDeclspec()
	var stmts []*ast.Node
	for i := 0; !p.check(token.Semi); i++ {
		if i > 0 {
			p.expect(token.Comma, "Expected ',' between declarators.")
		}
		ty, nameTok := p.parseDeclarator(base)
		if p.cfg.IsFeatureEnabled(config.FeatStrictRedecl) && p.syms.LookupLocal(nameTok.Value) != nil {
			util.Error(util.NameError, nameTok, "Redeclaration of '%s'.", nameTok.Value)
		}
		sym := p.syms.AddLocal(nameTok, nameTok.Value, ty, ast.SymLocal)

		if p.match(token.Eq) {
			eqTok := p.previous
			lhs := ast.NewVar(nameTok, sym)
			rhs := p.parseAssign()
			stmts = append(stmts, ast.NewUnary(eqTok, ast.ExprStmt, ast.NewBinary(eqTok, ast.Assign, lhs, rhs)))
		}
	}
	p.expect(token.Semi, "Expected ';' after declaration.")
	return ast.NewBlock(tok, stmts)
}

// Statements

// compound-stmt = "{" (declaration | stmt)* "}"
func (p *Parser) parseCompoundStmt() *ast.Node {
	tok := p.current
	p.expect(token.LBrace, "Expected '{' to start a block.")
	var stmts []*ast.Node
	for !p.check(token.RBrace) {
		if p.check(token.EOF) {
			util.Error(util.SyntaxError, p.current, "Expected '}' before end of input.")
		}
		if p.isTypeName() {
			stmts = append(stmts, p.parseDeclaration())
		} else {
			stmts = append(stmts, p.parseStmt())
		}
	}
	p.expect(token.RBrace, "Expected '}' after block.")
	return ast.NewBlock(tok, stmts)
}

func (p *Parser) parseStmt() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Return):
		expr := p.parseExpr()
		p.expect(token.Semi, "Expected ';' after return statement.")
		return ast.NewUnary(tok, ast.Return, expr)

	case p.match(token.If):
		p.expect(token.LParen, "Expected '(' after 'if'.")
		cond := p.parseExpr()
		p.expect(token.RParen, "Expected ')' after if condition.")
		then := p.parseStmt()
		var els *ast.Node
		if p.match(token.Else) {
			els = p.parseStmt()
		}
		return ast.NewIf(tok, cond, then, els)

	case p.match(token.For):
		p.expect(token.LParen, "Expected '(' after 'for'.")
		var init, cond, inc *ast.Node
		switch {
		case p.match(token.Semi):
		case p.isTypeName():
			init = p.parseDeclaration()
		default:
			init = p.parseExprStmt()
		}
		if !p.check(token.Semi) {
			cond = p.parseExpr()
		}
		p.expect(token.Semi, "Expected ';' after loop condition.")
		if !p.check(token.RParen) {
			inc = p.parseExpr()
		}
		p.expect(token.RParen, "Expected ')' after for clauses.")
		return ast.NewFor(tok, init, cond, inc, p.parseStmt())

	case p.match(token.While):
		p.expect(token.LParen, "Expected '(' after 'while'.")
		cond := p.parseExpr()
		p.expect(token.RParen, "Expected ')' after while condition.")
		return ast.NewFor(tok, nil, cond, nil, p.parseStmt())

	case p.check(token.LBrace):
		return p.parseCompoundStmt()
	}
	return p.parseExprStmt()
}

// expr-stmt = expr? ";"
func (p *Parser) parseExprStmt() *ast.Node {
	tok := p.current
	if p.match(token.Semi) {
		return ast.NewBlock(tok, nil)
	}
	expr := p.parseExpr()
	p.expect(token.Semi, "Expected ';' after expression.")
	return ast.NewUnary(tok, ast.ExprStmt, expr)
}
