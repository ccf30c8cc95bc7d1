package lexer

import (
	"strings"

	"github.com/xplshn/cbc/pkg/config"
	"github.com/xplshn/cbc/pkg/token"
	"github.com/xplshn/cbc/pkg/util"
)

type Lexer struct {
	source []byte
	pos    int
	cfg    *config.Config
}

func NewLexer(source []byte, cfg *config.Config) *Lexer {
	return &Lexer{source: source, cfg: cfg}
}

// Tokenize converts the whole source into a token slice terminated by a
// single EOF token. On failure no tokens are returned.
func Tokenize(source []byte, cfg *config.Config) (toks []token.Token, err error) {
	defer func() {
		if err != nil {
			toks = nil
		}
	}()
	defer util.Catch(&err)
	l := NewLexer(source, cfg)
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) Next() token.Token {
	l.skipWhitespaceAndComments()
	startPos := l.pos

	if l.isAtEnd() {
		return l.makeToken(token.EOF, startPos)
	}

	ch := l.peek()
	switch {
	case isIdent1(ch):
		return l.identifierOrKeyword(startPos)
	case isDigit(ch):
		return l.numberLiteral(startPos)
	case ch == '"':
		return l.stringLiteral(startPos)
	case ch == '\'':
		return l.charLiteral(startPos)
	}

	if l.pos+1 < len(l.source) {
		if typ, ok := token.TwoCharOps[string(l.source[l.pos:l.pos+2])]; ok {
			l.pos += 2
			return l.makeToken(typ, startPos)
		}
	}
	if typ, ok := token.Punctuators[ch]; ok {
		l.advance()
		return l.makeToken(typ, startPos)
	}

	util.ErrorAt(util.LexError, startPos, 1, "Invalid token '%c'", ch)
	return token.Token{}
}

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() byte {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() byte {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	l.pos++
	return ch
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, startPos int) token.Token {
	return token.Token{Type: tokType, Pos: startPos, Len: l.pos - startPos}
}

func isDigit(ch byte) bool  { return ch >= '0' && ch <= '9' }
func isIdent1(ch byte) bool { return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') }
func isIdent2(ch byte) bool { return isIdent1(ch) || isDigit(ch) }

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch l.peek() {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			l.advance()
		case '/':
			switch {
			case l.peekNext() == '*':
				l.blockComment()
			case l.peekNext() == '/' && l.cfg.IsFeatureEnabled(config.FeatLineComments):
				l.lineComment()
			default:
				return
			}
		default:
			return
		}
	}
}

func (l *Lexer) blockComment() {
	start := l.pos
	l.pos += 2
	for !l.isAtEnd() {
		if l.peek() == '*' && l.peekNext() == '/' {
			l.pos += 2
			return
		}
		l.advance()
	}
	util.ErrorAt(util.LexError, start, 2, "Unclosed block comment")
}

func (l *Lexer) lineComment() {
	for !l.isAtEnd() && l.peek() != '\n' {
		l.advance()
	}
}

func (l *Lexer) identifierOrKeyword(startPos int) token.Token {
	for isIdent2(l.peek()) {
		l.advance()
	}
	value := string(l.source[startPos:l.pos])
	if tokType, isKeyword := token.KeywordMap[value]; isKeyword {
		return l.makeToken(tokType, startPos)
	}
	tok := l.makeToken(token.Ident, startPos)
	tok.Value = value
	return tok
}

func (l *Lexer) numberLiteral(startPos int) token.Token {
	var val int64
	for isDigit(l.peek()) {
		d := int64(l.advance() - '0')
		if val > (1<<63-1-d)/10 {
			for isDigit(l.peek()) {
				l.advance()
			}
			util.ErrorAt(util.LexError, startPos, l.pos-startPos, "Integer constant is too large")
		}
		val = val*10 + d
	}
	if isIdent1(l.peek()) {
		util.ErrorAt(util.LexError, l.pos, 1, "Invalid digit '%c' in integer constant", l.peek())
	}
	tok := l.makeToken(token.Num, startPos)
	tok.Num = val
	return tok
}

func (l *Lexer) stringLiteral(startPos int) token.Token {
	l.advance()
	var sb strings.Builder
	for {
		if l.isAtEnd() || l.peek() == '\n' {
			util.ErrorAt(util.LexError, startPos, 1, "Unclosed string literal")
		}
		c := l.advance()
		if c == '"' {
			break
		}
		if c == '\\' {
			sb.WriteByte(l.decodeEscape())
			continue
		}
		sb.WriteByte(c)
	}
	tok := l.makeToken(token.String, startPos)
	tok.Value = sb.String()
	return tok
}

func (l *Lexer) charLiteral(startPos int) token.Token {
	l.advance()
	if l.isAtEnd() || l.peek() == '\n' {
		util.ErrorAt(util.LexError, startPos, 1, "Unclosed char literal")
	}
	if l.peek() == '\'' {
		util.ErrorAt(util.LexError, startPos, 2, "Empty char literal")
	}
	var val byte
	if c := l.advance(); c == '\\' {
		val = l.decodeEscape()
	} else {
		val = c
	}
	if l.peek() != '\'' {
		util.ErrorAt(util.LexError, startPos, 1, "Unclosed char literal")
	}
	l.advance()
	tok := l.makeToken(token.Char, startPos)
	tok.Num = int64(int8(val))
	return tok
}

var escapes = map[byte]byte{
	'a': '\a', 'b': '\b', 't': '\t', 'n': '\n', 'v': '\v', 'f': '\f', 'r': '\r',
	'e': 27, '\\': '\\', '\'': '\'', '"': '"', '?': '?',
}

// decodeEscape is called with the cursor just past the backslash.
func (l *Lexer) decodeEscape() byte {
	escPos := l.pos - 1
	if l.isAtEnd() {
		util.ErrorAt(util.LexError, escPos, 1, "Unterminated escape sequence")
	}
	c := l.advance()

	if c >= '0' && c <= '7' {
		val := int(c - '0')
		for i := 0; i < 2 && l.peek() >= '0' && l.peek() <= '7'; i++ {
			val = val*8 + int(l.advance()-'0')
		}
		if val > 0xff {
			util.ErrorAt(util.LexError, escPos, l.pos-escPos, "Escape sequence out of range")
		}
		return byte(val)
	}

	if c == 'x' {
		if !isHex(l.peek()) {
			util.ErrorAt(util.LexError, escPos, 2, "Invalid hex escape sequence")
		}
		val := 0
		for isHex(l.peek()) {
			val = val*16 + hexValue(l.advance())
			if val > 0xff {
				for isHex(l.peek()) {
					l.advance()
				}
				util.ErrorAt(util.LexError, escPos, l.pos-escPos, "Escape sequence out of range")
			}
		}
		return byte(val)
	}

	if val, ok := escapes[c]; ok {
		return val
	}
	util.ErrorAt(util.LexError, escPos, 2, "Unknown escape sequence '\\%c'", c)
	return 0
}

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexValue(c byte) int {
	switch {
	case isDigit(c):
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}
