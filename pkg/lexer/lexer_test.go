package lexer

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
	"github.com/xplshn/cbc/pkg/config"
	"github.com/xplshn/cbc/pkg/token"
	"github.com/xplshn/cbc/pkg/util"
)

func tokenize(t *testing.T, src string) []token.Token {
	t.Helper()
	toks, err := Tokenize([]byte(src), config.NewConfig())
	be.Err(t, err, nil)
	return toks
}

func types(toks []token.Token) []token.Type {
	var out []token.Type
	for _, tok := range toks {
		out = append(out, tok.Type)
	}
	return out
}

func lexError(t *testing.T, src string, cfg *config.Config) *util.Diagnostic {
	t.Helper()
	if cfg == nil {
		cfg = config.NewConfig()
	}
	toks, err := Tokenize([]byte(src), cfg)
	be.Equal(t, len(toks), 0)
	var d *util.Diagnostic
	be.True(t, errors.As(err, &d))
	be.Equal(t, d.Kind, util.LexError)
	return d
}

func TestPunctuatorsAndOperators(t *testing.T) {
	toks := tokenize(t, "a==b!=c<=d>=e<f>g=h;{}(),&*+-/")
	want := []token.Type{
		token.Ident, token.EqEq, token.Ident, token.Neq, token.Ident, token.Lte, token.Ident,
		token.Gte, token.Ident, token.Lt, token.Ident, token.Gt, token.Ident, token.Eq, token.Ident,
		token.Semi, token.LBrace, token.RBrace, token.LParen, token.RParen, token.Comma,
		token.And, token.Star, token.Plus, token.Minus, token.Slash, token.EOF,
	}
	if diff := cmp.Diff(want, types(toks)); diff != "" {
		t.Errorf("token types mismatch (-want +got):\n%s", diff)
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := tokenize(t, "int char return if else for while sizeof returnx _x1")
	want := []token.Type{
		token.Int, token.CharKw, token.Return, token.If, token.Else, token.For,
		token.While, token.Sizeof, token.Ident, token.Ident, token.EOF,
	}
	if diff := cmp.Diff(want, types(toks)); diff != "" {
		t.Errorf("token types mismatch (-want +got):\n%s", diff)
	}
	be.Equal(t, toks[8].Value, "returnx")
	be.Equal(t, toks[9].Value, "_x1")
}

func TestPositionsAndLengths(t *testing.T) {
	toks := tokenize(t, "  foo <= 42\n")
	be.Equal(t, toks[0].Pos, 2)
	be.Equal(t, toks[0].Len, 3)
	be.Equal(t, toks[1].Pos, 6)
	be.Equal(t, toks[1].Len, 2)
	be.Equal(t, toks[2].Pos, 9)
	be.Equal(t, toks[2].Num, int64(42))
	be.Equal(t, toks[3].Type, token.EOF)
	be.Equal(t, toks[3].Pos, 12)
}

func TestEmptyInputIsSingleEOF(t *testing.T) {
	toks := tokenize(t, "  \n\t")
	be.Equal(t, len(toks), 1)
	be.Equal(t, toks[0].Type, token.EOF)
}

func TestComments(t *testing.T) {
	toks := tokenize(t, "a /* b\n c */ d // e\nf")
	be.Equal(t, len(toks), 4)
	be.Equal(t, toks[1].Value, "d")
	be.Equal(t, toks[2].Value, "f")
}

func TestLineCommentsCanBeDisabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatLineComments, false)
	toks, err := Tokenize([]byte("a // b"), cfg)
	be.Err(t, err, nil)
	want := []token.Type{token.Ident, token.Slash, token.Slash, token.Ident, token.EOF}
	if diff := cmp.Diff(want, types(toks)); diff != "" {
		t.Errorf("token types mismatch (-want +got):\n%s", diff)
	}
}

func TestStringLiterals(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`"abc"`, "abc"},
		{`""`, ""},
		{`"a\nb"`, "a\nb"},
		{`"\t\\\""`, "\t\\\""},
		{`"\101\0"`, "A\x00"},
		{`"\x41\x7a"`, "Az"},
		{`"\377\xff"`, "\xff\xff"},
		{`"\e"`, "\x1b"},
	}
	for _, tt := range tests {
		toks := tokenize(t, tt.src)
		be.Equal(t, toks[0].Type, token.String)
		be.Equal(t, toks[0].Value, tt.want)
		be.Equal(t, toks[0].Len, len(tt.src))
	}
}

func TestCharLiterals(t *testing.T) {
	tests := []struct {
		src  string
		want int64
	}{
		{`'a'`, 97},
		{`'\n'`, 10},
		{`'\0'`, 0},
		{`'\''`, 39},
		{`'\xff'`, -1},
		{`'\177'`, 127},
	}
	for _, tt := range tests {
		toks := tokenize(t, tt.src)
		be.Equal(t, toks[0].Type, token.Char)
		be.Equal(t, toks[0].Num, tt.want)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		src string
		pos int
		msg string
	}{
		{"a @ b", 2, "Invalid token '@'"},
		{"int $x;", 4, "Invalid token '$'"},
		{"x /* never closed", 2, "Unclosed block comment"},
		{`x = "abc`, 4, "Unclosed string literal"},
		{"x = \"ab\ncd\"", 4, "Unclosed string literal"},
		{`'\q'`, 1, "Unknown escape sequence"},
		{`"\x"`, 1, "Invalid hex escape sequence"},
		{`"\777"`, 1, "Escape sequence out of range"},
		{`"a\x100"`, 2, "Escape sequence out of range"},
		{`'\400'`, 1, "Escape sequence out of range"},
		{`''`, 0, "Empty char literal"},
		{`'ab'`, 0, "Unclosed char literal"},
		{"12abc", 2, "Invalid digit 'a'"},
		{"99999999999999999999", 0, "Integer constant is too large"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			d := lexError(t, tt.src, nil)
			be.Equal(t, d.Pos, tt.pos)
			be.True(t, strings.HasPrefix(d.Msg, tt.msg))
		})
	}
}

func TestMaxInt64(t *testing.T) {
	toks := tokenize(t, "9223372036854775807")
	be.Equal(t, toks[0].Num, int64(9223372036854775807))
}
