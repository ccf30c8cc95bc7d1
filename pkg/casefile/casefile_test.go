package casefile

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
)

func md(s string) []byte { return []byte(strings.ReplaceAll(s, "'''", "```")) }

func TestExtract(t *testing.T) {
	doc := md(`# Arithmetic

Some prose.

## Test: precedence

'''c
int main() { return 5+6*7; }
'''

'''exit
47
'''

## Test: missing operand

'''c
int main() { return 1+*; }
'''

'''error
Expected an expression
@22
'''
`)
	cases, err := Extract(doc)
	be.Err(t, err, nil)
	be.Equal(t, len(cases), 2)

	want := Case{
		Name:   "precedence",
		Source: "int main() { return 5+6*7; }\n",
		Expect: []Expectation{{Kind: KindExit, Content: "47"}},
	}
	got := cases[0]
	got.Line, got.Expect[0].Line = 0, 0
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("case mismatch (-want +got):\n%s", diff)
	}

	code, err := cases[0].Expect[0].ExitCode()
	be.Err(t, err, nil)
	be.Equal(t, code, int64(47))

	msg, offset, err := cases[1].Expect[0].ErrorSpec()
	be.Err(t, err, nil)
	be.Equal(t, msg, "Expected an expression")
	be.Equal(t, offset, 22)
}

func TestErrorSpecWithoutOffset(t *testing.T) {
	msg, offset, err := Expectation{Kind: KindError, Content: "Undefined variable"}.ErrorSpec()
	be.Err(t, err, nil)
	be.Equal(t, msg, "Undefined variable")
	be.Equal(t, offset, -1)

	_, _, err = Expectation{Kind: KindError, Content: "x\n@nope"}.ErrorSpec()
	be.Err(t, err, "bad offset")
}

func TestAsmLines(t *testing.T) {
	e := Expectation{Kind: KindAsm, Content: "  mov $24, %rax\n\n  push %rax  "}
	be.Equal(t, e.AsmLines(), []string{"mov $24, %rax", "push %rax"})
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		doc string
		msg string
	}{
		{"'''c\nint x;\n'''\n", "outside of a test"},
		{"## Test: a\n\n'''exit\n0\n'''\n", "has no c fence"},
		{"## Test: a\n\n'''c\nint x;\n'''\n", "has no expectation fences"},
		{"## Test: a\n\n'''c\nint x;\n'''\n\n'''c\nint y;\n'''\n\n'''exit\n0\n'''\n", "more than one c fence"},
		{"## Test: a\n\n'''c\nint x;\n'''\n\n'''python\n0\n'''\n", "unknown fence 'python'"},
	}
	for _, tt := range tests {
		_, err := Extract(md(tt.doc))
		be.Err(t, err, tt.msg)
	}
}

func TestPlainCodeBlocksAreIgnored(t *testing.T) {
	cases, err := Extract(md("'''\nnot a test\n'''\n\n## Test: ok\n\n'''c\nint main() { return 0; }\n'''\n\n'''exit\n0\n'''\n"))
	be.Err(t, err, nil)
	be.Equal(t, len(cases), 1)
	be.Equal(t, cases[0].Name, "ok")
}
