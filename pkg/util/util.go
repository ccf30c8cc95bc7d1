package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xplshn/cbc/pkg/token"
	"golang.org/x/term"
)

// Kind classifies a fatal diagnostic.
type Kind int

const (
	LexError Kind = iota
	SyntaxError
	NameError
	TypeError
	InternalError
)

var kindNames = map[Kind]string{
	LexError:      "lex error",
	SyntaxError:   "syntax error",
	NameError:     "name error",
	TypeError:     "type error",
	InternalError: "internal error",
}

func (k Kind) String() string { return kindNames[k] }

// Diagnostic is the single fatal error produced by any pass.
type Diagnostic struct {
	Kind Kind
	Pos  int
	Len  int
	Msg  string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s at offset %d: %s", d.Kind, d.Pos, d.Msg)
}

// SourceFile tracks the name and content of the compilation unit.
type SourceFile struct {
	Name    string
	Content []byte
}

// Error aborts the running pass with a diagnostic anchored at tok.
// The pass entry point turns it back into an error with Catch.
func Error(kind Kind, tok token.Token, format string, args ...interface{}) {
	ErrorAt(kind, tok.Pos, tok.Len, format, args...)
}

func ErrorAt(kind Kind, pos, length int, format string, args ...interface{}) {
	panic(&Diagnostic{Kind: kind, Pos: pos, Len: length, Msg: fmt.Sprintf(format, args...)})
}

// Catch recovers a Diagnostic raised by Error and stores it in *errp.
// Other panics keep unwinding.
func Catch(errp *error) {
	if r := recover(); r != nil {
		d, ok := r.(*Diagnostic)
		if !ok {
			panic(r)
		}
		*errp = d
	}
}

// Position converts a byte offset into a 1-based line and column by
// scanning backward from the offset.
func Position(src []byte, pos int) (line, col int) {
	if pos > len(src) {
		pos = len(src)
	}
	lineStart := pos
	for lineStart > 0 && src[lineStart-1] != '\n' {
		lineStart--
	}
	line = 1
	for i := 0; i < lineStart; i++ {
		if src[i] == '\n' {
			line++
		}
	}
	return line, pos - lineStart + 1
}

func lineBounds(src []byte, pos int) (start, end int) {
	if pos > len(src) {
		pos = len(src)
	}
	start = pos
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	end = pos
	for end < len(src) && src[end] != '\n' {
		end++
	}
	return start, end
}

// Report writes err to w. A Diagnostic gets a location prefix and a
// caret under the offending source; anything else is printed as is.
func Report(w io.Writer, file *SourceFile, err error) {
	var d *Diagnostic
	if !errors.As(err, &d) || file == nil {
		fmt.Fprintf(w, "%s %v\n", colorize(w, "\033[31m", "error:"), err)
		return
	}

	line, col := Position(file.Content, d.Pos)
	fmt.Fprintf(w, "%s:%d:%d: %s %s\n", file.Name, line, col, colorize(w, "\033[31m", "error:"), d.Msg)

	start, end := lineBounds(file.Content, d.Pos)
	fmt.Fprintf(w, "  %s\n", string(file.Content[start:end]))

	caret := "^"
	if d.Len > 1 {
		caret += strings.Repeat("~", d.Len-1)
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", col-1), colorize(w, "\033[32m", caret))
}

func colorize(w io.Writer, code, s string) string {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return code + s + "\033[0m"
	}
	return s
}
