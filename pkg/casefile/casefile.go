// Package casefile reads compiler test cases out of markdown documents.
//
// A case starts at a heading "Test: <name>" and holds one ```c fence with
// the program and any number of expectation fences:
//
//	```exit    the value main returns
//	```asm     lines that must appear in the output, in order
//	```error   a diagnostic substring, optionally followed by "@<offset>"
package casefile

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	mdast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type Kind string

const (
	KindExit  Kind = "exit"
	KindAsm   Kind = "asm"
	KindError Kind = "error"
)

const sourceFence = "c"

type Expectation struct {
	Kind    Kind
	Content string
	Line    int
}

type Case struct {
	Name   string
	Source string
	Line   int
	Expect []Expectation
}

// Extract returns the cases of a markdown document in document order.
func Extract(markdown []byte) ([]Case, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(markdown))

	var cases []Case
	var current *Case
	finish := func() error {
		if current == nil {
			return nil
		}
		if current.Source == "" {
			return fmt.Errorf("line %d: test '%s' has no c fence", current.Line, current.Name)
		}
		if len(current.Expect) == 0 {
			return fmt.Errorf("line %d: test '%s' has no expectation fences", current.Line, current.Name)
		}
		cases = append(cases, *current)
		return nil
	}

	err := mdast.Walk(doc, func(node mdast.Node, entering bool) (mdast.WalkStatus, error) {
		if !entering {
			return mdast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *mdast.Heading:
			title := headingText(n, markdown)
			if !strings.HasPrefix(title, "Test: ") {
				return mdast.WalkContinue, nil
			}
			if err := finish(); err != nil {
				return mdast.WalkStop, err
			}
			current = &Case{Name: strings.TrimPrefix(title, "Test: "), Line: lineOf(n, markdown)}

		case *mdast.FencedCodeBlock:
			lang := string(n.Language(markdown))
			line := lineOf(n, markdown)
			if lang == "" {
				return mdast.WalkContinue, nil
			}
			if current == nil {
				return mdast.WalkStop, fmt.Errorf("line %d: %s fence outside of a test", line, lang)
			}
			body := fenceBody(n, markdown)
			switch Kind(lang) {
			case KindExit, KindAsm, KindError:
				current.Expect = append(current.Expect, Expectation{Kind: Kind(lang), Content: strings.TrimRight(body, "\n"), Line: line})
			default:
				if lang != sourceFence {
					return mdast.WalkStop, fmt.Errorf("line %d: unknown fence '%s' in test '%s'", line, lang, current.Name)
				}
				if current.Source != "" {
					return mdast.WalkStop, fmt.Errorf("line %d: test '%s' has more than one c fence", line, current.Name)
				}
				current.Source = body
			}
		}
		return mdast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return cases, nil
}

// ExitCode parses the content of an exit fence.
func (e Expectation) ExitCode() (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(e.Content), 10, 64)
}

// ErrorSpec splits the content of an error fence into the message
// substring and the byte offset, which is -1 when absent.
func (e Expectation) ErrorSpec() (msg string, offset int, err error) {
	msg, offset = strings.TrimSpace(e.Content), -1
	if i := strings.LastIndex(msg, "\n@"); i >= 0 || strings.HasPrefix(msg, "@") {
		at := msg[i+1:]
		msg = strings.TrimSpace(msg[:max(i, 0)])
		if offset, err = strconv.Atoi(strings.TrimPrefix(at, "@")); err != nil {
			return "", -1, fmt.Errorf("line %d: bad offset '%s'", e.Line, at)
		}
	}
	return msg, offset, nil
}

// AsmLines returns the non-blank lines of an asm fence, trimmed.
func (e Expectation) AsmLines() []string {
	var lines []string
	for _, l := range strings.Split(e.Content, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func headingText(n mdast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = mdast.Walk(n, func(c mdast.Node, entering bool) (mdast.WalkStatus, error) {
		if t, ok := c.(*mdast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return mdast.WalkContinue, nil
	})
	return buf.String()
}

func fenceBody(n *mdast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	for i := 0; i < n.Lines().Len(); i++ {
		seg := n.Lines().At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

func lineOf(n mdast.Node, source []byte) int {
	if n.Lines().Len() == 0 {
		return 1
	}
	return bytes.Count(source[:n.Lines().At(0).Start], []byte("\n")) + 1
}
