// Package compiler ties the passes together: tokenize, parse, type-check
// and generate. Each pass needs the complete output of the previous one.
package compiler

import (
	"io"

	"github.com/xplshn/cbc/pkg/ast"
	"github.com/xplshn/cbc/pkg/codegen"
	"github.com/xplshn/cbc/pkg/config"
	"github.com/xplshn/cbc/pkg/lexer"
	"github.com/xplshn/cbc/pkg/parser"
	"github.com/xplshn/cbc/pkg/typeChecker"
	"github.com/xplshn/cbc/pkg/util"
)

// Frontend returns the type-annotated program for file.
func Frontend(file *util.SourceFile, cfg *config.Config) (*ast.Program, error) {
	tokens, err := lexer.Tokenize(file.Content, cfg)
	if err != nil {
		return nil, err
	}
	prog, err := parser.Parse(tokens, cfg)
	if err != nil {
		return nil, err
	}
	if err := typeChecker.Check(prog, cfg); err != nil {
		return nil, err
	}
	return prog, nil
}

// Compile translates file into assembly written to out. On failure out
// is left untouched and the first diagnostic is returned.
func Compile(file *util.SourceFile, cfg *config.Config, out io.Writer) error {
	prog, err := Frontend(file, cfg)
	if err != nil {
		return err
	}
	return codegen.Generate(prog, cfg, out)
}
