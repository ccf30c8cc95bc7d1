package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/goforj/godump"
	"github.com/xplshn/cbc/pkg/ast"
	"github.com/xplshn/cbc/pkg/cli"
	"github.com/xplshn/cbc/pkg/compiler"
	"github.com/xplshn/cbc/pkg/config"
	"github.com/xplshn/cbc/pkg/lexer"
	"github.com/xplshn/cbc/pkg/util"
)

func main() {
	app := cli.NewApp("cbc")
	app.Synopsis = "[options] <input.c>"
	app.Description = "A compiler for a small subset of C that emits x86-64 assembly. One file in, one assembly listing out."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/cbc>"

	var (
		outFile    string
		target     string
		dumpTokens bool
		dumpAST    bool
		dumpRaw    bool
		verbose    bool
		features   []string
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "-", "Place the assembly into <file>; '-' is stdout.", "file")
	fs.String(&target, "target", "t", "", "Set the target ABI (amd64_sysv, amd64_apple).", "target")
	fs.Bool(&dumpTokens, "dump-tokens", "", false, "Print the token stream and exit.")
	fs.Bool(&dumpAST, "dump-ast", "", false, "Print the type-annotated syntax tree and exit.")
	fs.Bool(&dumpRaw, "dump-raw", "", false, "Print the annotated program's Go structures and exit.")
	fs.Bool(&verbose, "verbose", "v", false, "Report each compilation step on stderr.")
	fs.List(&features, "feature", "F", "Enable a feature, or disable it with 'no-<feature>'. May be repeated.", "feature")

	cfg := config.NewConfig()
	featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(args []string) error {
		cfg.ApplyFlagGroups(featureFlags)
		if err := cfg.ApplyFeatures(features); err != nil {
			util.Report(os.Stderr, nil, err)
			return err
		}
		if err := cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target); err != nil {
			util.Report(os.Stderr, nil, err)
			return err
		}

		if len(args) != 1 {
			err := errors.New("expected exactly one input file")
			util.Report(os.Stderr, nil, err)
			return err
		}

		file, err := readSource(args[0])
		if err != nil {
			util.Report(os.Stderr, nil, err)
			return err
		}
		logf := func(format string, args ...interface{}) {
			if verbose {
				fmt.Fprintf(os.Stderr, format+"\n", args...)
			}
		}

		switch {
		case dumpTokens:
			logf("Tokenizing '%s'...", file.Name)
			toks, err := lexer.Tokenize(file.Content, cfg)
			if err != nil {
				util.Report(os.Stderr, file, err)
				return err
			}
			for _, tok := range toks {
				line, col := util.Position(file.Content, tok.Pos)
				fmt.Printf("%d:%d\t%-18s %s\n", line, col, tok.Type, tok.Text())
			}
			return nil
		case dumpAST, dumpRaw:
			logf("Parsing '%s'...", file.Name)
			prog, err := compiler.Frontend(file, cfg)
			if err != nil {
				util.Report(os.Stderr, file, err)
				return err
			}
			if dumpRaw {
				godump.Dump(prog)
				return nil
			}
			fmt.Print(ast.DumpProgram(prog, true))
			return nil
		}

		logf("Compiling '%s' for %s...", file.Name, cfg.Target)
		var asm bytes.Buffer
		if err := compiler.Compile(file, cfg, &asm); err != nil {
			util.Report(os.Stderr, file, err)
			return err
		}

		logf("Writing '%s'...", outFile)
		if err := writeOutput(outFile, asm.Bytes()); err != nil {
			util.Report(os.Stderr, nil, err)
			return err
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// readSource loads path ("-" for stdin) and guarantees a trailing newline
// so every token is followed by a terminator.
func readSource(path string) (*util.SourceFile, error) {
	var (
		content []byte
		err     error
	)
	if path == "-" {
		content, err = io.ReadAll(os.Stdin)
	} else {
		content, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read file '%s': %w", path, err)
	}
	if len(content) == 0 || content[len(content)-1] != '\n' {
		content = append(content, '\n')
	}
	return &util.SourceFile{Name: path, Content: content}, nil
}

func writeOutput(path string, asm []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(asm)
		return err
	}
	if err := os.WriteFile(path, asm, 0o644); err != nil {
		return fmt.Errorf("could not write '%s': %w", path, err)
	}
	return nil
}
