package codegen

import (
	"io"

	"github.com/xplshn/cbc/pkg/ast"
	"github.com/xplshn/cbc/pkg/config"
)

// AssignOffsets gives every local of every defined function a frame slot
// below %rbp, parameters first, and rounds each frame up to the stack
// alignment.
func AssignOffsets(prog *ast.Program, cfg *config.Config) {
	for _, fn := range prog.Funcs {
		if fn.IsDecl {
			continue
		}
		offset := 0
		for _, v := range fn.Locals {
			offset += cfg.SlotSize
			v.Offset = -offset
		}
		fn.StackSize = alignTo(offset, cfg.StackAlignment)
	}
}

func alignTo(n, align int) int {
	return (n + align - 1) / align * align
}

// Generate emits prog as assembly into w. Nothing is written unless
// generation succeeds.
func Generate(prog *ast.Program, cfg *config.Config, w io.Writer) error {
	backend, err := NewBackend(cfg)
	if err != nil {
		return err
	}
	buf, err := backend.Generate(prog, cfg)
	if err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}
