package codegen

import (
	"bytes"
	"fmt"

	"github.com/xplshn/cbc/pkg/ast"
	"github.com/xplshn/cbc/pkg/config"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// Generate takes a type-annotated program and a configuration, and
	// produces the target assembly as a byte buffer.
	Generate(prog *ast.Program, cfg *config.Config) (*bytes.Buffer, error)
}

// NewBackend picks the backend for cfg.Target.
func NewBackend(cfg *config.Config) (Backend, error) {
	switch cfg.Target {
	case "amd64_sysv", "amd64_apple":
		return NewX86Backend(), nil
	}
	return nil, fmt.Errorf("no backend for target '%s'", cfg.Target)
}
