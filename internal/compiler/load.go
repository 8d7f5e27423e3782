package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/ranked/internal/ir"
)

// LoadFiles compiles the list definitions of standalone CUE files. Each file
// is evaluated on its own; use cue/load for package directories.
func LoadFiles(paths ...string) ([]ir.ListSpec, error) {
	ctx := cuecontext.New()

	var specs []ir.ListSpec
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		v := ctx.CompileBytes(data, cue.Filename(path))
		lists, err := CompileLists(v)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", path, err)
		}
		specs = append(specs, lists...)
	}
	return specs, nil
}
