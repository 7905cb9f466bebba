package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/cohort/internal/lattice"
)

// Mode controls how errors are handled when compiling many definitions.
type Mode int

const (
	// FailFast stops on the first error encountered.
	FailFast Mode = iota
	// CollectAll collects all errors before returning.
	CollectAll
)

// CompileAll compiles every field under the top-level "typedef" struct.
// Definitions that fail to compile are skipped and their errors returned.
func CompileAll(v cue.Value, mode Mode) ([]lattice.TypeDef, []error) {
	var (
		defs []lattice.TypeDef
		errs []error
	)

	typedefsVal := v.LookupPath(cue.ParsePath("typedef"))
	if !typedefsVal.Exists() {
		return nil, []error{&CompileError{Field: "typedef", Message: "no type definitions found", Pos: v.Pos()}}
	}

	iter, err := typedefsVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}
	for iter.Next() {
		def, err := CompileTypeDef(iter.Value())
		if err != nil {
			errs = append(errs, fmt.Errorf("typedef.%s: %w", iter.Label(), err))
			if mode == FailFast {
				return defs, errs
			}
			continue
		}
		defs = append(defs, *def)
	}
	return defs, errs
}

// CompileString compiles CUE source holding a "typedef" struct and builds a
// lattice from it. The first error wins.
func CompileString(src string) (*lattice.Lattice, error) {
	v := cuecontext.New().CompileString(src)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	defs, errs := CompileAll(v, FailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return lattice.New(defs)
}
