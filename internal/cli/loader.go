package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/cohort/internal/compiler"
	"github.com/roach88/cohort/internal/lattice"
)

// LoadMode controls how errors are handled during type loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the types loaded from a directory.
type LoadResult struct {
	Types     *lattice.Lattice
	Lint      []compiler.ValidationError
	FileCount int
}

// LoadError represents an error that occurred while loading types.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants, unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	ErrCodeTypedef     = "E010" // typedef failed to compile
	ErrCodeLattice     = "E011" // typedefs compile but do not form a lattice
	ErrCodeUnknownType = "E012" // named type is not defined

	ErrCodeConfig   = "E020" // probe or bridge config invalid
	ErrCodeLedger   = "E021" // ledger could not be opened or read
	ErrCodeSnapshot = "E022" // foreign snapshot unreadable
	ErrCodeFeed     = "E023" // change feed unreadable
	ErrCodeRun      = "E024" // run aborted
)

// LoadTypes compiles every CUE file in dir into a type lattice and lints it.
// In fail-fast mode the first typedef error is returned; in collect mode all
// of them are. Lint findings never fail the load.
func LoadTypes(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("typedefs directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing typedefs directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	compileMode := compiler.FailFast
	if mode == LoadModeCollectAll {
		compileMode = compiler.CollectAll
	}
	defs, compileErrs := compiler.CompileAll(value, compileMode)
	if len(compileErrs) > 0 {
		errs := make([]error, len(compileErrs))
		for i, err := range compileErrs {
			errs[i] = convertCompileError(err)
		}
		return nil, errs
	}

	types, err := lattice.New(defs)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLattice, Message: err.Error()}}
	}

	return &LoadResult{
		Types:     types,
		Lint:      compiler.Validate(types),
		FileCount: len(cueFiles),
	}, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError keeps the CUE position of a compile error.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeTypedef,
			Message: err.Error(),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeTypedef, Message: err.Error()}
}

// loadTypesOrFail is the fail-fast load shared by the commands that need a
// lattice before doing anything else.
func loadTypesOrFail(f *OutputFormatter, dir string) (*lattice.Lattice, error) {
	result, errs := LoadTypes(dir, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, failLoad(f, errs[0])
	}
	f.VerboseLog("Loaded %d type(s) from %d CUE file(s) in %s", result.Types.Len(), result.FileCount, dir)
	return result.Types, nil
}

func failLoad(f *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return f.Fail(ExitCommandError, loadErr.Code, loadErr.Message, nil)
	}
	return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
}
