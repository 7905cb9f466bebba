package lattice

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTypeNotFound is matched by every *TypeNotFoundError.
var ErrTypeNotFound = errors.New("type not found")

// TypeNotFoundError reports a type name that is not in the lattice.
type TypeNotFoundError struct {
	Name string
}

func (e *TypeNotFoundError) Error() string {
	return fmt.Sprintf("type %q not found", e.Name)
}

func (e *TypeNotFoundError) Is(target error) bool {
	return target == ErrTypeNotFound
}

// CycleError reports a supertype cycle. Path starts and ends with the same
// type name.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "supertype cycle: " + strings.Join(e.Path, " -> ")
}

// DefinitionError reports an invalid type definition.
type DefinitionError struct {
	Type    string
	Message string
}

func (e *DefinitionError) Error() string {
	if e.Type == "" {
		return "invalid type definition: " + e.Message
	}
	return fmt.Sprintf("type %q: %s", e.Type, e.Message)
}

// IsTypeNotFound reports whether err is or wraps a TypeNotFoundError.
func IsTypeNotFound(err error) bool {
	return errors.Is(err, ErrTypeNotFound)
}

// IsCycle reports whether err is or wraps a CycleError.
func IsCycle(err error) bool {
	var ce *CycleError
	return errors.As(err, &ce)
}
