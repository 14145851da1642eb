package node

import (
	"errors"
	"fmt"

	"github.com/davecgh/go-spew/spew"

	"rowgraph/hydration"
)

var (
	ErrInvalidMapping  = errors.New("invalid mapping")
	ErrServiceNotFound = errors.New("service not found")
	ErrServiceMismatch = errors.New("service mismatch")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrValueMismatch   = errors.New("value mismatch")
	ErrInvalidChoice   = errors.New("invalid choice")
	ErrCallArity       = errors.New("call arity mismatch")
	ErrMissingField    = errors.New("missing field")
	ErrUnknownRoutine  = errors.New("unknown routine")
	ErrNotAwake        = errors.New("mapping is not woken up")

	ErrUnknownRegistryKey = hydration.ErrUnknownRegistryKey
	ErrStackUnderflow     = hydration.ErrStackUnderflow
)

var dumper = spew.ConfigState{
	Indent:                  " ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	DisableMethods:          false,
	SortKeys:                true,
	MaxDepth:                3,
}

// describe renders a value for error messages.
func describe(v any) string {
	return dumper.Sprintf("%#v", v)
}

func failf(origin string, sentinel error, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", origin, sentinel, fmt.Sprintf(format, args...))
}
