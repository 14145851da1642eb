package node

import (
	"errors"
	"fmt"
	"reflect"

	"rowgraph/primitive"
)

var (
	ErrIsNotARoutine         = errors.New("provided function is not a recognizable routine")
	ErrRoutineIsNotAFunction = errors.New("provided routine is not a function")
)

// Signature describes the shape of a routine invoked by a CallDefinition.
type Signature struct {
	In       []reflect.Type
	Variadic bool
	Out      reflect.Type // nil when the routine returns no value
	HasBool  bool
	HasErr   bool
}

// ParseSignature inspects a function type and reports how its results are
// interpreted.
//
// Supports interfaces:
//   - func(args...)
//   - func(args...) (dst Type)
//   - func(args...) error
//   - func(args...) (dst Type, error)
//   - func(args...) (dst Type, bool)
//   - func(args...) (dst Type, bool, error)
func ParseSignature(fnType reflect.Type) (Signature, error) {
	if fnType == nil || fnType.Kind() != reflect.Func {
		return Signature{}, ErrRoutineIsNotAFunction
	}

	sig := Signature{
		In:       make([]reflect.Type, fnType.NumIn()),
		Variadic: fnType.IsVariadic(),
	}

	for i := range sig.In {
		sig.In[i] = fnType.In(i)
	}

	switch fnType.NumOut() {
	default:
		return Signature{}, ErrIsNotARoutine

	case 0:
		return sig, nil

	case 1:
		if isError(fnType.Out(0)) {
			sig.HasErr = true
		} else {
			sig.Out = fnType.Out(0)
		}

		return sig, nil

	case 2:
		sig.Out = fnType.Out(0)
		last := fnType.Out(1)

		switch {
		default:
			return Signature{}, ErrIsNotARoutine
		case last.Kind() == reflect.Bool:
			sig.HasBool = true
		case isError(last):
			sig.HasErr = true
		}

		return sig, nil

	case 3:
		tbool, terr := fnType.Out(1), fnType.Out(2)
		if tbool.Kind() != reflect.Bool || !isError(terr) {
			return Signature{}, ErrIsNotARoutine
		}

		sig.Out = fnType.Out(0)
		sig.HasBool = true
		sig.HasErr = true

		return sig, nil
	}
}

// Accepts reports whether n positional arguments fit the signature.
func (s Signature) Accepts(n int) bool {
	if s.Variadic {
		return n >= len(s.In)-1
	}

	return n == len(s.In)
}

func (s Signature) param(i int) reflect.Type {
	if s.Variadic && i >= len(s.In)-1 {
		return s.In[len(s.In)-1].Elem()
	}

	return s.In[i]
}

// bind converts args to the parameter types of fn. An arity mismatch is
// reported as ErrCallArity, a failed conversion as ErrTypeMismatch.
func bind(fn reflect.Value, args []any, allowed primitive.CategoryEnum) (Signature, []reflect.Value, error) {
	sig, err := ParseSignature(fn.Type())
	if err != nil {
		return Signature{}, nil, err
	}

	if !sig.Accepts(len(args)) {
		return Signature{}, nil, fmt.Errorf("%w: got %d arguments, want %s", ErrCallArity, len(args), sig.arity())
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		in[i], err = primitive.Convert(arg, sig.param(i), allowed)
		if err != nil {
			return Signature{}, nil, fmt.Errorf("%w: argument %d: %w", ErrTypeMismatch, i, err)
		}
	}

	return sig, in, nil
}

// results interprets the values returned by a routine. A false bool result
// yields nil; a non-nil error result is returned as is.
func (s Signature) results(out []reflect.Value) (any, error) {
	if s.HasErr {
		if errVal := out[len(out)-1]; !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}
	}

	if s.HasBool && !out[1].Bool() {
		return nil, nil
	}

	if s.Out == nil {
		return nil, nil
	}

	return out[0].Interface(), nil
}

func (s Signature) arity() string {
	if s.Variadic {
		return fmt.Sprintf("at least %d", len(s.In)-1)
	}

	return fmt.Sprint(len(s.In))
}
