package node

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Routines holds the functions a CallDefinition can invoke by name. Go cannot
// look functions up by name at runtime, so free routines and static routines
// of a type ("Type.routine") have to be registered here.
type Routines struct {
	mu       sync.RWMutex
	routines map[string]reflect.Value
}

// NewRoutines creates a new empty routine registry.
func NewRoutines() *Routines {
	return &Routines{
		routines: make(map[string]reflect.Value),
	}
}

// Add registers fn under name, replacing any previous routine.
func (r *Routines) Add(name string, fn any) error {
	fnVal := reflect.ValueOf(fn)
	if _, err := ParseSignature(reflect.TypeOf(fn)); err != nil {
		return fmt.Errorf("routine %q: %w", name, err)
	}

	if fnVal.IsNil() {
		return fmt.Errorf("routine %q: %w", name, ErrRoutineIsNotAFunction)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.routines[name] = fnVal

	return nil
}

// MustAdd is Add that panics on an invalid routine.
func (r *Routines) MustAdd(name string, fn any) *Routines {
	if err := r.Add(name, fn); err != nil {
		panic(err)
	}

	return r
}

// Get returns the routine registered under name.
func (r *Routines) Get(name string) (reflect.Value, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.routines[name]

	return fn, ok
}

// Has returns true if a routine with the given name exists.
func (r *Routines) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns all routine names, sorted.
func (r *Routines) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.routines))
	for name := range r.routines {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
