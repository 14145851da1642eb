package mapping

import (
	"reflect"
	"slices"
	"strings"

	"rowgraph/internal/common"
	"rowgraph/node"
)

// TypeRegistry resolves the Go type names used in a mapping file. It is
// filled once before building and is read-only afterwards.
type TypeRegistry struct {
	types   map[string]reflect.Type // keyed by "pkgpath.Name"
	aliases map[string]reflect.Type
}

var _ node.TypeResolver = (*TypeRegistry)(nil)

func NewTypeRegistry(types ...reflect.Type) *TypeRegistry {
	r := &TypeRegistry{
		types:   make(map[string]reflect.Type),
		aliases: make(map[string]reflect.Type),
	}

	return r.Register(types...)
}

// Register adds named types under their fully qualified name. Pointer types
// are registered by their element type.
func (r *TypeRegistry) Register(types ...reflect.Type) *TypeRegistry {
	for _, t := range types {
		for t != nil && t.Kind() == reflect.Ptr {
			t = t.Elem()
		}

		if t == nil || t.Name() == "" {
			continue
		}

		r.types[qualified(t)] = t
	}

	return r
}

// Add registers t under an explicit alias, which wins over every other match.
func (r *TypeRegistry) Add(name string, t reflect.Type) *TypeRegistry {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t != nil {
		r.aliases[name] = t
	}

	return r
}

func qualified(t reflect.Type) string {
	if t.PkgPath() == "" {
		return t.Name()
	}

	return t.PkgPath() + "." + t.Name()
}

// Names returns the fully qualified names and aliases, sorted.
func (r *TypeRegistry) Names() []string {
	if r == nil {
		return nil
	}

	names := make([]string, 0, len(r.types)+len(r.aliases))
	for name := range r.types {
		names = append(names, name)
	}

	for name := range r.aliases {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// ResolveType resolves a type name like:
// - "Order" (alias or name only)
// - "store.Order" (short)
// - "example.com/app/store.Order" (full).
func (r *TypeRegistry) ResolveType(name string) (reflect.Type, bool) {
	if r == nil || name == "" {
		return nil, false
	}

	if t, ok := r.aliases[name]; ok {
		return t, true
	}

	if t, ok := r.types[name]; ok {
		return t, true
	}

	lastDot := strings.LastIndex(name, ".")
	if lastDot < 0 {
		return r.first(func(t reflect.Type) bool { return t.Name() == name })
	}

	pkgStr, typeName := name[:lastDot], name[lastDot+1:]
	if pkgStr == "" || typeName == "" {
		return nil, false
	}

	return r.first(func(t reflect.Type) bool {
		if t.Name() != typeName {
			return false
		}

		return common.PkgAlias(t.PkgPath()) == pkgStr || strings.HasSuffix(t.PkgPath(), "/"+pkgStr)
	})
}

// first returns the match with the smallest qualified name, so ambiguous
// short names resolve the same way on every run.
func (r *TypeRegistry) first(match func(reflect.Type) bool) (reflect.Type, bool) {
	var (
		found reflect.Type
		key   string
	)

	for k, t := range r.types {
		if match(t) && (found == nil || k < key) {
			found, key = t, k
		}
	}

	return found, found != nil
}
