package node

import (
	"reflect"
	"strconv"
)

var errorType = reflect.TypeFor[error]()

func typeStr(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	// fully qualified named types, or builtin string for basics
	switch t.Kind() {
	case reflect.Ptr:
		return "*" + typeStr(t.Elem())
	case reflect.Slice:
		return "[]" + typeStr(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + typeStr(t.Elem())
	case reflect.Map:
		return "map[" + typeStr(t.Key()) + "]" + typeStr(t.Elem())
	default:
		if t.PkgPath() == "" || t.Name() == "" {
			return t.String()
		}

		return t.PkgPath() + "." + t.Name()
	}
}

func isError(t reflect.Type) bool {
	if t == nil {
		return false
	}

	return t.Implements(errorType)
}

func base(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return t
}

// isNil reports whether v is nil or holds a nil pointer, map, slice, func,
// channel or interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}

	return false
}
