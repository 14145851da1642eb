package node

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unsafe"

	"rowgraph/primitive"
)

// TagName is the struct tag that renames a field for mapping purposes.
const TagName = "rowgraph"

type fieldKey struct {
	typ  reflect.Type
	name string
}

// fieldIndex caches field lookups: fieldKey -> []int, nil when not found.
var fieldIndex sync.Map

// findField tries: exact name, `rowgraph:"name"` tag, case-insensitive name.
// Embedded structs are searched as well, so a field declared on an embedded
// ancestor is found through the embedding type.
func findField(t reflect.Type, name string) ([]int, bool) {
	key := fieldKey{typ: t, name: name}
	if cached, ok := fieldIndex.Load(key); ok {
		index := cached.([]int)
		return index, index != nil
	}

	index := matchField(t, name)
	fieldIndex.Store(key, index)

	return index, index != nil
}

func matchField(t reflect.Type, name string) []int {
	if t.Kind() != reflect.Struct {
		return nil
	}

	fields := reflect.VisibleFields(t)

	// 1) exact name
	if f, ok := t.FieldByName(name); ok {
		return f.Index
	}

	// 2) rowgraph tag
	for _, f := range fields {
		if tagName(f) == name {
			return f.Index
		}
	}

	// 3) case-insensitive
	for _, f := range fields {
		if !f.Anonymous && strings.EqualFold(f.Name, name) {
			return f.Index
		}
	}

	return nil
}

func tagName(f reflect.StructField) string {
	tag := f.Tag.Get(TagName)
	if tag == "" || tag == "-" {
		return ""
	}
	// trim options
	if idx := strings.IndexByte(tag, ','); idx >= 0 {
		tag = tag[:idx]
	}

	return tag
}

// walk follows index from the struct v. Nil embedded pointers are allocated
// when alloc is set, otherwise the walk stops and reports false.
func walk(v reflect.Value, index []int, alloc bool) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				if !alloc {
					return reflect.Value{}, false
				}

				v.Set(reflect.New(v.Type().Elem()))
			}

			v = v.Elem()
		}

		v = expose(v.Field(x))
	}

	return v, true
}

// expose makes unexported fields of an addressable struct settable.
func expose(v reflect.Value) reflect.Value {
	if v.CanSet() || !v.CanAddr() {
		return v
	}

	return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
}

// addressable returns the struct behind obj, copying non-pointer values so
// their unexported fields can be read.
func addressable(obj any) (reflect.Value, bool) {
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}, false
		}

		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}

	if !v.CanAddr() {
		cp := reflect.New(v.Type()).Elem()
		cp.Set(v)
		v = cp
	}

	return v, true
}

// setField converts value to the type of the named field of obj and assigns it.
func setField(obj any, name string, value any, allowed primitive.CategoryEnum) error {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: cannot set field %q on %T", ErrTypeMismatch, name, obj)
	}

	v = v.Elem()

	index, ok := findField(v.Type(), name)
	if !ok {
		return fmt.Errorf("%w: %s has no field %q", ErrMissingField, typeStr(v.Type()), name)
	}

	fv, _ := walk(v, index, true)

	conv, err := primitive.Convert(value, fv.Type(), allowed)
	if err != nil {
		return fmt.Errorf("%w: field %q: %w", ErrTypeMismatch, name, err)
	}

	fv.Set(conv)

	return nil
}

// getField reads the named field of obj. Nil pointers, maps, slices and
// interfaces read as an untyped nil.
func getField(obj any, name string) (any, error) {
	v, ok := addressable(obj)
	if !ok {
		return nil, fmt.Errorf("%w: cannot read field %q from %T", ErrTypeMismatch, name, obj)
	}

	index, ok := findField(v.Type(), name)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no field %q", ErrMissingField, typeStr(v.Type()), name)
	}

	fv, ok := walk(v, index, false)
	if !ok {
		return nil, nil
	}

	value := fv.Interface()
	if isNil(value) {
		return nil, nil
	}

	return value, nil
}
