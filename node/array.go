package node

import (
	"maps"
	"reflect"

	"rowgraph/column"
	"rowgraph/hydration"
)

// KeyedMapping names one entry of an Array or one alternative of a Choice.
type KeyedMapping struct {
	Key     string
	Mapping Mapping
}

func validateKeyed(origin, what string, entries []KeyedMapping) error {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Mapping == nil {
			return failf(origin, ErrInvalidMapping, "%s %q without mapping", what, e.Key)
		}

		if _, ok := seen[e.Key]; ok {
			return failf(origin, ErrInvalidMapping, "duplicate %s %q", what, e.Key)
		}

		seen[e.Key] = struct{}{}
	}

	return nil
}

// Array is a fixed set of named entries resolved against the same row. The
// entries are expected to use disjoint columns.
type Array struct {
	origin  string
	entries []KeyedMapping
}

var _ Mapping = (*Array)(nil)

func NewArray(origin string, entries []KeyedMapping) (*Array, error) {
	if err := validateKeyed(origin, "array entry", entries); err != nil {
		return nil, err
	}

	return &Array{origin: origin, entries: entries}, nil
}

func (a *Array) DescribeOrigin() string { return a.origin }

func (a *Array) Entries() []KeyedMapping { return a.entries }

func (a *Array) CollectColumns() []column.Column {
	lists := make([][]column.Column, len(a.entries))
	for i, e := range a.entries {
		lists[i] = e.Mapping.CollectColumns()
	}

	return column.Merge(lists...)
}

func (a *Array) ResolveValue(ctx *hydration.Context, data FlatData) (any, error) {
	out := make(map[string]any, len(a.entries))
	for _, e := range a.entries {
		v, err := e.Mapping.ResolveValue(ctx, data)
		if err != nil {
			return nil, err
		}

		out[e.Key] = v
	}

	return out, nil
}

// RevertValue accepts any map keyed by strings. Missing keys revert as nil.
func (a *Array) RevertValue(ctx *hydration.Context, value any) (FlatData, error) {
	values, err := a.values(value)
	if err != nil {
		return nil, err
	}

	out := FlatData{}
	for _, e := range a.entries {
		reverted, err := e.Mapping.RevertValue(ctx, values[e.Key])
		if err != nil {
			return nil, err
		}

		maps.Copy(out, reverted)
	}

	return out, nil
}

func (a *Array) AssertValue(ctx *hydration.Context, data FlatData, actual any) error {
	values, err := a.values(actual)
	if err != nil {
		return err
	}

	for _, e := range a.entries {
		if err := e.Mapping.AssertValue(ctx, data, values[e.Key]); err != nil {
			return err
		}
	}

	return nil
}

func (a *Array) values(value any) (map[string]any, error) {
	if isNil(value) {
		return nil, nil
	}

	if m, ok := value.(map[string]any); ok {
		return m, nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, failf(a.origin, ErrTypeMismatch, "array expects a map keyed by strings, got %T", value)
	}

	out := make(map[string]any, rv.Len())

	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}

	return out, nil
}

func (a *Array) WakeUp(rt Runtime) {
	for _, e := range a.entries {
		e.Mapping.WakeUp(rt)
	}
}
