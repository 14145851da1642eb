package node

import (
	"fmt"
	"maps"
	"reflect"

	gojson "github.com/goccy/go-json"

	"rowgraph/column"
	"rowgraph/hydration"
)

// List stores an ordered sequence as a JSON array in one column. Every
// element goes through the same entry mapping.
type List struct {
	origin string
	column column.Column
	entry  Mapping
}

var _ Mapping = (*List)(nil)

func NewList(origin string, col column.Column, entry Mapping) (*List, error) {
	if col.Name == "" {
		return nil, failf(origin, ErrInvalidMapping, "list without column name")
	}

	if entry == nil {
		return nil, failf(origin, ErrInvalidMapping, "list %q without entry mapping", col.Name)
	}

	if !col.Type.IsValid() {
		col.Type = column.TypeJSON
	}

	return &List{origin: origin, column: col, entry: entry}, nil
}

func (l *List) DescribeOrigin() string { return l.origin }

func (l *List) Entry() Mapping { return l.entry }

// CollectColumns returns the list column only; entry columns live inside the
// encoded document.
func (l *List) CollectColumns() []column.Column {
	return []column.Column{l.column}
}

// entryData exposes one element under the anonymous key and the list column.
// A nested object, as written by RevertValue for multi-column entries, also
// contributes its keys as columns.
func (l *List) entryData(elem any) FlatData {
	data := FlatData{}
	if nested, ok := elem.(map[string]any); ok {
		maps.Copy(data, nested)
	}

	data[Anonymous] = elem
	data[l.column.Name] = elem

	return data
}

func (l *List) decode(data FlatData) ([]any, error) {
	raw, ok := data.Lookup(l.column.Name)
	if !ok || raw == nil {
		return nil, nil
	}

	var doc []byte

	switch v := raw.(type) {
	case string:
		doc = []byte(v)
	case []byte:
		doc = v
	case []any:
		return v, nil
	default:
		return nil, failf(l.origin, ErrTypeMismatch, "column %q holds %T, expected JSON text", l.column.Name, raw)
	}

	var elems []any
	if err := gojson.Unmarshal(doc, &elems); err != nil {
		return nil, fmt.Errorf("%s: %w: column %q: %w", l.origin, ErrTypeMismatch, l.column.Name, err)
	}

	return elems, nil
}

func (l *List) ResolveValue(ctx *hydration.Context, data FlatData) (any, error) {
	elems, err := l.decode(data)
	if err != nil || elems == nil {
		return nil, err
	}

	out := make([]any, len(elems))
	for i, elem := range elems {
		out[i], err = l.entry.ResolveValue(ctx, l.entryData(elem))
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

// RevertValue encodes the reverted elements back into the column. An element
// reverting to exactly one column is stored as that column's value, anything
// else as a nested object.
func (l *List) RevertValue(ctx *hydration.Context, value any) (FlatData, error) {
	if isNil(value) {
		return FlatData{l.column.Name: nil}, nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, failf(l.origin, ErrTypeMismatch, "list %q expects a sequence, got %T", l.column.Name, value)
	}

	out := make([]any, rv.Len())
	for i := range out {
		reverted, err := l.entry.RevertValue(ctx, rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}

		if len(reverted) == 1 {
			for _, v := range reverted {
				out[i] = v
			}

			continue
		}

		out[i] = map[string]any(reverted)
	}

	doc, err := gojson.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("%s: encode list %q: %w", l.origin, l.column.Name, err)
	}

	return FlatData{l.column.Name: string(doc)}, nil
}

func (l *List) AssertValue(ctx *hydration.Context, data FlatData, actual any) error {
	if isNil(actual) {
		return nil
	}

	rv := reflect.ValueOf(actual)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return failf(l.origin, ErrTypeMismatch, "list %q expects a sequence, got %s", l.column.Name, describe(actual))
	}

	elems, err := l.decode(data)
	if err != nil {
		return err
	}

	for i := range rv.Len() {
		elemData := FlatData{}
		if i < len(elems) {
			elemData = l.entryData(elems[i])
		}

		if err := l.entry.AssertValue(ctx, elemData, rv.Index(i).Interface()); err != nil {
			return err
		}
	}

	return nil
}

func (l *List) WakeUp(rt Runtime) { l.entry.WakeUp(rt) }
