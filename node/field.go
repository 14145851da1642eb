package node

import (
	"fmt"

	"rowgraph/codec"
	"rowgraph/column"
	"rowgraph/hydration"
)

// Field maps one storage column to one native scalar through the codec. A
// field named Anonymous reads the passthrough slot and contributes no column.
type Field struct {
	origin string
	column column.Column

	codec   codec.Codec
	dialect codec.Dialect
}

var _ Mapping = (*Field)(nil)

func NewField(origin string, col column.Column) (*Field, error) {
	if !col.Type.IsValid() {
		return nil, failf(origin, ErrInvalidMapping, "column %q has invalid type", col.Name)
	}

	return &Field{origin: origin, column: col}, nil
}

func (f *Field) DescribeOrigin() string { return f.origin }

func (f *Field) Column() column.Column { return f.column }

func (f *Field) CollectColumns() []column.Column {
	if f.column.Name == Anonymous {
		return nil
	}

	return []column.Column{f.column}
}

// ResolveValue returns nil when the column is absent from data.
func (f *Field) ResolveValue(_ *hydration.Context, data FlatData) (any, error) {
	if f.codec == nil {
		return nil, failf(f.origin, ErrNotAwake, "field %q", f.column.Name)
	}

	scalar, ok := data.Lookup(f.column.Name)
	if !ok {
		return nil, nil
	}

	native, err := f.codec.ToNative(f.column.Type, f.dialect, scalar)
	if err != nil {
		return nil, fmt.Errorf("%s: column %q: %w", f.origin, f.column.Name, err)
	}

	return native, nil
}

// RevertValue always emits the column, nil included.
func (f *Field) RevertValue(_ *hydration.Context, value any) (FlatData, error) {
	if f.codec == nil {
		return nil, failf(f.origin, ErrNotAwake, "field %q", f.column.Name)
	}

	scalar, err := f.codec.ToStorage(f.column.Type, f.dialect, value)
	if err != nil {
		return nil, fmt.Errorf("%s: column %q: %w", f.origin, f.column.Name, err)
	}

	return FlatData{f.column.Name: scalar}, nil
}

func (f *Field) AssertValue(*hydration.Context, FlatData, any) error { return nil }

func (f *Field) WakeUp(rt Runtime) {
	rt = rt.normalize()
	f.codec = rt.Codec
	f.dialect = rt.Dialect
}
