package node

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"rowgraph/codec"
	"rowgraph/column"
	"rowgraph/hydration"
)

// Nullable guards an inner mapping with a presence indicator column. Without
// an explicit indicator the first column of the inner mapping is used.
type Nullable struct {
	origin    string
	indicator column.Column
	explicit  bool
	inner     Mapping

	codec   codec.Codec
	dialect codec.Dialect
}

var _ Mapping = (*Nullable)(nil)

// NewNullable wraps inner. An indicator with an empty name selects the
// implicit indicator; one without a type becomes a boolean column.
func NewNullable(origin string, inner Mapping, indicator column.Column) (*Nullable, error) {
	if inner == nil {
		return nil, failf(origin, ErrInvalidMapping, "nullable without inner mapping")
	}

	n := &Nullable{origin: origin, inner: inner}

	if indicator.Name != "" {
		if !indicator.Type.IsValid() {
			indicator = column.New(indicator.Name, column.TypeBoolean)
		}

		n.indicator = indicator
		n.explicit = true

		return n, nil
	}

	cols := inner.CollectColumns()
	if len(cols) == 0 {
		return nil, failf(origin, ErrInvalidMapping, "nullable inner mapping %s has no columns", inner.DescribeOrigin())
	}

	n.indicator = cols[0]

	return n, nil
}

func (n *Nullable) DescribeOrigin() string { return n.origin }

func (n *Nullable) Indicator() column.Column { return n.indicator }

func (n *Nullable) Inner() Mapping { return n.inner }

func (n *Nullable) CollectColumns() []column.Column {
	if !n.explicit {
		return n.inner.CollectColumns()
	}

	return column.Merge([]column.Column{n.indicator}, n.inner.CollectColumns())
}

func (n *Nullable) ResolveValue(ctx *hydration.Context, data FlatData) (any, error) {
	if v, _ := data.Lookup(n.indicator.Name); isFalsy(v) {
		ctx.Logger().Debug("nullable skipped", zap.String("origin", n.origin), zap.String("indicator", n.indicator.Name))
		return nil, nil
	}

	return n.inner.ResolveValue(ctx, data)
}

// RevertValue emits only a false indicator for nil. Otherwise the indicator is
// set unless the inner mapping already produced it.
func (n *Nullable) RevertValue(ctx *hydration.Context, value any) (FlatData, error) {
	if isNil(value) {
		flag, err := n.flag(false)
		if err != nil {
			return nil, err
		}

		return FlatData{n.indicator.Name: flag}, nil
	}

	out, err := n.inner.RevertValue(ctx, value)
	if err != nil {
		return nil, err
	}

	if _, ok := out.Lookup(n.indicator.Name); !ok {
		flag, err := n.flag(true)
		if err != nil {
			return nil, err
		}

		out = out.Clone()
		out[n.indicator.Name] = flag
	}

	return out, nil
}

func (n *Nullable) flag(present bool) (any, error) {
	if !n.explicit {
		return present, nil
	}

	if n.codec == nil {
		return nil, failf(n.origin, ErrNotAwake, "nullable %q", n.indicator.Name)
	}

	scalar, err := n.codec.ToStorage(n.indicator.Type, n.dialect, present)
	if err != nil {
		return nil, fmt.Errorf("%s: indicator %q: %w", n.origin, n.indicator.Name, err)
	}

	return scalar, nil
}

func (n *Nullable) AssertValue(ctx *hydration.Context, data FlatData, actual any) error {
	if isNil(actual) {
		return nil
	}

	return n.inner.AssertValue(ctx, data, actual)
}

func (n *Nullable) WakeUp(rt Runtime) {
	rt = rt.normalize()
	n.codec = rt.Codec
	n.dialect = rt.Dialect
	n.inner.WakeUp(rt)
}

// isFalsy reports whether an indicator scalar means "absent": nil, false, a
// numeric zero, an empty string or "0".
func isFalsy(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case bool:
		return !s
	case string:
		return s == "" || s == "0"
	case []byte:
		return len(s) == 0 || string(s) == "0"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}

	return false
}
