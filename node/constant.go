package node

import (
	"bytes"

	gojson "github.com/goccy/go-json"

	"rowgraph/column"
	"rowgraph/hydration"
)

// Constant resolves to a fixed literal decoded once from its JSON text.
type Constant struct {
	origin    string
	value     any
	canonical []byte
}

var _ Mapping = (*Constant)(nil)

func NewConstant(origin, literal string) (*Constant, error) {
	var value any
	if err := gojson.Unmarshal([]byte(literal), &value); err != nil {
		return nil, failf(origin, ErrInvalidMapping, "constant literal %q: %v", literal, err)
	}

	canonical, err := gojson.Marshal(value)
	if err != nil {
		return nil, failf(origin, ErrInvalidMapping, "constant literal %q: %v", literal, err)
	}

	return &Constant{origin: origin, value: value, canonical: canonical}, nil
}

// NewConstantValue creates a constant from a Go value encodable as JSON.
func NewConstantValue(origin string, value any) (*Constant, error) {
	literal, err := gojson.Marshal(value)
	if err != nil {
		return nil, failf(origin, ErrInvalidMapping, "constant %s: %v", describe(value), err)
	}

	return NewConstant(origin, string(literal))
}

func (c *Constant) DescribeOrigin() string { return c.origin }

// Literal returns the canonical JSON encoding of the constant.
func (c *Constant) Literal() string { return string(c.canonical) }

func (c *Constant) CollectColumns() []column.Column { return nil }

func (c *Constant) ResolveValue(*hydration.Context, FlatData) (any, error) {
	return c.value, nil
}

func (c *Constant) RevertValue(*hydration.Context, any) (FlatData, error) {
	return FlatData{}, nil
}

// AssertValue fails unless actual encodes to the same JSON as the literal.
func (c *Constant) AssertValue(_ *hydration.Context, _ FlatData, actual any) error {
	encoded, err := gojson.Marshal(actual)
	if err != nil || !bytes.Equal(encoded, c.canonical) {
		return failf(c.origin, ErrValueMismatch, "expected %s, got %s", c.canonical, describe(actual))
	}

	return nil
}

func (c *Constant) WakeUp(Runtime) {}
