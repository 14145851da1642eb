package node

import (
	"rowgraph/column"
	"rowgraph/hydration"
)

// Null always resolves to nil.
type Null struct {
	origin string
}

var _ Mapping = Null{}

func NewNull(origin string) Null { return Null{origin: origin} }

func (n Null) DescribeOrigin() string { return n.origin }

func (Null) CollectColumns() []column.Column { return nil }

func (Null) ResolveValue(*hydration.Context, FlatData) (any, error) { return nil, nil }

func (Null) RevertValue(*hydration.Context, any) (FlatData, error) { return FlatData{}, nil }

func (Null) AssertValue(*hydration.Context, FlatData, any) error { return nil }

func (Null) WakeUp(Runtime) {}
