package node

import (
	"rowgraph/column"
	"rowgraph/hydration"
)

// Proxy forwards to an inner mapping and prefixes the names of the columns it
// contributes, so an imported sub-tree can be embedded more than once.
type Proxy struct {
	origin string
	prefix string
	inner  Mapping
}

var _ Mapping = (*Proxy)(nil)

func NewProxy(origin, prefix string, inner Mapping) (*Proxy, error) {
	if inner == nil {
		return nil, failf(origin, ErrInvalidMapping, "proxy without inner mapping")
	}

	return &Proxy{origin: origin, prefix: prefix, inner: inner}, nil
}

func (p *Proxy) DescribeOrigin() string { return p.origin }

func (p *Proxy) Prefix() string { return p.prefix }

func (p *Proxy) Inner() Mapping { return p.inner }

func (p *Proxy) CollectColumns() []column.Column {
	return column.Prefix(p.prefix, p.inner.CollectColumns())
}

func (p *Proxy) ResolveValue(ctx *hydration.Context, data FlatData) (any, error) {
	return p.inner.ResolveValue(ctx, data)
}

func (p *Proxy) RevertValue(ctx *hydration.Context, value any) (FlatData, error) {
	return p.inner.RevertValue(ctx, value)
}

func (p *Proxy) AssertValue(ctx *hydration.Context, data FlatData, actual any) error {
	return p.inner.AssertValue(ctx, data, actual)
}

func (p *Proxy) WakeUp(rt Runtime) { p.inner.WakeUp(rt) }
