// Package node implements the mapping tree: a closed family of nodes that
// convert between one storage row (FlatData) and a rich Go value graph.
//
// Every node implements Mapping. A tree is built once, woken up once with the
// runtime collaborators it needs (codec, service locator, routines), and is
// read-only afterwards, so it can be shared between goroutines. All per
// operation state lives in the hydration.Context passed to each call.
//
// # Variants
//
//   - Field: one column <-> one native scalar through the codec
//   - Service: a singleton from the service locator, never persisted
//   - Null: always nil
//   - Constant: a fixed literal
//   - Proxy: forwards to an inner mapping, prefixing its column names
//   - List: a JSON encoded sequence in one column with a shared entry mapping
//   - Array: a fixed set of named entries over the same row
//   - Choice: a discriminated union selected by a determinator column
//   - Nullable: an inner mapping guarded by a presence column
//   - Object: constructs and deconstructs a struct field by field
package node

import (
	"maps"

	"rowgraph/codec"
	"rowgraph/column"
	"rowgraph/hydration"
	"rowgraph/primitive"
	"rowgraph/service"
)

// Anonymous is the FlatData key carrying the single value a sub-tree cares
// about, e.g. a list element or the converted column of a factory.
const Anonymous = ""

// FlatData maps storage column names to scalars; nil means SQL NULL.
type FlatData map[string]any

// Lookup returns the value stored under key and whether it exists.
func (d FlatData) Lookup(key string) (any, bool) {
	v, ok := d[key]
	return v, ok
}

func (d FlatData) Clone() FlatData {
	out := make(FlatData, len(d)+1)
	maps.Copy(out, d)

	return out
}

// Without returns a copy of d with key removed.
func (d FlatData) Without(key string) FlatData {
	out := d.Clone()
	delete(out, key)

	return out
}

// Mapping is the contract shared by every node of the tree.
type Mapping interface {
	// DescribeOrigin names where the node was configured, for diagnostics.
	DescribeOrigin() string
	// CollectColumns lists the storage columns of the node and its children.
	CollectColumns() []column.Column
	// ResolveValue hydrates a value from row data.
	ResolveValue(ctx *hydration.Context, data FlatData) (any, error)
	// RevertValue computes the row data that represents value.
	RevertValue(ctx *hydration.Context, value any) (FlatData, error)
	// AssertValue checks that actual is consistent with what the node would
	// resolve from data.
	AssertValue(ctx *hydration.Context, data FlatData, actual any) error
	// WakeUp binds the runtime collaborators after the tree was built or
	// restored from a cache.
	WakeUp(rt Runtime)
}

// Runtime carries the collaborators that are not part of a tree's
// configuration and have to be re-attached with WakeUp.
type Runtime struct {
	Codec    codec.Codec
	Dialect  codec.Dialect
	Locator  service.Locator
	Routines *Routines
	// Conversions restricts how resolved values are converted when assigned
	// to struct fields or passed as call arguments. Zero means all.
	Conversions primitive.CategoryEnum
}

func (rt Runtime) normalize() Runtime {
	if rt.Codec == nil {
		rt.Codec = codec.Default{}
	}

	if rt.Locator == nil {
		rt.Locator = service.NewMap(nil)
	}

	if rt.Routines == nil {
		rt.Routines = NewRoutines()
	}

	if rt.Conversions == primitive.CategoryNone {
		rt.Conversions = primitive.CategoryAll
	}

	return rt
}

func wakeAll(rt Runtime, mappings ...Mapping) {
	for _, m := range mappings {
		if m != nil {
			m.WakeUp(rt)
		}
	}
}

func collectAll(mappings ...Mapping) []column.Column {
	lists := make([][]column.Column, 0, len(mappings))
	for _, m := range mappings {
		if m != nil {
			lists = append(lists, m.CollectColumns())
		}
	}

	return column.Merge(lists...)
}
