// Package driver runs the built mapping trees of a set of entities: it wakes
// them up once and exposes the load, dump and check entry points a
// persistence layer calls for one row at a time.
package driver

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"strings"
	"sync"

	"go.uber.org/zap"

	"rowgraph/column"
	"rowgraph/hydration"
	"rowgraph/internal/diagnostic"
	"rowgraph/internal/logging"
	"rowgraph/internal/mapping"
	"rowgraph/node"
)

var (
	ErrUnknownEntity   = errors.New("unknown entity")
	ErrDuplicateEntity = errors.New("duplicate entity")
	ErrEntityType      = errors.New("entity type mismatch")
)

// Driver is safe for concurrent use once created: the trees are only read
// after the first wake-up, and every operation uses its own context.
type Driver struct {
	entities map[string]*mapping.Entity
	order    []string
	rt       node.Runtime
	logger   *zap.Logger
	once     sync.Once
}

func New(entities []*mapping.Entity, rt node.Runtime, logger *zap.Logger) (*Driver, error) {
	d := &Driver{
		entities: make(map[string]*mapping.Entity, len(entities)),
		rt:       rt,
		logger:   logging.OrNop(logger),
	}

	for _, e := range entities {
		if _, ok := d.entities[e.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateEntity, e.Name)
		}

		d.entities[e.Name] = e
		d.order = append(d.order, e.Name)
	}

	return d, nil
}

// WakeUp binds the runtime collaborators to every tree. Only the first call
// has an effect; the other operations call it implicitly.
func (d *Driver) WakeUp() {
	d.once.Do(func() {
		for _, name := range d.order {
			d.entities[name].Root.WakeUp(d.rt)
		}

		d.logger.Debug("mapping trees woken up", zap.Int("entities", len(d.order)))
	})
}

// Names returns the entity names in declaration order.
func (d *Driver) Names() []string {
	return append([]string(nil), d.order...)
}

func (d *Driver) Entity(name string) (*mapping.Entity, error) {
	e, ok := d.entities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, name)
	}

	return e, nil
}

// Columns returns the storage columns of an entity.
func (d *Driver) Columns(name string) ([]column.Column, error) {
	e, err := d.Entity(name)
	if err != nil {
		return nil, err
	}

	return e.Columns(), nil
}

// prepare looks up the entity and checks that target is a pointer to its type.
func (d *Driver) prepare(name string, target any) (*mapping.Entity, error) {
	e, err := d.Entity(name)
	if err != nil {
		return nil, err
	}

	t := reflect.TypeOf(target)
	if t == nil || t.Kind() != reflect.Ptr || t.Elem() != e.Type() || reflect.ValueOf(target).IsNil() {
		return nil, fmt.Errorf("%w: %s needs *%s, got %T", ErrEntityType, name, e.Type(), target)
	}

	d.WakeUp()

	return e, nil
}

func (d *Driver) context(target any) *hydration.Context {
	return hydration.New(target, hydration.WithLogger(d.logger))
}

// Load hydrates target, an existing entity, from one row.
func (d *Driver) Load(name string, target any, row node.FlatData) error {
	e, err := d.prepare(name, target)
	if err != nil {
		return err
	}

	ctx := d.context(target)

	for _, f := range e.Root.Fields() {
		v, err := resolveField(ctx, f, row)
		if err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}

		if err := e.Root.SetFieldValue(target, f.Name, v); err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}

	d.logger.Debug("entity loaded", zap.String("entity", name), zap.Int("columns", len(row)))

	return nil
}

// Dump computes the row that stores target.
func (d *Driver) Dump(name string, target any) (node.FlatData, error) {
	e, err := d.prepare(name, target)
	if err != nil {
		return nil, err
	}

	ctx := d.context(target)
	row := node.FlatData{}

	for _, f := range e.Root.Fields() {
		v, err := e.Root.FieldValue(target, f.Name)
		if err != nil {
			return nil, fmt.Errorf("dump %s: %w", name, err)
		}

		reverted, err := revertField(ctx, f, v)
		if err != nil {
			return nil, fmt.Errorf("dump %s: %w", name, err)
		}

		maps.Copy(row, reverted)
	}

	d.logger.Debug("entity dumped", zap.String("entity", name), zap.Int("columns", len(row)))

	return row, nil
}

// Resolve hydrates every field of an entity from row without an entity
// instance and returns the values by field name. Fields that fail are
// reported in the diagnostics and left out of the result.
func (d *Driver) Resolve(name string, row node.FlatData) (map[string]any, *diagnostic.Diagnostics) {
	res := &diagnostic.Diagnostics{}

	e, err := d.Entity(name)
	if err != nil {
		res.AddError("unknown_entity", err.Error(), name, "")
		return nil, res
	}

	d.WakeUp()

	ctx := hydration.New(nil, hydration.WithEntityType(e.Type()), hydration.WithLogger(d.logger))
	out := make(map[string]any, len(e.Root.Fields()))

	for _, f := range e.Root.Fields() {
		v, err := resolveField(ctx, f, row)
		if err != nil {
			res.AddError(errorCode(err), err.Error(), name, f.Mapping.DescribeOrigin())
			continue
		}

		out[f.Name] = v
	}

	return out, res
}

// Revert is the inverse of Resolve: it reverts field values given by name
// into one row. Missing fields revert as nil.
func (d *Driver) Revert(name string, values map[string]any) (node.FlatData, *diagnostic.Diagnostics) {
	res := &diagnostic.Diagnostics{}

	e, err := d.Entity(name)
	if err != nil {
		res.AddError("unknown_entity", err.Error(), name, "")
		return nil, res
	}

	d.WakeUp()

	ctx := hydration.New(nil, hydration.WithEntityType(e.Type()), hydration.WithLogger(d.logger))
	row := node.FlatData{}

	for _, f := range e.Root.Fields() {
		reverted, err := revertField(ctx, f, values[f.Name])
		if err != nil {
			res.AddError(errorCode(err), err.Error(), name, f.Mapping.DescribeOrigin())
			continue
		}

		maps.Copy(row, reverted)
	}

	return row, res
}

// Check asserts every field of target against row and reports each
// inconsistency instead of stopping at the first one.
func (d *Driver) Check(name string, target any, row node.FlatData) *diagnostic.Diagnostics {
	res := &diagnostic.Diagnostics{}

	e, err := d.prepare(name, target)
	if err != nil {
		res.AddError("invalid_entity", err.Error(), name, "")
		return res
	}

	ctx := d.context(target)

	for _, f := range e.Root.Fields() {
		path := f.Mapping.DescribeOrigin()

		v, err := e.Root.FieldValue(target, f.Name)
		if err != nil {
			res.AddError(errorCode(err), err.Error(), name, path)
			continue
		}

		if err := f.Mapping.AssertValue(ctx, unprefixed(row, columnPrefix(f.Mapping)), v); err != nil {
			res.AddError(errorCode(err), err.Error(), name, path)
		}
	}

	if res.HasErrors() {
		d.logger.Debug("entity check failed", zap.String("entity", name), zap.Int("errors", len(res.Errors)))
	}

	return res
}

func resolveField(ctx *hydration.Context, f node.ObjectField, row node.FlatData) (any, error) {
	return f.Mapping.ResolveValue(ctx, unprefixed(row, columnPrefix(f.Mapping)))
}

// revertField reverts one field value, naming an anonymous column after the
// field and prefixing the columns of a proxy.
func revertField(ctx *hydration.Context, f node.ObjectField, value any) (node.FlatData, error) {
	reverted, err := f.Mapping.RevertValue(ctx, value)
	if err != nil {
		return nil, err
	}

	if anon, ok := reverted.Lookup(node.Anonymous); ok {
		reverted = reverted.Without(node.Anonymous)
		reverted[f.Name] = anon
	}

	return prefixed(reverted, columnPrefix(f.Mapping)), nil
}

// columnPrefix returns the prefix a chain of proxies adds to the columns of
// its inner mapping. Proxies only rename the columns they report, so the
// stored row and the data the inner mapping sees differ by this prefix.
func columnPrefix(m node.Mapping) string {
	var prefix string
	for p, ok := m.(*node.Proxy); ok; p, ok = p.Inner().(*node.Proxy) {
		prefix += p.Prefix()
	}

	return prefix
}

func prefixed(data node.FlatData, prefix string) node.FlatData {
	if prefix == "" {
		return data
	}

	out := make(node.FlatData, len(data))
	for k, v := range data {
		out[prefix+k] = v
	}

	return out
}

// unprefixed exposes the prefixed columns of row under their inner names.
func unprefixed(row node.FlatData, prefix string) node.FlatData {
	if prefix == "" {
		return row
	}

	out := row.Clone()
	for k, v := range row {
		if inner, ok := strings.CutPrefix(k, prefix); ok && inner != "" {
			out[inner] = v
		}
	}

	return out
}

var errorCodes = []struct {
	err  error
	code string
}{
	{node.ErrServiceMismatch, "service_mismatch"},
	{node.ErrServiceNotFound, "service_not_found"},
	{node.ErrValueMismatch, "value_mismatch"},
	{node.ErrTypeMismatch, "type_mismatch"},
	{node.ErrInvalidChoice, "invalid_choice"},
	{node.ErrMissingField, "missing_field"},
	{node.ErrUnknownRegistryKey, "unknown_registry_key"},
	{node.ErrStackUnderflow, "stack_underflow"},
	{node.ErrCallArity, "call_arity"},
	{node.ErrUnknownRoutine, "unknown_routine"},
}

func errorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}

	return "failed"
}
