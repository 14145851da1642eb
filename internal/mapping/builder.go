package mapping

import (
	"errors"
	"fmt"
	"reflect"

	"rowgraph/column"
	"rowgraph/internal/diagnostic"
	"rowgraph/node"
)

// Options controls how a mapping file is turned into mapping trees.
type Options struct {
	// Types resolves the type names of entities, objects and static callees.
	Types *TypeRegistry
	// Routines, when set, is used to warn about unknown free routines.
	Routines *node.Routines
	// SchemaOnly builds trees for column collection only: unknown types are
	// replaced by an empty struct instead of failing the build.
	SchemaOnly bool
}

// Entity is the built mapping tree of one entity type.
type Entity struct {
	Name  string
	Table string
	Root  *node.Object
}

// Type returns the Go type the entity is hydrated into.
func (e *Entity) Type() reflect.Type { return e.Root.Target() }

// Columns returns the storage columns of the whole tree.
func (e *Entity) Columns() []column.Column { return e.Root.CollectColumns() }

var placeholderType = reflect.TypeFor[struct{}]()

// Build validates the mapping file and constructs one tree per entity, in
// declaration order. On any error diagnostic no entities are returned.
func Build(mf *MappingFile, opts Options) ([]*Entity, *diagnostic.Diagnostics) {
	res := Validate(mf, opts)
	if res.HasErrors() {
		return nil, res
	}

	b := &builder{
		opts:     opts,
		res:      res,
		imports:  mf.Imports,
		built:    make(map[string]node.Mapping),
		building: make(map[string]bool),
	}

	entities := make([]*Entity, 0, len(mf.Entities))
	for _, spec := range mf.Entities {
		if e := b.buildEntity(spec); e != nil {
			entities = append(entities, e)
		}
	}

	if res.HasErrors() {
		return nil, res
	}

	return entities, res
}

type builder struct {
	opts     Options
	res      *diagnostic.Diagnostics
	imports  NamedNodes
	built    map[string]node.Mapping
	building map[string]bool

	entity string
	taken  map[string]struct{}
}

func (b *builder) fail(path string, err error) {
	code := "invalid_mapping"
	if !errors.Is(err, node.ErrInvalidMapping) {
		code = "build_failed"
	}

	b.res.AddError(code, err.Error(), b.entity, path)
}

func (b *builder) resolveType(name string) (reflect.Type, bool) {
	if t, ok := b.opts.Types.ResolveType(name); ok {
		return t, true
	}

	if b.opts.SchemaOnly {
		return placeholderType, true
	}

	return nil, false
}

func (b *builder) buildEntity(spec *EntitySpec) *Entity {
	b.entity = spec.Name
	b.taken = make(map[string]struct{})

	for _, nn := range spec.Fields {
		if nn.Spec.Kind == KindField && nn.Spec.Column == "" {
			b.taken[nn.Name] = struct{}{}
		}

		declaredColumns(nn.Spec, b.taken)
	}

	t, ok := b.resolveType(spec.Type)
	if !ok {
		b.res.AddError("unknown_type", fmt.Sprintf("type %q is not registered", spec.Type), spec.Name, spec.Name)
		return nil
	}

	fields, ok := b.buildFields(spec.Fields, spec.Name)
	if !ok {
		return nil
	}

	b.warnOverlaps(spec.Name, fieldMappings(fields), spec.Fields.Names())

	root, err := node.NewObject(spec.Name, t, fields)
	if err != nil {
		b.fail(spec.Name, err)
		return nil
	}

	return &Entity{Name: spec.Name, Table: spec.Table, Root: root}
}

func (b *builder) buildFields(specs NamedNodes, path string) ([]node.ObjectField, bool) {
	fields := make([]node.ObjectField, 0, len(specs))
	complete := true

	for _, nn := range specs {
		m := b.buildNode(nn.Spec, path+"."+nn.Name, nn.Name)
		if m == nil {
			complete = false
			continue
		}

		fields = append(fields, node.ObjectField{Name: nn.Name, Mapping: m})
	}

	return fields, complete
}

func (b *builder) buildKeyed(specs NamedNodes, path, format string) ([]node.KeyedMapping, bool) {
	keyed := make([]node.KeyedMapping, 0, len(specs))
	complete := true

	for _, nn := range specs {
		m := b.buildNode(nn.Spec, fmt.Sprintf(format, path, nn.Name), nn.Name)
		if m == nil {
			complete = false
			continue
		}

		keyed = append(keyed, node.KeyedMapping{Key: nn.Name, Mapping: m})
	}

	return keyed, complete
}

// column describes the storage column of spec; def applies when no column
// type is configured.
func (b *builder) column(spec *NodeSpec, name string, def column.Type) column.Column {
	t := def
	if spec.ColumnType != "" {
		t, _ = column.ParseType(spec.ColumnType)
	}

	col := column.New(name, t)
	col.Nullable = !spec.Required
	col.Length = spec.Length
	col.Precision = spec.Precision
	col.Scale = spec.Scale

	return col
}

// buildNode builds the mapping of spec. The name is the field or entry name
// the node is bound to; an empty name stands for the anonymous slot. A nil
// result means the failure was already reported.
func (b *builder) buildNode(spec *NodeSpec, path, name string) node.Mapping {
	m, err := b.newNode(spec, path, name)
	if err != nil {
		if !errors.Is(err, errIncomplete) {
			b.fail(path, err)
		}

		return nil
	}

	return m
}

func (b *builder) newNode(spec *NodeSpec, path, name string) (node.Mapping, error) {
	switch spec.Kind {
	case KindField:
		col := spec.Column
		if col == "" {
			col = name
		}

		if spec.Anonymous {
			col = node.Anonymous
		}

		return node.NewField(path, b.column(spec, col, column.TypeString))

	case KindService:
		return node.NewService(path, spec.Service, spec.Lax)

	case KindNull:
		return node.NewNull(path), nil

	case KindConstant:
		return node.NewConstantValue(path, spec.Value)

	case KindList:
		entry := b.buildNode(spec.Entry, path+"[]", node.Anonymous)
		if entry == nil {
			return nil, errIncomplete
		}

		return node.NewList(path, b.column(spec, firstNonEmpty(spec.Column, name), 0), entry)

	case KindArray:
		entries, ok := b.buildKeyed(spec.Entries, path, "%s.%s")
		if !ok {
			return nil, errIncomplete
		}

		mappings := make([]node.Mapping, len(entries))
		keys := make([]string, len(entries))

		for i, e := range entries {
			mappings[i], keys[i] = e.Mapping, e.Key
		}

		b.warnOverlaps(path, mappings, keys)

		return node.NewArray(path, entries)

	case KindChoice:
		choices, ok := b.buildKeyed(spec.Choices, path, "%s[%s]")
		if !ok {
			return nil, errIncomplete
		}

		det := spec.Determinator
		if det == "" {
			det = NewStem(name+"_type", b.taken).Bare()
		}

		return node.NewChoice(path, column.New(det, column.TypeString), choices)

	case KindNullable:
		inner := b.buildNode(spec.Inner, path, name)
		if inner == nil {
			return nil, errIncomplete
		}

		return node.NewNullable(path, inner, column.Column{Name: spec.Indicator, Nullable: true})

	case KindObject:
		return b.newObject(spec, path)

	case KindProxy:
		inner := b.importNode(spec.Import)
		if inner == nil {
			return nil, errIncomplete
		}

		return node.NewProxy(path, spec.Prefix, inner)
	}

	return nil, fmt.Errorf("%s: %w: unknown node kind %q", path, node.ErrInvalidMapping, spec.Kind)
}

// errIncomplete marks a node whose children already reported their failure.
var errIncomplete = errors.New("incomplete")

func (b *builder) newObject(spec *NodeSpec, path string) (node.Mapping, error) {
	t, ok := b.resolveType(spec.Type)
	if !ok {
		return nil, fmt.Errorf("%s: %w: type %q is not registered", path, node.ErrInvalidMapping, spec.Type)
	}

	fields, ok := b.buildFields(spec.Fields, path)
	if !ok {
		return nil, errIncomplete
	}

	var opts []node.ObjectOption

	if spec.Column != "" {
		opts = append(opts, node.WithColumn(b.column(spec, spec.Column, column.TypeString)))
	}

	if spec.ID != "" {
		opts = append(opts, node.WithID(spec.ID))
	}

	if spec.Ref != "" {
		opts = append(opts, node.WithReferencedID(spec.Ref))
	}

	if spec.Factory != nil {
		call, err := b.newCall(spec.Factory, path+"#factory")
		if err != nil {
			return nil, err
		}

		opts = append(opts, node.WithFactory(call))
	}

	if spec.Serializer != nil {
		call, err := b.newCall(spec.Serializer, path+"#serializer")
		if err != nil {
			return nil, err
		}

		opts = append(opts, node.WithSerializer(call))
	}

	return node.NewObject(path, t, fields, opts...)
}

func (b *builder) newCall(spec *CallSpec, path string) (*node.CallDefinition, error) {
	args := make([]node.Mapping, len(spec.Args))
	for i, arg := range spec.Args {
		args[i] = b.buildNode(arg, fmt.Sprintf("%s(%d)", path, i), node.Anonymous)
		if args[i] == nil {
			return nil, errIncomplete
		}
	}

	callee := node.ParseCallee(spec.Callee, b.opts.Types)

	return node.NewCall(path, callee, spec.Routine, args, spec.Static)
}

// importNode builds a declared import once; every proxy shares the result.
func (b *builder) importNode(name string) node.Mapping {
	if m, ok := b.built[name]; ok {
		return m
	}

	path := "imports." + name

	spec, ok := b.imports.Get(name)
	if !ok || b.building[name] {
		b.res.AddError("unknown_import", fmt.Sprintf("import %q is not available", name), b.entity, path)
		return nil
	}

	b.building[name] = true
	defer delete(b.building, name)

	m := b.buildNode(spec, path, name)
	if m != nil {
		b.built[name] = m
	}

	return m
}

// warnOverlaps reports columns contributed by more than one sibling; on
// revert the later sibling wins.
func (b *builder) warnOverlaps(path string, siblings []node.Mapping, names []string) {
	owner := map[string]string{}

	for i, m := range siblings {
		for _, col := range m.CollectColumns() {
			if prev, ok := owner[col.Name]; ok && prev != names[i] {
				b.res.AddWarning("overlapping_columns",
					fmt.Sprintf("column %q is shared by %q and %q", col.Name, prev, names[i]), b.entity, path)

				continue
			}

			owner[col.Name] = names[i]
		}
	}
}

func fieldMappings(fields []node.ObjectField) []node.Mapping {
	out := make([]node.Mapping, len(fields))
	for i, f := range fields {
		out[i] = f.Mapping
	}

	return out
}

// declaredColumns collects the column names a spec tree names explicitly.
func declaredColumns(spec *NodeSpec, into map[string]struct{}) {
	if spec == nil {
		return
	}

	for _, name := range []string{spec.Column, spec.Determinator, spec.Indicator} {
		if name != "" {
			into[name] = struct{}{}
		}
	}

	for _, child := range children(spec) {
		declaredColumns(child, into)
	}
}

func firstNonEmpty(value, fallback string) string {
	if value != "" {
		return value
	}

	return fallback
}
