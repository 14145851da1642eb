package mapping

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"rowgraph/column"
	"rowgraph/internal/diagnostic"
	"rowgraph/internal/match"
	"rowgraph/node"
)

// Validate validates a mapping definition against the registered types and
// routines. This is a structural validation step only; problems found while
// constructing the nodes are reported by Build.
func Validate(mf *MappingFile, opts Options) *diagnostic.Diagnostics {
	res := &diagnostic.Diagnostics{}
	if mf == nil {
		res.AddError("mapping_is_nil", "mapping file is nil", "", "")
		return res
	}

	if len(mf.Entities) == 0 {
		res.AddWarning("no_entities", "mapping file declares no entities", "", "")
	}

	v := &validator{res: res, opts: opts, imports: mf.Imports}

	v.validateImports()

	tables := map[string]string{}

	for _, entity := range mf.Entities {
		v.entity = entity.Name

		if other, ok := tables[entity.Table]; ok && entity.Table != "" {
			res.AddWarning("duplicate_table",
				fmt.Sprintf("table %q is shared with entity %q", entity.Table, other), entity.Name, "")
		} else {
			tables[entity.Table] = entity.Name
		}

		v.validateType(entity.Type, entity.Name)

		if len(entity.Fields) == 0 {
			res.AddWarning("empty_entity", "entity maps no fields", entity.Name, "")
		}

		for _, nn := range entity.Fields {
			v.validateNode(nn.Spec, entity.Name+"."+nn.Name)
		}
	}

	return res
}

type validator struct {
	res     *diagnostic.Diagnostics
	opts    Options
	imports NamedNodes
	entity  string
}

func (v *validator) errorf(code, path, format string, args ...any) {
	v.res.AddError(code, fmt.Sprintf(format, args...), v.entity, path)
}

func (v *validator) warnf(code, path, format string, args ...any) {
	v.res.AddWarning(code, fmt.Sprintf(format, args...), v.entity, path)
}

func (v *validator) validateImports() {
	for _, nn := range v.imports {
		v.validateNode(nn.Spec, "imports."+nn.Name)
	}

	for _, nn := range v.imports {
		if cycle := v.importCycle(nn.Name); cycle != nil {
			v.errorf("import_cycle", "imports."+nn.Name, "import cycle %v", cycle)
		}
	}
}

// importCycle returns a chain of imports leading from name back to itself.
func (v *validator) importCycle(name string) []string {
	seen := map[string]bool{}

	var walk func(current string, chain []string) []string

	walk = func(current string, chain []string) []string {
		spec, ok := v.imports.Get(current)
		if !ok {
			return nil
		}

		for _, ref := range importsOf(spec) {
			next := append(slices.Clone(chain), ref)
			if ref == name {
				return next
			}

			if seen[ref] {
				continue
			}

			seen[ref] = true

			if cycle := walk(ref, next); cycle != nil {
				return cycle
			}
		}

		return nil
	}

	return walk(name, []string{name})
}

// importsOf lists the imports referenced by proxy nodes of a spec tree.
func importsOf(spec *NodeSpec) []string {
	if spec == nil {
		return nil
	}

	var out []string
	if spec.Kind == KindProxy && spec.Import != "" {
		out = append(out, spec.Import)
	}

	for _, child := range children(spec) {
		out = append(out, importsOf(child)...)
	}

	return out
}

// children lists the nested specs of a node, call arguments included.
func children(spec *NodeSpec) []*NodeSpec {
	var out []*NodeSpec
	if spec.Entry != nil {
		out = append(out, spec.Entry)
	}

	if spec.Inner != nil {
		out = append(out, spec.Inner)
	}

	for _, list := range []NamedNodes{spec.Entries, spec.Choices, spec.Fields} {
		for _, nn := range list {
			out = append(out, nn.Spec)
		}
	}

	for _, call := range []*CallSpec{spec.Factory, spec.Serializer} {
		if call != nil {
			out = append(out, call.Args...)
		}
	}

	return out
}

func (v *validator) validateType(name, path string) {
	if name == "" {
		v.errorf("missing_type", path, "no type name")
		return
	}

	if _, ok := v.opts.Types.ResolveType(name); ok {
		return
	}

	if v.opts.SchemaOnly {
		v.warnf("unknown_type", path, "type %q is not registered", name)
		return
	}

	v.errorf("unknown_type", path, "type %q is not registered", name)
	v.res.AddSuggestion(match.Closest(name, shortTypeNames(v.opts.Types), maxSuggestions)...)
}

func (v *validator) validateColumnType(name, path string) {
	if _, err := column.ParseType(name); err != nil {
		v.errorf("invalid_column_type", path, "%v", err)
	}
}

func (v *validator) validateNode(spec *NodeSpec, path string) {
	if spec == nil {
		v.errorf("missing_node", path, "no mapping")
		return
	}

	if !spec.Kind.IsValid() {
		v.errorf("unknown_kind", path, "unknown node kind %q", spec.Kind)
		v.res.AddSuggestion(match.Closest(string(spec.Kind), kindNames(), maxSuggestions)...)

		return
	}

	switch spec.Kind {
	case KindField:
		v.validateColumnType(spec.ColumnType, path)

		if spec.Anonymous && spec.Column != "" {
			v.warnf("anonymous_with_column", path, "column %q is ignored by an anonymous field", spec.Column)
		}

	case KindService:
		if spec.Service == "" {
			v.errorf("missing_service", path, "service node without service id")
		}

	case KindNull, KindConstant:

	case KindList:
		if spec.ColumnType != "" {
			v.validateColumnType(spec.ColumnType, path)
		}

		if spec.Entry == nil {
			v.errorf("missing_entry", path, "list without entry")
		} else {
			v.validateNode(spec.Entry, path+"[]")
		}

	case KindArray:
		if len(spec.Entries) == 0 {
			v.errorf("missing_entries", path, "array without entries")
		}

		for _, nn := range spec.Entries {
			v.validateNode(nn.Spec, path+"."+nn.Name)
		}

	case KindChoice:
		if len(spec.Choices) == 0 {
			v.errorf("missing_choices", path, "choice without alternatives")
		}

		for _, nn := range spec.Choices {
			if nn.Name == "" {
				v.errorf("empty_choice_key", path, "choice alternative with an empty key")
			}

			v.validateNode(nn.Spec, path+"["+nn.Name+"]")
		}

	case KindNullable:
		if spec.Inner == nil {
			v.errorf("missing_inner", path, "nullable without inner mapping")
		} else {
			v.validateNode(spec.Inner, path)
		}

	case KindObject:
		v.validateObject(spec, path)

	case KindProxy:
		switch {
		case spec.Import == "":
			v.errorf("missing_import", path, "proxy without import")
		default:
			if _, ok := v.imports.Get(spec.Import); !ok {
				v.errorf("unknown_import", path, "import %q is not declared", spec.Import)
				v.res.AddSuggestion(match.Closest(spec.Import, v.imports.Names(), maxSuggestions)...)
			}
		}
	}
}

func (v *validator) validateObject(spec *NodeSpec, path string) {
	v.validateType(spec.Type, path)

	if spec.Column != "" || spec.ColumnType != "" {
		v.validateColumnType(spec.ColumnType, path)
	}

	if spec.Serializer != nil && spec.Column == "" {
		v.errorf("serializer_without_column", path, "serializer needs a column")
	}

	if spec.Ref != "" {
		if len(spec.Fields) > 0 {
			v.warnf("ref_with_fields", path, "fields of a referenced object %q are not populated", spec.Ref)
		}

		if spec.Factory != nil {
			v.warnf("ref_with_factory", path, "factory of a referenced object %q is never called", spec.Ref)
		}
	}

	for _, nn := range spec.Fields {
		v.validateNode(nn.Spec, path+"."+nn.Name)
	}

	v.validateCall(spec.Factory, path+"#factory")
	v.validateCall(spec.Serializer, path+"#serializer")
}

func (v *validator) validateCall(call *CallSpec, path string) {
	if call == nil {
		return
	}

	if call.Routine == "" {
		v.errorf("missing_routine", path, "call without routine")
		return
	}

	for i, arg := range call.Args {
		v.validateNode(arg, fmt.Sprintf("%s(%d)", path, i))
	}

	if v.opts.Routines == nil {
		return
	}

	callee := node.ParseCallee(call.Callee, v.opts.Types)

	switch callee.Kind {
	case node.CalleeFree:
		if !v.opts.Routines.Has(call.Routine) {
			v.warnf("unknown_routine", path, "routine %q is not registered", call.Routine)
		}

	case node.CalleeType:
		if !v.hasStatic(callee.Type, call.Routine) {
			v.warnf("unknown_routine", path, "type %s has no routine %q", callee.Type, call.Routine)
		}
	}
}

func (v *validator) hasStatic(t reflect.Type, routine string) bool {
	if v.opts.Routines.Has(t.String()+"."+routine) || v.opts.Routines.Has(t.Name()+"."+routine) {
		return true
	}

	_, ok := reflect.PointerTo(t).MethodByName(routine)

	return ok
}

const maxSuggestions = 3

// shortTypeNames lists registered types by the bare name ResolveType accepts.
func shortTypeNames(r *TypeRegistry) []string {
	var out []string

	for _, name := range r.Names() {
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[i+1:]
		}

		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}

	return out
}

func kindNames() []string {
	return []string{
		string(KindField), string(KindService), string(KindNull), string(KindConstant), string(KindList),
		string(KindArray), string(KindChoice), string(KindNullable), string(KindObject), string(KindProxy),
	}
}
