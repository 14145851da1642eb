package node

import (
	"database/sql"
	"database/sql/driver"
	"encoding"
	"fmt"
	"maps"
	"reflect"

	"rowgraph/codec"
	"rowgraph/column"
	"rowgraph/hydration"
	"rowgraph/primitive"
)

var (
	scannerType         = reflect.TypeFor[sql.Scanner]()
	valuerType          = reflect.TypeFor[driver.Valuer]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
)

// ObjectField binds a sub-mapping to a field of the target type.
type ObjectField struct {
	Name    string
	Mapping Mapping
}

// Object constructs a value of its target type from row data and
// deconstructs it again. Constructed structs are returned as pointers, so
// registered instances are shared by identity.
type Object struct {
	origin       string
	target       reflect.Type
	fields       []ObjectField
	column       column.Column
	hasColumn    bool
	id           string
	referencedID string
	factory      *CallDefinition
	serializer   *CallDefinition
	enum         enumKind

	codec   codec.Codec
	dialect codec.Dialect
	allowed primitive.CategoryEnum
}

var _ Mapping = (*Object)(nil)

type ObjectOption func(*Object)

// WithColumn stores the object itself in col, through an enumeration, a
// serializer or the codec.
func WithColumn(col column.Column) ObjectOption {
	return func(o *Object) {
		o.column = col
		o.hasColumn = true
	}
}

// WithID registers the constructed value under id.
func WithID(id string) ObjectOption {
	return func(o *Object) { o.id = id }
}

// WithReferencedID substitutes the value registered under id instead of
// constructing one. Its fields are not resolved again: the instance was
// populated where it was registered.
func WithReferencedID(id string) ObjectOption {
	return func(o *Object) { o.referencedID = id }
}

func WithFactory(call *CallDefinition) ObjectOption {
	return func(o *Object) { o.factory = call }
}

func WithSerializer(call *CallDefinition) ObjectOption {
	return func(o *Object) { o.serializer = call }
}

func NewObject(origin string, target reflect.Type, fields []ObjectField, opts ...ObjectOption) (*Object, error) {
	if target == nil {
		return nil, failf(origin, ErrInvalidMapping, "object without target type")
	}

	o := &Object{origin: origin, target: base(target), fields: fields}
	for _, opt := range opts {
		opt(o)
	}

	if o.hasColumn && (o.column.Name == "" || !o.column.Type.IsValid()) {
		return nil, failf(origin, ErrInvalidMapping, "object %s has an invalid column %q", typeStr(o.target), o.column.Name)
	}

	if o.serializer != nil && !o.hasColumn {
		return nil, failf(origin, ErrInvalidMapping, "serializer of %s without column", typeStr(o.target))
	}

	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Mapping == nil {
			return nil, failf(origin, ErrInvalidMapping, "field %q of %s without mapping", f.Name, typeStr(o.target))
		}

		if _, ok := seen[f.Name]; ok {
			return nil, failf(origin, ErrInvalidMapping, "duplicate field %q of %s", f.Name, typeStr(o.target))
		}

		seen[f.Name] = struct{}{}
	}

	if o.hasColumn {
		ptr := reflect.PointerTo(o.target)

		switch {
		case ptr.Implements(scannerType) && ptr.Implements(valuerType):
			o.enum = enumBacked
		case ptr.Implements(textUnmarshalerType) && ptr.Implements(textMarshalerType):
			o.enum = enumNamed
		}
	}

	return o, nil
}

func (o *Object) DescribeOrigin() string { return o.origin }

func (o *Object) Target() reflect.Type { return o.target }

func (o *Object) Fields() []ObjectField { return o.fields }

func (o *Object) CollectColumns() []column.Column {
	var lists [][]column.Column
	if o.hasColumn {
		lists = append(lists, []column.Column{o.column})
	}

	for _, f := range o.fields {
		lists = append(lists, f.Mapping.CollectColumns())
	}

	for _, call := range []*CallDefinition{o.factory, o.serializer} {
		if call != nil {
			lists = append(lists, call.CollectColumns())
		}
	}

	return column.Merge(lists...)
}

// isInstance reports whether value is a constructed struct of the target type.
func (o *Object) isInstance(value any) bool {
	if o.target.Kind() != reflect.Struct || value == nil {
		return false
	}

	t := reflect.TypeOf(value)

	return t == o.target || (t.Kind() == reflect.Ptr && t.Elem() == o.target)
}

func (o *Object) ResolveValue(ctx *hydration.Context, data FlatData) (any, error) {
	if o.codec == nil {
		return nil, failf(o.origin, ErrNotAwake, "object %s", typeStr(o.target))
	}

	ctx.Push(hydration.Placeholder{Type: o.target})
	defer func() { _, _ = ctx.Pop() }()

	value, fieldData, err := o.construct(ctx, data)
	if err != nil {
		return nil, err
	}

	populate := o.isInstance(value) && o.referencedID == "" && len(o.fields) > 0

	// a factory returned a struct by value: fields go into an addressable
	// copy, which is also what self, parent and id lookups see meanwhile
	working := value

	var ptr reflect.Value
	if rv := reflect.ValueOf(value); populate && rv.Kind() != reflect.Ptr {
		ptr = reflect.New(rv.Type())
		ptr.Elem().Set(rv)
		working = ptr.Interface()
	}

	// the placeholder pushed above keeps the stack deep enough
	_ = ctx.ReplaceTop(working)

	registered := o.id != "" && !ctx.HasRegistered(o.id)
	if registered {
		ctx.Register(o.id, working)
	}

	if !populate {
		return value, nil
	}

	if err := o.ResolveInto(ctx, fieldData, working); err != nil {
		return nil, err
	}

	if !ptr.IsValid() {
		return value, nil
	}

	result := ptr.Elem().Interface()
	if registered {
		ctx.Register(o.id, result)
	}

	return result, nil
}

// construct produces the value before its fields are populated, and the data
// the fields resolve against.
func (o *Object) construct(ctx *hydration.Context, data FlatData) (any, FlatData, error) {
	if o.referencedID != "" {
		value, err := ctx.GetRegistered(o.referencedID)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", o.origin, err)
		}

		return value, data, nil
	}

	var (
		scalar  any
		present bool
	)

	if o.hasColumn {
		scalar, present = data.Lookup(o.column.Name)
	}

	if o.factory != nil {
		input := data
		if present {
			native, err := o.codec.ToNative(o.column.Type, o.dialect, scalar)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: column %q: %w", o.origin, o.column.Name, err)
			}

			input = data.Clone()
			input[Anonymous] = native
		}

		value, err := o.factory.Execute(ctx, input)
		if err != nil {
			return nil, nil, err
		}

		return value, input, nil
	}

	switch {
	case o.enum == enumBacked:
		if scalar == nil {
			return nil, data, nil
		}

		ptr := reflect.New(o.target)
		if err := ptr.Interface().(sql.Scanner).Scan(scalar); err != nil {
			return nil, nil, fmt.Errorf("%s: %w: scan %s: %w", o.origin, ErrTypeMismatch, typeStr(o.target), err)
		}

		return ptr.Elem().Interface(), data, nil

	case o.enum == enumNamed:
		if scalar == nil {
			return nil, data, nil
		}

		text, err := o.codec.ToNative(column.TypeString, o.dialect, scalar)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: column %q: %w", o.origin, o.column.Name, err)
		}

		ptr := reflect.New(o.target)
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(text.(string))); err != nil {
			return nil, nil, fmt.Errorf("%s: %w: %s from %q: %w", o.origin, ErrTypeMismatch, typeStr(o.target), text, err)
		}

		return ptr.Elem().Interface(), data, nil

	case o.hasColumn && o.target.Kind() != reflect.Struct:
		native, err := o.codec.ToNative(o.column.Type, o.dialect, scalar)
		if err != nil || native == nil {
			return nil, data, err
		}

		conv, err := primitive.Convert(native, o.target, o.allowed)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w: %w", o.origin, ErrTypeMismatch, err)
		}

		return conv.Interface(), data, nil
	}

	return reflect.New(o.target).Interface(), data, nil
}

// ResolveInto resolves every field against data and assigns it into
// instance, a pointer to the target type. The construction stack is left as
// is.
func (o *Object) ResolveInto(ctx *hydration.Context, data FlatData, instance any) error {
	for _, f := range o.fields {
		v, err := f.Mapping.ResolveValue(ctx, data)
		if err != nil {
			return err
		}

		if err := setField(instance, f.Name, v, o.allowed); err != nil {
			return fmt.Errorf("%s: %w", o.origin, err)
		}
	}

	return nil
}

func (o *Object) RevertValue(ctx *hydration.Context, value any) (FlatData, error) {
	if o.codec == nil {
		return nil, failf(o.origin, ErrNotAwake, "object %s", typeStr(o.target))
	}

	if isNil(value) {
		value = nil
	}

	ctx.Push(value)
	defer func() { _, _ = ctx.Pop() }()

	out, err := o.RevertFrom(ctx, value)
	if err != nil {
		return nil, err
	}

	if !o.hasColumn {
		return out, nil
	}

	var stored any

	switch {
	case value == nil:
	case o.serializer != nil:
		input := out.Clone()
		input[Anonymous] = value

		if stored, err = o.serializer.Execute(ctx, input); err != nil {
			return nil, err
		}

	case o.enum == enumNamed:
		m, ok := textMarshaler(value)
		if !ok {
			return nil, failf(o.origin, ErrTypeMismatch, "expected %s, got %T", typeStr(o.target), value)
		}

		text, err := m.MarshalText()
		if err != nil {
			return nil, fmt.Errorf("%s: marshal %s: %w", o.origin, typeStr(o.target), err)
		}

		stored = string(text)

	case o.enum == enumBacked || !o.isInstance(value):
		stored = value

	default:
		return out, nil
	}

	scalar, err := o.codec.ToStorage(o.column.Type, o.dialect, stored)
	if err != nil {
		return nil, fmt.Errorf("%s: column %q: %w", o.origin, o.column.Name, err)
	}

	out[o.column.Name] = scalar

	return out, nil
}

// RevertFrom reverts every field of instance and merges the results. A nil
// instance reverts every field as nil; values that are not structs have no
// fields to read.
func (o *Object) RevertFrom(ctx *hydration.Context, instance any) (FlatData, error) {
	out := FlatData{}
	if instance != nil && !o.isInstance(instance) {
		return out, nil
	}

	for _, f := range o.fields {
		var v any
		if instance != nil {
			var err error
			if v, err = getField(instance, f.Name); err != nil {
				return nil, fmt.Errorf("%s: %w", o.origin, err)
			}
		}

		reverted, err := f.Mapping.RevertValue(ctx, v)
		if err != nil {
			return nil, err
		}

		if anon, ok := reverted.Lookup(Anonymous); ok {
			reverted = reverted.Without(Anonymous)
			reverted[f.Name] = anon
		}

		maps.Copy(out, reverted)
	}

	return out, nil
}

// FieldValue reads the named field of instance.
func (o *Object) FieldValue(instance any, name string) (any, error) {
	v, err := getField(instance, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", o.origin, err)
	}

	return v, nil
}

// AssertValue fails unless actual is nil or of the target type, then asserts
// every field.
// SetFieldValue assigns value to the named field of instance with the same
// conversions a resolved field gets.
func (o *Object) SetFieldValue(instance any, name string, value any) error {
	if err := setField(instance, name, value, o.allowed); err != nil {
		return fmt.Errorf("%s: %w", o.origin, err)
	}

	return nil
}

func (o *Object) AssertValue(ctx *hydration.Context, data FlatData, actual any) error {
	if isNil(actual) {
		return nil
	}

	t := reflect.TypeOf(actual)
	if t != o.target && !(t.Kind() == reflect.Ptr && t.Elem() == o.target) {
		return failf(o.origin, ErrTypeMismatch, "expected %s, got %s", typeStr(o.target), typeStr(t))
	}

	if !o.isInstance(actual) {
		return nil
	}

	ctx.Push(actual)
	defer func() { _, _ = ctx.Pop() }()

	for _, f := range o.fields {
		v, err := o.FieldValue(actual, f.Name)
		if err != nil {
			return err
		}

		if err := f.Mapping.AssertValue(ctx, data, v); err != nil {
			return err
		}
	}

	return nil
}

func (o *Object) WakeUp(rt Runtime) {
	rt = rt.normalize()
	o.codec = rt.Codec
	o.dialect = rt.Dialect
	o.allowed = rt.Conversions

	for _, f := range o.fields {
		f.Mapping.WakeUp(rt)
	}

	for _, call := range []*CallDefinition{o.factory, o.serializer} {
		if call != nil {
			call.WakeUp(rt)
			wakeAll(rt, call.Args()...)
		}
	}
}

func textMarshaler(value any) (encoding.TextMarshaler, bool) {
	if m, ok := value.(encoding.TextMarshaler); ok {
		return m, true
	}

	ptr := reflect.New(reflect.TypeOf(value))
	ptr.Elem().Set(reflect.ValueOf(value))
	m, ok := ptr.Interface().(encoding.TextMarshaler)

	return m, ok
}
