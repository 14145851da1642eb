package node

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"rowgraph/column"
	"rowgraph/hydration"
	"rowgraph/primitive"
	"rowgraph/service"
)

// CallDefinition describes one dynamic invocation used by Object factories
// and serializers.
type CallDefinition struct {
	origin  string
	callee  Callee
	routine string
	args    []Mapping
	static  bool

	locator  service.Locator
	routines *Routines
	allowed  primitive.CategoryEnum
}

// NewCall creates a call definition. Arguments are resolved in order after
// the anonymous value, if any, which always comes first.
func NewCall(origin string, callee Callee, routine string, args []Mapping, static bool) (*CallDefinition, error) {
	if routine == "" {
		return nil, failf(origin, ErrInvalidMapping, "call without routine")
	}

	if callee.Kind == CalleeType && callee.Type == nil {
		return nil, failf(origin, ErrInvalidMapping, "type callee %q without type", callee.Name)
	}

	for i, arg := range args {
		if arg == nil {
			return nil, failf(origin, ErrInvalidMapping, "argument %d of %s is nil", i, routine)
		}
	}

	return &CallDefinition{
		origin:  origin,
		callee:  callee,
		routine: routine,
		args:    args,
		static:  static,
	}, nil
}

func (c *CallDefinition) DescribeOrigin() string { return c.origin }

func (c *CallDefinition) Callee() Callee { return c.callee }

func (c *CallDefinition) Routine() string { return c.routine }

// Args returns the argument mappings. They are woken up by the owner of the
// call, not by the call itself.
func (c *CallDefinition) Args() []Mapping { return c.args }

// CollectColumns lists the columns of the argument mappings.
func (c *CallDefinition) CollectColumns() []column.Column {
	return collectAll(c.args...)
}

// WakeUp binds the locator and routines used to resolve the callee.
func (c *CallDefinition) WakeUp(rt Runtime) {
	rt = rt.normalize()
	c.locator = rt.Locator
	c.routines = rt.Routines
	c.allowed = rt.Conversions
}

func (c *CallDefinition) name() string {
	if c.callee.Kind == CalleeFree {
		return c.routine
	}

	return c.callee.String() + "." + c.routine
}

// Execute resolves the callee, builds the arguments from data and invokes
// the routine.
func (c *CallDefinition) Execute(ctx *hydration.Context, data FlatData) (any, error) {
	if c.routines == nil {
		return nil, failf(c.origin, ErrNotAwake, "call %s", c.name())
	}

	target, err := c.resolveCallee(ctx)
	if err != nil {
		return nil, err
	}

	if c.static {
		switch t := target.(type) {
		case nil, reflect.Type:
		case hydration.Placeholder:
			target = t.Type
		default:
			target = reflect.TypeOf(t)
		}
	}

	var args []any
	if v, ok := data.Lookup(Anonymous); ok {
		args = append(args, v)
		data = data.Without(Anonymous)
	}

	for _, arg := range c.args {
		v, err := arg.ResolveValue(ctx, data)
		if err != nil {
			return nil, err
		}

		args = append(args, v)
	}

	fn, err := c.lookup(target)
	if err != nil {
		return nil, err
	}

	sig, in, err := bind(fn, args, c.allowed)
	if err != nil {
		return nil, fmt.Errorf("%s: call %s: %w", c.origin, c.name(), err)
	}

	ctx.Logger().Debug("invoking routine", zap.String("routine", c.name()), zap.Int("args", len(in)))

	return sig.results(fn.Call(in))
}

func (c *CallDefinition) resolveCallee(ctx *hydration.Context) (any, error) {
	switch c.callee.Kind {
	case CalleeFree:
		return nil, nil

	case CalleeEntity:
		return ctx.Entity(), nil

	case CalleeSelf:
		return ctx.Self(), nil

	case CalleeParent:
		parent, ok := ctx.Parent()
		if !ok {
			return nil, failf(c.origin, ErrStackUnderflow, "call %s has no parent", c.name())
		}

		return parent, nil

	case CalleeService:
		svc, ok := c.locator.Get(c.callee.Name)
		if !ok {
			return nil, failf(c.origin, ErrServiceNotFound, "%q", c.callee.Name)
		}

		return svc, nil

	case CalleeType:
		return c.callee.Type, nil
	}

	v, err := ctx.GetRegistered(c.callee.Name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.origin, err)
	}

	return v, nil
}

// lookup finds the function to call: a free routine, a static routine of a
// type, or a method of an instance, in that order.
func (c *CallDefinition) lookup(target any) (reflect.Value, error) {
	switch t := target.(type) {
	case nil:
		if c.callee.Kind == CalleeFree {
			if fn, ok := c.routines.Get(c.routine); ok {
				return fn, nil
			}

			return reflect.Value{}, failf(c.origin, ErrUnknownRoutine, "%q", c.routine)
		}

		return reflect.Value{}, failf(c.origin, ErrUnknownRoutine, "%s: callee is nil", c.name())

	case reflect.Type:
		t = base(t)
		for _, name := range []string{t.String(), t.Name()} {
			if fn, ok := c.routines.Get(name + "." + c.routine); ok {
				return fn, nil
			}
		}

		if m := reflect.New(t).MethodByName(c.routine); m.IsValid() {
			return m, nil
		}

		return reflect.Value{}, failf(c.origin, ErrUnknownRoutine, "%s has no routine %s", typeStr(t), c.routine)
	}

	rv := reflect.ValueOf(target)
	if m := rv.MethodByName(c.routine); m.IsValid() {
		return m, nil
	}

	if rv.Kind() != reflect.Ptr {
		ptr := reflect.New(rv.Type())
		ptr.Elem().Set(rv)

		if m := ptr.MethodByName(c.routine); m.IsValid() {
			return m, nil
		}
	}

	return reflect.Value{}, failf(c.origin, ErrUnknownRoutine, "%T has no method %s", target, c.routine)
}
