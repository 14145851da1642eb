package node

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"rowgraph/codec"
	"rowgraph/column"
	"rowgraph/hydration"
)

// Choice is a discriminated union: the determinator column names the one
// alternative that maps the value.
type Choice struct {
	origin       string
	determinator column.Column
	choices      []KeyedMapping
	byKey        map[string]Mapping

	codec   codec.Codec
	dialect codec.Dialect
}

var _ Mapping = (*Choice)(nil)

// NewChoice creates a union over the given alternatives. A determinator
// without a type is created as a nullable string column.
func NewChoice(origin string, determinator column.Column, choices []KeyedMapping) (*Choice, error) {
	if determinator.Name == "" {
		return nil, failf(origin, ErrInvalidMapping, "choice without determinator column")
	}

	if !determinator.Type.IsValid() {
		determinator = column.New(determinator.Name, column.TypeString)
	}

	if len(choices) == 0 {
		return nil, failf(origin, ErrInvalidMapping, "choice %q without alternatives", determinator.Name)
	}

	if err := validateKeyed(origin, "choice", choices); err != nil {
		return nil, err
	}

	byKey := make(map[string]Mapping, len(choices))
	for _, c := range choices {
		if c.Key == "" {
			return nil, failf(origin, ErrInvalidMapping, "choice %q has an empty key", determinator.Name)
		}

		byKey[c.Key] = c.Mapping
	}

	return &Choice{
		origin:       origin,
		determinator: determinator,
		choices:      choices,
		byKey:        byKey,
	}, nil
}

func (c *Choice) DescribeOrigin() string { return c.origin }

func (c *Choice) Determinator() column.Column { return c.determinator }

func (c *Choice) Choices() []KeyedMapping { return c.choices }

func (c *Choice) CollectColumns() []column.Column {
	lists := make([][]column.Column, 0, len(c.choices)+1)
	lists = append(lists, []column.Column{c.determinator})

	for _, choice := range c.choices {
		lists = append(lists, choice.Mapping.CollectColumns())
	}

	return column.Merge(lists...)
}

// selected returns the alternative named by the determinator, or nil when the
// determinator is empty or absent.
func (c *Choice) selected(data FlatData) (Mapping, error) {
	raw, ok := data.Lookup(c.determinator.Name)
	if !ok || raw == nil {
		return nil, nil
	}

	var key string

	switch v := raw.(type) {
	case string:
		key = v
	case []byte:
		key = string(v)
	default:
		key = fmt.Sprint(v)
	}

	if key == "" {
		return nil, nil
	}

	choice, ok := c.byKey[key]
	if !ok {
		return nil, failf(c.origin, ErrInvalidChoice, "%q is not a choice of %q", key, c.determinator.Name)
	}

	return choice, nil
}

func (c *Choice) ResolveValue(ctx *hydration.Context, data FlatData) (any, error) {
	choice, err := c.selected(data)
	if err != nil || choice == nil {
		return nil, err
	}

	return choice.ResolveValue(ctx, data)
}

// RevertValue resolves every alternative with empty data, in declaration
// order, and picks the first one equal to value. Alternatives depending on
// row data therefore never match.
func (c *Choice) RevertValue(ctx *hydration.Context, value any) (FlatData, error) {
	if c.codec == nil {
		return nil, failf(c.origin, ErrNotAwake, "choice %q", c.determinator.Name)
	}

	for _, choice := range c.choices {
		candidate, err := choice.Mapping.ResolveValue(ctx, FlatData{})
		if err != nil {
			ctx.Logger().Debug("choice skipped on revert",
				zap.String("origin", c.origin),
				zap.String("choice", choice.Key),
				zap.Error(err))

			continue
		}

		if !reflect.DeepEqual(candidate, value) {
			continue
		}

		out, err := choice.Mapping.RevertValue(ctx, value)
		if err != nil {
			return nil, err
		}

		key, err := c.codec.ToStorage(c.determinator.Type, c.dialect, choice.Key)
		if err != nil {
			return nil, fmt.Errorf("%s: determinator %q: %w", c.origin, c.determinator.Name, err)
		}

		out = out.Clone()
		out[c.determinator.Name] = key

		return out, nil
	}

	return FlatData{c.determinator.Name: nil}, nil
}

func (c *Choice) AssertValue(ctx *hydration.Context, data FlatData, actual any) error {
	choice, err := c.selected(data)
	if err != nil || choice == nil {
		return err
	}

	return choice.AssertValue(ctx, data, actual)
}

func (c *Choice) WakeUp(rt Runtime) {
	rt = rt.normalize()
	c.codec = rt.Codec
	c.dialect = rt.Dialect

	for _, choice := range c.choices {
		choice.Mapping.WakeUp(rt)
	}
}
