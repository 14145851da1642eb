package node_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowgraph/column"
	"rowgraph/node"
)

func TestField(t *testing.T) {
	f := awake(field(t, "px", column.TypeString), nil, nil)
	ctx := newCtx()

	v, err := f.ResolveValue(ctx, node.FlatData{"px": "1"})
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	v, err = f.ResolveValue(ctx, node.FlatData{"py": "2"})
	require.NoError(t, err)
	assert.Nil(t, v)

	data, err := f.RevertValue(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, node.FlatData{"px": nil}, data)

	assert.Equal(t, []string{"px"}, column.Names(f.CollectColumns()))
	assert.NoError(t, f.AssertValue(ctx, nil, "anything"))
}

func TestField_RoundTrip(t *testing.T) {
	tests := []struct {
		typ    column.Type
		scalar any
	}{
		{column.TypeString, "abc"},
		{column.TypeInteger, int64(42)},
		{column.TypeFloat, 2.5},
		{column.TypeBoolean, true},
		{column.TypeDecimal, "10.25"},
		{column.TypeGUID, "1b4e28ba-2fa1-11d2-883f-0016d3cca427"},
		{column.TypeJSON, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			f := awake(field(t, "c", tt.typ), nil, nil)
			ctx := newCtx()

			v, err := f.ResolveValue(ctx, node.FlatData{"c": tt.scalar})
			require.NoError(t, err)

			again, err := f.ResolveValue(ctx, node.FlatData{"c": tt.scalar})
			require.NoError(t, err)
			assert.Equal(t, v, again)

			data, err := f.RevertValue(ctx, v)
			require.NoError(t, err)
			assert.Equal(t, node.FlatData{"c": tt.scalar}, data)
		})
	}
}

func TestField_Anonymous(t *testing.T) {
	f := awake(field(t, node.Anonymous, column.TypeInteger), nil, nil)

	v, err := f.ResolveValue(newCtx(), node.FlatData{node.Anonymous: "7"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
	assert.Empty(t, f.CollectColumns())
}

func TestField_Errors(t *testing.T) {
	_, err := node.NewField("test", column.Column{Name: "x"})
	require.ErrorIs(t, err, node.ErrInvalidMapping)

	f := field(t, "n", column.TypeInteger)
	_, err = f.ResolveValue(newCtx(), node.FlatData{"n": 1})
	require.ErrorIs(t, err, node.ErrNotAwake)

	f.WakeUp(node.Runtime{})
	_, err = f.ResolveValue(newCtx(), node.FlatData{"n": "many"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test.n")
}

type logger struct{ name string }

func TestService(t *testing.T) {
	main, other := &logger{"main"}, &logger{"main"}
	s := awake(svc(t, "log"), map[string]any{"log": main}, nil)
	ctx := newCtx()

	v, err := s.ResolveValue(ctx, node.FlatData{"log": "ignored"})
	require.NoError(t, err)
	assert.Same(t, main, v)

	data, err := s.RevertValue(ctx, main)
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Empty(t, s.CollectColumns())

	require.NoError(t, s.AssertValue(ctx, nil, main))
	require.ErrorIs(t, s.AssertValue(ctx, nil, other), node.ErrServiceMismatch)
	require.ErrorIs(t, s.AssertValue(ctx, nil, nil), node.ErrServiceMismatch)

	lax, err := node.NewService("test", "log", true)
	require.NoError(t, err)
	require.NoError(t, awake(lax, nil, nil).AssertValue(ctx, nil, other))
}

func TestService_NotFound(t *testing.T) {
	s := awake(svc(t, "missing"), nil, nil)

	_, err := s.ResolveValue(newCtx(), nil)
	require.ErrorIs(t, err, node.ErrServiceNotFound)

	_, err = node.NewService("test", "", false)
	require.ErrorIs(t, err, node.ErrInvalidMapping)
}

func TestNull(t *testing.T) {
	n := node.NewNull("test")

	v, err := n.ResolveValue(newCtx(), node.FlatData{"a": 1})
	require.NoError(t, err)
	assert.Nil(t, v)

	data, err := n.RevertValue(newCtx(), 5)
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.NoError(t, n.AssertValue(newCtx(), nil, 5))
	assert.Equal(t, "test", n.DescribeOrigin())
}

func TestConstant(t *testing.T) {
	c, err := node.NewConstant("test", `{"b": 1, "a": [true]}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":[true],"b":1}`, c.Literal())

	v, err := c.ResolveValue(newCtx(), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": []any{true}, "b": float64(1)}, v)

	data, err := c.RevertValue(newCtx(), v)
	require.NoError(t, err)
	assert.Empty(t, data)

	require.NoError(t, c.AssertValue(newCtx(), nil, map[string]any{"b": 1, "a": []bool{true}}))
	require.ErrorIs(t, c.AssertValue(newCtx(), nil, map[string]any{"b": 2}), node.ErrValueMismatch)
	require.ErrorIs(t, c.AssertValue(newCtx(), nil, func() {}), node.ErrValueMismatch)

	_, err = node.NewConstant("test", `{`)
	require.ErrorIs(t, err, node.ErrInvalidMapping)

	s, err := node.NewConstantValue("test", "draft")
	require.NoError(t, err)
	require.NoError(t, s.AssertValue(newCtx(), nil, "draft"))
}

func TestProxy(t *testing.T) {
	p, err := node.NewProxy("test", "home_", field(t, "street", column.TypeString))
	require.NoError(t, err)

	p = awake(p, nil, nil)
	assert.Equal(t, []string{"home_street"}, column.Names(p.CollectColumns()))

	v, err := p.ResolveValue(newCtx(), node.FlatData{"street": "Main"})
	require.NoError(t, err)
	assert.Equal(t, "Main", v)

	data, err := p.RevertValue(newCtx(), "Elm")
	require.NoError(t, err)
	assert.Equal(t, node.FlatData{"street": "Elm"}, data)

	_, err = node.NewProxy("test", "x_", nil)
	require.ErrorIs(t, err, node.ErrInvalidMapping)
}
