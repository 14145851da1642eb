package node_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowgraph/codec"
	"rowgraph/column"
	"rowgraph/node"
	"rowgraph/service"
)

func TestNullable_FalsyIndicator(t *testing.T) {
	inner := &spy{}

	n, err := node.NewNullable("test", inner, column.Column{Name: "has_amount"})
	require.NoError(t, err)

	n = awake(n, nil, nil)

	for _, data := range []node.FlatData{
		{},
		{"has_amount": nil},
		{"has_amount": false},
		{"has_amount": 0},
		{"has_amount": int64(0)},
		{"has_amount": 0.0},
		{"has_amount": ""},
		{"has_amount": "0"},
		{"has_amount": []byte("0")},
	} {
		v, err := n.ResolveValue(newCtx(), data)
		require.NoError(t, err)
		assert.Nil(t, v)
	}

	assert.Zero(t, inner.resolved)

	v, err := n.ResolveValue(newCtx(), node.FlatData{"has_amount": int64(1)})
	require.NoError(t, err)
	assert.Equal(t, "inner", v)
	assert.Equal(t, 1, inner.resolved)
}

func TestNullable_Explicit(t *testing.T) {
	n, err := node.NewNullable("test", field(t, "amount", column.TypeInteger), column.Column{Name: "has_amount"})
	require.NoError(t, err)

	n = awake(n, nil, nil)
	ctx := newCtx()

	v, err := n.ResolveValue(ctx, node.FlatData{"has_amount": true, "amount": "5"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	data, err := n.RevertValue(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, node.FlatData{"has_amount": false}, data)

	data, err = n.RevertValue(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, node.FlatData{"has_amount": true, "amount": int64(7)}, data)

	assert.Equal(t, []string{"has_amount", "amount"}, column.Names(n.CollectColumns()))
	assert.Equal(t, column.TypeBoolean, n.Indicator().Type)
}

func TestNullable_ExplicitDialect(t *testing.T) {
	n, err := node.NewNullable("test", field(t, "amount", column.TypeInteger), column.Column{Name: "has_amount"})
	require.NoError(t, err)

	n.WakeUp(node.Runtime{Dialect: codec.DialectSQLite, Locator: service.NewMap(nil)})

	data, err := n.RevertValue(newCtx(), nil)
	require.NoError(t, err)
	assert.Equal(t, node.FlatData{"has_amount": int64(0)}, data)
}

func TestNullable_Implicit(t *testing.T) {
	n, err := node.NewNullable("test", field(t, "amount", column.TypeInteger), column.Column{})
	require.NoError(t, err)

	n = awake(n, nil, nil)
	assert.Equal(t, "amount", n.Indicator().Name)
	assert.Equal(t, []string{"amount"}, column.Names(n.CollectColumns()))

	v, err := n.ResolveValue(newCtx(), node.FlatData{"amount": 0})
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = n.ResolveValue(newCtx(), node.FlatData{"amount": 3})
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	data, err := n.RevertValue(newCtx(), nil)
	require.NoError(t, err)
	assert.Equal(t, node.FlatData{"amount": false}, data)

	data, err = n.RevertValue(newCtx(), int64(3))
	require.NoError(t, err)
	assert.Equal(t, node.FlatData{"amount": int64(3)}, data)
}

func TestNullable_Invalid(t *testing.T) {
	_, err := node.NewNullable("test", node.NewNull("null"), column.Column{})
	require.ErrorIs(t, err, node.ErrInvalidMapping)

	_, err = node.NewNullable("test", nil, column.Column{Name: "flag"})
	require.ErrorIs(t, err, node.ErrInvalidMapping)
}
