package hydration_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"rowgraph/hydration"
)

type order struct{ ID int }

func TestContext_Registry(t *testing.T) {
	ctx := hydration.New(&order{})

	assert.False(t, ctx.HasRegistered("a"))

	_, err := ctx.GetRegistered("a")
	require.ErrorIs(t, err, hydration.ErrUnknownRegistryKey)

	ctx.Register("a", 1)
	ctx.Register("a", 2)
	assert.True(t, ctx.HasRegistered("a"))

	v, err := ctx.GetRegistered("a")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestContext_Stack(t *testing.T) {
	entity := &order{ID: 1}
	ctx := hydration.New(entity)

	assert.Same(t, entity, ctx.Self())
	assert.Equal(t, 1, ctx.Depth())

	_, ok := ctx.Parent()
	assert.False(t, ok)

	_, err := ctx.Pop()
	require.ErrorIs(t, err, hydration.ErrStackUnderflow)
	require.ErrorIs(t, ctx.ReplaceTop("x"), hydration.ErrStackUnderflow)

	ctx.Push(hydration.Placeholder{Type: reflect.TypeFor[order]()})
	assert.Equal(t, "placeholder(hydration_test.order)", ctx.Self().(hydration.Placeholder).String())

	child := &order{ID: 2}
	require.NoError(t, ctx.ReplaceTop(child))
	assert.Same(t, child, ctx.Self())

	parent, ok := ctx.Parent()
	require.True(t, ok)
	assert.Same(t, entity, parent)

	top, err := ctx.Pop()
	require.NoError(t, err)
	assert.Same(t, child, top)
	assert.Same(t, entity, ctx.Self())
}

func TestContext_EntityType(t *testing.T) {
	ctx := hydration.New(&order{})
	assert.Equal(t, reflect.TypeFor[order](), ctx.EntityType())
	assert.NotNil(t, ctx.Logger())

	ctx = hydration.New(nil, hydration.WithEntityType(reflect.TypeFor[*order]()))
	assert.Equal(t, reflect.TypeFor[order](), ctx.EntityType())
	assert.Nil(t, ctx.Entity())
}

func TestContext_LogsReplacedRegistration(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := hydration.New(nil, hydration.WithLogger(zap.New(core)))

	ctx.Register("a", 1)
	assert.Equal(t, 0, logs.Len())

	ctx.Register("a", 2)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "registry entry replaced", logs.All()[0].Message)
}
