package node_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rowgraph/column"
	"rowgraph/hydration"
	"rowgraph/node"
	"rowgraph/service"
)

func awake[M node.Mapping](m M, services map[string]any, routines *node.Routines) M {
	m.WakeUp(node.Runtime{Locator: service.NewMap(services), Routines: routines})
	return m
}

func field(t *testing.T, name string, typ column.Type) *node.Field {
	t.Helper()

	f, err := node.NewField("test."+name, column.New(name, typ))
	require.NoError(t, err)

	return f
}

func svc(t *testing.T, id string) *node.Service {
	t.Helper()

	s, err := node.NewService("test."+id, id, false)
	require.NoError(t, err)

	return s
}

func newCtx() *hydration.Context { return hydration.New(nil) }

// spy records whether it was asked to resolve.
type spy struct {
	node.Null
	resolved int
}

func (s *spy) ResolveValue(*hydration.Context, node.FlatData) (any, error) {
	s.resolved++
	return "inner", nil
}

func (s *spy) CollectColumns() []column.Column {
	return []column.Column{column.New("spied", column.TypeString)}
}
