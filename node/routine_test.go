package node_test

import (
	"fmt"
	"reflect"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowgraph/column"
	"rowgraph/node"
)

type moreThanError interface {
	error
	More()
}

func empty()                          { panic("not implemented") }
func wrong(int) (string, error, bool) { panic("not implemented") }

func full(int) (string, bool, error)          { panic("not implemented") }
func customError(int) (string, moreThanError) { panic("not implemented") }
func variadic(string, ...int) error           { panic("not implemented") }

func ExampleParseSignature() {
	for _, fn := range []any{full, strconv.Itoa, strconv.Atoi, customError, empty, variadic} {
		sig, err := node.ParseSignature(reflect.TypeOf(fn))
		fmt.Println(err, len(sig.In), sig.Variadic, sig.Out, sig.HasBool, sig.HasErr)
	}

	_, err := node.ParseSignature(reflect.TypeOf(wrong))
	fmt.Println(err)

	_, err = node.ParseSignature(reflect.TypeOf(42))
	fmt.Println(err)

	// Output:
	// <nil> 1 false string true true
	// <nil> 1 false string false false
	// <nil> 1 false int false true
	// <nil> 1 false string false true
	// <nil> 0 false <nil> false false
	// <nil> 2 true <nil> false true
	// provided function is not a recognizable routine
	// provided routine is not a function
}

func TestSignature_Accepts(t *testing.T) {
	sig, err := node.ParseSignature(reflect.TypeOf(variadic))
	require.NoError(t, err)

	assert.False(t, sig.Accepts(0))
	assert.True(t, sig.Accepts(1))
	assert.True(t, sig.Accepts(3))

	sig, err = node.ParseSignature(reflect.TypeOf(strconv.Itoa))
	require.NoError(t, err)

	assert.False(t, sig.Accepts(0))
	assert.True(t, sig.Accepts(1))
	assert.False(t, sig.Accepts(2))
}

func TestRoutines(t *testing.T) {
	r := node.NewRoutines()

	require.NoError(t, r.Add("itoa", strconv.Itoa))
	require.ErrorIs(t, r.Add("nil", nil), node.ErrRoutineIsNotAFunction)
	require.ErrorIs(t, r.Add("wrong", wrong), node.ErrIsNotARoutine)

	var nilFunc func()
	require.ErrorIs(t, r.Add("nil func", nilFunc), node.ErrRoutineIsNotAFunction)

	assert.Panics(t, func() { r.MustAdd("bad", 1) })

	r.MustAdd("atoi", strconv.Atoi)
	assert.True(t, r.Has("itoa"))
	assert.False(t, r.Has("bad"))
	assert.Equal(t, []string{"atoi", "itoa"}, r.Names())
}

type types map[string]reflect.Type

func (t types) ResolveType(name string) (reflect.Type, bool) {
	typ, ok := t[name]
	return typ, ok
}

func ExampleParseCallee() {
	known := types{"Money": reflect.TypeFor[Money]()}

	for _, selector := range []string{"", "root", "entity", "this", "Self", "parent", "@clock", "Money", "customer"} {
		c := node.ParseCallee(selector, known)
		fmt.Printf("%q %s %q\n", selector, c.Kind, c.String())
	}

	// Output:
	// "" free ""
	// "root" entity "entity"
	// "entity" entity "entity"
	// "this" self "self"
	// "Self" self "self"
	// "parent" parent "parent"
	// "@clock" service "@clock"
	// "Money" type "rowgraph/node_test.Money"
	// "customer" registry "customer"
}

func TestCall_Execute(t *testing.T) {
	routines := node.NewRoutines().MustAdd("sum", func(base int64, rest ...int) (int64, bool) {
		for _, n := range rest {
			base += int64(n)
		}

		return base, base != 0
	})

	a, b := field(t, "a", column.TypeInteger), field(t, "b", column.TypeInteger)
	c := call(t, node.Callee{}, "sum", false, a, b)

	rt := node.Runtime{Routines: routines}
	c.WakeUp(rt)
	a.WakeUp(rt)
	b.WakeUp(rt)

	v, err := c.Execute(newCtx(), node.FlatData{node.Anonymous: 1, "a": 2, "b": "3"})
	require.NoError(t, err)
	assert.Equal(t, int64(6), v)

	v, err = c.Execute(newCtx(), node.FlatData{"a": 0, "b": 0})
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = c.Execute(newCtx(), node.FlatData{node.Anonymous: "many"})
	require.ErrorIs(t, err, node.ErrTypeMismatch)

	assert.Equal(t, "sum", c.Routine())
	assert.Equal(t, []string{"a", "b"}, column.Names(c.CollectColumns()))
}

func TestCall_AnonymousIsConsumed(t *testing.T) {
	routines := node.NewRoutines().MustAdd("pair", func(first, second any) []any { return []any{first, second} })

	anon := field(t, node.Anonymous, column.TypeString)
	c := call(t, node.Callee{}, "pair", false, anon)

	rt := node.Runtime{Routines: routines}
	c.WakeUp(rt)
	anon.WakeUp(rt)

	v, err := c.Execute(newCtx(), node.FlatData{node.Anonymous: "x"})
	require.NoError(t, err)
	assert.Equal(t, []any{"x", nil}, v)
}

func TestCall_Errors(t *testing.T) {
	_, err := node.NewCall("test", node.Callee{}, "", nil, false)
	require.ErrorIs(t, err, node.ErrInvalidMapping)

	_, err = node.NewCall("test", node.Callee{}, "f", []node.Mapping{nil}, false)
	require.ErrorIs(t, err, node.ErrInvalidMapping)

	_, err = node.NewCall("test", node.Callee{Kind: node.CalleeType, Name: "Ghost"}, "f", nil, false)
	require.ErrorIs(t, err, node.ErrInvalidMapping)

	c := call(t, node.ParseCallee("parent", nil), "f", false)

	_, err = c.Execute(newCtx(), nil)
	require.ErrorIs(t, err, node.ErrNotAwake)

	c.WakeUp(node.Runtime{})

	_, err = c.Execute(newCtx(), nil)
	require.ErrorIs(t, err, node.ErrStackUnderflow)

	free := call(t, node.Callee{}, "nowhere", false)
	free.WakeUp(node.Runtime{})

	_, err = free.Execute(newCtx(), nil)
	require.ErrorIs(t, err, node.ErrUnknownRoutine)

	self := call(t, node.ParseCallee("self", nil), "Anything", false)
	self.WakeUp(node.Runtime{})

	_, err = self.Execute(newCtx(), nil)
	require.ErrorIs(t, err, node.ErrUnknownRoutine)
}
