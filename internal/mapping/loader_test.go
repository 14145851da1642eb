package mapping_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowgraph/internal/mapping"
)

const shorthandYAML = `
entities:
  OrderLine:
    fields:
      sku: sku_code
      qty: {column: qty, column_type: integer}
      price:
        kind: object
        type: Money
        column: price
        factory: Money.Parse
        serializer:
          callee: self
          routine: String
      total:
        kind: object
        type: Money
        factory:
          routine: sum
          args: [qty, {column: unit_price, column_type: decimal}]
`

func TestParse_Defaults(t *testing.T) {
	mf, err := mapping.Parse([]byte(shorthandYAML))
	require.NoError(t, err)

	assert.Equal(t, "1", mf.Version)
	require.Len(t, mf.Entities, 1)

	entity := mf.Entities[0]
	assert.Equal(t, "OrderLine", entity.Name)
	assert.Equal(t, "OrderLine", entity.Type)
	assert.Equal(t, "order_line", entity.Table)
	assert.Equal(t, []string{"sku", "qty", "price", "total"}, entity.Fields.Names())

	sku, ok := entity.Fields.Get("sku")
	require.True(t, ok)
	assert.Equal(t, mapping.KindField, sku.Kind)
	assert.Equal(t, "sku_code", sku.Column)

	qty, _ := entity.Fields.Get("qty")
	assert.Equal(t, mapping.KindField, qty.Kind)
	assert.Equal(t, "integer", qty.ColumnType)

	price, _ := entity.Fields.Get("price")
	require.NotNil(t, price.Factory)
	assert.Equal(t, mapping.CallSpec{Callee: "Money", Routine: "Parse"}, *price.Factory)
	assert.Equal(t, "self", price.Serializer.Callee)
	assert.Equal(t, "String", price.Serializer.Routine)

	total, _ := entity.Fields.Get("total")
	require.Len(t, total.Factory.Args, 2)
	assert.Equal(t, mapping.KindField, total.Factory.Args[0].Kind)
	assert.Equal(t, "qty", total.Factory.Args[0].Column)
	assert.Equal(t, mapping.KindField, total.Factory.Args[1].Kind)
	assert.Equal(t, "decimal", total.Factory.Args[1].ColumnType)

	_, ok = entity.Fields.Get("missing")
	assert.False(t, ok)
}

func TestParseCallShorthand(t *testing.T) {
	tests := []struct {
		in       string
		expected mapping.CallSpec
	}{
		{"build", mapping.CallSpec{Routine: "build"}},
		{"self.Total", mapping.CallSpec{Callee: "self", Routine: "Total"}},
		{"@clock.Now", mapping.CallSpec{Callee: "@clock", Routine: "Now"}},
		{"shop.Money.Parse", mapping.CallSpec{Callee: "shop.Money", Routine: "Parse"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, mapping.ParseCallShorthand(tt.in))
		})
	}
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Order":      "order",
		"OrderLine":  "order_line",
		"HTTPServer": "http_server",
		"ID":         "id",
		"Item2Box":   "item2_box",
		"already_ok": "already_ok",
	}

	for in, expected := range tests {
		assert.Equal(t, expected, mapping.SnakeCase(in), in)
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := mapping.Parse([]byte("entities: ["))
	require.Error(t, err)

	_, err = mapping.Parse([]byte("entities:\n  Order:\n    fields:\n      id: [a, b]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected column name or node object")

	_, err = mapping.Parse([]byte("entities:\n  Order:\n    fields: [id]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected mapping")
}

func TestWriteFile_RoundTrip(t *testing.T) {
	mf, err := mapping.Parse([]byte(shorthandYAML))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "mapping.yaml")
	require.NoError(t, mapping.WriteFile(mf, path))

	loaded, err := mapping.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, mf, loaded)

	_, err = mapping.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
