package mapping_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowgraph/internal/diagnostic"
	"rowgraph/internal/mapping"
)

func codes(list []diagnostic.Diagnostic) []string {
	out := make([]string, 0, len(list))
	for _, d := range list {
		out = append(out, d.Code)
	}

	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		fields   string
		errors   []string
		warnings []string
	}{
		{
			name:   "unknown kind",
			fields: "x: {kind: blob}",
			errors: []string{"unknown_kind"},
		},
		{
			name:   "invalid column type",
			fields: "x: {column: x, column_type: money}",
			errors: []string{"invalid_column_type"},
		},
		{
			name:   "service without id",
			fields: "x: {kind: service}",
			errors: []string{"missing_service"},
		},
		{
			name:   "list without entry",
			fields: "x: {kind: list}",
			errors: []string{"missing_entry"},
		},
		{
			name:   "empty array and choice",
			fields: "x: {kind: array}\n      y: {kind: choice}",
			errors: []string{"missing_entries", "missing_choices"},
		},
		{
			name:   "nullable without inner",
			fields: "x: {kind: nullable}",
			errors: []string{"missing_inner"},
		},
		{
			name:   "object problems",
			fields: "x: {kind: object}\n      y: {kind: object, type: Nope}\n      z: {kind: object, type: Money, serializer: formatMoney}",
			errors: []string{"missing_type", "unknown_type", "serializer_without_column"},
		},
		{
			name:     "reference with fields and factory",
			fields:   "x: {kind: object, type: Customer, ref: c, factory: formatMoney, fields: {name: n}}",
			warnings: []string{"ref_with_fields", "ref_with_factory"},
		},
		{
			name:     "unknown routines",
			fields:   "x: {kind: object, type: Money, factory: nope}\n      y: {kind: object, type: Money, factory: Money.Nope}",
			warnings: []string{"unknown_routine", "unknown_routine"},
		},
		{
			name:   "call without routine",
			fields: "x: {kind: object, type: Money, factory: {callee: self}}",
			errors: []string{"missing_routine"},
		},
		{
			name:   "proxy problems",
			fields: "x: {kind: proxy}\n      y: {kind: proxy, import: nope}",
			errors: []string{"missing_import", "unknown_import"},
		},
		{
			name:     "anonymous field with column",
			fields:   "x: {column: x, anonymous: true}",
			warnings: []string{"anonymous_with_column"},
		},
		{
			name:   "valid",
			fields: "x: x\n      y: {kind: constant, value: 3}\n      z: {kind: object, type: Money, factory: Money.Parse}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mf, err := mapping.Parse([]byte("entities:\n  Order:\n    fields:\n      " + tt.fields + "\n"))
			require.NoError(t, err)

			res := mapping.Validate(mf, orderOptions())
			assert.Equal(t, nonNil(tt.errors), codes(res.Errors))
			assert.Equal(t, nonNil(tt.warnings), codes(res.Warnings))
		})
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}

func TestValidate_File(t *testing.T) {
	res := mapping.Validate(nil, mapping.Options{})
	assert.Equal(t, []string{"mapping_is_nil"}, codes(res.Errors))

	mf, err := mapping.Parse([]byte(`
imports:
  a: {kind: proxy, import: b}
  b: {kind: proxy, import: a}
  c: {kind: proxy, import: a}
entities:
  Order:
    fields: {}
  Route:
    type: Order
    table: order
    fields: {x: x}
`))
	require.NoError(t, err)

	res = mapping.Validate(mf, orderOptions())
	assert.Equal(t, []string{"import_cycle", "import_cycle"}, codes(res.Errors))
	assert.Equal(t, "imports.a", res.Errors[0].Path)
	assert.Equal(t, "imports.b", res.Errors[1].Path)
	assert.Equal(t, []string{"empty_entity", "duplicate_table"}, codes(res.Warnings))

	mf, err = mapping.Parse([]byte("entities:\n  Order:\n    fields: {x: {kind: choise}}\n"))
	require.NoError(t, err)

	res = mapping.Validate(mf, orderOptions())
	require.Len(t, res.Errors, 1)
	assert.Equal(t, []string{"choice"}, res.Errors[0].Suggestions)
	assert.Equal(t, "[Order] Order.x: [unknown_kind] unknown node kind \"choise\"", res.Errors[0].String())

	mf, err = mapping.Parse([]byte("entities:\n  Order:\n    fields: {x: {kind: object, type: Custmer}}\n"))
	require.NoError(t, err)

	res = mapping.Validate(mf, orderOptions())
	require.Len(t, res.Errors, 1)
	assert.Equal(t, []string{"Customer"}, res.Errors[0].Suggestions)

	res = mapping.Validate(&mapping.MappingFile{}, mapping.Options{})
	assert.Equal(t, []string{"no_entities"}, codes(res.Warnings))
}
