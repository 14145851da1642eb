package sqlite_test

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"rowgraph/codec"
	"rowgraph/column"
	"rowgraph/driver"
	"rowgraph/internal/mapping"
	"rowgraph/internal/store/sqlite"
	"rowgraph/node"
)

func ticketTable(t *testing.T) sqlite.Table {
	t.Helper()

	id := column.New("id", column.TypeInteger)
	id.Nullable = false

	title := column.New("title", column.TypeString)
	title.Length = 80

	table, err := sqlite.NewTable("ticket", "", []column.Column{
		id,
		title,
		column.New("done", column.TypeBoolean),
		column.New("labels", column.TypeJSON),
		column.New("weight", column.TypeFloat),
	})
	require.NoError(t, err)

	return table
}

func TestDDL(t *testing.T) {
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "ticket" (
	"id" INTEGER NOT NULL,
	"title" VARCHAR(80),
	"done" INTEGER,
	"labels" TEXT,
	"weight" REAL,
	PRIMARY KEY ("id")
)`, sqlite.DDL(ticketTable(t)))
}

func TestNewTable_Errors(t *testing.T) {
	_, err := sqlite.NewTable("", "", nil)
	require.ErrorIs(t, err, sqlite.ErrInvalidTable)

	_, err = sqlite.NewTable("ticket", "uuid", []column.Column{column.New("id", column.TypeInteger)})
	require.ErrorIs(t, err, sqlite.ErrInvalidTable)
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.DebugLevel)

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "db", "rows.db"), zap.New(core))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	table := ticketTable(t)
	require.NoError(t, store.CreateTable(ctx, table))
	require.NoError(t, store.CreateTable(ctx, table))

	require.NoError(t, store.Save(ctx, table, node.FlatData{
		"id":     int64(1),
		"title":  "Broken",
		"done":   int64(0),
		"labels": `["ui"]`,
		"extra":  "ignored",
	}))

	row, err := store.Load(ctx, table, 1)
	require.NoError(t, err)
	assert.Equal(t, node.FlatData{
		"id":     int64(1),
		"title":  "Broken",
		"done":   int64(0),
		"labels": `["ui"]`,
		"weight": nil,
	}, row)

	row["title"] = "changed by caller"

	cached, err := store.Load(ctx, table, 1)
	require.NoError(t, err)
	assert.Equal(t, "Broken", cached["title"])
	assert.Equal(t, 1, logs.FilterMessage("row cache hit").Len())

	require.NoError(t, store.Save(ctx, table, node.FlatData{"id": int64(1), "title": "Fixed", "done": int64(1)}))

	row, err = store.Load(ctx, table, 1)
	require.NoError(t, err)
	assert.Equal(t, "Fixed", row["title"])
	assert.Equal(t, int64(1), row["done"])
	assert.Nil(t, row["labels"])
	assert.Equal(t, 1, logs.FilterMessage("row cache hit").Len())

	_, err = store.Load(ctx, table, 2)
	require.ErrorIs(t, err, sqlite.ErrNotFound)

	err = store.Save(ctx, table, node.FlatData{"title": "no key"})
	require.ErrorIs(t, err, sqlite.ErrMissingKey)
}

type Ticket struct {
	ID     int64
	Title  string
	Done   bool
	Labels []any
}

func TestStore_WithDriver(t *testing.T) {
	ctx := context.Background()

	mf, err := mapping.Parse([]byte(`
dialect: sqlite
entities:
  Ticket:
    fields:
      id: {column: id, column_type: integer, required: true}
      title: title
      done: {column: done, column_type: boolean}
      labels: {kind: list, column: labels, entry: {kind: field}}
`))
	require.NoError(t, err)

	entities, diags := mapping.Build(mf, mapping.Options{Types: mapping.NewTypeRegistry(reflect.TypeFor[Ticket]())})
	require.NoError(t, diags.Error())

	dialect, err := codec.ParseDialect(mf.Dialect)
	require.NoError(t, err)

	d, err := driver.New(entities, node.Runtime{Dialect: dialect}, nil)
	require.NoError(t, err)

	store, err := sqlite.Open("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	e := entities[0]
	table, err := sqlite.NewTable(e.Table, "id", e.Columns())
	require.NoError(t, err)
	require.NoError(t, store.CreateTable(ctx, table))

	original := &Ticket{ID: 9, Title: "Export", Done: true, Labels: []any{"csv", "pdf"}}

	row, err := d.Dump("Ticket", original)
	require.NoError(t, err)
	assert.Equal(t, int64(1), row["done"])
	require.NoError(t, store.Save(ctx, table, row))

	stored, err := store.Load(ctx, table, original.ID)
	require.NoError(t, err)

	loaded := &Ticket{}
	require.NoError(t, d.Load("Ticket", loaded, stored))
	assert.Equal(t, original, loaded)
	assert.True(t, d.Check("Ticket", loaded, stored).IsValid())
}

type Stop struct{ Street string }

type Route struct {
	ID       int64
	From, To *Stop
}

func TestStore_ProxiedColumns(t *testing.T) {
	ctx := context.Background()

	mf, err := mapping.Parse([]byte(`
imports:
  stop:
    kind: object
    type: Stop
    fields: {street: street}
entities:
  Route:
    fields:
      id: {column: id, column_type: integer, required: true}
      from: {kind: proxy, import: stop, prefix: from_}
      to: {kind: proxy, import: stop, prefix: to_}
`))
	require.NoError(t, err)

	types := mapping.NewTypeRegistry(reflect.TypeFor[Route](), reflect.TypeFor[Stop]())
	entities, diags := mapping.Build(mf, mapping.Options{Types: types})
	require.NoError(t, diags.Error())

	d, err := driver.New(entities, node.Runtime{Dialect: codec.DialectSQLite}, nil)
	require.NoError(t, err)

	store, err := sqlite.Open("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	e := entities[0]
	table, err := sqlite.NewTable(e.Table, "id", e.Columns())
	require.NoError(t, err)
	require.NoError(t, store.CreateTable(ctx, table))

	original := &Route{ID: 2, From: &Stop{Street: "Main St"}, To: &Stop{Street: "Elm St"}}

	row, err := d.Dump("Route", original)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, table, row))

	stored, err := store.Load(ctx, table, original.ID)
	require.NoError(t, err)
	assert.Equal(t, "Main St", stored["from_street"])
	assert.Equal(t, "Elm St", stored["to_street"])

	loaded := &Route{}
	require.NoError(t, d.Load("Route", loaded, stored))
	assert.Equal(t, original, loaded)
}
