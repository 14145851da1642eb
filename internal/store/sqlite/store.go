// Package sqlite is a reference row persister: it derives tables from the
// columns of a mapping tree and stores one FlatData per row.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"rowgraph/column"
	"rowgraph/internal/logging"
	"rowgraph/node"
)

const memoryPath = ":memory:"

var (
	ErrNotFound     = errors.New("row not found")
	ErrMissingKey   = errors.New("missing key column")
	ErrInvalidTable = errors.New("invalid table")
)

// Table describes a storage table: its name, the primary key column and the
// columns collected from a mapping tree.
type Table struct {
	Name    string
	Key     string
	Columns []column.Column
}

// NewTable checks that key is one of cols. An empty key selects the first
// column.
func NewTable(name, key string, cols []column.Column) (Table, error) {
	if name == "" || len(cols) == 0 {
		return Table{}, fmt.Errorf("%w: %q needs a name and columns", ErrInvalidTable, name)
	}

	if key == "" {
		key = cols[0].Name
	}

	for _, c := range cols {
		if c.Name == key {
			return Table{Name: name, Key: key, Columns: cols}, nil
		}
	}

	return Table{}, fmt.Errorf("%w: %q has no key column %q", ErrInvalidTable, name, key)
}

// Store persists rows in SQLite. A single-slot cache holds the row read
// last; every write invalidates it.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger

	mu     sync.Mutex
	cached *cachedRow
}

type cachedRow struct {
	table string
	id    string
	data  node.FlatData
}

// Open opens or creates the database at path. An empty path opens a private
// in-memory database.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		path = memoryPath
	}

	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// one connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)

	return &Store{db: db, path: path, logger: logging.OrNop(logger)}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// CreateTable creates the table unless it exists.
func (s *Store) CreateTable(ctx context.Context, t Table) error {
	ddl := DDL(t)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", t.Name, err)
	}

	s.logger.Debug("table created", zap.String("table", t.Name), zap.Int("columns", len(t.Columns)))

	return nil
}

// DDL renders the CREATE TABLE statement of t.
func DDL(t Table) string {
	var sb strings.Builder

	sb.WriteString("CREATE TABLE IF NOT EXISTS ")
	sb.WriteString(quote(t.Name))
	sb.WriteString(" (\n")

	for _, c := range t.Columns {
		sb.WriteString("\t")
		sb.WriteString(quote(c.Name))
		sb.WriteByte(' ')
		sb.WriteString(sqlType(c))

		if !c.Nullable || c.Name == t.Key {
			sb.WriteString(" NOT NULL")
		}

		sb.WriteString(",\n")
	}

	sb.WriteString("\tPRIMARY KEY (")
	sb.WriteString(quote(t.Key))
	sb.WriteString(")\n)")

	return sb.String()
}

func sqlType(c column.Column) string {
	switch c.Type {
	case column.TypeInteger, column.TypeSmallInt, column.TypeBigInt, column.TypeBoolean:
		return "INTEGER"
	case column.TypeFloat:
		return "REAL"
	case column.TypeBinary:
		return "BLOB"
	case column.TypeString:
		if c.Length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", c.Length)
		}
	}

	return "TEXT"
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func cacheKey(id any) string {
	if b, ok := id.([]byte); ok {
		return string(b)
	}

	return fmt.Sprint(id)
}

// Load reads the row whose key column equals id.
func (s *Store) Load(ctx context.Context, t Table, id any) (node.FlatData, error) {
	key := cacheKey(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.cached.table == t.Name && s.cached.id == key {
		s.logger.Debug("row cache hit", zap.String("table", t.Name), zap.String("id", key))
		return s.cached.data.Clone(), nil
	}

	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = quote(c.Name)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", strings.Join(names, ", "), quote(t.Name), quote(t.Key))

	values := make([]any, len(t.Columns))
	dest := make([]any, len(t.Columns))

	for i := range values {
		dest[i] = &values[i]
	}

	err := s.db.QueryRowContext(ctx, query, id).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, t.Name, key)
	}

	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t.Name, err)
	}

	data := make(node.FlatData, len(t.Columns))
	for i, c := range t.Columns {
		data[c.Name] = values[i]
	}

	s.cached = &cachedRow{table: t.Name, id: key, data: data}

	return data.Clone(), nil
}

// Save inserts or replaces the row of data. Columns of t missing from data
// are stored as NULL; keys of data that are not columns of t are ignored.
func (s *Store) Save(ctx context.Context, t Table, data node.FlatData) (retErr error) {
	id, ok := data[t.Key]
	if !ok || id == nil {
		return fmt.Errorf("%w: %s.%s", ErrMissingKey, t.Name, t.Key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = nil

	names := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	updates := make([]string, 0, len(t.Columns))
	args := make([]any, len(t.Columns))

	for i, c := range t.Columns {
		names[i] = quote(c.Name)
		marks[i] = "?"
		args[i] = data[c.Name]

		if c.Name != t.Key {
			updates = append(updates, names[i]+"=excluded."+names[i])
		}
	}

	stmt := fmt.Sprintf("INSERT INTO %s(%s) VALUES(%s) ON CONFLICT(%s) ",
		quote(t.Name), strings.Join(names, ","), strings.Join(marks, ","), quote(t.Key))

	if len(updates) == 0 {
		stmt += "DO NOTHING"
	} else {
		stmt += "DO UPDATE SET " + strings.Join(updates, ",")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert %s: %w", t.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Debug("row saved", zap.String("table", t.Name), zap.String("id", cacheKey(id)))

	return nil
}
