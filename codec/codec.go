// Package codec converts between native Go values and storage scalars for a
// given logical column type and SQL dialect.
package codec

import (
	"bytes"
	"database/sql/driver"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rowgraph/column"
	"rowgraph/primitive"
)

var ErrUnsupported = errors.New("unsupported conversion")

// Codec converts a native value to and from its storage scalar.
// A nil value passes through both directions unchanged.
type Codec interface {
	ToNative(t column.Type, d Dialect, scalar any) (any, error)
	ToStorage(t column.Type, d Dialect, value any) (any, error)
}

type Dialect int

const (
	DialectGeneric Dialect = iota
	DialectSQLite
	DialectPostgres
	DialectMySQL
)

func (d Dialect) String() string {
	switch d {
	case DialectSQLite:
		return "sqlite"
	case DialectPostgres:
		return "postgres"
	case DialectMySQL:
		return "mysql"
	default:
		return "generic"
	}
}

// ParseDialect resolves a dialect by name.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "generic":
		return DialectGeneric, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	case "mysql", "mariadb":
		return DialectMySQL, nil
	}

	return DialectGeneric, fmt.Errorf("unknown dialect %q", name)
}

const (
	sqliteDateTime = time.RFC3339Nano
	dateLayout     = "2006-01-02"
)

var (
	int64Type   = reflect.TypeFor[int64]()
	float64Type = reflect.TypeFor[float64]()
	stringType  = reflect.TypeFor[string]()
	boolType    = reflect.TypeFor[bool]()
)

// Default implements every logical column type.
//
// Native representations:
//
//	string, text   string
//	integer types  int64
//	float          float64
//	decimal        decimal.Decimal
//	boolean        bool
//	datetime, date time.Time
//	json           any (decoded document)
//	guid           uuid.UUID
//	binary         []byte
type Default struct {
	// Conversions restricts primitive conversions applied to loosely typed
	// scalars, e.g. "42" for an integer column. Zero means all categories.
	Conversions primitive.CategoryEnum
}

var _ Codec = Default{}

func (c Default) allowed() primitive.CategoryEnum {
	if c.Conversions == primitive.CategoryNone {
		return primitive.CategoryAll
	}

	return c.Conversions
}

func (c Default) convert(value any, dst reflect.Type) (any, error) {
	v, err := primitive.Convert(value, dst, c.allowed())
	if err != nil {
		return nil, err
	}

	return v.Interface(), nil
}

func (c Default) ToNative(t column.Type, d Dialect, scalar any) (any, error) {
	if scalar == nil {
		return nil, nil
	}

	native, err := c.toNative(t, scalar)
	if err != nil {
		return nil, fmt.Errorf("column type %s (%s): %w", t, d, err)
	}

	return native, nil
}

func (c Default) toNative(t column.Type, scalar any) (any, error) {
	switch t {
	case column.TypeString, column.TypeText:
		return c.convert(scalar, stringType)

	case column.TypeInteger, column.TypeSmallInt, column.TypeBigInt:
		return c.convert(scalar, int64Type)

	case column.TypeFloat:
		return c.convert(scalar, float64Type)

	case column.TypeBoolean:
		return c.convert(scalar, boolType)

	case column.TypeDecimal:
		return toDecimal(scalar)

	case column.TypeDateTime:
		return toTime(scalar, false)

	case column.TypeDate:
		return toTime(scalar, true)

	case column.TypeJSON:
		raw, err := toBytes(scalar)
		if err != nil {
			return nil, err
		}

		var doc any
		if err := gojson.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}

		return doc, nil

	case column.TypeGUID:
		switch s := scalar.(type) {
		case uuid.UUID:
			return s, nil
		case []byte:
			if len(s) == 16 {
				return uuid.FromBytes(s)
			}

			return uuid.ParseBytes(s)
		case string:
			return uuid.Parse(s)
		}

	case column.TypeBinary:
		return toBytes(scalar)
	}

	return nil, fmt.Errorf("%w: %T to native", ErrUnsupported, scalar)
}

func (c Default) ToStorage(t column.Type, d Dialect, value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	// a nil pointer stores NULL like an untyped nil
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return nil, nil
	}

	switch value.(type) {
	case decimal.Decimal, uuid.UUID:
	default:
		if valuer, ok := value.(driver.Valuer); ok {
			v, err := valuer.Value()
			if err != nil {
				return nil, fmt.Errorf("column type %s (%s): %w", t, d, err)
			}

			if v == nil {
				return nil, nil
			}

			value = v
		}
	}

	scalar, err := c.toStorage(t, d, value)
	if err != nil {
		return nil, fmt.Errorf("column type %s (%s): %w", t, d, err)
	}

	return scalar, nil
}

func (c Default) toStorage(t column.Type, d Dialect, value any) (any, error) {
	switch t {
	case column.TypeString, column.TypeText:
		s, err := c.convert(value, stringType)
		if err != nil {
			if stringer, ok := value.(fmt.Stringer); ok {
				return stringer.String(), nil
			}

			return nil, err
		}

		return s, nil

	case column.TypeInteger, column.TypeSmallInt, column.TypeBigInt:
		return c.convert(value, int64Type)

	case column.TypeFloat:
		return c.convert(value, float64Type)

	case column.TypeBoolean:
		b, err := c.convert(value, boolType)
		if err != nil {
			return nil, err
		}

		if d == DialectSQLite || d == DialectMySQL {
			if b.(bool) {
				return int64(1), nil
			}

			return int64(0), nil
		}

		return b, nil

	case column.TypeDecimal:
		dec, err := toDecimal(value)
		if err != nil {
			return nil, err
		}

		return dec.String(), nil

	case column.TypeDateTime, column.TypeDate:
		tm, err := toTime(value, t == column.TypeDate)
		if err != nil {
			return nil, err
		}

		switch {
		case t == column.TypeDate && d != DialectPostgres:
			return tm.Format(dateLayout), nil
		case d == DialectSQLite:
			return tm.Format(sqliteDateTime), nil
		}

		return tm, nil

	case column.TypeJSON:
		raw, err := gojson.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}

		return string(raw), nil

	case column.TypeGUID:
		switch v := value.(type) {
		case uuid.UUID:
			return v.String(), nil
		case string:
			id, err := uuid.Parse(v)
			if err != nil {
				return nil, err
			}

			return id.String(), nil
		}

	case column.TypeBinary:
		return toBytes(value)
	}

	return nil, fmt.Errorf("%w: %T to storage", ErrUnsupported, value)
}

func toBytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return bytes.Clone(b), nil
	case string:
		return []byte(b), nil
	}

	return nil, fmt.Errorf("%w: %T to bytes", ErrUnsupported, v)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(n))
	case []byte:
		return decimal.NewFromString(strings.TrimSpace(string(n)))
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	}

	i, err := primitive.Convert(v, int64Type, primitive.CategorySafeNumber|primitive.CategoryUnsafeNumber)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %T to decimal", ErrUnsupported, v)
	}

	return decimal.NewFromInt(i.Int()), nil
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05", dateLayout}

func toTime(v any, dateOnly bool) (time.Time, error) {
	var (
		tm  time.Time
		err error
	)

	switch s := v.(type) {
	case time.Time:
		tm = s
	case *time.Time:
		if s == nil {
			return time.Time{}, fmt.Errorf("%w: nil *time.Time", ErrUnsupported)
		}

		tm = *s
	case string:
		tm, err = parseTime(s)
	case []byte:
		tm, err = parseTime(string(s))
	default:
		var conv reflect.Value

		conv, err = primitive.Convert(v, reflect.TypeFor[time.Time](), primitive.CategoryTimestamp)
		if err == nil {
			tm = conv.Interface().(time.Time)
		}
	}

	if err != nil {
		return time.Time{}, err
	}

	if dateOnly {
		y, m, d := tm.Date()
		tm = time.Date(y, m, d, 0, 0, 0, 0, tm.Location())
	}

	return tm, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if tm, err := time.Parse(layout, s); err == nil {
			return tm, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: unrecognized time %q", ErrUnsupported, s)
}
