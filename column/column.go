// Package column describes storage columns: the schema metadata every mapping
// node contributes bottom-up so a persister can derive tables from a tree.
package column

import (
	"fmt"
	"strings"
)

type Type int

const (
	_ Type = iota // skip zero value, use it as a default (invalid) value for Type

	TypeString
	TypeText
	TypeInteger
	TypeSmallInt
	TypeBigInt
	TypeFloat
	TypeDecimal
	TypeBoolean
	TypeDateTime
	TypeDate
	TypeJSON
	TypeGUID
	TypeBinary

	// TypeTotal is a constant that represents the total number of types defined
	TypeTotal = int(iota)
)

var typeNames = [...]string{
	TypeString:   "string",
	TypeText:     "text",
	TypeInteger:  "integer",
	TypeSmallInt: "smallint",
	TypeBigInt:   "bigint",
	TypeFloat:    "float",
	TypeDecimal:  "decimal",
	TypeBoolean:  "boolean",
	TypeDateTime: "datetime",
	TypeDate:     "date",
	TypeJSON:     "json",
	TypeGUID:     "guid",
	TypeBinary:   "binary",
}

func (t Type) String() string {
	if t <= 0 || int(t) >= TypeTotal {
		return "Type(" + fmt.Sprint(int(t)) + ")"
	}

	return typeNames[t]
}

// IsValid reports whether t is one of the declared logical types.
func (t Type) IsValid() bool {
	return t > 0 && int(t) < TypeTotal
}

func (t Type) IsInteger() bool {
	switch t {
	default:
		return false
	case TypeInteger, TypeSmallInt, TypeBigInt:
		return true
	}
}

func (t Type) IsTextual() bool {
	switch t {
	default:
		return false
	case TypeString, TypeText, TypeJSON, TypeGUID:
		return true
	}
}

// ParseType resolves a logical type by its name; aliases used by common schema
// dialects ("int", "bool", "varchar", "uuid", ...) are accepted too.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "string", "varchar":
		return TypeString, nil
	case "text":
		return TypeText, nil
	case "integer", "int":
		return TypeInteger, nil
	case "smallint":
		return TypeSmallInt, nil
	case "bigint":
		return TypeBigInt, nil
	case "float", "double":
		return TypeFloat, nil
	case "decimal", "numeric":
		return TypeDecimal, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	case "datetime", "timestamp":
		return TypeDateTime, nil
	case "date":
		return TypeDate, nil
	case "json":
		return TypeJSON, nil
	case "guid", "uuid":
		return TypeGUID, nil
	case "binary", "blob":
		return TypeBinary, nil
	}

	return 0, fmt.Errorf("unknown column type %q", name)
}

// Column is a storage column descriptor.
type Column struct {
	Name      string
	Type      Type
	Nullable  bool
	Length    int
	Precision int
	Scale     int
}

// New creates a nullable column of the given type.
func New(name string, t Type) Column {
	return Column{Name: name, Type: t, Nullable: true}
}

func (c Column) String() string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	sb.WriteByte(' ')
	sb.WriteString(c.Type.String())

	switch {
	case c.Precision > 0:
		fmt.Fprintf(&sb, "(%d,%d)", c.Precision, c.Scale)
	case c.Length > 0:
		fmt.Fprintf(&sb, "(%d)", c.Length)
	}

	if !c.Nullable {
		sb.WriteString(" not null")
	}

	return sb.String()
}

// WithPrefix returns a copy of the column renamed with the given prefix.
func (c Column) WithPrefix(prefix string) Column {
	c.Name = prefix + c.Name
	return c
}

// Prefix renames every column of the list by prepending prefix.
func Prefix(prefix string, cols []Column) []Column {
	out := make([]Column, len(cols))
	for i, c := range cols {
		out[i] = c.WithPrefix(prefix)
	}

	return out
}

// Merge concatenates column lists, dropping later columns whose name was
// already contributed.
func Merge(lists ...[]Column) []Column {
	var out []Column

	seen := make(map[string]struct{})

	for _, list := range lists {
		for _, c := range list {
			if _, ok := seen[c.Name]; ok {
				continue
			}

			seen[c.Name] = struct{}{}
			out = append(out, c)
		}
	}

	return out
}

// Names returns the column names in order.
func Names(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}

	return out
}
