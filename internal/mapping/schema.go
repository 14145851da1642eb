package mapping

import (
	"rowgraph/internal/common"
)

// MappingFile represents the root of a YAML mapping definition file.
type MappingFile struct {
	// Version of the mapping schema (for future compatibility).
	Version string `yaml:"version,omitempty"`

	// Dialect names the storage dialect the codec targets (generic, sqlite, postgres, mysql).
	Dialect string `yaml:"dialect,omitempty"`

	// Imports are reusable sub-trees referenced by proxy nodes.
	Imports NamedNodes `yaml:"imports,omitempty"`

	// Entities maps entity names to their field mappings, in file order.
	Entities NamedEntities `yaml:"entities"`
}

// EntitySpec describes how one entity type is stored in one row.
type EntitySpec struct {
	// Name is the entity name (the key under "entities").
	Name string `yaml:"-"`

	// Type is the Go type name of the entity. Defaults to Name.
	Type string `yaml:"type,omitempty"`

	// Table is the storage table name. Defaults to the snake cased Name.
	Table string `yaml:"table,omitempty"`

	// Fields maps entity field names to node specs, in file order.
	Fields NamedNodes `yaml:"fields"`
}

// NamedEntities keeps entities in the order they are declared.
type NamedEntities []*EntitySpec

// NodeKind selects the mapping node variant.
type NodeKind string

const (
	KindField    NodeKind = "field"
	KindService  NodeKind = "service"
	KindNull     NodeKind = "null"
	KindConstant NodeKind = "constant"
	KindList     NodeKind = "list"
	KindArray    NodeKind = "array"
	KindChoice   NodeKind = "choice"
	KindNullable NodeKind = "nullable"
	KindObject   NodeKind = "object"
	KindProxy    NodeKind = "proxy"
)

// IsValid returns true if the kind is a recognized value.
func (k NodeKind) IsValid() bool {
	switch k {
	case KindField, KindService, KindNull, KindConstant, KindList,
		KindArray, KindChoice, KindNullable, KindObject, KindProxy:
		return true
	}

	return false
}

// String returns the kind name.
func (k NodeKind) String() string {
	if k == "" {
		return common.UnknownStr
	}

	return string(k)
}

// NodeSpec is the configuration of one mapping node. Which attributes apply
// depends on Kind.
//
// YAML formats supported:
//   - Simple string: "column_name" (a string field over that column)
//   - Full object: {kind: ..., ...}
type NodeSpec struct {
	Kind NodeKind `yaml:"kind,omitempty"`

	// Column is the storage column of field, list and object nodes. Fields
	// default to the field name, or to the anonymous slot inside list entries.
	Column string `yaml:"column,omitempty"`
	// Anonymous makes a field read the anonymous slot: a list element or the
	// column value handed to a factory.
	Anonymous bool `yaml:"anonymous,omitempty"`
	// ColumnType is the logical type of Column (string, integer, json, ...).
	ColumnType string `yaml:"column_type,omitempty"`
	// Required marks Column as not null.
	Required  bool `yaml:"required,omitempty"`
	Length    int  `yaml:"length,omitempty"`
	Precision int  `yaml:"precision,omitempty"`
	Scale     int  `yaml:"scale,omitempty"`

	// Service is the service id of service nodes.
	Service string `yaml:"service,omitempty"`
	// Lax disables identity assertions of service nodes.
	Lax bool `yaml:"lax,omitempty"`

	// Value is the literal of constant nodes.
	Value any `yaml:"value,omitempty"`

	// Entry is the element mapping of list nodes.
	Entry *NodeSpec `yaml:"entry,omitempty"`

	// Entries are the named entries of array nodes.
	Entries NamedNodes `yaml:"entries,omitempty"`

	// Determinator is the discriminator column of choice nodes.
	// Defaults to "<field>_type".
	Determinator string `yaml:"determinator,omitempty"`
	// Choices are the alternatives of choice nodes.
	Choices NamedNodes `yaml:"choices,omitempty"`

	// Indicator is the presence column of nullable nodes. Empty means the
	// first column of Inner.
	Indicator string `yaml:"indicator,omitempty"`
	// Inner is the guarded mapping of nullable nodes.
	Inner *NodeSpec `yaml:"inner,omitempty"`

	// Type is the Go type name of object nodes.
	Type string `yaml:"type,omitempty"`
	// Fields are the field mappings of object nodes.
	Fields NamedNodes `yaml:"fields,omitempty"`
	// ID publishes the constructed object under a registry key.
	ID string `yaml:"id,omitempty"`
	// Ref substitutes the object registered under a key.
	Ref string `yaml:"ref,omitempty"`
	// Factory constructs the object.
	Factory *CallSpec `yaml:"factory,omitempty"`
	// Serializer computes the value stored in Column.
	Serializer *CallSpec `yaml:"serializer,omitempty"`

	// Import names the imported sub-tree of proxy nodes.
	Import string `yaml:"import,omitempty"`
	// Prefix is prepended to the column names of the imported sub-tree.
	Prefix string `yaml:"prefix,omitempty"`
}

// CallSpec configures a factory or serializer call.
//
// YAML formats supported:
//   - Simple string: "routine" (a free routine) or "callee.routine"
//   - Full object: {callee: self, routine: build, args: [...], static: true}
type CallSpec struct {
	Callee  string      `yaml:"callee,omitempty"`
	Routine string      `yaml:"routine"`
	Args    []*NodeSpec `yaml:"args,omitempty"`
	Static  bool        `yaml:"static,omitempty"`
}

// NamedNode is one entry of an ordered YAML mapping of node specs.
type NamedNode struct {
	Name string
	Spec *NodeSpec
}

// NamedNodes is an ordered list of node specs, written in YAML as a mapping.
type NamedNodes []NamedNode

// Get returns the spec stored under name.
func (n NamedNodes) Get(name string) (*NodeSpec, bool) {
	for _, nn := range n {
		if nn.Name == name {
			return nn.Spec, true
		}
	}

	return nil, false
}

// Names returns the names in declaration order.
func (n NamedNodes) Names() []string {
	names := make([]string, len(n))
	for i, nn := range n {
		names[i] = nn.Name
	}

	return names
}
