package node

import (
	"reflect"
	"strings"
)

// ServiceMarker prefixes callee selectors that name a service.
const ServiceMarker = "@"

// TypeResolver maps a type name used in configuration to a Go type.
type TypeResolver interface {
	ResolveType(name string) (reflect.Type, bool)
}

// Callee is a callee selector resolved once when the tree is built.
type Callee struct {
	Kind CalleeKind
	Name string       // service id or registry key
	Type reflect.Type // set for CalleeType
}

// ParseCallee classifies a selector:
//
//	""               free routine
//	"root", "entity" the context entity
//	"self", "this"   top of the construction stack
//	"parent"         second from the top
//	"@name"          service lookup
//	type name        static dispatch on a type known to types
//	anything else    registry lookup
func ParseCallee(selector string, types TypeResolver) Callee {
	switch strings.ToLower(selector) {
	case "":
		return Callee{Kind: CalleeFree}
	case "root", "entity":
		return Callee{Kind: CalleeEntity, Name: selector}
	case "self", "this":
		return Callee{Kind: CalleeSelf, Name: selector}
	case "parent":
		return Callee{Kind: CalleeParent, Name: selector}
	}

	if id, ok := strings.CutPrefix(selector, ServiceMarker); ok {
		return Callee{Kind: CalleeService, Name: id}
	}

	if types != nil {
		if t, ok := types.ResolveType(selector); ok {
			return TypeCallee(t)
		}
	}

	return Callee{Kind: CalleeRegistry, Name: selector}
}

// TypeCallee selects static routines of t.
func TypeCallee(t reflect.Type) Callee {
	t = base(t)
	return Callee{Kind: CalleeType, Name: t.Name(), Type: t}
}

func (c Callee) String() string {
	switch c.Kind {
	case CalleeFree:
		return ""
	case CalleeService:
		return ServiceMarker + c.Name
	case CalleeType:
		return typeStr(c.Type)
	case CalleeEntity, CalleeSelf, CalleeParent:
		return c.Kind.String()
	}

	return c.Name
}
