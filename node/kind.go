package node

// CalleeKind is the closed set of callee selectors of a CallDefinition.
type CalleeKind int

const (
	CalleeFree CalleeKind = iota
	CalleeEntity
	CalleeSelf
	CalleeParent
	CalleeService
	CalleeType
	CalleeRegistry

	// CalleeTotal is a constant that represents the total number of kinds defined
	CalleeTotal = int(iota)
)

var calleeNames = [CalleeTotal]string{
	CalleeFree:     "free",
	CalleeEntity:   "entity",
	CalleeSelf:     "self",
	CalleeParent:   "parent",
	CalleeService:  "service",
	CalleeType:     "type",
	CalleeRegistry: "registry",
}

func (k CalleeKind) String() string {
	if k < 0 || int(k) >= CalleeTotal {
		return "CalleeKind(?)"
	}

	return calleeNames[k]
}

// enumKind tells how an Object target maps onto its storage column.
type enumKind int

const (
	enumNone enumKind = iota
	// enumBacked targets implement sql.Scanner and driver.Valuer.
	enumBacked
	// enumNamed targets implement encoding.TextUnmarshaler and TextMarshaler.
	enumNamed
)
