package process

import (
	"github.com/nginx-gists/unit/internal/credential"
	"github.com/nginx-gists/unit/internal/engine"
	"github.com/nginx-gists/unit/internal/port"
)

// Type tags the role a process plays in the runtime.
type Type uint8

const (
	TypeMain Type = iota
	TypeController
	TypeRouter
	TypeWorker
	TypeAux

	typeCount
)

var typeNames = [typeCount]string{
	"main", "controller", "router", "worker", "aux",
}

func (t Type) String() string {
	if t < typeCount {
		return typeNames[t]
	}
	return "unknown"
}

// Bit returns the type's position in the runtime's active-types bitmap.
func (t Type) Bit() uint32 { return 1 << t }

// RoleInit is the immutable role configuration of a spawn request. It is
// owned by whoever constructs the request and referenced by the process
// record for the record's lifetime.
type RoleInit struct {
	Name string
	Type Type

	// UserCred, when set, is applied during bootstrap if the process is
	// super-user at that point.
	UserCred *credential.Credential

	// Signals is the role's declared signal set, handed to the engine.
	Signals engine.SignalSet

	// Start is the role entry point, invoked with Data once the process
	// is prepared. A non-nil error is fatal to the process.
	Start func(data any) error
	Data  any

	// Stream tags the readiness notification sent to the main process.
	Stream uint32

	// PortHandlers is installed on the role's first port when full
	// read/write handling is enabled.
	PortHandlers port.HandlerTable
}
