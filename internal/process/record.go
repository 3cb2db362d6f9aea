package process

import (
	"sync"

	"github.com/nginx-gists/unit/internal/port"
)

// Record is the bookkeeping entry for one live OS process known to this
// runtime: a child, a sibling, or the process itself. Exactly one record
// exists per known process.
type Record struct {
	mu           sync.Mutex
	pid          int
	init         *RoleInit
	ports        []*port.Port
	ready        bool
	portCleanups int

	// connected maps remote (pid, port id) pairs to local port handles
	// for peers this process talks to.
	connected *port.Registry

	// Incoming and Outgoing hold the bulk message-buffer mappings
	// exchanged with the process, one set per direction.
	Incoming port.MmapSet
	Outgoing port.MmapSet
}

// NewRecord creates a record for a process about to be spawned. The pid
// is assigned after creation, never before.
func NewRecord(init *RoleInit) *Record {
	return &Record{
		init:      init,
		connected: port.NewRegistry(),
	}
}

// Pid returns the process id, or 0 before assignment.
func (r *Record) Pid() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pid
}

func (r *Record) setPid(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pid = pid
}

// Init returns the immutable role configuration.
func (r *Record) Init() *RoleInit { return r.init }

// Name returns the role name, or empty for records without one.
func (r *Record) Name() string {
	if r.init == nil {
		return ""
	}
	return r.init.Name
}

// Ready reports whether the process completed its bootstrap sequence.
func (r *Record) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

func (r *Record) setReady(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = v
}

// Ports returns the ports associated with this process, in creation
// order.
func (r *Record) Ports() []*port.Port {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*port.Port, len(r.ports))
	copy(out, r.ports)
	return out
}

// FirstPort returns the process's first-created port, or nil.
func (r *Record) FirstPort() *port.Port {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ports) == 0 {
		return nil
	}
	return r.ports[0]
}

// PortCleanups returns the count of pending port-pool cleanups.
func (r *Record) PortCleanups() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.portCleanups
}

// ConnectedAdd registers a peer port in this process's registry.
func (r *Record) ConnectedAdd(p *port.Port) {
	r.connected.Add(p)
}

// ConnectedRemove drops a peer port; absent entries are a no-op.
func (r *Record) ConnectedRemove(p *port.Port) {
	r.connected.Remove(p)
}

// ConnectedFind looks up a peer port by its remote identity.
func (r *Record) ConnectedFind(pid int, id port.ID) (*port.Port, bool) {
	return r.connected.Find(pid, id)
}

// ConnectedCount returns the number of registered peer ports.
func (r *Record) ConnectedCount() int {
	return r.connected.Len()
}
