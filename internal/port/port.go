// Package port implements the inter-process message endpoints of the
// runtime and the per-process registry that maps remote (pid, port id)
// pairs to local handles.
package port

import (
	"sync"
	"sync/atomic"
)

// ID identifies a port within its owning process.
type ID uint32

// MsgKind tags a port message.
type MsgKind uint8

// Port message kinds understood by the core. Payload semantics belong to
// the coordinating layer.
const (
	MsgData MsgKind = iota
	MsgReady
	MsgQuit
)

// Message is one unit of port traffic.
type Message struct {
	Kind    MsgKind
	Stream  uint32
	Payload []byte
}

// HandlerTable maps message kinds to their handlers. Supplied by the role
// configuration; opaque to the core.
type HandlerTable map[MsgKind]func(Message)

// Owner is the process-record side of a port's back-reference.
type Owner interface {
	Pid() int
}

// Port is a bidirectional IPC endpoint identified by (owning process id,
// port id), unique together within a runtime.
type Port struct {
	mu        sync.Mutex
	pid       int
	id        ID
	owner     Owner
	pool      *Pool
	writeOpen bool
	readOpen  bool
	handlers  HandlerTable
	queued    []Message
}

// New creates a port with both directions open and a fresh buffer pool.
func New(pid int, id ID) *Port {
	return &Port{
		pid:       pid,
		id:        id,
		pool:      NewPool(),
		writeOpen: true,
		readOpen:  true,
	}
}

// Pid returns the owning process id half of the port's remote identity.
func (p *Port) Pid() int { return p.pid }

// ID returns the port id half of the port's remote identity.
func (p *Port) ID() ID { return p.id }

// Pool returns the port's buffer pool.
func (p *Port) Pool() *Pool { return p.pool }

// Bind sets the owning process record. Callers hold the record's lock so
// the back-reference and the record's port list change together.
func (p *Port) Bind(owner Owner) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.owner = owner
}

// Owner returns the owning process record, or nil if unbound.
func (p *Port) Owner() Owner {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.owner
}

// WriteOpen reports whether the write side is open.
func (p *Port) WriteOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writeOpen
}

// ReadOpen reports whether the read side is open.
func (p *Port) ReadOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readOpen
}

// Enabled reports whether full read handling is active.
func (p *Port) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handlers != nil
}

// IDAllocator hands out process-local port ids. A forked child resets it
// so its allocations cannot collide with ids the parent already used.
type IDAllocator struct {
	next atomic.Uint32
}

// Next returns the next unused id.
func (a *IDAllocator) Next() ID {
	return ID(a.next.Add(1) - 1)
}

// Reset rewinds the allocator. Called once, post-fork, in the child.
func (a *IDAllocator) Reset() {
	a.next.Store(0)
}
