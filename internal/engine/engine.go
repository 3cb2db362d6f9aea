// Package engine defines the narrow contract the process core consumes
// from the event-engine layer: a service registry of pollable backends,
// a per-process engine handle that can be rebound to a backend, and the
// auxiliary thread pool used for blocking-style work.
//
// The reactor implementation itself lives outside this core; everything
// here is either an interface or the minimal state needed to honor it.
package engine

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// ErrNotFound is returned by Registry.Lookup for an unregistered backend.
var ErrNotFound = errors.New("engine backend not found")

// Interface is one pollable event backend (epoll, kqueue, poll, ...).
type Interface interface {
	Name() string
}

// SignalSet is the opaque set of signals a role declares. The engine owns
// signal delivery; the core only hands the set over during bootstrap.
type SignalSet []os.Signal

// Engine is the per-process event engine handle.
type Engine interface {
	// Rebind switches the engine to the given backend. A freshly created
	// process must rebind before serving: the inherited binding belongs
	// to the parent.
	Rebind(iface Interface, batch int) error

	// SetSignals replaces the engine's signal-handling configuration.
	SetSignals(set SignalSet)

	// AdoptThread re-registers the calling thread as the engine's owner.
	// The engine's thread-affinity state is stale across fork.
	AdoptThread()
}

// Registry maps backend names to their interfaces. It stands in for the
// runtime service registry consumed during bootstrap.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Interface
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Interface)}
}

// Register adds a backend under its name, replacing any previous entry.
func (r *Registry) Register(iface Interface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[iface.Name()] = iface
}

// Lookup returns the backend registered under name.
func (r *Registry) Lookup(name string) (Interface, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	iface, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return iface, nil
}

// Loop is the default Engine implementation. It tracks the bound backend
// and signal set; actual I/O multiplexing is delegated to the backend.
type Loop struct {
	mu      sync.Mutex
	iface   Interface
	batch   int
	signals SignalSet
	owner   int
}

// NewLoop creates an unbound engine loop.
func NewLoop() *Loop {
	return &Loop{}
}

// Rebind implements Engine.
func (l *Loop) Rebind(iface Interface, batch int) error {
	if iface == nil {
		return errors.New("rebind to nil backend")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.iface = iface
	l.batch = batch
	return nil
}

// SetSignals implements Engine.
func (l *Loop) SetSignals(set SignalSet) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.signals = set
}

// AdoptThread implements Engine.
func (l *Loop) AdoptThread() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.owner = os.Getpid()
}

// Backend returns the currently bound backend, or nil.
func (l *Loop) Backend() Interface {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.iface
}

// Signals returns the current signal set.
func (l *Loop) Signals() SignalSet {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.signals
}

// PollBackend is the portable default backend.
type PollBackend struct{}

// Name implements Interface.
func (PollBackend) Name() string { return "poll" }

// AuxIdleTimeout is how long an idle auxiliary thread lingers before
// exiting, matching the fixed timeout used at bootstrap.
const AuxIdleTimeout = 60 * time.Second
