package port

import "sync"

// Key is the compound remote identity of a registered port.
type Key struct {
	Pid int
	ID  ID
}

// Registry maps (remote process id, remote port id) to local port
// handles. Each process owns one instance per remote peer; ports are
// registered and dropped from arbitrary worker threads, so every
// operation runs under the registry mutex. The backing pool is created
// lazily on first insert.
type Registry struct {
	mu    sync.Mutex
	ports map[Key]*Port
	pool  *Pool
}

// NewRegistry creates an empty registry. No pool is allocated until the
// first Add.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a port under its remote identity.
func (r *Registry) Add(p *Port) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pool == nil {
		r.pool = NewPool()
		r.ports = make(map[Key]*Port)
	}
	r.ports[Key{Pid: p.Pid(), ID: p.ID()}] = p
}

// Remove drops a port. Removing an unregistered port is a no-op:
// concurrent disconnects are expected.
func (r *Registry) Remove(p *Port) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pool == nil {
		return
	}
	delete(r.ports, Key{Pid: p.Pid(), ID: p.ID()})
}

// Find returns the port registered under (pid, id), if any.
func (r *Registry) Find(pid int, id ID) (*Port, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.ports[Key{Pid: pid, ID: id}]
	return p, ok
}

// Len returns the number of registered ports.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ports)
}

// Release releases the backing pool, if one was ever created.
func (r *Registry) Release() {
	r.mu.Lock()
	pool := r.pool
	r.pool = nil
	r.ports = nil
	r.mu.Unlock()

	if pool != nil {
		pool.Release()
	}
}
