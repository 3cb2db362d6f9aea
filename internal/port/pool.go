package port

import "sync"

// Pool is the allocation pool attached to a port or registry. Unlike the
// collaborator it stands in for, it is safe for concurrent use, so there
// is no thread-adoption step; callers only rely on buffer reuse and on
// cleanup callbacks running exactly once at release.
type Pool struct {
	mu       sync.Mutex
	cleanups []func()
	released bool
	bufs     sync.Pool
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	p := &Pool{}
	p.bufs.New = func() any { return make([]byte, 0, 1024) }
	return p
}

// Get returns a buffer with at least n bytes of capacity.
func (p *Pool) Get(n int) []byte {
	b := p.bufs.Get().([]byte)
	if cap(b) < n {
		b = make([]byte, 0, n)
	}
	return b[:n]
}

// Put returns a buffer to the pool.
func (p *Pool) Put(b []byte) {
	p.bufs.Put(b[:0])
}

// OnCleanup registers fn to run when the pool is released. Callbacks run
// in reverse registration order.
func (p *Pool) OnCleanup(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleanups = append(p.cleanups, fn)
}

// Release runs the registered cleanup callbacks. Subsequent calls are
// no-ops: a pool releases exactly once.
func (p *Pool) Release() {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return
	}
	p.released = true
	cleanups := p.cleanups
	p.cleanups = nil
	p.mu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// Released reports whether Release has run.
func (p *Pool) Released() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

// MmapSet tracks the bulk message-buffer mappings exchanged with one
// remote process, one set per direction.
type MmapSet struct {
	mu   sync.Mutex
	bufs [][]byte
}

// Add appends a mapping.
func (s *MmapSet) Add(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bufs = append(s.bufs, b)
}

// Len returns the number of live mappings.
func (s *MmapSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bufs)
}

// Destroy drops every mapping. A forked child calls this for both
// directions of each ready record it inherited: the memory belongs to
// the parent's peers, not to the child.
func (s *MmapSet) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bufs = nil
}
