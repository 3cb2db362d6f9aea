package process

import (
	"sync"

	"github.com/nginx-gists/unit/internal/port"
)

// Table is the runtime-scoped collection of process records, keyed by
// pid. It has a single logical writer: the coordinating process, or a
// freshly forked child repairing its inherited copy before it spawns
// further threads.
type Table struct {
	mu      sync.Mutex
	records map[int]*Record
}

// NewTable creates an empty process table.
func NewTable() *Table {
	return &Table{records: make(map[int]*Record)}
}

// Add inserts a record under its pid, replacing any stale entry.
func (t *Table) Add(r *Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[r.Pid()] = r
}

// Remove deletes a record by identity. Removing an absent record is a
// no-op.
func (t *Table) Remove(r *Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.records[r.Pid()]; ok && cur == r {
		delete(t.records, r.Pid())
	}
}

// Get returns the record for pid, if any.
func (t *Table) Get(pid int) (*Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.records[pid]
	return r, ok
}

// Len returns the number of records.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Each calls fn for every record. fn must not mutate the table; use
// Snapshot for walks that remove entries.
func (t *Table) Each(fn func(*Record)) {
	for _, r := range t.Snapshot() {
		fn(r)
	}
}

// Snapshot returns the current records.
func (t *Table) Snapshot() []*Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Record, 0, len(t.records))
	for _, r := range t.records {
		out = append(out, r)
	}
	return out
}

// AttachPort associates p with r: sets the port's owner back-reference,
// appends it to the record's port list, and registers a cleanup on the
// port's pool. The record's lifetime is tied to its ports' pool
// resources: when the last registered cleanup fires, the record is
// removed from the table. The pending count is incremented before the
// callback is registered so a synchronously released pool cannot
// observe a zero count.
func (t *Table) AttachPort(r *Record, p *port.Port) {
	r.mu.Lock()
	r.portCleanups++
	p.Bind(r)
	r.ports = append(r.ports, p)
	r.mu.Unlock()

	p.Pool().OnCleanup(func() {
		t.portReleased(r)
	})
}

func (t *Table) portReleased(r *Record) {
	r.mu.Lock()
	r.portCleanups--
	drained := r.portCleanups == 0
	r.mu.Unlock()

	if drained {
		t.Remove(r)
	}
}
