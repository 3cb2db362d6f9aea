package port

import (
	"sync"
	"testing"
)

func TestRegistryAddFind(t *testing.T) {
	r := NewRegistry()
	p := New(100, 3)

	r.Add(p)

	got, ok := r.Find(100, 3)
	if !ok {
		t.Fatal("port not found after add")
	}
	if got != p {
		t.Fatal("found a different port")
	}
}

func TestRegistryFindMissing(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Find(1, 1); ok {
		t.Fatal("find on empty registry should report not found")
	}

	r.Add(New(100, 3))
	if _, ok := r.Find(100, 4); ok {
		t.Fatal("find with wrong port id should report not found")
	}
	if _, ok := r.Find(101, 3); ok {
		t.Fatal("find with wrong pid should report not found")
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	p := New(100, 3)
	r.Add(p)

	r.Remove(p)

	if _, ok := r.Find(100, 3); ok {
		t.Fatal("port still found after remove")
	}
}

func TestRegistryRemoveAbsent(t *testing.T) {
	r := NewRegistry()

	// Remove before any add: no pool exists yet, must be a no-op.
	r.Remove(New(1, 1))

	r.Add(New(100, 3))
	// Removing a never-added port is also a no-op.
	r.Remove(New(200, 9))

	if r.Len() != 1 {
		t.Fatalf("len = %d, want 1", r.Len())
	}
}

func TestRegistryLazyPool(t *testing.T) {
	r := NewRegistry()
	if r.pool != nil {
		t.Fatal("pool should not exist before first add")
	}

	r.Add(New(1, 1))
	if r.pool == nil {
		t.Fatal("pool should be created on first add")
	}
}

// Concurrent adds, removes, and finds over overlapping and disjoint keys
// must not corrupt the table, and sequential visibility must hold: an
// add is observable until the matching remove.
func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				// Half the workers share pid 42 (overlapping keys),
				// the rest use a private pid.
				pid := 42
				if w%2 == 0 {
					pid = 1000 + w
				}
				p := New(pid, ID(i))

				r.Add(p)
				if got, ok := r.Find(pid, ID(i)); !ok || got != p {
					t.Errorf("find after add: ok=%v", ok)
					return
				}
				r.Remove(p)
				if _, ok := r.Find(pid, ID(i)); ok {
					t.Errorf("find after remove: still present")
					return
				}
			}
		}(w)
	}
	wg.Wait()

	if r.Len() != 0 {
		t.Fatalf("len = %d after balanced add/remove, want 0", r.Len())
	}
}

func TestRegistryRelease(t *testing.T) {
	r := NewRegistry()
	r.Add(New(1, 1))

	released := false
	r.pool.OnCleanup(func() { released = true })

	r.Release()

	if !released {
		t.Fatal("pool cleanup did not run on release")
	}
	if _, ok := r.Find(1, 1); ok {
		t.Fatal("registry should be empty after release")
	}

	// Release on an already released registry is a no-op.
	r.Release()
}
