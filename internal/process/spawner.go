package process

import (
	"fmt"
	"os"
	"strconv"

	"github.com/nginx-gists/unit/internal/events"
)

// ForkResult is the tagged outcome of the fork primitive: a single call
// yields two continuations, branched exactly once at the call site.
type ForkResult struct {
	child bool
	pid   int
}

// InChild reports whether this continuation is the child's.
func (r ForkResult) InChild() bool { return r.child }

// ChildPid returns the child's pid, valid only in the parent.
func (r ForkResult) ChildPid() int { return r.pid }

// forkProcess wraps the platform fork primitive. Test seam.
var forkProcess = func() (ForkResult, error) {
	pid, child, err := sysFork()
	if err != nil {
		return ForkResult{}, err
	}
	return ForkResult{child: child, pid: pid}, nil
}

// SpawnForked creates a worker or auxiliary process via the fork path.
// In the parent it records the child and returns its pid. In the child
// it repairs the inherited tables, runs the bootstrap sequence, marks
// itself ready, and returns its own pid; a bootstrap failure terminates
// the child with status 1.
func (rt *Runtime) SpawnForked(init *RoleInit) (int, error) {
	rec := NewRecord(init)

	// The record's first port is created before the fork so both
	// continuations inherit it: the parent routes to the child over it,
	// the child locks down and enables it during bootstrap.
	rt.AttachPort(rec, rt.NewPort())

	res, err := forkProcess()
	if err != nil {
		rt.logger.Error("fork failed", "role", init.Name, "error", err)
		if rt.metrics != nil {
			rt.metrics.IncFork(init.Name, false)
		}
		// The record never reached the table; release the pre-fork
		// port's pool so its attach cleanups fire.
		for _, p := range rec.Ports() {
			p.Pool().Release()
		}
		return 0, fmt.Errorf("fork %q: %w", init.Name, err)
	}

	if !res.InChild() {
		rec.setPid(res.ChildPid())
		rt.table.Add(rec)
		rt.tableChanged()
		rt.logger.Debug("forked", "role", init.Name, "pid", res.ChildPid())
		if rt.metrics != nil {
			rt.metrics.IncFork(init.Name, true)
		}
		rt.publish(events.ProcessForked, map[string]string{
			"role": init.Name,
			"pid":  strconv.Itoa(res.ChildPid()),
		})
		return res.ChildPid(), nil
	}

	rt.repairAfterFork(rec)

	if err := rt.bootstrap(rec); err != nil {
		rt.logger.Error("bootstrap failed", "role", init.Name, "error", err)
		osExit(1)
		return 0, err // reached only when osExit is stubbed out
	}

	rec.setReady(true)
	if rt.metrics != nil {
		rt.metrics.IncReady(init.Name)
	}
	rt.publish(events.ProcessReady, map[string]string{
		"role": init.Name,
		"pid":  strconv.Itoa(rec.Pid()),
	})
	return rt.ctx.Pid(), nil
}

// repairAfterFork brings the child's inherited state back to a
// consistent view: refresh cached ids, clear the active-types bitmap,
// rewind the port-id allocator, re-adopt the engine thread, prune the
// inherited table, and insert a record for the child itself.
//
// Records whose bootstrap had not completed before the fork are
// discarded outright: the child's view of them is unreliable. Ready
// records stay, but their bulk mappings are released in both directions;
// that memory belongs to the parent's peers.
func (rt *Runtime) repairAfterFork(self *Record) {
	rt.ctx.RefreshAfterFork()
	self.setPid(rt.ctx.Pid())

	rt.resetTypes()
	rt.portIDs.Reset()
	rt.eng.AdoptThread()

	for _, r := range rt.table.Snapshot() {
		if !r.Ready() {
			rt.logger.Debug("removing not ready process", "pid", r.Pid())
			rt.table.Remove(r)
			rt.publish(events.ProcessRemoved, map[string]string{
				"pid": strconv.Itoa(r.Pid()),
			})
		} else {
			r.Incoming.Destroy()
			r.Outgoing.Destroy()
		}
	}

	rt.table.Add(self)
	rt.tableChanged()
}

// Spawner launches external binaries as new process images.
// Implementations include ExecSpawner (real) and MockSpawner (testing).
type Spawner interface {
	Start(path string, argv []string, envp []string) (int, error)
}

// ExecSpawner spawns real OS processes through the platform creation
// primitive (fork+exec or a dedicated spawn call, the platform's
// choice).
type ExecSpawner struct{}

// Start launches path with the given arguments and environment and
// returns the new pid. The child is reaped in the background to avoid
// zombies; exit status handling is the coordinating layer's concern.
func (s *ExecSpawner) Start(path string, argv []string, envp []string) (int, error) {
	args := append([]string{path}, argv...)
	proc, err := os.StartProcess(path, args, &os.ProcAttr{
		Env:   envp,
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	})
	if err != nil {
		return 0, err
	}

	go func() { _, _ = proc.Wait() }()

	return proc.Pid, nil
}

// SpawnExec launches an external binary as a new, unrelated process
// image and returns its pid.
func (rt *Runtime) SpawnExec(path string, argv []string, envp []string) (int, error) {
	pid, err := rt.spawner.Start(path, argv, envp)
	if err != nil {
		rt.logger.Error("exec spawn failed", "path", path, "error", err)
		if rt.metrics != nil {
			rt.metrics.IncExec(false)
		}
		return 0, fmt.Errorf("spawn %q: %w", path, err)
	}

	rt.logger.Debug("spawned", "path", path, "pid", pid)
	if rt.metrics != nil {
		rt.metrics.IncExec(true)
	}
	rt.publish(events.ProcessExeced, map[string]string{
		"path": path,
		"pid":  strconv.Itoa(pid),
	})
	return pid, nil
}

// MockSpawner is a test double for Spawner.
type MockSpawner struct {
	StartFn    func(path string, argv, envp []string) (int, error)
	StartCalls []string
}

// Start records the call and delegates to StartFn.
func (m *MockSpawner) Start(path string, argv []string, envp []string) (int, error) {
	m.StartCalls = append(m.StartCalls, path)
	if m.StartFn != nil {
		return m.StartFn(path, argv, envp)
	}
	return 1000 + len(m.StartCalls), nil
}
