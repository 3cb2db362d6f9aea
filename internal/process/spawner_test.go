package process

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/nginx-gists/unit/internal/metrics"
	"github.com/nginx-gists/unit/internal/port"
)

func TestSpawnForkedParent(t *testing.T) {
	eng := &fakeEngine{}
	rt := newTestRuntime(eng)
	stubFork(t, ForkResult{child: false, pid: 777}, nil)

	pid, err := rt.SpawnForked(&RoleInit{Name: "router", Type: TypeRouter})
	if err != nil {
		t.Fatalf("SpawnForked: %v", err)
	}
	if pid != 777 {
		t.Fatalf("pid = %d, want 777", pid)
	}

	rec, ok := rt.Table().Get(777)
	if !ok {
		t.Fatal("no record for the forked child")
	}
	if rec.Ready() {
		t.Fatal("child recorded ready before its bootstrap completed")
	}
	if rec.FirstPort() == nil {
		t.Fatal("child record has no port")
	}
	if rt.HasType(TypeRouter) {
		t.Fatal("parent must not take on the child's role type")
	}
	if eng.adopted() != 0 {
		t.Fatal("parent must not re-adopt the engine thread")
	}
}

func TestSpawnForkedForkFailure(t *testing.T) {
	rt := newTestRuntime(&fakeEngine{})
	stubFork(t, ForkResult{}, errors.New("resource temporarily unavailable"))

	if _, err := rt.SpawnForked(&RoleInit{Name: "router"}); err == nil {
		t.Fatal("expected error from failed fork")
	}
	if rt.Table().Len() != 0 {
		t.Fatal("failed fork must not leave a record behind")
	}
}

func TestSpawnForkedForkFailureReleasesPort(t *testing.T) {
	m := metrics.New()
	rt := NewRuntime(Config{Logger: testLogger(), Metrics: m})
	stubFork(t, ForkResult{}, errors.New("resource temporarily unavailable"))

	if _, err := rt.SpawnForked(&RoleInit{Name: "router"}); err == nil {
		t.Fatal("expected error from failed fork")
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	if !strings.Contains(rec.Body.String(), "unitd_ports_registered 0") {
		t.Fatal("registered-ports gauge not drained after failed fork")
	}
}

func TestSpawnForkedChild(t *testing.T) {
	eng := &fakeEngine{}
	rt := newTestRuntime(eng)
	stubFork(t, ForkResult{child: true}, nil)
	stubEuid(t, 1000)

	// State inherited from the parent: one bootstrapped peer with bulk
	// mappings, one peer whose bootstrap had not finished.
	peer := NewRecord(&RoleInit{Name: "controller"})
	peer.setPid(200)
	peer.setReady(true)
	peer.Incoming.Add([]byte("in"))
	peer.Outgoing.Add([]byte("out"))
	rt.Table().Add(peer)

	stale := NewRecord(&RoleInit{Name: "worker"})
	stale.setPid(300)
	rt.Table().Add(stale)

	main := rt.NewPort()
	var ready []port.Message
	rt.Transport().Enable(main, port.HandlerTable{
		port.MsgReady: func(m port.Message) { ready = append(ready, m) },
	})
	rt.SetMainPort(main)

	started := false
	pid, err := rt.SpawnForked(&RoleInit{
		Name:   "router",
		Type:   TypeRouter,
		Stream: 7,
		Start:  func(any) error { started = true; return nil },
	})
	if err != nil {
		t.Fatalf("SpawnForked: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("pid = %d, want own pid %d", pid, os.Getpid())
	}

	if _, ok := rt.Table().Get(300); ok {
		t.Fatal("not-ready peer survived the post-fork repair")
	}
	if _, ok := rt.Table().Get(200); !ok {
		t.Fatal("ready peer pruned by the post-fork repair")
	}
	if peer.Incoming.Len() != 0 || peer.Outgoing.Len() != 0 {
		t.Fatal("peer bulk mappings not released in the child")
	}

	self, ok := rt.Table().Get(pid)
	if !ok {
		t.Fatal("child has no record for itself")
	}
	if !self.Ready() {
		t.Fatal("child not marked ready after bootstrap")
	}
	if !started {
		t.Fatal("role entry point never ran")
	}
	if !rt.HasType(TypeRouter) {
		t.Fatal("role type not active after bootstrap")
	}
	if eng.adopted() != 1 {
		t.Fatalf("engine thread adopted %d times, want 1", eng.adopted())
	}

	if len(ready) != 1 {
		t.Fatalf("main received %d ready notifications, want 1", len(ready))
	}
	if ready[0].Stream != 7 {
		t.Fatalf("ready stream = %d, want 7", ready[0].Stream)
	}

	first := self.FirstPort()
	if first == nil {
		t.Fatal("child record lost its port")
	}
	if first.WriteOpen() {
		t.Fatal("child kept the write side of its own port open")
	}
	if !first.Enabled() {
		t.Fatal("child port not enabled after bootstrap")
	}
	if main.ReadOpen() {
		t.Fatal("child kept the read side of the main port open")
	}
}

func TestSpawnForkedChildResetsPortIDs(t *testing.T) {
	rt := newTestRuntime(&fakeEngine{})

	// Burn a few ids before the fork.
	rt.NewPort()
	rt.NewPort()
	main := rt.NewPort()
	rt.Transport().Enable(main, port.HandlerTable{port.MsgReady: func(port.Message) {}})
	rt.SetMainPort(main)

	stubFork(t, ForkResult{child: true}, nil)
	stubEuid(t, 1000)
	if _, err := rt.SpawnForked(&RoleInit{Name: "router"}); err != nil {
		t.Fatalf("SpawnForked: %v", err)
	}

	if got := rt.NewPort().ID(); got != 0 {
		t.Fatalf("first post-fork port id = %d, want 0", got)
	}
}

func TestSpawnExec(t *testing.T) {
	mock := &MockSpawner{
		StartFn: func(path string, argv, envp []string) (int, error) {
			if path != "/usr/bin/env" {
				t.Fatalf("path = %q", path)
			}
			return 4242, nil
		},
	}
	rt := NewRuntime(Config{Logger: testLogger(), Spawner: mock})

	pid, err := rt.SpawnExec("/usr/bin/env", []string{"-i"}, nil)
	if err != nil {
		t.Fatalf("SpawnExec: %v", err)
	}
	if pid != 4242 {
		t.Fatalf("pid = %d, want 4242", pid)
	}
	if len(mock.StartCalls) != 1 {
		t.Fatalf("spawner called %d times, want 1", len(mock.StartCalls))
	}
}

func TestSpawnExecFailure(t *testing.T) {
	mock := &MockSpawner{
		StartFn: func(string, []string, []string) (int, error) {
			return 0, errors.New("no such file or directory")
		},
	}
	rt := NewRuntime(Config{Logger: testLogger(), Spawner: mock})

	if _, err := rt.SpawnExec("/nonexistent/binary", nil, nil); err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestExecSpawnerStart(t *testing.T) {
	if _, err := os.Stat("/bin/true"); err != nil {
		t.Skip("/bin/true not available")
	}
	var s ExecSpawner
	pid, err := s.Start("/bin/true", nil, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if pid <= 0 {
		t.Fatalf("pid = %d, want > 0", pid)
	}
}

func TestExecSpawnerStartMissingBinary(t *testing.T) {
	var s ExecSpawner
	if _, err := s.Start("/nonexistent/binary", nil, nil); err == nil {
		t.Fatal("expected error for missing binary")
	}
}
