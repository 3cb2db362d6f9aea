package process

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/nginx-gists/unit/internal/engine"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEngine records engine interactions and can be told to fail
// rebinding.
type fakeEngine struct {
	mu        sync.Mutex
	backend   engine.Interface
	batch     int
	signals   engine.SignalSet
	adoptions int
	rebindErr error
}

func (e *fakeEngine) Rebind(iface engine.Interface, batch int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rebindErr != nil {
		return e.rebindErr
	}
	e.backend = iface
	e.batch = batch
	return nil
}

func (e *fakeEngine) SetSignals(set engine.SignalSet) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.signals = set
}

func (e *fakeEngine) AdoptThread() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.adoptions++
}

func (e *fakeEngine) adopted() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.adoptions
}

func newTestRuntime(eng engine.Engine) *Runtime {
	return NewRuntime(Config{
		Logger: testLogger(),
		Engine: eng,
	})
}

func stubFork(t *testing.T, res ForkResult, err error) {
	t.Helper()
	orig := forkProcess
	t.Cleanup(func() { forkProcess = orig })
	forkProcess = func() (ForkResult, error) { return res, err }
}

func stubExit(t *testing.T) *int {
	t.Helper()
	orig := osExit
	t.Cleanup(func() { osExit = orig })
	code := -1
	osExit = func(c int) { code = c }
	return &code
}

func stubEuid(t *testing.T, euid int) {
	t.Helper()
	orig := geteuid
	t.Cleanup(func() { geteuid = orig })
	geteuid = func() int { return euid }
}
