package process

import (
	"errors"
	"fmt"
	"os"

	"github.com/nginx-gists/unit/internal/credential"
	"github.com/nginx-gists/unit/internal/engine"
	"github.com/nginx-gists/unit/internal/port"
)

// Seams, overridden in tests.
var (
	osExit  = os.Exit
	geteuid = os.Geteuid
)

// bootstrap runs the fixed preparation sequence in a freshly created
// process, before it becomes usable. Any error is fatal to the process:
// the caller must terminate rather than leave a half-initialized worker
// accepting ports or traffic.
func (rt *Runtime) bootstrap(rec *Record) error {
	init := rec.Init()

	setProcessTitle("unit: " + init.Name)
	rt.logger.Info("process started", "role", init.Name, "pid", rt.ctx.Pid())

	rt.seedRandom()

	if init.UserCred != nil && geteuid() == 0 {
		if err := credential.Apply(init.UserCred, rt.logger); err != nil {
			return fmt.Errorf("credential switch: %w", err)
		}
	}

	rt.addType(init.Type)

	rt.eng.SetSignals(init.Signals)

	iface, err := rt.services.Lookup(rt.engineName)
	if err != nil {
		return fmt.Errorf("engine lookup: %w", err)
	}
	if err := rt.eng.Rebind(iface, rt.batch); err != nil {
		return fmt.Errorf("engine rebind: %w", err)
	}

	pool, err := engine.NewThreadPool(rt.auxThreads, engine.AuxIdleTimeout)
	if err != nil {
		return fmt.Errorf("thread pool: %w", err)
	}
	rt.auxPool = pool

	// Directionality lock-down: a worker only writes to the main
	// process over the main port, and only reads from its own first
	// port.
	main := rt.MainPort()
	if main == nil {
		return errors.New("no main port configured")
	}
	rt.transport.CloseRead(main)
	rt.transport.OpenWrite(main)

	first := rec.FirstPort()
	if first == nil {
		return errors.New("process has no port")
	}
	rt.transport.CloseWrite(first)

	if init.Start != nil {
		if err := init.Start(init.Data); err != nil {
			return fmt.Errorf("entry point: %w", err)
		}
	}

	rt.transport.Enable(first, init.PortHandlers)

	if err := rt.transport.Send(main, port.MsgReady, nil, init.Stream); err != nil {
		rt.logger.Error("failed to send ready notification to main", "role", init.Name, "error", err)
		return fmt.Errorf("ready notification: %w", err)
	}

	return nil
}

// AuxPool returns the auxiliary thread pool created at bootstrap, or
// nil before it.
func (rt *Runtime) AuxPool() *engine.ThreadPool {
	return rt.auxPool
}
