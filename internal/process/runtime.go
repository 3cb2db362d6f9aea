package process

import (
	crand "crypto/rand"
	"encoding/binary"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/nginx-gists/unit/internal/engine"
	"github.com/nginx-gists/unit/internal/events"
	"github.com/nginx-gists/unit/internal/metrics"
	"github.com/nginx-gists/unit/internal/port"
)

// Config assembles a Runtime.
type Config struct {
	EngineName string // event-engine backend to bind at bootstrap
	Batch      int    // engine batch size
	AuxThreads int    // auxiliary thread pool size

	Logger    *slog.Logger
	Services  *engine.Registry
	Engine    engine.Engine
	Transport port.Transport
	Spawner   Spawner
	Bus       *events.Bus        // optional
	Metrics   *metrics.Collector // optional
}

// Runtime owns the process table and everything a process needs to
// spawn, bootstrap, and track its peers.
type Runtime struct {
	ctx   *Context
	table *Table

	typesMu sync.Mutex
	types   uint32 // active role-type bitmap

	engineName string
	batch      int
	auxThreads int

	services  *engine.Registry
	eng       engine.Engine
	transport port.Transport
	spawner   Spawner

	portIDs  port.IDAllocator
	mainMu   sync.Mutex
	mainPort *port.Port

	auxPool *engine.ThreadPool

	randMu sync.Mutex
	rand   *rand.Rand

	logger  *slog.Logger
	bus     *events.Bus
	metrics *metrics.Collector
}

// NewRuntime creates a runtime for the current process.
func NewRuntime(cfg Config) *Runtime {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	services := cfg.Services
	if services == nil {
		services = engine.NewRegistry()
		services.Register(engine.PollBackend{})
	}
	eng := cfg.Engine
	if eng == nil {
		eng = engine.NewLoop()
	}
	transport := cfg.Transport
	if transport == nil {
		transport = port.NewLocalTransport()
	}
	spawner := cfg.Spawner
	if spawner == nil {
		spawner = &ExecSpawner{}
	}
	engineName := cfg.EngineName
	if engineName == "" {
		engineName = "poll"
	}
	batch := cfg.Batch
	if batch <= 0 {
		batch = 32
	}
	auxThreads := cfg.AuxThreads
	if auxThreads <= 0 {
		auxThreads = 2
	}

	return &Runtime{
		ctx:        NewContext(),
		table:      NewTable(),
		engineName: engineName,
		batch:      batch,
		auxThreads: auxThreads,
		services:   services,
		eng:        eng,
		transport:  transport,
		spawner:    spawner,
		logger:     logger,
		bus:        cfg.Bus,
		metrics:    cfg.Metrics,
	}
}

// Ctx returns the cached identity of the current process.
func (rt *Runtime) Ctx() *Context { return rt.ctx }

// Table returns the runtime process table.
func (rt *Runtime) Table() *Table { return rt.table }

// Transport returns the port transport.
func (rt *Runtime) Transport() port.Transport { return rt.transport }

// Engine returns the per-process engine handle.
func (rt *Runtime) Engine() engine.Engine { return rt.eng }

// NewPort allocates a port owned by the current process.
func (rt *Runtime) NewPort() *port.Port {
	return port.New(rt.ctx.Pid(), rt.portIDs.Next())
}

// MainPort returns the communication port to the main process, or nil.
func (rt *Runtime) MainPort() *port.Port {
	rt.mainMu.Lock()
	defer rt.mainMu.Unlock()
	return rt.mainPort
}

// SetMainPort installs the main-process communication port.
func (rt *Runtime) SetMainPort(p *port.Port) {
	rt.mainMu.Lock()
	defer rt.mainMu.Unlock()
	rt.mainPort = p
}

// HasType reports whether a role of type t is active in this process.
func (rt *Runtime) HasType(t Type) bool {
	rt.typesMu.Lock()
	defer rt.typesMu.Unlock()
	return rt.types&t.Bit() != 0
}

func (rt *Runtime) addType(t Type) {
	rt.typesMu.Lock()
	defer rt.typesMu.Unlock()
	rt.types |= t.Bit()
}

func (rt *Runtime) resetTypes() {
	rt.typesMu.Lock()
	defer rt.typesMu.Unlock()
	rt.types = 0
}

// AttachPort associates p with r in the table and keeps the registered
// ports gauge current.
func (rt *Runtime) AttachPort(r *Record, p *port.Port) {
	rt.table.AttachPort(r, p)
	if rt.metrics != nil {
		rt.metrics.PortsRegistered.Inc()
		p.Pool().OnCleanup(func() { rt.metrics.PortsRegistered.Dec() })
	}
}

// RegisterSelf records the current process in the table under init,
// with a first port attached and the role type active. Used by the
// top-level coordinating process, which is never spawned and so never
// passes through a spawn path.
func (rt *Runtime) RegisterSelf(init *RoleInit) *Record {
	rec := NewRecord(init)
	rec.setPid(rt.ctx.Pid())
	rec.setReady(true)
	rt.AttachPort(rec, rt.NewPort())
	rt.table.Add(rec)
	rt.tableChanged()
	rt.addType(init.Type)
	return rec
}

// Rand returns the process-local random generator, seeding it on first
// use.
func (rt *Runtime) Rand() *rand.Rand {
	rt.randMu.Lock()
	defer rt.randMu.Unlock()
	if rt.rand == nil {
		rt.rand = newSeededRand(rt.ctx.Pid())
	}
	return rt.rand
}

func (rt *Runtime) seedRandom() {
	rt.randMu.Lock()
	defer rt.randMu.Unlock()
	rt.rand = newSeededRand(rt.ctx.Pid())
}

func newSeededRand(pid int) *rand.Rand {
	var buf [16]byte
	if _, err := crand.Read(buf[:]); err != nil {
		// Degraded seeding; the generator is not used for secrets.
		binary.LittleEndian.PutUint64(buf[:8], uint64(pid))
	}
	s1 := binary.LittleEndian.Uint64(buf[:8]) ^ uint64(pid)
	s2 := binary.LittleEndian.Uint64(buf[8:])
	return rand.New(rand.NewPCG(s1, s2))
}

func (rt *Runtime) tableChanged() {
	if rt.metrics != nil {
		rt.metrics.SetTableSize(rt.table.Len())
	}
}

func (rt *Runtime) publish(t events.EventType, data map[string]string) {
	if rt.bus != nil {
		rt.bus.Publish(events.Event{Type: t, Data: data})
	}
}
