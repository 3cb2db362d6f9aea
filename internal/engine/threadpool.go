package engine

import (
	"errors"
	"sync"
	"time"
)

// ErrPoolClosed is returned by Post after Close.
var ErrPoolClosed = errors.New("thread pool closed")

// ThreadPool runs blocking-style work off the main loop. Workers are
// started on demand up to the configured size and exit after sitting
// idle for the pool's timeout.
type ThreadPool struct {
	mu      sync.Mutex
	size    int
	idle    time.Duration
	workers int
	tasks   chan func()
	quit    chan struct{}
	closed  bool
}

// NewThreadPool creates an auxiliary thread pool. size must be positive.
func NewThreadPool(size int, idleTimeout time.Duration) (*ThreadPool, error) {
	if size <= 0 {
		return nil, errors.New("thread pool size must be positive")
	}
	if idleTimeout <= 0 {
		idleTimeout = AuxIdleTimeout
	}
	return &ThreadPool{
		size:  size,
		idle:  idleTimeout,
		tasks: make(chan func(), size),
		quit:  make(chan struct{}),
	}, nil
}

// Post queues fn for execution, spinning up a worker if none is free.
// A Post racing or blocked against Close returns ErrPoolClosed; the
// task channel itself is never closed, so a late sender cannot panic.
func (p *ThreadPool) Post(fn func()) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	if p.workers < p.size {
		p.workers++
		go p.worker()
	}
	p.mu.Unlock()

	select {
	case p.tasks <- fn:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	}
}

func (p *ThreadPool) worker() {
	timer := time.NewTimer(p.idle)
	defer timer.Stop()

	for {
		select {
		case fn := <-p.tasks:
			fn()
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(p.idle)
		case <-p.quit:
			p.drain()
			return
		case <-timer.C:
			p.exitWorker()
			return
		}
	}
}

// drain runs the tasks still buffered at close time, then retires the
// worker.
func (p *ThreadPool) drain() {
	for {
		select {
		case fn := <-p.tasks:
			fn()
		default:
			p.exitWorker()
			return
		}
	}
}

func (p *ThreadPool) exitWorker() {
	p.mu.Lock()
	p.workers--
	p.mu.Unlock()
}

// Workers returns the number of live workers.
func (p *ThreadPool) Workers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers
}

// Close stops accepting work; queued tasks still run and idle workers
// drain out.
func (p *ThreadPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.quit)
}
