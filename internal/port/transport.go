package port

import (
	"errors"
	"fmt"
)

// ErrWriteClosed is returned by Send on a port whose write side is shut.
var ErrWriteClosed = errors.New("port write side closed")

// Transport is the wire layer consumed by the process core. Encoding and
// read/write scheduling live behind it; the core only locks directions
// down, enables handler dispatch, and sends control messages.
type Transport interface {
	OpenWrite(p *Port)
	CloseWrite(p *Port)
	CloseRead(p *Port)
	Enable(p *Port, handlers HandlerTable)
	Send(p *Port, kind MsgKind, payload []byte, stream uint32) error
}

// LocalTransport is an in-process Transport: messages sent to a port are
// queued on it and dispatched synchronously once the port is enabled.
// It backs single-process operation and tests; a socket-based transport
// satisfies the same interface in multi-process deployments.
type LocalTransport struct{}

// NewLocalTransport creates a LocalTransport.
func NewLocalTransport() *LocalTransport {
	return &LocalTransport{}
}

// OpenWrite enables the write side of p.
func (t *LocalTransport) OpenWrite(p *Port) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeOpen = true
}

// CloseWrite shuts the write side of p. A worker closes the write side
// of its own first port: it only ever reads from it.
func (t *LocalTransport) CloseWrite(p *Port) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeOpen = false
}

// CloseRead shuts the read side of p. A worker closes the read side of
// the main-process port: it only ever reports to main over it.
func (t *LocalTransport) CloseRead(p *Port) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readOpen = false
}

// Enable installs the handler table and replays any messages queued
// before the port was enabled.
func (t *LocalTransport) Enable(p *Port, handlers HandlerTable) {
	p.mu.Lock()
	p.handlers = handlers
	queued := p.queued
	p.queued = nil
	p.mu.Unlock()

	for _, msg := range queued {
		dispatch(handlers, msg)
	}
}

// Send queues or dispatches a message on p.
func (t *LocalTransport) Send(p *Port, kind MsgKind, payload []byte, stream uint32) error {
	msg := Message{Kind: kind, Stream: stream, Payload: payload}

	p.mu.Lock()
	if !p.writeOpen {
		p.mu.Unlock()
		return fmt.Errorf("port %d:%d: %w", p.pid, p.id, ErrWriteClosed)
	}
	handlers := p.handlers
	if handlers == nil {
		p.queued = append(p.queued, msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	dispatch(handlers, msg)
	return nil
}

func dispatch(handlers HandlerTable, msg Message) {
	if h, ok := handlers[msg.Kind]; ok && h != nil {
		h(msg)
	}
}
