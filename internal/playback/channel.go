package playback

import (
	"errors"
	"sync"
)

// Message is one inbound message and the origin it claims to come from.
type Message struct {
	Origin string
	Data   []byte
}

// Channel is the host side of a message link to a remote player frame.
// Delivery is best effort in both directions.
type Channel interface {
	Post(data []byte) error
	Listen(fn func(Message)) (stop func())
}

// ErrDropped is returned by Post when a message could not be queued.
var ErrDropped = errors.New("playback: message dropped")

const pipeBuffer = 64

// Pipe is an in-memory Channel pair. Messages are delivered in order on a
// goroutine per direction, never on the sender's stack.
type Pipe struct {
	origin string

	mu       sync.Mutex
	closed   bool
	hostFns  map[int]func(Message)
	frameFns map[int]func([]byte)
	nextID   int

	toFrame chan []byte
	toHost  chan []byte
}

// NewPipe creates a Pipe whose frame end reports origin on every message.
func NewPipe(origin string) *Pipe {
	p := &Pipe{
		origin:   origin,
		hostFns:  make(map[int]func(Message)),
		frameFns: make(map[int]func([]byte)),
		toFrame:  make(chan []byte, pipeBuffer),
		toHost:   make(chan []byte, pipeBuffer),
	}
	go p.pump(p.toFrame, func(b []byte) {
		for _, fn := range p.frameHandlers() {
			fn(b)
		}
	})
	go p.pump(p.toHost, func(b []byte) {
		msg := Message{Origin: p.origin, Data: b}
		for _, fn := range p.hostHandlers() {
			fn(msg)
		}
	})
	return p
}

func (p *Pipe) pump(ch chan []byte, deliver func([]byte)) {
	for b := range ch {
		deliver(b)
	}
}

// Host returns the end used by an Embedded player.
func (p *Pipe) Host() Channel { return hostEnd{p} }

// Frame returns the end used by the remote frame.
func (p *Pipe) Frame() *FrameEnd { return &FrameEnd{p} }

// Close stops delivery. Queued messages are still delivered.
func (p *Pipe) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.toFrame)
	close(p.toHost)
	p.mu.Unlock()
	return nil
}

func (p *Pipe) send(ch chan []byte, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrDropped
	}
	b := append([]byte(nil), data...)
	select {
	case ch <- b:
		return nil
	default:
		return ErrDropped
	}
}

func (p *Pipe) hostHandlers() []func(Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fns := make([]func(Message), 0, len(p.hostFns))
	for _, fn := range p.hostFns {
		fns = append(fns, fn)
	}
	return fns
}

func (p *Pipe) frameHandlers() []func([]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fns := make([]func([]byte), 0, len(p.frameFns))
	for _, fn := range p.frameFns {
		fns = append(fns, fn)
	}
	return fns
}

type hostEnd struct{ p *Pipe }

func (h hostEnd) Post(data []byte) error { return h.p.send(h.p.toFrame, data) }

func (h hostEnd) Listen(fn func(Message)) func() {
	p := h.p
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.hostFns[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.hostFns, id)
		p.mu.Unlock()
	}
}

func (h hostEnd) Close() error { return h.p.Close() }

// FrameEnd is the remote side of a Pipe.
type FrameEnd struct{ p *Pipe }

// Send delivers data to the host, stamped with the pipe's origin.
func (f *FrameEnd) Send(data []byte) error { return f.p.send(f.p.toHost, data) }

// Handle registers fn for messages posted by the host.
func (f *FrameEnd) Handle(fn func([]byte)) (stop func()) {
	p := f.p
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.frameFns[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.frameFns, id)
		p.mu.Unlock()
	}
}
