package socket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrUnmounted is returned by Mount once the provider has been torn down.
var ErrUnmounted = errors.New("provider unmounted")

// Value is an immutable snapshot of the provider state. The zero Value
// (no handle, not connected) is the state before mount.
type Value struct {
	Handle    Handle
	Connected bool
}

// Provider owns one connection handle for the lifetime of a mount.
type Provider struct {
	baseURL string
	opts    Options
	factory Factory
	logger  *slog.Logger

	mountOnce   sync.Once
	mountErr    error
	unmountOnce sync.Once

	mu        sync.Mutex
	value     Value
	pending   bool // connection state reported before the handle was published
	unmounted bool
	subs      map[int]chan Value
	nextSub   int
}

// NewProvider creates a provider that will build its handle from baseURL and opts.
func NewProvider(baseURL string, opts Options, factory Factory, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		baseURL: baseURL,
		opts:    opts,
		factory: factory,
		logger:  logger,
		subs:    make(map[int]chan Value),
	}
}

// Mount builds the handle, wires its events and publishes it. Only the first
// call does any work; later calls return the first call's result.
func (p *Provider) Mount(ctx context.Context) error {
	p.mountOnce.Do(func() {
		p.mountErr = p.mount(ctx)
	})
	return p.mountErr
}

func (p *Provider) mount(ctx context.Context) error {
	p.mu.Lock()
	gone := p.unmounted
	p.mu.Unlock()
	if gone {
		return ErrUnmounted
	}

	h, err := p.factory(p.baseURL, p.opts)
	if err != nil {
		return fmt.Errorf("build socket handle: %w", err)
	}
	if h == nil {
		return errors.New("build socket handle: factory returned nil")
	}

	// Observers go in before anyone can see the handle.
	h.OnConnect(func() { p.setConnected(true) })
	h.OnDisconnect(func() { p.setConnected(false) })

	p.mu.Lock()
	if p.unmounted {
		p.mu.Unlock()
		p.release(h)
		return ErrUnmounted
	}
	p.update(Value{Handle: h, Connected: p.pending})
	p.mu.Unlock()

	p.logger.Debug("socket handle mounted", "base_url", p.baseURL, "path", p.opts.Path)

	if o, ok := h.(Opener); ok {
		if err := o.Open(ctx); err != nil {
			return fmt.Errorf("open socket: %w", err)
		}
	}
	return nil
}

// Unmount disconnects the handle exactly once. It never fails and never
// panics, whether or not the handle ever connected.
func (p *Provider) Unmount() {
	p.unmountOnce.Do(func() {
		p.mu.Lock()
		p.unmounted = true
		h := p.value.Handle
		for id, ch := range p.subs {
			delete(p.subs, id)
			close(ch)
		}
		p.mu.Unlock()

		if h != nil {
			p.release(h)
		}
	})
}

func (p *Provider) release(h Handle) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Debug("socket disconnect panicked", "panic", r)
		}
	}()
	if err := h.Disconnect(); err != nil {
		p.logger.Debug("socket disconnect failed", "error", err)
	}
}

// Value returns the current snapshot.
func (p *Provider) Value() Value {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Accessor returns a zero-argument lookup of the current snapshot.
func (p *Provider) Accessor() func() Value {
	return p.Value
}

// Subscribe returns a channel that receives the current snapshot and then
// every change to it. Slow readers only see the latest snapshot. The channel
// is closed by cancel or Unmount.
func (p *Provider) Subscribe() (<-chan Value, func()) {
	ch := make(chan Value, 1)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.unmounted {
		close(ch)
		return ch, func() {}
	}

	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	ch <- p.value

	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if c, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(c)
		}
	}
}

func (p *Provider) setConnected(connected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.value.Handle == nil {
		// Never report connected without a handle.
		p.pending = connected
		return
	}
	p.update(Value{Handle: p.value.Handle, Connected: connected})
}

// update replaces the snapshot and notifies subscribers if anything changed.
// Caller holds p.mu.
func (p *Provider) update(v Value) {
	if v == p.value {
		return
	}
	p.value = v
	for _, ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}
