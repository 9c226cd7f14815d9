package socket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeHandle lets tests fire connection events by hand.
type fakeHandle struct {
	mu           sync.Mutex
	onConnect    []func()
	onDisconnect []func()
	disconnects  int
	opens        int
	err          error
	panics       bool
}

func (f *fakeHandle) OnConnect(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onConnect = append(f.onConnect, fn)
}

func (f *fakeHandle) OnDisconnect(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDisconnect = append(f.onDisconnect, fn)
}

func (f *fakeHandle) Disconnect() error {
	f.mu.Lock()
	f.disconnects++
	f.mu.Unlock()
	if f.panics {
		panic("transport exploded")
	}
	return f.err
}

func (f *fakeHandle) connect() {
	f.mu.Lock()
	fns := append([]func(){}, f.onConnect...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (f *fakeHandle) disconnect() {
	f.mu.Lock()
	fns := append([]func(){}, f.onDisconnect...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (f *fakeHandle) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

// openingHandle records Open calls and the observers present at that time.
type openingHandle struct {
	fakeHandle
	observersAtOpen int
}

func (o *openingHandle) Open(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens++
	o.observersAtOpen = len(o.onConnect) + len(o.onDisconnect)
	return nil
}

// countingFactory hands out h and counts constructions.
type countingFactory struct {
	h     Handle
	calls int
	url   string
	opts  Options
}

func (c *countingFactory) build(baseURL string, opts Options) (Handle, error) {
	c.calls++
	c.url = baseURL
	c.opts = opts
	return c.h, nil
}

func newTestProvider(h Handle) (*Provider, *countingFactory) {
	f := &countingFactory{h: h}
	return NewProvider("wss://example.test", DefaultOptions(), f.build, nil), f
}

func TestProvider_InitialState(t *testing.T) {
	h := &fakeHandle{}
	p, _ := newTestProvider(h)

	if got := p.Value(); got != (Value{}) {
		t.Errorf("before mount Value = %+v, want zero", got)
	}

	if err := p.Mount(context.Background()); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}

	got := p.Accessor()()
	if got.Connected {
		t.Error("connected should be false before any connect event")
	}
	if got.Handle != h {
		t.Errorf("Handle = %v, want the constructed handle", got.Handle)
	}
}

func TestProvider_ConnectDisconnect(t *testing.T) {
	h := &fakeHandle{}
	p, _ := newTestProvider(h)
	if err := p.Mount(context.Background()); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	get := p.Accessor()

	h.connect()
	if v := get(); !v.Connected || v.Handle == nil {
		t.Errorf("after connect Value = %+v, want connected with handle", v)
	}

	h.disconnect()
	v := get()
	if v.Connected {
		t.Error("after disconnect connected should be false")
	}
	if v.Handle != h {
		t.Error("disconnect must not clear the handle")
	}

	// The cycle repeats for transport-level reconnects.
	h.connect()
	if !get().Connected {
		t.Error("reconnect should set connected again")
	}
}

// eagerHandle connects while its observers are still being registered.
type eagerHandle struct {
	fakeHandle
	provider *Provider
	seen     Value
}

func (e *eagerHandle) OnDisconnect(fn func()) {
	e.fakeHandle.OnDisconnect(fn)
	e.connect()
	e.seen = e.provider.Value()
}

func TestProvider_ConnectBeforePublish(t *testing.T) {
	h := &eagerHandle{}
	p, _ := newTestProvider(h)
	h.provider = p

	updates, cancel := p.Subscribe()
	defer cancel()
	if v := recv(t, updates); v != (Value{}) {
		t.Fatalf("initial snapshot = %+v, want zero", v)
	}

	if err := p.Mount(context.Background()); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}

	if h.seen.Connected || h.seen.Handle != nil {
		t.Errorf("Value before publish = %+v, want zero", h.seen)
	}

	v := recv(t, updates)
	if v.Handle != h || !v.Connected {
		t.Errorf("published Value = %+v, want connected with handle", v)
	}
	if got := p.Value(); got.Handle != h || !got.Connected {
		t.Errorf("Value = %+v, want connected with handle", got)
	}
}

func TestProvider_MountOnce(t *testing.T) {
	h := &openingHandle{}
	p, factory := newTestProvider(h)

	for i := 0; i < 5; i++ {
		if err := p.Mount(context.Background()); err != nil {
			t.Fatalf("Mount #%d failed: %v", i, err)
		}
	}

	if factory.calls != 1 {
		t.Errorf("factory called %d times, want 1", factory.calls)
	}
	if h.opens != 1 {
		t.Errorf("Open called %d times, want 1", h.opens)
	}
	if h.observersAtOpen != 2 {
		t.Errorf("observers at open = %d, want 2", h.observersAtOpen)
	}
	if factory.url != "wss://example.test" || factory.opts.Path != DefaultPath || factory.opts.AddTrailingSlash {
		t.Errorf("factory got %q %+v", factory.url, factory.opts)
	}
}

func TestProvider_ConcurrentMount(t *testing.T) {
	h := &fakeHandle{}
	var mu sync.Mutex
	calls := 0
	p := NewProvider("wss://example.test", DefaultOptions(), func(string, Options) (Handle, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return h, nil
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Mount(context.Background())
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("factory called %d times, want 1", calls)
	}
}

func TestProvider_MountError(t *testing.T) {
	boom := errors.New("bad endpoint")
	calls := 0
	p := NewProvider("wss://example.test", DefaultOptions(), func(string, Options) (Handle, error) {
		calls++
		return nil, boom
	}, nil)

	if err := p.Mount(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Mount error = %v, want %v", err, boom)
	}
	if err := p.Mount(context.Background()); !errors.Is(err, boom) {
		t.Errorf("second Mount error = %v, want %v", err, boom)
	}
	if calls != 1 {
		t.Errorf("factory called %d times, want 1", calls)
	}
	if got := p.Value(); got != (Value{}) {
		t.Errorf("Value = %+v, want zero", got)
	}

	p.Unmount()
}

func TestProvider_Unmount(t *testing.T) {
	tests := []struct {
		name   string
		handle *fakeHandle
		events func(*fakeHandle)
	}{
		{"never connected", &fakeHandle{}, func(*fakeHandle) {}},
		{"connected", &fakeHandle{}, func(h *fakeHandle) { h.connect() }},
		{"disconnect error", &fakeHandle{err: errors.New("already gone")}, func(h *fakeHandle) { h.connect() }},
		{"disconnect panics", &fakeHandle{panics: true}, func(*fakeHandle) {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestProvider(tt.handle)
			if err := p.Mount(context.Background()); err != nil {
				t.Fatalf("Mount failed: %v", err)
			}
			tt.events(tt.handle)

			p.Unmount()
			p.Unmount()

			if n := tt.handle.disconnectCount(); n != 1 {
				t.Errorf("Disconnect called %d times, want 1", n)
			}
		})
	}
}

func TestProvider_UnmountBeforeMount(t *testing.T) {
	h := &fakeHandle{}
	p, factory := newTestProvider(h)

	p.Unmount()
	if err := p.Mount(context.Background()); !errors.Is(err, ErrUnmounted) {
		t.Errorf("Mount after Unmount error = %v, want ErrUnmounted", err)
	}
	if factory.calls != 0 {
		t.Errorf("factory called %d times, want 0", factory.calls)
	}
	if h.disconnectCount() != 0 {
		t.Error("no handle should have been disconnected")
	}
}

func TestProvider_Subscribe(t *testing.T) {
	h := &fakeHandle{}
	p, _ := newTestProvider(h)

	ch, cancel := p.Subscribe()
	defer cancel()

	if v := recv(t, ch); v != (Value{}) {
		t.Errorf("first snapshot = %+v, want zero", v)
	}

	if err := p.Mount(context.Background()); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	if v := recv(t, ch); v.Handle != h || v.Connected {
		t.Errorf("after mount = %+v", v)
	}

	h.connect()
	if v := recv(t, ch); !v.Connected {
		t.Errorf("after connect = %+v", v)
	}

	// Repeated events with no change are not republished.
	h.connect()
	h.connect()
	select {
	case v := <-ch:
		t.Errorf("unexpected snapshot %+v for unchanged state", v)
	default:
	}

	h.disconnect()
	if v := recv(t, ch); v.Connected {
		t.Errorf("after disconnect = %+v", v)
	}

	p.Unmount()
	if _, ok := <-ch; ok {
		t.Error("subscription should be closed after Unmount")
	}
}

func TestProvider_SubscribeLatestWins(t *testing.T) {
	h := &fakeHandle{}
	p, _ := newTestProvider(h)
	if err := p.Mount(context.Background()); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}

	ch, cancel := p.Subscribe()
	h.connect()
	h.disconnect()
	h.connect()

	if v := recv(t, ch); !v.Connected {
		t.Errorf("slow reader got %+v, want latest (connected)", v)
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("subscription should be closed after cancel")
	}
}

func TestProvider_Scenario(t *testing.T) {
	h := &fakeHandle{}
	p := NewProvider("wss://example.test", DefaultOptions(), func(string, Options) (Handle, error) {
		return h, nil
	}, nil)
	if err := p.Mount(context.Background()); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	ctx := NewContext(context.Background(), p.Accessor())

	h.connect()
	if !FromContext(ctx).Connected {
		t.Error("connected should be true after connect")
	}
	h.disconnect()
	if FromContext(ctx).Connected {
		t.Error("connected should be false after disconnect")
	}

	p.Unmount()
	if n := h.disconnectCount(); n != 1 {
		t.Errorf("Disconnect called %d times, want 1", n)
	}
}

func TestFromContext_NoProvider(t *testing.T) {
	if got := FromContext(context.Background()); got != (Value{}) {
		t.Errorf("FromContext = %+v, want zero", got)
	}
}

func recv(t *testing.T, ch <-chan Value) Value {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("subscription closed")
		}
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Value{}
}
