// Package wltest runs a scripted Wayland compositor on a Unix socket so the
// client stack can be tested without a real display server. It advertises
// the globals a wdotool session needs, records every request in order and
// answers captures with a known pixel pattern.
package wltest

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/bnema/wdotool/internal/wire"
)

// CaptureMode selects how the compositor answers screencopy requests.
type CaptureMode int

const (
	// CaptureCopy offers a buffer and fills it on copy.
	CaptureCopy CaptureMode = iota
	// CaptureStall never answers capture_output.
	CaptureStall
	// CaptureFail offers a buffer and fails the copy.
	CaptureFail
)

// OutputSpec describes an advertised output.
type OutputSpec struct {
	Name    string
	Width   int32
	Height  int32
	Version uint32
}

// Global is an advertised global.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32

	output int
}

// Call is one request received from a client.
type Call struct {
	Seq       int
	Object    uint32
	Interface string
	Request   string
	Args      []any
}

// Uint returns argument i as a uint32.
func (c Call) Uint(i int) uint32 {
	switch v := c.Args[i].(type) {
	case uint32:
		return v
	case int32:
		return uint32(v)
	case wire.Fixed:
		return uint32(v)
	}
	return 0
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithOutputs replaces the default single 2560x1440 output.
func WithOutputs(outputs ...OutputSpec) Option {
	return func(c *Compositor) { c.outputs = outputs }
}

// WithoutGlobal stops iface from being advertised.
func WithoutGlobal(iface string) Option {
	return func(c *Compositor) { c.omit[iface] = true }
}

// WithGlobalVersion advertises iface at version.
func WithGlobalVersion(iface string, version uint32) Option {
	return func(c *Compositor) { c.versions[iface] = version }
}

// WithCaptureMode sets how captures are answered.
func WithCaptureMode(m CaptureMode) Option {
	return func(c *Compositor) { c.capture = m }
}

// WithCaptureFormat sets the buffer format offered for captures, and
// whether frames are flagged y-inverted.
func WithCaptureFormat(format uint32, yInvert bool) Option {
	return func(c *Compositor) {
		c.format = format
		c.yInvert = yInvert
	}
}

// WithSeatKeymap makes wl_keyboard objects receive keymap.
func WithSeatKeymap(keymap string) Option {
	return func(c *Compositor) { c.seatKeymap = keymap }
}

// WithProtocolError posts a wl_display.error with code on the object that
// sends request on iface.
func WithProtocolError(iface, request string, code uint32) Option {
	return func(c *Compositor) { c.failOn[iface+"."+request] = code }
}

// Compositor is a fake compositor listening on a socket in a temporary
// directory. It is closed by the test cleanup.
type Compositor struct {
	t    testing.TB
	path string
	ln   *net.UnixListener

	outputs    []OutputSpec
	omit       map[string]bool
	versions   map[string]uint32
	capture    CaptureMode
	format     uint32
	yInvert    bool
	seatKeymap string
	failOn     map[string]uint32

	mu      sync.Mutex
	globals []Global
	calls   []Call
	keymaps []string
	clients []*client
	notify  chan struct{}
	closed  bool
	wg      sync.WaitGroup
}

// DefaultGlobals lists the interfaces and versions advertised besides the
// outputs.
var DefaultGlobals = []Global{
	{Interface: "wl_shm", Version: 1},
	{Interface: "wl_seat", Version: 7},
	{Interface: "zwp_virtual_keyboard_manager_v1", Version: 1},
	{Interface: "zwlr_virtual_pointer_manager_v1", Version: 2},
	{Interface: "zwlr_screencopy_manager_v1", Version: 3},
}

// New starts a compositor.
func New(t testing.TB, opts ...Option) *Compositor {
	t.Helper()

	// t.TempDir paths can exceed the sun_path limit for long test names.
	dir, err := os.MkdirTemp("", "wltest-")
	if err != nil {
		t.Fatalf("create socket dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	c := &Compositor{
		t:        t,
		path:     filepath.Join(dir, "wayland-0"),
		outputs:  []OutputSpec{{Name: "DP-1", Width: 2560, Height: 1440}},
		omit:     make(map[string]bool),
		versions: make(map[string]uint32),
		format:   1,
		failOn:   make(map[string]uint32),
		notify:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	var name uint32
	for _, g := range DefaultGlobals {
		if c.omit[g.Interface] {
			continue
		}
		name++
		g.Name = name
		g.output = -1
		if v, ok := c.versions[g.Interface]; ok {
			g.Version = v
		}
		c.globals = append(c.globals, g)
	}
	for i, o := range c.outputs {
		if c.omit["wl_output"] {
			break
		}
		if o.Version == 0 {
			c.outputs[i].Version = 4
		}
		name++
		c.globals = append(c.globals, Global{Name: name, Interface: "wl_output", Version: c.outputs[i].Version, output: i})
	}

	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: c.path, Net: "unix"})
	if err != nil {
		t.Fatalf("listen on %s: %v", c.path, err)
	}
	c.ln = ln

	c.wg.Add(1)
	go c.accept()
	t.Cleanup(c.Close)
	return c
}

// SocketPath returns the absolute path clients connect to.
func (c *Compositor) SocketPath() string { return c.path }

// Globals returns the advertised globals.
func (c *Compositor) Globals() []Global {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.globals)
}

func (c *Compositor) accept() {
	defer c.wg.Done()
	for {
		sock, err := c.ln.AcceptUnix()
		if err != nil {
			return
		}

		cl := newClient(c, sock)
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = sock.Close()
			return
		}
		c.clients = append(c.clients, cl)
		c.mu.Unlock()

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			cl.serve()
		}()
	}
}

// Close stops the compositor and drops every client connection.
func (c *Compositor) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	clients := slices.Clone(c.clients)
	c.mu.Unlock()

	_ = c.ln.Close()
	for _, cl := range clients {
		cl.shutdown()
	}
	c.wg.Wait()
	_ = os.Remove(c.path)
}

func (c *Compositor) record(call Call) Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	call.Seq = len(c.calls)
	c.calls = append(c.calls, call)
	close(c.notify)
	c.notify = make(chan struct{})
	return call
}

func (c *Compositor) recordKeymap(keymap string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keymaps = append(c.keymaps, keymap)
}

// Calls returns every recorded request in arrival order.
func (c *Compositor) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.calls)
}

// CallsTo returns the recorded requests sent to objects of iface.
func (c *Compositor) CallsTo(iface string) []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Call
	for _, call := range c.calls {
		if call.Interface == iface {
			out = append(out, call)
		}
	}
	return out
}

// Keymaps returns the keymaps uploaded by virtual keyboards, without the
// terminating NUL.
func (c *Compositor) Keymaps() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.keymaps)
}

// WaitFor blocks until a client has sent request on iface and returns the
// first such call. The test fails after five seconds.
func (c *Compositor) WaitFor(iface, request string) Call {
	c.t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		c.mu.Lock()
		for _, call := range c.calls {
			if call.Interface == iface && call.Request == request {
				c.mu.Unlock()
				return call
			}
		}
		ch := c.notify
		c.mu.Unlock()

		select {
		case <-ch:
		case <-deadline:
			c.t.Fatalf("timed out waiting for %s.%s", iface, request)
			return Call{}
		}
	}
}

// ResizeOutput announces a new current mode for the named output to every
// client that bound it.
func (c *Compositor) ResizeOutput(name string, width, height int32) error {
	idx := c.outputIndex(name)
	if idx < 0 {
		return fmt.Errorf("no output named %q", name)
	}

	c.mu.Lock()
	c.outputs[idx].Width, c.outputs[idx].Height = width, height
	spec := c.outputs[idx]
	clients := slices.Clone(c.clients)
	c.mu.Unlock()

	var errs []error
	for _, cl := range clients {
		errs = append(errs, cl.resizeOutput(idx, spec))
	}
	return errors.Join(errs...)
}

// RemoveOutput withdraws the named output global.
func (c *Compositor) RemoveOutput(name string) error {
	idx := c.outputIndex(name)
	if idx < 0 {
		return fmt.Errorf("no output named %q", name)
	}

	c.mu.Lock()
	i := slices.IndexFunc(c.globals, func(g Global) bool { return g.Interface == "wl_output" && g.output == idx })
	if i < 0 {
		c.mu.Unlock()
		return fmt.Errorf("output %q already removed", name)
	}
	g := c.globals[i]
	c.globals = slices.Delete(c.globals, i, i+1)
	clients := slices.Clone(c.clients)
	c.mu.Unlock()

	var errs []error
	for _, cl := range clients {
		errs = append(errs, cl.removeGlobal(g.Name))
	}
	return errors.Join(errs...)
}

func (c *Compositor) outputIndex(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.IndexFunc(c.outputs, func(o OutputSpec) bool { return o.Name == name })
}

func (c *Compositor) output(idx int) OutputSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outputs[idx]
}

func (c *Compositor) globalByName(name uint32) (Global, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.globals, func(g Global) bool { return g.Name == name })
	if i < 0 {
		return Global{}, false
	}
	return c.globals[i], true
}
