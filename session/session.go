// Package session drives a Wayland compositor the way a user would: it
// moves the pointer, clicks, presses keys and takes screenshots, using the
// virtual keyboard, wlr virtual pointer and wlr screencopy protocols.
//
// A Session serializes its operations. Each operation returns once the
// compositor has processed every request it sent.
package session

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/wdotool/internal/capture"
	"github.com/bnema/wdotool/internal/input"
	"github.com/bnema/wdotool/internal/logger"
	"github.com/bnema/wdotool/internal/protocols"
	"github.com/bnema/wdotool/internal/sampler"
	"github.com/bnema/wdotool/internal/sequence"
	"github.com/bnema/wdotool/internal/wayland"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

type (
	// Frame is a captured screenshot in RGBA.
	Frame = capture.Frame
	// Region is a rectangle of an output.
	Region = capture.Region
	// Value is an action parameter, exact or sampled from a range.
	Value = sampler.Value
	// Button is a pointer button code.
	Button = input.Button
	// Global is a compositor global.
	Global = wayland.Global
	// KeymapSource selects the virtual keyboard keymap.
	KeymapSource = input.KeymapSource
)

// Keymap sources.
const (
	KeymapBuiltin = input.KeymapBuiltin
	KeymapSeat    = input.KeymapSeat
	KeymapFile    = input.KeymapFile
)

// Pointer buttons.
const (
	ButtonLeft   = input.ButtonLeft
	ButtonRight  = input.ButtonRight
	ButtonMiddle = input.ButtonMiddle
)

// ParseButton accepts left, right or middle.
func ParseButton(s string) (Button, error) { return input.ParseButton(s) }

// ParseKeyCode accepts an evdev key code or a key name.
func ParseKeyCode(s string) (uint32, error) { return input.ParseKeyCode(s) }

// Exact returns a parameter that is used as given.
func Exact(p uint32) Value { return sampler.Exact(p) }

// Range returns a parameter sampled between p and pMax.
func Range(p, pMax uint32) Value { return sampler.Range(p, pMax) }

var requirements = []wayland.Requirement{
	{Interface: "wl_shm", MinVersion: 1, MaxVersion: 1},
	{Interface: "wl_seat", MinVersion: 1, MaxVersion: wayland.SeatMaxVersion},
	{Interface: protocols.VirtualKeyboardManagerInterface, MinVersion: 1, MaxVersion: 1},
	{Interface: protocols.VirtualPointerManagerInterface, MinVersion: 1, MaxVersion: 2},
	{Interface: protocols.ScreencopyManagerInterface, MinVersion: 1, MaxVersion: 3},
}

// OutputInfo describes an output as last reported by the compositor.
type OutputInfo struct {
	Name        string
	Description string
	Make        string
	Model       string
	X, Y        int32
	Width       int32
	Height      int32
	Refresh     int32
	Scale       int32
	Transform   int32
	Lost        bool
}

// Session is a connection to a compositor with a virtual keyboard, a
// virtual pointer and a capture client. It is safe for concurrent use;
// operations run one at a time, except that button and key holds let other
// operations run while they sleep.
type Session struct {
	mu        sync.Mutex
	capturing atomic.Bool

	id   string
	opts options
	log  *log.Logger

	conn     *wayland.Conn
	registry *wayland.Registry
	seat     *wayland.Seat
	shm      *wayland.Shm
	outputs  []*wayland.Output
	pointers *protocols.VirtualPointerManager
	frames   *protocols.ScreencopyManager
	keyboard *input.Keyboard
	pointer  *input.Pointer
	capture  *capture.Client
	closed   bool
}

// Open connects to the compositor, binds every required global and uploads
// the keyboard keymap.
func Open(opts ...Option) (*Session, error) {
	o := options{
		keymap:    input.KeymapBuiltin,
		selection: SelectFirst,
		sleep:     time.Sleep,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sampler == nil {
		o.sampler = sampler.New(nil)
	}

	conn, err := wayland.Dial(o.display)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	s := &Session{
		id:   id,
		opts: o,
		log:  logger.Logger.With("session", id[:8]),
		conn: conn,
	}
	if err := s.setup(); err != nil {
		if s.keyboard != nil {
			_ = s.keyboard.Close()
		}
		_ = conn.Close()
		return nil, err
	}
	s.log.Debug("session ready", "outputs", len(s.outputs), "seat", s.seat.Name)
	return s, nil
}

func (s *Session) setup() error {
	reg, err := wayland.GetRegistry(s.conn)
	if err != nil {
		return err
	}
	globals, err := reg.Require(requirements...)
	if err != nil {
		return err
	}
	s.registry = reg
	reg.OnRemove = s.globalRemoved

	version := func(iface string) uint32 {
		i := slices.IndexFunc(requirements, func(r wayland.Requirement) bool { return r.Interface == iface })
		return requirements[i].Version(globals[iface])
	}

	if s.seat, err = wayland.BindSeat(reg, globals["wl_seat"], version("wl_seat")); err != nil {
		return err
	}
	if s.shm, err = wayland.BindShm(reg, globals["wl_shm"]); err != nil {
		return err
	}
	vkm, err := protocols.BindVirtualKeyboardManager(reg, globals[protocols.VirtualKeyboardManagerInterface])
	if err != nil {
		return err
	}
	if s.pointers, err = protocols.BindVirtualPointerManager(reg, globals[protocols.VirtualPointerManagerInterface], version(protocols.VirtualPointerManagerInterface)); err != nil {
		return err
	}
	if s.frames, err = protocols.BindScreencopyManager(reg, globals[protocols.ScreencopyManagerInterface], version(protocols.ScreencopyManagerInterface)); err != nil {
		return err
	}
	for _, g := range reg.FindAll("wl_output") {
		out, err := wayland.BindOutput(reg, g)
		if err != nil {
			return err
		}
		s.outputs = append(s.outputs, out)
	}

	if err := s.conn.RoundTrip(); err != nil {
		return err
	}
	if err := s.conn.DispatchUntil(s.outputsReady); err != nil {
		return err
	}

	clock := input.SinceClock(time.Now())

	vk, err := vkm.CreateVirtualKeyboard(s.seat)
	if err != nil {
		return err
	}
	s.keyboard = input.NewKeyboard(vk, clock)
	km, err := s.loadKeymap()
	if err != nil {
		return err
	}
	if err := s.keyboard.SetKeymap(km); err != nil {
		_ = km.Close()
		return err
	}

	vp, err := s.createPointer()
	if err != nil {
		return err
	}
	s.pointer = input.NewPointer(vp, clock)

	s.capture = capture.NewClient(s.conn, s.frames, s.shm)
	s.capture.OverlayCursor = s.opts.overlayCursor

	return s.conn.RoundTrip()
}

func (s *Session) createPointer() (*protocols.VirtualPointer, error) {
	name := s.opts.pointerOutput
	if name == "" {
		return s.pointers.CreateVirtualPointer(s.seat)
	}
	if v := s.pointers.Version(); v < 2 {
		return nil, &wayland.UnsupportedError{Interface: protocols.VirtualPointerManagerInterface, Want: 2, Got: v}
	}
	i := slices.IndexFunc(s.outputs, func(o *wayland.Output) bool { return o.Name == name })
	if i < 0 {
		return nil, fmt.Errorf("%w: no output named %q", ErrPointer, name)
	}
	s.log.Debug("pointer mapped to output", "output", name)
	return s.pointers.CreateVirtualPointerWithOutput(s.seat, s.outputs[i])
}

func (s *Session) outputsReady() bool {
	for _, o := range s.outputs {
		if !o.Ready() {
			return false
		}
	}
	return true
}

func (s *Session) loadKeymap() (*input.Keymap, error) {
	switch s.opts.keymap {
	case input.KeymapSeat:
		return input.SeatKeymap(s.conn, s.seat)
	case input.KeymapFile:
		if s.opts.keymapFile == "" {
			return nil, errors.New("keymap source is file but no keymap file is set")
		}
		return input.LoadKeymap(s.opts.keymapFile)
	default:
		return input.NewKeymap(input.DefaultKeymap)
	}
}

func (s *Session) globalRemoved(g wayland.Global) {
	if g.Interface != "wl_output" {
		s.log.Warn("compositor withdrew a global", "interface", g.Interface)
		return
	}
	i := slices.IndexFunc(s.outputs, func(o *wayland.Output) bool { return o.GlobalName == g.Name })
	if i < 0 {
		return
	}
	s.outputs[i].MarkRemoved()
	s.outputs = slices.Delete(s.outputs, i, i+1)
}

// ID returns a unique identifier for the session, used in logs.
func (s *Session) ID() string { return s.id }

func (s *Session) usable() error {
	if s.closed {
		return fmt.Errorf("%w: session closed", ErrConnection)
	}
	return s.conn.Err()
}

func (s *Session) sequence() *sequence.Sequence {
	return sequence.New(s.conn, sequence.WithSleep(s.opts.sleep), sequence.WithLocker(&s.mu))
}

// MoveMouse places the pointer at (x, y) on a surface of xExtent by
// yExtent.
func (s *Session) MoveMouse(xExtent, yExtent uint32, x, y Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}

	px, py := s.opts.sampler.Sample(x), s.opts.sampler.Sample(y)
	s.log.Debug("move mouse", "x", px, "y", py, "extent", fmt.Sprintf("%dx%d", xExtent, yExtent))

	return s.sequence().
		Do("move", func() error { return s.pointer.MoveAbsolute(xExtent, yExtent, px, py) }).
		Sync().
		Run()
}

// Click presses b, holds it for the sampled duration in milliseconds and
// releases it.
func (s *Session) Click(b Button, d Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}

	hold := s.opts.sampler.Duration(d)
	s.log.Debug("click", "button", b, "hold", hold)

	return s.sequence().
		Press(b.String()+" button",
			func() error { return s.pointer.Button(b, true) },
			func() error { return s.pointer.Button(b, false) },
			hold).
		Run()
}

// LeftClick clicks the left button.
func (s *Session) LeftClick(d Value) error { return s.Click(ButtonLeft, d) }

// RightClick clicks the right button.
func (s *Session) RightClick(d Value) error { return s.Click(ButtonRight, d) }

// MiddleClick clicks the middle button.
func (s *Session) MiddleClick(d Value) error { return s.Click(ButtonMiddle, d) }

// KeyPress presses the evdev key code, holds it for the sampled duration in
// milliseconds and releases it.
func (s *Session) KeyPress(code uint32, d Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}

	hold := s.opts.sampler.Duration(d)
	s.log.Debug("key press", "code", code, "hold", hold)

	return s.sequence().
		Press(fmt.Sprintf("key %d", code),
			func() error { return s.keyboard.Key(code, true) },
			func() error { return s.keyboard.Key(code, false) },
			hold).
		Run()
}

// Screenshot captures the named output, or the default one when name is
// empty. A second Screenshot started while one is running fails with
// ErrCaptureInProgress instead of waiting.
func (s *Session) Screenshot(name string) (*Frame, error) {
	return s.screenshot(name, nil)
}

// ScreenshotRegion captures a rectangle of the named output, in the
// output's logical coordinates. The compositor clips the rectangle to the
// output.
func (s *Session) ScreenshotRegion(name string, region Region) (*Frame, error) {
	return s.screenshot(name, &region)
}

func (s *Session) screenshot(name string, region *Region) (*Frame, error) {
	if !s.capturing.CompareAndSwap(false, true) {
		return nil, ErrCaptureInProgress
	}
	defer s.capturing.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return nil, err
	}

	// Drop outputs removed or resized since the last roundtrip.
	if err := s.conn.RoundTrip(); err != nil {
		return nil, err
	}
	out, err := s.selectOutput(name)
	if err != nil {
		return nil, err
	}

	if region != nil {
		s.log.Debug("screenshot", "output", out.Name, "region", region)
		return s.capture.CaptureRegion(out, *region)
	}
	s.log.Debug("screenshot", "output", out.Name, "size", fmt.Sprintf("%dx%d", out.Width, out.Height))
	return s.capture.Capture(out)
}

func (s *Session) selectOutput(name string) (*wayland.Output, error) {
	if name == "" {
		name = s.opts.output
	}
	if name != "" {
		for _, o := range s.outputs {
			if o.Name == name {
				return o, nil
			}
		}
		return nil, fmt.Errorf("%w: no output named %q", ErrCaptureFailed, name)
	}

	switch {
	case len(s.outputs) == 0:
		return nil, fmt.Errorf("%w: compositor has no outputs", ErrCaptureFailed)
	case len(s.outputs) > 1 && s.opts.selection == SelectStrict:
		return nil, fmt.Errorf("%w: %d outputs available, name one of them", ErrCaptureFailed, len(s.outputs))
	}
	return s.outputs[0], nil
}

// Outputs lists the outputs in advertisement order.
func (s *Session) Outputs() []OutputInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]OutputInfo, 0, len(s.outputs))
	for _, o := range s.outputs {
		infos = append(infos, OutputInfo{
			Name:        o.Name,
			Description: o.Description,
			Make:        o.Make,
			Model:       o.Model,
			X:           o.X,
			Y:           o.Y,
			Width:       o.Width,
			Height:      o.Height,
			Refresh:     o.Refresh,
			Scale:       o.Scale,
			Transform:   o.Transform,
			Lost:        o.Lost(),
		})
	}
	return infos
}

// Globals lists every global the compositor advertises.
func (s *Session) Globals() []Global {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Globals()
}

// Close destroys the virtual devices, releases the keymap and closes the
// connection. Calling it again does nothing.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	alive := s.conn.Err() == nil
	errs := []error{s.keyboard.Close(), s.pointer.Close(), s.pointers.Destroy(), s.frames.Destroy()}
	for _, o := range s.outputs {
		errs = append(errs, o.Release())
	}
	errs = append(errs, s.seat.Release(), s.conn.Flush())

	err := errors.Join(errs...)
	if !alive {
		err = nil
	}
	return errors.Join(err, s.conn.Close())
}
