// Package capture grabs single frames of an output through wlr screencopy
// into shared memory and converts them to RGBA.
package capture

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bnema/wdotool/internal/logger"
	"github.com/bnema/wdotool/internal/protocols"
	"github.com/bnema/wdotool/internal/shm"
	"github.com/bnema/wdotool/internal/wayland"
)

var (
	// ErrCaptureFailed is returned when the compositor fails the frame, the
	// output is gone, or the offered buffer cannot be used.
	ErrCaptureFailed = errors.New("screen capture failed")

	// ErrCaptureInProgress is returned when a capture is started while
	// another one is running.
	ErrCaptureInProgress = errors.New("screen capture already in progress")
)

// Frame is a captured image, tightly packed RGBA from top to bottom.
type Frame struct {
	Width        int
	Height       int
	Stride       int
	Format       string
	SourceFormat uint32
	Timestamp    time.Time
	Pix          []byte
}

// Client captures outputs. Only one capture runs at a time.
type Client struct {
	conn    *wayland.Conn
	manager *protocols.ScreencopyManager
	shm     *wayland.Shm

	// OverlayCursor composites the cursor into captured frames.
	OverlayCursor bool

	busy  atomic.Bool
	state atomic.Int32
}

// NewClient returns a capture client.
func NewClient(conn *wayland.Conn, manager *protocols.ScreencopyManager, shm *wayland.Shm) *Client {
	return &Client{conn: conn, manager: manager, shm: shm}
}

// State returns the state of the current or most recent capture.
func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(next State) {
	prev := c.State()
	if !prev.CanTransition(next) {
		logger.Warn("unexpected capture transition", "from", prev, "to", next)
	}
	c.state.Store(int32(next))
	logger.Debug("capture state", "from", prev, "to", next)
}

// Region is a rectangle of an output in logical coordinates.
type Region struct {
	X, Y          int32
	Width, Height int32
}

func (r Region) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Capture grabs one frame of out. All shared memory and protocol objects
// used by the capture are released before it returns.
func (c *Client) Capture(out *wayland.Output) (*Frame, error) {
	return c.capture(out, nil)
}

// CaptureRegion grabs one frame of a rectangle of out. The compositor clips
// the rectangle to the output, so the frame may be smaller than asked for.
func (c *Client) CaptureRegion(out *wayland.Output, region Region) (*Frame, error) {
	if region.Width <= 0 || region.Height <= 0 {
		return nil, fmt.Errorf("%w: empty region %s", ErrCaptureFailed, region)
	}
	return c.capture(out, &region)
}

func (c *Client) capture(out *wayland.Output, region *Region) (*Frame, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrCaptureInProgress
	}
	defer c.busy.Store(false)

	c.state.Store(int32(StateIdle))
	if out.Lost() {
		return nil, fmt.Errorf("%w: output %s is no longer available", ErrCaptureFailed, out.Name)
	}

	r := &request{client: c, output: out, region: region}
	defer r.release()

	frame, err := r.run()
	if err != nil && errors.Is(err, ErrCaptureFailed) {
		c.setState(StateFailed)
	}
	return frame, err
}

type offer struct {
	format, width, height, stride uint32
}

// request holds the objects of one capture until release.
type request struct {
	client *Client
	output *wayland.Output
	region *Region

	frame  *protocols.ScreencopyFrame
	file   *shm.File
	pool   *wayland.ShmPool
	buffer *wayland.Buffer

	offers     []offer
	bufferDone bool
	flags      uint32
	ready      bool
	failed     bool
	sec        uint64
	nsec       uint32
}

func (r *request) offered() bool {
	if r.frame.Version() >= 3 {
		return r.bufferDone
	}
	return len(r.offers) > 0
}

func (r *request) run() (*Frame, error) {
	c := r.client

	var (
		frame *protocols.ScreencopyFrame
		err   error
	)
	if r.region != nil {
		g := r.region
		frame, err = c.manager.CaptureOutputRegion(c.OverlayCursor, r.output, g.X, g.Y, g.Width, g.Height)
	} else {
		frame, err = c.manager.CaptureOutput(c.OverlayCursor, r.output)
	}
	if err != nil {
		return nil, err
	}
	r.frame = frame
	frame.Buffer = func(format, width, height, stride uint32) {
		r.offers = append(r.offers, offer{format, width, height, stride})
	}
	frame.BufferDone = func() { r.bufferDone = true }
	frame.Flags = func(flags uint32) { r.flags = flags }
	frame.Ready = func(sec uint64, nsec uint32) {
		r.ready, r.sec, r.nsec = true, sec, nsec
	}
	frame.Failed = func() { r.failed = true }
	c.setState(StateRequested)

	if err := c.conn.DispatchUntil(func() bool { return r.failed || r.offered() }); err != nil {
		return nil, err
	}
	if r.failed {
		return nil, fmt.Errorf("%w: compositor failed the frame of output %s", ErrCaptureFailed, r.output.Name)
	}

	o, ok := r.choose()
	if !ok {
		return nil, fmt.Errorf("%w: no usable shm buffer offered for output %s", ErrCaptureFailed, r.output.Name)
	}
	if err := r.allocate(o); err != nil {
		return nil, err
	}
	c.setState(StateBufferOffered)

	if err := frame.Copy(r.buffer); err != nil {
		return nil, err
	}
	c.setState(StateCopying)

	if err := c.conn.DispatchUntil(func() bool { return r.failed || r.ready || r.output.Lost() }); err != nil {
		return nil, err
	}
	switch {
	case r.output.Lost():
		return nil, fmt.Errorf("%w: output %s changed during capture", ErrCaptureFailed, r.output.Name)
	case r.failed:
		return nil, fmt.Errorf("%w: compositor failed the copy of output %s", ErrCaptureFailed, r.output.Name)
	}

	pix, err := ToRGBA(r.file.Bytes(), int(o.width), int(o.height), int(o.stride), o.format, r.flags&protocols.FrameFlagYInvert != 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	c.setState(StateReady)

	return &Frame{
		Width:        int(o.width),
		Height:       int(o.height),
		Stride:       int(o.width) * 4,
		Format:       "RGBA8888",
		SourceFormat: o.format,
		Timestamp:    time.Unix(int64(r.sec), int64(r.nsec)),
		Pix:          pix,
	}, nil
}

// choose picks the first offer in a format that can be converted.
func (r *request) choose() (offer, bool) {
	for _, o := range r.offers {
		if !Supported(o.format) || o.width == 0 || o.height == 0 || o.stride < o.width*4 {
			logger.Debug("skipping screencopy buffer offer", "format", FormatName(o.format), "width", o.width, "height", o.height, "stride", o.stride)
			continue
		}
		return o, true
	}
	return offer{}, false
}

func (r *request) allocate(o offer) error {
	size := int(o.stride) * int(o.height)
	file, err := shm.Create(size)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	r.file = file

	r.pool, err = r.client.shm.CreatePool(file.Fd(), int32(size))
	if err != nil {
		return err
	}
	r.buffer, err = r.pool.CreateBuffer(0, int32(o.width), int32(o.height), int32(o.stride), o.format)
	return err
}

// release destroys everything the capture created. Errors are logged: the
// connection may already be gone.
func (r *request) release() {
	var errs []error
	if r.frame != nil {
		errs = append(errs, r.frame.Destroy())
	}
	if r.buffer != nil {
		errs = append(errs, r.buffer.Destroy())
	}
	if r.pool != nil {
		errs = append(errs, r.pool.Destroy())
	}
	if r.file != nil {
		errs = append(errs, r.file.Release())
	}
	if err := errors.Join(errs...); err != nil {
		logger.Debug("capture cleanup", "err", err)
	}
}
