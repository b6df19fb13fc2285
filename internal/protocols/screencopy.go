package protocols

import (
	"github.com/bnema/wdotool/internal/wayland"
	"github.com/bnema/wdotool/internal/wire"
)

// Protocol interface names for wlr screencopy
const (
	ScreencopyManagerInterface = "zwlr_screencopy_manager_v1"
	ScreencopyFrameInterface   = "zwlr_screencopy_frame_v1"
)

const (
	scManagerCaptureOutput       = 0
	scManagerCaptureOutputRegion = 1
	scManagerDestroy             = 2

	scFrameCopy    = 0
	scFrameDestroy = 1

	scFrameEventBuffer      = 0
	scFrameEventFlags       = 1
	scFrameEventReady       = 2
	scFrameEventFailed      = 3
	scFrameEventDamage      = 4
	scFrameEventLinuxDmabuf = 5
	scFrameEventBufferDone  = 6
)

// FrameFlagYInvert marks a frame whose rows arrive bottom to top.
const FrameFlagYInvert = 1

// ScreencopyManager creates capture frames for outputs
type ScreencopyManager struct {
	id      uint32
	version uint32
	conn    *wayland.Conn
}

// BindScreencopyManager binds the manager global at up to version
func BindScreencopyManager(r *wayland.Registry, g wayland.Global, version uint32) (*ScreencopyManager, error) {
	version = min(version, g.Version)
	id, err := r.Bind(g, version, wayland.NoEvents(ScreencopyManagerInterface))
	if err != nil {
		return nil, err
	}
	return &ScreencopyManager{id: id, version: version, conn: r.Conn()}, nil
}

// Version returns the bound version.
func (m *ScreencopyManager) Version() uint32 { return m.version }

// CaptureOutput requests a frame of the whole output. Set the frame
// callbacks before dispatching.
func (m *ScreencopyManager) CaptureOutput(overlayCursor bool, output *wayland.Output) (*ScreencopyFrame, error) {
	f := m.newFrame()
	if err := m.conn.Send(m.id, scManagerCaptureOutput, wire.NewID(f.id), boolArg(overlayCursor), wire.ObjectID(output.ID)); err != nil {
		m.conn.Unregister(f.id)
		return nil, err
	}
	return f, nil
}

// CaptureOutputRegion requests a frame of a region of the output, in
// output logical coordinates.
func (m *ScreencopyManager) CaptureOutputRegion(overlayCursor bool, output *wayland.Output, x, y, width, height int32) (*ScreencopyFrame, error) {
	f := m.newFrame()
	if err := m.conn.Send(m.id, scManagerCaptureOutputRegion, wire.NewID(f.id), boolArg(overlayCursor), wire.ObjectID(output.ID), x, y, width, height); err != nil {
		m.conn.Unregister(f.id)
		return nil, err
	}
	return f, nil
}

func (m *ScreencopyManager) newFrame() *ScreencopyFrame {
	f := &ScreencopyFrame{id: m.conn.NewID(), version: m.version, conn: m.conn}
	m.conn.Register(f.id, ScreencopyFrameInterface, f)
	return f
}

// Destroy destroys the manager. Frames already created stay valid.
func (m *ScreencopyManager) Destroy() error {
	return m.conn.Send(m.id, scManagerDestroy)
}

func boolArg(v bool) int32 {
	if v {
		return 1
	}
	return 0
}

// ScreencopyFrame is one capture request. Events are delivered through the
// callback fields, which may be left nil.
type ScreencopyFrame struct {
	id      uint32
	version uint32
	conn    *wayland.Conn

	Buffer      func(format, width, height, stride uint32)
	Flags       func(flags uint32)
	Ready       func(sec uint64, nsec uint32)
	Failed      func()
	Damage      func(x, y, width, height uint32)
	LinuxDmabuf func(format, width, height uint32)
	BufferDone  func()

	destroyed bool
}

// ID returns the protocol object id.
func (f *ScreencopyFrame) ID() uint32 { return f.id }

// Version returns the version of the manager that created the frame.
// Version 3 frames announce every buffer type before buffer_done.
func (f *ScreencopyFrame) Version() uint32 { return f.version }

func (f *ScreencopyFrame) HandleEvent(d *wire.Decoder) error {
	switch d.Opcode() {
	case scFrameEventBuffer:
		format, w, h, stride := d.ReadUint(), d.ReadUint(), d.ReadUint(), d.ReadUint()
		if d.Err() == nil && f.Buffer != nil {
			f.Buffer(format, w, h, stride)
		}
	case scFrameEventFlags:
		flags := d.ReadUint()
		if d.Err() == nil && f.Flags != nil {
			f.Flags(flags)
		}
	case scFrameEventReady:
		hi, lo, nsec := d.ReadUint(), d.ReadUint(), d.ReadUint()
		if d.Err() == nil && f.Ready != nil {
			f.Ready(uint64(hi)<<32|uint64(lo), nsec)
		}
	case scFrameEventFailed:
		if f.Failed != nil {
			f.Failed()
		}
	case scFrameEventDamage:
		x, y, w, h := d.ReadUint(), d.ReadUint(), d.ReadUint(), d.ReadUint()
		if d.Err() == nil && f.Damage != nil {
			f.Damage(x, y, w, h)
		}
	case scFrameEventLinuxDmabuf:
		format, w, h := d.ReadUint(), d.ReadUint(), d.ReadUint()
		if d.Err() == nil && f.LinuxDmabuf != nil {
			f.LinuxDmabuf(format, w, h)
		}
	case scFrameEventBufferDone:
		if f.BufferDone != nil {
			f.BufferDone()
		}
	default:
		return wire.UnknownOpcode(ScreencopyFrameInterface, d.Header())
	}
	return d.Err()
}

// Copy asks the compositor to copy the frame into buffer.
func (f *ScreencopyFrame) Copy(buffer *wayland.Buffer) error {
	return f.conn.Send(f.id, scFrameCopy, wire.ObjectID(buffer.ID))
}

// Destroy destroys the frame. Calling it again does nothing.
func (f *ScreencopyFrame) Destroy() error {
	if f.destroyed {
		return nil
	}
	f.destroyed = true
	err := f.conn.Send(f.id, scFrameDestroy)
	f.conn.Unregister(f.id)
	return err
}
