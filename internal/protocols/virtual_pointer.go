package protocols

import (
	"github.com/bnema/wdotool/internal/wayland"
	"github.com/bnema/wdotool/internal/wire"
)

// Protocol interface names
const (
	VirtualPointerManagerInterface = "zwlr_virtual_pointer_manager_v1"
	VirtualPointerInterface        = "zwlr_virtual_pointer_v1"
)

const (
	vpManagerCreateVirtualPointer           = 0
	vpManagerDestroy                        = 1
	vpManagerCreateVirtualPointerWithOutput = 2

	vpMotionAbsolute = 1
	vpButton         = 2
	vpFrame          = 4
	vpDestroy        = 8
)

// Button states
const (
	ButtonStateReleased = 0
	ButtonStatePressed  = 1
)

// VirtualPointerManager manages virtual pointer objects
type VirtualPointerManager struct {
	id      uint32
	version uint32
	conn    *wayland.Conn
}

// BindVirtualPointerManager binds the manager global at up to version
func BindVirtualPointerManager(r *wayland.Registry, g wayland.Global, version uint32) (*VirtualPointerManager, error) {
	version = min(version, g.Version)
	id, err := r.Bind(g, version, wayland.NoEvents(VirtualPointerManagerInterface))
	if err != nil {
		return nil, err
	}
	return &VirtualPointerManager{id: id, version: version, conn: r.Conn()}, nil
}

// Version returns the bound version.
func (m *VirtualPointerManager) Version() uint32 { return m.version }

// CreateVirtualPointer creates a new virtual pointer. A nil seat lets the
// compositor choose.
func (m *VirtualPointerManager) CreateVirtualPointer(seat *wayland.Seat) (*VirtualPointer, error) {
	p := m.newPointer()
	if err := m.conn.Send(m.id, vpManagerCreateVirtualPointer, seatArg(seat), wire.NewID(p.id)); err != nil {
		m.conn.Unregister(p.id)
		return nil, err
	}
	return p, nil
}

// CreateVirtualPointerWithOutput creates a pointer whose absolute motion is
// mapped onto output. Managers bound below version 2 ignore the output.
func (m *VirtualPointerManager) CreateVirtualPointerWithOutput(seat *wayland.Seat, output *wayland.Output) (*VirtualPointer, error) {
	if m.version < 2 || output == nil {
		return m.CreateVirtualPointer(seat)
	}
	p := m.newPointer()
	if err := m.conn.Send(m.id, vpManagerCreateVirtualPointerWithOutput, seatArg(seat), wire.ObjectID(output.ID), wire.NewID(p.id)); err != nil {
		m.conn.Unregister(p.id)
		return nil, err
	}
	return p, nil
}

func (m *VirtualPointerManager) newPointer() *VirtualPointer {
	p := &VirtualPointer{id: m.conn.NewID(), conn: m.conn}
	m.conn.Register(p.id, VirtualPointerInterface, wayland.NoEvents(VirtualPointerInterface))
	return p
}

// Destroy destroys the virtual pointer manager
func (m *VirtualPointerManager) Destroy() error {
	return m.conn.Send(m.id, vpManagerDestroy)
}

func seatArg(seat *wayland.Seat) wire.ObjectID {
	if seat == nil {
		return 0
	}
	return wire.ObjectID(seat.ID)
}

// VirtualPointer represents a virtual pointer device
type VirtualPointer struct {
	id   uint32
	conn *wayland.Conn
}

// ID returns the protocol object id.
func (p *VirtualPointer) ID() uint32 { return p.id }

// MotionAbsolute moves to (x, y) within a surface of xExtent by yExtent
func (p *VirtualPointer) MotionAbsolute(time, x, y, xExtent, yExtent uint32) error {
	return p.conn.Send(p.id, vpMotionAbsolute, time, x, y, xExtent, yExtent)
}

// Button sends a button press/release event
func (p *VirtualPointer) Button(time, button, state uint32) error {
	return p.conn.Send(p.id, vpButton, time, button, state)
}

// Frame groups the preceding events into one logical event
func (p *VirtualPointer) Frame() error {
	return p.conn.Send(p.id, vpFrame)
}

// Destroy destroys the virtual pointer
func (p *VirtualPointer) Destroy() error {
	err := p.conn.Send(p.id, vpDestroy)
	p.conn.Unregister(p.id)
	return err
}
