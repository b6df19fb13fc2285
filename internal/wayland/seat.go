package wayland

import (
	"github.com/bnema/wdotool/internal/wire"
)

const (
	seatGetPointer  = 0
	seatGetKeyboard = 1
	seatRelease     = 3

	seatEventCapabilities = 0
	seatEventName         = 1

	// SeatMaxVersion is the highest wl_seat version the client handles.
	SeatMaxVersion = 7
)

// Seat capabilities.
const (
	SeatCapabilityPointer  = 1
	SeatCapabilityKeyboard = 2
	SeatCapabilityTouch    = 4
)

// Seat is a bound wl_seat.
type Seat struct {
	ID           uint32
	Version      uint32
	Name         string
	Capabilities uint32

	conn *Conn
}

// BindSeat binds a seat global.
func BindSeat(r *Registry, g Global, version uint32) (*Seat, error) {
	s := &Seat{Version: min(version, g.Version, SeatMaxVersion), conn: r.conn}
	id, err := r.Bind(g, s.Version, s)
	if err != nil {
		return nil, err
	}
	s.ID = id
	return s, nil
}

func (s *Seat) HandleEvent(d *wire.Decoder) error {
	switch d.Opcode() {
	case seatEventCapabilities:
		s.Capabilities = d.ReadUint()
	case seatEventName:
		s.Name = d.ReadString()
	default:
		return wire.UnknownOpcode("wl_seat", d.Header())
	}
	return nil
}

// HasKeyboard reports whether the seat advertised a keyboard.
func (s *Seat) HasKeyboard() bool {
	return s.Capabilities&SeatCapabilityKeyboard != 0
}

// GetKeyboard creates a wl_keyboard for the seat with events routed to h.
func (s *Seat) GetKeyboard(h EventHandler) (uint32, error) {
	id := s.conn.NewID()
	s.conn.Register(id, "wl_keyboard", h)
	if err := s.conn.Send(s.ID, seatGetKeyboard, wire.NewID(id)); err != nil {
		s.conn.Unregister(id)
		return 0, err
	}
	return id, nil
}

// Release destroys the seat object when the bound version allows it.
func (s *Seat) Release() error {
	if s.Version < 5 {
		return nil
	}
	return s.conn.Send(s.ID, seatRelease)
}
