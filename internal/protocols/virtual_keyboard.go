package protocols

import (
	"fmt"

	"github.com/bnema/wdotool/internal/wayland"
	"github.com/bnema/wdotool/internal/wire"
)

// Protocol interface names for virtual keyboard
const (
	VirtualKeyboardManagerInterface = "zwp_virtual_keyboard_manager_v1"
	VirtualKeyboardInterface        = "zwp_virtual_keyboard_v1"
)

const (
	vkManagerCreateVirtualKeyboard = 0

	vkKeymap  = 0
	vkKey     = 1
	vkDestroy = 3
)

// KeymapFormatXKBV1 is the wl_keyboard keymap format for libxkbcommon
// compatible keymaps.
const KeymapFormatXKBV1 = 1

// Key states
const (
	KeyStateReleased = 0
	KeyStatePressed  = 1
)

// VirtualKeyboardManager manages virtual keyboard objects
type VirtualKeyboardManager struct {
	id   uint32
	conn *wayland.Conn
}

// BindVirtualKeyboardManager binds the manager global
func BindVirtualKeyboardManager(r *wayland.Registry, g wayland.Global) (*VirtualKeyboardManager, error) {
	id, err := r.Bind(g, 1, wayland.NoEvents(VirtualKeyboardManagerInterface))
	if err != nil {
		return nil, err
	}
	return &VirtualKeyboardManager{id: id, conn: r.Conn()}, nil
}

// CreateVirtualKeyboard creates a new virtual keyboard on seat
func (m *VirtualKeyboardManager) CreateVirtualKeyboard(seat *wayland.Seat) (*VirtualKeyboard, error) {
	k := &VirtualKeyboard{id: m.conn.NewID(), conn: m.conn}

	// zwp_virtual_keyboard_v1 has no events
	m.conn.Register(k.id, VirtualKeyboardInterface, wayland.NoEvents(VirtualKeyboardInterface))
	if err := m.conn.Send(m.id, vkManagerCreateVirtualKeyboard, wire.ObjectID(seat.ID), wire.NewID(k.id)); err != nil {
		m.conn.Unregister(k.id)
		return nil, err
	}
	return k, nil
}

// VirtualKeyboard represents a virtual keyboard device
type VirtualKeyboard struct {
	id   uint32
	conn *wayland.Conn
}

// ID returns the protocol object id.
func (k *VirtualKeyboard) ID() uint32 { return k.id }

// Keymap uploads the keyboard mapping. fd is duplicated for sending.
func (k *VirtualKeyboard) Keymap(format uint32, fd int, size uint32) error {
	if fd < 0 {
		return fmt.Errorf("invalid file descriptor: %d", fd)
	}
	return k.conn.Send(k.id, vkKeymap, format, wire.FD(fd), size)
}

// Key sends a key press/release event. key is a raw evdev code.
func (k *VirtualKeyboard) Key(time, key, state uint32) error {
	return k.conn.Send(k.id, vkKey, time, key, state)
}

// Destroy destroys the virtual keyboard
func (k *VirtualKeyboard) Destroy() error {
	err := k.conn.Send(k.id, vkDestroy)
	k.conn.Unregister(k.id)
	return err
}
