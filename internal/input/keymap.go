package input

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/bnema/wdotool/internal/protocols"
	"github.com/bnema/wdotool/internal/shm"
	"github.com/bnema/wdotool/internal/wayland"
	"github.com/bnema/wdotool/internal/wire"
)

// KeymapSource selects where the virtual keyboard keymap comes from.
type KeymapSource string

const (
	KeymapBuiltin KeymapSource = "builtin"
	KeymapSeat    KeymapSource = "seat"
	KeymapFile    KeymapSource = "file"
)

// ParseKeymapSource validates a configured keymap source. Empty means
// builtin.
func ParseKeymapSource(s string) (KeymapSource, error) {
	switch src := KeymapSource(strings.ToLower(strings.TrimSpace(s))); src {
	case "":
		return KeymapBuiltin, nil
	case KeymapBuiltin, KeymapSeat, KeymapFile:
		return src, nil
	default:
		return "", fmt.Errorf("unknown keymap source %q (want builtin, seat or file)", s)
	}
}

// DefaultKeymap is a minimal XKB keymap covering evdev key codes on a US
// layout.
const DefaultKeymap = `xkb_keymap {
	xkb_keycodes  { include "evdev+aliases(qwerty)"	};
	xkb_types     { include "complete"	};
	xkb_compat    { include "complete"	};
	xkb_symbols   { include "pc+us+inet(evdev)"	};
	xkb_geometry  { include "pc(pc105)"	};
};`

// Keymap is a keymap held in a file that can be sent to the compositor.
type Keymap struct {
	Format uint32
	Size   uint32

	mem    *shm.File
	file   *os.File
	closed bool
}

// NewKeymap copies an XKB keymap into shared memory, NUL terminated.
func NewKeymap(text string) (*Keymap, error) {
	size := len(text) + 1
	mem, err := shm.Create(size)
	if err != nil {
		return nil, fmt.Errorf("allocate keymap: %w", err)
	}
	copy(mem.Bytes(), text)
	mem.Bytes()[len(text)] = 0
	mem.Seal()

	return &Keymap{Format: protocols.KeymapFormatXKBV1, Size: uint32(size), mem: mem}, nil
}

// LoadKeymap reads an XKB keymap file.
func LoadKeymap(path string) (*Keymap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keymap: %w", err)
	}
	data = bytes.TrimRight(data, "\x00")
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("keymap file %s is empty", path)
	}
	return NewKeymap(string(data))
}

// SeatKeymap fetches the keymap the compositor gives the seat's keyboard.
func SeatKeymap(conn *wayland.Conn, seat *wayland.Seat) (*Keymap, error) {
	if !seat.HasKeyboard() {
		return nil, fmt.Errorf("seat %q has no keyboard", seat.Name)
	}

	kb := &seatKeyboard{fd: -1}
	id, err := seat.GetKeyboard(kb)
	if err != nil {
		return nil, err
	}
	if err := conn.DispatchUntil(func() bool { return kb.received }); err != nil {
		return nil, err
	}

	// wl_keyboard.release exists from version 3, otherwise the object stays
	// alive and its events are ignored.
	if seat.Version >= 3 {
		if err := conn.Send(id, keyboardRelease); err != nil {
			kb.close()
			return nil, err
		}
	}

	if kb.format != protocols.KeymapFormatXKBV1 {
		kb.close()
		return nil, fmt.Errorf("seat keyboard has no XKB keymap (format %d)", kb.format)
	}
	return &Keymap{Format: kb.format, Size: kb.size, file: os.NewFile(uintptr(kb.fd), "seat-keymap")}, nil
}

const (
	keyboardRelease = 0

	keyboardEventKeymap     = 0
	keyboardEventEnter      = 1
	keyboardEventLeave      = 2
	keyboardEventKey        = 3
	keyboardEventModifiers  = 4
	keyboardEventRepeatInfo = 5
)

type seatKeyboard struct {
	received bool
	format   uint32
	fd       int
	size     uint32
}

func (k *seatKeyboard) close() {
	if k.fd >= 0 {
		_ = os.NewFile(uintptr(k.fd), "seat-keymap").Close()
		k.fd = -1
	}
}

func (k *seatKeyboard) HandleEvent(d *wire.Decoder) error {
	switch d.Opcode() {
	case keyboardEventKeymap:
		format, fd, size := d.ReadUint(), d.ReadFD(), d.ReadUint()
		if d.Err() != nil {
			return d.Err()
		}
		if k.received {
			// Only the first keymap is used.
			_ = os.NewFile(uintptr(fd), "seat-keymap").Close()
			return nil
		}
		k.received, k.format, k.fd, k.size = true, format, fd, size
	case keyboardEventEnter:
		d.ReadUint()
		d.ReadObject()
		d.ReadArray()
	case keyboardEventLeave:
		d.ReadUint()
		d.ReadObject()
	case keyboardEventKey:
		d.ReadUint()
		d.ReadUint()
		d.ReadUint()
		d.ReadUint()
	case keyboardEventModifiers:
		for range 5 {
			d.ReadUint()
		}
	case keyboardEventRepeatInfo:
		d.ReadInt()
		d.ReadInt()
	default:
		return wire.UnknownOpcode("wl_keyboard", d.Header())
	}
	return nil
}

// Fd returns the descriptor to send with the keymap.
func (k *Keymap) Fd() int {
	if k.mem != nil {
		return k.mem.Fd()
	}
	return int(k.file.Fd())
}

// Close releases the keymap memory. Calling it again does nothing.
func (k *Keymap) Close() error {
	if k.closed {
		return nil
	}
	k.closed = true
	if k.mem != nil {
		return k.mem.Release()
	}
	return k.file.Close()
}
