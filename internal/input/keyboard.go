package input

import (
	"errors"

	"github.com/bnema/wdotool/internal/logger"
	"github.com/bnema/wdotool/internal/protocols"
)

// ErrKeyboardNotInitialized is returned for key events sent before a
// keymap was uploaded.
var ErrKeyboardNotInitialized = errors.New("virtual keyboard has no keymap")

// Keyboard injects key events through a virtual keyboard.
type Keyboard struct {
	vk     *protocols.VirtualKeyboard
	clock  Clock
	keymap *Keymap
}

// NewKeyboard wraps vk. Key events fail until SetKeymap succeeds.
func NewKeyboard(vk *protocols.VirtualKeyboard, clock Clock) *Keyboard {
	return &Keyboard{vk: vk, clock: clock}
}

// SetKeymap uploads km. The keyboard owns km from then on and keeps it
// mapped until Close.
func (k *Keyboard) SetKeymap(km *Keymap) error {
	if err := k.vk.Keymap(km.Format, km.Fd(), km.Size); err != nil {
		return err
	}
	if k.keymap != nil {
		_ = k.keymap.Close()
	}
	k.keymap = km
	logger.Debug("keymap uploaded", "size", km.Size)
	return nil
}

// Ready reports whether a keymap has been uploaded.
func (k *Keyboard) Ready() bool { return k.keymap != nil }

// Key sends a press or release of an evdev key code.
func (k *Keyboard) Key(code uint32, pressed bool) error {
	if k.keymap == nil {
		return ErrKeyboardNotInitialized
	}
	state := uint32(protocols.KeyStateReleased)
	if pressed {
		state = protocols.KeyStatePressed
	}
	return k.vk.Key(k.clock(), code, state)
}

// Close destroys the virtual keyboard and releases its keymap.
func (k *Keyboard) Close() error {
	err := k.vk.Destroy()
	if k.keymap != nil {
		err = errors.Join(err, k.keymap.Close())
	}
	return err
}
