package input

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/wdotool/internal/protocols"
)

// ErrPointer is returned for pointer actions that cannot be expressed.
var ErrPointer = errors.New("virtual pointer error")

// Button is a Linux input event button code.
type Button uint32

const (
	ButtonLeft   Button = 0x110
	ButtonRight  Button = 0x111
	ButtonMiddle Button = 0x112
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	case ButtonMiddle:
		return "middle"
	default:
		return fmt.Sprintf("button(%#x)", uint32(b))
	}
}

// ParseButton accepts left, right or middle.
func ParseButton(s string) (Button, error) {
	switch strings.ToLower(s) {
	case "left", "":
		return ButtonLeft, nil
	case "right":
		return ButtonRight, nil
	case "middle":
		return ButtonMiddle, nil
	default:
		return 0, fmt.Errorf("%w: unknown button %q", ErrPointer, s)
	}
}

// Pointer injects motion and button events through a virtual pointer. Every
// event is followed by a frame.
type Pointer struct {
	vp    *protocols.VirtualPointer
	clock Clock
}

// NewPointer wraps vp.
func NewPointer(vp *protocols.VirtualPointer, clock Clock) *Pointer {
	return &Pointer{vp: vp, clock: clock}
}

// MoveAbsolute places the pointer at (x, y) on a surface of xExtent by
// yExtent. Coordinates are clamped into [0, extent).
func (p *Pointer) MoveAbsolute(xExtent, yExtent, x, y uint32) error {
	if xExtent == 0 || yExtent == 0 {
		return fmt.Errorf("%w: extent %dx%d must be non-zero", ErrPointer, xExtent, yExtent)
	}
	x = min(x, xExtent-1)
	y = min(y, yExtent-1)

	if err := p.vp.MotionAbsolute(p.clock(), x, y, xExtent, yExtent); err != nil {
		return err
	}
	return p.vp.Frame()
}

// Button presses or releases b.
func (p *Pointer) Button(b Button, pressed bool) error {
	state := uint32(protocols.ButtonStateReleased)
	if pressed {
		state = protocols.ButtonStatePressed
	}
	if err := p.vp.Button(p.clock(), uint32(b), state); err != nil {
		return err
	}
	return p.vp.Frame()
}

// Close destroys the virtual pointer.
func (p *Pointer) Close() error {
	return p.vp.Destroy()
}
