package wire

import (
	"errors"
	"fmt"
)

// ErrDecode is matched by every DecodeError.
var ErrDecode = errors.New("protocol decode error")

// DecodeError reports a malformed message or one whose arguments do not
// match the signature of its opcode.
type DecodeError struct {
	Sender uint32
	Opcode uint16
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode message for object %d opcode %d: %s", e.Sender, e.Opcode, e.Reason)
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// UnknownOpcode returns the error for an event whose opcode the receiving
// interface does not define.
func UnknownOpcode(iface string, h Header) error {
	return &DecodeError{
		Sender: h.Sender,
		Opcode: h.Opcode,
		Reason: fmt.Sprintf("unknown %s opcode", iface),
	}
}
