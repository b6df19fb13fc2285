package wire

import (
	"fmt"
	"strings"
)

// Encode builds the message sent by object sender with the given opcode.
// Arguments are written in order. Supported argument types are uint32,
// int32, Fixed, ObjectID, NewID, string, []byte and FD. Descriptors are
// returned separately, in argument order, for out of band transmission.
func Encode(sender uint32, opcode uint16, args ...any) ([]byte, []int, error) {
	e := encoder{buf: make([]byte, HeaderSize, 64)}
	for i, arg := range args {
		if err := e.put(arg); err != nil {
			return nil, nil, fmt.Errorf("encode object %d opcode %d argument %d: %w", sender, opcode, i, err)
		}
	}

	if len(e.buf) > MaxMessageSize {
		return nil, nil, fmt.Errorf("encode object %d opcode %d: message size %d exceeds %d", sender, opcode, len(e.buf), MaxMessageSize)
	}

	Header{Sender: sender, Opcode: opcode, Size: uint16(len(e.buf))}.put(e.buf)
	return e.buf, e.fds, nil
}

type encoder struct {
	buf []byte
	fds []int
}

func (e *encoder) put(arg any) error {
	switch v := arg.(type) {
	case uint32:
		e.word(v)
	case int32:
		e.word(uint32(v))
	case Fixed:
		e.word(uint32(v))
	case ObjectID:
		e.word(uint32(v))
	case NewID:
		if v == 0 {
			return fmt.Errorf("new_id must not be zero")
		}
		e.word(uint32(v))
	case string:
		if strings.IndexByte(v, 0) >= 0 {
			return fmt.Errorf("string contains a NUL byte")
		}
		e.word(uint32(len(v) + 1))
		e.buf = append(e.buf, v...)
		e.buf = append(e.buf, 0)
		e.pad(len(v) + 1)
	case []byte:
		e.word(uint32(len(v)))
		e.buf = append(e.buf, v...)
		e.pad(len(v))
	case FD:
		if v < 0 {
			return fmt.Errorf("invalid file descriptor %d", v)
		}
		e.fds = append(e.fds, int(v))
	default:
		return fmt.Errorf("unsupported argument type %T", arg)
	}
	return nil
}

func (e *encoder) word(v uint32) {
	e.buf = byteOrder.AppendUint32(e.buf, v)
}

func (e *encoder) pad(n int) {
	for range padding(n) {
		e.buf = append(e.buf, 0)
	}
}
