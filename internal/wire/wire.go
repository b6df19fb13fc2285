// Package wire implements the Wayland wire format: message framing,
// argument encoding and decoding, and a Unix socket transport that carries
// file descriptors as ancillary data.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// HeaderSize is the size of the sender/opcode/size prefix of every message.
	HeaderSize = 8

	// MaxMessageSize is the largest message the protocol allows.
	MaxMessageSize = 4096

	// MaxFDs is the largest number of descriptors sent in one sendmsg call.
	MaxFDs = 28
)

// Wayland uses the byte order of the host for every word.
var byteOrder = binary.NativeEndian

// ObjectID is an argument referring to an existing object. Zero is the null
// object.
type ObjectID uint32

// NewID is an argument allocating a new object.
type NewID uint32

// FD is a file descriptor argument. The descriptor travels out of band.
type FD int

// Fixed is a signed 24.8 fixed-point number.
type Fixed int32

// FixedFromFloat converts v to the nearest representable Fixed.
func FixedFromFloat(v float64) Fixed {
	return Fixed(math.Round(v * 256))
}

// FixedFromInt converts a whole number to Fixed.
func FixedFromInt(v int32) Fixed {
	return Fixed(v << 8)
}

// Float returns f as a float64.
func (f Fixed) Float() float64 {
	return float64(f) / 256
}

// Int returns the integral part of f, truncated toward zero.
func (f Fixed) Int() int32 {
	return int32(f) / 256
}

func (f Fixed) String() string {
	return fmt.Sprintf("%g", f.Float())
}

// Header is the eight byte prefix of a message.
type Header struct {
	Sender uint32
	Opcode uint16
	Size   uint16
}

// ParseHeader reads a header from the start of b and validates its size.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, &DecodeError{Reason: fmt.Sprintf("short header: %d bytes", len(b))}
	}

	word := byteOrder.Uint32(b[4:8])
	h := Header{
		Sender: byteOrder.Uint32(b[0:4]),
		Opcode: uint16(word & 0xFFFF),
		Size:   uint16(word >> 16),
	}
	if h.Size < HeaderSize || h.Size%4 != 0 {
		return h, &DecodeError{Sender: h.Sender, Opcode: h.Opcode, Reason: fmt.Sprintf("invalid message size %d", h.Size)}
	}
	return h, nil
}

func (h Header) put(b []byte) {
	byteOrder.PutUint32(b[0:4], h.Sender)
	byteOrder.PutUint32(b[4:8], uint32(h.Size)<<16|uint32(h.Opcode))
}

// Message is a complete message read from the wire. Descriptors carried with
// it are consumed through the transport while decoding.
type Message struct {
	Header
	Body []byte
}

func padding(n int) int {
	return (4 - n%4) % 4
}
