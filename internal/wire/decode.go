package wire

import "fmt"

// FDSource supplies descriptors received alongside message bytes.
type FDSource interface {
	TakeFD() (int, bool)
}

// Decoder reads the arguments of one message in order. The first failure is
// sticky: later reads return zero values and Err reports the original
// problem.
type Decoder struct {
	hdr  Header
	body []byte
	off  int
	fds  FDSource
	err  error
}

// NewDecoder returns a decoder over m. fds may be nil when the message
// carries no descriptors.
func NewDecoder(m Message, fds FDSource) *Decoder {
	return &Decoder{hdr: m.Header, body: m.Body, fds: fds}
}

// Header returns the header of the message being decoded.
func (d *Decoder) Header() Header { return d.hdr }

// Opcode returns the opcode of the message being decoded.
func (d *Decoder) Opcode() uint16 { return d.hdr.Opcode }

// Err returns the first decode failure, if any.
func (d *Decoder) Err() error { return d.err }

// Finish reports the first decode failure, or an error if arguments remain
// unread.
func (d *Decoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if d.off != len(d.body) {
		d.fail(fmt.Sprintf("%d trailing bytes", len(d.body)-d.off))
	}
	return d.err
}

func (d *Decoder) fail(reason string) {
	if d.err == nil {
		d.err = &DecodeError{Sender: d.hdr.Sender, Opcode: d.hdr.Opcode, Reason: reason}
	}
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.body)-d.off < n {
		d.fail(fmt.Sprintf("need %d bytes at offset %d, have %d", n, d.off, len(d.body)-d.off))
		return nil
	}
	b := d.body[d.off : d.off+n]
	d.off += n
	return b
}

// ReadUint reads a uint argument.
func (d *Decoder) ReadUint() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return byteOrder.Uint32(b)
}

// ReadInt reads an int argument.
func (d *Decoder) ReadInt() int32 {
	return int32(d.ReadUint())
}

// ReadFixed reads a fixed argument.
func (d *Decoder) ReadFixed() Fixed {
	return Fixed(d.ReadUint())
}

// ReadObject reads an object argument. Zero is the null object.
func (d *Decoder) ReadObject() uint32 {
	return d.ReadUint()
}

// ReadNewID reads a new_id argument.
func (d *Decoder) ReadNewID() uint32 {
	id := d.ReadUint()
	if id == 0 && d.err == nil {
		d.fail("zero new_id")
	}
	return id
}

// ReadString reads a string argument. A null string reads as "".
func (d *Decoder) ReadString() string {
	n := int(d.ReadUint())
	if n == 0 {
		return ""
	}
	b := d.take(n + padding(n))
	if b == nil {
		return ""
	}
	if b[n-1] != 0 {
		d.fail("string is not NUL terminated")
		return ""
	}
	return string(b[:n-1])
}

// ReadArray reads an array argument. The returned slice is a copy.
func (d *Decoder) ReadArray() []byte {
	n := int(d.ReadUint())
	b := d.take(n + padding(n))
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// ReadFD takes the next received descriptor. The caller owns it.
func (d *Decoder) ReadFD() int {
	if d.err != nil {
		return -1
	}
	if d.fds == nil {
		d.fail("missing file descriptor")
		return -1
	}
	fd, ok := d.fds.TakeFD()
	if !ok {
		d.fail("missing file descriptor")
		return -1
	}
	return fd
}
