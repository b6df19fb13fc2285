package wire

import (
	"errors"
	"fmt"
	"io"
	"net"

	"golang.org/x/sys/unix"
)

// Transport frames messages over a Unix stream socket. Received descriptors
// are queued in arrival order and handed out by TakeFD. Outgoing messages are
// buffered until Flush.
//
// A Transport is not safe for concurrent use.
type Transport struct {
	sock *net.UnixConn

	in    []byte
	inFDs []int
	rbuf  []byte
	oob   []byte

	out    []byte
	outFDs []int
}

// NewTransport wraps sock.
func NewTransport(sock *net.UnixConn) *Transport {
	return &Transport{
		sock: sock,
		rbuf: make([]byte, MaxMessageSize),
		oob:  make([]byte, unix.CmsgSpace(MaxFDs*4)),
	}
}

// ReadMessage blocks until a complete message has been received.
func (t *Transport) ReadMessage() (Message, error) {
	for {
		if len(t.in) >= HeaderSize {
			h, err := ParseHeader(t.in)
			if err != nil {
				return Message{}, err
			}
			if len(t.in) >= int(h.Size) {
				body := make([]byte, int(h.Size)-HeaderSize)
				copy(body, t.in[HeaderSize:h.Size])
				t.in = t.in[h.Size:]
				return Message{Header: h, Body: body}, nil
			}
		}

		if err := t.fill(); err != nil {
			return Message{}, err
		}
	}
}

func (t *Transport) fill() error {
	n, oobn, _, _, err := t.sock.ReadMsgUnix(t.rbuf, t.oob)
	if oobn > 0 {
		if perr := t.parseRights(t.oob[:oobn]); perr != nil {
			return perr
		}
	}
	if n > 0 {
		if len(t.in) == 0 {
			t.in = t.in[:0:0]
		}
		t.in = append(t.in, t.rbuf[:n]...)
	}
	if err != nil {
		return err
	}
	if n == 0 && oobn == 0 {
		return io.EOF
	}
	return nil
}

func (t *Transport) parseRights(oob []byte) error {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return fmt.Errorf("parse control message: %w", err)
	}
	for _, msg := range msgs {
		fds, err := unix.ParseUnixRights(&msg)
		if err != nil {
			continue
		}
		t.inFDs = append(t.inFDs, fds...)
	}
	return nil
}

// TakeFD removes and returns the oldest received descriptor.
func (t *Transport) TakeFD() (int, bool) {
	if len(t.inFDs) == 0 {
		return -1, false
	}
	fd := t.inFDs[0]
	t.inFDs = t.inFDs[1:]
	return fd, true
}

// Queue encodes a message and appends it to the output buffer. Descriptor
// arguments are duplicated, so the caller keeps ownership of its own copies.
// The buffer is flushed first when the message would not fit in one write.
func (t *Transport) Queue(sender uint32, opcode uint16, args ...any) error {
	data, fds, err := Encode(sender, opcode, args...)
	if err != nil {
		return err
	}

	if len(t.out)+len(data) > MaxMessageSize || len(t.outFDs)+len(fds) > MaxFDs {
		if err := t.Flush(); err != nil {
			return err
		}
	}

	for _, fd := range fds {
		dup, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
		if err != nil {
			return fmt.Errorf("duplicate descriptor %d: %w", fd, err)
		}
		t.outFDs = append(t.outFDs, dup)
	}
	t.out = append(t.out, data...)
	return nil
}

// Flush writes every queued message. Descriptors are sent with the first
// byte of the batch and closed afterwards.
func (t *Transport) Flush() error {
	if len(t.out) == 0 {
		return nil
	}
	defer t.closeOutFDs()

	var oob []byte
	if len(t.outFDs) > 0 {
		oob = unix.UnixRights(t.outFDs...)
	}

	out := t.out
	t.out = t.out[:0]

	n, _, err := t.sock.WriteMsgUnix(out, oob, nil)
	if err != nil {
		return err
	}
	if n < len(out) {
		if _, err := t.sock.Write(out[n:]); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transport) closeOutFDs() {
	for _, fd := range t.outFDs {
		_ = unix.Close(fd)
	}
	t.outFDs = t.outFDs[:0]
}

// Close closes the socket and any descriptors not yet handed out or sent.
func (t *Transport) Close() error {
	t.closeOutFDs()
	for _, fd := range t.inFDs {
		_ = unix.Close(fd)
	}
	t.inFDs = nil
	t.out = nil

	err := t.sock.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
