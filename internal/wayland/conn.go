// Package wayland is a minimal synchronous Wayland client: the connection
// with its object table and dispatch loop, the registry, and the core
// wl_output, wl_seat and wl_shm interfaces.
package wayland

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/bnema/wdotool/internal/logger"
	"github.com/bnema/wdotool/internal/wire"
)

// DisplayID is the object id of wl_display.
const DisplayID = 1

const (
	displaySync        = 0
	displayGetRegistry = 1

	displayEventError    = 0
	displayEventDeleteID = 1
)

// EventHandler receives the events sent to one object. Returning an error
// fails the connection.
type EventHandler interface {
	HandleEvent(d *wire.Decoder) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(d *wire.Decoder) error

func (f HandlerFunc) HandleEvent(d *wire.Decoder) error { return f(d) }

// NoEvents returns a handler for interfaces that define no events.
func NoEvents(iface string) EventHandler {
	return HandlerFunc(func(d *wire.Decoder) error {
		return wire.UnknownOpcode(iface, d.Header())
	})
}

type object struct {
	iface   string
	handler EventHandler
}

// Conn is a client connection. Requests are buffered and written on Flush,
// RoundTrip or DispatchUntil. Events are only read inside those calls, on
// the calling goroutine.
//
// The first fatal error (socket failure, malformed event, compositor error)
// closes the socket. That error is returned to the call that hit it; every
// later call returns an error matching ErrConnection that wraps it.
//
// A Conn is not safe for concurrent use.
type Conn struct {
	t       *wire.Transport
	nextID  uint32
	objects map[uint32]object
	err     error
	debug   bool
}

// NewConn wraps an established socket.
func NewConn(sock *net.UnixConn) *Conn {
	c := &Conn{
		t:       wire.NewTransport(sock),
		nextID:  DisplayID + 1,
		objects: make(map[uint32]object),
		debug:   os.Getenv("WAYLAND_DEBUG") != "",
	}
	c.objects[DisplayID] = object{iface: "wl_display", handler: HandlerFunc(c.handleDisplayEvent)}
	return c
}

// NewID allocates a client object id.
func (c *Conn) NewID() uint32 {
	id := c.nextID
	c.nextID++
	return id
}

// Register routes events for id to h.
func (c *Conn) Register(id uint32, iface string, h EventHandler) {
	c.objects[id] = object{iface: iface, handler: h}
}

// Unregister stops routing events to id. Later events for it are dropped.
func (c *Conn) Unregister(id uint32) {
	delete(c.objects, id)
}

// Interface returns the interface name registered for id.
func (c *Conn) Interface(id uint32) string {
	return c.objects[id].iface
}

// Err reports whether the connection is still usable.
func (c *Conn) Err() error {
	if c.err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrConnection, c.err)
}

func (c *Conn) fail(err error) error {
	if c.err == nil {
		c.err = err
		logger.Debug("wayland connection failed", "err", err)
		_ = c.t.Close()
	}
	return err
}

// Send queues a request from object id.
func (c *Conn) Send(id uint32, opcode uint16, args ...any) error {
	if err := c.Err(); err != nil {
		return err
	}
	if c.debug {
		logger.Debugf(" -> %s@%d.%d %v", c.Interface(id), id, opcode, args)
	}
	return c.t.Queue(id, opcode, args...)
}

// Flush writes every queued request.
func (c *Conn) Flush() error {
	if err := c.Err(); err != nil {
		return err
	}
	if err := c.t.Flush(); err != nil {
		c.fail(fmt.Errorf("write: %w", err))
		return c.Err()
	}
	return nil
}

// DispatchUntil flushes queued requests, then reads and dispatches events
// until done reports true.
func (c *Conn) DispatchUntil(done func() bool) error {
	if err := c.Flush(); err != nil {
		return err
	}
	for !done() {
		if err := c.dispatchOne(); err != nil {
			return err
		}
	}
	return nil
}

// RoundTrip blocks until the compositor has processed every request sent
// so far, dispatching the events they produced.
func (c *Conn) RoundTrip() error {
	id := c.NewID()
	done := false
	c.Register(id, "wl_callback", HandlerFunc(func(d *wire.Decoder) error {
		if d.Opcode() != 0 {
			return wire.UnknownOpcode("wl_callback", d.Header())
		}
		d.ReadUint()
		done = true
		return nil
	}))

	if err := c.Send(DisplayID, displaySync, wire.NewID(id)); err != nil {
		c.Unregister(id)
		return err
	}
	return c.DispatchUntil(func() bool { return done })
}

func (c *Conn) dispatchOne() error {
	if err := c.Err(); err != nil {
		return err
	}

	msg, err := c.t.ReadMessage()
	if err != nil {
		if errors.Is(err, wire.ErrDecode) {
			return c.fail(err)
		}
		c.fail(fmt.Errorf("read: %w", err))
		return c.Err()
	}

	obj, ok := c.objects[msg.Sender]
	if !ok {
		logger.Debug("dropping event for unknown object", "object", msg.Sender, "opcode", msg.Opcode)
		return nil
	}
	if c.debug {
		logger.Debugf("<-  %s@%d.%d (%d bytes)", obj.iface, msg.Sender, msg.Opcode, len(msg.Body))
	}

	d := wire.NewDecoder(msg, c.t)
	if err := obj.handler.HandleEvent(d); err != nil {
		return c.fail(err)
	}
	if err := d.Finish(); err != nil {
		return c.fail(err)
	}
	return nil
}

func (c *Conn) handleDisplayEvent(d *wire.Decoder) error {
	switch d.Opcode() {
	case displayEventError:
		id := d.ReadObject()
		code := d.ReadUint()
		msg := d.ReadString()
		if err := d.Err(); err != nil {
			return err
		}
		return &ProtocolError{ObjectID: id, Interface: c.Interface(id), Code: code, Message: msg}
	case displayEventDeleteID:
		id := d.ReadUint()
		if d.Err() == nil {
			c.Unregister(id)
		}
		return nil
	default:
		return wire.UnknownOpcode("wl_display", d.Header())
	}
}

// Close closes the socket. Later calls return ErrConnection.
func (c *Conn) Close() error {
	if c.err != nil {
		return nil
	}
	c.err = errClosed
	return c.t.Close()
}
