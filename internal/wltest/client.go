package wltest

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/bnema/wdotool/internal/shm"
	"github.com/bnema/wdotool/internal/wire"
	"golang.org/x/sys/unix"
)

var errPosted = errors.New("protocol error posted")

type object struct {
	iface   string
	version uint32
	output  int
}

type pool struct {
	data []byte
}

type buffer struct {
	pool                          *pool
	offset, width, height, stride int32
	format                        uint32
}

// frame is a pending capture of a rectangle of an output.
type frame struct {
	output              int
	x, y, width, height int32
}

type client struct {
	comp *Compositor
	sock *net.UnixConn
	t    *wire.Transport

	mu      sync.Mutex
	objects map[uint32]object
	pools   map[uint32]*pool
	buffers map[uint32]*buffer
	frames  map[uint32]frame
	serial  uint32
	err     error

	// hungUp is set once a write finds the peer gone. Requests already
	// buffered on the socket are still read and recorded.
	hungUp bool
}

func newClient(c *Compositor, sock *net.UnixConn) *client {
	return &client{
		comp:    c,
		sock:    sock,
		t:       wire.NewTransport(sock),
		objects: map[uint32]object{1: {iface: "wl_display", version: 1}},
		pools:   make(map[uint32]*pool),
		buffers: make(map[uint32]*buffer),
		frames:  make(map[uint32]frame),
	}
}

func (cl *client) serve() {
	defer cl.cleanup()
	for {
		msg, err := cl.t.ReadMessage()
		if err != nil {
			return
		}

		cl.mu.Lock()
		err = cl.handle(msg)
		if err == nil {
			err = cl.flush()
		}
		cl.mu.Unlock()
		if err != nil {
			return
		}
	}
}

func (cl *client) shutdown() {
	_ = cl.sock.Close()
}

func (cl *client) cleanup() {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	_ = cl.t.Close()
	for _, p := range cl.pools {
		_ = unix.Munmap(p.data)
	}
	cl.pools = nil
}

func (cl *client) send(id uint32, opcode uint16, args ...any) {
	if cl.err != nil || cl.hungUp {
		return
	}
	cl.err = cl.writeErr(cl.t.Queue(id, opcode, args...))
}

func (cl *client) flush() error {
	if cl.err != nil {
		return cl.err
	}
	if cl.hungUp {
		return nil
	}
	return cl.writeErr(cl.t.Flush())
}

// writeErr swallows the errors of writing to a client that already closed
// its end.
func (cl *client) writeErr(err error) error {
	if errors.Is(err, unix.EPIPE) || errors.Is(err, unix.ECONNRESET) {
		cl.hungUp = true
		return nil
	}
	return err
}

func (cl *client) postError(id, code uint32, message string) error {
	cl.send(1, 0, wire.ObjectID(id), code, message)
	_ = cl.flush()
	return errPosted
}

func (cl *client) deleteID(id uint32) {
	delete(cl.objects, id)
	cl.send(1, 1, id)
}

func decodeArgs(d *wire.Decoder, sig string) []any {
	args := make([]any, 0, len(sig))
	for _, c := range sig {
		switch c {
		case 'u':
			args = append(args, d.ReadUint())
		case 'i':
			args = append(args, d.ReadInt())
		case 'f':
			args = append(args, d.ReadFixed())
		case 's':
			args = append(args, d.ReadString())
		case 'o':
			args = append(args, d.ReadObject())
		case 'n':
			args = append(args, d.ReadNewID())
		case 'h':
			args = append(args, d.ReadFD())
		case 'a':
			args = append(args, d.ReadArray())
		}
	}
	return args
}

func (cl *client) handle(msg wire.Message) error {
	obj, ok := cl.objects[msg.Sender]
	if !ok {
		return cl.postError(1, 0, fmt.Sprintf("invalid object %d", msg.Sender))
	}
	reqs := requests[obj.iface]
	if int(msg.Opcode) >= len(reqs) {
		return cl.postError(msg.Sender, 1, fmt.Sprintf("invalid method %d on %s", msg.Opcode, obj.iface))
	}
	req := reqs[msg.Opcode]

	d := wire.NewDecoder(msg, cl.t)
	args := decodeArgs(d, req.sig)
	if err := d.Finish(); err != nil {
		return err
	}

	call := cl.comp.record(Call{Object: msg.Sender, Interface: obj.iface, Request: req.name, Args: args})
	if code, ok := cl.comp.failOn[obj.iface+"."+req.name]; ok {
		closeFDs(req.sig, args)
		return cl.postError(msg.Sender, code, "injected error")
	}

	if i := strings.IndexByte(req.sig, 'n'); i >= 0 {
		iface, version := req.creates, obj.version
		if obj.iface == "wl_registry" {
			iface, version = args[1].(string), args[2].(uint32)
		}
		cl.objects[args[i].(uint32)] = object{iface: iface, version: version, output: -1}
	}

	if err := cl.dispatch(obj, call); err != nil {
		return err
	}

	if destructors[req.name] {
		cl.deleteID(msg.Sender)
	}
	return nil
}

func closeFDs(sig string, args []any) {
	for i, c := range sig {
		if c == 'h' {
			_ = unix.Close(args[i].(int))
		}
	}
}

func (cl *client) dispatch(obj object, call Call) error {
	switch obj.iface + "." + call.Request {
	case "wl_display.sync":
		id := call.Uint(0)
		cl.serial++
		cl.send(id, 0, cl.serial)
		cl.deleteID(id)

	case "wl_display.get_registry":
		id := call.Uint(0)
		for _, g := range cl.comp.Globals() {
			cl.send(id, 0, g.Name, g.Interface, g.Version)
		}

	case "wl_registry.bind":
		return cl.bind(call)

	case "wl_seat.get_keyboard":
		return cl.sendKeymap(call.Uint(0))

	case "zwp_virtual_keyboard_v1.keymap":
		fd, size := call.Args[1].(int), call.Uint(2)
		defer unix.Close(fd)
		data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
		if err != nil {
			return cl.postError(call.Object, 0, fmt.Sprintf("map keymap: %v", err))
		}
		keymap := string(data)
		if i := strings.IndexByte(keymap, 0); i >= 0 {
			keymap = keymap[:i]
		}
		_ = unix.Munmap(data)
		cl.comp.recordKeymap(keymap)

	case "wl_shm.create_pool":
		id, fd, size := call.Uint(0), call.Args[1].(int), call.Args[2].(int32)
		defer unix.Close(fd)
		data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			return cl.postError(call.Object, 2, fmt.Sprintf("map pool: %v", err))
		}
		cl.pools[id] = &pool{data: data}

	case "wl_shm_pool.create_buffer":
		p := cl.pools[call.Object]
		b := &buffer{
			pool:   p,
			offset: call.Args[1].(int32),
			width:  call.Args[2].(int32),
			height: call.Args[3].(int32),
			stride: call.Args[4].(int32),
			format: call.Uint(5),
		}
		if p == nil || int(b.offset)+int(b.stride)*int(b.height) > len(p.data) {
			return cl.postError(call.Object, 2, "buffer outside pool")
		}
		cl.buffers[call.Uint(0)] = b

	case "wl_buffer.destroy":
		delete(cl.buffers, call.Object)

	case "zwlr_screencopy_manager_v1.capture_output", "zwlr_screencopy_manager_v1.capture_output_region":
		return cl.captureOutput(obj, call)

	case "zwlr_screencopy_frame_v1.copy", "zwlr_screencopy_frame_v1.copy_with_damage":
		return cl.copyFrame(call)

	case "zwlr_screencopy_frame_v1.destroy":
		delete(cl.frames, call.Object)
	}
	return nil
}

func (cl *client) bind(call Call) error {
	name, iface, version, id := call.Uint(0), call.Args[1].(string), call.Uint(2), call.Uint(3)
	g, ok := cl.comp.globalByName(name)
	if !ok || g.Interface != iface || version == 0 || version > g.Version {
		return cl.postError(call.Object, 0, fmt.Sprintf("invalid bind of %s version %d", iface, version))
	}

	switch iface {
	case "wl_output":
		obj := cl.objects[id]
		obj.output = g.output
		cl.objects[id] = obj
		cl.sendOutput(id, version, cl.comp.output(g.output))
	case "wl_shm":
		cl.send(id, 0, uint32(0))
		cl.send(id, 0, uint32(1))
		if f := cl.comp.format; f > 1 {
			cl.send(id, 0, f)
		}
	case "wl_seat":
		cl.send(id, 0, uint32(3))
		if version >= 2 {
			cl.send(id, 1, "seat0")
		}
	}
	return nil
}

func (cl *client) sendOutput(id, version uint32, o OutputSpec) {
	cl.send(id, 0, int32(0), int32(0), int32(600), int32(340), int32(0), "wltest", "virtual", int32(0))
	cl.send(id, 1, uint32(3), o.Width, o.Height, int32(60000))
	if version >= 2 {
		cl.send(id, 3, int32(1))
	}
	if version >= 4 {
		cl.send(id, 4, o.Name)
		cl.send(id, 5, "wltest output "+o.Name)
	}
	if version >= 2 {
		cl.send(id, 2)
	}
}

func (cl *client) sendKeymap(id uint32) error {
	keymap := cl.comp.seatKeymap
	if keymap == "" {
		null, err := os.Open(os.DevNull)
		if err != nil {
			return err
		}
		defer null.Close()
		cl.send(id, 0, uint32(0), wire.FD(null.Fd()), uint32(0))
		return cl.flush()
	}

	f, err := shm.Create(len(keymap) + 1)
	if err != nil {
		return err
	}
	defer f.Release()
	copy(f.Bytes(), keymap)
	cl.send(id, 0, uint32(1), wire.FD(f.Fd()), uint32(len(keymap)+1))
	return cl.flush()
}

func (cl *client) captureOutput(manager object, call Call) error {
	id, outputID := call.Uint(0), call.Uint(2)
	out, ok := cl.objects[outputID]
	if !ok || out.iface != "wl_output" {
		return cl.postError(call.Object, 0, "capture of unknown output")
	}
	o := cl.comp.output(out.output)
	f := frame{output: out.output, width: o.Width, height: o.Height}
	if call.Request == "capture_output_region" {
		x, y := call.Args[3].(int32), call.Args[4].(int32)
		w, h := call.Args[5].(int32), call.Args[6].(int32)
		// The region is clipped to the output.
		x0, y0 := max(x, 0), max(y, 0)
		x1, y1 := min(x+w, o.Width), min(y+h, o.Height)
		if x1 <= x0 || y1 <= y0 {
			return cl.postError(call.Object, 0, "capture region outside output")
		}
		f = frame{output: out.output, x: x0, y: y0, width: x1 - x0, height: y1 - y0}
	}
	cl.frames[id] = f

	if cl.comp.capture == CaptureStall {
		return nil
	}

	cl.send(id, 0, cl.comp.format, uint32(f.width), uint32(f.height), uint32(f.width*4))
	if manager.version >= 3 {
		cl.send(id, 6)
	}
	return nil
}

func (cl *client) copyFrame(call Call) error {
	f, ok := cl.frames[call.Object]
	if !ok {
		return cl.postError(call.Object, 0, "copy on unknown frame")
	}
	if cl.comp.capture == CaptureFail {
		cl.send(call.Object, 3)
		return nil
	}

	b, ok := cl.buffers[call.Uint(0)]
	if !ok || b.width != f.width || b.height != f.height || b.format != cl.comp.format || b.stride < f.width*4 {
		cl.send(call.Object, 3)
		return nil
	}

	fill(b, int(f.x), int(f.y), cl.comp.yInvert)
	var flags uint32
	if cl.comp.yInvert {
		flags = 1
	}
	cl.send(call.Object, 1, flags)
	cl.send(call.Object, 2, uint32(0), uint32(1700000000), uint32(500))
	return nil
}

func (cl *client) resizeOutput(idx int, spec OutputSpec) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	for id, obj := range cl.objects {
		if obj.iface != "wl_output" || obj.output != idx {
			continue
		}
		cl.send(id, 1, uint32(3), spec.Width, spec.Height, int32(60000))
		if obj.version >= 2 {
			cl.send(id, 2)
		}
	}
	return cl.flush()
}

func (cl *client) removeGlobal(name uint32) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	for id, obj := range cl.objects {
		if obj.iface == "wl_registry" {
			cl.send(id, 1, name)
		}
	}
	return cl.flush()
}
