package wayland

import (
	"github.com/bnema/wdotool/internal/wire"
)

const (
	shmCreatePool = 0

	shmEventFormat = 0

	poolCreateBuffer = 0
	poolDestroy      = 1

	bufferDestroy = 0

	bufferEventRelease = 0
)

// wl_shm formats that are not fourcc codes.
const (
	ShmFormatARGB8888 uint32 = 0
	ShmFormatXRGB8888 uint32 = 1
)

// Shm is a bound wl_shm.
type Shm struct {
	ID      uint32
	formats []uint32
	conn    *Conn
}

// BindShm binds the wl_shm global.
func BindShm(r *Registry, g Global) (*Shm, error) {
	s := &Shm{conn: r.conn}
	id, err := r.Bind(g, 1, s)
	if err != nil {
		return nil, err
	}
	s.ID = id
	return s, nil
}

func (s *Shm) HandleEvent(d *wire.Decoder) error {
	if d.Opcode() != shmEventFormat {
		return wire.UnknownOpcode("wl_shm", d.Header())
	}
	s.formats = append(s.formats, d.ReadUint())
	return nil
}

// Formats returns the pixel formats the compositor announced.
func (s *Shm) Formats() []uint32 {
	return s.formats
}

// CreatePool creates a pool backed by the shared memory file fd.
func (s *Shm) CreatePool(fd int, size int32) (*ShmPool, error) {
	p := &ShmPool{ID: s.conn.NewID(), conn: s.conn}
	s.conn.Register(p.ID, "wl_shm_pool", NoEvents("wl_shm_pool"))
	if err := s.conn.Send(s.ID, shmCreatePool, wire.NewID(p.ID), wire.FD(fd), size); err != nil {
		s.conn.Unregister(p.ID)
		return nil, err
	}
	return p, nil
}

// ShmPool is a wl_shm_pool.
type ShmPool struct {
	ID        uint32
	conn      *Conn
	destroyed bool
}

// CreateBuffer creates a buffer from a region of the pool.
func (p *ShmPool) CreateBuffer(offset, width, height, stride int32, format uint32) (*Buffer, error) {
	b := &Buffer{ID: p.conn.NewID(), conn: p.conn}
	p.conn.Register(b.ID, "wl_buffer", b)
	if err := p.conn.Send(p.ID, poolCreateBuffer, wire.NewID(b.ID), offset, width, height, stride, format); err != nil {
		p.conn.Unregister(b.ID)
		return nil, err
	}
	return b, nil
}

// Destroy destroys the pool. Buffers created from it stay valid.
func (p *ShmPool) Destroy() error {
	if p.destroyed {
		return nil
	}
	p.destroyed = true
	return p.conn.Send(p.ID, poolDestroy)
}

// Buffer is a wl_buffer.
type Buffer struct {
	ID        uint32
	conn      *Conn
	released  bool
	destroyed bool
}

func (b *Buffer) HandleEvent(d *wire.Decoder) error {
	if d.Opcode() != bufferEventRelease {
		return wire.UnknownOpcode("wl_buffer", d.Header())
	}
	b.released = true
	return nil
}

// Released reports whether the compositor has released the buffer.
func (b *Buffer) Released() bool { return b.released }

// Destroy destroys the buffer.
func (b *Buffer) Destroy() error {
	if b.destroyed {
		return nil
	}
	b.destroyed = true
	return b.conn.Send(b.ID, bufferDestroy)
}
