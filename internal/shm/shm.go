// Package shm allocates anonymous shared memory files used to exchange
// keymaps and pixel buffers with the compositor.
package shm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// File is a mapped anonymous shared memory file.
type File struct {
	f        *os.File
	data     []byte
	released bool
}

// Create allocates and maps a shared memory file of size bytes. It uses
// memfd_create and falls back to an unlinked file under /dev/shm.
func Create(size int) (*File, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid shared memory size %d", size)
	}

	f, err := createFile()
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(size)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("truncate shared memory: %w", err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("map shared memory: %w", err)
	}
	return &File{f: f, data: data}, nil
}

func createFile() (*os.File, error) {
	name := "wdotool-" + uuid.NewString()

	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err == nil {
		return os.NewFile(uintptr(fd), name), nil
	}

	path := filepath.Join("/dev/shm", name)
	f, ferr := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if ferr != nil {
		return nil, fmt.Errorf("create shared memory: %w", errors.Join(err, ferr))
	}
	_ = os.Remove(path)
	return f, nil
}

// Fd returns the descriptor backing the file.
func (f *File) Fd() int { return int(f.f.Fd()) }

// Size returns the mapped size in bytes.
func (f *File) Size() int { return len(f.data) }

// Bytes returns the mapping. It must not be used after Release.
func (f *File) Bytes() []byte { return f.data }

// Seal prevents the file from being resized. Files that do not support
// sealing are left as they are.
func (f *File) Seal() {
	_, _ = unix.FcntlInt(f.f.Fd(), unix.F_ADD_SEALS, unix.F_SEAL_SHRINK|unix.F_SEAL_GROW|unix.F_SEAL_SEAL)
}

// Released reports whether Release has been called.
func (f *File) Released() bool { return f.released }

// Release unmaps and closes the file. Calling it again does nothing.
func (f *File) Release() error {
	if f.released {
		return nil
	}
	f.released = true

	err := unix.Munmap(f.data)
	f.data = nil
	return errors.Join(err, f.f.Close())
}
