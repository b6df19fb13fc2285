package wayland

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
)

// SocketPath resolves the compositor socket. An explicit display name wins
// over $WAYLAND_DISPLAY, which wins over "wayland-0". Relative names are
// joined to $XDG_RUNTIME_DIR.
func SocketPath(display string) (string, error) {
	if display == "" {
		display = os.Getenv("WAYLAND_DISPLAY")
	}
	if display == "" {
		display = "wayland-0"
	}
	if filepath.IsAbs(display) {
		return display, nil
	}

	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		return "", fmt.Errorf("%w: XDG_RUNTIME_DIR is not set and display %q is not an absolute path", ErrConnection, display)
	}
	return filepath.Join(dir, display), nil
}

// Dial connects to the compositor. With no explicit display and
// $WAYLAND_SOCKET set, the inherited socket is used instead.
func Dial(display string) (*Conn, error) {
	if display == "" {
		if v, ok := os.LookupEnv("WAYLAND_SOCKET"); ok {
			return dialInherited(v)
		}
	}

	path, err := SocketPath(display)
	if err != nil {
		return nil, err
	}

	sock, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("%w: connect to %s: %w", ErrConnection, path, err)
	}
	return NewConn(sock), nil
}

func dialInherited(v string) (*Conn, error) {
	_ = os.Unsetenv("WAYLAND_SOCKET")

	fd, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%w: parse WAYLAND_SOCKET %q: %w", ErrConnection, v, err)
	}

	file := os.NewFile(uintptr(fd), "WAYLAND_SOCKET")
	defer file.Close()

	c, err := net.FileConn(file)
	if err != nil {
		return nil, fmt.Errorf("%w: open WAYLAND_SOCKET: %w", ErrConnection, err)
	}
	sock, ok := c.(*net.UnixConn)
	if !ok {
		_ = c.Close()
		return nil, fmt.Errorf("%w: WAYLAND_SOCKET is not a unix socket", ErrConnection)
	}
	return NewConn(sock), nil
}
