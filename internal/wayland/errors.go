package wayland

import (
	"errors"
	"fmt"

	"github.com/bnema/wdotool/internal/wire"
)

var (
	// ErrConnection is returned when the socket cannot be reached, or for
	// any call made after the connection has failed or been closed.
	ErrConnection = errors.New("wayland connection error")

	// ErrProtocolUnsupported is returned when a required global is missing
	// or advertised below the minimum version.
	ErrProtocolUnsupported = errors.New("required protocol not supported")

	// ErrProtocolDecode is returned for malformed messages from the
	// compositor.
	ErrProtocolDecode = wire.ErrDecode

	// ErrCompositorProtocol is returned when the compositor posts an error
	// on an object.
	ErrCompositorProtocol = errors.New("compositor protocol error")

	errClosed = errors.New("connection closed")
)

// ProtocolError is a wl_display.error event.
type ProtocolError struct {
	ObjectID  uint32
	Interface string
	Code      uint32
	Message   string
}

func (e *ProtocolError) Error() string {
	if e.Interface != "" {
		return fmt.Sprintf("compositor error on %s@%d code %d: %s", e.Interface, e.ObjectID, e.Code, e.Message)
	}
	return fmt.Sprintf("compositor error on object %d code %d: %s", e.ObjectID, e.Code, e.Message)
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrCompositorProtocol
}

// UnsupportedError names a global that is absent (Got is zero) or too old.
type UnsupportedError struct {
	Interface string
	Want      uint32
	Got       uint32
}

func (e *UnsupportedError) Error() string {
	if e.Got == 0 {
		return fmt.Sprintf("compositor does not advertise %s", e.Interface)
	}
	return fmt.Sprintf("compositor advertises %s version %d, need %d", e.Interface, e.Got, e.Want)
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrProtocolUnsupported
}
