package session

import (
	"github.com/bnema/wdotool/internal/capture"
	"github.com/bnema/wdotool/internal/input"
	"github.com/bnema/wdotool/internal/wayland"
)

// Errors returned by Session methods. Match them with errors.Is.
var (
	ErrConnection             = wayland.ErrConnection
	ErrProtocolUnsupported    = wayland.ErrProtocolUnsupported
	ErrProtocolDecode         = wayland.ErrProtocolDecode
	ErrCompositorProtocol     = wayland.ErrCompositorProtocol
	ErrKeyboardNotInitialized = input.ErrKeyboardNotInitialized
	ErrPointer                = input.ErrPointer
	ErrCaptureFailed          = capture.ErrCaptureFailed
	ErrCaptureInProgress      = capture.ErrCaptureInProgress
)

type (
	// ProtocolError is a fatal error posted by the compositor.
	ProtocolError = wayland.ProtocolError
	// UnsupportedError names a missing or outdated global.
	UnsupportedError = wayland.UnsupportedError
)
