package input

import (
	"fmt"
	"strconv"
	"strings"
)

// Linux input event codes for the keys that can be named on the command
// line.
const (
	KeyEsc        = 1
	KeyMinus      = 12
	KeyEqual      = 13
	KeyBackspace  = 14
	KeyTab        = 15
	KeyLeftBrace  = 26
	KeyRightBrace = 27
	KeyEnter      = 28
	KeyLeftCtrl   = 29
	KeySemicolon  = 39
	KeyApostrophe = 40
	KeyGrave      = 41
	KeyLeftShift  = 42
	KeyBackslash  = 43
	KeyComma      = 51
	KeyDot        = 52
	KeySlash      = 53
	KeyRightShift = 54
	KeyLeftAlt    = 56
	KeySpace      = 57
	KeyCapsLock   = 58
	KeyF1         = 59
	KeyF11        = 87
	KeyF12        = 88
	KeyRightCtrl  = 97
	KeySysRq      = 99
	KeyRightAlt   = 100
	KeyHome       = 102
	KeyUp         = 103
	KeyPageUp     = 104
	KeyLeft       = 105
	KeyRight      = 106
	KeyEnd        = 107
	KeyDown       = 108
	KeyPageDown   = 109
	KeyInsert     = 110
	KeyDelete     = 111
	KeyPause      = 119
	KeyLeftMeta   = 125
	KeyRightMeta  = 126
	KeyMenu       = 127
)

var keyNames = map[string]uint32{
	"esc": KeyEsc, "escape": KeyEsc,
	"minus": KeyMinus, "equal": KeyEqual,
	"backspace": KeyBackspace, "tab": KeyTab,
	"leftbrace": KeyLeftBrace, "rightbrace": KeyRightBrace,
	"enter": KeyEnter, "return": KeyEnter,
	"ctrl": KeyLeftCtrl, "leftctrl": KeyLeftCtrl, "rightctrl": KeyRightCtrl,
	"semicolon": KeySemicolon, "apostrophe": KeyApostrophe, "grave": KeyGrave,
	"shift": KeyLeftShift, "leftshift": KeyLeftShift, "rightshift": KeyRightShift,
	"backslash": KeyBackslash, "comma": KeyComma, "dot": KeyDot, "slash": KeySlash,
	"alt": KeyLeftAlt, "leftalt": KeyLeftAlt, "rightalt": KeyRightAlt,
	"space": KeySpace, "capslock": KeyCapsLock,
	"sysrq": KeySysRq, "print": KeySysRq,
	"home": KeyHome, "end": KeyEnd, "pageup": KeyPageUp, "pagedown": KeyPageDown,
	"up": KeyUp, "down": KeyDown, "left": KeyLeft, "right": KeyRight,
	"insert": KeyInsert, "delete": KeyDelete, "pause": KeyPause,
	"meta": KeyLeftMeta, "super": KeyLeftMeta, "leftmeta": KeyLeftMeta, "rightmeta": KeyRightMeta,
	"menu": KeyMenu,
}

// Rows of the main block in evdev order.
var keyRows = []struct {
	first uint32
	keys  string
}{
	{2, "1234567890"},
	{16, "qwertyuiop"},
	{30, "asdfghjkl"},
	{44, "zxcvbnm"},
}

func init() {
	for _, row := range keyRows {
		for i, r := range row.keys {
			keyNames[string(r)] = row.first + uint32(i)
		}
	}
	for i := 0; i < 10; i++ {
		keyNames[fmt.Sprintf("f%d", i+1)] = KeyF1 + uint32(i)
	}
	keyNames["f11"] = KeyF11
	keyNames["f12"] = KeyF12
}

// ParseKeyCode accepts a decimal evdev code or a key name such as "a",
// "enter", "f5" or "KEY_LEFTSHIFT". Names refer to physical keys on a US
// layout. Digits are codes, so the 1 key is "KEY_1".
func ParseKeyCode(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if code, err := strconv.ParseUint(s, 10, 32); err == nil {
		return uint32(code), nil
	}

	name := strings.TrimPrefix(strings.ToLower(s), "key_")
	if code, ok := keyNames[name]; ok {
		return code, nil
	}
	return 0, fmt.Errorf("invalid key code %q", s)
}
