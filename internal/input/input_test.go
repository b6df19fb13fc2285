package input

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/wdotool/internal/protocols"
	"github.com/bnema/wdotool/internal/wayland"
	"github.com/bnema/wdotool/internal/wltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	comp *wltest.Compositor
	conn *wayland.Conn
	seat *wayland.Seat
	reg  *wayland.Registry
}

func newFixture(t *testing.T, opts ...wltest.Option) *fixture {
	t.Helper()
	comp := wltest.New(t, opts...)
	conn, err := wayland.Dial(comp.SocketPath())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	reg, err := wayland.GetRegistry(conn)
	require.NoError(t, err)
	g, ok := reg.Find("wl_seat")
	require.True(t, ok)
	seat, err := wayland.BindSeat(reg, g, wayland.SeatMaxVersion)
	require.NoError(t, err)
	require.NoError(t, conn.RoundTrip())

	return &fixture{comp: comp, conn: conn, seat: seat, reg: reg}
}

func (f *fixture) keyboard(t *testing.T) *Keyboard {
	t.Helper()
	g, ok := f.reg.Find(protocols.VirtualKeyboardManagerInterface)
	require.True(t, ok)
	m, err := protocols.BindVirtualKeyboardManager(f.reg, g)
	require.NoError(t, err)
	vk, err := m.CreateVirtualKeyboard(f.seat)
	require.NoError(t, err)

	var ms uint32
	return NewKeyboard(vk, func() uint32 { ms++; return ms })
}

func (f *fixture) pointer(t *testing.T) *Pointer {
	t.Helper()
	g, ok := f.reg.Find(protocols.VirtualPointerManagerInterface)
	require.True(t, ok)
	m, err := protocols.BindVirtualPointerManager(f.reg, g, 2)
	require.NoError(t, err)
	vp, err := m.CreateVirtualPointer(f.seat)
	require.NoError(t, err)
	return NewPointer(vp, func() uint32 { return 42 })
}

func TestKeyBeforeKeymap(t *testing.T) {
	f := newFixture(t)
	kb := f.keyboard(t)

	assert.False(t, kb.Ready())
	assert.ErrorIs(t, kb.Key(30, true), ErrKeyboardNotInitialized)
	assert.ErrorIs(t, kb.Key(30, false), ErrKeyboardNotInitialized)

	require.NoError(t, f.conn.RoundTrip())
	assert.Empty(t, f.comp.CallsTo(protocols.VirtualKeyboardInterface))
}

func TestBuiltinKeymap(t *testing.T) {
	f := newFixture(t)
	kb := f.keyboard(t)

	km, err := NewKeymap(DefaultKeymap)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(DefaultKeymap)+1), km.Size)

	require.NoError(t, kb.SetKeymap(km))
	require.NoError(t, kb.Key(30, true))
	require.NoError(t, kb.Key(30, false))
	require.NoError(t, f.conn.RoundTrip())

	assert.Equal(t, []string{DefaultKeymap}, f.comp.Keymaps())

	calls := f.comp.CallsTo(protocols.VirtualKeyboardInterface)
	require.Len(t, calls, 3)
	assert.Equal(t, "keymap", calls[0].Request)
	assert.Equal(t, uint32(protocols.KeymapFormatXKBV1), calls[0].Uint(0))
	assert.Equal(t, "key", calls[1].Request)
	assert.Equal(t, []uint32{30, 1}, []uint32{calls[1].Uint(1), calls[1].Uint(2)})
	assert.Equal(t, []uint32{30, 0}, []uint32{calls[2].Uint(1), calls[2].Uint(2)})
	assert.Less(t, calls[1].Uint(0), calls[2].Uint(0))

	require.NoError(t, kb.Close())
	assert.True(t, km.closed)
}

func TestSeatKeymap(t *testing.T) {
	const custom = "xkb_keymap { xkb_keycodes { include \"evdev\" }; };"
	f := newFixture(t, wltest.WithSeatKeymap(custom))
	kb := f.keyboard(t)

	km, err := SeatKeymap(f.conn, f.seat)
	require.NoError(t, err)
	require.NoError(t, kb.SetKeymap(km))
	require.NoError(t, f.conn.RoundTrip())

	assert.Equal(t, []string{custom}, f.comp.Keymaps())
	assert.Len(t, f.comp.CallsTo("wl_keyboard"), 1, "keyboard released after the keymap arrived")
	assert.NoError(t, kb.Close())
}

func TestSeatWithoutKeymap(t *testing.T) {
	f := newFixture(t)

	_, err := SeatKeymap(f.conn, f.seat)
	assert.Error(t, err)
}

func TestLoadKeymap(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "us.xkb")
	require.NoError(t, os.WriteFile(path, []byte(DefaultKeymap+"\x00"), 0o644))
	km, err := LoadKeymap(path)
	require.NoError(t, err)
	defer km.Close()
	assert.Equal(t, uint32(len(DefaultKeymap)+1), km.Size)

	empty := filepath.Join(dir, "empty.xkb")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o644))
	_, err = LoadKeymap(empty)
	assert.Error(t, err)

	_, err = LoadKeymap(filepath.Join(dir, "missing.xkb"))
	assert.Error(t, err)
}

func TestParseKeymapSource(t *testing.T) {
	tests := []struct {
		in      string
		want    KeymapSource
		wantErr bool
	}{
		{"", KeymapBuiltin, false},
		{"builtin", KeymapBuiltin, false},
		{" Seat ", KeymapSeat, false},
		{"file", KeymapFile, false},
		{"xkbcomp", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKeymapSource(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestPointerMoveAbsolute(t *testing.T) {
	f := newFixture(t)
	p := f.pointer(t)

	require.NoError(t, p.MoveAbsolute(2560, 1440, 100, 100))
	require.NoError(t, p.MoveAbsolute(2560, 1440, 9000, 1440))
	require.NoError(t, f.conn.RoundTrip())

	calls := f.comp.CallsTo(protocols.VirtualPointerInterface)
	require.Len(t, calls, 4)
	assert.Equal(t, "motion_absolute", calls[0].Request)
	assert.Equal(t, []uint32{42, 100, 100, 2560, 1440}, uints(calls[0]))
	assert.Equal(t, "frame", calls[1].Request)
	assert.Equal(t, []uint32{42, 2559, 1439, 2560, 1440}, uints(calls[2]))
	assert.Equal(t, "frame", calls[3].Request)
}

func TestPointerZeroExtent(t *testing.T) {
	f := newFixture(t)
	p := f.pointer(t)

	assert.ErrorIs(t, p.MoveAbsolute(0, 1440, 1, 1), ErrPointer)
	assert.ErrorIs(t, p.MoveAbsolute(2560, 0, 1, 1), ErrPointer)
}

func TestPointerButton(t *testing.T) {
	f := newFixture(t)
	p := f.pointer(t)

	require.NoError(t, p.Button(ButtonRight, true))
	require.NoError(t, p.Button(ButtonRight, false))
	require.NoError(t, f.conn.RoundTrip())

	var got []string
	for _, c := range f.comp.CallsTo(protocols.VirtualPointerInterface) {
		got = append(got, c.Request)
	}
	assert.Equal(t, []string{"button", "frame", "button", "frame"}, got)

	calls := f.comp.CallsTo(protocols.VirtualPointerInterface)
	assert.Equal(t, uint32(0x111), calls[0].Uint(1))
	assert.Equal(t, uint32(protocols.ButtonStatePressed), calls[0].Uint(2))
	assert.Equal(t, uint32(protocols.ButtonStateReleased), calls[2].Uint(2))
}

func TestParseButton(t *testing.T) {
	for in, want := range map[string]Button{"left": ButtonLeft, "RIGHT": ButtonRight, "middle": ButtonMiddle} {
		got, err := ParseButton(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, want.String(), got.String())
	}
	_, err := ParseButton("back")
	assert.ErrorIs(t, err, ErrPointer)
	assert.Equal(t, "button(0x113)", Button(0x113).String())
}

func uints(c wltest.Call) []uint32 {
	out := make([]uint32, len(c.Args))
	for i := range c.Args {
		out[i] = c.Uint(i)
	}
	return out
}

func TestParseKeyCode(t *testing.T) {
	tests := map[string]uint32{
		"30":            30,
		"a":             30,
		"A":             30,
		"q":             16,
		"m":             50,
		"1":             1,
		"KEY_1":         2,
		"key_0":         11,
		"KEY_ENTER":     28,
		"leftshift":     42,
		"f1":            59,
		"F10":           68,
		"f12":           88,
		"right":         106,
		" space ":       57,
		"key_rightmeta": 126,
	}
	for in, want := range tests {
		got, err := ParseKeyCode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "hyper", "-1", "KEY_"} {
		_, err := ParseKeyCode(bad)
		assert.Error(t, err, bad)
	}
}
