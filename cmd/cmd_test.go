package cmd

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/wdotool/internal/protocols"
	"github.com/bnema/wdotool/internal/wltest"
	"github.com/bnema/wdotool/session"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag to its default so that commands can be
// executed more than once in a test binary.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes the root command against comp with an empty config file.
func run(t *testing.T, comp *wltest.Compositor, args ...string) (string, error) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "wdotool.toml")
	require.NoError(t, os.WriteFile(cfgPath, nil, 0o600))

	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append(args, "--config", cfgPath, "--display", comp.SocketPath()))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), err
}

func TestMoveCommand(t *testing.T) {
	comp := wltest.New(t)

	_, err := run(t, comp, "move", "--width", "1920", "--height", "1080", "--x", "40", "--y", "30")
	require.NoError(t, err)

	calls := comp.CallsTo(protocols.VirtualPointerInterface)
	require.NotEmpty(t, calls)
	assert.Equal(t, "motion_absolute", calls[0].Request)
	assert.Equal(t, []uint32{40, 30, 1920, 1080}, []uint32{calls[0].Uint(1), calls[0].Uint(2), calls[0].Uint(3), calls[0].Uint(4)})
}

func TestMoveOnOutputCommand(t *testing.T) {
	comp := wltest.New(t, wltest.WithOutputs(
		wltest.OutputSpec{Name: "DP-1", Width: 1920, Height: 1080},
		wltest.OutputSpec{Name: "DP-2", Width: 1920, Height: 1080},
	))

	_, err := run(t, comp, "move", "--output", "DP-2", "--width", "1920", "--height", "1080", "--x", "5", "--y", "5")
	require.NoError(t, err)
	comp.WaitFor(protocols.VirtualPointerManagerInterface, "create_virtual_pointer_with_output")

	_, err = run(t, comp, "move", "-o", "DP-7", "--width", "10", "--height", "10")
	assert.Error(t, err)
}

func TestMoveRequiresExtent(t *testing.T) {
	comp := wltest.New(t)
	_, err := run(t, comp, "move", "--x", "1")
	assert.Error(t, err)
}

func TestClickCommand(t *testing.T) {
	comp := wltest.New(t)

	_, err := run(t, comp, "click", "middle", "--duration", "0")
	require.NoError(t, err)

	var buttons []uint32
	for _, c := range comp.CallsTo(protocols.VirtualPointerInterface) {
		if c.Request == "button" {
			buttons = append(buttons, c.Uint(1), c.Uint(2))
		}
	}
	assert.Equal(t, []uint32{0x112, 1, 0x112, 0}, buttons)

	_, err = run(t, comp, "click", "fourth")
	assert.Error(t, err)
}

func TestKeyCommand(t *testing.T) {
	comp := wltest.New(t)

	_, err := run(t, comp, "key", "30", "--duration", "0", "--duration-max", "0")
	require.NoError(t, err)

	var keys []uint32
	for _, c := range comp.CallsTo(protocols.VirtualKeyboardInterface) {
		if c.Request == "key" {
			keys = append(keys, c.Uint(1), c.Uint(2))
		}
	}
	assert.Equal(t, []uint32{30, 1, 30, 0}, keys)

	_, err = run(t, comp, "key", "enter", "--duration", "0")
	require.NoError(t, err)
	calls := comp.CallsTo(protocols.VirtualKeyboardInterface)
	var last []uint32
	for _, c := range calls {
		if c.Request == "key" {
			last = append(last, c.Uint(1))
		}
	}
	assert.Equal(t, []uint32{28, 28}, last[len(last)-2:])

	_, err = run(t, comp, "key", "hyper")
	assert.ErrorContains(t, err, "invalid key code")
}

func TestScreenshotCommand(t *testing.T) {
	comp := wltest.New(t, wltest.WithOutputs(wltest.OutputSpec{Name: "DP-1", Width: 64, Height: 48}))
	path := filepath.Join(t.TempDir(), "shot.png")

	_, err := run(t, comp, "screenshot", path)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())

	want := wltest.Pattern(10, 20)
	r, g, b, a := img.At(10, 20).RGBA()
	assert.Equal(t, want, [4]byte{byte(r >> 8), byte(g >> 8), byte(b >> 8), byte(a >> 8)})
}

func TestScreenshotRegionCommand(t *testing.T) {
	comp := wltest.New(t, wltest.WithOutputs(wltest.OutputSpec{Name: "DP-1", Width: 64, Height: 48}))
	path := filepath.Join(t.TempDir(), "region.png")

	_, err := run(t, comp, "screenshot", "--region", "8,4,20x10", path)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 10, img.Bounds().Dy())

	want := wltest.Pattern(8+3, 4+5)
	r, g, b, a := img.At(3, 5).RGBA()
	assert.Equal(t, want, [4]byte{byte(r >> 8), byte(g >> 8), byte(b >> 8), byte(a >> 8)})
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in      string
		want    session.Region
		wantErr bool
	}{
		{in: "0,0,640x480", want: session.Region{Width: 640, Height: 480}},
		{in: " 10, 20,30x40 ", want: session.Region{X: 10, Y: 20, Width: 30, Height: 40}},
		{in: "-5,0,10x10", want: session.Region{X: -5, Width: 10, Height: 10}},
		{in: "10,20", wantErr: true},
		{in: "10,20,30", wantErr: true},
		{in: "a,0,1x1", wantErr: true},
		{in: "0,0,0x10", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseRegion(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScreenshotUnknownOutput(t *testing.T) {
	comp := wltest.New(t)
	path := filepath.Join(t.TempDir(), "shot.png")

	_, err := run(t, comp, "screenshot", "-o", "HDMI-A-9", path)
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestOutputWarnings(t *testing.T) {
	assert.Len(t, outputWarnings(nil), 1)
	assert.Empty(t, outputWarnings([]session.OutputInfo{{Name: "DP-1"}}))

	got := outputWarnings([]session.OutputInfo{{Name: "DP-1"}, {Name: "DP-2", Lost: true}})
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "DP-2")
}

func TestOutputsAndGlobalsCommands(t *testing.T) {
	comp := wltest.New(t)

	out, err := run(t, comp, "outputs")
	require.NoError(t, err)
	assert.Contains(t, out, "DP-1")
	assert.Contains(t, out, "2560x1440")

	out, err = run(t, comp, "globals")
	require.NoError(t, err)
	assert.Contains(t, out, protocols.ScreencopyManagerInterface)
	assert.Contains(t, out, "wl_seat")
}

func TestConfigShowCommand(t *testing.T) {
	comp := wltest.New(t)
	out, err := run(t, comp, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "[capture]")
	assert.Contains(t, out, "builtin")
}
