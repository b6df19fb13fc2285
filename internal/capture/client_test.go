package capture

import (
	"testing"

	"github.com/bnema/wdotool/internal/protocols"
	"github.com/bnema/wdotool/internal/wayland"
	"github.com/bnema/wdotool/internal/wltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	comp   *wltest.Compositor
	conn   *wayland.Conn
	client *Client
	output *wayland.Output
}

func newFixture(t *testing.T, opts ...wltest.Option) *fixture {
	t.Helper()
	opts = append([]wltest.Option{wltest.WithOutputs(wltest.OutputSpec{Name: "DP-1", Width: 64, Height: 32})}, opts...)
	comp := wltest.New(t, opts...)

	conn, err := wayland.Dial(comp.SocketPath())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	reg, err := wayland.GetRegistry(conn)
	require.NoError(t, err)

	g, ok := reg.Find("wl_shm")
	require.True(t, ok)
	s, err := wayland.BindShm(reg, g)
	require.NoError(t, err)

	g, ok = reg.Find(protocols.ScreencopyManagerInterface)
	require.True(t, ok)
	m, err := protocols.BindScreencopyManager(reg, g, 3)
	require.NoError(t, err)

	g, ok = reg.Find("wl_output")
	require.True(t, ok)
	out, err := wayland.BindOutput(reg, g)
	require.NoError(t, err)
	require.NoError(t, conn.RoundTrip())

	return &fixture{comp: comp, conn: conn, client: NewClient(conn, m, s), output: out}
}

func assertPattern(t *testing.T, f *Frame) {
	t.Helper()
	for _, p := range [][2]int{{0, 0}, {63, 0}, {0, 31}, {17, 9}, {63, 31}} {
		x, y := p[0], p[1]
		want := wltest.Pattern(x, y)
		off := y*f.Stride + x*4
		assert.Equal(t, want[:], f.Pix[off:off+4], "pixel %d,%d", x, y)
	}
}

func TestCapture(t *testing.T) {
	tests := []struct {
		name    string
		format  uint32
		yInvert bool
		version uint32
	}{
		{name: "xrgb", format: FormatXRGB8888},
		{name: "argb y-inverted", format: FormatARGB8888, yInvert: true},
		{name: "xbgr", format: FormatXBGR8888},
		{name: "bgra y-inverted", format: FormatBGRA8888, yInvert: true},
		{name: "v1 without buffer_done", format: FormatXRGB8888, version: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []wltest.Option{wltest.WithCaptureFormat(tt.format, tt.yInvert)}
			if tt.version != 0 {
				opts = append(opts, wltest.WithGlobalVersion(protocols.ScreencopyManagerInterface, tt.version))
			}
			f := newFixture(t, opts...)

			frame, err := f.client.Capture(f.output)
			require.NoError(t, err)
			assert.Equal(t, StateReady, f.client.State())

			assert.Equal(t, 64, frame.Width)
			assert.Equal(t, 32, frame.Height)
			assert.Equal(t, 64*4, frame.Stride)
			assert.Equal(t, "RGBA8888", frame.Format)
			assert.Equal(t, tt.format, frame.SourceFormat)
			assert.Len(t, frame.Pix, 64*32*4)
			assertPattern(t, frame)
		})
	}
}

func TestCaptureReleasesObjects(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.Capture(f.output)
	require.NoError(t, err)
	require.NoError(t, f.conn.RoundTrip())

	last := func(iface string) string {
		calls := f.comp.CallsTo(iface)
		require.NotEmpty(t, calls, iface)
		return calls[len(calls)-1].Request
	}
	assert.Equal(t, "destroy", last(protocols.ScreencopyFrameInterface))
	assert.Equal(t, "destroy", last("wl_buffer"))
	assert.Equal(t, "destroy", last("wl_shm_pool"))

	frames := f.comp.CallsTo(protocols.ScreencopyManagerInterface)
	require.Len(t, frames, 1)
	assert.Equal(t, uint32(0), frames[0].Uint(1), "cursor not overlaid by default")
}

func TestCaptureOverlayCursor(t *testing.T) {
	f := newFixture(t)
	f.client.OverlayCursor = true

	_, err := f.client.Capture(f.output)
	require.NoError(t, err)

	call := f.comp.WaitFor(protocols.ScreencopyManagerInterface, "capture_output")
	assert.Equal(t, uint32(1), call.Uint(1))
}

func TestCaptureFailed(t *testing.T) {
	f := newFixture(t, wltest.WithCaptureMode(wltest.CaptureFail))

	_, err := f.client.Capture(f.output)
	require.ErrorIs(t, err, ErrCaptureFailed)
	assert.Equal(t, StateFailed, f.client.State())

	// The session stays usable after a failed frame.
	assert.NoError(t, f.conn.RoundTrip())
}

func TestCaptureLostOutput(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.comp.ResizeOutput("DP-1", 32, 32))
	require.NoError(t, f.conn.RoundTrip())

	_, err := f.client.Capture(f.output)
	assert.ErrorIs(t, err, ErrCaptureFailed)
}

func TestCaptureInProgress(t *testing.T) {
	f := newFixture(t, wltest.WithCaptureMode(wltest.CaptureStall))

	done := make(chan error, 1)
	go func() {
		_, err := f.client.Capture(f.output)
		done <- err
	}()

	f.comp.WaitFor(protocols.ScreencopyManagerInterface, "capture_output")
	_, err := f.client.Capture(f.output)
	assert.ErrorIs(t, err, ErrCaptureInProgress)

	f.comp.Close()
	assert.ErrorIs(t, <-done, wayland.ErrConnection)
}

func TestCaptureRegion(t *testing.T) {
	tests := []struct {
		name          string
		region        Region
		x, y          int
		width, height int
	}{
		{name: "inside", region: Region{X: 8, Y: 4, Width: 16, Height: 10}, x: 8, y: 4, width: 16, height: 10},
		{name: "clipped", region: Region{X: 48, Y: 20, Width: 40, Height: 40}, x: 48, y: 20, width: 16, height: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			frame, err := f.client.CaptureRegion(f.output, tt.region)
			require.NoError(t, err)
			assert.Equal(t, tt.width, frame.Width)
			assert.Equal(t, tt.height, frame.Height)

			for _, p := range [][2]int{{0, 0}, {tt.width - 1, tt.height - 1}, {3, 2}} {
				want := wltest.Pattern(tt.x+p[0], tt.y+p[1])
				off := p[1]*frame.Stride + p[0]*4
				assert.Equal(t, want[:], frame.Pix[off:off+4], "pixel %d,%d", p[0], p[1])
			}

			call := f.comp.WaitFor(protocols.ScreencopyManagerInterface, "capture_output_region")
			assert.Equal(t, uint32(tt.region.X), call.Uint(3))
			assert.Equal(t, uint32(tt.region.Width), call.Uint(5))
		})
	}
}

func TestCaptureRegionEmpty(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.CaptureRegion(f.output, Region{Width: 0, Height: 10})
	require.ErrorIs(t, err, ErrCaptureFailed)
	assert.Empty(t, f.comp.CallsTo(protocols.ScreencopyManagerInterface))
}
