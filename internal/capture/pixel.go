package capture

import "fmt"

// Buffer formats a compositor may offer for screencopy. The first two are
// wl_shm enum values, the rest DRM fourcc codes.
const (
	FormatARGB8888 uint32 = 0
	FormatXRGB8888 uint32 = 1
	FormatABGR8888 uint32 = 0x34324241
	FormatXBGR8888 uint32 = 0x34324258
	FormatRGBA8888 uint32 = 0x34324152
	FormatRGBX8888 uint32 = 0x34325852
	FormatBGRA8888 uint32 = 0x34324142
	FormatBGRX8888 uint32 = 0x34325842
)

// layout gives the byte offsets of R, G, B and A in a little-endian pixel.
// Padded formats carry no alpha.
type layout struct {
	name       string
	r, g, b, a int
	padded     bool
}

var layouts = map[uint32]layout{
	FormatARGB8888: {name: "ARGB8888", r: 2, g: 1, b: 0, a: 3},
	FormatXRGB8888: {name: "XRGB8888", r: 2, g: 1, b: 0, a: 3, padded: true},
	FormatABGR8888: {name: "ABGR8888", r: 0, g: 1, b: 2, a: 3},
	FormatXBGR8888: {name: "XBGR8888", r: 0, g: 1, b: 2, a: 3, padded: true},
	FormatRGBA8888: {name: "RGBA8888", r: 3, g: 2, b: 1, a: 0},
	FormatRGBX8888: {name: "RGBX8888", r: 3, g: 2, b: 1, a: 0, padded: true},
	FormatBGRA8888: {name: "BGRA8888", r: 1, g: 2, b: 3, a: 0},
	FormatBGRX8888: {name: "BGRX8888", r: 1, g: 2, b: 3, a: 0, padded: true},
}

// FormatName returns a readable name for a buffer format.
func FormatName(format uint32) string {
	if l, ok := layouts[format]; ok {
		return l.name
	}
	return fmt.Sprintf("%#08x", format)
}

// Supported reports whether frames in format can be converted.
func Supported(format uint32) bool {
	_, ok := layouts[format]
	return ok
}

// ToRGBA converts a width x height image with the given row stride into
// tightly packed RGBA. Padded formats get opaque alpha. yInvert flips the
// rows so the result is top to bottom.
func ToRGBA(src []byte, width, height, stride int, format uint32, yInvert bool) ([]byte, error) {
	l, ok := layouts[format]
	if !ok {
		return nil, fmt.Errorf("unsupported pixel format %s", FormatName(format))
	}
	if width <= 0 || height <= 0 || stride < width*4 {
		return nil, fmt.Errorf("invalid frame geometry %dx%d stride %d", width, height, stride)
	}
	if len(src) < stride*(height-1)+width*4 {
		return nil, fmt.Errorf("frame buffer too small: %d bytes for %dx%d stride %d", len(src), width, height, stride)
	}

	dst := make([]byte, width*height*4)
	for y := range height {
		row := y
		if yInvert {
			row = height - 1 - y
		}
		in := src[row*stride : row*stride+width*4]
		out := dst[y*width*4 : (y+1)*width*4]
		for x := 0; x < len(in); x += 4 {
			out[x] = in[x+l.r]
			out[x+1] = in[x+l.g]
			out[x+2] = in[x+l.b]
			if l.padded {
				out[x+3] = 0xFF
			} else {
				out[x+3] = in[x+l.a]
			}
		}
	}
	return dst, nil
}
