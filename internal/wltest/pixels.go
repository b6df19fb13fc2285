package wltest

// Pattern returns the RGBA color the compositor paints at (x, y).
func Pattern(x, y int) [4]byte {
	return [4]byte{byte(x), byte(y), byte(x + y), 0xFF}
}

// Byte positions of R, G, B and A within a pixel, and whether the fourth
// channel is padding, for the formats the compositor can offer.
var layouts = map[uint32]struct {
	r, g, b, a int
	padded     bool
}{
	0:          {r: 2, g: 1, b: 0, a: 3},
	1:          {r: 2, g: 1, b: 0, a: 3, padded: true},
	0x34324241: {r: 0, g: 1, b: 2, a: 3},
	0x34324258: {r: 0, g: 1, b: 2, a: 3, padded: true},
	0x34324152: {r: 3, g: 2, b: 1, a: 0},
	0x34325852: {r: 3, g: 2, b: 1, a: 0, padded: true},
	0x34324142: {r: 1, g: 2, b: 3, a: 0},
	0x34325842: {r: 1, g: 2, b: 3, a: 0, padded: true},
}

// fill paints b with the pattern of the output rectangle whose top left
// corner is (ox, oy).
func fill(b *buffer, ox, oy int, yInvert bool) {
	l, ok := layouts[b.format]
	if !ok {
		return
	}
	data := b.pool.data[b.offset:]
	for y := range int(b.height) {
		row := y
		if yInvert {
			row = int(b.height) - 1 - y
		}
		line := data[row*int(b.stride):]
		for x := range int(b.width) {
			c := Pattern(ox+x, oy+y)
			px := line[x*4 : x*4+4]
			px[l.r], px[l.g], px[l.b] = c[0], c[1], c[2]
			if l.padded {
				px[l.a] = 0
			} else {
				px[l.a] = c[3]
			}
		}
	}
}
