package framefile

import (
	"bytes"
	"testing"
	"time"

	"github.com/bnema/wdotool/internal/capture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func testFrame() *capture.Frame {
	pix := make([]byte, 3*2*4)
	for i := range pix {
		pix[i] = byte(i)
	}
	return &capture.Frame{
		Width:        3,
		Height:       2,
		Stride:       12,
		Format:       "RGBA8888",
		SourceFormat: capture.FormatXRGB8888,
		Timestamp:    time.Unix(1700000000, 500),
		Pix:          pix,
	}
}

func TestWriteRead(t *testing.T) {
	want := testFrame()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, want))

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, want.Width, got.Width)
	assert.Equal(t, want.Height, got.Height)
	assert.Equal(t, want.Stride, got.Stride)
	assert.Equal(t, want.Format, got.Format)
	assert.Equal(t, want.SourceFormat, got.SourceFormat)
	assert.True(t, want.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, want.Pix, got.Pix)
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	b := Marshal(testFrame())
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendString(b, "extension")

	got, err := Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Width)
}

func TestUnmarshalRejects(t *testing.T) {
	short := testFrame()
	short.Pix = short.Pix[:10]

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated", Marshal(testFrame())[:20]},
		{"short pixels", Marshal(short)},
		{"garbage tag", []byte{0xFF, 0xFF, 0xFF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.data)
			assert.Error(t, err)
		})
	}

	_, err := Read(bytes.NewReader(nil))
	assert.Error(t, err)
}
