// Package framefile stores captured frames in a compact protobuf wire
// encoded container so raw pixels can be saved and reloaded losslessly.
//
// Fields: 1 width, 2 height, 3 stride, 4 pixel format name, 5 source buffer
// format, 6 capture time in unix nanoseconds, 7 pixels.
package framefile

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bnema/wdotool/internal/capture"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	fieldWidth        protowire.Number = 1
	fieldHeight       protowire.Number = 2
	fieldStride       protowire.Number = 3
	fieldFormat       protowire.Number = 4
	fieldSourceFormat protowire.Number = 5
	fieldTimestamp    protowire.Number = 6
	fieldPixels       protowire.Number = 7
)

// Marshal encodes f.
func Marshal(f *capture.Frame) []byte {
	b := make([]byte, 0, len(f.Pix)+64)
	b = appendVarint(b, fieldWidth, uint64(f.Width))
	b = appendVarint(b, fieldHeight, uint64(f.Height))
	b = appendVarint(b, fieldStride, uint64(f.Stride))
	b = protowire.AppendTag(b, fieldFormat, protowire.BytesType)
	b = protowire.AppendString(b, f.Format)
	b = appendVarint(b, fieldSourceFormat, uint64(f.SourceFormat))
	if !f.Timestamp.IsZero() {
		b = appendVarint(b, fieldTimestamp, uint64(f.Timestamp.UnixNano()))
	}
	b = protowire.AppendTag(b, fieldPixels, protowire.BytesType)
	b = protowire.AppendBytes(b, f.Pix)
	return b
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// Write encodes f to w.
func Write(w io.Writer, f *capture.Frame) error {
	_, err := w.Write(Marshal(f))
	return err
}

// Unmarshal decodes a frame. Unknown fields are skipped.
func Unmarshal(b []byte) (*capture.Frame, error) {
	f := &capture.Frame{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("frame file: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType && num != fieldFormat && num != fieldPixels:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("frame file field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldWidth:
				f.Width = int(v)
			case fieldHeight:
				f.Height = int(v)
			case fieldStride:
				f.Stride = int(v)
			case fieldSourceFormat:
				f.SourceFormat = uint32(v)
			case fieldTimestamp:
				f.Timestamp = time.Unix(0, int64(v))
			}
		case typ == protowire.BytesType && (num == fieldFormat || num == fieldPixels):
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("frame file field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			if num == fieldFormat {
				f.Format = string(v)
			} else {
				f.Pix = append([]byte(nil), v...)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("frame file field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if err := validate(f); err != nil {
		return nil, err
	}
	return f, nil
}

func validate(f *capture.Frame) error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("frame file: invalid size %dx%d", f.Width, f.Height)
	}
	if f.Stride < f.Width*4 {
		return fmt.Errorf("frame file: stride %d below row size %d", f.Stride, f.Width*4)
	}
	if len(f.Pix) < f.Stride*f.Height {
		return fmt.Errorf("frame file: %d pixel bytes, need %d", len(f.Pix), f.Stride*f.Height)
	}
	return nil
}

// Read decodes a frame from r.
func Read(r io.Reader) (*capture.Frame, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, errors.New("frame file: empty input")
	}
	return Unmarshal(b)
}
