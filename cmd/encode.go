package cmd

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/bnema/wdotool/internal/framefile"
	"github.com/bnema/wdotool/session"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// imageFormat names an encoding for saved screenshots.
type imageFormat string

const (
	formatPNG   imageFormat = "png"
	formatBMP   imageFormat = "bmp"
	formatTIFF  imageFormat = "tiff"
	formatFrame imageFormat = "frame"
)

func parseImageFormat(s string) (imageFormat, error) {
	switch f := imageFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case formatPNG, formatBMP, formatTIFF, formatFrame:
		return f, nil
	case "tif":
		return formatTIFF, nil
	}
	return "", fmt.Errorf("unknown image format %q (want png, bmp, tiff or frame)", s)
}

// formatForPath picks the format from the file extension, falling back to
// def.
func formatForPath(path string, def imageFormat) imageFormat {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if f, err := parseImageFormat(ext); err == nil {
		return f
	}
	return def
}

// frameImage wraps a frame's RGBA pixels without copying.
func frameImage(f *session.Frame) *image.NRGBA {
	return &image.NRGBA{
		Pix:    f.Pix,
		Stride: f.Stride,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

func encodeFrame(w io.Writer, f *session.Frame, format imageFormat) error {
	switch format {
	case formatPNG:
		return png.Encode(w, frameImage(f))
	case formatBMP:
		return bmp.Encode(w, frameImage(f))
	case formatTIFF:
		return tiff.Encode(w, frameImage(f), &tiff.Options{Compression: tiff.Deflate})
	case formatFrame:
		return framefile.Write(w, f)
	}
	return fmt.Errorf("unknown image format %q", format)
}
