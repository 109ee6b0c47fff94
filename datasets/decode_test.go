package datasets

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func TestDecodeImage(t *testing.T) {
	img := colorImage(4, 3)
	for _, tc := range []struct {
		format string
		encode func(w io.Writer, img image.Image) error
	}{
		{"png", png.Encode},
		{"bmp", bmp.Encode},
		{"tiff", func(w io.Writer, img image.Image) error { return tiff.Encode(w, img, nil) }},
		{"jpeg", func(w io.Writer, img image.Image) error { return jpeg.Encode(w, img, nil) }},
		{"gif", func(w io.Writer, img image.Image) error { return gif.Encode(w, img, nil) }},
	} {
		t.Run(tc.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tc.encode(&buf, img))
			decoded, format, err := DecodeImage(&buf)
			require.NoError(t, err)
			assert.Equal(t, tc.format, format)
			require.IsType(t, &image.NRGBA{}, decoded)
			assert.Equal(t, image.Rect(0, 0, 4, 3), decoded.Bounds())
			assert.Equal(t, uint8(255), decoded.(*image.NRGBA).NRGBAAt(2, 1).A)
		})
	}
}

func TestDecodeImageGray16(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 2, 2))
	img.SetGray16(1, 1, color.Gray16{Y: 0x8080})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	decoded, _, err := DecodeImage(&buf)
	require.NoError(t, err)
	gray, ok := decoded.(*image.Gray)
	require.True(t, ok, "got %T", decoded)
	assert.Equal(t, uint8(0x80), gray.GrayAt(1, 1).Y)
}

func TestDecodeImageInvalid(t *testing.T) {
	_, _, err := DecodeImage(bytes.NewReader([]byte("definitely not an image")))
	assert.True(t, errors.Is(err, ErrDecode), "got %v", err)
}

func TestDecodeImageTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, colorImage(4, 3)))
	// Cut inside the IHDR chunk.
	_, _, err := DecodeImage(bytes.NewReader(buf.Bytes()[:20]))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode), "got %v", err)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF), "got %v", err)
	assert.Contains(t, err.Error(), ErrDecode.Error())
}
