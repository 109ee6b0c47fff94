package transforms

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	timages "github.com/gomlx/gomlx/pkg/core/tensors/images"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"
)

// Canonical converts a decoded image to the payload representation used by the chain.
//
// Grayscale images become an *image.Gray. Anything else becomes an *image.NRGBA in RGB order
// with the alpha channel dropped: the straight (non-premultiplied) color values are kept and
// alpha is set to opaque. The result always has its origin at (0, 0).
func Canonical(img image.Image) image.Image {
	switch src := img.(type) {
	case *image.Gray:
		if src.Bounds().Min == (image.Point{}) {
			return src
		}
		return copyToGray(src)
	case *image.Gray16:
		return copyToGray(src)
	}
	dst := imaging.Clone(img)
	dropAlpha(dst)
	return dst
}

func copyToGray(src image.Image) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Copy(dst, image.Point{}, src, b, xdraw.Src, nil)
	return dst
}

func dropAlpha(img *image.NRGBA) {
	for ii := 3; ii < len(img.Pix); ii += 4 {
		img.Pix[ii] = 0xFF
	}
}

func isGray(img image.Image) bool {
	_, ok := img.(*image.Gray)
	return ok
}

// keepGray converts the output of an imaging operation back to *image.Gray when the source
// was grayscale. imaging always returns *image.NRGBA, with R=G=B for gray inputs.
func keepGray(src image.Image, dst *image.NRGBA) image.Image {
	if !isGray(src) {
		return dst
	}
	b := dst.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		srcRow := dst.Pix[y*dst.Stride:]
		dstRow := gray.Pix[y*gray.Stride:]
		for x := 0; x < b.Dx(); x++ {
			dstRow[x] = srcRow[x*4]
		}
	}
	return gray
}

// ImageOf returns a displayable image for either payload of s.
//
// Tensor payloads must be channel-first float32 with 3 channels; values are clamped to
// [0, 255] and rounded, so this is only lossless for tensors holding raw pixel values.
func ImageOf(s Sample) (image.Image, error) {
	if s.Image != nil {
		return s.Image, nil
	}
	if s.Tensor == nil {
		return nil, errors.Wrap(ErrExpectedTensor, "empty sample")
	}
	shape := s.Tensor.Shape()
	if shape.DType != dtypes.Float32 || shape.Rank() != 3 || shape.Dimensions[0] != 3 {
		return nil, errors.Wrapf(ErrChannelMismatch, "want float32 tensor shaped [3, H, W], got %s", shape)
	}
	channels, height, width := shape.Dimensions[0], shape.Dimensions[1], shape.Dimensions[2]
	plane := height * width
	hwc := make([]float32, channels*plane)
	s.Tensor.MustConstFlatData(func(flatAny any) {
		flat := flatAny.([]float32)
		for c := 0; c < channels; c++ {
			for pos := 0; pos < plane; pos++ {
				v := float64(flat[c*plane+pos])
				hwc[pos*channels+c] = float32(math.Max(0, math.Min(255, v)))
			}
		}
	})
	t := tensors.FromFlatDataAndDimensions(hwc, height, width, channels)
	defer t.FinalizeAll()
	return timages.ToImage().MaxValue(255).Single(t), nil
}
