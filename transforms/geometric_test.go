package transforms

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gradient returns an opaque image where pixel (x, y) is {R: x, G: y, B: x+y}.
func gradient(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: uint8(x + y), A: 255})
		}
	}
	return img
}

func grayGradient(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(10*y + x)})
		}
	}
	return img
}

func TestRescaleEdge(t *testing.T) {
	op, err := NewRescale(Edge(10))
	require.NoError(t, err)

	for _, tc := range []struct {
		name          string
		height, width int
		want          []int
	}{
		{"portrait", 40, 20, []int{20, 10, 3}},
		{"landscape", 20, 40, []int{10, 20, 3}},
		{"square", 30, 30, []int{10, 10, 3}},
		{"truncated", 33, 20, []int{16, 10, 3}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out, err := op.Apply(Sample{Image: gradient(tc.width, tc.height), Label: 3})
			require.NoError(t, err)
			assert.Equal(t, tc.want, out.Shape())
			assert.Equal(t, 3, out.Label)
		})
	}
}

func TestRescaleHW(t *testing.T) {
	op, err := NewRescale(HW(7, 9))
	require.NoError(t, err)

	out, err := op.Apply(Sample{Image: gradient(30, 20)})
	require.NoError(t, err)
	assert.Equal(t, []int{7, 9, 3}, out.Shape())

	out, err = op.Apply(Sample{Image: grayGradient(30, 20)})
	require.NoError(t, err)
	assert.IsType(t, &image.Gray{}, out.Image)
	assert.Equal(t, []int{7, 9}, out.Shape())

	_, err = NewRescale(HW(0, 9))
	assert.True(t, errors.Is(err, ErrInvalidParameter))
}

func TestRandomHorizontalFlip(t *testing.T) {
	img := gradient(5, 4)

	always, err := NewRandomHorizontalFlip(1, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	out, err := always.Apply(Sample{Image: img, Label: 2})
	require.NoError(t, err)
	flipped := out.Image.(*image.NRGBA)
	for y := 0; y < 4; y++ {
		for x := 0; x < 5; x++ {
			assert.Equal(t, img.NRGBAAt(4-x, y), flipped.NRGBAAt(x, y))
		}
	}
	assert.Equal(t, 2, out.Label)

	// Flipping twice restores the original.
	back, err := always.Apply(out)
	require.NoError(t, err)
	assert.Equal(t, img.Pix, back.Image.(*image.NRGBA).Pix)

	never, err := NewRandomHorizontalFlip(0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	for range 20 {
		out, err := never.Apply(Sample{Image: img})
		require.NoError(t, err)
		assert.Equal(t, img.Pix, out.Image.(*image.NRGBA).Pix)
	}

	_, err = NewRandomHorizontalFlip(1.5, nil)
	assert.True(t, errors.Is(err, ErrInvalidParameter))
}

func TestRandomHorizontalFlipGray(t *testing.T) {
	img := grayGradient(3, 2)
	op, err := NewRandomHorizontalFlip(1, nil)
	require.NoError(t, err)
	out, err := op.Apply(Sample{Image: img})
	require.NoError(t, err)
	flipped := out.Image.(*image.Gray)
	assert.Equal(t, []uint8{2, 1, 0, 12, 11, 10}, flipped.Pix)
}

func TestRandomCrop(t *testing.T) {
	const width, height = 20, 12
	img := gradient(width, height)
	op, err := NewRandomCrop(HW(5, 7), rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	for range 50 {
		out, err := op.Apply(Sample{Image: img})
		require.NoError(t, err)
		require.Equal(t, []int{5, 7, 3}, out.Shape())
		cropped := out.Image.(*image.NRGBA)
		origin := cropped.NRGBAAt(0, 0)
		left, top := int(origin.R), int(origin.G)
		assert.GreaterOrEqual(t, top, 0)
		assert.Less(t, top, height-5)
		assert.GreaterOrEqual(t, left, 0)
		assert.Less(t, left, width-7)
		assert.Equal(t, img.NRGBAAt(left+6, top+4), cropped.NRGBAAt(6, 4))
	}
}

func TestRandomCropSeeded(t *testing.T) {
	img := gradient(64, 48)
	op1, err := NewRandomCrop(Edge(16), rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	op2, err := NewRandomCrop(Edge(16), rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	for range 10 {
		out1, err := op1.Apply(Sample{Image: img})
		require.NoError(t, err)
		out2, err := op2.Apply(Sample{Image: img})
		require.NoError(t, err)
		assert.Equal(t, out1.Image.(*image.NRGBA).Pix, out2.Image.(*image.NRGBA).Pix)
	}
}

func TestRandomCropWholeImage(t *testing.T) {
	img := gradient(6, 4)
	op, err := NewRandomCrop(HW(4, 6), nil)
	require.NoError(t, err)
	out, err := op.Apply(Sample{Image: img})
	require.NoError(t, err)
	assert.Equal(t, img.Pix, out.Image.(*image.NRGBA).Pix)
}

func TestCenterCrop(t *testing.T) {
	img := gradient(11, 8)
	op, err := NewCenterCrop(HW(4, 5))
	require.NoError(t, err)

	out1, err := op.Apply(Sample{Image: img})
	require.NoError(t, err)
	out2, err := op.Apply(Sample{Image: img})
	require.NoError(t, err)
	cropped := out1.Image.(*image.NRGBA)
	assert.Equal(t, cropped.Pix, out2.Image.(*image.NRGBA).Pix)
	assert.Equal(t, []int{4, 5, 3}, out1.Shape())
	// top = (8-4)/2 = 2, left = (11-5)/2 = 3
	assert.Equal(t, color.NRGBA{R: 3, G: 2, B: 5, A: 255}, cropped.NRGBAAt(0, 0))

	gray, err := op.Apply(Sample{Image: grayGradient(11, 8)})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, gray.Shape())
	assert.Equal(t, uint8(23), gray.Image.(*image.Gray).GrayAt(0, 0).Y)
}

func TestCropTooLarge(t *testing.T) {
	img := gradient(10, 10)
	center, err := NewCenterCrop(HW(11, 5))
	require.NoError(t, err)
	_, err = center.Apply(Sample{Image: img})
	assert.True(t, errors.Is(err, ErrCropTooLarge), "got %v", err)

	random, err := NewRandomCrop(HW(5, 11), nil)
	require.NoError(t, err)
	_, err = random.Apply(Sample{Image: img})
	assert.True(t, errors.Is(err, ErrCropTooLarge), "got %v", err)
}

func TestGeometricRejectsTensor(t *testing.T) {
	s, err := ToTensor{}.Apply(Sample{Image: gradient(4, 4)})
	require.NoError(t, err)
	op, err := NewCenterCrop(Edge(2))
	require.NoError(t, err)
	_, err = op.Apply(s)
	assert.True(t, errors.Is(err, ErrExpectedImage), "got %v", err)
}
