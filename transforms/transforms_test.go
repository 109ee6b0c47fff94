package transforms

import (
	"image"
	"image/color"
	"math/rand"
	"sync"
	"testing"

	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose(t *testing.T) {
	chain := Compose{
		must.M1(NewRescale(Edge(8))),
		must.M1(NewCenterCrop(Edge(4))),
		ToTensor{},
		must.M1(NewNormalize([]float64{0, 0, 0}, []float64{255, 255, 255})),
	}
	assert.Equal(t, "Compose[Rescale(8), CenterCrop(4), ToTensor, Normalize(mean=[0 0 0], std=[255 255 255])]",
		chain.String())

	out, err := chain.Apply(Sample{Image: gradient(16, 12), Label: 7})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 4}, out.Shape())
	assert.Equal(t, 7, out.Label)
	out.Tensor.MustConstFlatData(func(flatAny any) {
		for _, v := range flatAny.([]float32) {
			assert.GreaterOrEqual(t, v, float32(0))
			assert.LessOrEqual(t, v, float32(1))
		}
	})
}

func TestComposeOrder(t *testing.T) {
	var calls []string
	step := func(name string) Transform {
		return Func(func(s Sample) (Sample, error) {
			calls = append(calls, name)
			return s, nil
		})
	}
	_, err := Compose{step("a"), step("b"), step("c")}.Apply(Sample{Image: gradient(1, 1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, calls)
}

func TestComposeError(t *testing.T) {
	chain := Compose{
		must.M1(NewNormalize([]float64{0}, []float64{1})),
		ToTensor{},
	}
	_, err := chain.Apply(Sample{Image: gradient(2, 2)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExpectedTensor), "got %v", err)
	assert.Contains(t, err.Error(), "transform #0 Normalize")
}

func TestComposeEmpty(t *testing.T) {
	img := gradient(2, 2)
	out, err := Compose{}.Apply(Sample{Image: img, Label: 3})
	require.NoError(t, err)
	assert.Same(t, img, out.Image)
	assert.Equal(t, 3, out.Label)
}

func TestComposeConcurrent(t *testing.T) {
	chain := Compose{
		must.M1(NewRandomCrop(Edge(4), rand.New(rand.NewSource(1)))),
		must.M1(NewRandomHorizontalFlip(0.5, rand.New(rand.NewSource(2)))),
		ToTensor{},
	}
	img := gradient(10, 10)
	var wg sync.WaitGroup
	for ii := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := chain.Apply(Sample{Image: img, Label: ii})
			assert.NoError(t, err)
			assert.Equal(t, ii, out.Label)
			assert.Equal(t, []int{3, 4, 4}, out.Shape())
		}()
	}
	wg.Wait()
}

func TestCanonical(t *testing.T) {
	translucent := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	translucent.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 128})
	opaque := Canonical(translucent).(*image.NRGBA)
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, opaque.NRGBAAt(0, 0))
	assert.Equal(t, uint8(128), translucent.NRGBAAt(0, 0).A, "input must not be modified")

	gray16 := image.NewGray16(image.Rect(0, 0, 2, 1))
	gray16.SetGray16(1, 0, color.Gray16{Y: 0xFFFF})
	gray, ok := Canonical(gray16).(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, []uint8{0, 255}, gray.Pix)

	sub := grayGradient(4, 4).SubImage(image.Rect(1, 2, 3, 3))
	moved := Canonical(sub)
	assert.Equal(t, image.Rect(0, 0, 2, 1), moved.Bounds())
	assert.Equal(t, []uint8{21, 22}, moved.(*image.Gray).Pix)

	assert.Equal(t, []int{1, 1, 3}, Sample{Image: opaque}.Shape())
	assert.Equal(t, []int{1, 2}, Sample{Image: gray}.Shape())
	assert.Nil(t, Sample{}.Shape())
}

func TestSize(t *testing.T) {
	assert.Equal(t, "256", Edge(256).String())
	assert.True(t, Edge(256).IsEdge())
	assert.Equal(t, "(3,4)", HW(3, 4).String())
	assert.False(t, HW(3, 4).IsEdge())

	op := must.M1(NewRescale(Edge(256)))
	h, w := op.OutputSize(375, 500)
	assert.Equal(t, []int{256, 341}, []int{h, w})
	h, w = op.OutputSize(500, 375)
	assert.Equal(t, []int{341, 256}, []int{h, w})
}
