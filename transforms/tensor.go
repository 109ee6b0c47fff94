package transforms

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	timages "github.com/gomlx/gomlx/pkg/core/tensors/images"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// ToTensor converts the image payload to a float32 tensor shaped [3, H, W].
//
// Grayscale images are replicated into 3 identical channels. Pixel values keep their raw
// 0-255 range; scale them with Normalize if needed.
type ToTensor struct{}

func (ToTensor) String() string { return "ToTensor" }

// Apply implements Transform.
func (op ToTensor) Apply(s Sample) (Sample, error) {
	img, err := imagePayload(s, op)
	if err != nil {
		return Sample{}, err
	}
	b := img.Bounds()
	if b.Min.X != 0 || b.Min.Y != 0 {
		img = Canonical(img)
	}
	height, width := b.Dy(), b.Dx()

	// images.ToTensor yields [H, W, 3]; gray pixels expand to R=G=B.
	hwc := timages.ToTensor(dtypes.Float32).MaxValue(255).Single(img)
	defer hwc.FinalizeAll()

	const channels = 3
	plane := height * width
	chw := make([]float32, channels*plane)
	hwc.MustConstFlatData(func(flatAny any) {
		flat := flatAny.([]float32)
		for pos := 0; pos < plane; pos++ {
			for c := 0; c < channels; c++ {
				chw[c*plane+pos] = flat[pos*channels+c]
			}
		}
	})
	s.Tensor = tensors.FromFlatDataAndDimensions(chw, channels, height, width)
	s.Image = nil
	return s, nil
}

// Normalize maps each channel c of a channel-first tensor to (v - Mean[c]) / Std[c].
type Normalize struct {
	Mean, Std []float64
}

// NewNormalize returns a Normalize. mean and std must have the same, non-zero length and std
// must not contain zeros.
func NewNormalize(mean, std []float64) (*Normalize, error) {
	if len(mean) == 0 || len(mean) != len(std) {
		return nil, errors.Wrapf(ErrInvalidParameter, "normalize needs one mean and one std per channel, got %d and %d",
			len(mean), len(std))
	}
	for c, v := range std {
		if v == 0 {
			return nil, errors.Wrapf(ErrInvalidParameter, "normalize std[%d] is 0", c)
		}
	}
	return &Normalize{
		Mean: append([]float64(nil), mean...),
		Std:  append([]float64(nil), std...),
	}, nil
}

func (op *Normalize) String() string { return fmt.Sprintf("Normalize(mean=%v, std=%v)", op.Mean, op.Std) }

// Apply implements Transform. It returns a new tensor, the input tensor is not modified.
func (op *Normalize) Apply(s Sample) (Sample, error) {
	if s.Tensor == nil {
		return Sample{}, errors.Wrapf(ErrExpectedTensor, "%s got an image, place it after ToTensor", op)
	}
	shape := s.Tensor.Shape()
	if shape.DType != dtypes.Float32 || shape.Rank() != 3 {
		return Sample{}, errors.Wrapf(ErrExpectedTensor, "%s wants a float32 [C, H, W] tensor, got %s", op, shape)
	}
	channels := shape.Dimensions[0]
	if channels != len(op.Mean) {
		return Sample{}, errors.Wrapf(ErrChannelMismatch, "%s has %d channels, tensor %s has %d",
			op, len(op.Mean), shape, channels)
	}
	plane := shape.Dimensions[1] * shape.Dimensions[2]
	out := make([]float32, channels*plane)
	s.Tensor.MustConstFlatData(func(flatAny any) {
		flat := flatAny.([]float32)
		for c := 0; c < channels; c++ {
			mean, std := op.Mean[c], op.Std[c]
			for pos := c * plane; pos < (c+1)*plane; pos++ {
				out[pos] = float32((float64(flat[pos]) - mean) / std)
			}
		}
	})
	s.Tensor = tensors.FromFlatDataAndDimensions(out, shape.Dimensions...)
	return s, nil
}

// Inverse returns the Normalize undoing op: v*Std[c] + Mean[c].
func (op *Normalize) Inverse() *Normalize {
	inv := &Normalize{Mean: make([]float64, len(op.Mean)), Std: make([]float64, len(op.Std))}
	for c := range op.Mean {
		inv.Mean[c] = -op.Mean[c] / op.Std[c]
		inv.Std[c] = 1 / op.Std[c]
	}
	return inv
}
