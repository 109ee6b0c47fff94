package transforms

import (
	"fmt"
	"image"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// Sample is the unit flowing through a chain: the image payload and its class id.
//
// Exactly one of Image and Tensor is set. Image holds the decoded pixels, either an
// *image.Gray (no channel axis) or an opaque *image.NRGBA (RGB). After ToTensor the payload
// is Tensor, a float32 tensor shaped [channels, height, width].
type Sample struct {
	Image  image.Image
	Tensor *tensors.Tensor
	Label  int
}

// IsTensor reports whether the payload was converted to a tensor.
func (s Sample) IsTensor() bool { return s.Tensor != nil }

// Shape returns [H, W] for grayscale images, [H, W, 3] for color images and the tensor
// dimensions ([C, H, W]) for tensors.
func (s Sample) Shape() []int {
	switch {
	case s.Tensor != nil:
		return append([]int(nil), s.Tensor.Shape().Dimensions...)
	case s.Image != nil:
		b := s.Image.Bounds()
		if isGray(s.Image) {
			return []int{b.Dy(), b.Dx()}
		}
		return []int{b.Dy(), b.Dx(), 3}
	}
	return nil
}

// Size is either a single edge length (Edge) or an explicit height and width (HW).
//
// For Rescale an edge length is matched to the shorter image side, keeping the aspect ratio.
// For crops it means a square.
type Size struct {
	Height, Width int
	edge          bool
}

// Edge returns a scalar Size.
func Edge(n int) Size { return Size{Height: n, Width: n, edge: true} }

// HW returns a Size with explicit height and width.
func HW(height, width int) Size { return Size{Height: height, Width: width} }

// IsEdge reports whether s was created with Edge.
func (s Size) IsEdge() bool { return s.edge }

func (s Size) String() string {
	if s.edge {
		return fmt.Sprintf("%d", s.Height)
	}
	return fmt.Sprintf("(%d,%d)", s.Height, s.Width)
}

func (s Size) validate() error {
	if s.Height <= 0 || s.Width <= 0 {
		return errors.Wrapf(ErrInvalidParameter, "size %s must be positive", s)
	}
	return nil
}

// imagePayload returns the image of s, or ErrExpectedImage.
func imagePayload(s Sample, op Transform) (image.Image, error) {
	if s.Image == nil {
		return nil, errors.Wrapf(ErrExpectedImage, "%s got a tensor, place it before ToTensor", nameOf(op))
	}
	return s.Image, nil
}
