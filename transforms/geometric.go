package transforms

import (
	"fmt"
	"image"
	"math/rand"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Rescale resizes the image with bilinear interpolation.
//
// With an Edge size the shorter side becomes the edge length and the longer side is scaled
// by the same ratio, truncated to an integer. With an HW size the image is resized to exactly
// that height and width, ignoring the aspect ratio.
type Rescale struct {
	Size Size
}

// NewRescale returns a Rescale to size.
func NewRescale(size Size) (*Rescale, error) {
	if err := size.validate(); err != nil {
		return nil, err
	}
	return &Rescale{Size: size}, nil
}

func (op *Rescale) String() string { return fmt.Sprintf("Rescale(%s)", op.Size) }

// OutputSize returns the height and width Rescale produces for an image of height×width.
func (op *Rescale) OutputSize(height, width int) (newHeight, newWidth int) {
	if !op.Size.edge {
		return op.Size.Height, op.Size.Width
	}
	edge := op.Size.Height
	if height > width {
		return int(float64(edge*height) / float64(width)), edge
	}
	return edge, int(float64(edge*width) / float64(height))
}

// Apply implements Transform.
func (op *Rescale) Apply(s Sample) (Sample, error) {
	img, err := imagePayload(s, op)
	if err != nil {
		return Sample{}, err
	}
	b := img.Bounds()
	newHeight, newWidth := op.OutputSize(b.Dy(), b.Dx())
	if newHeight <= 0 || newWidth <= 0 {
		return Sample{}, errors.Wrapf(ErrInvalidParameter, "%s of a %dx%d image gives %dx%d",
			op, b.Dy(), b.Dx(), newHeight, newWidth)
	}
	s.Image = keepGray(img, imaging.Resize(img, newWidth, newHeight, imaging.Linear))
	return s, nil
}

// RandomHorizontalFlip mirrors the image left-right with probability P.
type RandomHorizontalFlip struct {
	P   float64
	rng *lockedRand
}

// NewRandomHorizontalFlip returns a flip with probability p in [0, 1]. A nil rng is seeded
// from the clock.
func NewRandomHorizontalFlip(p float64, rng *rand.Rand) (*RandomHorizontalFlip, error) {
	if p < 0 || p > 1 {
		return nil, errors.Wrapf(ErrInvalidParameter, "flip probability %g not in [0, 1]", p)
	}
	return &RandomHorizontalFlip{P: p, rng: newLockedRand(rng)}, nil
}

func (op *RandomHorizontalFlip) String() string { return fmt.Sprintf("RandomHorizontalFlip(%g)", op.P) }

// Apply implements Transform. The flipped image is a new buffer.
func (op *RandomHorizontalFlip) Apply(s Sample) (Sample, error) {
	img, err := imagePayload(s, op)
	if err != nil {
		return Sample{}, err
	}
	if op.rng.Float64() < op.P {
		s.Image = keepGray(img, imaging.FlipH(img))
	}
	return s, nil
}

// RandomCrop cuts a window of Size at a uniformly drawn position.
type RandomCrop struct {
	Size Size
	rng  *lockedRand
}

// NewRandomCrop returns a RandomCrop. An Edge size crops a square. A nil rng is seeded from
// the clock.
func NewRandomCrop(size Size, rng *rand.Rand) (*RandomCrop, error) {
	if err := size.validate(); err != nil {
		return nil, err
	}
	return &RandomCrop{Size: size, rng: newLockedRand(rng)}, nil
}

func (op *RandomCrop) String() string { return fmt.Sprintf("RandomCrop(%s)", op.Size) }

// Apply implements Transform.
//
// The top offset is drawn from [0, H-h) and the left offset from [0, W-w). When the crop
// spans a whole side the offset on that side is 0.
func (op *RandomCrop) Apply(s Sample) (Sample, error) {
	img, err := imagePayload(s, op)
	if err != nil {
		return Sample{}, err
	}
	b := img.Bounds()
	if err := checkCrop(op, b, op.Size); err != nil {
		return Sample{}, err
	}
	var top, left int
	op.rng.Do(func(rng *rand.Rand) {
		if span := b.Dy() - op.Size.Height; span > 0 {
			top = rng.Intn(span)
		}
		if span := b.Dx() - op.Size.Width; span > 0 {
			left = rng.Intn(span)
		}
	})
	s.Image = crop(img, top, left, op.Size)
	return s, nil
}

// CenterCrop cuts a window of Size from the center of the image.
type CenterCrop struct {
	Size Size
}

// NewCenterCrop returns a CenterCrop. An Edge size crops a square.
func NewCenterCrop(size Size) (*CenterCrop, error) {
	if err := size.validate(); err != nil {
		return nil, err
	}
	return &CenterCrop{Size: size}, nil
}

func (op *CenterCrop) String() string { return fmt.Sprintf("CenterCrop(%s)", op.Size) }

// Apply implements Transform.
func (op *CenterCrop) Apply(s Sample) (Sample, error) {
	img, err := imagePayload(s, op)
	if err != nil {
		return Sample{}, err
	}
	b := img.Bounds()
	if err := checkCrop(op, b, op.Size); err != nil {
		return Sample{}, err
	}
	top := (b.Dy() - op.Size.Height) / 2
	left := (b.Dx() - op.Size.Width) / 2
	s.Image = crop(img, top, left, op.Size)
	return s, nil
}

func checkCrop(op Transform, b image.Rectangle, size Size) error {
	if size.Height > b.Dy() || size.Width > b.Dx() {
		return errors.Wrapf(ErrCropTooLarge, "%s on a %dx%d image", nameOf(op), b.Dy(), b.Dx())
	}
	return nil
}

// crop returns a copy of the window at (top, left), relative to the image origin.
func crop(img image.Image, top, left int, size Size) image.Image {
	rect := image.Rect(left, top, left+size.Width, top+size.Height).Add(img.Bounds().Min)
	return keepGray(img, imaging.Crop(img, rect))
}
