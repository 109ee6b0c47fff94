package transforms

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ColorJitter randomly changes brightness, contrast, saturation and hue.
//
// For every coefficient that is not zero one factor is drawn per call: brightness, contrast
// and saturation factors from [max(0, 1-x), 1+x], the hue shift from [-Hue, Hue] (in turns of
// the color wheel). The enabled adjustments are then applied in a uniformly shuffled order.
// With all coefficients at zero ColorJitter returns its input unchanged.
//
// It accepts both payloads. A tensor payload (raw 0-255 values, [3, H, W]) is converted to an
// 8-bit image, adjusted, and converted back, so it's rounded and clamped to [0, 255].
// Grayscale images come out as RGB.
type ColorJitter struct {
	Brightness, Contrast, Saturation, Hue float64
	rng                                   *lockedRand
}

// NewColorJitter returns a ColorJitter. Coefficients must be non-negative and hue at most 0.5.
// A nil rng is seeded from the clock.
func NewColorJitter(brightness, contrast, saturation, hue float64, rng *rand.Rand) (*ColorJitter, error) {
	for _, p := range []struct {
		name  string
		value float64
	}{{"brightness", brightness}, {"contrast", contrast}, {"saturation", saturation}, {"hue", hue}} {
		if p.value < 0 {
			return nil, errors.Wrapf(ErrInvalidParameter, "color jitter %s is %g, must be >= 0", p.name, p.value)
		}
	}
	if hue > 0.5 {
		return nil, errors.Wrapf(ErrInvalidParameter, "color jitter hue is %g, must be <= 0.5", hue)
	}
	return &ColorJitter{
		Brightness: brightness,
		Contrast:   contrast,
		Saturation: saturation,
		Hue:        hue,
		rng:        newLockedRand(rng),
	}, nil
}

func (op *ColorJitter) String() string {
	return fmt.Sprintf("ColorJitter(brightness=%g, contrast=%g, saturation=%g, hue=%g)",
		op.Brightness, op.Contrast, op.Saturation, op.Hue)
}

// adjustment is one drawn photometric change.
type adjustment struct {
	name   string
	factor float64
	fn     func(img *image.NRGBA, factor float64) *image.NRGBA
}

// draw picks the factors and the order of the adjustments for one call.
func (op *ColorJitter) draw() (adjs []adjustment) {
	uniform := func(rng *rand.Rand, lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }
	op.rng.Do(func(rng *rand.Rand) {
		if op.Brightness > 0 {
			adjs = append(adjs, adjustment{"brightness",
				uniform(rng, math.Max(0, 1-op.Brightness), 1+op.Brightness), adjustBrightness})
		}
		if op.Contrast > 0 {
			adjs = append(adjs, adjustment{"contrast",
				uniform(rng, math.Max(0, 1-op.Contrast), 1+op.Contrast), adjustContrast})
		}
		if op.Saturation > 0 {
			adjs = append(adjs, adjustment{"saturation",
				uniform(rng, math.Max(0, 1-op.Saturation), 1+op.Saturation), adjustSaturation})
		}
		if op.Hue > 0 {
			adjs = append(adjs, adjustment{"hue", uniform(rng, -op.Hue, op.Hue), adjustHue})
		}
		rng.Shuffle(len(adjs), func(i, j int) { adjs[i], adjs[j] = adjs[j], adjs[i] })
	})
	return
}

// Apply implements Transform.
func (op *ColorJitter) Apply(s Sample) (Sample, error) {
	adjs := op.draw()
	if len(adjs) == 0 {
		return s, nil
	}
	src, err := ImageOf(s)
	if err != nil {
		return Sample{}, errors.WithMessagef(err, "%s", op)
	}
	img := imaging.Clone(src)
	for _, adj := range adjs {
		img = adj.fn(img, adj.factor)
		klog.V(2).Infof("transforms: color jitter %s %.3f", adj.name, adj.factor)
	}
	if !s.IsTensor() {
		s.Image = img
		return s, nil
	}
	return ToTensor{}.Apply(Sample{Image: img, Label: s.Label})
}

// luma is the ITU-R 601-2 luma transform.
func luma(c color.NRGBA) float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

func clampToUint8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(255, v))))
}

// blend returns a + factor*(c - a) per channel: factor 0 gives a, 1 gives c.
func blend(c color.NRGBA, a [3]float64, factor float64) color.NRGBA {
	return color.NRGBA{
		R: clampToUint8(a[0] + factor*(float64(c.R)-a[0])),
		G: clampToUint8(a[1] + factor*(float64(c.G)-a[1])),
		B: clampToUint8(a[2] + factor*(float64(c.B)-a[2])),
		A: c.A,
	}
}

// adjustBrightness blends with black.
func adjustBrightness(img *image.NRGBA, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return blend(c, [3]float64{}, factor)
	})
}

// adjustContrast blends with the mean luma of the whole image, computed on the 8-bit gray
// version of it and rounded to an integer.
func adjustContrast(img *image.NRGBA, factor float64) *image.NRGBA {
	var sum float64
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < b.Dx(); x++ {
			sum += math.Round(luma(color.NRGBA{R: row[x*4], G: row[x*4+1], B: row[x*4+2]}))
		}
	}
	mean := 0.0
	if n := b.Dx() * b.Dy(); n > 0 {
		mean = math.Round(sum / float64(n))
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return blend(c, [3]float64{mean, mean, mean}, factor)
	})
}

// adjustSaturation blends each pixel with its own gray level.
func adjustSaturation(img *image.NRGBA, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		l := luma(c)
		return blend(c, [3]float64{l, l, l}, factor)
	})
}

// adjustHue rotates the HSV hue by shift turns.
func adjustHue(img *image.NRGBA, shift float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		h, s, v := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Hsv()
		h = math.Mod(h+shift*360, 360)
		if h < 0 {
			h += 360
		}
		r, g, b := colorful.Hsv(h, s, v).Clamped().RGB255()
		return color.NRGBA{R: r, G: g, B: b, A: c.A}
	})
}
