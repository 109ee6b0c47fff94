// Package transforms implements the preprocessing chain applied to each dataset example.
//
// A chain is a Compose: an ordered list of values implementing Transform, applied one after
// the other. Operators fall in three families:
//
//   - geometric, on the image payload: Rescale, RandomCrop, CenterCrop, RandomHorizontalFlip;
//   - layout/type conversion: ToTensor, which turns the height×width×channel image into a
//     channel-first float32 tensor;
//   - photometric: Normalize (on the tensor) and ColorJitter (on either payload).
//
// Operators never read or modify Sample.Label. Stochastic operators hold their own seedable
// random source, guarded by a mutex, so one chain can be shared by concurrent callers.
package transforms

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	// ErrExpectedImage is returned by operators that only work on the image payload.
	ErrExpectedImage = errors.New("transform expects an image payload")

	// ErrExpectedTensor is returned by operators that only work on the tensor payload.
	ErrExpectedTensor = errors.New("transform expects a tensor payload")

	// ErrCropTooLarge is returned when a crop does not fit in the image.
	ErrCropTooLarge = errors.New("crop larger than image")

	// ErrChannelMismatch is returned when per-channel parameters don't match the tensor.
	ErrChannelMismatch = errors.New("channel count mismatch")

	// ErrInvalidParameter is returned by constructors given out-of-range parameters.
	ErrInvalidParameter = errors.New("invalid transform parameter")
)

// Transform maps one Sample to another.
type Transform interface {
	Apply(s Sample) (Sample, error)
}

// Func adapts a plain function to a Transform.
type Func func(s Sample) (Sample, error)

// Apply implements Transform.
func (fn Func) Apply(s Sample) (Sample, error) { return fn(s) }

// Compose applies its transforms in order. The first error aborts the chain.
type Compose []Transform

// Apply implements Transform.
func (c Compose) Apply(s Sample) (Sample, error) {
	for ii, op := range c {
		var err error
		s, err = op.Apply(s)
		if err != nil {
			return Sample{}, errors.WithMessagef(err, "transform #%d %s", ii, nameOf(op))
		}
		if klog.V(2).Enabled() {
			klog.Infof("transforms: #%d %s -> shape %v", ii, nameOf(op), s.Shape())
		}
	}
	return s, nil
}

// String lists the operators in the chain.
func (c Compose) String() string {
	parts := make([]string, len(c))
	for ii, op := range c {
		parts[ii] = nameOf(op)
	}
	return "Compose[" + strings.Join(parts, ", ") + "]"
}

func nameOf(op Transform) string {
	if s, ok := op.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", op)
}

// lockedRand serializes access to a *rand.Rand, which is not safe for concurrent use.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// newLockedRand wraps rng. A nil rng is replaced by one seeded from the clock.
func newLockedRand(rng *rand.Rand) *lockedRand {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &lockedRand{rng: rng}
}

// Do runs fn holding the lock, for operators that need several draws at once.
func (r *lockedRand) Do(fn func(rng *rand.Rand)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.rng)
}

func (r *lockedRand) Float64() (v float64) {
	r.Do(func(rng *rand.Rand) { v = rng.Float64() })
	return
}
