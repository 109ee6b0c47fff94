package datasets

import (
	"io"
	"sync"

	"github.com/Noofbiz/imagenet/transforms"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"
)

// Yielder walks an ImageNet2012Dataset once per epoch, in index order, and implements
// gomlx's train.Dataset.
//
// Each Yield returns one example: inputs are the image as a float32 [3, H, W] tensor and the
// example index as an int64 scalar, labels is the class id as an int32 scalar. If the
// dataset's chain doesn't end with a tensor, ToTensor is applied.
//
// Yield is safe for concurrent use: the cursor is advanced under a lock and the decoding
// happens outside of it, so it can be wrapped with datasets.Parallel. It doesn't shuffle nor
// batch.
type Yielder struct {
	ds         *ImageNet2012Dataset
	eofOnError bool
	limit      int

	mu   sync.Mutex
	next int
	err  error
}

var _ train.Dataset = (*Yielder)(nil)

// Yielder returns a new Yielder positioned at the first example.
func (d *ImageNet2012Dataset) Yielder() *Yielder {
	return &Yielder{ds: d}
}

// EOFOnError makes Yield end the epoch with io.EOF on the first failure, and on every call
// after it until Reset. The failure is kept in Err.
//
// Use it when wrapping the Yielder with datasets.Parallel, which doesn't recover from errors
// returned by the dataset it wraps.
func (y *Yielder) EOFOnError() *Yielder {
	y.eofOnError = true
	return y
}

// Limit ends every epoch after the first n examples. n <= 0 removes the limit.
//
// Indices past n are never read, so failures there don't show up in Err.
func (y *Yielder) Limit(n int) *Yielder {
	y.mu.Lock()
	defer y.mu.Unlock()
	y.limit = n
	return y
}

// Len is the number of examples yielded per epoch.
func (y *Yielder) Len() int {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.len()
}

func (y *Yielder) len() int {
	if n := y.ds.Len(); y.limit <= 0 || y.limit > n {
		return n
	}
	return y.limit
}

// Name implements train.Dataset.
func (y *Yielder) Name() string {
	return y.ds.Name()
}

// Reset implements train.Dataset. It rewinds to the first example and clears Err.
func (y *Yielder) Reset() {
	y.mu.Lock()
	defer y.mu.Unlock()
	y.next = 0
	y.err = nil
}

// Err returns the first failure of Yield since the last Reset.
func (y *Yielder) Err() error {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.err
}

// Yield implements train.Dataset. It returns io.EOF after the last example, or after Limit
// examples.
func (y *Yielder) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	y.mu.Lock()
	idx := y.next
	if idx >= y.len() || (y.eofOnError && y.err != nil) {
		y.mu.Unlock()
		err = io.EOF
		return
	}
	y.next++
	y.mu.Unlock()

	s, err := y.ds.Get(idx)
	if err == nil && !s.IsTensor() {
		s, err = transforms.ToTensor{}.Apply(s)
		err = errors.WithMessagef(err, "example %d", idx)
	}
	if err != nil {
		y.mu.Lock()
		if y.err == nil {
			y.err = err
		}
		y.mu.Unlock()
		if y.eofOnError {
			err = io.EOF
		}
		return
	}
	inputs = []*tensors.Tensor{s.Tensor, tensors.FromScalar(int64(idx))}
	labels = []*tensors.Tensor{tensors.FromScalar(int32(s.Label))}
	return
}
