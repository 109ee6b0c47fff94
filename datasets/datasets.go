// Package datasets exposes the ImageNet 2012 image directory as an indexable dataset.
//
// An ImageNet2012Dataset stores the file listing and the label index; images are only read
// and decoded when an example is requested, so memory use does not depend on the dataset
// size. Every example goes through an optional transforms.Transform chain.
//
// Layout and intended usage:
//
//   - rootDir holds the image files directly (no class sub-directories), named
//     "<prefix>_<anything>", e.g. "n02708093_7537.JPEG" or "n02708093_ILSVRC2012_val_00000001.JPEG".
//   - labelsFile lists one class per line: the prefix followed by the class name.
//   - The class id of a file is the line number (0-based) of its prefix in labelsFile.
//
// The dataset can drive a gomlx training loop through Yielder, which implements
// train.Dataset and can be wrapped with gomlx's datasets.Parallel.
package datasets

import "github.com/Noofbiz/imagenet/transforms"

// Dataset is the random-access interface consumed by data loaders: the number of examples
// and the example at a given index. Implementations must be safe for concurrent Get calls.
type Dataset interface {
	Len() int
	Get(idx int) (transforms.Sample, error)
}

var _ Dataset = (*ImageNet2012Dataset)(nil)
