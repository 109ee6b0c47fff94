package datasets

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Noofbiz/imagenet/labels"
	"github.com/Noofbiz/imagenet/transforms"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrIndexOutOfRange is returned when an example index is not in [0, Len()).
var ErrIndexOutOfRange = errors.New("example index out of range")

// ImageNet2012Dataset lazily loads the images of a flat ImageNet 2012 directory.
//
// The file listing and the label index are built once by NewImageNet2012Dataset and never
// change afterwards, so Get can be called concurrently, in any order, any number of times.
type ImageNet2012Dataset struct {
	rootDir   string
	index     *labels.Index
	files     []string
	transform transforms.Transform
}

// NewImageNet2012Dataset lists rootDir and loads the label index from labelsFile.
//
// Only regular files (or symlinks to regular files) are listed, sub-directories are skipped.
// File contents are not checked: a file that is not an image only fails when Get reaches it.
// transform may be nil, in which case Get returns the decoded image.
func NewImageNet2012Dataset(rootDir, labelsFile string, transform transforms.Transform) (*ImageNet2012Dataset, error) {
	index, err := labels.Load(labelsFile)
	if err != nil {
		return nil, err
	}
	files, err := listFiles(rootDir)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("datasets: %d files in %s, %d classes from %s", len(files), rootDir, index.Len(), labelsFile)
	return &ImageNet2012Dataset{
		rootDir:   rootDir,
		index:     index,
		files:     files,
		transform: transform,
	}, nil
}

// listFiles returns the names of the regular files in dir, in lexical order.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list image directory %s", dir)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		mode := entry.Type()
		if mode&os.ModeSymlink != 0 {
			info, err := os.Stat(filepath.Join(dir, entry.Name()))
			if err != nil {
				klog.V(1).Infof("datasets: skipping broken link %s: %v", entry.Name(), err)
				continue
			}
			mode = info.Mode()
		}
		if !mode.IsRegular() {
			continue
		}
		files = append(files, entry.Name())
	}
	return files, nil
}

// Name returns the name of the dataset.
func (d *ImageNet2012Dataset) Name() string {
	return "ImageNet2012"
}

// Len returns the number of files listed.
func (d *ImageNet2012Dataset) Len() int {
	return len(d.files)
}

// Labels returns the label index.
func (d *ImageNet2012Dataset) Labels() *labels.Index {
	return d.index
}

// Transform returns the chain applied by Get, possibly nil.
func (d *ImageNet2012Dataset) Transform() transforms.Transform {
	return d.transform
}

func (d *ImageNet2012Dataset) checkIndex(idx int) error {
	if idx < 0 || idx >= len(d.files) {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d out of range [0, %d)", idx, len(d.files))
	}
	return nil
}

// FileName returns the name of the file of example idx, relative to the root directory.
func (d *ImageNet2012Dataset) FileName(idx int) (string, error) {
	if err := d.checkIndex(idx); err != nil {
		return "", err
	}
	return d.files[idx], nil
}

// Path returns the path of the file of example idx.
func (d *ImageNet2012Dataset) Path(idx int) (string, error) {
	name, err := d.FileName(idx)
	if err != nil {
		return "", err
	}
	return filepath.Join(d.rootDir, name), nil
}

// ClassOf returns the class id of example idx from its file name, without reading the file.
func (d *ImageNet2012Dataset) ClassOf(idx int) (int, error) {
	name, err := d.FileName(idx)
	if err != nil {
		return 0, err
	}
	return d.index.Lookup(name)
}

// Get reads, decodes and labels example idx, then applies the transform chain.
func (d *ImageNet2012Dataset) Get(idx int) (transforms.Sample, error) {
	path, err := d.Path(idx)
	if err != nil {
		return transforms.Sample{}, err
	}
	img, err := DecodeFile(path)
	if err != nil {
		return transforms.Sample{}, err
	}
	label, err := d.index.Lookup(d.files[idx])
	if err != nil {
		return transforms.Sample{}, errors.WithMessagef(err, "example %d", idx)
	}
	s := transforms.Sample{Image: img, Label: label}
	if d.transform == nil {
		return s, nil
	}
	s, err = d.transform.Apply(s)
	if err != nil {
		return transforms.Sample{}, errors.WithMessagef(err, "example %d (%s)", idx, d.files[idx])
	}
	if klog.V(2).Enabled() {
		klog.Infof("datasets: example %d %s -> label %d, shape %v", idx, d.files[idx], s.Label, s.Shape())
	}
	return s, nil
}

// String implements fmt.Stringer.
func (d *ImageNet2012Dataset) String() string {
	return fmt.Sprintf("%s(%s, %d examples, %d classes)", d.Name(), d.rootDir, d.Len(), d.index.Len())
}
