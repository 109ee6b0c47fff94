package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Noofbiz/imagenet/datasets"
	"github.com/Noofbiz/imagenet/transforms"
	"github.com/disintegration/imaging"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// sampleDumper writes the first transformed examples of a scan as PNG files, so the effect
// of the chain can be checked by eye.
type sampleDumper struct {
	dir   string
	limit int
	ds    *datasets.ImageNet2012Dataset

	// denormalize undoes the last Normalize of the chain, if any, so the pixels are back in
	// the 0-255 range.
	denormalize *transforms.Normalize

	mu    sync.Mutex
	count int
}

func newSampleDumper(dir string, limit int, ds *datasets.ImageNet2012Dataset, chain transforms.Compose) (*sampleDumper, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create samples directory")
	}
	d := &sampleDumper{dir: dir, limit: limit, ds: ds}
	for _, op := range chain {
		if norm, ok := op.(*transforms.Normalize); ok {
			d.denormalize = norm.Inverse()
		}
	}
	return d, nil
}

func (d *sampleDumper) written() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// save writes example idx if fewer than limit examples were written so far.
func (d *sampleDumper) save(idx, label int, t *tensors.Tensor) error {
	d.mu.Lock()
	if d.count >= d.limit {
		d.mu.Unlock()
		return nil
	}
	d.count++
	d.mu.Unlock()

	s := transforms.Sample{Tensor: t, Label: label}
	if d.denormalize != nil {
		var err error
		if s, err = d.denormalize.Apply(s); err != nil {
			return err
		}
	}
	img, err := transforms.ImageOf(s)
	if err != nil {
		return err
	}
	name, err := d.ds.FileName(idx)
	if err != nil {
		return err
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	path := filepath.Join(d.dir, fmt.Sprintf("%s_label%d.png", base, label))
	return errors.Wrapf(imaging.Save(img, path), "failed to save sample %d", idx)
}
