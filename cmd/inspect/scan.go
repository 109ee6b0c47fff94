package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/Noofbiz/imagenet/datasets"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	gdatasets "github.com/gomlx/gomlx/pkg/ml/datasets"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/schollz/progressbar/v3"
)

// scanStats summarizes the examples yielded by a scan.
type scanStats struct {
	examples int
	shapes   map[string]int
	labels   map[int]int
}

// scan reads up to limit examples (all if limit is 0) of ds with the given number of
// parallel workers (NumCPU+1 if 0), the same way a gomlx training loop would.
func scan(ds *datasets.ImageNet2012Dataset, workers, limit int, dumper *sampleDumper) (*scanStats, error) {
	if workers <= 0 {
		workers = runtime.NumCPU() + 1
	}
	yielder := ds.Yielder().EOFOnError().Limit(limit)
	total := yielder.Len()
	var source train.Dataset = gdatasets.CustomParallel(yielder).Parallelism(workers).Buffer(workers).Start()

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("scanning"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionClearOnFinish(),
	)
	stats := &scanStats{shapes: make(map[string]int), labels: make(map[int]int)}
	for {
		_, inputs, labels, err := source.Yield()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := stats.add(inputs, labels, dumper); err != nil {
			return nil, err
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	if err := yielder.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

// add records one yielded example and frees its tensors.
func (s *scanStats) add(inputs, labels []*tensors.Tensor, dumper *sampleDumper) error {
	defer func() {
		for _, t := range append(inputs, labels...) {
			_ = t.FinalizeAll()
		}
	}()
	image, idxT, labelT := inputs[0], inputs[1], labels[0]
	idx := int(idxT.Value().(int64))
	label := int(labelT.Value().(int32))
	s.examples++
	s.shapes[fmt.Sprint(image.Shape().Dimensions)]++
	s.labels[label]++
	if dumper != nil {
		if err := dumper.save(idx, label, image); err != nil {
			return err
		}
	}
	return nil
}
