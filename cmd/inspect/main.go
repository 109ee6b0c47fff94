// Command inspect scans an ImageNet 2012 image directory through the transform chain and
// reports what a data loader would see: the number of examples and classes, the size on
// disk, the shapes coming out of the chain and the class distribution.
//
// Usage:
//
//	inspect -dir /data/imagenet/train -labels /data/imagenet/labels.txt -preset train -n 1000 \
//	    -histogram plots/classes.png -samples plots/samples
//
// Settings are read from -config (JSON), then IMAGENET_* environment variables (and a .env
// file), then flags given explicitly on the command line.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/Noofbiz/imagenet/config"
	"github.com/Noofbiz/imagenet/datasets"
	"github.com/dustin/go-humanize"
	"k8s.io/klog/v2"
)

func main() {
	klog.InitFlags(nil)
	configPath := flag.String("config", "", "path to a JSON configuration file")
	dir := flag.String("dir", "", "directory with the image files (overrides config)")
	labelsFile := flag.String("labels", "", "label file, one \"<prefix> <name>\" per line (overrides config)")
	preset := flag.String("preset", "", "transform chain preset: train, eval or none (overrides config transforms)")
	seed := flag.Int64("seed", 0, "random seed for the transforms, 0 for a time-based seed (overrides config)")
	workers := flag.Int("workers", 0, "number of parallel readers, 0 for NumCPU+1 (overrides config)")
	n := flag.Int("n", 0, "maximum number of examples to scan, 0 for all (overrides config)")
	histogram := flag.String("histogram", "", "if set, write a PNG bar chart of examples per class to this path")
	samplesDir := flag.String("samples", "", "if set, write the first transformed examples as PNGs to this directory")
	numSamples := flag.Int("num-samples", 8, "number of examples written to -samples")
	printConfig := flag.Bool("print-config", false, "print the effective (JSON+env+flags) configuration and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		klog.Fatalf("failed to load configuration: %+v", err)
	}
	// Only flags given explicitly override the configuration.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dir":
			cfg.ImageDir = *dir
		case "labels":
			cfg.LabelsFile = *labelsFile
		case "seed":
			cfg.Seed = *seed
		case "workers":
			cfg.Workers = *workers
		case "n":
			cfg.MaxExamples = *n
		case "preset":
			cfg.Transforms, err = config.Preset(*preset)
		}
	})
	if err != nil {
		klog.Fatalf("invalid -preset: %v", err)
	}
	if cfg.Transforms == nil && *preset == "" {
		cfg.Transforms = config.EvalTransforms()
	}
	if *printConfig {
		data, err := cfg.JSON()
		if err != nil {
			klog.Fatalf("failed to encode configuration: %v", err)
		}
		fmt.Println(string(data))
		return
	}
	if err := cfg.Validate(); err != nil {
		klog.Fatalf("%v", err)
	}

	chain, err := cfg.BuildChain()
	if err != nil {
		klog.Fatalf("failed to build transforms: %+v", err)
	}
	ds, err := datasets.NewImageNet2012Dataset(cfg.ImageDir, cfg.LabelsFile, chain)
	if err != nil {
		klog.Fatalf("failed to open dataset: %+v", err)
	}
	fmt.Printf("Dataset: %s\n", ds)
	fmt.Printf("Transforms: %s\n", chain)

	size, err := diskSize(ds)
	if err != nil {
		klog.Fatalf("%+v", err)
	}
	fmt.Printf("Files: %s, %s on disk\n", humanize.Comma(int64(ds.Len())), humanize.Bytes(size))

	counts, unlabeled := countClasses(ds)
	fmt.Printf("Classes: %d in the label file, %d with examples, %s files without a known prefix\n",
		ds.Labels().Len(), nonZero(counts), humanize.Comma(int64(unlabeled)))
	printTopClasses(ds, counts, 5)

	if *histogram != "" {
		if err := plotHistogram(*histogram, counts); err != nil {
			klog.Fatalf("failed to plot class histogram: %+v", err)
		}
		fmt.Printf("Class histogram written to %s\n", *histogram)
	}

	var dumper *sampleDumper
	if *samplesDir != "" {
		dumper, err = newSampleDumper(*samplesDir, *numSamples, ds, chain)
		if err != nil {
			klog.Fatalf("%+v", err)
		}
	}

	start := time.Now()
	stats, err := scan(ds, cfg.Workers, cfg.MaxExamples, dumper)
	if err != nil {
		klog.Fatalf("scan failed: %+v", err)
	}
	elapsed := time.Since(start)
	fmt.Printf("Scanned %s examples in %s (%.1f examples/s)\n",
		humanize.Comma(int64(stats.examples)), elapsed.Round(time.Millisecond),
		float64(stats.examples)/elapsed.Seconds())
	for _, shape := range sortedKeys(stats.shapes) {
		fmt.Printf("  shape %s: %s examples\n", shape, humanize.Comma(int64(stats.shapes[shape])))
	}
	if dumper != nil {
		fmt.Printf("%d samples written to %s\n", dumper.written(), *samplesDir)
	}
	if !klog.V(1).Enabled() {
		return
	}
	for _, label := range sortedKeys(stats.labels) {
		klog.Infof("scanned label %d: %d examples", label, stats.labels[label])
	}
}

// diskSize returns the total size of the dataset files.
func diskSize(ds *datasets.ImageNet2012Dataset) (uint64, error) {
	var total uint64
	for idx := range ds.Len() {
		path, err := ds.Path(idx)
		if err != nil {
			return 0, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return 0, err
		}
		total += uint64(info.Size())
	}
	return total, nil
}

// countClasses counts the files of each class id, from the file names alone.
func countClasses(ds *datasets.ImageNet2012Dataset) (counts []int, unlabeled int) {
	counts = make([]int, ds.Labels().Len())
	for idx := range ds.Len() {
		label, err := ds.ClassOf(idx)
		if err != nil {
			klog.V(1).Infof("%v", err)
			unlabeled++
			continue
		}
		counts[label]++
	}
	return
}

func nonZero(counts []int) (n int) {
	for _, c := range counts {
		if c > 0 {
			n++
		}
	}
	return
}

func printTopClasses(ds *datasets.ImageNet2012Dataset, counts []int, top int) {
	ids := make([]int, len(counts))
	for ii := range ids {
		ids[ii] = ii
	}
	sort.SliceStable(ids, func(i, j int) bool { return counts[ids[i]] > counts[ids[j]] })
	for _, id := range ids[:min(top, len(ids))] {
		if counts[id] == 0 {
			break
		}
		prefix, _ := ds.Labels().Prefix(id)
		name, _ := ds.Labels().Name(id)
		fmt.Printf("  class %4d %s %-30s %s examples\n", id, prefix, name, humanize.Comma(int64(counts[id])))
	}
}

func sortedKeys[K string | int, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
