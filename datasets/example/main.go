package main

// Example command that builds the ImageNet 2012 dataset with the evaluation chain and prints
// the first few examples.
//
// Images are loaded lazily: only the files of the printed examples are read and decoded.
//
// Usage:
//   go run ./datasets/example -dir /data/imagenet/val -labels /data/imagenet/LOC_synset_mapping.txt
//
// If -dir or -labels are not given, IMAGENET_DIR and IMAGENET_LABELS are used.

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Noofbiz/imagenet/config"
	"github.com/Noofbiz/imagenet/datasets"
)

func main() {
	dir := flag.String("dir", os.Getenv("IMAGENET_DIR"), "directory with the image files")
	labelsFile := flag.String("labels", os.Getenv("IMAGENET_LABELS"), "label file, one \"<prefix> <name>\" per line")
	n := flag.Int("n", 8, "number of examples to print")
	flag.Parse()

	cfg := &config.Config{Transforms: config.EvalTransforms()}
	chain, err := cfg.BuildChain()
	if err != nil {
		log.Fatalf("failed to build transforms: %v", err)
	}
	fmt.Printf("Transforms: %s\n", chain)

	ds, err := datasets.NewImageNet2012Dataset(*dir, *labelsFile, chain)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}
	fmt.Printf("Total examples available: %d (%d classes)\n", ds.Len(), ds.Labels().Len())

	for idx := range min(*n, ds.Len()) {
		s, err := ds.Get(idx)
		if err != nil {
			log.Fatalf("failed to load example %d: %v", idx, err)
		}
		name, _ := ds.Labels().Name(s.Label)
		file, _ := ds.FileName(idx)
		fmt.Printf("  #%d %s: shape %v, label %d (%s)\n", idx, file, s.Shape(), s.Label, name)
	}

	fmt.Println("\nExample completed successfully!")
}
