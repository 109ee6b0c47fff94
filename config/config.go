// Package config holds the settings of the dataset tools: where the images and the label
// file are, the seed of the random transforms, and the transform chain itself.
//
// Settings come from, in increasing priority: an optional JSON file, environment variables
// (optionally loaded from a .env file) and, in the commands, flags.
package config

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Noofbiz/imagenet/transforms"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Environment variables overriding the JSON configuration.
const (
	EnvImageDir   = "IMAGENET_DIR"
	EnvLabelsFile = "IMAGENET_LABELS"
	EnvSeed       = "IMAGENET_SEED"
	EnvWorkers    = "IMAGENET_WORKERS"
)

// DotEnvFile is loaded by Load if it exists. Variables already set in the environment win.
var DotEnvFile = ".env"

var (
	// ErrInvalidConfig is returned for values that can't be used.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownOp is returned by BuildChain for an unknown transform name.
	ErrUnknownOp = errors.New("unknown transform op")
)

// Config is the configuration of the dataset and its transforms. The zero value of each
// field means "use the default".
type Config struct {
	// ImageDir is the directory with the image files. Required.
	ImageDir string `json:"image_dir"`

	// LabelsFile is the label file, one "<prefix> <name>" line per class. Required.
	LabelsFile string `json:"labels_file"`

	// Seed for the random transforms. If zero, a time-based seed is used.
	Seed int64 `json:"seed"`

	// Workers reading examples in parallel. If zero, the number of CPUs plus one.
	Workers int `json:"workers"`

	// MaxExamples limits the number of examples scanned. If zero, all of them.
	MaxExamples int `json:"max_examples"`

	// Transforms is the chain applied to each example, in order.
	Transforms []TransformConfig `json:"transforms"`
}

// TransformConfig describes one operator of the chain. Op selects the operator, the other
// fields are its parameters; only the ones used by Op are read.
type TransformConfig struct {
	// Op is one of rescale, random_crop, center_crop, random_horizontal_flip, to_tensor,
	// normalize and color_jitter.
	Op string `json:"op"`

	// Size is [edge] or [height, width].
	Size []int `json:"size,omitempty"`

	// P is the flip probability, 0.5 if not set.
	P *float64 `json:"p,omitempty"`

	Mean []float64 `json:"mean,omitempty"`
	Std  []float64 `json:"std,omitempty"`

	Brightness float64 `json:"brightness,omitempty"`
	Contrast   float64 `json:"contrast,omitempty"`
	Saturation float64 `json:"saturation,omitempty"`
	Hue        float64 `json:"hue,omitempty"`
}

// Load reads the JSON configuration at path, if path is not empty, and applies the
// environment variables on top of it.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(err, "failed to load %s", DotEnvFile)
	}
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read configuration")
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse configuration %s", path)
		}
		klog.V(1).Infof("config: loaded %s", path)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvImageDir); v != "" {
		c.ImageDir = v
	}
	if v := os.Getenv(EnvLabelsFile); v != "" {
		c.LabelsFile = v
	}
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return errors.Wrapf(ErrInvalidConfig, "%s must be an integer: %v", EnvSeed, err)
		}
		c.Seed = seed
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		workers, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrapf(ErrInvalidConfig, "%s must be an integer: %v", EnvWorkers, err)
		}
		c.Workers = workers
	}
	return nil
}

// Validate checks that the required fields are set and the numbers are in range.
func (c *Config) Validate() error {
	if c.ImageDir == "" {
		return errors.Wrapf(ErrInvalidConfig, "image_dir (or %s) is required", EnvImageDir)
	}
	if c.LabelsFile == "" {
		return errors.Wrapf(ErrInvalidConfig, "labels_file (or %s) is required", EnvLabelsFile)
	}
	if c.Workers < 0 {
		return errors.Wrapf(ErrInvalidConfig, "workers is %d", c.Workers)
	}
	if c.MaxExamples < 0 {
		return errors.Wrapf(ErrInvalidConfig, "max_examples is %d", c.MaxExamples)
	}
	return nil
}

// JSON returns the indented JSON form of c, as accepted by Load.
func (c *Config) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// BuildChain builds the transform chain. Each random operator gets its own source, drawn
// from one seeded with Seed, so a fixed seed reproduces the whole chain.
func (c *Config) BuildChain() (transforms.Compose, error) {
	seed := c.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	seeds := rand.New(rand.NewSource(seed))
	chain := make(transforms.Compose, 0, len(c.Transforms))
	for ii, tc := range c.Transforms {
		op, err := tc.build(rand.New(rand.NewSource(seeds.Int63())))
		if err != nil {
			return nil, errors.WithMessagef(err, "transforms[%d]", ii)
		}
		chain = append(chain, op)
	}
	return chain, nil
}

func (tc TransformConfig) size() (transforms.Size, error) {
	switch len(tc.Size) {
	case 1:
		return transforms.Edge(tc.Size[0]), nil
	case 2:
		return transforms.HW(tc.Size[0], tc.Size[1]), nil
	}
	return transforms.Size{}, errors.Wrapf(ErrInvalidConfig, "%s size must be [edge] or [height, width], got %v", tc.Op, tc.Size)
}

func (tc TransformConfig) build(rng *rand.Rand) (transforms.Transform, error) {
	switch tc.Op {
	case "rescale":
		size, err := tc.size()
		if err != nil {
			return nil, err
		}
		return transforms.NewRescale(size)
	case "random_crop":
		size, err := tc.size()
		if err != nil {
			return nil, err
		}
		return transforms.NewRandomCrop(size, rng)
	case "center_crop":
		size, err := tc.size()
		if err != nil {
			return nil, err
		}
		return transforms.NewCenterCrop(size)
	case "random_horizontal_flip":
		p := 0.5
		if tc.P != nil {
			p = *tc.P
		}
		return transforms.NewRandomHorizontalFlip(p, rng)
	case "to_tensor":
		return transforms.ToTensor{}, nil
	case "normalize":
		return transforms.NewNormalize(tc.Mean, tc.Std)
	case "color_jitter":
		return transforms.NewColorJitter(tc.Brightness, tc.Contrast, tc.Saturation, tc.Hue, rng)
	}
	return nil, errors.Wrapf(ErrUnknownOp, "%q", tc.Op)
}

// ImageNet channel statistics, in 0-255 pixel units.
var (
	ImageNetMean = []float64{123.675, 116.28, 103.53}
	ImageNetStd  = []float64{58.395, 57.12, 57.375}
)

// TrainTransforms returns the usual ResNet training chain: rescale to 256, random 224 crop,
// random flip, color jitter, tensor conversion and normalization.
func TrainTransforms() []TransformConfig {
	return []TransformConfig{
		{Op: "rescale", Size: []int{256}},
		{Op: "random_crop", Size: []int{224}},
		{Op: "random_horizontal_flip"},
		{Op: "color_jitter", Brightness: 0.4, Contrast: 0.4, Saturation: 0.4},
		{Op: "to_tensor"},
		{Op: "normalize", Mean: ImageNetMean, Std: ImageNetStd},
	}
}

// EvalTransforms returns the deterministic evaluation chain: rescale to 256, center 224
// crop, tensor conversion and normalization.
func EvalTransforms() []TransformConfig {
	return []TransformConfig{
		{Op: "rescale", Size: []int{256}},
		{Op: "center_crop", Size: []int{224}},
		{Op: "to_tensor"},
		{Op: "normalize", Mean: ImageNetMean, Std: ImageNetStd},
	}
}

// Preset returns the named chain: "train", "eval" or "none" (no transforms).
func Preset(name string) ([]TransformConfig, error) {
	switch name {
	case "train":
		return TrainTransforms(), nil
	case "eval":
		return EvalTransforms(), nil
	case "none":
		return nil, nil
	}
	return nil, errors.Wrapf(ErrInvalidConfig, "unknown preset %q, want train, eval or none", name)
}
