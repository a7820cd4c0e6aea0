// Package config loads yolo-annotate settings.
//
// Settings are resolved in this order, later sources winning:
//
//  1. built-in defaults (Default)
//  2. a YAML file, with ${VAR} references expanded from the environment
//  3. YOLO_ANNOTATE_* environment variables
//  4. command-line flags, applied by the caller
//
// A minimal file:
//
//	darknet:
//	  binary: ${DARKNET_HOME}/darknet
//	  data: cfg/coco.data
//	  config: cfg/yolov3.cfg
//	  weights: yolov3.weights
//	  gpu: true
//	classes: data/coco.names
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/a8m/envsubst"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/yolo-annotate/internal/darknet"
	"github.com/ironsheep/yolo-annotate/internal/logging"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "YOLO_ANNOTATE_"

// Color scopes.
const (
	ScopeBatch = "batch" // one color assignment shared by every image of a run
	ScopeImage = "image" // a fresh assignment per image
)

// Darknet configures the detector process.
type Darknet struct {
	Binary       string        `yaml:"binary"`
	Data         string        `yaml:"data"`
	Config       string        `yaml:"config"`
	Weights      string        `yaml:"weights"`
	Manifest     string        `yaml:"manifest"`
	WorkDir      string        `yaml:"work_dir"`
	GPU          bool          `yaml:"gpu"`
	SplitKeyword string        `yaml:"split_keyword"`
	Timeout      time.Duration `yaml:"timeout"`
}

// RunnerOptions converts the detector settings for darknet.NewRunner.
func (d Darknet) RunnerOptions() darknet.Options {
	return darknet.Options{
		Binary:       d.Binary,
		NamesFile:    d.Data,
		ConfigFile:   d.Config,
		WeightsFile:  d.Weights,
		ManifestPath: d.Manifest,
		WorkDir:      d.WorkDir,
		GPU:          d.GPU,
		SplitKeyword: d.SplitKeyword,
		Timeout:      d.Timeout,
		Artifacts:    darknet.DefaultArtifacts,
	}
}

// Annotate configures rendering and output.
type Annotate struct {
	FontScale  float64 `yaml:"font_scale"`
	ColorScope string  `yaml:"color_scope"`
	Strict     bool    `yaml:"strict"`
	Seed       int64   `yaml:"seed"`
	SavePath   string  `yaml:"save_path"`
}

// OCR configures the optional label check.
type OCR struct {
	Enabled  bool   `yaml:"enabled"`
	Language string `yaml:"language"`
}

// Config is the complete settings tree.
type Config struct {
	Darknet  Darknet  `yaml:"darknet"`
	Classes  string   `yaml:"classes"`
	Annotate Annotate `yaml:"annotate"`
	OCR      OCR      `yaml:"ocr"`
	LogLevel string   `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Darknet: Darknet{
			Binary:       "./darknet",
			Data:         "cfg/coco.data",
			Config:       "cfg/yolov3.cfg",
			Weights:      "yolov3.weights",
			Manifest:     "train.txt",
			SplitKeyword: darknet.DefaultSplitKeyword,
		},
		Classes: "data/coco.names",
		Annotate: Annotate{
			FontScale:  0.5,
			ColorScope: ScopeBatch,
		},
		OCR: OCR{
			Language: "eng",
		},
		LogLevel: "info",
	}
}

// Load builds a Config from defaults, the optional YAML file at path and the
// environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		buf, err := envsubst.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from YOLO_ANNOTATE_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	var errs []error
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("DARKNET", &c.Darknet.Binary)
	str("DATA", &c.Darknet.Data)
	str("CFG", &c.Darknet.Config)
	str("WEIGHTS", &c.Darknet.Weights)
	str("MANIFEST", &c.Darknet.Manifest)
	str("WORK_DIR", &c.Darknet.WorkDir)
	str("SPLIT_KEYWORD", &c.Darknet.SplitKeyword)
	boolean("GPU", &c.Darknet.GPU)
	str("CLASSES", &c.Classes)
	str("COLOR_SCOPE", &c.Annotate.ColorScope)
	str("SAVE_PATH", &c.Annotate.SavePath)
	boolean("STRICT", &c.Annotate.Strict)
	boolean("OCR", &c.OCR.Enabled)
	str("OCR_LANGUAGE", &c.OCR.Language)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup(EnvPrefix + "TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err))
		} else {
			c.Darknet.Timeout = d
		}
	}
	if v, ok := lookup(EnvPrefix + "FONT_SCALE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sFONT_SCALE: %w", EnvPrefix, err))
		} else {
			c.Annotate.FontScale = f
		}
	}
	return multierr.Combine(errs...)
}

// Validate checks values that cannot be checked by the YAML decoder.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Darknet.Binary) == "" {
		return errors.New("darknet.binary must be set")
	}
	if c.Darknet.Timeout < 0 {
		return fmt.Errorf("darknet.timeout must not be negative, got %v", c.Darknet.Timeout)
	}
	if c.Annotate.FontScale <= 0 {
		return fmt.Errorf("annotate.font_scale must be positive, got %v", c.Annotate.FontScale)
	}
	switch c.Annotate.ColorScope {
	case ScopeBatch, ScopeImage:
	default:
		return fmt.Errorf("annotate.color_scope must be %q or %q, got %q", ScopeBatch, ScopeImage, c.Annotate.ColorScope)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Level returns the parsed log level. Call Validate first.
func (c *Config) Level() logging.Level {
	l, _ := logging.ParseLevel(c.LogLevel)
	return l
}
