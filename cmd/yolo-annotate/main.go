package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akamensky/argparse"

	"github.com/ironsheep/yolo-annotate/internal/annotate"
	"github.com/ironsheep/yolo-annotate/internal/catalog"
	"github.com/ironsheep/yolo-annotate/internal/config"
	"github.com/ironsheep/yolo-annotate/internal/darknet"
	"github.com/ironsheep/yolo-annotate/internal/pipeline"
)

func check(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func main() {
	parser := argparse.NewParser("yolo-annotate", "Detect objects in images with darknet YOLO and draw labeled boxes")
	configFile := parser.String("c", "config", &argparse.Options{Help: "YAML configuration file", Required: false, Default: os.Getenv(config.EnvPrefix + "CONFIG")})
	images := parser.StringList("i", "image", &argparse.Options{Help: "Image to process. May be repeated", Required: false})
	listFile := parser.String("l", "list", &argparse.Options{Help: "File holding image paths, one per line", Required: false})
	savePath := parser.String("o", "save", &argparse.Options{Help: "Output path. Ending in .png writes every image to that file, otherwise the image index and .png are appended", Required: false})
	classes := parser.String("n", "classes", &argparse.Options{Help: "Class names file", Required: false})
	gpu := parser.Flag("", "gpu", &argparse.Options{Help: "The darknet binary is a GPU build"})
	strict := parser.Flag("", "strict", &argparse.Options{Help: "Fail images with detections of unknown classes"})
	scope := parser.Selector("", "scope", []string{config.ScopeBatch, config.ScopeImage}, &argparse.Options{Help: "Color assignment scope: batch or image", Required: false})
	seed := parser.Int("s", "seed", &argparse.Options{Help: "Color shuffle seed. 0 seeds from the clock", Required: false, Default: 0})
	timeout := parser.String("t", "timeout", &argparse.Options{Help: "Detector timeout, e.g. 90s. 0 waits indefinitely", Required: false})
	verify := parser.Flag("", "verify", &argparse.Options{Help: "Check drawn labels with OCR"})
	asJSON := parser.Flag("", "json", &argparse.Options{Help: "Print the report as JSON"})
	logLevel := parser.Selector("", "log-level", []string{"debug", "info", "warning", "error", "critical"}, &argparse.Options{Help: "Minimum log level", Required: false})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	check(err)

	// Flags win over the file and the environment.
	if *savePath != "" {
		cfg.Annotate.SavePath = *savePath
	}
	if *classes != "" {
		cfg.Classes = *classes
	}
	if *gpu {
		cfg.Darknet.GPU = true
	}
	if *strict {
		cfg.Annotate.Strict = true
	}
	if *scope != "" {
		cfg.Annotate.ColorScope = *scope
	}
	if *seed != 0 {
		cfg.Annotate.Seed = int64(*seed)
	}
	if *timeout != "" {
		d, err := time.ParseDuration(*timeout)
		check(err)
		cfg.Darknet.Timeout = d
	}
	if *verify {
		cfg.OCR.Enabled = true
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	check(cfg.Validate())

	paths := *images
	if *listFile != "" {
		b, err := os.ReadFile(*listFile)
		check(err)
		paths = append(paths, darknet.SplitPaths(string(b))...)
	}
	if len(paths) == 0 {
		fmt.Print(parser.Usage("no images given: use --image or --list"))
		os.Exit(1)
	}

	// stdout carries the report.
	logger := newLogger(os.Stderr, cfg.Level())
	defer logger.Close()

	cat, err := catalog.Load(cfg.Classes)
	check(err)

	runner := darknet.NewRunner(logger, cfg.Darknet.RunnerOptions())
	logger.Debugf("Detector command: %v", runner.CommandLine())

	annotator := annotate.New(cat, annotate.Options{
		FontScale: cfg.Annotate.FontScale,
		Strict:    cfg.Annotate.Strict,
	})
	p := pipeline.New(logger, runner, annotator, nil, pipeline.Options{
		ColorScope: cfg.Annotate.ColorScope,
		Seed:       cfg.Annotate.Seed,
		KeepImages: cfg.OCR.Enabled,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := p.Run(ctx, paths, cfg.Annotate.SavePath)
	check(err)
	batchErr := report.Wait()

	out, err := buildReport(logger, report, cfg.OCR)
	check(err)
	check(writeReport(os.Stdout, out, *asJSON))

	if batchErr != nil {
		logger.Errorf("%v of %v images failed", report.Failed(), len(report.Items))
		os.Exit(2)
	}
}
