package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"colorshift/pkg/change"
	"colorshift/pkg/composition"
	"colorshift/pkg/config"
	"colorshift/pkg/imageio"
	"colorshift/pkg/mask"
	"colorshift/pkg/report"
	"colorshift/pkg/utils"
	"colorshift/pkg/walker"
)

const usage = `Usage:
  colorshift [flags] <image>             report the color composition of one image
  colorshift [flags] <before> <after>    compare two captures of the same scene
  colorshift [flags] -dir <folder>       report every image in a folder

Flags:
`

const (
	exitOK         = 0
	exitFailure    = 1
	exitUsageError = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	cfg      config.Config
	masks    bool
	json     bool
	dir      string
	analyzer composition.Analyzer
}

func run(args []string, stdout, stderr io.Writer) int {
	log.SetOutput(stderr)

	cfg, err := config.Load()
	if err != nil {
		log.Error("Invalid configuration", "err", err)
		return exitFailure
	}

	fs := flag.NewFlagSet("colorshift", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	var (
		opts  = options{cfg: cfg}
		order = cfg.Order.String()
		debug bool
	)
	fs.BoolVar(&opts.masks, "masks", true, "write a mask PNG per color range (single image mode)")
	fs.StringVar(&opts.cfg.MaskDir, "out", cfg.MaskDir, "folder for mask PNGs")
	fs.Float64Var(&opts.cfg.Threshold, "threshold", cfg.Threshold, "ratio-of-ratios a change must exceed")
	fs.StringVar(&opts.cfg.RangesFile, "ranges", cfg.RangesFile, "JSON file with color ranges")
	fs.StringVar(&order, "order", order, "channel order of the range bounds: bgr or rgb")
	fs.IntVar(&opts.cfg.MaxDim, "max-dim", cfg.MaxDim, "downscale images so neither side exceeds this (0 keeps full size)")
	fs.BoolVar(&opts.json, "json", false, "print JSON instead of text")
	fs.BoolVar(&debug, "debug", false, "enable debug logging")
	fs.StringVar(&opts.dir, "dir", "", "analyze every image under this folder")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsageError
	}

	log.SetLevel(opts.cfg.LogLevel)
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	if opts.cfg.Order, err = mask.ParseChannelOrder(order); err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsageError
	}
	if err := opts.cfg.Validate(); err != nil {
		log.Error("Invalid flags", "err", err)
		return exitUsageError
	}
	if opts.analyzer, err = opts.cfg.Analyzer(); err != nil {
		log.Error("Could not load color ranges", "path", opts.cfg.RangesFile, "err", err)
		return exitFailure
	}

	switch {
	case opts.dir != "" && fs.NArg() == 0:
		err = batch(stdout, opts)
	case opts.dir == "" && fs.NArg() == 1:
		err = single(stdout, opts, fs.Arg(0))
	case opts.dir == "" && fs.NArg() == 2:
		err = compare(stdout, opts, fs.Arg(0), fs.Arg(1))
	default:
		fs.Usage()
		return exitUsageError
	}
	if err != nil {
		log.Error(err)
		return exitFailure
	}
	return exitOK
}

func single(w io.Writer, opts options, path string) error {
	img, err := imageio.LoadScaled(path, opts.cfg.MaxDim)
	if err != nil {
		return err
	}
	c, err := opts.analyzer.Analyze(img)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if opts.json {
		if err := utils.EncodeIndent(w, c, "  "); err != nil {
			return err
		}
	} else {
		report.Composition(w, c)
	}

	if !opts.masks {
		return nil
	}
	paths, err := imageio.SaveMasks(opts.cfg.MaskDir, img, c, opts.cfg.Order)
	for _, p := range paths {
		log.Info("Saved mask", "path", p)
	}
	return err
}

func compare(w io.Writer, opts options, before, after string) error {
	b, err := imageio.LoadScaled(before, opts.cfg.MaxDim)
	if err != nil {
		return err
	}
	a, err := imageio.LoadScaled(after, opts.cfg.MaxDim)
	if err != nil {
		return err
	}
	verdict, err := change.Detect(b, a, opts.analyzer, opts.cfg.Options())
	if err != nil {
		return err
	}
	if opts.json {
		return utils.EncodeIndent(w, verdict, "  ")
	}
	report.Comparison(w, verdict)
	return nil
}

type batchArgs struct {
	analyzer composition.Analyzer
	maxDim   int
}

type batchEntry struct {
	Path        string                   `json:"path"`
	Composition *composition.Composition `json:"composition,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

func batch(w io.Writer, opts options) error {
	results := make(chan walker.Result[composition.Composition])
	walkErr := make(chan error, 1)
	go func() {
		walkErr <- walker.WalkDir(context.Background(), opts.dir, results, walker.Config[composition.Composition, batchArgs]{
			Skipper: walker.Skippers(utils.NotImage, utils.IsMask),
			Do: func(args walker.Args[batchArgs]) (composition.Composition, error) {
				img, err := imageio.LoadScaled(args.Path, args.Args.maxDim)
				if err != nil {
					return composition.Composition{}, err
				}
				return args.Args.analyzer.Analyze(img)
			},
			Args: batchArgs{analyzer: opts.analyzer, maxDim: opts.cfg.MaxDim},
		})
	}()

	var entries []batchEntry
	for res := range utils.Iter(results) {
		entry := batchEntry{Path: res.Path}
		if res.Err != nil {
			entry.Error = res.Err.Error()
		} else {
			c := res.Result
			entry.Composition = &c
		}
		entries = append(entries, entry)
	}
	if err := <-walkErr; err != nil {
		return err
	}
	slices.SortFunc(entries, func(a, b batchEntry) int { return strings.Compare(a.Path, b.Path) })

	if opts.json {
		if err := utils.EncodeIndent(w, entries, "  "); err != nil {
			return err
		}
	} else {
		for _, e := range entries {
			if e.Composition != nil {
				fmt.Fprintf(w, "%s: %s\n", e.Path, report.Summary(*e.Composition))
			}
		}
	}

	var failed int
	for _, e := range entries {
		if e.Error != "" {
			failed++
			log.Warn("Could not analyze", "path", e.Path, "err", e.Error)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images could not be analyzed", failed, len(entries))
	}
	return nil
}
