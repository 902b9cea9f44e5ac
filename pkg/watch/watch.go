// Package watch polls a capture folder and compares each new capture with the one before it.
package watch

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"colorshift/pkg/change"
	"colorshift/pkg/composition"
	"colorshift/pkg/imageio"
	"colorshift/pkg/notify"
	"colorshift/pkg/utils"
)

type Watcher struct {
	Dir       string
	Interval  time.Duration
	Analyzer  composition.Analyzer
	Options   change.Options
	MaxDim    int
	Publisher notify.Publisher
	Logger    *log.Logger

	seen   string
	before *capture
}

// Capture is an image file found in the watched folder.
type Capture struct {
	Path    string
	ModTime time.Time
}

func (c Capture) key() string {
	return fmt.Sprintf("%s@%d", c.Path, c.ModTime.UnixNano())
}

type capture struct {
	Capture
	composition composition.Composition
}

func (w *Watcher) logger() *log.Logger {
	if w.Logger == nil {
		return log.Default()
	}
	return w.Logger
}

func (w *Watcher) publisher() notify.Publisher {
	if w.Publisher == nil {
		return notify.Log{Logger: w.logger()}
	}
	return w.Publisher
}

// Captures lists the images in dir, mask visualizations excluded, oldest first.
// Ties on modification time are broken by name.
func Captures(dir string) ([]Capture, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading capture folder: %w", err)
	}
	var captures []Capture
	for _, entry := range entries {
		if entry.IsDir() || utils.NotImage(entry.Name()) || utils.IsMask(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		captures = append(captures, Capture{Path: filepath.Join(dir, entry.Name()), ModTime: info.ModTime()})
	}
	slices.SortFunc(captures, func(a, b Capture) int {
		if c := a.ModTime.Compare(b.ModTime); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})
	return captures, nil
}

// Step polls the folder once. When the newest capture has not been seen yet it is compared
// with the previous capture, and a detected change is published. The returned verdict is nil
// when nothing was compared.
func (w *Watcher) Step(ctx context.Context) (*change.Verdict, error) {
	captures, err := Captures(w.Dir)
	if err != nil {
		return nil, err
	}
	if len(captures) == 0 {
		return nil, nil
	}
	newest := captures[len(captures)-1]
	if newest.key() == w.seen {
		return nil, nil
	}
	w.seen = newest.key()

	after, err := w.analyze(newest)
	if err != nil {
		w.logger().Warn("Skipping capture", "path", newest.Path, "err", err)
		return nil, nil
	}

	if w.before == nil && len(captures) > 1 {
		previous := captures[len(captures)-2]
		if before, err := w.analyze(previous); err != nil {
			w.logger().Warn("Skipping capture", "path", previous.Path, "err", err)
		} else {
			w.before = &before
		}
	}
	if w.before == nil {
		w.before = &after
		w.logger().Info("Baseline capture", "path", newest.Path)
		return nil, nil
	}

	before := w.before
	verdict, err := change.Compare(before.composition, after.composition, w.Options)
	if err != nil {
		return nil, fmt.Errorf("error comparing %s with %s: %w", before.Path, newest.Path, err)
	}
	w.before = &after

	w.logger().Info("Compared captures",
		"before", before.Path,
		"after", newest.Path,
		"ratio_of_ratios", verdict.RatioOfRatios,
		"detected", verdict.Detected,
	)
	if !verdict.Detected {
		return &verdict, nil
	}

	outcome := w.publisher().Publish(ctx, notify.Alert{
		Verdict:    verdict,
		BeforePath: before.Path,
		AfterPath:  newest.Path,
		At:         newest.ModTime,
	})
	for _, failure := range outcome.Failures {
		w.logger().Error("Could not publish alert", "recipient", failure.Recipient, "kind", failure.Kind, "err", failure.Err)
	}
	return &verdict, nil
}

func (w *Watcher) analyze(c Capture) (capture, error) {
	img, err := imageio.LoadScaled(c.Path, w.MaxDim)
	if err != nil {
		return capture{}, err
	}
	comp, err := w.Analyzer.Analyze(img)
	if err != nil {
		return capture{}, err
	}
	return capture{Capture: c, composition: comp}, nil
}

// Run calls Step every Interval until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	interval := w.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	w.logger().Info("Starting watcher", "dir", w.Dir, "interval", interval)
	for {
		if _, err := w.Step(ctx); err != nil {
			w.logger().Error("Watch step failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
