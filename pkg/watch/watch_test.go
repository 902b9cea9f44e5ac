package watch

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"colorshift/pkg/lib"
	"colorshift/pkg/notify"
)

type recorder struct {
	mu     sync.Mutex
	alerts []notify.Alert
	fail   bool
}

func (r *recorder) Publish(_ context.Context, alert notify.Alert) notify.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
	if r.fail {
		return notify.Outcome{Failures: []*lib.PublishError{
			{Kind: lib.PublishNetwork, Recipient: "1", Err: errors.New("connection reset")},
		}}
	}
	return notify.Outcome{Delivered: 1}
}

var epoch = time.Date(2024, 12, 12, 10, 0, 0, 0, time.UTC)

// writeScene writes a 10x10 PNG with blue pixels first, then green, the rest black.
func writeScene(t *testing.T, dir, name string, blue, green int, at time.Time) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for i := range 100 {
		c := color.RGBA{A: 0xff}
		switch {
		case i < blue:
			c.B = 255
		case i < blue+green:
			c.G = 255
		}
		img.Set(i%10, i/10, c)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, at, at); err != nil {
		t.Fatal(err)
	}
	return path
}

func newWatcher(dir string, p notify.Publisher) *Watcher {
	return &Watcher{Dir: dir, Publisher: p, Logger: log.New(&bytes.Buffer{})}
}

func TestStep_DetectsAndPublishes(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := newWatcher(dir, rec)

	first := writeScene(t, dir, "001.png", 10, 40, epoch)
	if v, err := w.Step(context.Background()); err != nil || v != nil {
		t.Fatalf("a single capture is a baseline, got %v %v", v, err)
	}

	second := writeScene(t, dir, "002.png", 30, 20, epoch.Add(time.Second))
	v, err := w.Step(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v == nil || !v.Detected {
		t.Fatalf("expected a detection, got %+v", v)
	}
	if len(rec.alerts) != 1 || rec.alerts[0].BeforePath != first || rec.alerts[0].AfterPath != second {
		t.Fatalf("unexpected alerts %+v", rec.alerts)
	}

	if v, err := w.Step(context.Background()); err != nil || v != nil {
		t.Errorf("nothing new should compare nothing, got %v %v", v, err)
	}

	writeScene(t, dir, "003.png", 30, 20, epoch.Add(2*time.Second))
	v, err = w.Step(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v == nil || v.Detected {
		t.Errorf("an unchanged scene must not be detected, got %+v", v)
	}
	if len(rec.alerts) != 1 {
		t.Errorf("only detections are published, got %d alerts", len(rec.alerts))
	}
}

func TestStep_OrdersByCaptureTime(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	older := writeScene(t, dir, "z.png", 10, 40, epoch)
	newer := writeScene(t, dir, "a.png", 30, 20, epoch.Add(time.Minute))
	writeScene(t, dir, "b_mask.png", 100, 0, epoch.Add(time.Hour))

	v, err := newWatcher(dir, rec).Step(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v == nil || !v.Detected {
		t.Fatalf("expected a detection, got %+v", v)
	}
	if rec.alerts[0].BeforePath != older || rec.alerts[0].AfterPath != newer {
		t.Errorf("before/after = %s/%s, want %s/%s", rec.alerts[0].BeforePath, rec.alerts[0].AfterPath, older, newer)
	}
}

func TestStep_SkipsUnreadableCapture(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := newWatcher(dir, rec)

	first := writeScene(t, dir, "001.png", 10, 40, epoch)
	if _, err := w.Step(context.Background()); err != nil {
		t.Fatal(err)
	}

	corrupt := filepath.Join(dir, "002.png")
	if err := os.WriteFile(corrupt, []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}
	at := epoch.Add(time.Second)
	if err := os.Chtimes(corrupt, at, at); err != nil {
		t.Fatal(err)
	}
	if v, err := w.Step(context.Background()); err != nil || v != nil {
		t.Fatalf("a corrupt capture is skipped, got %v %v", v, err)
	}

	writeScene(t, dir, "003.png", 30, 20, epoch.Add(2*time.Second))
	v, err := w.Step(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v == nil || !v.Detected || rec.alerts[0].BeforePath != first {
		t.Errorf("expected comparison against the last good capture, got %+v %+v", v, rec.alerts)
	}
}

func TestStep_PublishFailureDoesNotStop(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{fail: true}
	w := newWatcher(dir, rec)

	writeScene(t, dir, "001.png", 10, 40, epoch)
	writeScene(t, dir, "002.png", 30, 20, epoch.Add(time.Second))
	if v, err := w.Step(context.Background()); err != nil || v == nil || !v.Detected {
		t.Fatalf("publish failures are not step errors, got %v %v", v, err)
	}

	writeScene(t, dir, "003.png", 90, 5, epoch.Add(2*time.Second))
	if v, err := w.Step(context.Background()); err != nil || v == nil || !v.Detected {
		t.Fatalf("watcher should keep going, got %v %v", v, err)
	}
	if len(rec.alerts) != 2 {
		t.Errorf("failed alerts are not retried, got %d publish calls", len(rec.alerts))
	}
}

func TestStep_MissingFolder(t *testing.T) {
	w := newWatcher(filepath.Join(t.TempDir(), "missing"), &recorder{})
	if _, err := w.Step(context.Background()); err == nil {
		t.Error("expected an error for a missing folder")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	writeScene(t, dir, "001.png", 10, 40, epoch)
	w := newWatcher(dir, &recorder{})
	w.Interval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run returned %v", err)
	}
}
