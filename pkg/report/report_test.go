package report

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"colorshift/pkg/change"
	"colorshift/pkg/composition"
)

func TestPercent(t *testing.T) {
	for in, want := range map[float64]string{
		0:          "0%",
		1:          "100%",
		0.1:        "10%",
		0.123456:   "12.35%",
		1.0 / 3.0:  "33.33%",
		0.00004999: "0%",
	} {
		if got := Percent(in); got != want {
			t.Errorf("Percent(%v) = %q, want %q", in, got, want)
		}
	}
}

func scene(blue, green int) composition.Composition {
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
	c, err := composition.Analyzer{}.Analyze(img)
	if err != nil {
		panic(err)
	}
	return c
}

func TestComposition(t *testing.T) {
	var buf bytes.Buffer
	Composition(&buf, scene(25, 50))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"The percentage of blue is 25%",
		"The percentage of green is 50%",
		"The percentage of red is 0%",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	for i := range want {
		if !strings.HasSuffix(lines[i], want[i]) {
			t.Errorf("line %d = %q, want suffix %q", i, lines[i], want[i])
		}
	}
}

func TestComparison(t *testing.T) {
	v, err := change.Compare(scene(10, 40), scene(30, 20), change.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	Comparison(&buf, v)
	got := buf.String()
	for _, want := range []string{
		"Image 1 - Blue: 10%, Green: 40%\n",
		"Image 2 - Blue: 30%, Green: 20%\n",
		"Tsunami detected: Significant increase in blue relative to green (x6.00, threshold x1.50).",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %q", got, want)
		}
	}

	v, err = change.Compare(scene(10, 40), scene(5, 40), change.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if got := Headline(v); got != "No tsunami detected (x0.50, threshold x1.50)." {
		t.Errorf("Headline() = %q", got)
	}
	v.RatioOfRatios = math.Inf(1)
	if got := Headline(v); !strings.Contains(got, "xinf") {
		t.Errorf("Headline() = %q", got)
	}
}
