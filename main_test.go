package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeScene(t *testing.T, path string, blue, green int) {
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
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestRun_Single(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.png")
	writeScene(t, path, 10, 40)
	out := filepath.Join(dir, "masks")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-out", out, path}, &stdout, &stderr); code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	for _, want := range []string{
		"The percentage of blue is 10%",
		"The percentage of green is 40%",
		"The percentage of red is 0%",
	} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("output %q missing %q", stdout.String(), want)
		}
	}
	for _, name := range []string{"blue", "green", "red"} {
		if _, err := os.Stat(filepath.Join(out, name+"_mask.png")); err != nil {
			t.Errorf("mask for %s not written: %v", name, err)
		}
	}
}

func TestRun_SingleNoMasksJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.png")
	writeScene(t, path, 25, 0)

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-masks=false", "-out", dir, "-json", path}, &stdout, &stderr); code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	var c struct {
		Shares []struct {
			Name     string  `json:"name"`
			Fraction float64 `json:"fraction"`
		} `json:"shares"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &c); err != nil {
		t.Fatal(err)
	}
	if len(c.Shares) != 3 || c.Shares[0].Fraction != 0.25 {
		t.Errorf("unexpected shares %+v", c.Shares)
	}
	if _, err := os.Stat(filepath.Join(dir, "blue_mask.png")); err == nil {
		t.Error("masks written with -masks=false")
	}
}

func TestRun_Compare(t *testing.T) {
	dir := t.TempDir()
	before := filepath.Join(dir, "before.png")
	after := filepath.Join(dir, "after.png")
	writeScene(t, before, 10, 40)
	writeScene(t, after, 30, 20)

	var stdout, stderr bytes.Buffer
	if code := run([]string{before, after}, &stdout, &stderr); code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	for _, want := range []string{"Image 1 - Blue: 10%, Green: 40%", "Image 2 - Blue: 30%, Green: 20%", "Tsunami detected"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("output %q missing %q", stdout.String(), want)
		}
	}

	stdout.Reset()
	if code := run([]string{"-threshold", "7", before, after}, &stdout, &stderr); code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "No tsunami detected") {
		t.Errorf("output %q", stdout.String())
	}
}

func TestRun_Batch(t *testing.T) {
	dir := t.TempDir()
	writeScene(t, filepath.Join(dir, "a.png"), 10, 40)
	writeScene(t, filepath.Join(dir, "b.png"), 30, 20)
	writeScene(t, filepath.Join(dir, "a_mask.png"), 100, 0)

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-dir", dir}, &stdout, &stderr); code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[0], "a.png: Blue: 10%, Green: 40%, Red: 0%") {
		t.Errorf("unexpected output %q", stdout.String())
	}

	if err := os.WriteFile(filepath.Join(dir, "c.jpg"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	stdout.Reset()
	if code := run([]string{"-dir", dir}, &stdout, &stderr); code != exitFailure {
		t.Errorf("a broken image should fail the batch, got exit %d", code)
	}
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	writeScene(t, good, 10, 40)
	corrupt := filepath.Join(dir, "corrupt.png")
	if err := os.WriteFile(corrupt, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no arguments", nil, exitUsageError},
		{"too many arguments", []string{good, good, good}, exitUsageError},
		{"unknown flag", []string{"-nope", good}, exitUsageError},
		{"bad order", []string{"-order", "hsv", good}, exitUsageError},
		{"zero threshold", []string{"-threshold", "0", good, good}, exitUsageError},
		{"missing file", []string{"-masks=false", filepath.Join(dir, "missing.png")}, exitFailure},
		{"corrupt file", []string{"-masks=false", corrupt}, exitFailure},
		{"corrupt after", []string{good, corrupt}, exitFailure},
		{"missing ranges", []string{"-ranges", filepath.Join(dir, "none.json"), good}, exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args, &stdout, &stderr); code != tt.want {
				t.Errorf("exit %d, want %d: %s", code, tt.want, stderr.String())
			}
			if stdout.Len() != 0 {
				t.Errorf("no output expected on error, got %q", stdout.String())
			}
		})
	}
}
