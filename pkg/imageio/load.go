// Package imageio reads captures from disk and writes mask visualizations.
package imageio

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"colorshift/pkg/composition"
	"colorshift/pkg/lib"
	"colorshift/pkg/mask"
)

// Load decodes the image at path. Any failure to open or decode is a *lib.LoadError.
func Load(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, lib.NewLoadError(path, err)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, lib.NewLoadError(path, err)
	}
	log.Debug("Loaded image", "path", path, "format", format, "bounds", img.Bounds())
	return img, nil
}

// LoadScaled loads path and downscales it so neither side exceeds maxDim.
func LoadScaled(path string, maxDim int) (image.Image, error) {
	img, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Downscale(img, maxDim), nil
}

// Downscale shrinks img with nearest-neighbor sampling, keeping the aspect ratio, when
// either side is larger than maxDim. maxDim <= 0 returns img unchanged.
func Downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	if maxDim <= 0 || (b.Dx() <= maxDim && b.Dy() <= maxDim) {
		return img
	}
	w, h := maxDim, maxDim
	if b.Dx() >= b.Dy() {
		h = max(1, b.Dy()*maxDim/b.Dx())
	} else {
		w = max(1, b.Dx()*maxDim/b.Dy())
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Rect, img, b, draw.Src, nil)
	return dst
}

// SaveMask writes m as a grayscale PNG.
func SaveMask(path string, m *mask.Mask) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating mask file: %w", err)
	}
	if err := png.Encode(f, m.Image()); err != nil {
		f.Close()
		return fmt.Errorf("error encoding mask %s: %w", path, err)
	}
	return f.Close()
}

// SaveMasks writes "<name>_mask.png" into dir for every range of c and returns the paths written.
func SaveMasks(dir string, img image.Image, c composition.Composition, order mask.ChannelOrder) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating folder: %w", err)
	}
	var (
		paths []string
		errs  []error
	)
	for _, cr := range c.Ranges {
		m, err := mask.New(img, cr.Bounds, order)
		if err != nil {
			return paths, fmt.Errorf("color range %q: %w", cr.Name, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_mask.png", cr.Name))
		if err := SaveMask(path, m); err != nil {
			errs = append(errs, err)
			continue
		}
		paths = append(paths, path)
	}
	return paths, errors.Join(errs...)
}
