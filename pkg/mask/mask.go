// Package mask builds binary masks of the pixels whose channels all fall inside an
// inclusive lower/upper bound pair.
package mask

import (
	"image"

	"colorshift/pkg/lib"
)

// Bounds is an inclusive per-channel range. Lower and Upper use the same ChannelOrder
// as the pixels they are tested against.
type Bounds struct {
	Lower Pixel `json:"lower"`
	Upper Pixel `json:"upper"`
}

// NewBounds returns validated bounds.
func NewBounds(lower, upper Pixel) (Bounds, error) {
	b := Bounds{Lower: lower, Upper: upper}
	return b, b.Validate()
}

// Validate fails when any lower component exceeds its upper component.
func (b Bounds) Validate() error {
	for c := range b.Lower {
		if b.Lower[c] > b.Upper[c] {
			return lib.NewValidationError("bounds", "lower[%d]=%d exceeds upper[%d]=%d", c, b.Lower[c], c, b.Upper[c])
		}
	}
	return nil
}

// Contains is the component-wise inclusive test, an AND across all channels.
func (b Bounds) Contains(p Pixel) bool {
	return b.Lower[0] <= p[0] && p[0] <= b.Upper[0] &&
		b.Lower[1] <= p[1] && p[1] <= b.Upper[1] &&
		b.Lower[2] <= p[2] && p[2] <= b.Upper[2]
}

// Mask is a boolean grid with the same spatial bounds as the image it was built from.
type Mask struct {
	Rect image.Rectangle
	bits []bool
}

// New marks every pixel of img that lies inside b.
func New(img image.Image, b Bounds, order ChannelOrder) (*Mask, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := CheckArea(img); err != nil {
		return nil, err
	}

	rect := img.Bounds()
	m := &Mask{Rect: rect, bits: make([]bool, rect.Dx()*rect.Dy())}
	for pt, pixel := range Pixels(img, order) {
		if b.Contains(pixel) {
			m.bits[m.offset(pt.X, pt.Y)] = true
		}
	}
	return m, nil
}

// CheckArea rejects nil images and images without pixels.
func CheckArea(img image.Image) error {
	if img == nil {
		return lib.NewValidationError("image", "image is nil")
	}
	if r := img.Bounds(); r.Empty() {
		return lib.NewValidationError("image", "image has zero area (%dx%d)", r.Dx(), r.Dy())
	}
	return nil
}

func (m *Mask) offset(x, y int) int {
	return (y-m.Rect.Min.Y)*m.Rect.Dx() + (x - m.Rect.Min.X)
}

// At reports whether the pixel at (x, y) is masked. Points outside Rect are false.
func (m *Mask) At(x, y int) bool {
	if !image.Pt(x, y).In(m.Rect) {
		return false
	}
	return m.bits[m.offset(x, y)]
}

// Count returns the number of masked cells.
func (m *Mask) Count() int {
	var n int
	for _, v := range m.bits {
		if v {
			n++
		}
	}
	return n
}

// Image renders the mask as white on black for manual inspection.
func (m *Mask) Image() *image.Gray {
	gray := image.NewGray(m.Rect)
	for i, v := range m.bits {
		if v {
			gray.Pix[i/m.Rect.Dx()*gray.Stride+i%m.Rect.Dx()] = 0xff
		}
	}
	return gray
}
