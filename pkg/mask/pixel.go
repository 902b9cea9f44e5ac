package mask

import (
	"fmt"
	"image"
	"image/color"
	"iter"
	"strings"
)

// Pixel is one 8-bit sample per channel, stored in a ChannelOrder.
type Pixel [3]uint8

// ChannelOrder is the sequence in which a Pixel stores its color components.
// Bounds are only meaningful against pixels sampled in the same order.
type ChannelOrder int

const (
	// BGR stores blue, green, red. The default color ranges are authored in this order.
	BGR ChannelOrder = iota
	// RGB stores red, green, blue, the order of Go's color.Color.
	RGB
)

func (o ChannelOrder) String() string {
	switch o {
	case BGR:
		return "bgr"
	case RGB:
		return "rgb"
	default:
		return fmt.Sprintf("ChannelOrder(%d)", int(o))
	}
}

// ParseChannelOrder accepts "bgr" or "rgb" in any case. An empty string is BGR.
func ParseChannelOrder(s string) (ChannelOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bgr":
		return BGR, nil
	case "rgb":
		return RGB, nil
	default:
		return BGR, fmt.Errorf("unknown channel order %q, use bgr or rgb", s)
	}
}

// Sample converts c to a Pixel. Alpha is discarded without premultiplying.
func (o ChannelOrder) Sample(c color.Color) Pixel {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if o == RGB {
		return Pixel{n.R, n.G, n.B}
	}
	return Pixel{n.B, n.G, n.R}
}

// Color converts a Pixel in this order back to an opaque color.
func (o ChannelOrder) Color(p Pixel) color.NRGBA {
	if o == RGB {
		return color.NRGBA{R: p[0], G: p[1], B: p[2], A: 0xff}
	}
	return color.NRGBA{R: p[2], G: p[1], B: p[0], A: 0xff}
}

// Pixels is an iterator over every pixel of m in row-major order.
func Pixels(m image.Image, order ChannelOrder) iter.Seq2[image.Point, Pixel] {
	return func(yield func(image.Point, Pixel) bool) {
		b := m.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if !yield(image.Pt(x, y), order.Sample(m.At(x, y))) {
					return
				}
			}
		}
	}
}
