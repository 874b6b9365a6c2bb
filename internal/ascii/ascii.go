/*
Package ascii converts RGB pixel data into the glyph+color cell format relayed
by the server. The transform is pure and stateless: luminance picks a glyph
from a fixed density-ordered palette, while the RGB values travel alongside it
unmodified so renderers can reproduce true color.
*/
package ascii

import "termio/internal/protocol"

// Palette holds the 68 glyphs ordered light to dark by visual density.
// Luminance 0 maps to a space, 255 to '@'.
const Palette = " .'`^\",:;Il!i><~+_-?][}{1)(|\\tfjrxnuvczXYUJCLQ0OZmwqpdbkhao*#MW&8%B@"

// Luminance computes perceptual brightness from RGB using the Rec. 601
// weights. Green dominates (0.587) because human vision is most sensitive
// to it, so mid-tones land on mid-density glyphs.
func Luminance(r, g, b uint8) uint8 {
	y := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	if y > 255 {
		y = 255
	}
	return uint8(y)
}

// GlyphIndex maps a luminance value onto a palette index.
// index = floor(Y * (len(Palette)-1) / 255).
func GlyphIndex(y uint8) int {
	return int(y) * (len(Palette) - 1) / 255
}

// GlyphFor selects the palette glyph representing the given RGB color.
func GlyphFor(r, g, b uint8) byte {
	return Palette[GlyphIndex(Luminance(r, g, b))]
}

// FrameFromRGB24 converts a packed RGB24 pixel buffer (3 bytes per pixel,
// stride bytes per row) into a frame of width x height cells. When mono is
// set, each cell's color is collapsed to its gray luminance. Pixels past the
// end of the buffer read as black.
func FrameFromRGB24(pixels []byte, stride, width, height int, mono bool) (*protocol.Frame, error) {
	frame, err := protocol.NewFrame(width, height)
	if err != nil {
		return nil, err
	}

	for y := 0; y < height; y++ {
		rowOffset := y * stride
		for x := 0; x < width; x++ {
			idx := rowOffset + x*3

			var r, g, b uint8
			if idx+2 < len(pixels) {
				r, g, b = pixels[idx], pixels[idx+1], pixels[idx+2]
			}

			glyph := GlyphFor(r, g, b)
			if mono {
				gray := Luminance(r, g, b)
				frame.SetCell(x, y, glyph, gray, gray, gray)
			} else {
				frame.SetCell(x, y, glyph, r, g, b)
			}
		}
	}

	return frame, nil
}

// AdjustContrast applies brightness then contrast to every cell in place and
// reselects each glyph from the adjusted color.
func AdjustContrast(frame *protocol.Frame, contrast float64, brightness int) {
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			_, r, g, b, ok := frame.Cell(x, y)
			if !ok {
				continue
			}

			r = adjustChannel(r, contrast, brightness)
			g = adjustChannel(g, contrast, brightness)
			b = adjustChannel(b, contrast, brightness)

			frame.SetCell(x, y, GlyphFor(r, g, b), r, g, b)
		}
	}
}

func adjustChannel(c uint8, contrast float64, brightness int) uint8 {
	v := clampInt(int(c)+brightness, 0, 255)
	adjusted := (float64(v)-128)*contrast + 128
	return uint8(clampFloat(adjusted, 0, 255))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
