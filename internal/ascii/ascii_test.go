package ascii

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaletteSize(t *testing.T) {
	assert.Len(t, Palette, 68)
}

func TestLuminance(t *testing.T) {
	assert.Equal(t, uint8(255), Luminance(255, 255, 255))
	assert.Equal(t, uint8(0), Luminance(0, 0, 0))

	gray := Luminance(128, 128, 128)
	assert.Greater(t, gray, uint8(100))
	assert.Less(t, gray, uint8(150))

	// Green dominates the perceptual weighting.
	assert.Greater(t, Luminance(0, 255, 0), Luminance(255, 0, 0))
	assert.Greater(t, Luminance(255, 0, 0), Luminance(0, 0, 255))
}

func TestGlyphIndex(t *testing.T) {
	tests := []struct {
		y    uint8
		want int
	}{
		{0, 0},
		{85, 22},
		{170, 44},
		{255, 67},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, GlyphIndex(tt.y), "luminance %d", tt.y)
	}
}

func TestGlyphFor(t *testing.T) {
	assert.Equal(t, byte(' '), GlyphFor(0, 0, 0))
	assert.Equal(t, byte('@'), GlyphFor(255, 255, 255))

	// Deterministic: the same RGB always yields the same glyph.
	first := GlyphFor(120, 33, 99)
	for range 10 {
		assert.Equal(t, first, GlyphFor(120, 33, 99))
	}
}

func TestFrameFromRGB24(t *testing.T) {
	// 2x2 image: white, black, red, green.
	pixels := []byte{
		255, 255, 255, 0, 0, 0,
		255, 0, 0, 0, 255, 0,
	}

	frame, err := FrameFromRGB24(pixels, 6, 2, 2, false)
	require.NoError(t, err)

	glyph, r, g, b, ok := frame.Cell(0, 0)
	require.True(t, ok)
	assert.Equal(t, byte('@'), glyph)
	assert.Equal(t, [3]uint8{255, 255, 255}, [3]uint8{r, g, b})

	glyph, _, _, _, ok = frame.Cell(1, 0)
	require.True(t, ok)
	assert.Equal(t, byte(' '), glyph)

	// Color rides along unmodified next to the brightness-derived glyph.
	_, r, g, b, ok = frame.Cell(0, 1)
	require.True(t, ok)
	assert.Equal(t, [3]uint8{255, 0, 0}, [3]uint8{r, g, b})
	_, r, g, b, ok = frame.Cell(1, 1)
	require.True(t, ok)
	assert.Equal(t, [3]uint8{0, 255, 0}, [3]uint8{r, g, b})
}

func TestFrameFromRGB24Mono(t *testing.T) {
	pixels := []byte{255, 0, 0}

	frame, err := FrameFromRGB24(pixels, 3, 1, 1, true)
	require.NoError(t, err)

	gray := Luminance(255, 0, 0)
	_, r, g, b, ok := frame.Cell(0, 0)
	require.True(t, ok)
	assert.Equal(t, gray, r)
	assert.Equal(t, gray, g)
	assert.Equal(t, gray, b)
}

func TestFrameFromRGB24ShortBuffer(t *testing.T) {
	// Pixels past the end of the buffer read as black instead of panicking.
	frame, err := FrameFromRGB24([]byte{255, 255, 255}, 6, 2, 2, false)
	require.NoError(t, err)

	glyph, _, _, _, ok := frame.Cell(1, 1)
	require.True(t, ok)
	assert.Equal(t, byte(' '), glyph)
}

func TestAdjustContrast(t *testing.T) {
	frame, err := FrameFromRGB24([]byte{100, 100, 100}, 3, 1, 1, false)
	require.NoError(t, err)

	AdjustContrast(frame, 1.0, 100)

	glyph, r, _, _, ok := frame.Cell(0, 0)
	require.True(t, ok)
	assert.Equal(t, uint8(200), r)
	assert.Equal(t, GlyphFor(200, 200, 200), glyph)

	// Clamped at the top end.
	AdjustContrast(frame, 1.0, 100)
	_, r, _, _, _ = frame.Cell(0, 0)
	assert.Equal(t, uint8(255), r)
}
