package protocol

import (
	"encoding/json"
	"fmt"
)

// cellBytes is the packed size of one grid cell: glyph, red, green, blue.
const cellBytes = 4

// MaxFrameDim caps either frame dimension. Together with the envelope size
// limit it bounds decode-time allocations under hostile input.
const MaxFrameDim = 1024

// Frame is one video update: a character grid with per-cell true color.
// Cells are packed row-major, origin top-left, four bytes per cell
// (glyph, r, g, b). Data marshals as a flat JSON number sequence.
type Frame struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"data"`
}

// frameWire is the JSON shape of a Frame. The packed cell buffer travels as a
// sequence of numbers, not the base64 string Go would use for []byte.
type frameWire struct {
	Width  int   `json:"width"`
	Height int   `json:"height"`
	Data   []int `json:"data"`
}

func (f *Frame) MarshalJSON() ([]byte, error) {
	data := make([]int, len(f.Data))
	for i, b := range f.Data {
		data[i] = int(b)
	}
	return json.Marshal(frameWire{Width: f.Width, Height: f.Height, Data: data})
}

func (f *Frame) UnmarshalJSON(raw []byte) error {
	var w frameWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return err
	}

	data := make([]byte, len(w.Data))
	for i, v := range w.Data {
		if v < 0 || v > 255 {
			return fmt.Errorf("frame data value %d at index %d is outside byte range", v, i)
		}
		data[i] = byte(v)
	}

	f.Width = w.Width
	f.Height = w.Height
	f.Data = data
	return nil
}

// NewFrame allocates a zeroed frame of the given dimensions.
func NewFrame(width, height int) (*Frame, error) {
	f := &Frame{
		Width:  width,
		Height: height,
		Data:   make([]byte, width*height*cellBytes),
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks the dimensions and the packed buffer length. A frame that
// fails validation must never be stored or relayed.
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("frame dimensions must be positive, got %dx%d", f.Width, f.Height)
	}
	if f.Width > MaxFrameDim || f.Height > MaxFrameDim {
		return fmt.Errorf("frame dimensions %dx%d exceed limit %d", f.Width, f.Height, MaxFrameDim)
	}
	if want := f.Width * f.Height * cellBytes; len(f.Data) != want {
		return fmt.Errorf("frame data length %d, want %d for %dx%d", len(f.Data), want, f.Width, f.Height)
	}
	return nil
}

// SetCell writes a glyph and its RGB color at (x, y). Out-of-range
// coordinates are ignored.
func (f *Frame) SetCell(x, y int, glyph byte, r, g, b uint8) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	idx := (y*f.Width + x) * cellBytes
	f.Data[idx] = glyph
	f.Data[idx+1] = r
	f.Data[idx+2] = g
	f.Data[idx+3] = b
}

// Cell returns the glyph and RGB color at (x, y). ok is false when the
// coordinates fall outside the grid.
func (f *Frame) Cell(x, y int) (glyph byte, r, g, b uint8, ok bool) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0, 0, 0, 0, false
	}
	idx := (y*f.Width + x) * cellBytes
	return f.Data[idx], f.Data[idx+1], f.Data[idx+2], f.Data[idx+3], true
}

// Clone returns a deep copy, so a stored frame cannot be mutated by the
// session that produced it.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	return &Frame{Width: f.Width, Height: f.Height, Data: data}
}
