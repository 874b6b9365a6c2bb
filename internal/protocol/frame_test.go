package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFrame(t *testing.T) {
	f, err := NewFrame(4, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Width)
	assert.Equal(t, 3, f.Height)
	assert.Len(t, f.Data, 4*3*4)

	_, err = NewFrame(0, 3)
	assert.Error(t, err)
	_, err = NewFrame(4, -1)
	assert.Error(t, err)
	_, err = NewFrame(MaxFrameDim+1, 1)
	assert.Error(t, err)
}

func TestFrameCells(t *testing.T) {
	f, err := NewFrame(3, 2)
	require.NoError(t, err)

	f.SetCell(2, 1, '#', 10, 20, 30)

	glyph, r, g, b, ok := f.Cell(2, 1)
	require.True(t, ok)
	assert.Equal(t, byte('#'), glyph)
	assert.Equal(t, uint8(10), r)
	assert.Equal(t, uint8(20), g)
	assert.Equal(t, uint8(30), b)

	// Out-of-range access neither panics nor reports a cell.
	f.SetCell(3, 0, '#', 1, 2, 3)
	f.SetCell(-1, 0, '#', 1, 2, 3)
	_, _, _, _, ok = f.Cell(0, 2)
	assert.False(t, ok)
	_, _, _, _, ok = f.Cell(-1, 0)
	assert.False(t, ok)
}

func TestFrameValidate(t *testing.T) {
	f, err := NewFrame(2, 2)
	require.NoError(t, err)
	assert.NoError(t, f.Validate())

	f.Data = f.Data[:len(f.Data)-1]
	assert.Error(t, f.Validate())
}

func TestFrameWireShape(t *testing.T) {
	f, err := NewFrame(1, 1)
	require.NoError(t, err)
	f.SetCell(0, 0, '@', 1, 2, 3)

	raw, err := json.Marshal(f)
	require.NoError(t, err)

	// The packed buffer travels as a flat number sequence, never base64.
	assert.JSONEq(t, `{"width":1,"height":1,"data":[64,1,2,3]}`, string(raw))

	var decoded Frame
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.NoError(t, decoded.Validate())

	glyph, r, g, b, ok := decoded.Cell(0, 0)
	require.True(t, ok)
	assert.Equal(t, byte('@'), glyph)
	assert.Equal(t, [3]uint8{1, 2, 3}, [3]uint8{r, g, b})
}

func TestFrameUnmarshalRejectsNonBytes(t *testing.T) {
	var f Frame
	assert.Error(t, json.Unmarshal([]byte(`{"width":1,"height":1,"data":[64,1,2,256]}`), &f))
	assert.Error(t, json.Unmarshal([]byte(`{"width":1,"height":1,"data":[64,1,2,-1]}`), &f))
	assert.Error(t, json.Unmarshal([]byte(`{"width":1,"height":1,"data":"QAECAw=="}`), &f))
}

func TestFrameClone(t *testing.T) {
	f, err := NewFrame(2, 2)
	require.NoError(t, err)
	f.SetCell(0, 0, '@', 1, 2, 3)

	clone := f.Clone()
	clone.SetCell(0, 0, '.', 9, 9, 9)

	glyph, _, _, _, ok := f.Cell(0, 0)
	require.True(t, ok)
	assert.Equal(t, byte('@'), glyph)

	var nilFrame *Frame
	assert.Nil(t, nilFrame.Clone())
}
