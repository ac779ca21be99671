package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResizeMask_Upscale(t *testing.T) {
	src, err := MaskFromBools([][]bool{
		{true, false},
		{true, false},
	})
	require.NoError(t, err)

	out, err := ResizeMask(src, 4, 4)
	require.NoError(t, err)

	assert.Equal(t, 4, out.Rows)
	assert.Equal(t, 4, out.Cols)
	for r := 0; r < 4; r++ {
		assert.True(t, out.At(r, 0), "row %d", r)
		assert.False(t, out.At(r, 3), "row %d", r)
	}
	for _, v := range out.Pix {
		assert.Contains(t, []uint8{0, 1}, v, "nearest-neighbour keeps the mask binary")
	}
}

func TestResizeMask_SameSizeCopies(t *testing.T) {
	src := NewMask(3, 3)
	src.Set(1, 1, true)

	out, err := ResizeMask(src, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, out.Pix)

	out.Set(0, 0, true)
	assert.False(t, src.At(0, 0))
}

func TestResizeMask_Errors(t *testing.T) {
	_, err := ResizeMask(nil, 4, 4)
	assert.Error(t, err)

	_, err = ResizeMask(NewMask(2, 2), 0, 4)
	assert.Error(t, err)
}
