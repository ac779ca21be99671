package detector

import (
	"testing"

	"github.com/nvr-ai/go-blockseg/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestDecodeTensors(t *testing.T) {
	const rows, cols, n = 4, 5, 2

	rois := tensor.New(tensor.WithShape(n, 4), tensor.WithBacking([]int32{
		0, 0, 2, 3,
		1, 2, 4, 5,
	}))
	classIDs := tensor.New(tensor.WithShape(n), tensor.WithBacking([]int32{2, 4}))
	scores := tensor.New(tensor.WithShape(n), tensor.WithBacking([]float32{0.97, 0.91}))

	// [H, W, N]: detection 0 covers (0,0) and (1,2); detection 1 covers (3,4).
	maskData := make([]bool, rows*cols*n)
	set := func(r, c, i int) { maskData[(r*cols+c)*n+i] = true }
	set(0, 0, 0)
	set(1, 2, 0)
	set(3, 4, 1)
	masks := tensor.New(tensor.WithShape(rows, cols, n), tensor.WithBacking(maskData))

	dets, err := DecodeTensors(rois, classIDs, scores, masks)
	require.NoError(t, err)
	require.Len(t, dets, 2)

	assert.Equal(t, 0, dets[0].ID)
	assert.Equal(t, images.NewBox(0, 0, 2, 3), dets[0].Box)
	assert.Equal(t, 2, dets[0].ClassID)
	assert.InDelta(t, 0.97, dets[0].Score, 1e-6)
	assert.Equal(t, rows, dets[0].Mask.Rows)
	assert.Equal(t, cols, dets[0].Mask.Cols)
	assert.Equal(t, 2, dets[0].Mask.Area())
	assert.True(t, dets[0].Mask.At(1, 2))

	assert.Equal(t, 1, dets[1].ID)
	assert.Equal(t, images.NewBox(1, 2, 4, 5), dets[1].Box)
	assert.Equal(t, 4, dets[1].ClassID)
	assert.Equal(t, 1, dets[1].Mask.Area())
	assert.True(t, dets[1].Mask.At(3, 4))
}

func TestDecodeTensors_SoftMasks(t *testing.T) {
	rois := tensor.New(tensor.WithShape(1, 4), tensor.WithBacking([]float32{0, 0, 2, 2}))
	classIDs := tensor.New(tensor.WithShape(1), tensor.WithBacking([]int64{2}))
	scores := tensor.New(tensor.WithShape(1), tensor.WithBacking([]float64{0.99}))
	masks := tensor.New(tensor.WithShape(2, 2, 1), tensor.WithBacking([]float32{0.2, 0.5, 0.7, 0.49}))

	dets, err := DecodeTensors(rois, classIDs, scores, masks)
	require.NoError(t, err)
	require.Len(t, dets, 1)

	m := dets[0].Mask
	assert.False(t, m.At(0, 0))
	assert.True(t, m.At(0, 1))
	assert.True(t, m.At(1, 0))
	assert.False(t, m.At(1, 1))
}

func TestDecodeTensors_ShapeMismatch(t *testing.T) {
	rois := tensor.New(tensor.WithShape(2, 4), tensor.WithBacking(make([]int32, 8)))
	scores := tensor.New(tensor.WithShape(2), tensor.WithBacking(make([]float32, 2)))
	masks := tensor.New(tensor.WithShape(3, 3, 2), tensor.WithBacking(make([]bool, 18)))

	tests := []struct {
		name     string
		rois     tensor.Tensor
		classIDs tensor.Tensor
		scores   tensor.Tensor
		masks    tensor.Tensor
	}{
		{
			name:     "rois not Nx4",
			rois:     tensor.New(tensor.WithShape(2, 3), tensor.WithBacking(make([]int32, 6))),
			classIDs: tensor.New(tensor.WithShape(2), tensor.WithBacking(make([]int32, 2))),
			scores:   scores,
			masks:    masks,
		},
		{
			name:     "class ids length",
			rois:     rois,
			classIDs: tensor.New(tensor.WithShape(3), tensor.WithBacking(make([]int32, 3))),
			scores:   scores,
			masks:    masks,
		},
		{
			name:     "masks depth",
			rois:     rois,
			classIDs: tensor.New(tensor.WithShape(2), tensor.WithBacking(make([]int32, 2))),
			scores:   scores,
			masks:    tensor.New(tensor.WithShape(3, 3, 1), tensor.WithBacking(make([]bool, 9))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTensors(tt.rois, tt.classIDs, tt.scores, tt.masks)
			assert.Error(t, err)
		})
	}
}
