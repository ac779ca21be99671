package detector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-blockseg/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"
)

func writeNpy(t *testing.T, path string, d *tensor.Dense) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, d.WriteNpy(f))
	require.NoError(t, f.Close())
}

// writeTensorDumps stores two detections whose masks are at half the
// resolution of a 10x20 page. Only the first passes the default threshold.
func writeTensorDumps(t *testing.T, dir string) {
	t.Helper()
	const rows, cols, n = 5, 10, 2

	writeNpy(t, filepath.Join(dir, RoisFile), tensor.New(tensor.WithShape(n, 4), tensor.WithBacking([]int64{
		0, 0, 10, 20,
		1, 1, 3, 3,
	})))
	writeNpy(t, filepath.Join(dir, ClassIDsFile), tensor.New(tensor.WithShape(n), tensor.WithBacking([]int64{2, 4})))
	writeNpy(t, filepath.Join(dir, ScoresFile), tensor.New(tensor.WithShape(n), tensor.WithBacking([]float32{0.95, 0.2})))

	maskData := make([]float32, rows*cols*n)
	for i := 0; i < rows*cols; i++ {
		maskData[i*n] = 1
	}
	writeNpy(t, filepath.Join(dir, MasksFile), tensor.New(tensor.WithShape(rows, cols, n), tensor.WithBacking(maskData)))
}

func TestTensorDetector_Detect(t *testing.T) {
	dir := t.TempDir()
	writeTensorDumps(t, dir)

	page := gocv.NewMatWithSize(10, 20, gocv.MatTypeCV8UC1)
	defer page.Close()

	dets, err := NewTensorDetector(dir, DefaultMinConfidence).Detect(context.Background(), page)
	require.NoError(t, err)
	require.Len(t, dets, 1)

	assert.Equal(t, 0, dets[0].ID)
	assert.Equal(t, 2, dets[0].ClassID)
	assert.Equal(t, images.NewBox(0, 0, 10, 20), dets[0].Box)
	assert.InDelta(t, 0.95, dets[0].Score, 1e-6)
	assert.Equal(t, 10, dets[0].Mask.Rows)
	assert.Equal(t, 20, dets[0].Mask.Cols)
	assert.Equal(t, 200, dets[0].Mask.Area(), "half-resolution mask resampled to the page")
}

func TestTensorDetector_Errors(t *testing.T) {
	page := gocv.NewMatWithSize(10, 20, gocv.MatTypeCV8UC1)
	defer page.Close()

	_, err := NewTensorDetector(t.TempDir(), DefaultMinConfidence).Detect(context.Background(), page)
	assert.ErrorContains(t, err, RoisFile)

	empty := gocv.NewMat()
	defer empty.Close()
	_, err = NewTensorDetector(t.TempDir(), DefaultMinConfidence).Detect(context.Background(), empty)
	assert.Error(t, err)

	dir := t.TempDir()
	writeTensorDumps(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewTensorDetector(dir, DefaultMinConfidence).Detect(ctx, page)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadNpy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.npy")
	writeNpy(t, path, tensor.New(tensor.WithShape(3), tensor.WithBacking([]float32{0.1, 0.5, 0.9})))

	d, err := ReadNpy(path)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3}, d.Shape())

	v, err := d.At(2)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, v, 1e-6)
}
