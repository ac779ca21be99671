package detector

import (
	"context"
	"os"
	"path/filepath"

	"github.com/nvr-ai/go-blockseg/images"
	"github.com/nvr-ai/go-blockseg/layout"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"
)

// NumPy dumps of the Mask R-CNN outputs, see DecodeTensors for their shapes.
const (
	RoisFile     = "rois.npy"
	ClassIDsFile = "class_ids.npy"
	ScoresFile   = "scores.npy"
	MasksFile    = "masks.npy"
)

// TensorDetector replays raw detection head outputs saved as .npy files.
type TensorDetector struct {
	// Dir holds RoisFile, ClassIDsFile, ScoresFile and MasksFile.
	Dir string
	// MinConfidence drops detections scoring below it.
	MinConfidence float32
}

// NewTensorDetector creates a detector reading the tensor dumps in dir.
func NewTensorDetector(dir string, minConfidence float32) *TensorDetector {
	return &TensorDetector{Dir: dir, MinConfidence: minConfidence}
}

// Detect decodes the tensors of the page. Rois are page raster coordinates;
// masks at the model resolution are resampled to the page.
func (d *TensorDetector) Detect(ctx context.Context, page gocv.Mat) ([]*layout.Detection, error) {
	if page.Empty() {
		return nil, errors.New("page image is empty")
	}
	rows, cols := page.Rows(), page.Cols()

	names := []string{RoisFile, ClassIDsFile, ScoresFile, MasksFile}
	ts := make([]tensor.Tensor, len(names))
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err := ReadNpy(filepath.Join(d.Dir, name))
		if err != nil {
			return nil, err
		}
		ts[i] = t
	}

	dets, err := DecodeTensors(ts[0], ts[1], ts[2], ts[3])
	if err != nil {
		return nil, errors.Wrapf(err, "decoding tensors in %s", d.Dir)
	}
	dets = FilterByConfidence(dets, d.MinConfidence)
	for _, det := range dets {
		if det.Mask.Rows == rows && det.Mask.Cols == cols {
			continue
		}
		if det.Mask, err = images.ResizeMask(det.Mask, rows, cols); err != nil {
			return nil, errors.Wrapf(err, "detection %d", det.ID)
		}
	}
	return dets, nil
}

// ReadNpy loads a NumPy array file into a dense tensor.
func ReadNpy(path string) (*tensor.Dense, error) {
	f, err := os.Open(path) //nolint:gosec // bundle paths are user-provided
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	t := new(tensor.Dense)
	if err := t.ReadNpy(f); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return t, nil
}
