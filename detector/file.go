package detector

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/nvr-ai/go-blockseg/images"
	"github.com/nvr-ai/go-blockseg/layout"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DetectionsFile is the on-disk form of a detector run.
type DetectionsFile struct {
	Detections []DetectionRecord `json:"detections"`
}

// DetectionRecord is one detection as written by the inference service.
type DetectionRecord struct {
	// Box is (min_row, min_col, max_row, max_col) in page raster coordinates.
	Box [4]int `json:"box"`
	// ClassID indexes the block segmentation class table.
	ClassID int `json:"class_id"`
	// Score is the detection confidence.
	Score float32 `json:"score"`
	// Mask is the path of the mask image, relative to the detections file.
	// When empty the box itself is used as mask.
	Mask string `json:"mask,omitempty"`
}

// FileDetector replays detections stored in a detections file.
type FileDetector struct {
	// Path is the detections file.
	Path string
	// MinConfidence drops detections scoring below it.
	MinConfidence float32
}

// NewFileDetector creates a detector reading path.
func NewFileDetector(path string, minConfidence float32) *FileDetector {
	return &FileDetector{Path: path, MinConfidence: minConfidence}
}

// Detect reads the detections file and the mask images it references. Masks
// whose size differs from the page are resampled to it.
//
// Arguments:
//   - ctx: Checked between masks; loading stops when it is cancelled.
//   - page: The page raster, used for its dimensions only.
//
// Returns:
//   - []*layout.Detection: Detections that pass MinConfidence, IDs set to
//     their position in the file.
//   - error: An error if the file or any mask cannot be read.
func (d *FileDetector) Detect(ctx context.Context, page gocv.Mat) ([]*layout.Detection, error) {
	if page.Empty() {
		return nil, errors.New("page image is empty")
	}
	rows, cols := page.Rows(), page.Cols()

	data, err := os.ReadFile(d.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading detections %s", d.Path)
	}
	var file DetectionsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "parsing detections %s", d.Path)
	}

	dir := filepath.Dir(d.Path)
	dets := make([]*layout.Detection, 0, len(file.Detections))
	for i, rec := range file.Detections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		det := &layout.Detection{
			ID:      i,
			Box:     images.NewBox(rec.Box[0], rec.Box[1], rec.Box[2], rec.Box[3]),
			ClassID: rec.ClassID,
			Score:   rec.Score,
		}
		if rec.Score < d.MinConfidence {
			// Not kept; skip the mask read.
			dets = append(dets, det)
			continue
		}
		det.Mask, err = loadMask(dir, rec, det.Box, rows, cols)
		if err != nil {
			return nil, errors.Wrapf(err, "detection %d", i)
		}
		dets = append(dets, det)
	}
	return FilterByConfidence(dets, d.MinConfidence), nil
}

func loadMask(dir string, rec DetectionRecord, box images.Box, rows, cols int) (*images.Mask, error) {
	if rec.Mask == "" {
		m := images.NewMask(rows, cols)
		m.FillBox(box)
		return m, nil
	}
	path := rec.Mask
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	m, err := images.LoadMask(path)
	if err != nil {
		return nil, err
	}
	if m.Rows == rows && m.Cols == cols {
		return m, nil
	}
	return images.ResizeMask(m, rows, cols)
}
