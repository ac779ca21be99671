// Package detector is the boundary to the neural layout detector.
//
// The resolver never runs a model. It consumes detections through the
// Detector interface, either decoded from the raw Mask R-CNN output tensors or
// read back from a detections file written by an inference service.
package detector

import (
	"context"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-blockseg/layout"
	"gocv.io/x/gocv"
)

// DefaultMinConfidence is the detection score threshold of the block segmenter.
const DefaultMinConfidence float32 = 0.9

// Detector produces the candidate regions of one page.
type Detector interface {
	// Detect returns the detections of page in emission order. Mask sizes must
	// match the page raster.
	Detect(ctx context.Context, page gocv.Mat) ([]*layout.Detection, error)
}

// FilterByConfidence keeps the detections whose score is at least
// minConfidence. Detections with a NaN score are dropped. IDs are left
// untouched, so they still refer to the detector's emission order.
//
// Arguments:
//   - dets: The detections to filter; the slice is not modified.
//   - minConfidence: Score threshold in [0, 1].
//
// Returns:
//   - []*layout.Detection: The kept detections, in input order.
func FilterByConfidence(dets []*layout.Detection, minConfidence float32) []*layout.Detection {
	kept := make([]*layout.Detection, 0, len(dets))
	for _, d := range dets {
		if d == nil || math32.IsNaN(d.Score) || d.Score < minConfidence {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}
