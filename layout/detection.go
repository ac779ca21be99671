// Package layout turns class-labelled, possibly overlapping detector boxes and
// masks into non-overlapping polygonal page regions with a reading order.
//
// A page goes through four phases, strictly in order:
//
//	Refine -> Resolve-Overlap -> Build-Order -> Extract+Assemble
//
// Each phase reads the previous phase's output from the page being resolved.
// Nothing is shared between pages, so pages can be resolved in parallel as
// long as each goroutine owns its own Page.
package layout

import (
	"image"

	"github.com/nvr-ai/go-blockseg/images"
)

// Detection is one candidate region produced by the detector.
//
// Box and Mask may be modified in place while the page is resolved.
type Detection struct {
	// ID is the stable position of the detection in the detector output. It is
	// carried through every phase and used for all cross references.
	ID int
	// Box is the bounding box in page raster coordinates.
	Box images.Box
	// ClassID indexes the class table.
	ClassID int
	// Mask is the per-detection pixel mask, the size of the page raster.
	Mask *images.Mask
	// Score is the detector confidence.
	Score float32
}

// Page is everything the resolver needs for one page. It is owned by a
// single Resolve call.
type Page struct {
	// ID identifies the page in diagnostics and in the reading order group.
	ID string
	// Rows and Cols are the page raster dimensions.
	Rows, Cols int
	// Detections in detector emission order.
	Detections []*Detection
	// AuxMask is the optional non-text mask. Foreground cells are pixels that
	// should belong to some region. Nil skips box refinement.
	AuxMask *images.Mask
	// Frame is the optional page frame polygon in page-absolute coordinates.
	Frame []image.Point
	// Transform maps raster coordinates to page-absolute coordinates.
	Transform images.Transform
	// Existing holds regions already present on the page.
	Existing []Region
}
