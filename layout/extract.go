package layout

import (
	"image"

	"github.com/nvr-ai/go-blockseg/images"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Extraction is the outline of one region.
type Extraction struct {
	// Polygon is the outer ring in page-absolute (x, y) coordinates, without a
	// repeated closing vertex.
	Polygon []image.Point
	// KernelSize is the edge of the square dilation kernel used.
	KernelSize int
	// Rounds is the number of dilation rounds applied.
	Rounds int
	// Converged is false when more than one contour remained after the round
	// budget; the first contour was used.
	Converged bool
	// Parts is the number of separate pieces left after clipping to the page
	// frame. Only the largest is kept.
	Parts int
}

// PolygonExtractor derives a single closed polygon per region mask.
//
// It owns a ContourTracer and is therefore not safe for concurrent use; use
// one extractor per page.
type PolygonExtractor struct {
	tracer *images.ContourTracer
}

// NewPolygonExtractor creates an extractor with the given dilation round budget.
//
// Always call Close() to release native resources.
func NewPolygonExtractor(maxRounds int) *PolygonExtractor {
	return &PolygonExtractor{tracer: images.NewContourTracer(maxRounds)}
}

// Close releases the tracer's native resources.
func (e *PolygonExtractor) Close() {
	e.tracer.Close()
}

// Extract dilates mask until it forms one external contour, maps the contour
// to page-absolute coordinates and clips it to frame.
//
// Arguments:
//   - mask: The detection's pixel mask.
//   - transform: Raster to page-absolute mapping.
//   - frame: Optional page frame polygon (absolute coordinates); nil disables clipping.
//
// Returns:
//   - Extraction: The region outline.
//   - error: ErrGeometryDegenerate (wrapped with the reason) when the region has
//     to be dropped, or a gocv failure.
func (e *PolygonExtractor) Extract(mask *images.Mask, transform images.Transform, frame []image.Point) (Extraction, error) {
	var ex Extraction
	if mask.Empty() {
		return ex, errors.Wrap(ErrGeometryDegenerate, "region has no mask")
	}

	mat, err := mask.ToMat()
	if err != nil {
		return ex, err
	}
	defer mat.Close()

	area := gocv.CountNonZero(mat)
	if area == 0 {
		return ex, errors.Wrap(ErrGeometryDegenerate, "region mask is empty")
	}

	ex.KernelSize = images.KernelSize(area)
	res, err := e.tracer.Trace(mat, ex.KernelSize)
	if err != nil {
		return ex, errors.Wrap(err, "tracing region outline")
	}
	ex.Rounds, ex.Converged = res.Rounds, res.Converged
	if len(res.Contours) == 0 {
		return ex, errors.Wrap(ErrGeometryDegenerate, "region mask has no contour")
	}

	polygon := transform.Apply(res.Contours[0])
	ex.Parts = 1
	if frame != nil {
		if len(polygon) < 3 {
			return ex, errors.Wrapf(ErrGeometryDegenerate, "region outline has %d vertices", len(polygon))
		}
		parts, err := images.IntersectPolygons(polygon, frame)
		if err != nil {
			return ex, errors.Wrap(ErrGeometryDegenerate, err.Error())
		}
		if len(parts) == 0 {
			return ex, errors.Wrap(ErrGeometryDegenerate, "region does not intersect page frame")
		}
		polygon, ex.Parts = parts[0], len(parts)
	}

	if !images.IsSimplePolygon(polygon) {
		return ex, errors.Wrap(ErrGeometryDegenerate, "region has invalid polygon")
	}
	ex.Polygon = polygon
	return ex, nil
}
