// Package images - Polygon clipping on the integer raster.
package images

import (
	"image"
	"image/color"
	"sort"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

var foreground = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// IntersectPolygons clips subject against clip and returns the outer rings
// of the overlap, largest area first.
//
// The canvas covers the bounds of subject only, since the overlap cannot leave
// them. The subject is filled with gocv; the clip polygon is rasterized exactly
// (see polygonMask), so every pixel of the overlap, and with it every returned
// vertex, lies inside or on the boundary of clip. Results are snapped to
// integer coordinates. An empty slice means the polygons do not overlap.
//
// Arguments:
//   - subject: The polygon to clip, in (x, y) order, without a repeated closing vertex.
//   - clip: The clipping polygon in the same coordinate space.
//
// Returns:
//   - [][]image.Point: The overlap rings sorted by descending area.
//   - error: An error if either polygon has fewer than three vertices, or a
//     gocv failure.
func IntersectPolygons(subject, clip []image.Point) ([][]image.Point, error) {
	if len(subject) < 3 || len(clip) < 3 {
		return nil, errors.Errorf("polygons need at least 3 vertices (got %d and %d)", len(subject), len(clip))
	}

	bounds := polygonBounds(subject)
	origin := bounds.Min
	rows, cols := bounds.Dy()+1, bounds.Dx()+1

	clipMask := polygonMask(clip, origin, rows, cols)
	if clipMask.Area() == 0 {
		return nil, nil
	}
	clipMat, err := clipMask.ToMat()
	if err != nil {
		return nil, err
	}
	defer clipMat.Close()

	subjectMat := gocv.Zeros(rows, cols, gocv.MatTypeCV8UC1)
	defer subjectMat.Close()
	if err := fillPolygon(&subjectMat, translate(subject, origin.Mul(-1))); err != nil {
		return nil, err
	}

	overlap := gocv.NewMat()
	defer overlap.Close()
	if err := gocv.BitwiseAnd(subjectMat, clipMat, &overlap); err != nil {
		return nil, errors.Wrap(err, "intersecting polygons")
	}

	if gocv.CountNonZero(overlap) == 0 {
		return nil, nil
	}

	contours := gocv.FindContours(overlap, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	parts := contours.ToPoints()
	areas := make([]float64, len(parts))
	for i, part := range parts {
		areas[i] = PolygonArea(part)
		parts[i] = translate(part, origin)
	}
	idx := make([]int, len(parts))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return areas[idx[a]] > areas[idx[b]] })

	sorted := make([][]image.Point, len(parts))
	for i, j := range idx {
		sorted[i] = parts[j]
	}
	return sorted, nil
}

// crossing is the x position a + num/den (den > 0) where an edge meets a row.
type crossing struct {
	a, num, den int
}

func (c crossing) less(o crossing) bool {
	return (c.a*c.den+c.num)*o.den < (o.a*o.den+o.num)*c.den
}

func (c crossing) floor() int { return c.a + floorDiv(c.num, c.den) }

func (c crossing) ceil() int { return c.a + ceilDiv(c.num, c.den) }

// polygonMask rasterizes poly on a rows x cols canvas whose cell (0, 0) is the
// point origin. A cell is set exactly when its point lies inside or on the
// boundary of poly, the same set PolygonContains accepts.
//
// Interior spans come from an even-odd scanline with half-open edges; boundary
// points are added separately. All arithmetic is on integers.
func polygonMask(poly []image.Point, origin image.Point, rows, cols int) *Mask {
	m := NewMask(rows, cols)
	span := func(r, x0, x1 int) {
		x0, x1 = max(x0-origin.X, 0), min(x1-origin.X, cols-1)
		for c := x0; c <= x1; c++ {
			m.Pix[r*cols+c] = 1
		}
	}

	var crossings []crossing
	for r := 0; r < rows; r++ {
		y := origin.Y + r
		crossings = crossings[:0]
		for i, a := range poly {
			b := poly[(i+1)%len(poly)]
			if a.Y == b.Y {
				if a.Y == y {
					span(r, min(a.X, b.X), max(a.X, b.X))
				}
				continue
			}
			if y < min(a.Y, b.Y) || y > max(a.Y, b.Y) {
				continue
			}
			x := crossing{a: a.X, num: (y - a.Y) * (b.X - a.X), den: b.Y - a.Y}
			if x.den < 0 {
				x.num, x.den = -x.num, -x.den
			}
			if x.num%x.den == 0 {
				// The edge passes through a lattice point of this row.
				span(r, x.floor(), x.floor())
			}
			if y < max(a.Y, b.Y) {
				crossings = append(crossings, x)
			}
		}
		sort.Slice(crossings, func(i, j int) bool { return crossings[i].less(crossings[j]) })
		for k := 0; k+1 < len(crossings); k += 2 {
			span(r, crossings[k].ceil(), crossings[k+1].floor())
		}
	}
	return m
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func ceilDiv(a, b int) int {
	return -floorDiv(-a, b)
}

// PolygonContains reports whether pt lies inside or on the boundary of poly.
func PolygonContains(poly []image.Point, pt image.Point) bool {
	if len(poly) < 3 {
		return false
	}
	pv := gocv.NewPointVectorFromPoints(poly)
	defer pv.Close()
	return gocv.PointPolygonTest(pv, pt, false) >= 0
}

// PolygonArea returns the absolute shoelace area of a ring.
func PolygonArea(poly []image.Point) float64 {
	if len(poly) < 3 {
		return 0
	}
	pv := gocv.NewPointVectorFromPoints(poly)
	defer pv.Close()
	return gocv.ContourArea(pv)
}

// IsSimplePolygon reports whether poly is a usable region outline: at least
// three vertices, non-zero area, and no vertex visited twice (contour tracing
// revisits a vertex where the outline pinches and touches itself).
func IsSimplePolygon(poly []image.Point) bool {
	if len(poly) < 3 {
		return false
	}
	seen := make(map[image.Point]struct{}, len(poly))
	for _, p := range poly {
		if _, dup := seen[p]; dup {
			return false
		}
		seen[p] = struct{}{}
	}
	return PolygonArea(poly) > 0
}

func fillPolygon(dst *gocv.Mat, poly []image.Point) error {
	pts := gocv.NewPointsVectorFromPoints([][]image.Point{poly})
	defer pts.Close()
	if err := gocv.FillPoly(dst, pts, foreground); err != nil {
		return errors.Wrap(err, "filling polygon")
	}
	return nil
}

func polygonBounds(poly []image.Point) image.Rectangle {
	r := image.Rectangle{Min: poly[0], Max: poly[0]}
	for _, p := range poly[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	return r
}

func translate(poly []image.Point, by image.Point) []image.Point {
	out := make([]image.Point, len(poly))
	for i, p := range poly {
		out[i] = p.Add(by)
	}
	return out
}
