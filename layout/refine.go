package layout

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-blockseg/images"
)

// Raster cell states used by the refiner. Claimed cells hold the owning
// detection's slice position plus claimOffset.
const (
	cellKept       int32 = 0
	cellUnassigned int32 = 1
	claimOffset    int32 = 2
)

// RefineStats summarizes one run of RefineBoxes.
type RefineStats struct {
	// Iterations is the number of full scans performed.
	Iterations int
	// Claimed is the number of foreground pixels absorbed into some box.
	Claimed int
	// Unclaimed is the number of foreground pixels left unassigned.
	Unclaimed int
	// Capped is true when the iteration cap stopped a scan sequence that was
	// still claiming pixels.
	Capped bool
}

// RefineBoxes grows detection boxes so they absorb nearby foreground pixels of
// the auxiliary mask that no box covers.
//
// A working raster the size of aux holds 0 for background, 1 for foreground
// not yet assigned, and position+2 inside each detection's box (later boxes
// win where boxes overlap). Every scan visits the unassigned cells in
// row-major order; a cell with a claimed cell inside its (2*th+1)^2 window is
// claimed by the nearest one (Euclidean, ties go to the first in window
// order) and that detection's box is extended to cover it. Claims are visible
// to the rest of the same scan. Scans repeat until one claims nothing or
// maxIterations is reached.
//
// Arguments:
//   - dets: The page's detections; their boxes are modified in place.
//   - aux: Auxiliary mask, foreground = pixel that should belong to a region.
//   - th: Neighbourhood radius, >= 1.
//   - maxIterations: Scan cap; <= 0 means unbounded.
//
// Returns:
//   - RefineStats: Counters of the run.
func RefineBoxes(dets []*Detection, aux *images.Mask, th, maxIterations int) RefineStats {
	var stats RefineStats
	if aux.Empty() || len(dets) == 0 {
		return stats
	}
	th = max(th, 1)
	rows, cols := aux.Rows, aux.Cols

	raster := make([]int32, rows*cols)
	for i, v := range aux.Pix {
		if v != 0 {
			raster[i] = cellUnassigned
		}
	}
	for pos, d := range dets {
		b := d.Box.Clamp(rows, cols)
		for r := b.MinRow; r < b.MaxRow; r++ {
			row := raster[r*cols : (r+1)*cols]
			for c := b.MinCol; c < b.MaxCol; c++ {
				row[c] = int32(pos) + claimOffset
			}
		}
	}

	pending := make([]int, 0)
	for i, v := range raster {
		if v == cellUnassigned {
			pending = append(pending, i)
		}
	}

	for len(pending) > 0 {
		if maxIterations > 0 && stats.Iterations >= maxIterations {
			stats.Capped = true
			break
		}
		stats.Iterations++

		claimed := 0
		next := pending[:0]
		for _, p := range pending {
			r, c := p/cols, p%cols
			owner := nearestClaim(raster, rows, cols, r, c, th)
			if owner == cellKept {
				next = append(next, p)
				continue
			}
			raster[p] = owner
			dets[owner-claimOffset].Box.Extend(r, c)
			claimed++
		}
		pending = next
		stats.Claimed += claimed
		if claimed == 0 {
			break
		}
	}
	stats.Unclaimed = len(pending)
	return stats
}

// nearestClaim returns the value of the claimed cell closest to (r, c) inside
// the window of radius th, or cellKept when the window holds no claimed cell.
func nearestClaim(raster []int32, rows, cols, r, c, th int) int32 {
	best := cellKept
	bestDist := float32(math.MaxFloat32)
	for wr := r - th; wr <= r+th; wr++ {
		if wr < 0 || wr >= rows {
			continue
		}
		row := raster[wr*cols : (wr+1)*cols]
		dr := float32(wr - r)
		for wc := c - th; wc <= c+th; wc++ {
			if wc < 0 || wc >= cols || row[wc] < claimOffset {
				continue
			}
			dc := float32(wc - c)
			if d := math32.Sqrt(dr*dr + dc*dc); d < bestDist {
				best, bestDist = row[wc], d
			}
		}
	}
	return best
}
