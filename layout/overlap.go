package layout

import "github.com/nvr-ai/go-blockseg/images"

// OverlapStats summarizes one run of ResolveOverlaps.
type OverlapStats struct {
	// Trimmed counts boundary adjustments.
	Trimmed int
	// Collapsed counts boxes left empty or inverted.
	Collapsed int
}

// ResolveOverlaps trims detection boxes so that regions do not overlap
// vertically.
//
// Detections are visited in detector order. Each box is compared with every
// box already placed, across all classes, in the order the classes were first
// seen. When the horizontal ranges overlap or nest and the box's bottom edge
// falls inside the placed box's row span, the bottom edge is pulled up above
// the placed box; when its top edge falls inside, the top edge is pushed below
// it. Both tests use closed intervals. Boxes of the exempt class are never
// trimmed. The (possibly empty or inverted) result is recorded under its class
// and used for later comparisons.
//
// The pass is greedy and depends on detector order.
//
// Arguments:
//   - dets: The page's detections; boxes are modified in place.
//   - exemptClass: Class id that is never trimmed (drop capitals), or -1.
//
// Returns:
//   - OverlapStats: Counters of the run.
func ResolveOverlaps(dets []*Detection, exemptClass int) OverlapStats {
	var stats OverlapStats
	placed := make(map[int][]images.Box)
	var classOrder []int

	for _, d := range dets {
		if d.ClassID != exemptClass {
			for _, class := range classOrder {
				for _, other := range placed[class] {
					stats.Trimmed += trimAgainst(&d.Box, other)
				}
			}
			if d.Box.Inverted() || d.Box.Empty() {
				stats.Collapsed++
			}
		}

		if _, seen := placed[d.ClassID]; !seen {
			classOrder = append(classOrder, d.ClassID)
		}
		placed[d.ClassID] = append(placed[d.ClassID], d.Box)
	}
	return stats
}

// trimAgainst applies both edge rules of box against other and returns the
// number of edges moved.
func trimAgainst(box *images.Box, other images.Box) int {
	cur := *box
	if !horizontalOverlap(cur, other) {
		return 0
	}
	n := 0
	if within(cur.MaxRow, other.MinRow, other.MaxRow) {
		box.MaxRow = other.MinRow - 1
		n++
	}
	if within(cur.MinRow, other.MinRow, other.MaxRow) {
		box.MinRow = other.MaxRow + 1
		n++
	}
	return n
}

// horizontalOverlap reports whether either column bound of b lies inside o's
// column range, or b spans o entirely.
func horizontalOverlap(b, o images.Box) bool {
	return within(b.MinCol, o.MinCol, o.MaxCol) ||
		within(b.MaxCol, o.MinCol, o.MaxCol) ||
		(b.MinCol <= o.MinCol && b.MaxCol >= o.MaxCol)
}

func within(v, lo, hi int) bool {
	return v >= lo && v <= hi
}
