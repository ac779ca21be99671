package layout

import (
	"sort"

	"github.com/nvr-ai/go-blockseg/images"
	"github.com/nvr-ai/go-blockseg/models"
	"github.com/tidwall/rtree"
)

// ReadingOrderKey is the (min_col, min_row, max_col, max_row) tuple a region is
// ordered by.
type ReadingOrderKey struct {
	MinCol, MinRow, MaxCol, MaxRow int
}

// MarginNudge is the fixed paragraph margin correction applied before ordering.
type MarginNudge struct {
	// Left is subtracted from MinCol when MinCol-Left exceeds the page width.
	Left int
	// Right is added to MinCol when MaxCol+Right stays inside the page width.
	Right int
}

// DefaultMarginNudge is the 5 / 10 unit correction of the block segmenter.
var DefaultMarginNudge = MarginNudge{Left: 5, Right: 10}

// KeyFor derives the reading-order key of a box. Paragraph keys get the fixed
// margin nudge measured against the page width.
func KeyFor(box images.Box, className string, pageWidth int, nudge MarginNudge) ReadingOrderKey {
	k := ReadingOrderKey{MinCol: box.MinCol, MinRow: box.MinRow, MaxCol: box.MaxCol, MaxRow: box.MaxRow}
	if className != models.ClassParagraph {
		return k
	}
	if k.MinCol-nudge.Left > pageWidth {
		k.MinCol -= nudge.Left
	}
	if k.MaxCol+nudge.Right < pageWidth {
		k.MinCol += nudge.Right
	}
	return k
}

// keyRect is a closed, normalized rectangle.
type keyRect struct {
	minCol, minRow, maxCol, maxRow int
}

func (k ReadingOrderKey) rect() keyRect {
	return keyRect{
		minCol: min(k.MinCol, k.MaxCol),
		maxCol: max(k.MinCol, k.MaxCol),
		minRow: min(k.MinRow, k.MaxRow),
		maxRow: max(k.MinRow, k.MaxRow),
	}
}

// probe is the rectangle of an already-placed region widened to the left page
// edge: any later region that shares rows with it and starts to its left must
// be read first.
func (k ReadingOrderKey) probe() keyRect {
	k.MinCol = 0
	return k.rect()
}

// intersects treats both rectangles as closed, so touching edges count.
func (r keyRect) intersects(o keyRect) bool {
	return r.minCol <= o.maxCol && o.minCol <= r.maxCol &&
		r.minRow <= o.maxRow && o.minRow <= r.maxRow
}

// OrderEntry binds a reading-order key to the detection it came from.
type OrderEntry struct {
	DetectionID int
	Key         ReadingOrderKey
}

// ReadingOrder is the final region sequence of a page.
type ReadingOrder struct {
	Entries []OrderEntry
	index   map[int]int
}

// IndexOf returns the reading-order position of a detection.
func (o *ReadingOrder) IndexOf(detectionID int) (int, bool) {
	i, ok := o.index[detectionID]
	return i, ok
}

// DuplicateKeys returns groups of detection ids that share an identical key.
// Such detections are still ordered independently by id.
func (o *ReadingOrder) DuplicateKeys() [][]int {
	groups := make(map[ReadingOrderKey][]int)
	var keys []ReadingOrderKey
	for _, e := range o.Entries {
		if _, ok := groups[e.Key]; !ok {
			keys = append(keys, e.Key)
		}
		groups[e.Key] = append(groups[e.Key], e.DetectionID)
	}
	var dups [][]int
	for _, k := range keys {
		if len(groups[k]) > 1 {
			dups = append(dups, groups[k])
		}
	}
	return dups
}

// BuildReadingOrder orders regions top-to-bottom, then left-to-right, and
// repairs the order so that a region is read after any later region that
// shares its rows and lies to its left.
//
// Entries are first sorted by (MinRow, MinCol), ties kept in input order. Then,
// in that initial order, each entry is bubbled forward once: starting from its
// current position it is compared with every following entry and, whenever its
// left-widened rectangle intersects one, it is moved directly behind it and the
// scan continues from there. This is one forward pass, not a fixed point, so
// some intersections can survive (see ResidualConflicts).
//
// Arguments:
//   - entries: One entry per detection; the slice is not modified.
//
// Returns:
//   - *ReadingOrder: The ordered entries and an id->position index.
func BuildReadingOrder(entries []OrderEntry) *ReadingOrder {
	order := make([]OrderEntry, len(entries))
	copy(order, entries)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].Key.MinRow != order[j].Key.MinRow {
			return order[i].Key.MinRow < order[j].Key.MinRow
		}
		return order[i].Key.MinCol < order[j].Key.MinCol
	})

	initial := make([]OrderEntry, len(order))
	copy(initial, order)

	for _, e := range initial {
		p := position(order, e.DetectionID)
		probe := e.Key.probe()
		for j := p + 1; j < len(order); j++ {
			if !probe.intersects(order[j].Key.rect()) {
				continue
			}
			moved := order[p]
			copy(order[p:j], order[p+1:j+1])
			order[j] = moved
			p = j
		}
	}

	ro := &ReadingOrder{Entries: order, index: make(map[int]int, len(order))}
	for i, e := range order {
		ro.index[e.DetectionID] = i
	}
	return ro
}

func position(order []OrderEntry, detectionID int) int {
	for i, e := range order {
		if e.DetectionID == detectionID {
			return i
		}
	}
	return -1
}

// ResidualConflicts counts pairs (i, j), i before j, whose left-widened
// rectangle of i still intersects j after BuildReadingOrder.
func ResidualConflicts(order *ReadingOrder) int {
	var tr rtree.RTreeG[int]
	for i, e := range order.Entries {
		r := e.Key.rect()
		tr.Insert(
			[2]float64{float64(r.minCol), float64(r.minRow)},
			[2]float64{float64(r.maxCol), float64(r.maxRow)},
			i,
		)
	}

	conflicts := 0
	for i, e := range order.Entries {
		p := e.Key.probe()
		tr.Search(
			[2]float64{float64(p.minCol), float64(p.minRow)},
			[2]float64{float64(p.maxCol), float64(p.maxRow)},
			func(_, _ [2]float64, j int) bool {
				if j > i {
					conflicts++
				}
				return true
			},
		)
	}
	return conflicts
}
