// Package images - Raster geometry shared by the layout resolver.
package images

// Box is a lightweight layout box in raster coordinates.
//
// Rows grow downwards and columns grow to the right. MaxRow and MaxCol are
// exclusive (like image.Rectangle). A box trimmed by the overlap resolver may
// end up empty or inverted; it is kept as-is and callers decide what that means.
type Box struct {
	MinRow, MinCol, MaxRow, MaxCol int
}

// NewBox builds a box from the detector's (min_row, min_col, max_row, max_col) order.
func NewBox(minRow, minCol, maxRow, maxCol int) Box {
	return Box{MinRow: minRow, MinCol: minCol, MaxRow: maxRow, MaxCol: maxCol}
}

// Empty reports whether the box contains no pixels.
func (b Box) Empty() bool {
	return b.MinRow >= b.MaxRow || b.MinCol >= b.MaxCol
}

// Inverted reports whether either axis has its bounds swapped.
func (b Box) Inverted() bool {
	return b.MinRow > b.MaxRow || b.MinCol > b.MaxCol
}

// Canon returns the box with the bounds of each axis ordered.
func (b Box) Canon() Box {
	if b.MinRow > b.MaxRow {
		b.MinRow, b.MaxRow = b.MaxRow, b.MinRow
	}
	if b.MinCol > b.MaxCol {
		b.MinCol, b.MaxCol = b.MaxCol, b.MinCol
	}
	return b
}

// Clamp restricts the box to a rows x cols raster.
func (b Box) Clamp(rows, cols int) Box {
	b = b.Canon()
	b.MinRow = min(max(b.MinRow, 0), rows)
	b.MaxRow = min(max(b.MaxRow, 0), rows)
	b.MinCol = min(max(b.MinCol, 0), cols)
	b.MaxCol = min(max(b.MaxCol, 0), cols)
	return b
}

// Contains reports whether the pixel (row, col) lies inside the box.
func (b Box) Contains(row, col int) bool {
	return row >= b.MinRow && row < b.MaxRow && col >= b.MinCol && col < b.MaxCol
}

// Extend grows the box so that it covers the pixel (row, col). Bounds are only
// ever pushed outwards. It reports whether any bound changed.
func (b *Box) Extend(row, col int) bool {
	changed := false
	if row < b.MinRow {
		b.MinRow = row
		changed = true
	}
	if row+1 > b.MaxRow {
		b.MaxRow = row + 1
		changed = true
	}
	if col < b.MinCol {
		b.MinCol = col
		changed = true
	}
	if col+1 > b.MaxCol {
		b.MaxCol = col + 1
		changed = true
	}
	return changed
}
