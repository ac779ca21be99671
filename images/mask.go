// Package images - Binary mask raster and its bridge to gocv.
package images

import (
	"image"
	"image/color"
	"runtime"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Mask is a dense binary raster the size of a page image.
//
// Non-zero cells are foreground. Pix is row-major with stride Cols.
type Mask struct {
	Rows int
	Cols int
	Pix  []uint8
}

// NewMask allocates an all-background mask.
func NewMask(rows, cols int) *Mask {
	return &Mask{Rows: rows, Cols: cols, Pix: make([]uint8, rows*cols)}
}

// MaskFromBools builds a mask from a row-major boolean grid. All rows must
// have the same length.
func MaskFromBools(grid [][]bool) (*Mask, error) {
	if len(grid) == 0 {
		return NewMask(0, 0), nil
	}
	cols := len(grid[0])
	m := NewMask(len(grid), cols)
	for r, row := range grid {
		if len(row) != cols {
			return nil, errors.Errorf("ragged mask: row %d has %d columns, expected %d", r, len(row), cols)
		}
		for c, v := range row {
			if v {
				m.Pix[r*cols+c] = 1
			}
		}
	}
	return m, nil
}

// MaskFromMat thresholds a single-channel 8-bit Mat into a mask. Cells whose
// value is >= threshold become foreground, unless invert is set, in which case
// cells below the threshold become foreground.
//
// Arguments:
//   - mat: A CV8UC1 Mat, typically loaded with gocv.IMReadGrayScale.
//   - threshold: Cut-off intensity.
//   - invert: Select dark pixels instead of bright ones.
//
// Returns:
//   - *Mask: The thresholded mask.
//   - error: An error if the Mat is empty or not 8-bit single channel.
func MaskFromMat(mat gocv.Mat, threshold uint8, invert bool) (*Mask, error) {
	if mat.Empty() {
		return nil, errors.New("mat is empty")
	}
	if mat.Type() != gocv.MatTypeCV8UC1 {
		return nil, errors.Errorf("unsupported mat type %v, expected CV8UC1", mat.Type())
	}
	data, err := mat.DataPtrUint8()
	if err != nil {
		return nil, errors.Wrap(err, "reading mat data")
	}
	m := NewMask(mat.Rows(), mat.Cols())
	for i, v := range data[:len(m.Pix)] {
		if (v >= threshold) != invert {
			m.Pix[i] = 1
		}
	}
	return m, nil
}

// At reports whether (row, col) is foreground. Out of range cells are background.
func (m *Mask) At(row, col int) bool {
	if row < 0 || col < 0 || row >= m.Rows || col >= m.Cols {
		return false
	}
	return m.Pix[row*m.Cols+col] != 0
}

// Set marks (row, col) as foreground or background.
func (m *Mask) Set(row, col int, v bool) {
	if row < 0 || col < 0 || row >= m.Rows || col >= m.Cols {
		return
	}
	if v {
		m.Pix[row*m.Cols+col] = 1
	} else {
		m.Pix[row*m.Cols+col] = 0
	}
}

// FillBox marks every cell of b (clamped to the mask) as foreground.
func (m *Mask) FillBox(b Box) {
	b = b.Clamp(m.Rows, m.Cols)
	for r := b.MinRow; r < b.MaxRow; r++ {
		for c := b.MinCol; c < b.MaxCol; c++ {
			m.Pix[r*m.Cols+c] = 1
		}
	}
}

// Area counts the foreground cells.
func (m *Mask) Area() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Empty reports whether the mask has no cells at all.
func (m *Mask) Empty() bool {
	return m == nil || m.Rows == 0 || m.Cols == 0
}

// Gray converts the mask to an 8-bit image with foreground at 255.
func (m *Mask) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Cols, m.Rows))
	for i, v := range m.Pix {
		if v != 0 {
			img.Pix[i] = 255
		}
	}
	return img
}

// MaskFromImage thresholds any image at mid-gray (foreground = bright).
func MaskFromImage(img image.Image) *Mask {
	b := img.Bounds()
	m := NewMask(b.Dy(), b.Dx())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if g.Y >= 128 {
				m.Pix[(y-b.Min.Y)*m.Cols+(x-b.Min.X)] = 1
			}
		}
	}
	return m
}

// ToMat copies the mask into a new CV8UC1 Mat with foreground at 255.
//
// The caller owns the returned Mat and must Close it.
func (m *Mask) ToMat() (gocv.Mat, error) {
	if m.Empty() {
		return gocv.NewMat(), errors.New("mask is empty")
	}
	pix := m.Gray().Pix
	view, err := gocv.NewMatFromBytes(m.Rows, m.Cols, gocv.MatTypeCV8UC1, pix)
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "creating mat from mask")
	}
	defer view.Close()

	// The view borrows Go memory; hand back an OpenCV-owned copy.
	mat := view.Clone()
	runtime.KeepAlive(pix)
	return mat, nil
}
