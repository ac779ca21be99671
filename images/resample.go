package images

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// ResizeMask resamples a mask to rows x cols with nearest-neighbour
// interpolation so that no intermediate grey values appear.
//
// Arguments:
//   - m: The source mask.
//   - rows: Target height.
//   - cols: Target width.
//
// Returns:
//   - *Mask: The resampled mask. When the size already matches a copy is returned.
//   - error: An error if the source or the target size is empty.
func ResizeMask(m *Mask, rows, cols int) (*Mask, error) {
	if m.Empty() {
		return nil, errors.New("source mask is empty")
	}
	if rows <= 0 || cols <= 0 {
		return nil, errors.Errorf("invalid target size %dx%d", cols, rows)
	}
	if m.Rows == rows && m.Cols == cols {
		out := NewMask(rows, cols)
		copy(out.Pix, m.Pix)
		return out, nil
	}

	scaled := resize.Resize(uint(cols), uint(rows), m.Gray(), resize.NearestNeighbor)
	return maskFromScaled(scaled, rows, cols), nil
}

func maskFromScaled(img image.Image, rows, cols int) *Mask {
	out := NewMask(rows, cols)
	b := img.Bounds()
	for r := 0; r < rows && r < b.Dy(); r++ {
		for c := 0; c < cols && c < b.Dx(); c++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+c, b.Min.Y+r)).(color.Gray)
			if g.Y >= 128 {
				out.Pix[r*cols+c] = 1
			}
		}
	}
	return out
}
