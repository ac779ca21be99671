// Package images - This file contains the region outline extraction built on
// OpenCV (via gocv).
//
// The ContourTracer encapsulates a small morphology pipeline:
//  1. Square all-ones structuring element sized from the blob area.
//  2. Binary dilation, repeated round by round.
//  3. External contour extraction after every round.
//
// Pipeline Overview:
//
// ┌──────────────┐
// │ Binary mask  │
// └──────┬───────┘
// ┌────────────────────────────┐
// │ Morphology (dilate k x k)  │ ◄─┐
// └──────┬─────────────────────┘   │ more than one
// ┌────────────────────────────┐   │ outer contour
// │ External contour detection │ ──┘
// └──────┬─────────────────────┘
// ┌────────────────────────────┐
// │ Single outline (x, y)      │
// └────────────────────────────┘
//
// Note: You must call Close() when finished to release native resources.
package images

import (
	"image"
	"math"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DefaultMaxDilationRounds bounds the dilate-until-one-contour loop.
const DefaultMaxDilationRounds = 10

// KernelSize estimates a dilation kernel edge from the foreground pixel count
// of a blob: floor(sqrt(area)/10), bumped to the next odd value, never below 1.
func KernelSize(area int) int {
	if area <= 0 {
		return 1
	}
	k := int(math.Sqrt(float64(area)) / 10)
	if k%2 == 0 {
		k++
	}
	return k
}

// TraceResult is the outcome of a ContourTracer run.
type TraceResult struct {
	// Contours are the external contours found after the last round, in (x, y) order.
	Contours [][]image.Point
	// Rounds is the number of dilation rounds that were applied.
	Rounds int
	// Converged is true when exactly one external contour remained.
	Converged bool
}

// ContourTracer dilates a binary mask until it forms a single connected outline.
//
// It keeps its working Mat and kernel between calls, so a tracer can be reused
// for every region of a page. It is not safe for concurrent use.
type ContourTracer struct {
	Work      gocv.Mat // Working copy of the mask, dilated in place
	Kernel    gocv.Mat // Square structuring element
	KernelDim int      // Edge of Kernel, 0 until the first Trace
	MaxRounds int      // Dilation round budget
}

// NewContourTracer constructs a tracer with the given round budget. A
// non-positive budget falls back to DefaultMaxDilationRounds.
//
// Always call Close() to release memory.
func NewContourTracer(maxRounds int) *ContourTracer {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxDilationRounds
	}
	return &ContourTracer{
		Work:      gocv.NewMat(),
		Kernel:    gocv.NewMat(),
		MaxRounds: maxRounds,
	}
}

// setKernel rebuilds the structuring element when the requested size changes.
func (t *ContourTracer) setKernel(size int) {
	if size == t.KernelDim && !t.Kernel.Empty() {
		return
	}
	t.Kernel.Close()
	t.Kernel = gocv.GetStructuringElement(gocv.MorphRect, image.Pt(size, size))
	t.KernelDim = size
}

// FillGaps performs one dilation of the working mask with the current kernel.
func (t *ContourTracer) FillGaps() error {
	if err := gocv.Dilate(t.Work, &t.Work, t.Kernel); err != nil {
		return errors.Wrap(err, "dilating mask")
	}
	return nil
}

// DetectContours extracts the external contours of the working mask.
//
// Uses RetrievalExternal and ChainApproxSimple, so straight runs collapse to
// their end points.
func (t *ContourTracer) DetectContours() [][]image.Point {
	contours := gocv.FindContours(t.Work, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	return contours.ToPoints()
}

// Trace dilates mask with a kernelSize x kernelSize square until exactly one
// external contour remains or the round budget is spent. At least one round
// is always applied.
//
// Arguments:
//   - mask: A CV8UC1 binary Mat. It is not modified.
//   - kernelSize: Edge of the square kernel, see KernelSize.
//
// Returns:
//   - TraceResult: The contours after the last round. When Converged is false the
//     caller decides which contour to use.
//   - error: An error if the morphology fails.
func (t *ContourTracer) Trace(mask gocv.Mat, kernelSize int) (TraceResult, error) {
	if mask.Empty() {
		return TraceResult{}, errors.New("mask is empty")
	}
	t.setKernel(max(kernelSize, 1))
	if err := mask.CopyTo(&t.Work); err != nil {
		return TraceResult{}, errors.Wrap(err, "copying mask")
	}

	var res TraceResult
	for res.Rounds < t.MaxRounds {
		if err := t.FillGaps(); err != nil {
			return res, err
		}
		res.Rounds++
		res.Contours = t.DetectContours()
		if len(res.Contours) == 1 {
			res.Converged = true
			break
		}
	}
	return res, nil
}

// Close releases all OpenCV native resources used by the tracer.
func (t *ContourTracer) Close() {
	t.Work.Close()
	t.Kernel.Close()
}
