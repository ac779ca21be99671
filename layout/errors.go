package layout

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInputContract is the only fatal error class: the detector output does
	// not match the class table. The page is aborted and nothing is emitted.
	ErrInputContract = errors.New("input contract violation")
	// ErrGeometryDegenerate marks a region whose outline is empty or invalid
	// after clipping. The region is dropped and the page continues.
	ErrGeometryDegenerate = errors.New("degenerate region geometry")
	// ErrAuxMaskUnavailable marks a page whose auxiliary non-text mask could not
	// be used. Box refinement is skipped.
	ErrAuxMaskUnavailable = errors.New("auxiliary mask unavailable")
	// ErrConvergenceExhausted marks a region whose mask did not merge into a
	// single outline within the dilation round budget. The first contour is used.
	ErrConvergenceExhausted = errors.New("contour dilation did not converge")
)

// ClassIDError reports a detection whose class id is outside the class table.
type ClassIDError struct {
	DetectionID int
	ClassID     int
	TableSize   int
}

func (e *ClassIDError) Error() string {
	return fmt.Sprintf("detection %d: unexpected class id %d - model does not match (%d classes)",
		e.DetectionID, e.ClassID, e.TableSize)
}

// Is makes errors.Is(err, ErrInputContract) match.
func (e *ClassIDError) Is(target error) bool {
	return target == ErrInputContract
}

// Diagnostic is a recoverable condition recorded while resolving a page.
type Diagnostic struct {
	// DetectionID is the detection concerned, or -1 for page-level conditions.
	DetectionID int
	// Err wraps one of the sentinel errors of this package.
	Err error
}

func (d Diagnostic) String() string {
	if d.DetectionID < 0 {
		return d.Err.Error()
	}
	return fmt.Sprintf("detection %d: %v", d.DetectionID, d.Err)
}
