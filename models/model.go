// Package models - Definitions for layout model output class styles and sets.
package models

// ModelFamily is the family of layout detection models whose class indices
// a class set describes.
type ModelFamily string

const (
	// ModelFamilyBlockSegmentation is the Mask R-CNN block segmentation model
	// family: "BG" plus 14 layout classes.
	ModelFamilyBlockSegmentation ModelFamily = "block-segmentation"
)

// Kind is the structural kind a region is emitted as.
type Kind int

const (
	// KindText is a text region; its subtype is the class name.
	KindText Kind = iota
	// KindImage is an image region.
	KindImage
	// KindTable is a table region.
	KindTable
	// KindGraphic is a graphic region.
	KindGraphic
)

// String returns the PAGE element name of the kind.
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "ImageRegion"
	case KindTable:
		return "TableRegion"
	case KindGraphic:
		return "GraphicRegion"
	default:
		return "TextRegion"
	}
}

const (
	// ClassBackground is the background label at index 0. It is never emitted.
	ClassBackground = "BG"
	// ClassParagraph is subject to the reading-order margin nudge.
	ClassParagraph = "paragraph"
	// ClassDropCapital is exempt from overlap trimming.
	ClassDropCapital = "drop-capital"
	// ClassImage maps to KindImage.
	ClassImage = "image"
	// ClassTable maps to KindTable.
	ClassTable = "table"
	// ClassGraphics maps to KindGraphic.
	ClassGraphics = "graphics"
)

// KindOf maps a class name to the structural kind of region it produces.
// Every class that is not image, table or graphics is a typed text region.
func KindOf(className string) Kind {
	switch className {
	case ClassImage:
		return KindImage
	case ClassTable:
		return KindTable
	case ClassGraphics:
		return KindGraphic
	default:
		return KindText
	}
}
