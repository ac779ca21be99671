package layout

import (
	"fmt"
	"image"

	"github.com/nvr-ai/go-blockseg/models"
)

// ReadingOrderCaption is the caption of the page's ordered region group.
const ReadingOrderCaption = "Regions reading order"

// Region is a resolved page region. It is never modified after assembly.
type Region struct {
	// ID is unique within the page (region0000, region0001, ...).
	ID string
	// Kind is the structural kind derived from the class.
	Kind models.Kind
	// ClassName is the detector class the region came from.
	ClassName string
	// TextType is the text-region subtype; empty for non-text kinds.
	TextType string
	// Polygon is the outer ring in page-absolute coordinates, without a
	// repeated closing vertex.
	Polygon []image.Point
	// ReadingOrderIndex is the region's position in the page reading order.
	ReadingOrderIndex int
}

// RegionRef is one indexed reference of the reading-order group.
type RegionRef struct {
	Index    int
	RegionID string
}

// OrderedGroup is the reading-order group of a page.
type OrderedGroup struct {
	ID      string
	Caption string
	Refs    []RegionRef
}

// Assembler turns clipped polygons into regions and records their reading
// order references. Regions and references are appended in the order Add is
// called; the group encodes the order through the indices, not the sequence.
type Assembler struct {
	regions []Region
	group   OrderedGroup
	used    map[string]struct{}
	next    int
}

// NewAssembler starts the region group of a page. Ids of kept regions are
// reserved so that new ids never collide with them.
func NewAssembler(pageID string, kept []Region) *Assembler {
	a := &Assembler{
		regions: append([]Region(nil), kept...),
		group:   OrderedGroup{ID: pageID, Caption: ReadingOrderCaption},
		used:    make(map[string]struct{}, len(kept)),
	}
	for _, r := range kept {
		a.used[r.ID] = struct{}{}
	}
	return a
}

func (a *Assembler) nextID() string {
	for {
		id := fmt.Sprintf("region%04d", a.next)
		a.next++
		if _, taken := a.used[id]; !taken {
			a.used[id] = struct{}{}
			return id
		}
	}
}

// Add creates the region for one surviving detection.
func (a *Assembler) Add(className string, polygon []image.Point, orderIndex int) Region {
	region := Region{
		ID:                a.nextID(),
		Kind:              models.KindOf(className),
		ClassName:         className,
		Polygon:           polygon,
		ReadingOrderIndex: orderIndex,
	}
	if region.Kind == models.KindText {
		region.TextType = className
	}
	a.regions = append(a.regions, region)
	a.group.Refs = append(a.group.Refs, RegionRef{Index: orderIndex, RegionID: region.ID})
	return region
}

// Finalize returns the page's regions (kept ones first) and its reading-order group.
func (a *Assembler) Finalize() ([]Region, OrderedGroup) {
	return a.regions, a.group
}
