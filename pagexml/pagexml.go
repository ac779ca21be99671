// Package pagexml reads and writes resolved page layouts as PAGE XML.
//
// Only the parts of the format the resolver produces are modelled: the page
// dimensions, the reading-order group and the text, image, table and graphic
// regions with their outer coordinates.
package pagexml

import (
	"encoding/xml"
	"fmt"
	"image"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nvr-ai/go-blockseg/layout"
	"github.com/nvr-ai/go-blockseg/models"
	"github.com/pkg/errors"
)

// Namespace is the PAGE content schema the documents declare.
const Namespace = "http://schema.primaresearch.org/PAGE/gts/pagecontent/2019-07-15"

// Creator is written into the document metadata.
const Creator = "go-blockseg"

// PcGts is the document root.
type PcGts struct {
	XMLName  xml.Name `xml:"PcGts"`
	Xmlns    string   `xml:"xmlns,attr,omitempty"`
	Metadata Metadata `xml:"Metadata"`
	Page     Page     `xml:"Page"`
}

// Metadata records who produced the document and when.
type Metadata struct {
	Creator    string `xml:"Creator"`
	Created    string `xml:"Created"`
	LastChange string `xml:"LastChange"`
}

// Page holds the reading order and the regions.
type Page struct {
	ImageFilename string        `xml:"imageFilename,attr"`
	ImageWidth    int           `xml:"imageWidth,attr"`
	ImageHeight   int           `xml:"imageHeight,attr"`
	ReadingOrder  *ReadingOrder `xml:"ReadingOrder,omitempty"`
	// Regions keep their emission order; the element name carries the kind.
	Regions []Region `xml:",any"`
}

// ReadingOrder wraps the ordered group.
type ReadingOrder struct {
	OrderedGroup OrderedGroup `xml:"OrderedGroup"`
}

// OrderedGroup lists the regions with their reading-order index.
type OrderedGroup struct {
	ID      string             `xml:"id,attr"`
	Caption string             `xml:"caption,attr,omitempty"`
	Refs    []RegionRefIndexed `xml:"RegionRefIndexed"`
}

// RegionRefIndexed is one reading-order entry.
type RegionRefIndexed struct {
	Index     int    `xml:"index,attr"`
	RegionRef string `xml:"regionRef,attr"`
}

// Region is a TextRegion, ImageRegion, TableRegion or GraphicRegion.
type Region struct {
	XMLName xml.Name
	ID      string `xml:"id,attr"`
	Type    string `xml:"type,attr,omitempty"`
	Custom  string `xml:"custom,attr,omitempty"`
	Coords  Coords `xml:"Coords"`
}

// Coords is the outer ring of a region.
type Coords struct {
	Points string `xml:"points,attr"`
}

var readingOrderCustom = regexp.MustCompile(`readingOrder\s*\{\s*index:\s*(\d+)\s*;?\s*\}`)

// FormatPoints renders a polygon as "x,y x,y ...".
func FormatPoints(poly []image.Point) string {
	parts := make([]string, len(poly))
	for i, p := range poly {
		parts[i] = strconv.Itoa(p.X) + "," + strconv.Itoa(p.Y)
	}
	return strings.Join(parts, " ")
}

// ParsePoints parses a points attribute.
func ParsePoints(s string) ([]image.Point, error) {
	fields := strings.Fields(s)
	poly := make([]image.Point, 0, len(fields))
	for _, f := range fields {
		xs, ys, ok := strings.Cut(f, ",")
		if !ok {
			return nil, errors.Errorf("malformed point %q", f)
		}
		x, err := strconv.Atoi(xs)
		if err != nil {
			return nil, errors.Wrapf(err, "point %q", f)
		}
		y, err := strconv.Atoi(ys)
		if err != nil {
			return nil, errors.Wrapf(err, "point %q", f)
		}
		poly = append(poly, image.Point{X: x, Y: y})
	}
	return poly, nil
}

// elementName maps a region kind to its PAGE element.
func elementName(k models.Kind) string {
	return k.String()
}

func kindOf(element string) (models.Kind, bool) {
	for _, k := range []models.Kind{models.KindText, models.KindImage, models.KindTable, models.KindGraphic} {
		if k.String() == element {
			return k, true
		}
	}
	return 0, false
}

// FromResult builds the document of a resolved page.
//
// Arguments:
//   - res: The resolved page.
//   - imageFilename: The page image the coordinates refer to.
//   - now: Creation and last change time.
//
// Returns:
//   - *PcGts: The document.
func FromResult(res *layout.Result, imageFilename string, now time.Time) *PcGts {
	stamp := now.UTC().Format(time.RFC3339)
	doc := &PcGts{
		Xmlns:    Namespace,
		Metadata: Metadata{Creator: Creator, Created: stamp, LastChange: stamp},
		Page: Page{
			ImageFilename: imageFilename,
			ImageWidth:    res.Cols,
			ImageHeight:   res.Rows,
		},
	}

	group := OrderedGroup{ID: res.ReadingOrder.ID, Caption: res.ReadingOrder.Caption}
	for _, ref := range res.ReadingOrder.Refs {
		group.Refs = append(group.Refs, RegionRefIndexed{Index: ref.Index, RegionRef: ref.RegionID})
	}
	if len(group.Refs) > 0 {
		doc.Page.ReadingOrder = &ReadingOrder{OrderedGroup: group}
	}

	for _, r := range res.Regions {
		doc.Page.Regions = append(doc.Page.Regions, Region{
			XMLName: xml.Name{Local: elementName(r.Kind)},
			ID:      r.ID,
			Type:    r.TextType,
			Custom:  fmt.Sprintf("readingOrder {index:%d;}", r.ReadingOrderIndex),
			Coords:  Coords{Points: FormatPoints(r.Polygon)},
		})
	}
	return doc
}

// LayoutRegions converts the document's regions back into resolver regions.
// Elements that are not one of the four region kinds are skipped. The
// reading-order index is taken from the ordered group, or from the custom
// attribute when the group does not reference the region, and is -1 if
// neither has it.
func (d *PcGts) LayoutRegions() ([]layout.Region, error) {
	index := make(map[string]int)
	if d.Page.ReadingOrder != nil {
		for _, ref := range d.Page.ReadingOrder.OrderedGroup.Refs {
			index[ref.RegionRef] = ref.Index
		}
	}

	var regions []layout.Region
	for _, r := range d.Page.Regions {
		kind, ok := kindOf(r.XMLName.Local)
		if !ok {
			continue
		}
		poly, err := ParsePoints(r.Coords.Points)
		if err != nil {
			return nil, errors.Wrapf(err, "region %s", r.ID)
		}
		region := layout.Region{
			ID:                r.ID,
			Kind:              kind,
			ClassName:         r.Type,
			TextType:          r.Type,
			Polygon:           poly,
			ReadingOrderIndex: -1,
		}
		if kind != models.KindText {
			region.TextType = ""
			region.ClassName = classForKind(kind)
		}
		if i, ok := index[r.ID]; ok {
			region.ReadingOrderIndex = i
		} else if m := readingOrderCustom.FindStringSubmatch(r.Custom); m != nil {
			region.ReadingOrderIndex, _ = strconv.Atoi(m[1])
		}
		regions = append(regions, region)
	}
	return regions, nil
}

func classForKind(k models.Kind) string {
	switch k {
	case models.KindImage:
		return models.ClassImage
	case models.KindTable:
		return models.ClassTable
	case models.KindGraphic:
		return models.ClassGraphics
	default:
		return ""
	}
}

// Encode writes the document as indented XML with a header.
func Encode(w io.Writer, doc *PcGts) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errors.WithStack(err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encoding page xml")
	}
	if err := enc.Close(); err != nil {
		return errors.WithStack(err)
	}
	_, err := io.WriteString(w, "\n")
	return errors.WithStack(err)
}

// Decode reads a document.
func Decode(r io.Reader) (*PcGts, error) {
	var doc PcGts
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decoding page xml")
	}
	return &doc, nil
}

// WriteFile encodes doc to path.
func WriteFile(path string, doc *PcGts) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if err := Encode(f, doc); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "closing %s", path)
}

// ReadFile decodes the document at path.
func ReadFile(path string) (*PcGts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	return Decode(f)
}
