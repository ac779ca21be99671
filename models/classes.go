package models

import "github.com/pkg/errors"

// ErrUnknownClass is returned when a class index or name is not in a set.
var ErrUnknownClass = errors.New("unknown class")

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int
	// The human-readable label.
	Name string
}

// OutputClassSet ties a model family to its full list of labels.
type OutputClassSet struct {
	// Class set identifier.
	Style ModelFamily
	// Classes that are supported and mappable, ordered by Index.
	Classes []OutputClass
	// nameToIdx for fast lookup by name
	nameToIdx map[string]int
}

// NewOutputClassSet builds a set whose indices follow the order of names.
func NewOutputClassSet(style ModelFamily, names ...string) *OutputClassSet {
	set := &OutputClassSet{Style: style, Classes: make([]OutputClass, len(names))}
	for i, name := range names {
		set.Classes[i] = OutputClass{Index: i, Name: name}
	}
	set.BuildNameIndexMap()
	return set
}

// BuildNameIndexMap builds or rebuilds the name->index map.
func (s *OutputClassSet) BuildNameIndexMap() {
	s.nameToIdx = make(map[string]int, len(s.Classes))
	for _, c := range s.Classes {
		s.nameToIdx[c.Name] = c.Index
	}
}

// Len returns the number of classes, background included.
func (s *OutputClassSet) Len() int {
	return len(s.Classes)
}

// GetName returns the class name for an index.
func (s *OutputClassSet) GetName(idx int) (string, error) {
	if idx < 0 || idx >= len(s.Classes) {
		return "", errors.Wrapf(ErrUnknownClass, "index %d out of range for %q (%d classes)", idx, s.Style, len(s.Classes))
	}
	return s.Classes[idx].Name, nil
}

// GetIndex returns the class index for a name, or -1 if the name is unknown.
func (s *OutputClassSet) GetIndex(name string) (int, error) {
	if s.nameToIdx == nil {
		s.BuildNameIndexMap()
	}
	idx, ok := s.nameToIdx[name]
	if !ok {
		return -1, errors.Wrapf(ErrUnknownClass, "name %q not found in %q", name, s.Style)
	}
	return idx, nil
}

// BlockSegmentationClassNames is the label order of the block segmentation
// model. Index 0 is background.
var BlockSegmentationClassNames = []string{
	ClassBackground,
	"page-number",
	ClassParagraph,
	"catch-word",
	"heading",
	ClassDropCapital,
	"signature-mark",
	"header",
	"marginalia",
	"footnote",
	"footnote-continued",
	"caption",
	"endnote",
	"footer",
	"keynote",
}

// BlockSegmentationClasses returns a fresh class set for the block
// segmentation model.
func BlockSegmentationClasses() *OutputClassSet {
	return NewOutputClassSet(ModelFamilyBlockSegmentation, BlockSegmentationClassNames...)
}
