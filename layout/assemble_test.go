package layout

import (
	"image"
	"testing"

	"github.com/nvr-ai/go-blockseg/models"
	"github.com/stretchr/testify/assert"
)

var square = []image.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}

func TestAssembler_Add(t *testing.T) {
	a := NewAssembler("page-1", nil)

	p := a.Add(models.ClassParagraph, square, 1)
	img := a.Add(models.ClassImage, square, 0)

	assert.Equal(t, "region0000", p.ID)
	assert.Equal(t, models.KindText, p.Kind)
	assert.Equal(t, models.ClassParagraph, p.TextType)
	assert.Equal(t, 1, p.ReadingOrderIndex)

	assert.Equal(t, "region0001", img.ID)
	assert.Equal(t, models.KindImage, img.Kind)
	assert.Empty(t, img.TextType)

	regions, group := a.Finalize()
	assert.Len(t, regions, 2)
	assert.Equal(t, "page-1", group.ID)
	assert.Equal(t, ReadingOrderCaption, group.Caption)
	assert.Equal(t, []RegionRef{
		{Index: 1, RegionID: "region0000"},
		{Index: 0, RegionID: "region0001"},
	}, group.Refs)
}

func TestAssembler_SkipsKeptIDs(t *testing.T) {
	kept := []Region{
		{ID: "region0000", Kind: models.KindText, ClassName: "heading", TextType: "heading", Polygon: square},
		{ID: "region0002", Kind: models.KindTable, ClassName: models.ClassTable, Polygon: square},
	}
	a := NewAssembler("p", kept)

	first := a.Add(models.ClassParagraph, square, 0)
	second := a.Add(models.ClassParagraph, square, 1)

	assert.Equal(t, "region0001", first.ID)
	assert.Equal(t, "region0003", second.ID)

	regions, group := a.Finalize()
	assert.Len(t, regions, 4)
	assert.Equal(t, "region0000", regions[0].ID, "kept regions come first")
	assert.Len(t, group.Refs, 2, "kept regions are not part of the new group")
}
