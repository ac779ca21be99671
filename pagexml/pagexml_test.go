package pagexml

import (
	"bytes"
	"image"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nvr-ai/go-blockseg/layout"
	"github.com/nvr-ai/go-blockseg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var square = []image.Point{{X: 10, Y: 20}, {X: 30, Y: 20}, {X: 30, Y: 40}, {X: 10, Y: 40}}

func sampleResult() *layout.Result {
	return &layout.Result{
		PageID: "page-7",
		Rows:   1000,
		Cols:   800,
		Regions: []layout.Region{
			{ID: "region0000", Kind: models.KindText, ClassName: "paragraph", TextType: "paragraph", Polygon: square, ReadingOrderIndex: 1},
			{ID: "region0001", Kind: models.KindImage, ClassName: "image", Polygon: square, ReadingOrderIndex: 0},
		},
		ReadingOrder: layout.OrderedGroup{
			ID:      "page-7",
			Caption: layout.ReadingOrderCaption,
			Refs: []layout.RegionRef{
				{Index: 1, RegionID: "region0000"},
				{Index: 0, RegionID: "region0001"},
			},
		},
	}
}

func TestFormatAndParsePoints(t *testing.T) {
	s := FormatPoints(square)
	assert.Equal(t, "10,20 30,20 30,40 10,40", s)

	poly, err := ParsePoints(" 10,20  30,20 30,40\n10,40 ")
	require.NoError(t, err)
	assert.Equal(t, square, poly)

	for _, bad := range []string{"10;20", "a,1", "1,b"} {
		_, err := ParsePoints(bad)
		assert.Error(t, err, bad)
	}
}

func TestEncode(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := FromResult(sampleResult(), "page.png", now)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `xmlns="`+Namespace+`"`)
	assert.Contains(t, out, `<Created>2024-03-01T12:00:00Z</Created>`)
	assert.Contains(t, out, `imageFilename="page.png" imageWidth="800" imageHeight="1000"`)
	assert.Contains(t, out, `<OrderedGroup id="page-7" caption="Regions reading order">`)
	assert.Contains(t, out, `<RegionRefIndexed index="1" regionRef="region0000">`)
	assert.Contains(t, out, `<TextRegion id="region0000" type="paragraph" custom="readingOrder {index:1;}">`)
	assert.Contains(t, out, `<ImageRegion id="region0001" custom="readingOrder {index:0;}">`)
	assert.Contains(t, out, `<Coords points="10,20 30,20 30,40 10,40">`)
	assert.Less(t, strings.Index(out, "<ReadingOrder>"), strings.Index(out, "<TextRegion"))
	assert.Less(t, strings.Index(out, "<TextRegion"), strings.Index(out, "<ImageRegion"))
}

func TestEncode_NoRegions(t *testing.T) {
	res := &layout.Result{PageID: "empty", Rows: 10, Cols: 10}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FromResult(res, "empty.png", time.Now())))
	assert.NotContains(t, buf.String(), "<ReadingOrder>")
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.xml")
	require.NoError(t, WriteFile(path, FromResult(sampleResult(), "page.png", time.Now())))

	doc, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 800, doc.Page.ImageWidth)

	regions, err := doc.LayoutRegions()
	require.NoError(t, err)
	assert.Equal(t, sampleResult().Regions, regions)
}

func TestLayoutRegions_CustomIndexAndUnknownElements(t *testing.T) {
	src := `<?xml version="1.0" encoding="UTF-8"?>
<PcGts xmlns="http://schema.primaresearch.org/PAGE/gts/pagecontent/2019-07-15">
  <Page imageFilename="p.png" imageWidth="100" imageHeight="100">
    <TextRegion id="r1" type="heading" custom="readingOrder {index:3;}">
      <Coords points="0,0 5,0 5,5"/>
    </TextRegion>
    <SeparatorRegion id="s1"><Coords points="0,0 1,1"/></SeparatorRegion>
    <TableRegion id="t1"><Coords points="1,1 9,1 9,9 1,9"/></TableRegion>
  </Page>
</PcGts>`

	doc, err := Decode(strings.NewReader(src))
	require.NoError(t, err)

	regions, err := doc.LayoutRegions()
	require.NoError(t, err)
	require.Len(t, regions, 2)

	assert.Equal(t, "r1", regions[0].ID)
	assert.Equal(t, "heading", regions[0].TextType)
	assert.Equal(t, 3, regions[0].ReadingOrderIndex)

	assert.Equal(t, models.KindTable, regions[1].Kind)
	assert.Equal(t, models.ClassTable, regions[1].ClassName)
	assert.Equal(t, -1, regions[1].ReadingOrderIndex)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(strings.NewReader("<PcGts><Page>"))
	assert.Error(t, err)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.xml"))
	assert.Error(t, err)

	doc, err := Decode(strings.NewReader(`<PcGts><Page><TextRegion id="x"><Coords points="1;2"/></TextRegion></Page></PcGts>`))
	require.NoError(t, err)
	_, err = doc.LayoutRegions()
	assert.Error(t, err)
}
