package images

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rect(x0, y0, x1, y1 int) []image.Point {
	return []image.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

func TestIntersectPolygons_Overlap(t *testing.T) {
	parts, err := IntersectPolygons(rect(0, 0, 10, 10), rect(5, 0, 15, 10))
	require.NoError(t, err)
	require.Len(t, parts, 1)

	assert.ElementsMatch(t, rect(5, 0, 10, 10), parts[0])
}

func TestIntersectPolygons_Disjoint(t *testing.T) {
	parts, err := IntersectPolygons(rect(0, 0, 10, 10), rect(20, 20, 30, 30))
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestIntersectPolygons_NegativeCoordinates(t *testing.T) {
	parts, err := IntersectPolygons(rect(-20, -20, -5, -5), rect(-10, -10, 10, 10))
	require.NoError(t, err)
	require.Len(t, parts, 1)

	assert.ElementsMatch(t, rect(-10, -10, -5, -5), parts[0])
}

func TestIntersectPolygons_LargestPartFirst(t *testing.T) {
	// A U-shaped frame with a notch at x 10..15 splits the bar in two.
	frame := []image.Point{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 15, Y: 10},
		{X: 15, Y: 0}, {X: 30, Y: 0}, {X: 30, Y: 20}, {X: 0, Y: 20},
	}
	bar := rect(0, 2, 30, 4)

	parts, err := IntersectPolygons(bar, frame)
	require.NoError(t, err)
	require.Len(t, parts, 2)

	assert.GreaterOrEqual(t, PolygonArea(parts[0]), PolygonArea(parts[1]))
	for _, p := range parts[0] {
		assert.GreaterOrEqual(t, p.X, 15)
	}
	for _, part := range parts {
		for _, p := range part {
			assert.True(t, PolygonContains(frame, p))
		}
	}
}

func TestIntersectPolygons_SlantedFrame(t *testing.T) {
	tests := []struct {
		name  string
		frame []image.Point
	}{
		{name: "shallow triangle", frame: []image.Point{{X: 0, Y: 0}, {X: 30, Y: 10}, {X: 0, Y: 10}}},
		{name: "skewed page", frame: []image.Point{{X: 5, Y: 0}, {X: 40, Y: 3}, {X: 37, Y: 40}, {X: 0, Y: 33}}},
		{
			name:  "concave",
			frame: []image.Point{{X: 0, Y: 0}, {X: 40, Y: 7}, {X: 18, Y: 20}, {X: 40, Y: 40}, {X: 3, Y: 37}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts, err := IntersectPolygons(rect(0, 0, 40, 40), tt.frame)
			require.NoError(t, err)
			require.NotEmpty(t, parts)

			for _, part := range parts {
				for _, p := range part {
					assert.True(t, PolygonContains(tt.frame, p), "vertex %v outside frame", p)
				}
			}
		})
	}
}

func TestIntersectPolygons_FrameMuchLargerThanRegion(t *testing.T) {
	frame := rect(-1000000, -1000000, 1000000, 1000000)

	parts, err := IntersectPolygons(rect(10, 20, 30, 25), frame)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.ElementsMatch(t, rect(10, 20, 30, 25), parts[0])
}

func TestPolygonMask_MatchesPolygonContains(t *testing.T) {
	polys := map[string][]image.Point{
		"shallow triangle": {{X: 0, Y: 0}, {X: 30, Y: 10}, {X: 0, Y: 10}},
		"skewed page":      {{X: 5, Y: 0}, {X: 40, Y: 3}, {X: 37, Y: 40}, {X: 0, Y: 33}},
		"concave":          {{X: 0, Y: 0}, {X: 40, Y: 7}, {X: 18, Y: 20}, {X: 40, Y: 40}, {X: 3, Y: 37}},
		"notched":          {{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 15, Y: 10}, {X: 15, Y: 0}, {X: 30, Y: 0}, {X: 30, Y: 20}, {X: 0, Y: 20}},
	}

	origin := image.Pt(-3, -2)
	const rows, cols = 46, 46
	for name, poly := range polys {
		t.Run(name, func(t *testing.T) {
			m := polygonMask(poly, origin, rows, cols)
			for r := 0; r < rows; r++ {
				for c := 0; c < cols; c++ {
					pt := origin.Add(image.Pt(c, r))
					require.Equal(t, PolygonContains(poly, pt), m.At(r, c), "point %v", pt)
				}
			}
		})
	}
}

func TestFloorCeilDiv(t *testing.T) {
	assert.Equal(t, 2, floorDiv(7, 3))
	assert.Equal(t, -3, floorDiv(-7, 3))
	assert.Equal(t, 3, ceilDiv(7, 3))
	assert.Equal(t, -2, ceilDiv(-7, 3))
	assert.Equal(t, -2, floorDiv(-6, 3))
	assert.Equal(t, -2, ceilDiv(-6, 3))
}

func TestIntersectPolygons_TooFewVertices(t *testing.T) {
	_, err := IntersectPolygons([]image.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}, rect(0, 0, 5, 5))
	assert.Error(t, err)
}

func TestPolygonContains(t *testing.T) {
	square := rect(0, 0, 10, 10)

	assert.True(t, PolygonContains(square, image.Pt(5, 5)))
	assert.True(t, PolygonContains(square, image.Pt(10, 5)), "boundary counts as inside")
	assert.False(t, PolygonContains(square, image.Pt(11, 5)))
	assert.False(t, PolygonContains(square[:2], image.Pt(0, 0)))
}

func TestPolygonArea(t *testing.T) {
	assert.InDelta(t, 100.0, PolygonArea(rect(0, 0, 10, 10)), 1e-9)
	assert.Zero(t, PolygonArea(rect(0, 0, 10, 10)[:2]))
}

func TestIsSimplePolygon(t *testing.T) {
	tests := []struct {
		name     string
		poly     []image.Point
		expected bool
	}{
		{name: "square", poly: rect(0, 0, 10, 10), expected: true},
		{name: "too few vertices", poly: rect(0, 0, 10, 10)[:2]},
		{name: "zero area", poly: []image.Point{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0}}},
		{
			name: "pinched",
			poly: []image.Point{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 5, Y: 5}, {X: 0, Y: 10}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsSimplePolygon(tt.poly))
		})
	}
}
