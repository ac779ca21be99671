package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBox_EmptyInverted(t *testing.T) {
	tests := []struct {
		name     string
		box      Box
		empty    bool
		inverted bool
	}{
		{name: "regular", box: NewBox(0, 0, 10, 10)},
		{name: "zero height", box: NewBox(5, 0, 5, 10), empty: true},
		{name: "inverted rows", box: NewBox(11, 0, 9, 10), empty: true, inverted: true},
		{name: "inverted cols", box: NewBox(0, 8, 10, 2), empty: true, inverted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.empty, tt.box.Empty())
			assert.Equal(t, tt.inverted, tt.box.Inverted())
		})
	}
}

func TestBox_CanonAndClamp(t *testing.T) {
	assert.Equal(t, NewBox(9, 2, 11, 8), NewBox(11, 8, 9, 2).Canon())
	assert.Equal(t, NewBox(0, 0, 20, 15), NewBox(-5, -3, 40, 15).Clamp(20, 30))
	assert.Equal(t, NewBox(3, 4, 5, 6), NewBox(5, 6, 3, 4).Clamp(20, 30))
}

func TestBox_Extend(t *testing.T) {
	b := NewBox(10, 10, 20, 20)

	assert.False(t, b.Extend(15, 15), "pixel already covered")
	assert.True(t, b.Extend(25, 5))
	assert.Equal(t, NewBox(10, 5, 26, 20), b)
	assert.True(t, b.Contains(25, 5))
	assert.False(t, b.Contains(26, 5), "max bounds are exclusive")
}
