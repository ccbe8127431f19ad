package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCostFieldDefaults(t *testing.T) {
	f := NewCostField()
	for col := 0; col < Resolution; col++ {
		for row := 0; row < Resolution; row++ {
			c := FieldCell{Column: col, Row: row}
			assert.Equal(t, CostDefault, f.Get(c))
			assert.True(t, f.Passable(c))
		}
	}
}

func TestCostFieldSetGet(t *testing.T) {
	f := NewCostField()
	c := FieldCell{Column: 2, Row: 8}

	f.Set(c, 200)
	assert.Equal(t, uint8(200), f.Get(c))
	assert.True(t, f.Passable(c))

	f.Set(c, CostImpassable)
	assert.False(t, f.Passable(c))
}

func TestCostFieldFrom(t *testing.T) {
	var cells [Resolution][Resolution]uint8
	cells[3][7] = 99

	f := CostFieldFrom(cells)
	assert.Equal(t, uint8(99), f.Get(FieldCell{Column: 3, Row: 7}))
	assert.Equal(t, uint8(0), f.Get(FieldCell{Column: 0, Row: 0}))
}
