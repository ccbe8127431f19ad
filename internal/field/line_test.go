package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func collectLine(a, b FieldCell) []FieldCell {
	var cells []FieldCell
	it := NewLineIterator(a, b)
	for it.Next() {
		cells = append(cells, it.Cell())
	}
	return cells
}

func TestLineIteratorStraight(t *testing.T) {
	cells := collectLine(FieldCell{0, 3}, FieldCell{4, 3})
	want := []FieldCell{{0, 3}, {1, 3}, {2, 3}, {3, 3}, {4, 3}}
	assert.Equal(t, want, cells)
}

func TestLineIteratorDiagonal(t *testing.T) {
	cells := collectLine(FieldCell{0, 0}, FieldCell{3, 3})
	want := []FieldCell{{0, 0}, {1, 1}, {2, 2}, {3, 3}}
	assert.Equal(t, want, cells)
}

func TestLineIteratorReverse(t *testing.T) {
	cells := collectLine(FieldCell{4, 3}, FieldCell{0, 3})
	want := []FieldCell{{4, 3}, {3, 3}, {2, 3}, {1, 3}, {0, 3}}
	assert.Equal(t, want, cells)
}

func TestLineIteratorSingleCell(t *testing.T) {
	cells := collectLine(FieldCell{5, 5}, FieldCell{5, 5})
	assert.Equal(t, []FieldCell{{5, 5}}, cells)
}

func TestLineIteratorEndpointsAlwaysIncluded(t *testing.T) {
	a := FieldCell{1, 8}
	b := FieldCell{7, 2}
	cells := collectLine(a, b)
	assert.Equal(t, a, cells[0])
	assert.Equal(t, b, cells[len(cells)-1])
}
