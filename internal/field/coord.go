package field

// Resolution is the fixed width and height of a sector in cells.
const Resolution = 10

// SectorID identifies one sector as (column, row) in the sector grid.
type SectorID struct {
	Column uint32
	Row    uint32
}

// FieldCell is a cell position within a sector, each axis in [0, Resolution).
type FieldCell struct {
	Column int
	Row    int
}

// CellInBounds reports whether the cell lies inside a sector.
func CellInBounds(c FieldCell) bool {
	return c.Column >= 0 && c.Column < Resolution && c.Row >= 0 && c.Row < Resolution
}

// Grid holds the fixed extent of the world in sectors and provides the
// coordinate math between world cells, sectors and field cells.
type Grid struct {
	Columns uint32
	Rows    uint32
}

// NewGrid creates a grid of the given sector extent.
func NewGrid(columns, rows uint32) Grid {
	return Grid{Columns: columns, Rows: rows}
}

// Contains reports whether the sector ID lies inside the world.
func (g Grid) Contains(id SectorID) bool {
	return id.Column < g.Columns && id.Row < g.Rows
}

// SectorCellAt converts world cell coordinates (x, z) into the owning
// sector and the field cell within it. Returns false outside the world.
func (g Grid) SectorCellAt(x, z int) (SectorID, FieldCell, bool) {
	if x < 0 || z < 0 || x >= int(g.Columns)*Resolution || z >= int(g.Rows)*Resolution {
		return SectorID{}, FieldCell{}, false
	}
	id := SectorID{Column: uint32(x / Resolution), Row: uint32(z / Resolution)}
	cell := FieldCell{Column: x % Resolution, Row: z % Resolution}
	return id, cell, true
}

// WorldCell converts a sector and field cell back to world cell coordinates.
func (g Grid) WorldCell(id SectorID, c FieldCell) (x, z int) {
	return int(id.Column)*Resolution + c.Column, int(id.Row)*Resolution + c.Row
}

// SectorNeighbour returns the sector adjacent in the given direction.
// Returns false at the world edge.
func (g Grid) SectorNeighbour(id SectorID, o Ordinal) (SectorID, bool) {
	dc, dr := o.Offset()
	col := int(id.Column) + dc
	row := int(id.Row) + dr
	if col < 0 || row < 0 || col >= int(g.Columns) || row >= int(g.Rows) {
		return SectorID{}, false
	}
	return SectorID{Column: uint32(col), Row: uint32(row)}, true
}

// SectorNeighbours returns the cardinal neighbours of a sector in
// N, E, S, W order, skipping directions that leave the world.
func (g Grid) SectorNeighbours(id SectorID) []SectorID {
	out := make([]SectorID, 0, 4)
	for _, o := range Cardinals {
		if n, ok := g.SectorNeighbour(id, o); ok {
			out = append(out, n)
		}
	}
	return out
}

// SectorNeighbourLink pairs a neighbouring sector with the direction it
// lies in from the current sector.
type SectorNeighbourLink struct {
	Ordinal Ordinal
	Sector  SectorID
}

// SectorNeighboursWithOrdinal returns the cardinal neighbours of a sector
// together with the direction each one lies in, in N, E, S, W order.
func (g Grid) SectorNeighboursWithOrdinal(id SectorID) []SectorNeighbourLink {
	out := make([]SectorNeighbourLink, 0, 4)
	for _, o := range Cardinals {
		if n, ok := g.SectorNeighbour(id, o); ok {
			out = append(out, SectorNeighbourLink{Ordinal: o, Sector: n})
		}
	}
	return out
}

// CellNeighbour returns the neighbouring cell within the same sector.
// Returns false when the step leaves the sector boundary.
func CellNeighbour(c FieldCell, o Ordinal) (FieldCell, bool) {
	dc, dr := o.Offset()
	n := FieldCell{Column: c.Column + dc, Row: c.Row + dr}
	if !CellInBounds(n) {
		return FieldCell{}, false
	}
	return n, true
}

// CellNeighbourCrossing returns the neighbouring cell for a step that may
// cross into an adjacent sector. Returns false when the step leaves the world.
func (g Grid) CellNeighbourCrossing(id SectorID, c FieldCell, o Ordinal) (SectorID, FieldCell, bool) {
	x, z := g.WorldCell(id, c)
	dc, dr := o.Offset()
	return g.SectorCellAt(x+dc, z+dr)
}

// BoundaryCell returns the i-th cell along the given boundary of a sector.
// Cells are indexed 0..Resolution-1 left to right (N/S) or top to bottom (E/W).
func BoundaryCell(boundary Ordinal, i int) FieldCell {
	switch boundary {
	case North:
		return FieldCell{Column: i, Row: 0}
	case East:
		return FieldCell{Column: Resolution - 1, Row: i}
	case South:
		return FieldCell{Column: i, Row: Resolution - 1}
	default: // West
		return FieldCell{Column: 0, Row: i}
	}
}

// MirroredBoundaryCell returns the cell in the neighbouring sector that
// touches the i-th boundary cell across the given boundary.
func MirroredBoundaryCell(boundary Ordinal, i int) FieldCell {
	return BoundaryCell(boundary.Opposite(), i)
}

// BoundaryIndex returns the position of a boundary cell along its boundary.
func BoundaryIndex(boundary Ordinal, c FieldCell) int {
	switch boundary {
	case North, South:
		return c.Column
	default:
		return c.Row
	}
}
