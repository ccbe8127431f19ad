package field

// Flag bits in the high nibble of a FlowField cell.
const (
	FlagPathable    uint8 = 0b0001_0000
	FlagLineOfSight uint8 = 0b0010_0000
	FlagGoal        uint8 = 0b0100_0000
	FlagPortalGoal  uint8 = 0b1000_0000
)

// Goal describes what a sector's flow field steers toward: the route's
// true goal cell, or the expanded portal run leading to the next sector.
type Goal struct {
	Cells    []FieldCell
	Boundary Ordinal // boundary the portal run lies on; unused when Terminal
	Terminal bool    // true when Cells holds the route's true goal
}

// TerminalGoal is the goal of the route's final sector.
func TerminalGoal(c FieldCell) Goal {
	return Goal{Cells: []FieldCell{c}, Terminal: true}
}

// PortalGoal is the expanded portal run a non-terminal sector exits through.
func PortalGoal(cells []FieldCell, boundary Ordinal) Goal {
	return Goal{Cells: cells, Boundary: boundary}
}

// FlowField is the per-sector direction and flag layer derived from an
// IntegrationField. Low nibble encodes the ordinal, high nibble the flags.
// Indexed [column][row].
type FlowField [Resolution][Resolution]uint8

// NewFlowField creates a field with every cell at the unset sentinel.
func NewFlowField() *FlowField {
	f := &FlowField{}
	for i := range f {
		for j := range f[i] {
			f[i][j] = DirSentinel
		}
	}
	return f
}

// Get returns the raw encoded byte at the given cell.
func (f *FlowField) Get(c FieldCell) uint8 {
	return f[c.Column][c.Row]
}

// Direction decodes the ordinal at the given cell.
// Returns false for the zero vector and the unset sentinel.
func (f *FlowField) Direction(c FieldCell) (Ordinal, bool) {
	return OrdinalFromBits(f[c.Column][c.Row])
}

// Flags returns the high-nibble flag bits at the given cell.
func (f *FlowField) Flags(c FieldCell) uint8 {
	return f[c.Column][c.Row] & 0xF0
}

// Calculate derives the flow directions and flags for every cell from an
// already built IntegrationField.
//
// Impassable cells get the zero vector with no flags. Goal-set cells get
// the goal flag (terminal) or the portal-goal flag plus the boundary
// direction (non-terminal, steering across into the next sector). Every
// other cell points at its cheapest ordinal neighbour; cardinals win ties
// and a diagonal is eligible only when both of its orthogonal component
// cells are passable.
func (f *FlowField) Calculate(goal Goal, integ *IntegrationField, costs *CostField) {
	inGoal := [Resolution][Resolution]bool{}
	for _, c := range goal.Cells {
		inGoal[c.Column][c.Row] = true
	}

	for col := 0; col < Resolution; col++ {
		for row := 0; row < Resolution; row++ {
			c := FieldCell{Column: col, Row: row}

			if !costs.Passable(c) {
				f[col][row] = DirZero
				continue
			}

			if inGoal[col][row] {
				if goal.Terminal {
					f[col][row] = DirZero | FlagPathable | FlagGoal
				} else {
					f[col][row] = goal.Boundary.Bits() | FlagPathable | FlagPortalGoal
				}
				continue
			}

			f[col][row] = f.bestDirection(c, integ, costs) | FlagPathable
		}
	}
}

// bestDirection picks the neighbour with the lowest integrated cost,
// strictly below the cell's own. Returns the zero vector when the cell is
// unreachable from the goal set.
func (f *FlowField) bestDirection(c FieldCell, integ *IntegrationField, costs *CostField) uint8 {
	own := integ.Get(c)
	best := own
	bits := DirZero

	for _, o := range TieBreakOrder {
		n, ok := CellNeighbour(c, o)
		if !ok {
			continue
		}
		if o.IsDiagonal() && !f.diagonalValid(c, o, costs) {
			continue
		}
		if v := integ.Get(n); v < best {
			best = v
			bits = o.Bits()
		}
	}
	return bits
}

// diagonalValid reports whether both orthogonal components of a diagonal
// step are passable, preventing corner cutting.
func (f *FlowField) diagonalValid(c FieldCell, o Ordinal, costs *CostField) bool {
	a, b := o.Components()
	na, ok := CellNeighbour(c, a)
	if !ok || !costs.Passable(na) {
		return false
	}
	nb, ok := CellNeighbour(c, b)
	if !ok || !costs.Passable(nb) {
		return false
	}
	return true
}

// ApplyLineOfSight sets the line-of-sight flag on every pathable cell
// whose straight grid line to the goal crosses no impassable cell.
// Only meaningful for the route's terminal sector.
func (f *FlowField) ApplyLineOfSight(goal FieldCell, costs *CostField) {
	for col := 0; col < Resolution; col++ {
		for row := 0; row < Resolution; row++ {
			c := FieldCell{Column: col, Row: row}
			if f[col][row]&FlagPathable == 0 {
				continue
			}
			if lineClear(c, goal, costs) {
				f[col][row] |= FlagLineOfSight
			}
		}
	}
}

// lineClear walks the Bresenham line from a to b and reports whether
// every cell on it is passable.
func lineClear(a, b FieldCell, costs *CostField) bool {
	it := NewLineIterator(a, b)
	for it.Next() {
		if !costs.Passable(it.Cell()) {
			return false
		}
	}
	return true
}
