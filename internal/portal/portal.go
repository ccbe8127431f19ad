// Package portal derives boundary crossing points between sectors and
// maintains the navigable graph over them.
package portal

import (
	"github.com/udisondev/flowtiles/internal/field"
)

// CostSource provides per-sector cost fields to the portal layer.
type CostSource interface {
	CostField(id field.SectorID) *field.CostField
}

// Pos identifies a portal by its sector and boundary cell.
// Portal pairs reference each other through Pos values rather than
// structural links, which keeps incremental repair free of cycles.
type Pos struct {
	Sector field.SectorID
	Cell   field.FieldCell
}

// Portal is a pathable crossing point on a sector boundary. It sits at
// the midpoint of a maximal run of cells that are passable on both sides
// of the boundary; the run bounds are kept for goal-set expansion.
type Portal struct {
	Cell     field.FieldCell
	Boundary field.Ordinal
	RunStart int
	RunEnd   int
}

// RunCells returns every cell of the portal's pathable run along its
// boundary, in this sector.
func (p Portal) RunCells() []field.FieldCell {
	cells := make([]field.FieldCell, 0, p.RunEnd-p.RunStart+1)
	for i := p.RunStart; i <= p.RunEnd; i++ {
		cells = append(cells, field.BoundaryCell(p.Boundary, i))
	}
	return cells
}

// PairPos returns the paired portal's position in the neighbouring
// sector, at the mirrored boundary cell.
func (p Portal) PairPos(g field.Grid, own field.SectorID) (Pos, bool) {
	n, ok := g.SectorNeighbour(own, p.Boundary)
	if !ok {
		return Pos{}, false
	}
	idx := field.BoundaryIndex(p.Boundary, p.Cell)
	return Pos{Sector: n, Cell: field.MirroredBoundaryCell(p.Boundary, idx)}, true
}

// SectorPortals holds one sector's portals grouped by boundary.
// Indexed by the cardinal ordinals North..West.
type SectorPortals struct {
	Boundaries [4][]Portal
}

// All returns the sector's portals across all four boundaries.
func (sp SectorPortals) All() []Portal {
	var out []Portal
	for _, ps := range sp.Boundaries {
		out = append(out, ps...)
	}
	return out
}

// At returns the portal whose boundary cell matches, if any.
func (sp SectorPortals) At(c field.FieldCell) (Portal, bool) {
	for _, ps := range sp.Boundaries {
		for _, p := range ps {
			if p.Cell == c {
				return p, true
			}
		}
	}
	return Portal{}, false
}

// BuildSectorPortals derives all portals of one sector from its cost
// field and the edge cells of its neighbours. Boundaries facing the
// world edge produce no portals.
func BuildSectorPortals(g field.Grid, id field.SectorID, costs CostSource) SectorPortals {
	sp := SectorPortals{}
	own := costs.CostField(id)
	if own == nil {
		return sp
	}

	for _, b := range field.Cardinals {
		n, ok := g.SectorNeighbour(id, b)
		if !ok {
			continue
		}
		neighbour := costs.CostField(n)
		if neighbour == nil {
			continue
		}
		sp.Boundaries[b] = buildBoundary(own, neighbour, b)
	}
	return sp
}

// buildBoundary scans one boundary for maximal runs of cell pairs that
// are passable on both sides and emits a portal at each run's midpoint
// (lower index on even-length ties).
func buildBoundary(own, neighbour *field.CostField, b field.Ordinal) []Portal {
	var portals []Portal
	runStart := -1

	flush := func(end int) {
		if runStart < 0 {
			return
		}
		mid := (runStart + end) / 2
		portals = append(portals, Portal{
			Cell:     field.BoundaryCell(b, mid),
			Boundary: b,
			RunStart: runStart,
			RunEnd:   end,
		})
		runStart = -1
	}

	for i := 0; i < field.Resolution; i++ {
		pathable := own.Passable(field.BoundaryCell(b, i)) &&
			neighbour.Passable(field.MirroredBoundaryCell(b, i))
		if pathable {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		flush(i - 1)
	}
	flush(field.Resolution - 1)

	return portals
}
