// Package nav owns the navigable world state: the cost field store, the
// portal graph repaired on every mutation, and the route planner with
// its flow-field cache.
package nav

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/udisondev/flowtiles/internal/config"
	"github.com/udisondev/flowtiles/internal/field"
	"github.com/udisondev/flowtiles/internal/portal"
)

// World encapsulates all process-wide navigation state behind one value
// with an explicit lifecycle. Cost fields and the portal graph follow a
// single-writer many-readers discipline: mutations and graph repair run
// under the write lock, route builds and queries under read locks.
type World struct {
	mu    sync.RWMutex
	grid  field.Grid
	costs map[field.SectorID]*field.CostField
	graph *portal.Graph

	cache  *routeCache
	builds singleflight.Group

	los bool
}

// costView adapts the world's cost store to the portal layer.
// Callers hold the world lock for the duration of the portal call.
type costView struct {
	w *World
}

func (v costView) CostField(id field.SectorID) *field.CostField {
	return v.w.costs[id]
}

// New creates a world of the given sector extent with every cell at the
// default cost, and builds the initial portal graph.
func New(columns, rows uint32, cfg config.Engine) (*World, error) {
	grid := field.NewGrid(columns, rows)

	conn := portal.EightWay
	if cfg.Connectivity == "four" {
		conn = portal.FourWay
	}

	capacity := cfg.CacheCapacity
	if capacity <= 0 {
		capacity = config.DefaultEngine().CacheCapacity
	}

	w := &World{
		grid:  grid,
		costs: make(map[field.SectorID]*field.CostField, columns*rows),
		graph: portal.NewGraph(grid, conn),
		cache: newRouteCache(capacity),
		los:   cfg.LineOfSight,
	}

	for col := uint32(0); col < columns; col++ {
		for row := uint32(0); row < rows; row++ {
			w.costs[field.SectorID{Column: col, Row: row}] = field.NewCostField()
		}
	}
	if err := w.rebuildAll(); err != nil {
		return nil, err
	}

	slog.Info("world created", "sector_columns", columns, "sector_rows", rows)
	return w, nil
}

// Grid returns the world's sector extent.
func (w *World) Grid() field.Grid {
	return w.grid
}

// Cost returns the traversal cost at a cell.
func (w *World) Cost(id field.SectorID, c field.FieldCell) (uint8, error) {
	if !w.grid.Contains(id) || !field.CellInBounds(c) {
		return 0, fmt.Errorf("cost at %v/%v: %w", id, c, ErrOutOfBounds)
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.costs[id].Get(c), nil
}

// CostFieldCopy returns a snapshot of one sector's cost field.
func (w *World) CostFieldCopy(id field.SectorID) (field.CostField, error) {
	if !w.grid.Contains(id) {
		return field.CostField{}, fmt.Errorf("cost field %v: %w", id, ErrOutOfBounds)
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return *w.costs[id], nil
}

// MutationEvent describes one cost mutation and the sectors whose
// portals were rebuilt because of it.
type MutationEvent struct {
	Sector  field.SectorID
	Cell    field.FieldCell
	Value   uint8
	Rebuilt []field.SectorID
}

// SetCost writes one cost cell. It is the only entry point that changes
// cost: the write, the portal rebuild of the affected sectors and the
// cache invalidation complete atomically under the write lock before
// any later route request runs. Setting a cell to its current value is
// a no-op.
func (w *World) SetCost(id field.SectorID, c field.FieldCell, v uint8) (MutationEvent, error) {
	if !w.grid.Contains(id) || !field.CellInBounds(c) {
		return MutationEvent{}, fmt.Errorf("set cost at %v/%v: %w", id, c, ErrOutOfBounds)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.costs[id].Get(c) == v {
		return MutationEvent{Sector: id, Cell: c, Value: v}, nil
	}
	w.costs[id].Set(c, v)

	rebuilt := w.affectedSectors(id, c)
	for _, s := range rebuilt {
		if err := w.graph.RebuildSector(s, costView{w}); err != nil {
			return MutationEvent{}, fmt.Errorf("repairing portals after mutation in %v: %w", id, err)
		}
	}
	dropped := w.cache.invalidateSectors(rebuilt)

	slog.Debug("cost mutated", "sector", id, "cell", c, "value", v,
		"rebuilt", len(rebuilt), "routes_dropped", dropped)

	return MutationEvent{Sector: id, Cell: c, Value: v, Rebuilt: rebuilt}, nil
}

// affectedSectors returns the mutated sector plus every neighbour whose
// shared boundary holds the mutated cell.
func (w *World) affectedSectors(id field.SectorID, c field.FieldCell) []field.SectorID {
	out := []field.SectorID{id}

	check := func(onBoundary bool, o field.Ordinal) {
		if !onBoundary {
			return
		}
		if n, ok := w.grid.SectorNeighbour(id, o); ok {
			out = append(out, n)
		}
	}
	check(c.Row == 0, field.North)
	check(c.Column == field.Resolution-1, field.East)
	check(c.Row == field.Resolution-1, field.South)
	check(c.Column == 0, field.West)

	return out
}

// LoadCostField replaces one sector's cost field and repairs the
// portals of the sector and its neighbours.
func (w *World) LoadCostField(id field.SectorID, cells [field.Resolution][field.Resolution]uint8) error {
	if !w.grid.Contains(id) {
		return fmt.Errorf("load cost field %v: %w", id, ErrOutOfBounds)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.costs[id] = field.CostFieldFrom(cells)

	rebuilt := append([]field.SectorID{id}, w.grid.SectorNeighbours(id)...)
	for _, s := range rebuilt {
		if err := w.graph.RebuildSector(s, costView{w}); err != nil {
			return fmt.Errorf("repairing portals after loading %v: %w", id, err)
		}
	}
	w.cache.invalidateSectors(rebuilt)
	return nil
}

// LoadCostFieldsBulk replaces many sectors' cost fields at once and
// rebuilds the whole portal graph in one pass.
func (w *World) LoadCostFieldsBulk(fields map[field.SectorID]*field.CostField) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, f := range fields {
		if !w.grid.Contains(id) {
			return fmt.Errorf("load cost field %v: %w", id, ErrOutOfBounds)
		}
		w.costs[id] = f
	}
	w.cache.clear()
	return w.rebuildAllLocked()
}

// LoadCostFieldDir loads every per-sector cost field file from a
// directory. File naming convention: "<column>_<row>.yaml".
func (w *World) LoadCostFieldDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading cost field dir %s: %w", dir, err)
	}

	fields := make(map[field.SectorID]*field.CostField)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("reading cost field %s: %w", entry.Name(), err)
		}
		id, f, err := field.ParseCostFieldFile(data)
		if err != nil {
			return fmt.Errorf("parsing cost field %s: %w", entry.Name(), err)
		}
		if !w.grid.Contains(id) {
			slog.Warn("skip cost field file (sector out of range)", "file", entry.Name(), "sector", id)
			continue
		}
		fields[id] = f
	}

	if err := w.LoadCostFieldsBulk(fields); err != nil {
		return err
	}
	slog.Info("cost fields loaded", "sectors", len(fields), "dir", dir)
	return nil
}

// Portals returns the current portals of a sector.
func (w *World) Portals(id field.SectorID) portal.SectorPortals {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.graph.SectorPortals(id)
}

// GraphNodeCount returns the number of live portal nodes.
func (w *World) GraphNodeCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.graph.NodeCount()
}

func (w *World) rebuildAll() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rebuildAllLocked()
}

func (w *World) rebuildAllLocked() error {
	for col := uint32(0); col < w.grid.Columns; col++ {
		for row := uint32(0); row < w.grid.Rows; row++ {
			id := field.SectorID{Column: col, Row: row}
			if err := w.graph.RebuildSector(id, costView{w}); err != nil {
				return fmt.Errorf("building portal graph at %v: %w", id, err)
			}
		}
	}
	return nil
}
