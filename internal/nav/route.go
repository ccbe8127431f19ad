package nav

import (
	"context"
	"fmt"

	"github.com/udisondev/flowtiles/internal/field"
	"github.com/udisondev/flowtiles/internal/portal"
)

// RouteKey identifies one route request by its endpoints.
type RouteKey struct {
	SrcSector  field.SectorID
	SrcCell    field.FieldCell
	GoalSector field.SectorID
	GoalCell   field.FieldCell
}

func (k RouteKey) String() string {
	return fmt.Sprintf("%d,%d:%d,%d->%d,%d:%d,%d",
		k.SrcSector.Column, k.SrcSector.Row, k.SrcCell.Column, k.SrcCell.Row,
		k.GoalSector.Column, k.GoalSector.Row, k.GoalCell.Column, k.GoalCell.Row)
}

// SectorFlow is one link of a route's sector chain.
type SectorFlow struct {
	Sector field.SectorID
	Flow   *field.FlowField
}

// Route is a materialized navigation plan: the ordered chain of flow
// fields from the source sector to the goal sector.
type Route struct {
	Key   RouteKey
	Chain []SectorFlow
}

// FlowAt returns the flow field for a sector of the chain. When a route
// traverses a sector more than once the entry nearest the source wins.
func (r *Route) FlowAt(id field.SectorID) (*field.FlowField, bool) {
	for _, sf := range r.Chain {
		if sf.Sector == id {
			return sf.Flow, true
		}
	}
	return nil, false
}

// RouteHandle is the promise-style result of a route request. Consumers
// poll Ready or block on Done; the route is immutable once built.
type RouteHandle struct {
	key   RouteKey
	done  chan struct{}
	route *Route
	err   error
}

func newHandle(key RouteKey) *RouteHandle {
	return &RouteHandle{key: key, done: make(chan struct{})}
}

// Key returns the route identity.
func (h *RouteHandle) Key() RouteKey {
	return h.key
}

// Done is closed once the build finished or failed.
func (h *RouteHandle) Done() <-chan struct{} {
	return h.done
}

// Ready reports whether the route is no longer pending.
func (h *RouteHandle) Ready() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Route blocks until the build finishes and returns the result.
func (h *RouteHandle) Route() (*Route, error) {
	<-h.done
	return h.route, h.err
}

// SampleDirection reads the built flow field at a cell. Returns false
// while the route is pending, for sectors outside the chain, and for
// cells without a direction (the goal cell, impassable or unreachable
// cells).
func (h *RouteHandle) SampleDirection(id field.SectorID, c field.FieldCell) (field.Ordinal, uint8, bool) {
	if !h.Ready() || h.err != nil || !field.CellInBounds(c) {
		return 0, 0, false
	}
	flow, ok := h.route.FlowAt(id)
	if !ok {
		return 0, 0, false
	}
	o, ok := flow.Direction(c)
	if !ok {
		return 0, flow.Flags(c), false
	}
	return o, flow.Flags(c), true
}

func (h *RouteHandle) complete(route *Route, err error) {
	h.route = route
	h.err = err
	close(h.done)
}

// RequestRoute plans a route from a source cell to a goal cell.
// Coordinate and impassability problems surface synchronously; NoPath
// and cancellation surface through the handle. Cached routes resolve
// immediately, and concurrent requests for the same key share one
// in-flight build.
func (w *World) RequestRoute(ctx context.Context, srcSector field.SectorID, srcCell field.FieldCell, goalSector field.SectorID, goalCell field.FieldCell) (*RouteHandle, error) {
	if !w.grid.Contains(srcSector) || !field.CellInBounds(srcCell) {
		return nil, fmt.Errorf("route source %v/%v: %w", srcSector, srcCell, ErrOutOfBounds)
	}
	if !w.grid.Contains(goalSector) || !field.CellInBounds(goalCell) {
		return nil, fmt.Errorf("route goal %v/%v: %w", goalSector, goalCell, ErrOutOfBounds)
	}

	key := RouteKey{SrcSector: srcSector, SrcCell: srcCell, GoalSector: goalSector, GoalCell: goalCell}
	handle := newHandle(key)

	w.mu.RLock()
	if w.costs[srcSector].Get(srcCell) == field.CostImpassable {
		w.mu.RUnlock()
		return nil, fmt.Errorf("route source %v/%v: %w", srcSector, srcCell, ErrImpassable)
	}
	if w.costs[goalSector].Get(goalCell) == field.CostImpassable {
		w.mu.RUnlock()
		return nil, fmt.Errorf("route goal %v/%v: %w", goalSector, goalCell, ErrImpassable)
	}
	w.mu.RUnlock()

	if route, ok := w.cache.get(key); ok {
		handle.complete(route, nil)
		return handle, nil
	}

	go func() {
		result, err, _ := w.builds.Do(key.String(), func() (any, error) {
			return w.buildRoute(ctx, key)
		})
		if err != nil {
			handle.complete(nil, err)
			return
		}
		handle.complete(result.(*Route), nil)
	}()

	return handle, nil
}

// buildRoute runs the full pipeline for one key: portal graph query,
// back-to-front integration fields along the sector chain, flow field
// derivation, cache insertion. The read lock spans the whole build so a
// route always reflects one consistent world state.
func (w *World) buildRoute(ctx context.Context, key RouteKey) (*Route, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	view := costView{w}
	path, ok := w.graph.Path(
		portal.Pos{Sector: key.SrcSector, Cell: key.SrcCell},
		portal.Pos{Sector: key.GoalSector, Cell: key.GoalCell},
		view,
	)
	if !ok {
		return nil, fmt.Errorf("route %v: %w", key, ErrNoPath)
	}

	links, err := w.chainLinks(path, key.GoalCell)
	if err != nil {
		return nil, err
	}

	// Goal sector first, then each predecessor back along the chain.
	// Integration fields are build-local and dropped after derivation.
	route := &Route{Key: key, Chain: make([]SectorFlow, len(links))}
	integ := field.NewIntegrationField()
	for i := len(links) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("route %v: %w", key, ErrCancelled)
		}

		link := links[i]
		costs := w.costs[link.sector]
		integ.Calculate(link.goal.Cells, costs)

		flow := field.NewFlowField()
		flow.Calculate(link.goal, integ, costs)
		if link.goal.Terminal && w.los {
			flow.ApplyLineOfSight(key.GoalCell, costs)
		}
		route.Chain[i] = SectorFlow{Sector: link.sector, Flow: flow}
	}

	w.cache.put(route)
	return route, nil
}

// chainLink is one sector of the route with the goal set its flow field
// steers toward.
type chainLink struct {
	sector field.SectorID
	goal   field.Goal
}

// chainLinks turns a portal crossing sequence into per-sector build
// work. Every sector the route passes through exits via a portal whose
// full pathable run becomes the goal set; the final sector gets the
// true goal.
func (w *World) chainLinks(path []portal.Pos, goalCell field.FieldCell) ([]chainLink, error) {
	var links []chainLink

	current := path[0].Sector
	for i := 0; i+1 < len(path); i++ {
		if path[i+1].Sector == current {
			continue
		}
		// path[i] is the exit portal of the current sector.
		p, ok := w.graph.PortalAt(path[i])
		if !ok {
			return nil, fmt.Errorf("crossing at %v/%v has no portal: %w",
				path[i].Sector, path[i].Cell, portal.ErrInconsistent)
		}
		links = append(links, chainLink{
			sector: current,
			goal:   field.PortalGoal(p.RunCells(), p.Boundary),
		})
		current = path[i+1].Sector
	}

	links = append(links, chainLink{
		sector: current,
		goal:   field.TerminalGoal(goalCell),
	})
	return links, nil
}
