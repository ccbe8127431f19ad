package nav

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/flowtiles/internal/config"
	"github.com/udisondev/flowtiles/internal/field"
)

func newTestWorld(t *testing.T, columns, rows uint32) *World {
	t.Helper()
	w, err := New(columns, rows, config.DefaultEngine())
	require.NoError(t, err)
	return w
}

func waitRoute(t *testing.T, h *RouteHandle) *Route {
	t.Helper()
	route, err := h.Route()
	require.NoError(t, err)
	require.NotNil(t, route)
	return route
}

func TestRouteSingleSector(t *testing.T) {
	w := newTestWorld(t, 1, 1)

	src := field.FieldCell{Column: 0, Row: 0}
	goal := field.FieldCell{Column: 5, Row: 5}
	h, err := w.RequestRoute(context.Background(), field.SectorID{0, 0}, src, field.SectorID{0, 0}, goal)
	require.NoError(t, err)

	route := waitRoute(t, h)
	require.Len(t, route.Chain, 1)

	flow, ok := route.FlowAt(field.SectorID{0, 0})
	require.True(t, ok)
	assert.Equal(t, field.FlagGoal|field.FlagPathable, flow.Get(goal))

	// Every cell's direction descends toward the goal: walking the
	// field from the source terminates at the goal.
	cur := src
	for steps := 0; cur != goal; steps++ {
		require.Less(t, steps, field.Resolution*field.Resolution)
		o, _, ok := h.SampleDirection(field.SectorID{0, 0}, cur)
		require.True(t, ok)
		cur, ok = field.CellNeighbour(cur, o)
		require.True(t, ok)
	}
}

func TestRouteTwoSectorCorridor(t *testing.T) {
	w := newTestWorld(t, 2, 1)

	h, err := w.RequestRoute(context.Background(),
		field.SectorID{0, 0}, field.FieldCell{Column: 0, Row: 5},
		field.SectorID{1, 0}, field.FieldCell{Column: 9, Row: 5})
	require.NoError(t, err)

	route := waitRoute(t, h)
	require.Len(t, route.Chain, 2)
	assert.Equal(t, field.SectorID{0, 0}, route.Chain[0].Sector)
	assert.Equal(t, field.SectorID{1, 0}, route.Chain[1].Sector)

	// The first sector's flow steers east through the portal run; the
	// run cells carry the portal-goal flag and the boundary direction.
	flow := route.Chain[0].Flow
	for row := 0; row < field.Resolution; row++ {
		c := field.FieldCell{Column: 9, Row: row}
		assert.Equal(t, field.DirEast|field.FlagPathable|field.FlagPortalGoal, flow.Get(c))
	}

	o, _, ok := h.SampleDirection(field.SectorID{0, 0}, field.FieldCell{Column: 4, Row: 5})
	require.True(t, ok)
	assert.Equal(t, field.East, o)

	// Goal sector carries the goal flag exactly at the goal cell.
	goalFlow := route.Chain[1].Flow
	for col := 0; col < field.Resolution; col++ {
		for row := 0; row < field.Resolution; row++ {
			c := field.FieldCell{Column: col, Row: row}
			if c == (field.FieldCell{Column: 9, Row: 5}) {
				assert.NotZero(t, goalFlow.Flags(c)&field.FlagGoal)
			} else {
				assert.Zero(t, goalFlow.Flags(c)&field.FlagGoal)
			}
		}
	}
}

func TestRouteNoPath(t *testing.T) {
	w := newTestWorld(t, 2, 1)

	// Seal the shared boundary from both sides.
	for row := 0; row < field.Resolution; row++ {
		_, err := w.SetCost(field.SectorID{0, 0}, field.FieldCell{Column: 9, Row: row}, field.CostImpassable)
		require.NoError(t, err)
	}

	h, err := w.RequestRoute(context.Background(),
		field.SectorID{0, 0}, field.FieldCell{Column: 0, Row: 5},
		field.SectorID{1, 0}, field.FieldCell{Column: 9, Row: 5})
	require.NoError(t, err)

	_, err = h.Route()
	require.ErrorIs(t, err, ErrNoPath)
	assert.Zero(t, w.cache.len(), "failed builds must not populate the cache")
}

func TestRouteErrorsSurfaceSynchronously(t *testing.T) {
	w := newTestWorld(t, 1, 1)

	_, err := w.RequestRoute(context.Background(),
		field.SectorID{3, 3}, field.FieldCell{}, field.SectorID{0, 0}, field.FieldCell{})
	require.ErrorIs(t, err, ErrOutOfBounds)

	_, err = w.RequestRoute(context.Background(),
		field.SectorID{0, 0}, field.FieldCell{Column: 0, Row: 0},
		field.SectorID{0, 0}, field.FieldCell{Column: 20, Row: 0})
	require.ErrorIs(t, err, ErrOutOfBounds)

	_, err = w.SetCost(field.SectorID{0, 0}, field.FieldCell{Column: 4, Row: 4}, field.CostImpassable)
	require.NoError(t, err)
	_, err = w.RequestRoute(context.Background(),
		field.SectorID{0, 0}, field.FieldCell{Column: 4, Row: 4},
		field.SectorID{0, 0}, field.FieldCell{Column: 0, Row: 0})
	require.ErrorIs(t, err, ErrImpassable)
}

func TestRouteCancellation(t *testing.T) {
	w := newTestWorld(t, 2, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h, err := w.RequestRoute(ctx,
		field.SectorID{0, 0}, field.FieldCell{Column: 0, Row: 5},
		field.SectorID{1, 0}, field.FieldCell{Column: 9, Row: 5})
	require.NoError(t, err)

	_, err = h.Route()
	require.ErrorIs(t, err, ErrCancelled)
	assert.Zero(t, w.cache.len(), "cancelled builds must not populate the cache")
}

func TestMutationInvalidatesCachedRoutes(t *testing.T) {
	w := newTestWorld(t, 2, 1)

	h, err := w.RequestRoute(context.Background(),
		field.SectorID{0, 0}, field.FieldCell{Column: 0, Row: 5},
		field.SectorID{1, 0}, field.FieldCell{Column: 9, Row: 5})
	require.NoError(t, err)
	waitRoute(t, h)
	require.Equal(t, 1, w.cache.len())

	// Block the boundary cell holding the portal: the run splits and
	// the cached route spanning sector (0,0) is dropped.
	ev, err := w.SetCost(field.SectorID{0, 0}, field.FieldCell{Column: 9, Row: 4}, field.CostImpassable)
	require.NoError(t, err)
	assert.ElementsMatch(t, []field.SectorID{{0, 0}, {1, 0}}, ev.Rebuilt)
	assert.Zero(t, w.cache.len())

	east := w.Portals(field.SectorID{0, 0}).Boundaries[field.East]
	require.Len(t, east, 2)
	assert.Equal(t, field.FieldCell{Column: 9, Row: 1}, east[0].Cell)
	assert.Equal(t, field.FieldCell{Column: 9, Row: 7}, east[1].Cell)
	assert.Equal(t, 4, w.GraphNodeCount(), "two portal pairs after the split")

	// The next request rebuilds against the mutated world.
	h, err = w.RequestRoute(context.Background(),
		field.SectorID{0, 0}, field.FieldCell{Column: 0, Row: 5},
		field.SectorID{1, 0}, field.FieldCell{Column: 9, Row: 5})
	require.NoError(t, err)
	waitRoute(t, h)
}

func TestSetCostSameValueIsNoOp(t *testing.T) {
	w := newTestWorld(t, 2, 1)

	h, err := w.RequestRoute(context.Background(),
		field.SectorID{0, 0}, field.FieldCell{Column: 0, Row: 5},
		field.SectorID{1, 0}, field.FieldCell{Column: 9, Row: 5})
	require.NoError(t, err)
	waitRoute(t, h)

	ev, err := w.SetCost(field.SectorID{0, 0}, field.FieldCell{Column: 9, Row: 4}, field.CostDefault)
	require.NoError(t, err)
	assert.Empty(t, ev.Rebuilt, "setting the current value rebuilds nothing")
	assert.Equal(t, 1, w.cache.len(), "no-op mutation keeps cached routes")
}

func TestMutationInteriorCellRebuildsOnlyOwnSector(t *testing.T) {
	w := newTestWorld(t, 3, 3)

	ev, err := w.SetCost(field.SectorID{1, 1}, field.FieldCell{Column: 5, Row: 5}, 9)
	require.NoError(t, err)
	assert.Equal(t, []field.SectorID{{1, 1}}, ev.Rebuilt)

	ev, err = w.SetCost(field.SectorID{1, 1}, field.FieldCell{Column: 0, Row: 0}, 9)
	require.NoError(t, err)
	assert.ElementsMatch(t, []field.SectorID{{1, 1}, {1, 0}, {0, 1}}, ev.Rebuilt)
}

func TestRouteDeterminism(t *testing.T) {
	w := newTestWorld(t, 2, 2)
	// A little terrain so the fields are not trivial.
	for col := 3; col <= 6; col++ {
		for row := 3; row <= 6; row++ {
			_, err := w.SetCost(field.SectorID{0, 0}, field.FieldCell{Column: col, Row: row}, 10)
			require.NoError(t, err)
		}
	}
	_, err := w.SetCost(field.SectorID{1, 0}, field.FieldCell{Column: 2, Row: 7}, field.CostImpassable)
	require.NoError(t, err)

	request := func() *Route {
		h, err := w.RequestRoute(context.Background(),
			field.SectorID{0, 0}, field.FieldCell{Column: 0, Row: 0},
			field.SectorID{1, 1}, field.FieldCell{Column: 9, Row: 9})
		require.NoError(t, err)
		return waitRoute(t, h)
	}

	first := request()

	// Drop the cache so the second request rebuilds from scratch.
	w.cache.clear()
	second := request()

	require.Equal(t, len(first.Chain), len(second.Chain))
	for i := range first.Chain {
		assert.Equal(t, first.Chain[i].Sector, second.Chain[i].Sector)
		assert.Equal(t, *first.Chain[i].Flow, *second.Chain[i].Flow, "flow fields must be byte identical")
	}
}

func TestRouteCacheHitReturnsSameRoute(t *testing.T) {
	w := newTestWorld(t, 2, 1)

	h1, err := w.RequestRoute(context.Background(),
		field.SectorID{0, 0}, field.FieldCell{Column: 0, Row: 5},
		field.SectorID{1, 0}, field.FieldCell{Column: 9, Row: 5})
	require.NoError(t, err)
	r1 := waitRoute(t, h1)

	h2, err := w.RequestRoute(context.Background(),
		field.SectorID{0, 0}, field.FieldCell{Column: 0, Row: 5},
		field.SectorID{1, 0}, field.FieldCell{Column: 9, Row: 5})
	require.NoError(t, err)
	assert.True(t, h2.Ready(), "cache hits resolve immediately")
	r2 := waitRoute(t, h2)

	assert.Same(t, r1, r2, "cached requests share the built route")
}

func TestLoadCostFieldDir(t *testing.T) {
	w := newTestWorld(t, 2, 1)

	f := field.NewCostField()
	for row := 0; row < field.Resolution; row++ {
		f.Set(field.FieldCell{Column: 9, Row: row}, field.CostImpassable)
	}

	dir := t.TempDir()
	data, err := field.MarshalCostFieldFile(field.SectorID{0, 0}, f)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0_0.yaml"), data, 0o644))

	require.NoError(t, w.LoadCostFieldDir(dir))

	got, err := w.Cost(field.SectorID{0, 0}, field.FieldCell{Column: 9, Row: 3})
	require.NoError(t, err)
	assert.Equal(t, field.CostImpassable, got)
	assert.Empty(t, w.Portals(field.SectorID{0, 0}).Boundaries[field.East])
}

func TestLoadCostFieldRepairsNeighbours(t *testing.T) {
	w := newTestWorld(t, 2, 1)

	var cells [field.Resolution][field.Resolution]uint8
	for col := range cells {
		for row := range cells[col] {
			cells[col][row] = field.CostDefault
		}
	}
	for row := 0; row < field.Resolution; row++ {
		cells[9][row] = field.CostImpassable
	}

	require.NoError(t, w.LoadCostField(field.SectorID{0, 0}, cells))

	assert.Empty(t, w.Portals(field.SectorID{0, 0}).Boundaries[field.East])
	assert.Empty(t, w.Portals(field.SectorID{1, 0}).Boundaries[field.West])
}
