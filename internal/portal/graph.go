package portal

import (
	"container/heap"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/udisondev/flowtiles/internal/field"
)

// ErrInconsistent reports a violated internal invariant of the portal
// graph or its translator. It indicates an implementation bug.
var ErrInconsistent = errors.New("portal graph inconsistent")

// NodeID is the flat graph identity of one portal.
type NodeID int

// Transient node identities used during a path query. They are never
// stored in the graph.
const (
	srcNode NodeID = -1
	dstNode NodeID = -2
)

// Graph is the sector-level navigation graph. Nodes are portals, edges
// are intra-sector walks (weighted by A* cost over the cost field) and
// boundary crossings between paired portals (weight 1).
//
// The translator maps Pos <-> NodeID in both directions and is updated
// atomically with node insertion and removal.
type Graph struct {
	grid     field.Grid
	conn     Connectivity
	nextID   NodeID
	nodes    map[NodeID]Pos
	ids      map[Pos]NodeID
	adj      map[NodeID]map[NodeID]float64
	bySector map[field.SectorID][]NodeID
	portals  map[field.SectorID]SectorPortals
}

// NewGraph creates an empty portal graph for the given world extent.
func NewGraph(grid field.Grid, conn Connectivity) *Graph {
	return &Graph{
		grid:     grid,
		conn:     conn,
		nodes:    make(map[NodeID]Pos),
		ids:      make(map[Pos]NodeID),
		adj:      make(map[NodeID]map[NodeID]float64),
		bySector: make(map[field.SectorID][]NodeID),
		portals:  make(map[field.SectorID]SectorPortals),
	}
}

// SectorPortals returns the current portals of a sector.
func (g *Graph) SectorPortals(id field.SectorID) SectorPortals {
	return g.portals[id]
}

// PortalAt returns the portal occupying the given position, if any.
func (g *Graph) PortalAt(pos Pos) (Portal, bool) {
	return g.portals[pos.Sector].At(pos.Cell)
}

// NodeAt translates a portal position to its node identity.
func (g *Graph) NodeAt(pos Pos) (NodeID, bool) {
	id, ok := g.ids[pos]
	return id, ok
}

// PosOf translates a node identity back to its portal position.
func (g *Graph) PosOf(id NodeID) (Pos, bool) {
	pos, ok := g.nodes[id]
	return pos, ok
}

// NodeCount returns the number of live portal nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// NodePositions returns the positions of all live nodes, ordered for
// deterministic comparison.
func (g *Graph) NodePositions() []Pos {
	out := make([]Pos, 0, len(g.nodes))
	for _, pos := range g.nodes {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return posOrder(g.grid, out[i]) < posOrder(g.grid, out[j]) })
	return out
}

// EdgeWeight returns the weight of the edge between two portal
// positions, if both are live and connected.
func (g *Graph) EdgeWeight(a, b Pos) (float64, bool) {
	na, ok := g.ids[a]
	if !ok {
		return 0, false
	}
	nb, ok := g.ids[b]
	if !ok {
		return 0, false
	}
	w, ok := g.adj[na][nb]
	return w, ok
}

// RebuildSector replaces a sector's nodes and incident edges with a
// fresh portal set. Old translator entries are purged before any new
// node is inserted, so the Pos <-> NodeID mapping never dangles.
func (g *Graph) RebuildSector(id field.SectorID, costs CostSource) error {
	g.removeSector(id)

	sp := BuildSectorPortals(g.grid, id, costs)
	g.portals[id] = sp

	own := costs.CostField(id)
	portals := sp.All()

	nodeIDs := make([]NodeID, len(portals))
	for i, p := range portals {
		pos := Pos{Sector: id, Cell: p.Cell}
		if prev, exists := g.ids[pos]; exists {
			slog.Error("translator already maps portal position", "sector", id, "cell", p.Cell, "node", prev)
			return fmt.Errorf("inserting node at %v/%v: %w", id, p.Cell, ErrInconsistent)
		}
		nid := g.nextID
		g.nextID++
		g.nodes[nid] = pos
		g.ids[pos] = nid
		g.adj[nid] = make(map[NodeID]float64)
		nodeIDs[i] = nid
	}
	g.bySector[id] = nodeIDs

	// Intra-sector edges between every mutually reachable portal pair.
	for i := 0; i < len(portals); i++ {
		for j := i + 1; j < len(portals); j++ {
			cost, ok := PathCost(own, portals[i].Cell, portals[j].Cell, g.conn)
			if !ok {
				continue
			}
			g.adj[nodeIDs[i]][nodeIDs[j]] = cost
			g.adj[nodeIDs[j]][nodeIDs[i]] = cost
		}
	}

	// Crossing edges to paired portals in neighbouring sectors. The
	// neighbour's side appears once it has been (re)built; each side
	// links both directions, so the pairing converges after a repair
	// touches both sectors.
	for i, p := range portals {
		pairPos, ok := p.PairPos(g.grid, id)
		if !ok {
			continue
		}
		pairID, ok := g.ids[pairPos]
		if !ok {
			continue
		}
		g.adj[nodeIDs[i]][pairID] = 1
		g.adj[pairID][nodeIDs[i]] = 1
	}

	return nil
}

// removeSector deletes a sector's nodes, both translator directions and
// every incident edge.
func (g *Graph) removeSector(id field.SectorID) {
	for _, nid := range g.bySector[id] {
		pos := g.nodes[nid]
		delete(g.nodes, nid)
		delete(g.ids, pos)
		for nb := range g.adj[nid] {
			delete(g.adj[nb], nid)
		}
		delete(g.adj, nid)
	}
	delete(g.bySector, id)
	delete(g.portals, id)
}

// CheckTranslator verifies the Pos <-> NodeID bijection over all live
// portals. Meant for tests and debug assertions.
func (g *Graph) CheckTranslator() error {
	if len(g.nodes) != len(g.ids) {
		return fmt.Errorf("translator sides disagree: %d nodes, %d positions: %w", len(g.nodes), len(g.ids), ErrInconsistent)
	}
	for nid, pos := range g.nodes {
		back, ok := g.ids[pos]
		if !ok || back != nid {
			return fmt.Errorf("translator round trip failed for node %d at %v/%v: %w", nid, pos.Sector, pos.Cell, ErrInconsistent)
		}
	}
	return nil
}

// Path finds the cheapest sequence of portal crossings from a source
// cell to a goal cell. The result starts at the source position and ends
// at the goal position, with every traversed portal in between. Returns
// false when the goal is unreachable.
//
// The query augments the graph with two transient endpoints: the source
// connects to every portal of its sector it can reach, and every portal
// of the goal sector that can reach the goal connects to the
// destination. The augmentation lives only in the query, so concurrent
// readers never observe transient nodes.
func (g *Graph) Path(from, to Pos, costs CostSource) ([]Pos, bool) {
	srcEdges := make(map[NodeID]float64)
	fromCosts := costs.CostField(from.Sector)
	for _, p := range g.portals[from.Sector].All() {
		if cost, ok := PathCost(fromCosts, from.Cell, p.Cell, g.conn); ok {
			srcEdges[g.ids[Pos{Sector: from.Sector, Cell: p.Cell}]] = cost
		}
	}

	dstEdges := make(map[NodeID]float64)
	toCosts := costs.CostField(to.Sector)
	for _, p := range g.portals[to.Sector].All() {
		if cost, ok := PathCost(toCosts, p.Cell, to.Cell, g.conn); ok {
			dstEdges[g.ids[Pos{Sector: to.Sector, Cell: p.Cell}]] = cost
		}
	}

	var direct float64
	hasDirect := false
	if from.Sector == to.Sector {
		direct, hasDirect = PathCost(fromCosts, from.Cell, to.Cell, g.conn)
	}

	q := &pathQuery{
		graph:     g,
		from:      from,
		to:        to,
		srcEdges:  srcEdges,
		dstEdges:  dstEdges,
		direct:    direct,
		hasDirect: hasDirect,
	}
	return q.run()
}

// pathQuery is one A* search over the graph augmented with the
// transient source and destination endpoints.
type pathQuery struct {
	graph     *Graph
	from, to  Pos
	srcEdges  map[NodeID]float64
	dstEdges  map[NodeID]float64
	direct    float64
	hasDirect bool
}

func (q *pathQuery) run() ([]Pos, bool) {
	open := &graphHeap{}
	heap.Init(open)

	start := &graphNode{id: srcNode, hCost: q.heuristic(srcNode)}
	start.fCost = start.hCost
	heap.Push(open, start)

	closed := make(map[NodeID]struct{})

	for open.Len() > 0 {
		current := heap.Pop(open).(*graphNode)
		if current.id == dstNode {
			return q.reconstruct(current), true
		}
		if _, seen := closed[current.id]; seen {
			continue
		}
		closed[current.id] = struct{}{}

		for nb, w := range q.neighbours(current.id) {
			if _, seen := closed[nb]; seen {
				continue
			}
			node := &graphNode{
				id:     nb,
				parent: current,
				gCost:  current.gCost + w,
				hCost:  q.heuristic(nb),
			}
			node.fCost = node.gCost + node.hCost
			heap.Push(open, node)
		}
	}
	return nil, false
}

// neighbours splices the transient endpoint edges into the stored
// adjacency without mutating the graph.
func (q *pathQuery) neighbours(id NodeID) map[NodeID]float64 {
	if id == srcNode {
		out := make(map[NodeID]float64, len(q.srcEdges)+1)
		for nb, w := range q.srcEdges {
			out[nb] = w
		}
		if q.hasDirect {
			out[dstNode] = q.direct
		}
		return out
	}

	stored := q.graph.adj[id]
	w, exists := q.dstEdges[id]
	if !exists {
		return stored
	}
	out := make(map[NodeID]float64, len(stored)+1)
	for nb, sw := range stored {
		out[nb] = sw
	}
	out[dstNode] = w
	return out
}

func (q *pathQuery) position(id NodeID) Pos {
	switch id {
	case srcNode:
		return q.from
	case dstNode:
		return q.to
	default:
		return q.graph.nodes[id]
	}
}

// heuristic is the straight-line distance in world cells to the goal,
// admissible because every step costs at least 1 per cell moved.
func (q *pathQuery) heuristic(id NodeID) float64 {
	ax, az := q.graph.grid.WorldCell(q.position(id).Sector, q.position(id).Cell)
	bx, bz := q.graph.grid.WorldCell(q.to.Sector, q.to.Cell)
	dx := float64(ax - bx)
	dz := float64(az - bz)
	return math.Sqrt(dx*dx + dz*dz)
}

func (q *pathQuery) reconstruct(end *graphNode) []Pos {
	var rev []Pos
	for n := end; n != nil; n = n.parent {
		rev = append(rev, q.position(n.id))
	}
	out := make([]Pos, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		out = append(out, rev[i])
	}
	return out
}

// graphNode is an A* search node over portal NodeIDs.
type graphNode struct {
	id     NodeID
	parent *graphNode
	gCost  float64
	hCost  float64
	fCost  float64
	index  int
}

// graphHeap orders by fCost, then hCost, then NodeID for determinism.
type graphHeap []*graphNode

func (h graphHeap) Len() int { return len(h) }
func (h graphHeap) Less(i, j int) bool {
	if h[i].fCost != h[j].fCost {
		return h[i].fCost < h[j].fCost
	}
	if h[i].hCost != h[j].hCost {
		return h[i].hCost < h[j].hCost
	}
	return h[i].id < h[j].id
}
func (h graphHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *graphHeap) Push(x any)   { n := x.(*graphNode); n.index = len(*h); *h = append(*h, n) }
func (h *graphHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[:n-1]
	return node
}

func posOrder(g field.Grid, p Pos) int {
	x, z := g.WorldCell(p.Sector, p.Cell)
	return z*int(g.Columns)*field.Resolution + x
}
