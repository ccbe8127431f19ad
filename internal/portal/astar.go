package portal

import (
	"container/heap"
	"math"

	"github.com/udisondev/flowtiles/internal/field"
)

// Connectivity selects the neighbourhood used by intra-sector A*.
type Connectivity uint8

const (
	// EightWay expands diagonals at 3/2 the orthogonal step cost,
	// with corner cutting forbidden.
	EightWay Connectivity = iota
	// FourWay expands cardinal neighbours only.
	FourWay
)

// diagonalFactor scales the cost of entering a cell diagonally.
// 3/2 approximates sqrt(2) while staying above it, so the octile
// heuristic remains admissible.
const diagonalFactor = 1.5

// PathCost runs A* between two cells over one sector's cost field and
// returns the total traversal cost. Returns false when no path exists.
// Entering a cell costs its field value; impassable cells are blocked.
func PathCost(costs *field.CostField, from, to field.FieldCell, conn Connectivity) (float64, bool) {
	if !costs.Passable(from) || !costs.Passable(to) {
		return 0, false
	}
	if from == to {
		return 0, true
	}

	open := &cellHeap{}
	heap.Init(open)

	start := &cellNode{cell: from, hCost: cellHeuristic(from, to, conn)}
	start.fCost = start.hCost
	heap.Push(open, start)

	var closed [field.Resolution][field.Resolution]bool

	for open.Len() > 0 {
		current := heap.Pop(open).(*cellNode)
		if current.cell == to {
			return current.gCost, true
		}
		if closed[current.cell.Column][current.cell.Row] {
			continue
		}
		closed[current.cell.Column][current.cell.Row] = true

		expandCell(current, to, costs, conn, open, &closed)
	}
	return 0, false
}

// expandCell pushes the passable neighbours of the current cell.
// Diagonals require both adjacent cardinals to be passable.
func expandCell(
	current *cellNode,
	to field.FieldCell,
	costs *field.CostField,
	conn Connectivity,
	open *cellHeap,
	closed *[field.Resolution][field.Resolution]bool,
) {
	var cardinalOpen [4]bool

	for i, o := range field.Cardinals {
		n, ok := field.CellNeighbour(current.cell, o)
		if !ok || !costs.Passable(n) {
			continue
		}
		cardinalOpen[i] = true
		if closed[n.Column][n.Row] {
			continue
		}
		pushCell(open, current, n, to, current.gCost+float64(costs.Get(n)), conn)
	}

	if conn == FourWay {
		return
	}

	// Diagonal index pairs into Cardinals: NE=N+E, SE=S+E, SW=S+W, NW=N+W.
	diagonals := [4]struct {
		o          field.Ordinal
		adj1, adj2 int
	}{
		{field.NorthEast, 0, 1},
		{field.SouthEast, 2, 1},
		{field.SouthWest, 2, 3},
		{field.NorthWest, 0, 3},
	}

	for _, d := range diagonals {
		if !cardinalOpen[d.adj1] || !cardinalOpen[d.adj2] {
			continue
		}
		n, ok := field.CellNeighbour(current.cell, d.o)
		if !ok || !costs.Passable(n) || closed[n.Column][n.Row] {
			continue
		}
		pushCell(open, current, n, to, current.gCost+diagonalFactor*float64(costs.Get(n)), conn)
	}
}

func pushCell(open *cellHeap, parent *cellNode, cell, to field.FieldCell, gCost float64, conn Connectivity) {
	node := &cellNode{
		cell:  cell,
		gCost: gCost,
		hCost: cellHeuristic(cell, to, conn),
	}
	node.fCost = node.gCost + node.hCost
	heap.Push(open, node)
}

// cellHeuristic estimates the remaining cost assuming the minimum cell
// cost of 1: octile distance for eight-way, Manhattan for four-way.
func cellHeuristic(from, to field.FieldCell, conn Connectivity) float64 {
	dc := math.Abs(float64(from.Column - to.Column))
	dr := math.Abs(float64(from.Row - to.Row))
	if conn == FourWay {
		return dc + dr
	}
	return math.Max(dc, dr) + 0.5*math.Min(dc, dr)
}

// cellNode is an A* search node over field cells.
type cellNode struct {
	cell  field.FieldCell
	gCost float64
	hCost float64
	fCost float64
	index int
}

// cellHeap is a min-heap ordered by fCost, then hCost, then cell index
// for deterministic expansion.
type cellHeap []*cellNode

func (h cellHeap) Len() int { return len(h) }
func (h cellHeap) Less(i, j int) bool {
	if h[i].fCost != h[j].fCost {
		return h[i].fCost < h[j].fCost
	}
	if h[i].hCost != h[j].hCost {
		return h[i].hCost < h[j].hCost
	}
	return cellOrder(h[i].cell) < cellOrder(h[j].cell)
}
func (h cellHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *cellHeap) Push(x any)   { n := x.(*cellNode); n.index = len(*h); *h = append(*h, n) }
func (h *cellHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[:n-1]
	return node
}

func cellOrder(c field.FieldCell) int {
	return c.Column*field.Resolution + c.Row
}
