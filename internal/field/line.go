package field

// LineIterator implements the 2D Bresenham line algorithm over field
// cells. Steps through every cell from start to end inclusive.
type LineIterator struct {
	current, target  FieldCell
	deltaC, deltaR   int
	stepC, stepR     int
	err              int
	started, stopped bool
}

// NewLineIterator creates a Bresenham iterator from a to b.
func NewLineIterator(a, b FieldCell) *LineIterator {
	it := &LineIterator{current: a, target: b}

	it.deltaC = absInt(b.Column - a.Column)
	it.deltaR = absInt(b.Row - a.Row)

	if a.Column < b.Column {
		it.stepC = 1
	} else {
		it.stepC = -1
	}
	if a.Row < b.Row {
		it.stepR = 1
	} else {
		it.stepR = -1
	}

	it.err = it.deltaC - it.deltaR
	return it
}

// Next advances the iterator. Returns false after the target was yielded.
func (it *LineIterator) Next() bool {
	if !it.started {
		it.started = true
		return true
	}
	if it.stopped || it.current == it.target {
		it.stopped = true
		return false
	}

	e2 := 2 * it.err
	if e2 > -it.deltaR {
		it.err -= it.deltaR
		it.current.Column += it.stepC
	}
	if e2 < it.deltaC {
		it.err += it.deltaC
		it.current.Row += it.stepR
	}
	return true
}

// Cell returns the current cell.
func (it *LineIterator) Cell() FieldCell {
	return it.current
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
