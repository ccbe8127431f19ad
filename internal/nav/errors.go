package nav

import "errors"

// Error kinds surfaced by the navigation engine.
var (
	// ErrOutOfBounds reports a coordinate outside the world extent.
	ErrOutOfBounds = errors.New("coordinate out of bounds")

	// ErrImpassable reports a source or goal cell with impassable cost.
	ErrImpassable = errors.New("cell is impassable")

	// ErrNoPath reports that the portal graph holds no route between
	// the requested endpoints.
	ErrNoPath = errors.New("no path")

	// ErrCancelled reports a route build cancelled by its context.
	ErrCancelled = errors.New("route build cancelled")
)
