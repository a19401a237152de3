package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyTrack   = errors.New("track has no points")
	ErrNoStartPoint = errors.New("no start point on geometry")
	ErrNoEndPoint   = errors.New("no end point on geometry")
)

// ErrInvalidRide wraps validation failures of ride input.
var ErrInvalidRide = errors.New("invalid ride")
