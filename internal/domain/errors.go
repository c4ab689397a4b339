package domain

import "errors"

var (
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrGeocodeNotFound    = errors.New("address not found")
	ErrRouteNotFound      = errors.New("route not found")

	ErrGeocodeFailure   = errors.New("could not resolve address")
	ErrTooClose         = errors.New("point is too close to the previous one")
	ErrDuplicateTrip    = errors.New("an identical trip is already active")
	ErrBusy             = errors.New("another operation is in progress")
	ErrCancelled        = errors.New("trip was cancelled")
	ErrInvalidState     = errors.New("operation not allowed in current state")
	ErrNoDestinations   = errors.New("trip has no destinations")
	ErrWaypointNotFound = errors.New("waypoint not found")
	ErrTripNotFound     = errors.New("trip not found")
	ErrSessionNotFound  = errors.New("session not found")
)
