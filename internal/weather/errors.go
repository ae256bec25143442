package weather

import "errors"

var (
	// ErrNoData is recorded when a station returns no observations for the window.
	ErrNoData = errors.New("no data fetched")

	// ErrInvalidTable is returned for table names outside the allow-list.
	ErrInvalidTable = errors.New("invalid table")

	// ErrInvalidRange is returned when a batch window starts after it ends.
	ErrInvalidRange = errors.New("start date is after end date")

	// ErrStationMismatch is returned when observations for one station are
	// aggregated under another.
	ErrStationMismatch = errors.New("observation belongs to a different station")

	// ErrBatchRunning is returned when a batch is requested while one is in flight.
	ErrBatchRunning = errors.New("a batch is already running")

	// ErrBatchNotFound is returned for unknown batch ids.
	ErrBatchNotFound = errors.New("batch not found")
)
