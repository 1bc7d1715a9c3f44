package contracts

import "errors"

var (
	// ErrNotFound is returned by read paths when a keyed row does not exist
	ErrNotFound = errors.New("not found")

	// ErrNoData means the date has no eligible boards/stocks at all,
	// which callers must distinguish from "every score is zero"
	ErrNoData = errors.New("no data for date")
)
