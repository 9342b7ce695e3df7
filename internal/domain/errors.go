package domain

import "errors"

// Sentinel errors for the "normal missing data" and illegal-mutation cases.
// Read paths return these instead of fabricating zero forecasts or default
// reorder points; callers are expected to branch on them with errors.Is.
var (
	// ErrNoForecast - the product has no historical records, so no forecast exists.
	ErrNoForecast = errors.New("no forecast available")

	// ErrNotCalculated - no reorder parameters have been computed for the product yet.
	ErrNotCalculated = errors.New("reorder point not calculated")

	// ErrProductNotFound - the product does not exist in the catalog.
	ErrProductNotFound = errors.New("product not found")

	// ErrIllegalTransition - a purchase-order lifecycle method was invoked
	// from a state that forbids it; the order is left unchanged.
	ErrIllegalTransition = errors.New("illegal purchase order transition")

	// ErrRetrainInProgress - a retrain was requested while one is running.
	// Retrains are serialized; the in-flight one completes first.
	ErrRetrainInProgress = errors.New("retrain already in progress")
)
