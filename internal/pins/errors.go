package pins

import "errors"

var (
	// ErrRepositioning is returned when a pin is selected while another
	// pin is being moved.
	ErrRepositioning = errors.New("a pin is being repositioned")
	ErrNoActivePlan  = errors.New("no floor plan is active")
	ErrOutsidePlan   = errors.New("pointer is outside the plan image")
	// ErrStale is returned when the active plan changed while a request was
	// in flight; its result was discarded.
	ErrStale       = errors.New("result discarded: active floor plan changed")
	ErrPinNotFound = errors.New("pin not found on the active plan")
	// ErrMovePending is returned while a repositioning click is being saved.
	ErrMovePending = errors.New("pin move is still being saved")
)
