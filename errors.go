package screencapture

import "errors"

// Sentinel errors returned by the browser layer.
var (
	// ErrClosed is returned when attempting to use a closed [Browser] or [Page].
	ErrClosed = errors.New("screencapture: browser is closed")

	// ErrNoElement is returned when a selector matches nothing.
	ErrNoElement = errors.New("screencapture: no element matches selector")
)
