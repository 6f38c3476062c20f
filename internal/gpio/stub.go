//go:build !linux

package gpio

import "errors"

// RealPins is not available on non-Linux platforms.
type RealPins struct{}

// NewRealPins returns an error on non-Linux platforms.
func NewRealPins(pinTouch, pinLED int) (*RealPins, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (r *RealPins) Read() (bool, error) {
	return false, errors.New("gpio: not supported")
}

// Set is not implemented on non-Linux platforms.
func (r *RealPins) Set(on bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealPins) Close() error {
	return nil
}
