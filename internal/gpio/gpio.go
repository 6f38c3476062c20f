// Package gpio provides touch sensor input and LED output with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// TouchReader reads the touch sensor level.
type TouchReader interface {
	// Read returns true while the sensor is active (line high).
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// LED drives the indicator output.
type LED interface {
	// Set drives the line high (true) or low (false).
	Set(on bool) error
}

// Default pin definitions (BCM numbering).
const (
	DefaultPinTouch = 4 // touch module SIG
	DefaultPinLED   = 5 // external LED
)

// Chip is the GPIO character device holding the pins.
const Chip = "gpiochip0"
