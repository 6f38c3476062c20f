//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealPins drives the touch and LED lines using the Linux GPIO character device.
type RealPins struct {
	chip     *gpiocdev.Chip
	touchPin *gpiocdev.Line
	ledPin   *gpiocdev.Line
}

// NewRealPins requests the touch line as input and the LED line as output.
func NewRealPins(pinTouch, pinLED int) (*RealPins, error) {
	chip, err := gpiocdev.NewChip(Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// Touch modules drive SIG actively; pull-down keeps a disconnected
	// module reading as untouched.
	touchLine, err := chip.RequestLine(pinTouch, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request touch pin %d: %w", pinTouch, err)
	}

	ledLine, err := chip.RequestLine(pinLED, gpiocdev.AsOutput(0))
	if err != nil {
		touchLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request LED pin %d: %w", pinLED, err)
	}

	return &RealPins{
		chip:     chip,
		touchPin: touchLine,
		ledPin:   ledLine,
	}, nil
}

// Read returns the touch sensor level. Active high: 1 = touched.
func (r *RealPins) Read() (bool, error) {
	v, err := r.touchPin.Value()
	if err != nil {
		return false, fmt.Errorf("read touch pin: %w", err)
	}
	return v == 1, nil
}

// Set drives the LED line.
func (r *RealPins) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := r.ledPin.SetValue(v); err != nil {
		return fmt.Errorf("set LED pin: %w", err)
	}
	return nil
}

// Close releases GPIO resources.
// The LED is switched off and both lines are returned to input with
// pull-down (Pi boot defaults) before release, so nothing is left driven.
func (r *RealPins) Close() error {
	var errs []error

	if r.ledPin != nil {
		if err := r.ledPin.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear LED pin: %w", err))
		}
		if err := r.ledPin.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure LED pin: %w", err))
		}
		if err := r.ledPin.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close LED pin: %w", err))
		}
	}
	if r.touchPin != nil {
		if err := r.touchPin.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close touch pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
