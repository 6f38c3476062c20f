//go:build tinygo && !mpr121

package main

import "machine"

// newTouchSensor reads a digital touch module (e.g. TTP223) on touchPin.
func newTouchSensor() (touchSensor, error) {
	touchPin.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	return touchFunc(touchPin.Get), nil
}
