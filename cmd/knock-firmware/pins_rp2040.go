//go:build tinygo && rp2040

package main

import "machine"

const (
	touchPin = machine.GP4
	ledPin   = machine.GP5
)
