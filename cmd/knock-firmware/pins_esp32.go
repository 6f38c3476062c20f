//go:build tinygo && esp32

package main

import "machine"

const (
	touchPin = machine.GPIO4
	ledPin   = machine.GPIO5
)
