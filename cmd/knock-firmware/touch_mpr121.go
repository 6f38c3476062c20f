//go:build tinygo && mpr121

package main

import (
	"fmt"
	"machine"

	"tinygo.org/x/drivers/mpr121"
)

// electrode is the MPR121 input the knock surface is wired to.
const electrode = 0

// newTouchSensor reads electrode 0 of an MPR121 on I2C0.
// A failed status read repeats the previous level so the bridge sees no edge.
func newTouchSensor() (touchSensor, error) {
	err := machine.I2C0.Configure(machine.I2CConfig{
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
		Frequency: 400 * machine.KHz,
	})
	if err != nil {
		return nil, fmt.Errorf("configure i2c: %w", err)
	}

	dev := mpr121.New(machine.I2C0)
	err = dev.Configure(mpr121.Config{
		Address:          mpr121.DefaultAddress,
		TouchThreshold:   0x10,
		ReleaseThreshold: 0x05,
		AutoConfig:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("configure mpr121: %w", err)
	}

	var last bool
	return touchFunc(func() bool {
		s, err := dev.Status()
		if err != nil {
			return last
		}
		last = s.Touched(electrode)
		return last
	}), nil
}
