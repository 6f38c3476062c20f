//go:build tinygo

// Command knock-firmware runs the touch bridge on a microcontroller.
// It mirrors the sensor on the LED and speaks the serial protocol on the
// board's default UART, for a host running knock-monitor.
//
// Build with: tinygo flash -target=<board> [-tags mpr121] ./cmd/knock-firmware
//
// On rp2040 boards machine.Serial defaults to USB-CDC, which ignores the baud
// rate. Add -serial=uart to get the hardware UART at 921600.
package main

import (
	"machine"
	"time"

	"github.com/sweeney/knock-sensor/internal/logic"
	"github.com/sweeney/knock-sensor/internal/protocol"
)

type touchSensor interface {
	Touched() bool
}

type touchFunc func() bool

func (f touchFunc) Touched() bool { return f() }

func main() {
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	ledPin.Low()

	uart := machine.Serial
	if err := uart.Configure(machine.UARTConfig{BaudRate: protocol.Baud}); err != nil {
		writeLine(uart, protocol.FormatError("configure uart", err))
		halt()
	}

	touch, err := newTouchSensor()
	if err != nil {
		writeLine(uart, protocol.FormatError("touch sensor", err))
		halt()
	}

	writeLine(uart, protocol.Banner)

	bridge := logic.NewBridge(time.Now())
	for {
		res := bridge.Process(logic.Input{
			Touch: touch.Touched(),
			Time:  time.Now(),
		})
		ledPin.Set(res.LED)
		for _, line := range protocol.Lines(res.Events) {
			writeLine(uart, line)
		}
	}
}

func writeLine(uart machine.Serialer, line string) {
	uart.Write([]byte(line + protocol.LineEnding))
}

// halt blinks the LED forever.
func halt() {
	for {
		ledPin.High()
		time.Sleep(100 * time.Millisecond)
		ledPin.Low()
		time.Sleep(900 * time.Millisecond)
	}
}
