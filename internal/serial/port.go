package serial

import (
	"fmt"

	bugst "go.bug.st/serial"

	"github.com/sweeney/knock-sensor/internal/protocol"
)

// Port is a UART opened at the protocol baud rate, 8N1.
// It writes lines for the bridge and reads them for the monitor.
type Port struct {
	port bugst.Port
	name string
}

// OpenPort opens the named serial device, e.g. /dev/ttyS0 or /dev/ttyUSB0.
func OpenPort(name string) (*Port, error) {
	mode := &bugst.Mode{
		BaudRate: protocol.Baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}
	p, err := bugst.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", name, err)
	}
	return &Port{port: p, name: name}, nil
}

// Name returns the device path.
func (p *Port) Name() string {
	return p.name
}

// WriteLine writes line followed by protocol.LineEnding.
func (p *Port) WriteLine(line string) error {
	if _, err := p.port.Write([]byte(line + protocol.LineEnding)); err != nil {
		return fmt.Errorf("write serial %s: %w", p.name, err)
	}
	return nil
}

// Read reads raw bytes from the port.
func (p *Port) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Close closes the port. A blocked Read returns once the port is closed.
func (p *Port) Close() error {
	if err := p.port.Close(); err != nil {
		return fmt.Errorf("close serial %s: %w", p.name, err)
	}
	return nil
}
