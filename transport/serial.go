package transport

import (
	"context"
	"fmt"
	"log/slog"

	"go.bug.st/serial"
)

// DefaultBaudRate is the usual rate of the serial thermal printers.
const DefaultBaudRate = 9600

// Serial sends frames to a printer on a serial port.
type Serial struct {
	name string
	port serial.Port
}

// OpenSerial opens the serial port name at 8N1.
func OpenSerial(name string, baudRate int) (*Serial, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	slog.Info("opened serial port", "port", name, "baud", baudRate)
	return &Serial{name: name, port: port}, nil
}

func (s *Serial) Send(ctx context.Context, data []byte) error {
	if err := NewWriter(s.port).Send(ctx, data); err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	if err := s.port.Drain(); err != nil {
		return fmt.Errorf("%s: drain: %w", s.name, err)
	}
	return nil
}

func (s *Serial) Close() error {
	return s.port.Close()
}

// SerialPorts lists the serial ports of the system.
func SerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
