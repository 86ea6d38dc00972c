package source

import (
	"fmt"
	"go.bug.st/serial"
	"io"
)

// Port is an open byte channel to a device.
type Port interface {
	io.ReadWriteCloser
}

// PortOpener opens the named channel at the given rate.
type PortOpener func(name string, baudRate int) (Port, error)

func OpenSerialPort(name string, baudRate int) (Port, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	return port, nil
}

// ListPorts returns the names of the serial channels currently available.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	if ports == nil {
		return []string{}, nil
	}
	return ports, nil
}
