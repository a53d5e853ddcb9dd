package transport

import (
	"fmt"
	"io"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// BaudRate is the line speed of every endpoint.
const BaudRate = 115200

// PortInfo describes an enumerated serial device.
type PortInfo struct {
	Path      string
	VendorID  string
	ProductID string
	Product   string
}

// PortLister enumerates serial devices with USB identifiers.
type PortLister interface {
	List() ([]PortInfo, error)
}

// PortOpener opens a byte stream on a device path.
type PortOpener interface {
	Open(path string) (io.ReadWriteCloser, error)
}

// SerialPorts implements PortLister and PortOpener on real hardware.
type SerialPorts struct{}

func (SerialPorts) List() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	out := make([]PortInfo, 0, len(details))
	for _, d := range details {
		if d == nil || !d.IsUSB {
			continue
		}
		out = append(out, PortInfo{Path: d.Name, VendorID: d.VID, ProductID: d.PID, Product: d.Product})
	}
	return out, nil
}

func (SerialPorts) Open(path string) (io.ReadWriteCloser, error) {
	port, err := serial.Open(path, &serial.Mode{BaudRate: BaudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", path, err)
	}
	return port, nil
}

// findPort returns the first port with the given USB identifiers.
func findPort(ports []PortInfo, vid, pid string) (PortInfo, bool) {
	for _, p := range ports {
		if strings.EqualFold(p.VendorID, vid) && strings.EqualFold(p.ProductID, pid) {
			return p, true
		}
	}
	return PortInfo{}, false
}
