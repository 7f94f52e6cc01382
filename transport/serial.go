package transport

import (
	"context"
	"io"
	"time"

	"go.bug.st/serial"
)

// serialPort is the subset of serial.Port used by Serial.
type serialPort interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

type serialOpener func(name string, mode *serial.Mode) (serialPort, error)

func openSerialPort(name string, mode *serial.Mode) (serialPort, error) {
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Serial talks to the debug port over a local serial line at 8N1.
//
// A read that times out returns (0, nil), as go.bug.st/serial does.
type Serial struct {
	path string
	opts options
	open serialOpener
	port serialPort
}

// NewSerial creates an unopened serial transport for the device path.
func NewSerial(path string, opts ...Option) *Serial {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Serial{
		path: path,
		opts: o,
		open: openSerialPort,
	}
}

// Open opens the serial device. A handle that is already open is closed
// first, and a failed open is retried once.
func (s *Serial) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &OpenError{Endpoint: s.String(), Err: err}
	}

	if s.port != nil {
		_ = s.port.Close()
		s.port = nil
	}

	mode := &serial.Mode{
		BaudRate: s.opts.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := s.open(s.path, mode)
	if err != nil {
		p, err = s.open(s.path, mode)
		if err != nil {
			return &OpenError{Endpoint: s.String(), Err: err}
		}
	}

	if err := p.SetReadTimeout(s.opts.timeout); err != nil {
		_ = p.Close()
		return &OpenError{Endpoint: s.String(), Err: err}
	}

	s.port = p
	return nil
}

// Close closes the serial device.
func (s *Serial) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// IsOpen reports whether the device is open.
func (s *Serial) IsOpen() bool {
	return s.port != nil
}

func (s *Serial) Read(p []byte) (int, error) {
	if s.port == nil {
		return 0, ErrNotOpen
	}
	return s.port.Read(p)
}

func (s *Serial) Write(p []byte) (int, error) {
	if s.port == nil {
		return 0, ErrNotOpen
	}
	return s.port.Write(p)
}

func (s *Serial) String() string {
	return SerialEndpoint(s.path).String()
}
