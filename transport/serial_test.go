package transport

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"go.bug.st/serial"
)

type fakePort struct {
	bytes.Buffer
	timeout time.Duration
	closed  bool
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.timeout = t
	return nil
}

// scriptedOpener fails the first `failures` calls, then returns fresh ports.
type scriptedOpener struct {
	failures int
	calls    int
	modes    []*serial.Mode
	ports    []*fakePort
}

func (o *scriptedOpener) open(name string, mode *serial.Mode) (serialPort, error) {
	o.calls++
	o.modes = append(o.modes, mode)
	if o.calls <= o.failures {
		return nil, errors.New("device busy")
	}
	p := &fakePort{}
	o.ports = append(o.ports, p)
	return p, nil
}

func newTestSerial(o *scriptedOpener, opts ...Option) *Serial {
	s := NewSerial("/dev/ttyFAKE", opts...)
	s.open = o.open
	return s
}

func TestSerialOpen(t *testing.T) {
	o := &scriptedOpener{}
	s := newTestSerial(o, WithBaudRate(115200), WithTimeout(5*time.Second))

	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !s.IsOpen() {
		t.Fatal("IsOpen = false after Open")
	}

	mode := o.modes[0]
	if mode.BaudRate != 115200 || mode.DataBits != 8 || mode.Parity != serial.NoParity || mode.StopBits != serial.OneStopBit {
		t.Errorf("mode = %+v, want 115200 8N1", mode)
	}
	if o.ports[0].timeout != 5*time.Second {
		t.Errorf("read timeout = %v, want 5s", o.ports[0].timeout)
	}
}

func TestSerialOpenRetriesOnce(t *testing.T) {
	o := &scriptedOpener{failures: 1}
	s := newTestSerial(o)

	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if o.calls != 2 {
		t.Errorf("open calls = %d, want 2", o.calls)
	}
}

func TestSerialOpenFails(t *testing.T) {
	o := &scriptedOpener{failures: 2}
	s := newTestSerial(o)

	err := s.Open(context.Background())
	var openErr *OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("error = %v, want *OpenError", err)
	}
	if openErr.Endpoint != "serial:/dev/ttyFAKE" {
		t.Errorf("Endpoint = %q", openErr.Endpoint)
	}
	if o.calls != 2 {
		t.Errorf("open calls = %d, want 2", o.calls)
	}
	if s.IsOpen() {
		t.Error("IsOpen = true after failure")
	}
}

func TestSerialReopenClosesPrevious(t *testing.T) {
	o := &scriptedOpener{}
	s := newTestSerial(o)

	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if !o.ports[0].closed {
		t.Error("first handle not closed on reopen")
	}
	if o.ports[1].closed {
		t.Error("second handle closed")
	}
}

func TestSerialReadWrite(t *testing.T) {
	o := &scriptedOpener{}
	s := newTestSerial(o)

	if _, err := s.Write([]byte{1}); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("Write before Open: %v", err)
	}
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, err := s.Write([]byte{0x55, 0xFE}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := ReadFull(s, 2)
	if err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if !bytes.Equal(got, []byte{0x55, 0xFE}) {
		t.Errorf("read %X", got)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !o.ports[0].closed {
		t.Error("port not closed")
	}
	if s.IsOpen() {
		t.Error("IsOpen after Close")
	}
}

func TestSerialOpenCanceled(t *testing.T) {
	o := &scriptedOpener{}
	s := newTestSerial(o)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Open(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if o.calls != 0 {
		t.Errorf("open calls = %d, want 0", o.calls)
	}
}
