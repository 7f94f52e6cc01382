package devicesim

import (
	"context"
	"net"
	"time"

	"github.com/pweingar/FoenixMgr/transport"
)

// PipeTransport connects a client to a Device through net.Pipe. Each Open
// starts a fresh serving goroutine.
type PipeTransport struct {
	dev     *Device
	timeout time.Duration
	conn    net.Conn
	done    chan error
}

var _ transport.Transport = (*PipeTransport)(nil)

// NewPipeTransport returns an unopened transport attached to dev. Reads fail
// with a deadline error after timeout so a broken test cannot hang.
func NewPipeTransport(dev *Device, timeout time.Duration) *PipeTransport {
	return &PipeTransport{dev: dev, timeout: timeout}
}

// Open starts the device side of the pipe.
func (p *PipeTransport) Open(ctx context.Context) error {
	if p.conn != nil {
		_ = p.Close()
	}
	client, server := net.Pipe()
	p.conn = client
	p.done = make(chan error, 1)
	go func() {
		err := p.dev.Serve(context.Background(), server)
		_ = server.Close()
		p.done <- err
	}()
	return nil
}

// Close closes the client end and waits for the device to finish.
func (p *PipeTransport) Close() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	<-p.done
	return err
}

// IsOpen reports whether the pipe is open.
func (p *PipeTransport) IsOpen() bool {
	return p.conn != nil
}

func (p *PipeTransport) Read(b []byte) (int, error) {
	if p.conn == nil {
		return 0, transport.ErrNotOpen
	}
	if p.timeout > 0 {
		if err := p.conn.SetReadDeadline(time.Now().Add(p.timeout)); err != nil {
			return 0, err
		}
	}
	return p.conn.Read(b)
}

func (p *PipeTransport) Write(b []byte) (int, error) {
	if p.conn == nil {
		return 0, transport.ErrNotOpen
	}
	return p.conn.Write(b)
}

func (p *PipeTransport) String() string {
	return "pipe:devicesim"
}
