package transport

import (
	"context"
	"net"
	"time"
)

// Socket talks to a debug port relay over TCP.
//
// Each Read is a single receive and may return fewer bytes than requested.
// When a timeout is configured every Read carries a deadline.
type Socket struct {
	host string
	port int
	opts options
	conn net.Conn
}

// NewSocket creates an unopened TCP transport.
func NewSocket(host string, port int, opts ...Option) *Socket {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Socket{
		host: host,
		port: port,
		opts: o,
	}
}

// Open connects to the peer.
func (s *Socket) Open(ctx context.Context) error {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}

	d := net.Dialer{Timeout: s.opts.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", s.address())
	if err != nil {
		return &OpenError{Endpoint: s.String(), Err: err}
	}

	s.conn = conn
	return nil
}

// Close closes the connection.
func (s *Socket) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// IsOpen reports whether the connection is established.
func (s *Socket) IsOpen() bool {
	return s.conn != nil
}

func (s *Socket) Read(p []byte) (int, error) {
	if s.conn == nil {
		return 0, ErrNotOpen
	}
	if s.opts.timeout > 0 {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.opts.timeout)); err != nil {
			return 0, err
		}
	}
	return s.conn.Read(p)
}

// Write sends all of p; net.Conn reports an error for any shortfall.
func (s *Socket) Write(p []byte) (int, error) {
	if s.conn == nil {
		return 0, ErrNotOpen
	}
	return s.conn.Write(p)
}

func (s *Socket) address() string {
	return TCPEndpoint(s.host, s.port).Address()
}

func (s *Socket) String() string {
	return TCPEndpoint(s.host, s.port).String()
}
