package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Transport is a byte channel to the debug port.
//
// A Transport is owned by one debug port session at a time and is not safe
// for concurrent use.
type Transport interface {
	io.ReadWriter

	// Open establishes the connection.
	Open(ctx context.Context) error

	// Close releases the connection. Closing a closed transport is a no-op.
	Close() error

	// IsOpen reports whether the connection is established.
	IsOpen() bool
}

// ErrTimeout is returned by ReadFull when the transport stops delivering
// bytes before the requested count arrives.
var ErrTimeout = errors.New("transport read timed out")

// ErrNotOpen is returned when a closed transport is read or written.
var ErrNotOpen = errors.New("transport is not open")

// OpenError indicates that the device or socket could not be opened.
type OpenError struct {
	Endpoint string
	Err      error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Endpoint, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// Default transport settings.
const (
	// DefaultBaudRate is the debug port line rate
	DefaultBaudRate = 6000000

	// DefaultTimeout is the symmetric read/write timeout
	DefaultTimeout = 60 * time.Second

	// DefaultTCPPort is used when a TCP endpoint omits its port
	DefaultTCPPort = 2560
)

type options struct {
	baudRate    int
	timeout     time.Duration
	dialTimeout time.Duration
}

func defaultOptions() options {
	return options{
		baudRate:    DefaultBaudRate,
		timeout:     DefaultTimeout,
		dialTimeout: DefaultTimeout,
	}
}

// Option configures a Transport.
type Option func(*options)

// WithBaudRate sets the serial line rate.
func WithBaudRate(rate int) Option {
	return func(o *options) {
		if rate > 0 {
			o.baudRate = rate
		}
	}
}

// WithTimeout sets the read timeout. For sockets it also bounds the connect.
// Zero disables the socket read deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout >= 0 {
			o.timeout = timeout
		}
		if timeout > 0 {
			o.dialTimeout = timeout
		}
	}
}

// New creates an unopened Transport for the endpoint.
func New(ep Endpoint, opts ...Option) (Transport, error) {
	switch ep.Kind {
	case KindSerial:
		return NewSerial(ep.Path, opts...), nil
	case KindTCP:
		return NewSocket(ep.Host, ep.Port, opts...), nil
	default:
		return nil, errors.Errorf("endpoint %q has no concrete kind", ep.String())
	}
}

// ReadFull reads exactly n bytes from r.
//
// A read that returns no bytes and no error is a timeout, as is a deadline
// error from the underlying connection; both yield ErrTimeout. On error the
// bytes read so far are returned.
func ReadFull(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	for got < n {
		m, err := r.Read(buf[got:])
		got += m
		if err != nil {
			switch {
			case err == io.EOF && got == n:
				return buf, nil
			case err == io.EOF && got == 0:
				return nil, io.EOF
			case err == io.EOF:
				return buf[:got], io.ErrUnexpectedEOF
			case IsTimeout(err):
				return buf[:got], ErrTimeout
			default:
				return buf[:got], err
			}
		}
		if m == 0 {
			return buf[:got], ErrTimeout
		}
	}
	return buf, nil
}

// IsTimeout reports whether err is a transport timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
