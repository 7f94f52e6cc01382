// Package relay repeats debug port frames between a TCP client and a local
// serial line.
//
// The relay knows just enough of the protocol to find frame boundaries: it
// reads the 7 byte request header, the payload only for write-memory, and
// the checksum, forwards the frame unchanged, then reads the response
// prefix, the payload only for a non-empty read-memory, and the checksum.
// One client is served at a time.
package relay

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/pweingar/FoenixMgr/debugport"
	"github.com/pweingar/FoenixMgr/protocol"
	"github.com/pweingar/FoenixMgr/transport"
)

// OpenFunc returns an unopened transport to the device. It is called once
// per client session.
type OpenFunc func() (transport.Transport, error)

// Server is a single client TCP to serial relay.
type Server struct {
	open   OpenFunc
	logger debugport.Logger

	mu     sync.Mutex
	active net.Conn
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a logger for session events.
func WithLogger(logger debugport.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a relay that opens the device with open for every client.
//
// Example:
//
//	srv := relay.New(func() (transport.Transport, error) {
//	    return transport.NewSerial("/dev/ttyUSB0"), nil
//	}, relay.WithLogger(logger))
//	err := srv.ListenAndServe(ctx, "0.0.0.0:2560")
func New(open OpenFunc, opts ...Option) *Server {
	if open == nil {
		panic("open func cannot be nil")
	}
	s := &Server{open: open}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListenAndServe listens on addr and serves clients until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts clients from ln one at a time. It returns nil once ctx is
// cancelled, closing ln and any active client.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		_ = ln.Close()
		s.closeActive()
		return nil
	})

	g.Go(func() error {
		defer ln.Close()
		s.logInfo("listening", "addr", ln.Addr().String())
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return errors.Wrap(err, "accept")
			}
			s.setActive(conn)
			if err := s.ServeConn(gctx, conn); err != nil {
				s.logError("session ended", "error", err)
			}
			s.setActive(nil)
			_ = conn.Close()
			if ctx.Err() != nil {
				return nil
			}
		}
	})

	return g.Wait()
}

// ServeConn relays frames for a single client until it disconnects. The
// device transport is opened at the start and closed at the end.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) error {
	id := uuid.NewString()
	remote := conn.RemoteAddr().String()
	s.logInfo("client connected", "session", id, "remote", remote)

	dev, err := s.open()
	if err != nil {
		return errors.Wrap(err, "create device transport")
	}
	if err := dev.Open(ctx); err != nil {
		return err
	}
	defer dev.Close()

	frames := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		h, request, err := readRequest(conn)
		if err == io.EOF {
			s.logInfo("client disconnected", "session", id, "frames", frames)
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "session %s: read request", id)
		}

		s.logDebug("request",
			"session", id,
			"command", protocol.CommandName(h.Command),
			"length", h.Length,
		)

		n, err := dev.Write(request)
		if err != nil {
			return errors.Wrapf(err, "session %s: forward request", id)
		}
		if n != len(request) {
			return errors.Errorf("session %s: forward request: wrote %d of %d bytes", id, n, len(request))
		}

		response, err := readResponse(dev, h)
		if err != nil {
			return errors.Wrapf(err, "session %s: read response", id)
		}

		if _, err := conn.Write(response); err != nil {
			return errors.Wrapf(err, "session %s: send response", id)
		}
		frames++
	}
}

// readRequest reads one request frame. An EOF before the first header byte
// is a clean disconnect and returns io.EOF.
func readRequest(r io.Reader) (protocol.RequestHeader, []byte, error) {
	header, err := transport.ReadFull(r, protocol.HeaderSize)
	if err != nil {
		return protocol.RequestHeader{}, nil, err
	}

	h := protocol.DecodeRequestHeader(header)

	need := protocol.ChecksumSize
	if h.CarriesData() {
		need += h.Length
	}
	rest, err := transport.ReadFull(r, need)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return h, nil, err
	}

	return h, append(header, rest...), nil
}

// readResponse reads the response to h from the device.
func readResponse(r io.Reader, h protocol.RequestHeader) ([]byte, error) {
	need := protocol.MinResponseSize
	if h.ExpectsData() {
		need += h.Length
	}
	resp, err := transport.ReadFull(r, need)
	if err != nil {
		return nil, fmt.Errorf("%d of %d bytes: %w", len(resp), need, err)
	}
	return resp, nil
}

func (s *Server) setActive(conn net.Conn) {
	s.mu.Lock()
	s.active = conn
	s.mu.Unlock()
}

func (s *Server) closeActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		_ = s.active.Close()
	}
}

func (s *Server) logDebug(msg string, keysAndValues ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, keysAndValues...)
	}
}

func (s *Server) logInfo(msg string, keysAndValues ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, keysAndValues...)
	}
}

func (s *Server) logError(msg string, keysAndValues ...interface{}) {
	if s.logger != nil {
		s.logger.Error(msg, keysAndValues...)
	}
}
