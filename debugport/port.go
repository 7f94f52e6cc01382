package debugport

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/pweingar/FoenixMgr/protocol"
	"github.com/pweingar/FoenixMgr/transport"
)

// Port is a session with the Foenix debug port.
//
// Port is not safe for concurrent use. It owns its transport for its whole
// lifetime.
type Port struct {
	t       transport.Transport
	config  Config
	sleep   func(ctx context.Context, d time.Duration) error
	status0 byte
	status1 byte
}

// New creates a Port on the given transport.
//
// Example:
//
//	t, _ := transport.New(transport.TCPEndpoint("192.168.1.114", 2560))
//	port := debugport.New(t,
//	    debugport.WithLogger(logger),
//	    debugport.WithResponseTimeout(30*time.Second),
//	)
func New(t transport.Transport, opts ...Option) *Port {
	if t == nil {
		panic("transport cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Port{
		t:      t,
		config: cfg,
		sleep:  sleepContext,
	}
}

// Open opens the underlying transport.
func (p *Port) Open(ctx context.Context) error {
	if err := p.t.Open(ctx); err != nil {
		return err
	}
	p.logDebug("port opened", "transport", fmt.Sprint(p.t))
	return nil
}

// Close closes the underlying transport.
func (p *Port) Close() error {
	return p.t.Close()
}

// IsOpen reports whether the underlying transport is open.
func (p *Port) IsOpen() bool {
	return p.t.IsOpen()
}

// Status returns the two status bytes of the last response.
func (p *Port) Status() (status0, status1 byte) {
	return p.status0, p.status1
}

// Transfer sends one request and reads its response.
//
// The length field carries len(data) when data is non-empty and readLength
// otherwise. readLength bytes of response data are read and returned; for
// commands that return no data the result is nil. The status bytes are kept
// for Status.
//
// The context is checked before the frame is written. Once the frame is on
// the wire the response is read to completion or until it times out.
func (p *Port) Transfer(ctx context.Context, command byte, address uint32, data []byte, readLength int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.status0, p.status1 = 0, 0

	frame, err := protocol.BuildRequest(command, address, data, readLength)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", protocol.CommandName(command), err)
	}

	p.logDebug("request",
		"command", protocol.CommandName(command),
		"address", fmt.Sprintf("0x%06X", address),
		"frame", hexPreview(frame),
	)

	n, err := p.t.Write(frame)
	if err != nil || n != len(frame) {
		werr := &WriteError{Command: command, Written: n, Expected: len(frame), Err: err}
		p.logError("write failed", "error", werr)
		return nil, werr
	}

	resp, err := p.readResponse(command, readLength)
	if err != nil {
		p.logError("response failed", "error", err)
		return nil, err
	}

	p.status0, p.status1 = resp.Status0, resp.Status1
	p.logDebug("response",
		"command", protocol.CommandName(command),
		"status0", fmt.Sprintf("0x%02X", resp.Status0),
		"status1", fmt.Sprintf("0x%02X", resp.Status1),
		"data", len(resp.Data),
	)

	if p.config.VerifyResponseChecksum && !resp.VerifyResponse() {
		return nil, &ChecksumError{
			Command:  command,
			Expected: resp.ExpectedChecksum(),
			Actual:   resp.Checksum,
		}
	}

	return resp.Data, nil
}

// readResponse skips noise up to the sync byte, then reads the status
// bytes, readLength data bytes and the checksum.
func (p *Port) readResponse(command byte, readLength int) (*protocol.Response, error) {
	start := time.Now()
	skipped := 0

	timeout := func(err error) error {
		return &ResponseTimeoutError{
			Command: command,
			Skipped: skipped,
			Elapsed: time.Since(start),
			Err:     err,
		}
	}

	for {
		b, err := transport.ReadFull(p.t, 1)
		if err != nil {
			if transport.IsTimeout(err) {
				return nil, timeout(err)
			}
			return nil, fmt.Errorf("%s: read response: %w", protocol.CommandName(command), err)
		}
		if b[0] == protocol.ResponseSync {
			break
		}

		skipped++
		if skipped > p.config.ResyncLimit {
			return nil, timeout(ErrResyncLimit)
		}
		if p.config.ResponseTimeout > 0 && time.Since(start) > p.config.ResponseTimeout {
			return nil, timeout(ErrResponseDeadline)
		}
	}

	if skipped > 0 {
		p.logDebug("resynchronized", "skipped", skipped)
	}

	rest, err := transport.ReadFull(p.t, protocol.MinResponseSize-1+readLength)
	if err != nil {
		if transport.IsTimeout(err) {
			return nil, timeout(err)
		}
		return nil, fmt.Errorf("%s: read response: %w", protocol.CommandName(command), err)
	}

	frame := make([]byte, 0, protocol.MinResponseSize+readLength)
	frame = append(frame, protocol.ResponseSync)
	frame = append(frame, rest...)
	return protocol.ParseResponse(frame, readLength)
}

// WriteBlock writes data into device memory at address.
func (p *Port) WriteBlock(ctx context.Context, address uint32, data []byte) error {
	_, err := p.Transfer(ctx, protocol.CmdWriteMem, address, data, 0)
	return err
}

// ReadBlock reads length bytes of device memory starting at address.
func (p *Port) ReadBlock(ctx context.Context, address uint32, length int) ([]byte, error) {
	return p.Transfer(ctx, protocol.CmdReadMem, address, nil, length)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// hexPreview renders at most 32 bytes of a frame for debug logs.
func hexPreview(b []byte) string {
	const max = 32
	if len(b) <= max {
		return hex.EncodeToString(b)
	}
	return fmt.Sprintf("%s... (%d bytes)", hex.EncodeToString(b[:max]), len(b))
}

// logDebug logs a debug message if a logger is configured.
func (p *Port) logDebug(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (p *Port) logInfo(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (p *Port) logError(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Error(msg, keysAndValues...)
	}
}
