package debugport

import (
	"errors"
	"fmt"
	"time"

	"github.com/pweingar/FoenixMgr/protocol"
)

// WriteError indicates that a request frame could not be written in full.
type WriteError struct {
	Command  byte
	Written  int
	Expected int
	Err      error
}

func (e *WriteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: wrote %d of %d bytes: %v",
			protocol.CommandName(e.Command), e.Written, e.Expected, e.Err)
	}
	return fmt.Sprintf("%s: wrote %d of %d bytes",
		protocol.CommandName(e.Command), e.Written, e.Expected)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ResponseTimeoutError indicates that a complete response did not arrive.
// Skipped counts the stray bytes discarded while looking for the sync byte.
type ResponseTimeoutError struct {
	Command byte
	Skipped int
	Elapsed time.Duration
	Err     error
}

func (e *ResponseTimeoutError) Error() string {
	msg := fmt.Sprintf("%s: no response after %s (%d bytes skipped)",
		protocol.CommandName(e.Command), e.Elapsed.Round(time.Millisecond), e.Skipped)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResponseTimeoutError) Unwrap() error {
	return e.Err
}

// ChecksumError indicates a response whose checksum does not match its
// contents. It is only reported when checksum validation is enabled.
type ChecksumError struct {
	Command  byte
	Expected byte
	Actual   byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%s: response checksum mismatch: expected 0x%02X, got 0x%02X",
		protocol.CommandName(e.Command), e.Expected, e.Actual)
}

// Causes wrapped by ResponseTimeoutError when the resync bounds are hit.
var (
	ErrResyncLimit      = errors.New("resync limit reached")
	ErrResponseDeadline = errors.New("response deadline exceeded")
)
