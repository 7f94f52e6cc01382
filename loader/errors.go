package loader

import "fmt"

// MalformedImageError indicates an image that cannot be decoded: a bad
// signature, a truncated field or block, or a CPU tag that does not match.
type MalformedImageError struct {
	Format string
	Offset int
	Reason string
	Err    error
}

func (e *MalformedImageError) Error() string {
	msg := fmt.Sprintf("malformed %s image at offset %d: %s", e.Format, e.Offset, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedImageError) Unwrap() error {
	return e.Err
}
