package memblock

import "context"

// Writer stores bytes in device memory at an absolute address.
type Writer interface {
	WriteBlock(ctx context.Context, address uint32, data []byte) error
}

// WriterFunc adapts a function to the Writer interface.
type WriterFunc func(ctx context.Context, address uint32, data []byte) error

// WriteBlock calls f(ctx, address, data).
func (f WriterFunc) WriteBlock(ctx context.Context, address uint32, data []byte) error {
	return f(ctx, address, data)
}
