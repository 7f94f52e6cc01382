package loader

import (
	"context"
	"io"

	"github.com/marcinbor85/gohex"

	"github.com/pweingar/FoenixMgr/memblock"
)

// LoadIntelHex parses an Intel HEX stream and writes each data segment
// through w in pieces of at most MaxWriteSize bytes. Segments are emitted in
// the order gohex reports them.
func LoadIntelHex(ctx context.Context, r io.Reader, w memblock.Writer) error {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return &MalformedImageError{Format: "ihex", Reason: "parse", Err: err}
	}

	for _, segment := range mem.GetDataSegments() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeChunked(ctx, w, segment.Address, segment.Data); err != nil {
			return err
		}
	}
	return nil
}
