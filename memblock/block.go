package memblock

import (
	"context"
	"fmt"
)

// Block is a contiguous run of bytes destined for Address.
type Block struct {
	Address uint32
	Data    []byte
}

// NewBlock returns a block holding a copy of data.
func NewBlock(address uint32, data []byte) Block {
	return Block{Address: address, Data: append([]byte(nil), data...)}
}

// Size returns the number of bytes in the block.
func (b Block) Size() int {
	return len(b.Data)
}

// End returns the address one past the last byte.
func (b Block) End() uint32 {
	return b.Address + uint32(len(b.Data))
}

// CanCoalesce reports whether other starts where b ends or ends where b
// starts.
func (b Block) CanCoalesce(other Block) bool {
	return b.End() == other.Address || other.End() == b.Address
}

// Coalesce joins two adjacent blocks, in address order, into one.
func (b Block) Coalesce(other Block) (Block, error) {
	switch {
	case b.End() == other.Address:
		return Block{Address: b.Address, Data: concat(b.Data, other.Data)}, nil
	case other.End() == b.Address:
		return Block{Address: other.Address, Data: concat(other.Data, b.Data)}, nil
	default:
		return Block{}, &NotAdjacentError{A: b, B: other}
	}
}

// Pad32 returns the block widened to 4-byte alignment with zero bytes.
//
// A block that is already aligned at both ends is returned as is. Otherwise
// the start is rounded down to a multiple of 4 and 4-(end%4) zero bytes are
// appended, so an unaligned block whose end already sits on a boundary
// grows by a full word at the tail.
func (b Block) Pad32() Block {
	lead := b.Address % 4
	end := b.End()
	if lead == 0 && end%4 == 0 {
		return b
	}
	trail := 4 - end%4

	data := make([]byte, int(lead)+len(b.Data)+int(trail))
	copy(data[lead:], b.Data)
	return Block{Address: b.Address - lead, Data: data}
}

// Output writes the block through w in chunks of at most chunkSize bytes.
// The last chunk may be short. The first error stops the output.
func (b Block) Output(ctx context.Context, chunkSize int, w Writer) error {
	if chunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}

	for offset := 0; offset < len(b.Data); offset += chunkSize {
		end := offset + chunkSize
		if end > len(b.Data) {
			end = len(b.Data)
		}
		addr := b.Address + uint32(offset)
		if err := w.WriteBlock(ctx, addr, b.Data[offset:end]); err != nil {
			return fmt.Errorf("write block at 0x%06X: %w", addr, err)
		}
	}
	return nil
}

func (b Block) String() string {
	return fmt.Sprintf("[0x%06X, 0x%06X)", b.Address, b.End())
}

func concat(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// NotAdjacentError is returned when coalescing blocks that do not touch.
type NotAdjacentError struct {
	A Block
	B Block
}

func (e *NotAdjacentError) Error() string {
	return fmt.Sprintf("blocks %v and %v are not adjacent", e.A, e.B)
}
