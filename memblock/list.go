package memblock

import (
	"context"
	"fmt"
	"sort"
)

// List is an ordered collection of blocks. The zero value is empty and
// ready to use.
type List struct {
	blocks []Block
}

// Add appends a block.
func (l *List) Add(b Block) {
	l.blocks = append(l.blocks, b)
}

// Blocks returns the blocks in their current order.
func (l *List) Blocks() []Block {
	return l.blocks
}

// Len returns the number of blocks.
func (l *List) Len() int {
	return len(l.blocks)
}

// Size returns the total number of bytes across all blocks.
func (l *List) Size() int {
	n := 0
	for _, b := range l.blocks {
		n += b.Size()
	}
	return n
}

// Coalesce sorts the blocks by address and merges each block into its
// predecessor when the two are adjacent. Blocks sharing an address keep
// their insertion order.
func (l *List) Coalesce() {
	if len(l.blocks) == 0 {
		return
	}

	sorted := make([]Block, len(l.blocks))
	copy(sorted, l.blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Address < sorted[j].Address
	})

	merged := make([]Block, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if current.CanCoalesce(next) {
			// Adjacency was just checked.
			current, _ = current.Coalesce(next)
			continue
		}
		merged = append(merged, current)
		current = next
	}
	l.blocks = append(merged, current)
}

// Pad32 pads every block to 4-byte alignment.
func (l *List) Pad32() {
	for i, b := range l.blocks {
		l.blocks[i] = b.Pad32()
	}
}

// Align32 coalesces the list and pads every block to 4-byte alignment.
// Blocks whose padded ranges overlap or touch are merged, so zero padding
// never lands on bytes another block carries.
func (l *List) Align32() {
	l.Coalesce()
	if len(l.blocks) == 0 {
		return
	}
	original := append([]Block(nil), l.blocks...)
	l.Pad32()

	var out []Block
	span, first := l.blocks[0], 0
	for i := 1; i < len(l.blocks); i++ {
		next := l.blocks[i]
		if next.Address <= span.End() {
			if next.End() > span.End() {
				span = Block{Address: span.Address, Data: make([]byte, next.End()-span.Address)}
			}
			continue
		}
		out = append(out, overlay(span, original[first:i]))
		span, first = next, i
	}
	l.blocks = append(out, overlay(span, original[first:]))
}

// overlay copies the data of each block in group into a zeroed span.
func overlay(span Block, group []Block) Block {
	data := make([]byte, len(span.Data))
	for _, b := range group {
		copy(data[b.Address-span.Address:], b.Data)
	}
	return Block{Address: span.Address, Data: data}
}

// Output writes every block, in list order, through w in chunks of at most
// chunkSize bytes.
func (l *List) Output(ctx context.Context, chunkSize int, w Writer) error {
	if chunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	for _, b := range l.blocks {
		if err := b.Output(ctx, chunkSize, w); err != nil {
			return err
		}
	}
	return nil
}
