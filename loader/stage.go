package loader

import (
	"context"

	"github.com/pweingar/FoenixMgr/memblock"
)

// Stage buffers writes in memory so an image can be coalesced and
// re-chunked before anything is sent to the device.
//
//	var st loader.Stage
//	_ = loader.LoadPGZ(ctx, image, cpu, &st)
//	_ = st.Flush(ctx, cfg.ChunkSize, port)
type Stage struct {
	list memblock.List
}

// WriteBlock records a copy of data at address.
func (s *Stage) WriteBlock(ctx context.Context, address uint32, data []byte) error {
	s.list.Add(memblock.NewBlock(address, data))
	return nil
}

// Blocks returns the staged blocks in write order, or in address order after
// Flush.
func (s *Stage) Blocks() []memblock.Block {
	return s.list.Blocks()
}

// Size returns the number of staged bytes.
func (s *Stage) Size() int {
	return s.list.Size()
}

// Align32 widens the staged blocks to 4-byte alignment for targets on a
// 32-bit bus.
func (s *Stage) Align32() {
	s.list.Align32()
}

// Flush coalesces the staged blocks and writes them through w in chunks of
// at most chunkSize bytes.
func (s *Stage) Flush(ctx context.Context, chunkSize int, w memblock.Writer) error {
	s.list.Coalesce()
	return s.list.Output(ctx, chunkSize, w)
}
