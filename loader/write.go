package loader

import (
	"context"

	"github.com/pkg/errors"

	"github.com/pweingar/FoenixMgr/memblock"
)

// MaxWriteSize is the largest single write a loader issues. Bigger blocks
// are split at consecutive addresses.
const MaxWriteSize = 1024

func writeChunked(ctx context.Context, w memblock.Writer, address uint32, data []byte) error {
	for offset := 0; offset < len(data); offset += MaxWriteSize {
		end := offset + MaxWriteSize
		if end > len(data) {
			end = len(data)
		}
		addr := address + uint32(offset)
		if err := w.WriteBlock(ctx, addr, data[offset:end]); err != nil {
			return errors.Wrapf(err, "write 0x%06X", addr)
		}
	}
	return nil
}

func write(ctx context.Context, w memblock.Writer, address uint32, data []byte) error {
	if err := w.WriteBlock(ctx, address, data); err != nil {
		return errors.Wrapf(err, "write 0x%06X", address)
	}
	return nil
}

// Reset vector locations.
const (
	resetVector65xx = 0xFFFC
	resetVector68k  = 0x0004
	bootStub65816   = 0xFF80
	crossdevMagic   = 0x0080
	crossdevStart   = 0x0088
	kernelExtLen    = 0x00FA
)

var crossdevSignature = []byte("CROSSDEV")

// PatchStart makes the CPU begin execution at start on its next reset.
//
// On the 65816 a start address outside bank 0 cannot go in the 16-bit reset
// vector, so a native mode long jump stub is written at 0xFF80 and the
// vector points at it. On the 65C02 the reset vector is set and the
// microkernel CROSSDEV springboard is armed with an empty argument list. On
// the 680x0 the initial PC at address 4 is replaced.
func PatchStart(ctx context.Context, cpu CPU, start uint32, w memblock.Writer) error {
	lo, mid, hi := byte(start), byte(start>>8), byte(start>>16)

	switch cpu {
	case CPU65816:
		if start&0xFF0000 != 0 {
			// clc; xce; jml start
			stub := []byte{0x18, 0xFB, 0x5C, lo, mid, hi}
			if err := write(ctx, w, bootStub65816, stub); err != nil {
				return err
			}
			return write(ctx, w, resetVector65xx, []byte{byte(bootStub65816 & 0xFF), byte(bootStub65816 >> 8)})
		}
		return write(ctx, w, resetVector65xx, []byte{lo, mid})

	case CPU65C02:
		if err := write(ctx, w, resetVector65xx, []byte{lo, mid}); err != nil {
			return err
		}
		if err := write(ctx, w, crossdevMagic, crossdevSignature); err != nil {
			return err
		}
		if err := write(ctx, w, crossdevStart, []byte{lo, mid}); err != nil {
			return err
		}
		return write(ctx, w, kernelExtLen, []byte{0x00, 0x00})

	case CPU680x0, CPU68040:
		return write(ctx, w, resetVector68k, []byte{byte(start >> 24), hi, mid, lo})

	default:
		return errors.Errorf("cannot patch start address for %v", cpu)
	}
}
