package loader

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/pweingar/FoenixMgr/memblock"
)

const (
	pgxSignature  = "PGX"
	pgxHeaderSize = 8
)

// PGX CPU codes, stored in the low nibble of byte 3.
const (
	pgxCPU65816 = 1
	pgxCPU680x0 = 2
	pgxCPU65C02 = 3
)

// PGXHeader is the decoded fixed header of a PGX image.
type PGXHeader struct {
	CPU     CPU
	Version byte
	Address uint32
}

// ParsePGXHeader decodes the 8 byte PGX header.
func ParsePGXHeader(image []byte) (PGXHeader, error) {
	if len(image) < pgxHeaderSize {
		return PGXHeader{}, &MalformedImageError{Format: "pgx", Offset: len(image), Reason: "truncated header"}
	}
	if !bytes.Equal(image[:3], []byte(pgxSignature)) {
		return PGXHeader{}, &MalformedImageError{Format: "pgx", Reason: fmt.Sprintf("bad signature %q", image[:3])}
	}

	h := PGXHeader{Version: image[3] >> 4}
	switch image[3] & 0x0F {
	case pgxCPU65816:
		h.CPU = CPU65816
	case pgxCPU680x0:
		h.CPU = CPU680x0
	case pgxCPU65C02:
		h.CPU = CPU65C02
	default:
		return PGXHeader{}, &MalformedImageError{
			Format: "pgx",
			Offset: 3,
			Reason: fmt.Sprintf("unknown cpu code %d", image[3]&0x0F),
		}
	}

	if h.CPU == CPU680x0 {
		h.Address = binary.BigEndian.Uint32(image[4:8])
	} else {
		h.Address = binary.LittleEndian.Uint32(image[4:8])
	}
	return h, nil
}

// LoadPGX decodes a PGX image, writes its payload at the load address and
// then patches the reset vector so the CPU starts there.
//
// The CPU recorded in the image must match cpu.
func LoadPGX(ctx context.Context, image []byte, cpu CPU, w memblock.Writer) error {
	h, err := ParsePGXHeader(image)
	if err != nil {
		return err
	}
	if h.CPU != cpu && !(h.CPU.Is68k() && cpu.Is68k()) {
		return &MalformedImageError{
			Format: "pgx",
			Offset: 3,
			Reason: fmt.Sprintf("image targets %v, machine is %v", h.CPU, cpu),
		}
	}

	if err := writeChunked(ctx, w, h.Address, image[pgxHeaderSize:]); err != nil {
		return err
	}
	return PatchStart(ctx, cpu, h.Address, w)
}
