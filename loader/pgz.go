package loader

import (
	"context"
	"fmt"

	"github.com/pweingar/FoenixMgr/memblock"
)

// PGZ signatures select the width of the address and size fields.
const (
	PGZMagic32 = 'z'
	PGZMagic24 = 'Z'
)

// LoadPGZ decodes a PGZ image and writes its blocks through w.
//
// The image is a signature byte followed by records of address, size and
// data. A zero address ends the image. A record with a non-zero address
// and zero size is the start address and patches the reset vector for cpu.
// Data blocks are written in pieces of at most MaxWriteSize bytes.
func LoadPGZ(ctx context.Context, image []byte, cpu CPU, w memblock.Writer) error {
	if len(image) == 0 {
		return &MalformedImageError{Format: "pgz", Reason: "empty image"}
	}

	var width int
	switch image[0] {
	case PGZMagic32:
		width = 4
	case PGZMagic24:
		width = 3
	default:
		return &MalformedImageError{
			Format: "pgz",
			Reason: fmt.Sprintf("unknown signature 0x%02X", image[0]),
		}
	}

	offset := 1
	for offset < len(image) {
		if err := ctx.Err(); err != nil {
			return err
		}

		addr, ok := readLE(image, offset, width)
		if !ok {
			return &MalformedImageError{Format: "pgz", Offset: offset, Reason: "truncated address"}
		}
		if addr == 0 {
			return nil
		}
		offset += width

		size, ok := readLE(image, offset, width)
		if !ok {
			return &MalformedImageError{Format: "pgz", Offset: offset, Reason: "truncated size"}
		}
		offset += width

		if size == 0 {
			if err := PatchStart(ctx, cpu, addr, w); err != nil {
				return err
			}
			continue
		}

		end := offset + int(size)
		if end > len(image) || end < offset {
			return &MalformedImageError{Format: "pgz", Offset: offset, Reason: "truncated data block"}
		}
		if err := writeChunked(ctx, w, addr, image[offset:end]); err != nil {
			return err
		}
		offset = end
	}
	return nil
}

func readLE(b []byte, offset, width int) (uint32, bool) {
	if offset+width > len(b) {
		return 0, false
	}
	var v uint32
	for i := width - 1; i >= 0; i-- {
		v = v<<8 | uint32(b[offset+i])
	}
	return v, true
}
