package manager

import (
	"context"
	"hash/crc32"
	"path/filepath"

	"github.com/pkg/errors"
)

// Transfer area used by the SD card copy request.
const (
	CopyFileAddress  = 0x010000
	CopyFileFlag     = 0x000080
	CopyFileMaxBytes = 7*65536 - 9*1024
)

var copyFileSignature = []byte("COPYFILE")

// CopyFile stages a file for the machine's firmware to write to its SD
// card. The file is laid out at 0x010000 as its base name, a NUL, a
// CRC-32 and a 24-bit length, all little-endian, followed by the data. The
// "COPYFILE" signature at 0x0080 then tells the firmware to pick it up.
func (m *Manager) CopyFile(ctx context.Context, name string, data []byte) error {
	base := filepath.Base(name)
	if len(data) >= CopyFileMaxBytes {
		return &FileTooLargeError{Name: base, Size: len(data), Limit: CopyFileMaxBytes}
	}

	crc := FileCRC(data)
	size := len(data)

	header := make([]byte, 0, len(base)+8)
	header = append(header, base...)
	header = append(header, 0)
	header = append(header, byte(crc), byte(crc>>8), byte(crc>>16), byte(crc>>24))
	header = append(header, byte(size), byte(size>>8), byte(size>>16))

	err := m.inDebug(ctx, func() error {
		if err := m.dev.WriteBlock(ctx, CopyFileAddress, header); err != nil {
			return errors.Wrap(err, "write copy header")
		}

		tr := m.newTracker(PhaseUploading, size)
		address := uint32(CopyFileAddress + len(header))
		for offset := 0; offset < size; offset += m.cfg.ChunkSize {
			end := offset + m.cfg.ChunkSize
			if end > size {
				end = size
			}
			if err := m.dev.WriteBlock(ctx, address+uint32(offset), data[offset:end]); err != nil {
				return errors.Wrapf(err, "write 0x%06X", address+uint32(offset))
			}
			tr.update(end)
		}

		if err := m.dev.WriteBlock(ctx, CopyFileFlag, copyFileSignature); err != nil {
			return errors.Wrap(err, "write copy request")
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.reportDone(size)
	return nil
}

// FileCRC is the reflected CRC-32 (polynomial 0xEDB88320) the firmware
// checks copied files with. It starts from zero and has no final inversion.
func FileCRC(data []byte) uint32 {
	return ^crc32.Update(0xFFFFFFFF, crc32.IEEETable, data)
}
