package manager

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// BulkEntry maps one flash sector to the file that fills it.
type BulkEntry struct {
	Sector int
	File   string
}

// ParseBulkCSV reads "sector,file" rows. Sector numbers are hexadecimal.
// Blank lines are ignored and extra columns are allowed.
func ParseBulkCSV(r io.Reader) ([]BulkEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var entries []BulkEntry
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read bulk CSV")
		}
		line, _ := cr.FieldPos(0)
		if len(record) < 2 {
			return nil, errors.Errorf("bulk CSV line %d: want sector and file, got %d fields", line, len(record))
		}

		id := strings.TrimSpace(record[0])
		id = strings.TrimPrefix(strings.TrimPrefix(id, "0x"), "0X")
		sector, err := strconv.ParseUint(id, 16, 8)
		if err != nil {
			return nil, errors.Wrapf(err, "bulk CSV line %d: bad sector %q", line, record[0])
		}

		file := strings.TrimSpace(record[1])
		if file == "" {
			return nil, errors.Errorf("bulk CSV line %d: empty file name", line)
		}
		entries = append(entries, BulkEntry{Sector: int(sector), File: file})
	}
	return entries, nil
}

// OpenFunc opens a file named in a bulk mapping.
type OpenFunc func(name string) (io.ReadCloser, error)

// ProgramFlashBulk programs each listed sector from its file. Each file is
// uploaded to RAM at address 0 and then programmed into its sector. With
// preErase the whole flash is erased once up front; otherwise each sector
// is erased just before it is programmed.
func (m *Manager) ProgramFlashBulk(ctx context.Context, entries []BulkEntry, preErase bool, open OpenFunc) error {
	return m.inDebug(ctx, func() error {
		if preErase {
			m.report(Progress{Phase: PhaseErasing})
			m.logInfo("erasing flash")
			if err := m.dev.EraseFlash(ctx); err != nil {
				return errors.Wrap(err, "erase flash")
			}
		}

		total := 0
		for _, e := range entries {
			m.logInfo("programming sector", "sector", e.Sector, "file", e.File)

			n, err := m.uploadFile(ctx, e.File, open)
			if err != nil {
				return err
			}
			total += n

			if !preErase {
				m.report(Progress{Phase: PhaseErasing, BytesWritten: total})
				if err := m.dev.EraseFlashSector(ctx, e.Sector); err != nil {
					return errors.Wrapf(err, "erase sector 0x%02X", e.Sector)
				}
			}
			m.report(Progress{Phase: PhaseProgramming, BytesWritten: total})
			if err := m.dev.ProgramFlashSector(ctx, e.Sector); err != nil {
				return errors.Wrapf(err, "program sector 0x%02X", e.Sector)
			}
		}

		m.reportDone(total)
		return nil
	})
}

func (m *Manager) uploadFile(ctx context.Context, name string, open OpenFunc) (int, error) {
	f, err := open(name)
	if err != nil {
		return 0, errors.Wrapf(err, "open %s", name)
	}
	defer f.Close()

	n, err := m.upload(ctx, f, 0, 0, -1)
	if err != nil {
		return n, errors.Wrapf(err, "upload %s", name)
	}
	return n, nil
}
