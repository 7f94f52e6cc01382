package manager

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/pweingar/FoenixMgr/config"
	"github.com/pweingar/FoenixMgr/debugport"
	"github.com/pweingar/FoenixMgr/loader"
	"github.com/pweingar/FoenixMgr/memblock"
)

// Device is the set of debug port commands the manager drives.
// *debugport.Port implements it.
type Device interface {
	memblock.Writer
	ReadBlock(ctx context.Context, address uint32, length int) ([]byte, error)
	EnterDebug(ctx context.Context) error
	ExitDebug(ctx context.Context) error
	EraseFlash(ctx context.Context) error
	ProgramFlash(ctx context.Context, address uint32) error
	EraseFlashSector(ctx context.Context, sector int) error
	ProgramFlashSector(ctx context.Context, sector int) error
	GetRevision(ctx context.Context) (byte, error)
	StopCPU(ctx context.Context) error
	StartCPU(ctx context.Context) error
	SetBootSource(ctx context.Context, src debugport.BootSource) error
}

var _ Device = (*debugport.Port)(nil)

// Manager runs fnxmgr operations against an open debug port.
type Manager struct {
	dev  Device
	cfg  *config.Config
	opts options
}

// New creates a Manager. The device must already be open. A nil cfg uses
// config.Default.
func New(dev Device, cfg *config.Config, opts ...Option) *Manager {
	if dev == nil {
		panic("manager: device cannot be nil")
	}
	if cfg == nil {
		cfg = config.Default()
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return &Manager{
		dev:  dev,
		cfg:  cfg,
		opts: o,
	}
}

// IsStopped reports whether the stop indicator file exists.
func (m *Manager) IsStopped() bool {
	if m.cfg.StopFile == "" {
		return false
	}
	_, err := os.Stat(m.cfg.StopFile)
	return err == nil
}

// inDebug runs fn between enter and exit debug. With the CPU stopped the
// device is already quiet and fn runs on its own.
func (m *Manager) inDebug(ctx context.Context, fn func() error) error {
	if m.IsStopped() {
		m.logDebug("CPU stopped, not entering debug mode", "stop_file", m.cfg.StopFile)
		return fn()
	}

	if err := m.dev.EnterDebug(ctx); err != nil {
		return errors.Wrap(err, "enter debug mode")
	}

	err := fn()

	// Exit even after a failure so the machine is not left halted.
	if exitErr := m.dev.ExitDebug(ctx); exitErr != nil && err == nil {
		err = errors.Wrap(exitErr, "exit debug mode")
	}
	return err
}

// Revision returns the debug interface revision code.
func (m *Manager) Revision(ctx context.Context) (byte, error) {
	var rev byte
	err := m.inDebug(ctx, func() error {
		var err error
		rev, err = m.dev.GetRevision(ctx)
		return err
	})
	return rev, err
}

// Dump reads n bytes starting at address in chunk sized reads.
func (m *Manager) Dump(ctx context.Context, address uint32, n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.Errorf("invalid dump length %d", n)
	}

	out := make([]byte, 0, n)
	err := m.inDebug(ctx, func() error {
		for len(out) < n {
			size := n - len(out)
			if size > m.cfg.ChunkSize {
				size = m.cfg.ChunkSize
			}
			addr := address + uint32(len(out))
			data, err := m.dev.ReadBlock(ctx, addr, size)
			if err != nil {
				return errors.Wrapf(err, "read 0x%06X", addr)
			}
			out = append(out, data...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Dereference reads the 24-bit little-endian pointer stored at address.
func (m *Manager) Dereference(ctx context.Context, address uint32) (uint32, error) {
	data, err := m.Dump(ctx, address, 3)
	if err != nil {
		return 0, err
	}
	return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16, nil
}

// UploadBinary copies r into device memory at address and returns the
// number of bytes written.
func (m *Manager) UploadBinary(ctx context.Context, r io.Reader, address uint32) (int, error) {
	var n int
	err := m.inDebug(ctx, func() error {
		var err error
		n, err = m.upload(ctx, r, address, 0, -1)
		return err
	})
	if err != nil {
		return n, err
	}
	m.reportDone(n)
	return n, nil
}

// upload streams up to limit bytes of r to consecutive addresses in chunk
// sized writes. A negative limit reads r to the end.
func (m *Manager) upload(ctx context.Context, r io.Reader, address uint32, total, limit int) (int, error) {
	tr := m.newTracker(PhaseUploading, total)
	written := 0
	buf := make([]byte, m.cfg.ChunkSize)

	for limit < 0 || written < limit {
		chunk := buf
		if limit >= 0 && limit-written < len(chunk) {
			chunk = chunk[:limit-written]
		}
		n, readErr := io.ReadFull(r, chunk)
		if n > 0 {
			addr := address + uint32(written)
			if err := m.dev.WriteBlock(ctx, addr, chunk[:n]); err != nil {
				return written, errors.Wrapf(err, "write 0x%06X", addr)
			}
			written += n
			tr.update(written)
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return written, errors.Wrap(readErr, "read input")
		}
	}
	return written, nil
}

// ProgramFlash uploads r to RAM at address, erases the whole flash and
// programs it from that RAM image.
func (m *Manager) ProgramFlash(ctx context.Context, r io.Reader, address uint32) error {
	var written int
	err := m.inDebug(ctx, func() error {
		var err error
		written, err = m.upload(ctx, r, address, 0, -1)
		if err != nil {
			return err
		}

		m.report(Progress{Phase: PhaseErasing, BytesWritten: written, TotalBytes: written})
		m.logInfo("erasing flash")
		if err := m.dev.EraseFlash(ctx); err != nil {
			return errors.Wrap(err, "erase flash")
		}

		m.report(Progress{Phase: PhaseProgramming, BytesWritten: written, TotalBytes: written})
		m.logInfo("programming flash", "address", address)
		if err := m.dev.ProgramFlash(ctx, address); err != nil {
			return errors.Wrap(err, "program flash")
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.reportDone(written)
	return nil
}

// EraseFlash erases the entire flash.
func (m *Manager) EraseFlash(ctx context.Context) error {
	return m.inDebug(ctx, func() error {
		m.logInfo("erasing flash")
		return errors.Wrap(m.dev.EraseFlash(ctx), "erase flash")
	})
}

func (m *Manager) checkSectorGeometry() error {
	t := m.cfg.Target
	if t.PageSize == 0 {
		return &config.ConfigurationError{Key: "page_size", Reason: "flash page size is not set for target " + quoteTarget(t)}
	}
	if t.SectorSize == 0 {
		return &config.ConfigurationError{Key: "sector_size", Reason: "flash sector size is not set for target " + quoteTarget(t)}
	}
	if t.RAMSize == 0 {
		return &config.ConfigurationError{Key: "ram_size", Reason: "RAM window size is not set for target " + quoteTarget(t)}
	}
	return nil
}

func quoteTarget(t config.Target) string {
	if t.Name == "" {
		return `""`
	}
	return t.Name
}

// ProgramFlashSector writes one sector of flash from r. The data passes
// through the RAM window at address 0; each time the window fills, the next
// flash page is erased and programmed from it.
func (m *Manager) ProgramFlashSector(ctx context.Context, r io.Reader, sector int) error {
	if err := m.checkSectorGeometry(); err != nil {
		return err
	}
	t := m.cfg.Target
	sectorBytes := t.SectorBytes()
	window := t.RAMBytes()
	page := sector * t.PagesPerSector()

	var written int
	err := m.inDebug(ctx, func() error {
		tr := m.newTracker(PhaseUploading, sectorBytes)
		buf := make([]byte, m.cfg.ChunkSize)
		address := 0

		for written < sectorBytes {
			chunk := buf
			if sectorBytes-written < len(chunk) {
				chunk = chunk[:sectorBytes-written]
			}
			n, readErr := io.ReadFull(r, chunk)
			if n > 0 {
				if err := m.dev.WriteBlock(ctx, uint32(address), chunk[:n]); err != nil {
					return errors.Wrapf(err, "write 0x%06X", address)
				}
				address += n
				written += n
				tr.update(written)

				if address >= window {
					if err := m.flashPage(ctx, page); err != nil {
						return err
					}
					page++
					address = 0
				}
			}
			if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
				break
			}
			if readErr != nil {
				return errors.Wrap(readErr, "read input")
			}
		}

		if address > 0 {
			return m.flashPage(ctx, page)
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.reportDone(written)
	return nil
}

func (m *Manager) flashPage(ctx context.Context, page int) error {
	m.logDebug("erasing flash page", "page", page)
	if err := m.dev.EraseFlashSector(ctx, page); err != nil {
		return errors.Wrapf(err, "erase page %d", page)
	}
	m.logDebug("programming flash page", "page", page)
	if err := m.dev.ProgramFlashSector(ctx, page); err != nil {
		return errors.Wrapf(err, "program page %d", page)
	}
	return nil
}

// SetBootSource selects RAM or flash as the boot source.
func (m *Manager) SetBootSource(ctx context.Context, src debugport.BootSource) error {
	return m.inDebug(ctx, func() error {
		return m.dev.SetBootSource(ctx, src)
	})
}

// StopCPU halts the CPU and creates the stop indicator file.
func (m *Manager) StopCPU(ctx context.Context) error {
	if err := m.dev.StopCPU(ctx); err != nil {
		return errors.Wrap(err, "stop CPU")
	}
	if m.cfg.StopFile == "" {
		return nil
	}
	f, err := os.Create(m.cfg.StopFile)
	if err != nil {
		return errors.Wrap(err, "create stop indicator")
	}
	return f.Close()
}

// StartCPU restarts the CPU and removes the stop indicator file.
func (m *Manager) StartCPU(ctx context.Context) error {
	if err := m.dev.StartCPU(ctx); err != nil {
		return errors.Wrap(err, "start CPU")
	}
	if m.cfg.StopFile == "" {
		return nil
	}
	if err := os.Remove(m.cfg.StopFile); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove stop indicator")
	}
	return nil
}

// RunPGZ loads a PGZ image and arms the CPU to start it on exit from debug.
func (m *Manager) RunPGZ(ctx context.Context, image []byte) error {
	return m.load(ctx, func(w memblock.Writer, cpu loader.CPU) error {
		return loader.LoadPGZ(ctx, image, cpu, w)
	})
}

// RunPGX loads a PGX image and arms the CPU to start it on exit from debug.
func (m *Manager) RunPGX(ctx context.Context, image []byte) error {
	return m.load(ctx, func(w memblock.Writer, cpu loader.CPU) error {
		return loader.LoadPGX(ctx, image, cpu, w)
	})
}

// UploadHex loads an Intel HEX file into memory.
func (m *Manager) UploadHex(ctx context.Context, r io.Reader) error {
	return m.load(ctx, func(w memblock.Writer, cpu loader.CPU) error {
		return loader.LoadIntelHex(ctx, r, w)
	})
}

func (m *Manager) load(ctx context.Context, fn func(w memblock.Writer, cpu loader.CPU) error) error {
	cpu, err := m.cfg.CPUType()
	if err != nil {
		return err
	}

	if !m.opts.coalesce {
		var written int
		w := memblock.WriterFunc(func(ctx context.Context, address uint32, data []byte) error {
			if err := m.dev.WriteBlock(ctx, address, data); err != nil {
				return err
			}
			written += len(data)
			m.report(Progress{Phase: PhaseUploading, BytesWritten: written})
			return nil
		})
		if err := m.inDebug(ctx, func() error { return fn(w, cpu) }); err != nil {
			return err
		}
		m.reportDone(written)
		return nil
	}

	// Parse the whole image before touching the device.
	var st loader.Stage
	if err := fn(&st, cpu); err != nil {
		return err
	}
	if cpu.Wide() {
		st.Align32()
	}
	total := st.Size()
	err = m.inDebug(ctx, func() error {
		tr := m.newTracker(PhaseUploading, total)
		written := 0
		w := memblock.WriterFunc(func(ctx context.Context, address uint32, data []byte) error {
			if err := m.dev.WriteBlock(ctx, address, data); err != nil {
				return err
			}
			written += len(data)
			tr.update(written)
			return nil
		})
		return st.Flush(ctx, m.cfg.ChunkSize, w)
	})
	if err != nil {
		return err
	}
	m.reportDone(total)
	return nil
}

type tracker struct {
	m     *Manager
	phase string
	total int
	start time.Time
}

func (m *Manager) newTracker(phase string, total int) *tracker {
	return &tracker{m: m, phase: phase, total: total, start: time.Now()}
}

func (t *tracker) update(written int) {
	p := Progress{
		Phase:        t.phase,
		BytesWritten: written,
		TotalBytes:   t.total,
		ElapsedTime:  time.Since(t.start),
	}
	if t.total > 0 {
		p.Percentage = float64(written) / float64(t.total) * 100
		if p.Percentage > 100 {
			p.Percentage = 100
		}
	}
	t.m.report(p)
}

func (m *Manager) reportDone(written int) {
	m.report(Progress{
		Phase:        PhaseComplete,
		BytesWritten: written,
		TotalBytes:   written,
		Percentage:   100,
	})
}

// report calls the progress callback if configured.
func (m *Manager) report(p Progress) {
	if m.opts.progress != nil {
		m.opts.progress(p)
	}
}

func (m *Manager) logDebug(msg string, keysAndValues ...interface{}) {
	if m.opts.logger != nil {
		m.opts.logger.Debug(msg, keysAndValues...)
	}
}

func (m *Manager) logInfo(msg string, keysAndValues ...interface{}) {
	if m.opts.logger != nil {
		m.opts.logger.Info(msg, keysAndValues...)
	}
}
