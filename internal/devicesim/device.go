// Package devicesim is an in-memory Foenix that answers debug port frames.
//
// It keeps sparse RAM, a flash array and the CPU/debug state, and records
// every request it serves so tests can assert on the exact command stream.
package devicesim

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/pweingar/FoenixMgr/protocol"
)

// Status0 values returned by the simulator.
const (
	StatusOK          = 0x00
	StatusBadChecksum = 0x01
	StatusUnknown     = 0xFF
)

const bankSize = 0x10000

// Request is a frame received by the device.
type Request struct {
	Command byte
	Address uint32
	Length  int
	Data    []byte
}

// Device simulates the debug port side of a Foenix machine.
//
// Device is safe for concurrent use; Serve and the inspection methods may be
// called from different goroutines.
type Device struct {
	mu sync.Mutex

	cfg      Config
	ram      map[uint32][]byte
	flash    []byte
	inDebug  bool
	stopped  bool
	boot     byte
	requests []Request
	resets   int
}

// Config describes the simulated machine.
type Config struct {
	// Revision is returned in status1 for the revision command
	Revision byte

	// FlashSize is the size of the flash array in bytes
	FlashSize int

	// PageSize is the flash page addressed by sector commands
	PageSize int

	// Noise is sent before every response sync byte
	Noise []byte
}

// DefaultConfig mirrors an F256 with 512 KB of flash in 8 KB pages.
func DefaultConfig() Config {
	return Config{
		Revision:  0x01,
		FlashSize: 512 * 1024,
		PageSize:  8 * 1024,
	}
}

// New creates a device with erased flash and zeroed RAM.
func New(cfg Config) *Device {
	if cfg.FlashSize <= 0 {
		cfg.FlashSize = DefaultConfig().FlashSize
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultConfig().PageSize
	}
	return &Device{
		cfg:   cfg,
		ram:   make(map[uint32][]byte),
		flash: bytes.Repeat([]byte{0xFF}, cfg.FlashSize),
	}
}

// Serve answers frames read from rw until the peer closes the stream or ctx
// is cancelled. A clean close between frames returns nil.
func (d *Device) Serve(ctx context.Context, rw io.ReadWriter) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, err := d.serveOne(rw)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if _, err := rw.Write(resp); err != nil {
			return err
		}
	}
}

func (d *Device) serveOne(r io.Reader) ([]byte, error) {
	header := make([]byte, protocol.HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	h, err := protocol.ParseRequestHeader(header)
	if err != nil {
		return nil, err
	}

	var data []byte
	if h.CarriesData() {
		data = make([]byte, h.Length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, err
		}
	}

	lrc := make([]byte, 1)
	if _, err := io.ReadFull(r, lrc); err != nil {
		return nil, err
	}

	return d.Handle(h, data, lrc[0]), nil
}

// Handle executes one decoded request and returns the response frame.
func (d *Device) Handle(h protocol.RequestHeader, data []byte, lrc byte) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.requests = append(d.requests, Request{
		Command: h.Command,
		Address: h.Address,
		Length:  h.Length,
		Data:    append([]byte(nil), data...),
	})

	header := []byte{
		protocol.RequestSync, h.Command,
		byte(h.Address >> 16), byte(h.Address >> 8), byte(h.Address),
		byte(h.Length >> 8), byte(h.Length),
	}
	if protocol.CalculateLRC(header, data) != lrc {
		return d.respond(StatusBadChecksum, 0, nil)
	}

	var status1 byte
	var payload []byte
	switch h.Command {
	case protocol.CmdEnterDebug:
		d.inDebug = true
	case protocol.CmdExitDebug:
		d.inDebug = false
		d.resets++
	case protocol.CmdReadMem:
		payload = d.read(h.Address, h.Length)
	case protocol.CmdWriteMem:
		d.write(h.Address, data)
	case protocol.CmdEraseFlash:
		for i := range d.flash {
			d.flash[i] = 0xFF
		}
	case protocol.CmdProgramFlash:
		copy(d.flash, d.read(h.Address, len(d.flash)))
	case protocol.CmdEraseSector:
		if page := d.page(h.Address); page != nil {
			for i := range page {
				page[i] = 0xFF
			}
		}
	case protocol.CmdProgramSector:
		if page := d.page(h.Address); page != nil {
			copy(page, d.read(0, len(page)))
		}
	case protocol.CmdStopCPU:
		d.stopped = true
	case protocol.CmdStartCPU:
		d.stopped = false
	case protocol.CmdBootRAM:
		d.boot = protocol.BootSourceRAM
	case protocol.CmdBootFlash:
		d.boot = protocol.BootSourceFlash
	case protocol.CmdRevision:
		status1 = d.cfg.Revision
	default:
		return d.respond(StatusUnknown, 0, nil)
	}
	return d.respond(StatusOK, status1, payload)
}

func (d *Device) respond(status0, status1 byte, data []byte) []byte {
	frame := make([]byte, 0, len(d.cfg.Noise)+protocol.MinResponseSize+len(data))
	frame = append(frame, d.cfg.Noise...)
	prefix := []byte{protocol.ResponseSync, status0, status1}
	frame = append(frame, prefix...)
	frame = append(frame, data...)
	return append(frame, protocol.CalculateResponseLRC(prefix, data))
}

// page returns the flash page selected by the top byte of a sector
// command address, or nil if it lies outside flash.
func (d *Device) page(address uint32) []byte {
	start := int(address>>16) * d.cfg.PageSize
	end := start + d.cfg.PageSize
	if end > len(d.flash) {
		return nil
	}
	return d.flash[start:end]
}

func (d *Device) read(address uint32, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		a := (address + uint32(i)) & protocol.MaxAddress
		if bank, ok := d.ram[a/bankSize]; ok {
			out[i] = bank[a%bankSize]
		}
	}
	return out
}

func (d *Device) write(address uint32, data []byte) {
	for i, b := range data {
		a := (address + uint32(i)) & protocol.MaxAddress
		bank, ok := d.ram[a/bankSize]
		if !ok {
			bank = make([]byte, bankSize)
			d.ram[a/bankSize] = bank
		}
		bank[a%bankSize] = b
	}
}

// Memory returns n bytes of RAM starting at address.
func (d *Device) Memory(address uint32, n int) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.read(address, n)
}

// Poke writes RAM directly, bypassing the protocol.
func (d *Device) Poke(address uint32, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.write(address, data)
}

// Flash returns a copy of n bytes of flash starting at offset.
func (d *Device) Flash(offset, n int) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.flash[offset:offset+n]...)
}

// Requests returns the frames served so far.
func (d *Device) Requests() []Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Request(nil), d.requests...)
}

// Commands returns the command codes served so far.
func (d *Device) Commands() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]byte, len(d.requests))
	for i, r := range d.requests {
		out[i] = r.Command
	}
	return out
}

// InDebug reports whether the device is in debug mode.
func (d *Device) InDebug() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inDebug
}

// Stopped reports whether the CPU is stopped.
func (d *Device) Stopped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopped
}

// BootSource returns the selected boot source.
func (d *Device) BootSource() byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.boot
}

// Resets returns how many times debug mode was exited.
func (d *Device) Resets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resets
}
