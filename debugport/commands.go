package debugport

import (
	"context"
	"fmt"

	"github.com/pweingar/FoenixMgr/protocol"
)

// BootSource selects where the machine boots from.
type BootSource byte

const (
	BootRAM   BootSource = protocol.BootSourceRAM
	BootFlash BootSource = protocol.BootSourceFlash
)

// ParseBootSource converts "ram" or "flash" to a BootSource.
func ParseBootSource(s string) (BootSource, error) {
	switch s {
	case "ram", "RAM":
		return BootRAM, nil
	case "flash", "FLASH":
		return BootFlash, nil
	default:
		return 0, fmt.Errorf("unknown boot source %q", s)
	}
}

func (b BootSource) String() string {
	switch b {
	case BootRAM:
		return "ram"
	case BootFlash:
		return "flash"
	default:
		return fmt.Sprintf("boot source(%d)", byte(b))
	}
}

// EnterDebug halts the CPU and hands the bus to the debug port.
func (p *Port) EnterDebug(ctx context.Context) error {
	return p.command(ctx, protocol.CmdEnterDebug, 0)
}

// ExitDebug leaves debug mode. The machine resets.
func (p *Port) ExitDebug(ctx context.Context) error {
	return p.command(ctx, protocol.CmdExitDebug, 0)
}

// EraseFlash erases the whole flash memory.
func (p *Port) EraseFlash(ctx context.Context) error {
	return p.command(ctx, protocol.CmdEraseFlash, 0)
}

// ProgramFlash programs flash from the image already uploaded to RAM at
// address.
func (p *Port) ProgramFlash(ctx context.Context, address uint32) error {
	return p.command(ctx, protocol.CmdProgramFlash, address)
}

// GetRevision returns the debug interface revision code, carried in the
// second status byte.
func (p *Port) GetRevision(ctx context.Context) (byte, error) {
	if err := p.command(ctx, protocol.CmdRevision, 0); err != nil {
		return 0, err
	}
	return p.status1, nil
}

// StopCPU stops the CPU from executing instructions.
func (p *Port) StopCPU(ctx context.Context) error {
	return p.command(ctx, protocol.CmdStopCPU, 0)
}

// StartCPU resumes execution after StopCPU.
func (p *Port) StartCPU(ctx context.Context) error {
	return p.command(ctx, protocol.CmdStartCPU, 0)
}

// SetBootSource selects whether the machine boots from RAM or flash.
func (p *Port) SetBootSource(ctx context.Context, src BootSource) error {
	switch src {
	case BootRAM:
		return p.command(ctx, protocol.CmdBootRAM, 0)
	case BootFlash:
		return p.command(ctx, protocol.CmdBootFlash, 0)
	default:
		return fmt.Errorf("set boot source: unknown source %d", byte(src))
	}
}

// EraseFlashSector erases one flash sector, then waits for the erase to
// settle.
func (p *Port) EraseFlashSector(ctx context.Context, sector int) error {
	if err := p.sectorCommand(ctx, protocol.CmdEraseSector, sector); err != nil {
		return err
	}
	return p.sleep(ctx, p.config.EraseSectorDelay)
}

// ProgramFlashSector programs one flash sector from the RAM window, then
// waits for the write to settle.
func (p *Port) ProgramFlashSector(ctx context.Context, sector int) error {
	if err := p.sectorCommand(ctx, protocol.CmdProgramSector, sector); err != nil {
		return err
	}
	return p.sleep(ctx, p.config.ProgramSectorDelay)
}

// sectorCommand sends a sector command. The sector number travels in the
// top address byte.
func (p *Port) sectorCommand(ctx context.Context, command byte, sector int) error {
	if sector < 0 || sector > 0xFF {
		return fmt.Errorf("%s: sector %d out of range", protocol.CommandName(command), sector)
	}
	p.logInfo(protocol.CommandName(command), "sector", sector)
	return p.command(ctx, command, uint32(sector)<<16)
}

func (p *Port) command(ctx context.Context, command byte, address uint32) error {
	_, err := p.Transfer(ctx, command, address, nil, 0)
	return err
}
