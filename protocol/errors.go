package protocol

import "fmt"

// FrameError reports a request field that does not fit the wire format.
type FrameError struct {
	// Field is the header field that overflowed ("address" or "length")
	Field string

	// Value is the rejected value
	Value int64

	// Max is the largest value the field can carry
	Max int64
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("%s 0x%X out of range: maximum is 0x%X", e.Field, e.Value, e.Max)
}

// IsFrameError returns true if the error is a FrameError.
func IsFrameError(err error) bool {
	_, ok := err.(*FrameError)
	return ok
}

// CommandName returns a human-readable name for a command code.
func CommandName(code byte) string {
	switch code {
	case CmdReadMem:
		return "read memory"
	case CmdWriteMem:
		return "write memory"
	case CmdProgramFlash:
		return "program flash"
	case CmdEraseFlash:
		return "erase flash"
	case CmdEraseSector:
		return "erase sector"
	case CmdProgramSector:
		return "program sector"
	case CmdStopCPU:
		return "stop cpu"
	case CmdStartCPU:
		return "start cpu"
	case CmdEnterDebug:
		return "enter debug"
	case CmdExitDebug:
		return "exit debug"
	case CmdBootRAM:
		return "boot from ram"
	case CmdBootFlash:
		return "boot from flash"
	case CmdRevision:
		return "get revision"
	default:
		return fmt.Sprintf("command 0x%02X", code)
	}
}
