package protocol

// Frame structure constants for the Foenix debug port.
const (
	// RequestSync is the first byte of every host to device frame (0x55)
	RequestSync = 0x55

	// ResponseSync is the first byte of every device to host frame (0xAA)
	ResponseSync = 0xAA

	// HeaderSize is the request header size in bytes:
	// SYNC(1) + CMD(1) + ADDR(3) + LEN(2)
	HeaderSize = 7

	// ChecksumSize is the size of the trailing LRC byte
	ChecksumSize = 1

	// MinRequestSize is a request frame with no data payload
	MinRequestSize = HeaderSize + ChecksumSize

	// ResponsePrefixSize is SYNC(1) + STATUS0(1) + STATUS1(1)
	ResponsePrefixSize = 3

	// MinResponseSize is a response frame with no data payload
	MinResponseSize = ResponsePrefixSize + ChecksumSize
)

// Command codes understood by the debug port firmware.
const (
	// CmdReadMem reads a block of memory
	CmdReadMem = 0x00

	// CmdWriteMem writes a block of memory
	CmdWriteMem = 0x01

	// CmdProgramFlash copies RAM at the given address into flash
	CmdProgramFlash = 0x10

	// CmdEraseFlash erases the whole flash
	CmdEraseFlash = 0x11

	// CmdEraseSector erases one flash sector
	CmdEraseSector = 0x12

	// CmdProgramSector programs one flash sector from RAM
	CmdProgramSector = 0x13

	// CmdStopCPU halts the CPU (F256 only)
	CmdStopCPU = 0x20

	// CmdStartCPU restarts a halted CPU (F256 only)
	CmdStartCPU = 0x21

	// CmdEnterDebug puts the machine into debug mode
	CmdEnterDebug = 0x80

	// CmdExitDebug leaves debug mode and resets the machine
	CmdExitDebug = 0x81

	// CmdBootRAM selects RAM as the boot source (F256jr Rev A)
	CmdBootRAM = 0x90

	// CmdBootFlash selects flash as the boot source (F256jr Rev A)
	CmdBootFlash = 0x91

	// CmdRevision queries the debug interface revision
	CmdRevision = 0xFE
)

// Boot sources accepted by the boot-source commands.
const (
	BootSourceRAM   = 0x00
	BootSourceFlash = 0x01
)

// Field limits.
const (
	// MaxAddress is the highest address expressible in the 24-bit address field
	MaxAddress = 0xFFFFFF

	// MaxLength is the largest length expressible in the 16-bit length field
	MaxLength = 0xFFFF
)
