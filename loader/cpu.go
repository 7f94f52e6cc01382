package loader

import (
	"fmt"
	"strings"
)

// CPU identifies the target processor, which decides how start addresses
// patch the reset vector.
type CPU int

const (
	// CPU65C02 is the WDC 65C02 used by the F256 family
	CPU65C02 CPU = iota + 1

	// CPU65816 is the WDC 65816 used by the C256 family
	CPU65816

	// CPU680x0 is the 68000 family with a 16-bit data bus
	CPU680x0

	// CPU68040 covers the 68040 and 68060 machines, whose 32-bit bus wants
	// word aligned writes
	CPU68040
)

// ParseCPU converts a configured CPU name to a CPU.
func ParseCPU(name string) (CPU, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "65c02":
		return CPU65C02, nil
	case "65816":
		return CPU65816, nil
	case "m68k", "68000":
		return CPU680x0, nil
	case "68040", "68060":
		return CPU68040, nil
	default:
		return 0, fmt.Errorf("unknown cpu %q", name)
	}
}

func (c CPU) String() string {
	switch c {
	case CPU65C02:
		return "65c02"
	case CPU65816:
		return "65816"
	case CPU680x0:
		return "m68k"
	case CPU68040:
		return "68040"
	default:
		return fmt.Sprintf("cpu(%d)", int(c))
	}
}

// Is68k reports whether c belongs to the 680x0 family.
func (c CPU) Is68k() bool {
	return c == CPU680x0 || c == CPU68040
}

// Wide reports whether c sits on a 32-bit data bus.
func (c CPU) Wide() bool {
	return c == CPU68040
}
