package config

import "strings"

// Target is the flash geometry of a machine. Sizes are in KB; a zero page or
// sector size means the machine cannot program individual sectors.
type Target struct {
	Name       string
	PageSize   int
	SectorSize int
	RAMSize    int
}

// LookupTarget returns the geometry for a machine name. Unknown names get
// no sector support and an 8 KB RAM window.
func LookupTarget(name string) Target {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "fnx1591":
		return Target{Name: name, PageSize: 8, SectorSize: 32, RAMSize: 8}
	case "f256k", "f256jr":
		return Target{Name: name, PageSize: 8, SectorSize: 8, RAMSize: 8}
	default:
		return Target{Name: name, RAMSize: 8}
	}
}

// SupportsSectors reports whether sector programming is possible.
func (t Target) SupportsSectors() bool {
	return t.PageSize > 0 && t.SectorSize > 0
}

// PagesPerSector returns how many flash pages make up one sector.
func (t Target) PagesPerSector() int {
	if t.PageSize == 0 {
		return 0
	}
	return t.SectorSize / t.PageSize
}

// SectorBytes returns the sector size in bytes.
func (t Target) SectorBytes() int {
	return t.SectorSize * 1024
}

// RAMBytes returns the usable RAM window in bytes.
func (t Target) RAMBytes() int {
	return t.RAMSize * 1024
}
