// Package config reads foenixmgr.ini and describes the target machine.
//
// The file is a flat INI file whose keys live in the DEFAULT section:
//
//	port=/dev/ttyUSB0
//	labels=kernel.lbl
//	flash_size=524288
//	chunk_size=1024
//	cpu=65c02
//
// Values are handed to constructors explicitly; nothing here is global.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	"github.com/pweingar/FoenixMgr/loader"
	"github.com/pweingar/FoenixMgr/protocol"
)

// FileName is the configuration file looked up in each search directory.
const FileName = "foenixmgr.ini"

// Defaults for keys missing from the file.
const (
	DefaultPort      = "COM3"
	DefaultChunkSize = 4096
	DefaultFlashSize = 524288
	DefaultDataRate  = 6000000
	DefaultLabels    = "basic8"
	DefaultAddress   = 0x380000
	DefaultTimeout   = 60 * time.Second
	DefaultCPU       = "65c02"
	DefaultStopFile  = "f256.stp"
)

// Config is the tool configuration.
type Config struct {
	// Port is the serial device or host:port of a relay
	Port string

	// Transport forces the endpoint kind: "auto", "serial" or "tcp"
	Transport string

	// ChunkSize is the payload size of bulk memory transfers
	ChunkSize int

	// FlashSize is the expected size of a full flash image in bytes
	FlashSize int

	// DataRate is the serial line rate in bits per second
	DataRate int

	// LabelFile is the assembler label file used for lookups
	LabelFile string

	// Address is the RAM address used to stage flash images
	Address uint32

	// Timeout is the serial read timeout
	Timeout time.Duration

	// CPU names the target processor
	CPU string

	// StopFile marks a CPU stopped with --stop
	StopFile string

	// Target is the flash geometry of the selected machine
	Target Target
}

// Default returns the configuration used for keys that are not set.
func Default() *Config {
	return &Config{
		Port:      DefaultPort,
		Transport: "auto",
		ChunkSize: DefaultChunkSize,
		FlashSize: DefaultFlashSize,
		DataRate:  DefaultDataRate,
		LabelFile: DefaultLabels,
		Address:   DefaultAddress,
		Timeout:   DefaultTimeout,
		CPU:       DefaultCPU,
		StopFile:  DefaultStopFile,
		Target:    LookupTarget(""),
	}
}

// DefaultPaths returns the search path: the working directory, then
// $FOENIXMGR, then the home directory. Later files override earlier ones.
func DefaultPaths() []string {
	paths := []string{FileName}
	if dir := os.Getenv("FOENIXMGR"); dir != "" {
		paths = append(paths, filepath.Join(dir, FileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, FileName))
	}
	return paths
}

// Load reads every existing file in paths. Missing files are skipped, but
// at least one key must be found somewhere.
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		paths = DefaultPaths()
	}

	sources := make([]interface{}, len(paths))
	for i, p := range paths {
		sources[i] = p
	}

	f, err := ini.LooseLoad(sources[0], sources[1:]...)
	if err != nil {
		return nil, errors.Wrap(err, "read configuration")
	}
	return fromFile(f)
}

// Parse reads configuration from INI text.
func Parse(data []byte) (*Config, error) {
	f, err := ini.Load(data)
	if err != nil {
		return nil, errors.Wrap(err, "parse configuration")
	}
	return fromFile(f)
}

func fromFile(f *ini.File) (*Config, error) {
	sec := f.Section(ini.DefaultSection)
	if len(sec.Keys()) == 0 {
		return nil, &ConfigurationError{Key: FileName, Reason: "no proper configuration file found"}
	}

	cfg := Default()
	cfg.Port = sec.Key("port").MustString(cfg.Port)
	cfg.Transport = sec.Key("transport").MustString(cfg.Transport)
	cfg.LabelFile = sec.Key("labels").MustString(cfg.LabelFile)
	cfg.CPU = sec.Key("cpu").MustString(cfg.CPU)
	cfg.StopFile = sec.Key("stop_file").MustString(cfg.StopFile)

	var err error
	if cfg.ChunkSize, err = intKey(sec, "chunk_size", cfg.ChunkSize, 1, protocol.MaxLength); err != nil {
		return nil, err
	}
	if cfg.FlashSize, err = intKey(sec, "flash_size", cfg.FlashSize, 1, protocol.MaxAddress+1); err != nil {
		return nil, err
	}
	if cfg.DataRate, err = intKey(sec, "data_rate", cfg.DataRate, 1, 1<<31-1); err != nil {
		return nil, err
	}
	timeout, err := intKey(sec, "timeout", int(cfg.Timeout/time.Second), 1, 3600)
	if err != nil {
		return nil, err
	}
	cfg.Timeout = time.Duration(timeout) * time.Second

	if sec.HasKey("address") {
		addr, err := ParseAddress(sec.Key("address").String())
		if err != nil {
			return nil, &ConfigurationError{Key: "address", Reason: err.Error()}
		}
		cfg.Address = addr
	}

	if _, err := loader.ParseCPU(cfg.CPU); err != nil {
		return nil, &ConfigurationError{Key: "cpu", Reason: err.Error()}
	}

	return cfg, nil
}

func intKey(sec *ini.Section, name string, def, min, max int) (int, error) {
	if !sec.HasKey(name) {
		return def, nil
	}
	v, err := sec.Key(name).Int()
	if err != nil {
		return 0, &ConfigurationError{Key: name, Reason: "not a decimal integer"}
	}
	if v < min || v > max {
		return 0, &ConfigurationError{Key: name, Reason: "must be between " + strconv.Itoa(min) + " and " + strconv.Itoa(max)}
	}
	return v, nil
}

// ParseAddress parses a 24-bit hexadecimal address, with or without a 0x
// or $ prefix.
func ParseAddress(s string) (uint32, error) {
	t := strings.TrimSpace(s)
	t = strings.TrimPrefix(strings.TrimPrefix(t, "0x"), "0X")
	t = strings.TrimPrefix(t, "$")
	v, err := strconv.ParseUint(t, 16, 32)
	if err != nil {
		return 0, errors.Errorf("invalid hex address %q", s)
	}
	if v > protocol.MaxAddress {
		return 0, errors.Errorf("address %q exceeds 24 bits", s)
	}
	return uint32(v), nil
}

// SetTarget selects the flash geometry for the named machine.
func (c *Config) SetTarget(name string) {
	c.Target = LookupTarget(name)
}

// CPUType returns the configured CPU.
func (c *Config) CPUType() (loader.CPU, error) {
	cpu, err := loader.ParseCPU(c.CPU)
	if err != nil {
		return 0, &ConfigurationError{Key: "cpu", Reason: err.Error()}
	}
	return cpu, nil
}
