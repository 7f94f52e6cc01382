package debugport

import "time"

// Config holds the port configuration.
type Config struct {
	// Logger is used for logging operations (optional)
	Logger Logger

	// ResyncLimit is the number of non-sync bytes skipped while waiting
	// for a response before giving up
	ResyncLimit int

	// ResponseTimeout bounds the wait for the response sync byte
	ResponseTimeout time.Duration

	// EraseSectorDelay is slept after an erase sector command
	EraseSectorDelay time.Duration

	// ProgramSectorDelay is slept after a program sector command
	ProgramSectorDelay time.Duration

	// VerifyResponseChecksum enables response LRC checking
	VerifyResponseChecksum bool
}

// Defaults.
const (
	DefaultResyncLimit        = 4096
	DefaultResponseTimeout    = 60 * time.Second
	DefaultEraseSectorDelay   = 1 * time.Second
	DefaultProgramSectorDelay = 2 * time.Second
)

func defaultConfig() Config {
	return Config{
		ResyncLimit:        DefaultResyncLimit,
		ResponseTimeout:    DefaultResponseTimeout,
		EraseSectorDelay:   DefaultEraseSectorDelay,
		ProgramSectorDelay: DefaultProgramSectorDelay,
	}
}

// Option is a functional option for configuring the Port.
type Option func(*Config)

// WithLogger sets a logger for port operations.
//
// Example:
//
//	port := debugport.New(t, debugport.WithLogger(slog.Default()))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithResyncLimit sets how many stray bytes may precede a response.
func WithResyncLimit(limit int) Option {
	return func(c *Config) {
		if limit >= 0 {
			c.ResyncLimit = limit
		}
	}
}

// WithResponseTimeout bounds the time spent waiting for the response sync
// byte. Zero leaves only the transport read timeout in force.
func WithResponseTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout >= 0 {
			c.ResponseTimeout = timeout
		}
	}
}

// WithSectorDelays sets the settle time after erase and program sector
// commands. The device acknowledges before the flash operation completes.
//
// Example:
//
//	port := debugport.New(t, debugport.WithSectorDelays(time.Second, 2*time.Second))
func WithSectorDelays(erase, program time.Duration) Option {
	return func(c *Config) {
		if erase >= 0 {
			c.EraseSectorDelay = erase
		}
		if program >= 0 {
			c.ProgramSectorDelay = program
		}
	}
}

// WithResponseChecksum enables or disables response checksum validation.
// Default is false.
func WithResponseChecksum(verify bool) Option {
	return func(c *Config) {
		c.VerifyResponseChecksum = verify
	}
}
