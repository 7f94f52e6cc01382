package manager

import (
	"time"

	"github.com/pweingar/FoenixMgr/debugport"
)

// Progress contains information about a long running transfer.
type Progress struct {
	// Phase describes the current step:
	//   "uploading"   - Writing data into device RAM
	//   "erasing"     - Erasing flash
	//   "programming" - Programming flash from RAM
	//   "complete"    - Operation completed successfully
	Phase string

	// BytesWritten is the number of bytes written so far
	BytesWritten int

	// TotalBytes is the number of bytes to write, or 0 if unknown
	TotalBytes int

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64

	// ElapsedTime is the time elapsed since the operation started
	ElapsedTime time.Duration
}

// Progress phases.
const (
	PhaseUploading   = "uploading"
	PhaseErasing     = "erasing"
	PhaseProgramming = "programming"
	PhaseComplete    = "complete"
)

// ProgressCallback is called as an operation advances. Implementations
// should return quickly.
type ProgressCallback func(Progress)

type options struct {
	logger   debugport.Logger
	progress ProgressCallback
	coalesce bool
}

// Option configures a Manager.
type Option func(*options)

// WithLogger sets a logger for manager operations.
func WithLogger(logger debugport.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithProgressCallback sets a callback to track transfers.
//
// Example:
//
//	mgr := manager.New(port, cfg,
//	    manager.WithProgressCallback(func(p manager.Progress) {
//	        fmt.Printf("[%s] %.1f%%\n", p.Phase, p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(o *options) {
		o.progress = callback
	}
}

// WithCoalesce stages program images in memory, merges adjacent blocks and
// sends them in chunks of the configured chunk size. By default each block
// is written as the loader emits it.
func WithCoalesce(coalesce bool) Option {
	return func(o *options) {
		o.coalesce = coalesce
	}
}
