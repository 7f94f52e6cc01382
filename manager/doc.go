// Package manager implements the multi-step operations of the fnxmgr tool
// on top of a debug port: uploading binaries and program images, flash
// programming, memory dumps, label lookups and SD card file copies.
//
// Every operation that touches memory runs inside enter/exit debug mode,
// unless the CPU was stopped with StopCPU. A stop is recorded in an
// indicator file so that later runs leave the stopped CPU alone.
//
// Example:
//
//	cfg, _ := config.Load()
//	port := debugport.New(t)
//	_ = port.Open(ctx)
//	defer port.Close()
//
//	mgr := manager.New(port, cfg, manager.WithLogger(logger))
//	err := mgr.RunPGZ(ctx, image)
package manager
