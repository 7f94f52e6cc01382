// Package debugport drives the Foenix debug port over a transport.
//
// A Port sends one request frame, waits for the matching response and
// records the two status bytes. Requests are strictly half duplex: one frame
// is in flight at a time and nothing is retried.
//
// Basic usage:
//
//	t, _ := transport.New(transport.SerialEndpoint("/dev/ttyUSB0"))
//	port := debugport.New(t, debugport.WithLogger(logger))
//	if err := port.Open(ctx); err != nil {
//	    return err
//	}
//	defer port.Close()
//
//	if err := port.EnterDebug(ctx); err != nil {
//	    return err
//	}
//	data, err := port.ReadBlock(ctx, 0x380000, 16)
//	_ = port.ExitDebug(ctx)
//
// Port implements memblock.Writer, so loaders can write through it
// directly.
//
// # Error Handling
//
// Errors are typed and can be matched with errors.As:
//
//	var wErr *debugport.WriteError
//	var tErr *debugport.ResponseTimeoutError
//	var cErr *debugport.ChecksumError
//
// Response checksums are read but not checked unless
// WithResponseChecksum(true) is given.
package debugport
