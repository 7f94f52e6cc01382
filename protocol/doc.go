// Package protocol implements the framing of the Foenix debug port.
//
// This package builds request frames, computes the request checksum, and
// decodes response frames. It performs no I/O.
//
// # Frame Overview
//
// Every exchange is one request followed by one response:
//
//	Request:  [0x55][CMD][ADDR(3)][LEN(2)][DATA...][LRC]
//	Response: [0xAA][STATUS0][STATUS1][DATA...][LRC]
//
// Where:
//   - ADDR = 24-bit address (big-endian)
//   - LEN  = 16-bit length (big-endian); the write payload size, or the
//     number of bytes requested by a read
//   - DATA = present in requests only for write memory, and in responses only
//     for read memory with a non-zero length
//   - LRC  = XOR checksum
//
// The response does not repeat the length. A reader must already know how
// many data bytes to expect from the command it issued.
//
// # Checksum
//
// The request LRC covers header bytes 0 through 5 and every data byte. It
// skips header byte 6, the low byte of the length. The firmware computes it
// the same way, so CalculateLRC reproduces the omission:
//
//	lrc := protocol.CalculateLRC(frame[:protocol.HeaderSize], data)
//
// # Building Requests
//
//	frame, err := protocol.BuildRequest(protocol.CmdWriteMem, 0x2000, data, 0)
//	frame, err := protocol.BuildRequest(protocol.CmdReadMem, 0x2000, nil, 16)
//
// # Decoding Requests
//
// ParseRequestHeader validates a header and exposes the fields needed to find
// the frame boundaries:
//
//	hdr, err := protocol.ParseRequestHeader(header)
//	if hdr.CarriesData() {
//	    // read hdr.Length more bytes before the LRC
//	}
//
// DecodeRequestHeader reads the same fields without checking the sync byte.
// A pass-through relay uses it so frames are repeated exactly as received.
package protocol
