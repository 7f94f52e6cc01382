// Package transport provides the byte channels that carry debug port frames.
//
// Two variants implement Transport:
//   - Serial: a local serial line at 6,000,000 baud, 8N1, with a read
//     timeout (60 seconds by default)
//   - Socket: a TCP connection, typically to a relay that forwards frames to
//     a serial line on another host
//
// The caller picks a variant explicitly with an Endpoint:
//
//	ep := transport.SerialEndpoint("/dev/ttyUSB0")
//	ep := transport.TCPEndpoint("192.168.1.114", 2560)
//	t, err := transport.New(ep, transport.WithTimeout(30*time.Second))
//
// ParseEndpoint with KindAuto keeps the colon heuristic of older tools
// ("host:port" means TCP). A device path containing a colon is
// misclassified under KindAuto.
//
// Reads may return fewer bytes than requested. Use ReadFull when an exact
// count is required; it maps read timeouts to ErrTimeout.
package transport
