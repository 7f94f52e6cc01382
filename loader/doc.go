// Package loader decodes program images and writes them into device memory.
//
// Three formats are supported:
//   - PGZ: block structured image with 3 or 4 byte little-endian fields and
//     an optional start address that patches the CPU reset vector
//   - PGX: single block image with a CPU tag and a load/start address
//   - Intel HEX: parsed with github.com/marcinbor85/gohex
//
// Loaders know nothing about the device. They emit (address, data) pairs to a
// memblock.Writer, which may be a live debug port or a Stage that buffers
// the image for coalescing before it is sent.
//
// Example:
//
//	image, _ := os.ReadFile("hello.pgz")
//	err := loader.LoadPGZ(ctx, image, loader.CPU65C02, port)
package loader
