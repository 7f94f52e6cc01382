// Package memblock models device memory as address-tagged byte blocks.
//
// A List collects blocks in insertion order. Coalesce sorts them by address
// and merges adjacent neighbours, Pad32 aligns every block to 4-byte
// boundaries, and Output emits each block in fixed-size chunks through a
// Writer. Loaders and the debug port meet at the Writer interface.
package memblock
