package keccak

import "unsafe"

// stateBytes returns a byte-level view over the 25 little-endian
// uint64 lanes of buf, mirroring the unsafe transmute the reference
// sponge implementation performs on little-endian targets.
func stateBytes(buf *[words]uint64) unsafe.Pointer {
	return unsafe.Pointer(buf)
}
