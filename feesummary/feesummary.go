// Package feesummary reads the fixed-width fee entry records a
// reward block's fee summary log is expected to contain, without
// allocating an entry slice.
package feesummary

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// EntrySize is the byte width of a single fee entry: a 20-byte asset
// address followed by a 16-byte big-endian u128 amount.
const EntrySize = 36

const (
	assetOffset  = 0
	amountOffset = 20
)

// Entry is a single 36-byte fee record borrowed from a larger blob.
type Entry []byte

// NewEntry packs an asset address and amount into a 36-byte record.
func NewEntry(asset common.Address, amount *uint256.Int) Entry {
	buf := make([]byte, EntrySize)
	copy(buf[assetOffset:amountOffset], asset[:])
	full := amount.Bytes32()
	copy(buf[amountOffset:], full[16:])
	return buf
}

// Asset returns the entry's asset address.
func (e Entry) Asset() common.Address {
	return common.BytesToAddress(e[assetOffset:amountOffset])
}

// Amount returns the entry's u128 amount as a uint256.
func (e Entry) Amount() *uint256.Int {
	return new(uint256.Int).SetBytes(e[amountOffset:EntrySize])
}

// Inspector is a zero-copy view over a blob of back-to-back fee
// entries, indexable without decoding the whole blob up front.
type Inspector []byte

// NewInspector wraps entryBytes as an Inspector, rejecting any blob
// whose length is not a whole number of entries.
func NewInspector(entryBytes []byte) (Inspector, error) {
	if len(entryBytes)%EntrySize != 0 {
		return nil, fmt.Errorf("feesummary: blob length %d does not hold a whole number of %d-byte entries", len(entryBytes), EntrySize)
	}
	return Inspector(entryBytes), nil
}

// Len returns the number of entries in the blob.
func (i Inspector) Len() int {
	return len(i) / EntrySize
}

// At returns the entry at index idx.
func (i Inspector) At(idx int) Entry {
	return Entry(i[idx*EntrySize : (idx+1)*EntrySize])
}
