// Package headerlens inspects an RLP-encoded Ethereum block header in
// place, validating only as much of the encoding as is needed to
// locate parent_hash and receipts_root without decoding the whole
// header.
package headerlens

import (
	"fmt"

	"santaclaus/keccak"
	"santaclaus/reader"
	"santaclaus/rlpkit"
)

// fixedFieldSizes lists, in header field order, the byte width of
// every field validated up to and including receipts_root.
var fixedFieldSizes = [...]int{32, 32, 20, 32, 32, 32}

// receiptsRootFieldIndex is the position of receipts_root within fixedFieldSizes.
const receiptsRootFieldIndex = 5

// Lens is a partially-validated view over an RLP-encoded header. It
// borrows its backing bytes and never copies the header body.
type Lens struct {
	encoded       []byte
	payloadOffset int
	// fieldOffsets[i] is the byte offset (from payloadOffset) of field
	// i's value, after its own RLP string head byte.
	fieldOffsets [len(fixedFieldSizes)]int
}

// ReadFrom consumes one RLP-encoded header from r, validating the RLP
// list head and the fixed-width string headers for every field up to
// receipts_root. It returns an error if any of those fields are not
// encoded the way a well-formed Ethereum header encodes them.
func ReadFrom(r *reader.Reader) (*Lens, error) {
	head := r.Peek(0)
	if head <= rlpkit.ListOffset+rlpkit.MaxPackedLen {
		return nil, fmt.Errorf("headerlens: invalid list head byte %#x", head)
	}
	lengthBytes := int(head - rlpkit.ListOffset - rlpkit.MaxPackedLen)

	length := 0
	for i := 0; i < lengthBytes; i++ {
		length = 256*length + int(r.Peek(i+1))
	}

	payloadOffset := 1 + lengthBytes
	encoded := r.ReadNext(payloadOffset + length)

	payloadReader := reader.New(encoded[payloadOffset:])

	l := &Lens{encoded: encoded, payloadOffset: payloadOffset}
	offset := 0
	for i, size := range fixedFieldSizes {
		if err := validateFixedField(payloadReader, size); err != nil {
			return nil, err
		}
		l.fieldOffsets[i] = offset + 1
		offset += 1 + size
	}

	return l, nil
}

func validateFixedField(r *reader.Reader, n int) error {
	expected := byte(rlpkit.StrOffset + n)
	got := r.Peek(0)
	if got != expected {
		return fmt.Errorf("headerlens: expected string header byte %#x, got %#x", expected, got)
	}
	r.ReadNext(n + 1)
	return nil
}

// Bytes returns the full RLP-encoded header, including its list head.
func (l *Lens) Bytes() []byte {
	return l.encoded
}

// Hash returns the Keccak-256 hash of the whole encoded header.
func (l *Lens) Hash() [32]byte {
	return keccak.Sum256(l.encoded)
}

// ParentHash returns the header's parent_hash field.
func (l *Lens) ParentHash() [32]byte {
	var out [32]byte
	copy(out[:], l.fieldBytes(0, 32))
	return out
}

// ReceiptsRoot returns the header's receipts_root field.
func (l *Lens) ReceiptsRoot() [32]byte {
	var out [32]byte
	copy(out[:], l.fieldBytes(receiptsRootFieldIndex, 32))
	return out
}

func (l *Lens) fieldBytes(fieldIndex, size int) []byte {
	start := l.payloadOffset + l.fieldOffsets[fieldIndex]
	return l.encoded[start : start+size]
}
