// Package receipttrie recomputes a receipts-trie root from a compact
// proof without ever materializing the trie itself, and, on the host
// side, extracts that compact proof from a full receipt list.
package receipttrie

import (
	"santaclaus/keccak"
	"santaclaus/reader"
	"santaclaus/rlpkit"
	"santaclaus/triepath"
)

const (
	// ProofPartTypeMask isolates a proof step's node-kind bit.
	ProofPartTypeMask = 0x20
	extensionNodeFlag = 0x00
	branchNodeFlag    = 0x20
	// WeirdBranchesFlag marks a branch step whose sibling hashes are
	// not all exactly 32 bytes (some are short, RLP-inlined nodes).
	WeirdBranchesFlag   = 0x10
	branchNodeIndexMask = 0x0f
)

func encodeHeader(h *keccak.State, offset byte, payloadLength int) {
	if payloadLength <= rlpkit.MaxPackedLen {
		h.Write([]byte{offset + byte(payloadLength)})
		return
	}
	lengthBytesLen := rlpkit.LengthOfLength(payloadLength) - 1
	headByte := offset + rlpkit.MaxPackedLen + byte(lengthBytesLen)
	h.Write([]byte{headByte})

	var full [8]byte
	for i := 0; i < 8; i++ {
		full[7-i] = byte(payloadLength >> (8 * i))
	}
	h.Write(full[8-lengthBytesLen:])
}

func encodeListHeader(h *keccak.State, payloadLength int) {
	encodeHeader(h, rlpkit.ListOffset, payloadLength)
}

func encodeStrHeader(h *keccak.State, payloadLength int) {
	encodeHeader(h, rlpkit.StrOffset, payloadLength)
}

// hashNodeWithPath hashes a leaf or extension node whose key is read
// from proof as a hex-prefix-compact nibble count plus raw key bytes,
// and whose second list element is encodedInternal (a receipt for a
// leaf, a child hash for an extension).
func hashNodeWithPath(h *keccak.State, proof *reader.Reader, pathFlag byte, encodedInternal []byte) [32]byte {
	keyNibbles := proof.ReadByte()
	keyBytes := int(keyNibbles) / 2
	encodedKeyLength := rlpkit.EncodedLength(keyBytes+1) - boolToInt(keyBytes == 0)

	encodedInternalLength := rlpkit.EncodedLength(len(encodedInternal))

	listPayloadLength := encodedKeyLength + encodedInternalLength
	encodeListHeader(h, listPayloadLength)

	var firstByte byte
	if keyNibbles%2 == 0 {
		firstByte = pathFlag
	} else {
		oddNibble := proof.ReadByte() & triepath.NibbleMask
		firstByte = pathFlag | triepath.OddNibblesFlag | oddNibble
	}
	if keyBytes >= 1 || firstByte > 0x7f || firstByte == 0 {
		encodeStrHeader(h, keyBytes+1)
	}
	h.Write([]byte{firstByte})
	h.Write(proof.ReadNext(keyBytes))

	encodeStrHeader(h, len(encodedInternal))
	h.Write(encodedInternal)

	return h.Sum32()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func hashLeaf(h *keccak.State, proof *reader.Reader, encodedReceipt []byte) [32]byte {
	return hashNodeWithPath(h, proof, triepath.LeafPathFlag, encodedReceipt)
}

func hashExtension(h *keccak.State, proof *reader.Reader, childHash []byte) [32]byte {
	return hashNodeWithPath(h, proof, triepath.ExtensionPathFlag, childHash)
}

// hashBranch recomputes a branch node's hash given one known child
// (lastRoot, at the given nibble index) and the rest of the proof's
// description of the remaining 16 children, assuming every unlisted
// child not covered by weirdBranches is either empty or a bare
// 32-byte hash.
func hashBranch(h *keccak.State, proof *reader.Reader, weirdBranches bool, index byte, lastRoot []byte) [32]byte {
	branchMap := uint16(proof.ReadByte())<<8 | uint16(proof.ReadByte())

	var payloadLength int
	if weirdBranches {
		payloadLength = int(read32(proof))
	} else {
		payloadLength = popcount16(branchMap)*32 + 17
	}

	encodeListHeader(h, payloadLength)

	addSibling := func(i byte) {
		if branchMap&(1<<i) == 0 {
			encodeStrHeader(h, 0)
			return
		}
		if weirdBranches {
			length := int(read32(proof))
			encodeStrHeader(h, length)
			h.Write(proof.ReadNext(length))
			return
		}
		encodeStrHeader(h, 32)
		h.Write(proof.ReadNext(32))
	}

	for i := byte(0); i < index; i++ {
		addSibling(i)
	}

	encodeStrHeader(h, 32)
	h.Write(lastRoot)

	for i := index + 1; i < 16; i++ {
		addSibling(i)
	}

	encodeStrHeader(h, 0)

	return h.Sum32()
}

func read32(r *reader.Reader) uint32 {
	b := r.ReadNext(4)
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func popcount16(v uint16) int {
	n := 0
	for v != 0 {
		n += int(v & 1)
		v >>= 1
	}
	return n
}

// RootFromProof replays a compact proof against encodedReceipt and
// returns the receipts-trie root it implies. h is reset before use
// and left reset on return.
func RootFromProof(h *keccak.State, proof []byte, encodedReceipt []byte) [32]byte {
	h.Reset()
	r := reader.New(proof)
	current := hashLeaf(h, r, encodedReceipt)

	for !r.IsEmpty() {
		control := r.ReadByte()
		if control&ProofPartTypeMask == branchNodeFlag {
			index := control & branchNodeIndexMask
			current = hashBranch(h, r, control&WeirdBranchesFlag != 0, index, current[:])
		} else {
			current = hashExtension(h, r, current[:])
		}
	}

	return current
}
