package receipttrie

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/triedb"

	"santaclaus/triepath"
)

// buildTrie inserts receiptsEncoded into a fresh in-memory hexary trie
// keyed by RLP-encoded transaction index, the same structure a real
// block's receipts root is computed over.
func buildTrie(receiptsEncoded [][]byte) (*trie.Trie, [][]byte, error) {
	db := triedb.NewDatabase(rawdb.NewMemoryDatabase(), nil)
	t := trie.NewEmpty(db)

	keys := make([][]byte, len(receiptsEncoded))
	for i, encoded := range receiptsEncoded {
		key, err := rlp.EncodeToBytes(uint(i))
		if err != nil {
			return nil, nil, fmt.Errorf("receipttrie: encoding key %d: %w", i, err)
		}
		keys[i] = key
		if err := t.Update(key, encoded); err != nil {
			return nil, nil, fmt.Errorf("receipttrie: inserting receipt %d: %w", i, err)
		}
	}
	return t, keys, nil
}

// ReceiptsRoot computes the root of the real receipts trie for a block
// from its EIP-2718 typed-receipt encodings, without extracting a
// proof. Used by fixture generation after a synthetic log is injected
// and a header's receipts_root must be patched to match.
func ReceiptsRoot(receiptsEncoded [][]byte) (common.Hash, error) {
	t, _, err := buildTrie(receiptsEncoded)
	if err != nil {
		return common.Hash{}, err
	}
	return t.Hash(), nil
}

// BuildProof builds the real receipts trie for a block from its
// EIP-2718 typed-receipt encodings (one per transaction, in
// transaction order) and extracts the compact proof for the receipt
// at position index. It is a host-side helper — fixture generation
// and tests use it, the guest never does — grounded on go-ethereum's
// own trie construction so the emitted proof is rooted in the same
// structure the chain committed to.
func BuildProof(receiptsEncoded [][]byte, index uint32) ([]byte, error) {
	if int(index) >= len(receiptsEncoded) {
		return nil, fmt.Errorf("receipttrie: index %d out of range for %d receipts", index, len(receiptsEncoded))
	}

	t, keys, err := buildTrie(receiptsEncoded)
	if err != nil {
		return nil, err
	}

	root := t.Hash()

	proofDB := memorydb.New()
	targetKey := keys[index]
	if err := t.Prove(targetKey, proofDB); err != nil {
		return nil, fmt.Errorf("receipttrie: proving index %d: %w", index, err)
	}

	steps, err := walkProofNodes(proofDB, root.Bytes(), targetKey)
	if err != nil {
		return nil, err
	}

	return assembleProof(steps)
}

// proofStep is one node visited on the root-to-leaf walk toward
// targetKey. branchIndex is only meaningful when isBranch is true:
// it is the nibble of the child that continues toward the leaf.
type proofStep struct {
	list        []rlp.RawValue
	isBranch    bool
	branchIndex byte
}

// walkProofNodes re-derives the root-to-leaf node order implied by
// targetKey, since the proof database Prove populates only maps node
// hash to RLP bytes and carries no ordering of its own.
func walkProofNodes(db *memorydb.Database, rootHash, targetKey []byte) ([]proofStep, error) {
	nibbles := keyToNibbles(targetKey)

	var steps []proofStep
	cur := rootHash
	nibbleIdx := 0

	for {
		raw, err := db.Get(cur)
		if err != nil {
			return nil, fmt.Errorf("receipttrie: missing proof node %x: %w", cur, err)
		}

		var list []rlp.RawValue
		if err := rlp.DecodeBytes(raw, &list); err != nil {
			return nil, fmt.Errorf("receipttrie: decoding proof node: %w", err)
		}

		switch len(list) {
		case 17:
			if nibbleIdx >= len(nibbles) {
				return nil, fmt.Errorf("receipttrie: key exhausted at branch node")
			}
			nibble := nibbles[nibbleIdx]
			nibbleIdx++

			steps = append(steps, proofStep{list: list, isBranch: true, branchIndex: nibble})

			var ref []byte
			if err := rlp.DecodeBytes(list[nibble], &ref); err != nil {
				return nil, fmt.Errorf("receipttrie: embedded (non-hashed) branch children are not supported: %w", err)
			}
			if len(ref) == 0 {
				return nil, fmt.Errorf("receipttrie: no child at nibble %d, key not present", nibble)
			}
			if len(ref) != 32 {
				return nil, fmt.Errorf("receipttrie: embedded (non-hashed) branch children are not supported")
			}
			cur = ref

		case 2:
			steps = append(steps, proofStep{list: list})

			var keyPart []byte
			if err := rlp.DecodeBytes(list[0], &keyPart); err != nil {
				return nil, fmt.Errorf("receipttrie: decoding node key: %w", err)
			}
			if len(keyPart) > 0 && keyPart[0]&0x20 != 0 {
				// Leaf: value is the receipt itself, walk is done.
				return steps, nil
			}
			// The extension consumes its own path nibbles before the
			// next branch picks a child.
			nibbleIdx += int(triepath.New(keyPart).Nibbles())
			var ref []byte
			if err := rlp.DecodeBytes(list[1], &ref); err != nil {
				return nil, fmt.Errorf("receipttrie: embedded (non-hashed) extension child is not supported: %w", err)
			}
			if len(ref) != 32 {
				return nil, fmt.Errorf("receipttrie: embedded (non-hashed) extension child is not supported")
			}
			cur = ref

		default:
			return nil, fmt.Errorf("receipttrie: unexpected proof node with %d list items", len(list))
		}
	}
}

// keyToNibbles expands key into its hex-nibble representation, high
// nibble first, matching the key path a hexary trie walks.
func keyToNibbles(key []byte) []byte {
	nibbles := make([]byte, len(key)*2)
	for i, b := range key {
		nibbles[i*2] = b >> 4
		nibbles[i*2+1] = b & 0x0f
	}
	return nibbles
}

// assembleProof converts the root-to-leaf node steps into the compact
// leaf-first proof format the verifier expects.
func assembleProof(steps []proofStep) ([]byte, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("receipttrie: empty node path")
	}

	leaf := steps[len(steps)-1]
	var leafKey []byte
	if err := rlp.DecodeBytes(leaf.list[0], &leafKey); err != nil {
		return nil, err
	}
	builder := WithLeafRestPathCompact(leafKey)

	for i := len(steps) - 2; i >= 0; i-- {
		step := steps[i]
		if !step.isBranch {
			var key []byte
			if err := rlp.DecodeBytes(step.list[0], &key); err != nil {
				return nil, err
			}
			builder.AddExtension(key)
			continue
		}

		siblings := make([][]byte, len(step.list))
		for j, item := range step.list {
			var ref []byte
			if err := rlp.DecodeBytes(item, &ref); err != nil {
				return nil, fmt.Errorf("receipttrie: embedded (non-hashed) branch children are not supported: %w", err)
			}
			siblings[j] = ref
		}
		builder.AddBranch(step.branchIndex, siblings)
	}

	return builder.Build(), nil
}
