package receipttrie

import (
	"testing"

	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/triedb"

	"santaclaus/keccak"
)

// realTrieRoot rebuilds the same trie BuildProof builds internally,
// so tests can check RootFromProof against an independently computed root.
func realTrieRoot(t *testing.T, items [][]byte) [32]byte {
	t.Helper()
	db := triedb.NewDatabase(rawdb.NewMemoryDatabase(), nil)
	tr := trie.NewEmpty(db)
	for i, item := range items {
		key, err := rlp.EncodeToBytes(uint(i))
		if err != nil {
			t.Fatal(err)
		}
		if err := tr.Update(key, item); err != nil {
			t.Fatal(err)
		}
	}
	return tr.Hash()
}

func syntheticReceipts(n int, payloadLen int) [][]byte {
	items := make([][]byte, n)
	for i := 0; i < n; i++ {
		payload := make([]byte, payloadLen)
		for j := range payload {
			payload[j] = byte((i*31 + j*7) % 256)
		}
		encoded, _ := rlp.EncodeToBytes(payload)
		items[i] = encoded
	}
	return items
}

func TestRootFromProofMatchesRealTrieSingleItem(t *testing.T) {
	items := syntheticReceipts(1, 64)
	want := realTrieRoot(t, items)

	proof, err := BuildProof(items, 0)
	if err != nil {
		t.Fatalf("BuildProof: %v", err)
	}

	h := keccak.New()
	got := RootFromProof(h, proof, items[0])
	if got != want {
		t.Fatalf("root mismatch: got %x want %x", got, want)
	}
}

func TestRootFromProofMatchesRealTrieManyItems(t *testing.T) {
	for _, n := range []int{2, 16, 17, 128, 129, 200} {
		items := syntheticReceipts(n, 80)
		want := realTrieRoot(t, items)

		for _, idx := range []int{0, n / 2, n - 1} {
			proof, err := BuildProof(items, uint32(idx))
			if err != nil {
				t.Fatalf("n=%d idx=%d: BuildProof: %v", n, idx, err)
			}

			h := keccak.New()
			got := RootFromProof(h, proof, items[idx])
			if got != want {
				t.Fatalf("n=%d idx=%d: root mismatch: got %x want %x", n, idx, got, want)
			}
		}
	}
}

func TestRootFromProofRejectsTamperedReceipt(t *testing.T) {
	items := syntheticReceipts(10, 48)
	want := realTrieRoot(t, items)

	proof, err := BuildProof(items, 3)
	if err != nil {
		t.Fatalf("BuildProof: %v", err)
	}

	tampered := append([]byte(nil), items[3]...)
	tampered[0] ^= 0xff

	h := keccak.New()
	got := RootFromProof(h, proof, tampered)
	if got == want {
		t.Fatalf("expected tampered receipt to produce a different root")
	}
}

func TestBuildProofRejectsOutOfRangeIndex(t *testing.T) {
	items := syntheticReceipts(3, 16)
	if _, err := BuildProof(items, 5); err == nil {
		t.Fatal("expected error for out-of-range index")
	}
}
