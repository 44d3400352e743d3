// Package cache persists fetched blocks and receipts to a local JSON
// file, so a re-run of the host tooling never re-fetches data a prior
// run already pulled from an RPC node.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"santaclaus/receipt"
)

// SmolBlock is the minimal block record the host keeps: a header and
// the transaction hashes that block's receipts were fetched under.
type SmolBlock struct {
	Header *types.Header `json:"header"`
	Txs    []string      `json:"txs"`
}

func (b *SmolBlock) blockNumber() uint64 {
	return b.Header.Number.Uint64()
}

// Store is the on-disk shape of the cache: every fetched block, sorted
// by number, and every fetched receipt keyed by block number. Receipts
// are kept as their EIP-2718 typed-envelope bytes rather than decoded
// receipt.Envelope values, since encoding/json cannot unmarshal
// directly into an interface — DecodeEnvelope runs at the API
// boundary instead, in GetReceipts.
type Store struct {
	Blocks   []SmolBlock         `json:"blocks"`
	Receipts map[uint64][][]byte `json:"receipts"`
}

func (s *Store) sortBlocks() {
	sort.Slice(s.Blocks, func(i, j int) bool {
		return s.Blocks[i].blockNumber() < s.Blocks[j].blockNumber()
	})
}

// Cache wraps a Store with the on-disk path it was loaded from and
// will be saved back to.
type Cache struct {
	store *Store
	path  string
}

// Load reads path into a Cache, or returns a Cache backed by an empty
// Store if path does not yet exist.
func Load(path string) (*Cache, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Cache{store: &Store{Receipts: make(map[uint64][][]byte)}, path: path}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: reading %s: %w", path, err)
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("cache: parsing %s: %w", path, err)
	}
	if store.Receipts == nil {
		store.Receipts = make(map[uint64][][]byte)
	}
	return &Cache{store: &store, path: path}, nil
}

// Save sorts the store by block number and writes it back to disk.
func (c *Cache) Save() error {
	start := time.Now()
	c.store.sortBlocks()

	data, err := json.Marshal(c.store)
	if err != nil {
		return fmt.Errorf("cache: serializing store: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("cache: writing %s: %w", c.path, err)
	}

	log.Info("cache saved", "path", c.path, "blocks", len(c.store.Blocks), "elapsed", time.Since(start))
	return nil
}

// AppendBlocks adds blocks to the store and re-sorts by block number.
func (c *Cache) AppendBlocks(blocks []SmolBlock) {
	c.store.Blocks = append(c.store.Blocks, blocks...)
	c.store.sortBlocks()
}

// AppendReceipts encodes receipts as EIP-2718 envelopes and appends
// them to block bn's receipt list.
func (c *Cache) AppendReceipts(bn uint64, receipts []receipt.Envelope) error {
	encoded := make([][]byte, len(receipts))
	for i, r := range receipts {
		b, err := receipt.EncodeToBytes(r)
		if err != nil {
			return fmt.Errorf("cache: encoding receipt %d for block %d: %w", i, bn, err)
		}
		encoded[i] = b
	}
	c.store.Receipts[bn] = append(c.store.Receipts[bn], encoded...)
	return nil
}

// GetBlock binary-searches the sorted block slice for bn.
func (c *Cache) GetBlock(bn uint64) (*SmolBlock, bool) {
	blocks := c.store.Blocks
	i := sort.Search(len(blocks), func(i int) bool { return blocks[i].blockNumber() >= bn })
	if i < len(blocks) && blocks[i].blockNumber() == bn {
		return &blocks[i], true
	}
	return nil, false
}

// GetReceipts decodes and returns every receipt cached for block bn.
func (c *Cache) GetReceipts(bn uint64) ([]receipt.Envelope, error) {
	encoded, ok := c.store.Receipts[bn]
	if !ok {
		return nil, nil
	}
	out := make([]receipt.Envelope, len(encoded))
	for i, e := range encoded {
		env, err := receipt.DecodeEnvelope(e)
		if err != nil {
			return nil, fmt.Errorf("cache: decoding receipt %d for block %d: %w", i, bn, err)
		}
		out[i] = env
	}
	return out, nil
}

// ReceiptCount returns how many receipts are already cached for bn,
// used to resume a partially-fetched block's transaction list.
func (c *Cache) ReceiptCount(bn uint64) int {
	return len(c.store.Receipts[bn])
}
