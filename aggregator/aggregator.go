// Package aggregator implements the guest's core walk: stream the
// headers in a payload, verify they chain by parent hash, and for
// every block carrying a reward record verify its receipts-trie proof
// and its fee-summary preimage, accumulating a running total per
// asset.
package aggregator

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"santaclaus/feesummary"
	"santaclaus/headerlens"
	"santaclaus/keccak"
	"santaclaus/payload"
	"santaclaus/receipt"
	"santaclaus/receipttrie"
	"santaclaus/reader"
)

// Aggregator holds the guest walk's state across the whole payload.
// Its fields mirror the state a single-threaded, allocation-free
// guest would carry on its own stack: sums, a cursor into the
// fee-entries blob, the next reward block to consume, and a sponge
// reused block to block.
type Aggregator struct {
	sums       map[common.Address]*uint256.Int
	feeCursor  int
	rewardNext int
	sponge     *keccak.State
}

// New returns a ready-to-run Aggregator.
func New() *Aggregator {
	return &Aggregator{
		sums:   make(map[common.Address]*uint256.Int),
		sponge: keccak.New(),
	}
}

// Result is the guest's committed public output.
type Result struct {
	Angstrom    common.Address
	ChainParent [32]byte
	ChainLast   [32]byte
	// Totals is sorted ascending by asset address, so two runs over
	// the same payload always commit the same bytes.
	Totals []AssetTotal
}

// AssetTotal is one (asset, accumulated amount) pair in Result.
type AssetTotal struct {
	Asset  common.Address
	Amount *uint256.Int
}

// Run walks p end to end and returns its committed public output.
func Run(p *payload.Payload) (*Result, error) {
	a := New()
	return a.run(p)
}

func (a *Aggregator) run(p *payload.Payload) (*Result, error) {
	headerReader := reader.New(p.Headers)

	var chainParent, chainLast [32]byte
	var previousHash [32]byte
	blockIndex := uint32(0)

	for !headerReader.IsEmpty() {
		lens, err := headerlens.ReadFrom(headerReader)
		if err != nil {
			return nil, fmt.Errorf("aggregator: reading header %d: %w", blockIndex, err)
		}

		if blockIndex == 0 {
			chainParent = lens.ParentHash()
		} else if lens.ParentHash() != previousHash {
			return nil, fmt.Errorf("aggregator: header %d parent_hash does not chain to header %d's hash", blockIndex, blockIndex-1)
		}

		if a.rewardNext < len(p.RewardBlocks) && p.RewardBlocks[a.rewardNext].BlockIndex == blockIndex {
			rb := p.RewardBlocks[a.rewardNext]
			a.rewardNext++
			if err := a.processReward(p, &rb, lens); err != nil {
				return nil, fmt.Errorf("aggregator: block %d: %w", blockIndex, err)
			}
		}

		previousHash = lens.Hash()
		chainLast = previousHash
		blockIndex++
	}

	if a.rewardNext != len(p.RewardBlocks) {
		return nil, fmt.Errorf("aggregator: %d reward blocks were never reached (chain shorter than expected)", len(p.RewardBlocks)-a.rewardNext)
	}

	return &Result{
		Angstrom:    p.Angstrom,
		ChainParent: chainParent,
		ChainLast:   chainLast,
		Totals:      a.sortedTotals(),
	}, nil
}

func (a *Aggregator) processReward(p *payload.Payload, rb *payload.RewardBlock, lens *headerlens.Lens) error {
	logs := rb.Receipt.Logs()
	if int(rb.LogIndex) >= len(logs) {
		return fmt.Errorf("log_index %d out of range for %d logs", rb.LogIndex, len(logs))
	}
	log := logs[rb.LogIndex]
	if log.Address != p.Angstrom {
		return fmt.Errorf("log at index %d was not emitted by angstrom", rb.LogIndex)
	}
	if len(log.Data) < 32 {
		return fmt.Errorf("reward log data shorter than 32 bytes")
	}

	start := a.feeCursor * feesummary.EntrySize
	end := (a.feeCursor + int(rb.FeeEntriesCount)) * feesummary.EntrySize
	if end > len(p.FeeEntries) {
		return fmt.Errorf("fee entries slice [%d:%d) out of range for %d-byte blob", start, end, len(p.FeeEntries))
	}
	slice := p.FeeEntries[start:end]
	a.feeCursor += int(rb.FeeEntriesCount)

	a.sponge.Write(slice)
	gotHash := a.sponge.Sum32()
	var wantHash [32]byte
	copy(wantHash[:], log.Data[:32])
	if gotHash != wantHash {
		return fmt.Errorf("fee summary hash mismatch: computed %x, log claims %x", gotHash, wantHash)
	}

	encodedReceipt, err := receipt.EncodeToBytes(rb.Receipt)
	if err != nil {
		return fmt.Errorf("encoding receipt for trie verification: %w", err)
	}
	gotRoot := receipttrie.RootFromProof(a.sponge, rb.Proof, encodedReceipt)
	wantRoot := lens.ReceiptsRoot()
	if gotRoot != wantRoot {
		return fmt.Errorf("receipts-trie root mismatch: proof implies %x, header says %x", gotRoot, wantRoot)
	}

	inspector, err := feesummary.NewInspector(slice)
	if err != nil {
		return fmt.Errorf("fee entries slice is malformed: %w", err)
	}
	for i := 0; i < inspector.Len(); i++ {
		entry := inspector.At(i)
		amount := entry.Amount()
		if amount.IsZero() {
			continue
		}
		asset := entry.Asset()
		if existing, ok := a.sums[asset]; ok {
			existing.Add(existing, amount)
		} else {
			a.sums[asset] = amount
		}
	}

	return nil
}

func (a *Aggregator) sortedTotals() []AssetTotal {
	totals := make([]AssetTotal, 0, len(a.sums))
	for asset, amount := range a.sums {
		totals = append(totals, AssetTotal{Asset: asset, Amount: amount})
	}
	sort.Slice(totals, func(i, j int) bool {
		return bytes.Compare(totals[i].Asset[:], totals[j].Asset[:]) < 0
	})
	return totals
}

// Encode packs a Result into the guest's committed public output:
// angstrom || chain_parent || chain_last || (asset || be_u256(amount))*.
func (r *Result) Encode() []byte {
	buf := make([]byte, 0, 20+32+32+len(r.Totals)*(20+32))
	buf = append(buf, r.Angstrom[:]...)
	buf = append(buf, r.ChainParent[:]...)
	buf = append(buf, r.ChainLast[:]...)
	for _, t := range r.Totals {
		buf = append(buf, t.Asset[:]...)
		amountBytes := t.Amount.Bytes32()
		buf = append(buf, amountBytes[:]...)
	}
	return buf
}
