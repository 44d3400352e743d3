package payload

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"

	"santaclaus/feesummary"
	"santaclaus/receipt"
	"santaclaus/receipttrie"
)

// BlockInput is one candidate block for Build: a header, and — only
// for blocks that actually carry an Angstrom reward log — every
// receipt in that block, in transaction order.
type BlockInput struct {
	Header   *types.Header
	Receipts []receipt.Envelope
}

// Build assembles a Payload from a run of blocks, an Angstrom
// contract address, and a fee-summary oracle mapping each block's
// reward-log hash (the first 32 bytes of the log's data) to the fee
// entries it committed to off-chain. Blocks with a nil Receipts slice
// contribute only their header; every other block must contain a log
// emitted by angstrom with at least 32 bytes of data, or Build fails.
// When several such logs exist, the first in (receipt, log) order is
// used.
func Build(blocks []BlockInput, angstrom common.Address, feeSummaryOracle map[common.Hash][]feesummary.Entry) (*Payload, error) {
	p := &Payload{Angstrom: angstrom}

	for blockIndex, b := range blocks {
		encodedHeader, err := rlp.EncodeToBytes(b.Header)
		if err != nil {
			return nil, fmt.Errorf("payload: encoding header %d: %w", blockIndex, err)
		}
		p.Headers = append(p.Headers, encodedHeader...)

		if b.Receipts == nil {
			continue
		}

		receiptIndex, logIndex, rewardHash, found := findRewardLog(b.Receipts, angstrom)
		if !found {
			return nil, fmt.Errorf("payload: block %d has receipts but no reward log", blockIndex)
		}

		entries, ok := feeSummaryOracle[rewardHash]
		if !ok {
			return nil, fmt.Errorf("payload: block %d: no fee summary oracle entry for reward hash %x", blockIndex, rewardHash)
		}

		encodedReceipts := make([][]byte, len(b.Receipts))
		for i, r := range b.Receipts {
			encoded, err := receipt.EncodeToBytes(r)
			if err != nil {
				return nil, fmt.Errorf("payload: block %d: encoding receipt %d: %w", blockIndex, i, err)
			}
			encodedReceipts[i] = encoded
		}

		proof, err := receipttrie.BuildProof(encodedReceipts, uint32(receiptIndex))
		if err != nil {
			return nil, fmt.Errorf("payload: block %d: building receipt proof: %w", blockIndex, err)
		}

		for _, e := range entries {
			p.FeeEntries = append(p.FeeEntries, e...)
		}

		p.RewardBlocks = append(p.RewardBlocks, RewardBlock{
			BlockIndex:      uint32(blockIndex),
			Proof:           proof,
			Receipt:         b.Receipts[receiptIndex],
			LogIndex:        uint32(logIndex),
			FeeEntriesCount: uint32(len(entries)),
		})
	}

	return p, nil
}

// findRewardLog locates the first log emitted by angstrom across
// receipts, in (receipt, log) order, and returns its position and the
// reward hash carried in the first 32 bytes of its data.
func findRewardLog(receipts []receipt.Envelope, angstrom common.Address) (receiptIndex, logIndex int, rewardHash common.Hash, found bool) {
	for ri, r := range receipts {
		for li, log := range r.Logs() {
			if log.Address != angstrom {
				continue
			}
			if len(log.Data) < 32 {
				continue
			}
			return ri, li, common.BytesToHash(log.Data[:32]), true
		}
	}
	return 0, 0, common.Hash{}, false
}
