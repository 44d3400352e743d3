package payload

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"santaclaus/feesummary"
	"santaclaus/receipt"
)

func mustUint256(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func sampleHeader(number int64, parent common.Hash) *types.Header {
	return &types.Header{
		ParentHash:  parent,
		UncleHash:   types.EmptyUncleHash,
		Root:        common.Hash{},
		TxHash:      types.EmptyRootHash,
		ReceiptHash: types.EmptyRootHash,
		Difficulty:  big.NewInt(0),
		Number:      big.NewInt(number),
		GasLimit:    30_000_000,
		Time:        uint64(1_700_000_000 + number),
		Extra:       []byte{},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := &Payload{
		Angstrom: common.HexToAddress("0x00000000000000000000000000000000001111"),
		Headers:  []byte{0xde, 0xad, 0xbe, 0xef},
		RewardBlocks: []RewardBlock{
			{
				BlockIndex:      7,
				Proof:           []byte{0x01, 0x02, 0x03},
				Receipt:         &receipt.LegacyReceipt{},
				LogIndex:        2,
				FeeEntriesCount: 3,
			},
		},
		FeeEntries: bytes.Repeat([]byte{0xaa}, feesummary.EntrySize*3),
	}

	encoded, err := Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.Angstrom != p.Angstrom {
		t.Errorf("angstrom mismatch")
	}
	if !bytes.Equal(decoded.Headers, p.Headers) {
		t.Errorf("headers mismatch")
	}
	if len(decoded.RewardBlocks) != 1 {
		t.Fatalf("expected 1 reward block, got %d", len(decoded.RewardBlocks))
	}
	rb := decoded.RewardBlocks[0]
	if rb.BlockIndex != 7 || rb.LogIndex != 2 || rb.FeeEntriesCount != 3 {
		t.Errorf("reward block scalar fields mismatch: %+v", rb)
	}
	if !bytes.Equal(rb.Proof, p.RewardBlocks[0].Proof) {
		t.Errorf("proof mismatch")
	}
	if !bytes.Equal(decoded.FeeEntries, p.FeeEntries) {
		t.Errorf("fee entries mismatch")
	}
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	if _, err := Decode(make([]byte, 10)); err == nil {
		t.Fatal("expected error for truncated payload")
	}
}

func TestBuildSkipsHeaderOnlyBlocks(t *testing.T) {
	blocks := []BlockInput{
		{Header: sampleHeader(1, common.Hash{})},
		{Header: sampleHeader(2, common.Hash{})},
	}
	angstrom := common.HexToAddress("0x0000000000000000000000000000000000a5a5")

	p, err := Build(blocks, angstrom, map[common.Hash][]feesummary.Entry{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(p.RewardBlocks) != 0 {
		t.Fatalf("expected no reward blocks, got %d", len(p.RewardBlocks))
	}
	if len(p.Headers) == 0 {
		t.Fatal("expected headers to be populated")
	}
}

func TestBuildExtractsRewardBlock(t *testing.T) {
	angstrom := common.HexToAddress("0x0000000000000000000000000000000000a5a5")
	rewardHash := common.HexToHash("0xfeed")

	logData := append(append([]byte{}, rewardHash[:]...), []byte("extra")...)
	rewardLog := &types.Log{Address: angstrom, Data: logData}
	noiseLog := &types.Log{Address: common.HexToAddress("0x0000000000000000000000000000000000beef")}

	receipts := []receipt.Envelope{
		receipt.NewLegacyReceipt(1, 21000, types.Bloom{}, []*types.Log{noiseLog}),
		receipt.NewDynamicFeeReceipt(1, 42000, types.Bloom{}, []*types.Log{noiseLog, rewardLog}),
	}

	blocks := []BlockInput{
		{Header: sampleHeader(1, common.Hash{}), Receipts: receipts},
	}

	entries := []feesummary.Entry{
		feesummary.NewEntry(common.HexToAddress("0x0000000000000000000000000000000000aaaa"), mustUint256(1)),
		feesummary.NewEntry(common.HexToAddress("0x0000000000000000000000000000000000bbbb"), mustUint256(2)),
	}

	p, err := Build(blocks, angstrom, map[common.Hash][]feesummary.Entry{rewardHash: entries})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(p.RewardBlocks) != 1 {
		t.Fatalf("expected 1 reward block, got %d", len(p.RewardBlocks))
	}
	rb := p.RewardBlocks[0]
	if rb.BlockIndex != 0 {
		t.Errorf("expected block index 0, got %d", rb.BlockIndex)
	}
	if rb.LogIndex != 1 {
		t.Errorf("expected log index 1 (second log in second receipt), got %d", rb.LogIndex)
	}
	if rb.FeeEntriesCount != 2 {
		t.Errorf("expected 2 fee entries, got %d", rb.FeeEntriesCount)
	}
	if len(p.FeeEntries) != feesummary.EntrySize*2 {
		t.Errorf("expected fee entries blob of %d bytes, got %d", feesummary.EntrySize*2, len(p.FeeEntries))
	}
	if len(rb.Proof) == 0 {
		t.Error("expected non-empty receipt proof")
	}
}
