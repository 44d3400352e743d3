// Package fixtures generates synthetic Angstrom reward logs for local
// testing and tooling, standing in for a real angstrom deployment when
// no genuine reward logs are available on the fetched chain.
package fixtures

import (
	"bytes"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"santaclaus/feesummary"
	"santaclaus/keccak"
	"santaclaus/receipt"
	"santaclaus/receipttrie"
)

// LogInjector picks a random subset of a fixed asset list, packs them
// into feesummary.Entry records with random amounts, and replaces (or
// appends) a log in a randomly chosen receipt so the receipt carries a
// reward log whose data is the Keccak preimage of those entries.
type LogInjector struct {
	angstrom       common.Address
	possibleAssets []common.Address
	rng            *rand.Rand
	soloProb       float64
	oracle         map[common.Hash][]feesummary.Entry
}

// New returns a LogInjector for angstrom over possibleAssets (sorted
// ascending, matching the teacher's canonical address ordering
// elsewhere in this module). soloLogProb is the probability that a
// chosen receipt's logs are replaced outright with a single reward log
// rather than having one existing log overwritten.
func New(angstrom common.Address, possibleAssets []common.Address, soloLogProb float64) *LogInjector {
	assets := append([]common.Address(nil), possibleAssets...)
	sort.Slice(assets, func(i, j int) bool {
		return bytes.Compare(assets[i][:], assets[j][:]) < 0
	})
	return &LogInjector{
		angstrom:       angstrom,
		possibleAssets: assets,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		soloProb:       soloLogProb,
		oracle:         make(map[common.Hash][]feesummary.Entry),
	}
}

func (inj *LogInjector) randomAmount() *uint256.Int {
	hi := inj.rng.Uint64()
	lo := inj.rng.Uint64()
	amount := new(uint256.Int).SetUint64(hi)
	amount.Lsh(amount, 64)
	amount.Or(amount, new(uint256.Int).SetUint64(lo))
	return amount
}

// randomLog builds a fresh reward log: a random subset of
// possibleAssets, each with a random amount, hashed into the log's
// data and recorded in the oracle under that hash.
func (inj *LogInjector) randomLog() *types.Log {
	entries := make([]feesummary.Entry, 0, len(inj.possibleAssets))
	var raw []byte
	for _, asset := range inj.possibleAssets {
		if inj.rng.Intn(2) == 0 {
			continue
		}
		entry := feesummary.NewEntry(asset, inj.randomAmount())
		entries = append(entries, entry)
		raw = append(raw, entry...)
	}

	hash := common.Hash(keccak.Sum256(raw))
	inj.oracle[hash] = entries

	return &types.Log{Address: inj.angstrom, Data: hash[:]}
}

// InjectRandomSummary picks a random receipt among receipts, gives it
// a fresh reward log (replacing a random existing log, or all of them
// if the receipt had none or the solo-log roll succeeds), marks it
// successful, and patches header's receipts_root to match the
// resulting receipts. receipts and header are mutated in place.
func (inj *LogInjector) InjectRandomSummary(header *types.Header, receipts []receipt.Envelope) error {
	if len(receipts) == 0 {
		return fmt.Errorf("fixtures: cannot inject a log into a block with no receipts")
	}

	i := inj.rng.Intn(len(receipts))
	mutable, ok := receipts[i].(receipt.Mutable)
	if !ok {
		return fmt.Errorf("fixtures: receipt %d does not support log injection", i)
	}
	mutable.SetStatus(1)

	logs := receipts[i].Logs()
	if len(logs) == 0 || inj.rng.Float64() < inj.soloProb {
		mutable.SetLogs([]*types.Log{inj.randomLog()})
	} else {
		logs[inj.rng.Intn(len(logs))] = inj.randomLog()
	}

	encoded := make([][]byte, len(receipts))
	for j, r := range receipts {
		b, err := receipt.EncodeToBytes(r)
		if err != nil {
			return fmt.Errorf("fixtures: encoding receipt %d: %w", j, err)
		}
		encoded[j] = b
	}
	root, err := receipttrie.ReceiptsRoot(encoded)
	if err != nil {
		return fmt.Errorf("fixtures: recomputing receipts root: %w", err)
	}
	header.ReceiptHash = root

	return nil
}

// Oracle returns the hash to fee-entries mapping accumulated across
// every injected log, ready to hand to payload.Build.
func (inj *LogInjector) Oracle() map[common.Hash][]feesummary.Entry {
	return inj.oracle
}
