// Command santa drives the host side of the reward-aggregation proof:
// it fetches a block range over JSON-RPC into a local cache, forges a
// synthetic Angstrom reward log into a sampled subset of those blocks
// (there being no real Angstrom deployment to fetch from yet), links
// the result into a self-consistent header chain, and either runs the
// aggregator in-process or hands its input off to a separate prover
// invocation.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"santaclaus/aggregator"
	"santaclaus/cache"
	"santaclaus/feesummary"
	"santaclaus/fixtures"
	"santaclaus/payload"
	"santaclaus/receipt"
	"santaclaus/rpcfetch"
)

func main() {
	app := &cli.App{
		Name:  "santa",
		Usage: "fetch a block range, forge reward logs, and run or prepare the reward-aggregation proof",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "execute", Usage: "run the aggregator in-process over the assembled payload"},
			&cli.BoolFlag{Name: "prove", Usage: "write the assembled payload for a separate prover invocation"},
			&cli.StringFlag{Name: "rpc-url", Value: "http://localhost:8545", Usage: "Ethereum JSON-RPC endpoint"},
			&cli.Uint64Flag{Name: "start", Required: true, Usage: "first block number (inclusive)"},
			&cli.Uint64Flag{Name: "end", Required: true, Usage: "last block number (exclusive)"},
			&cli.IntFlag{Name: "chunk-size", Value: 100, Usage: "blocks/receipts fetched per RPC batch"},
			&cli.IntFlag{Name: "log-every", Value: 5, Usage: "sample one candidate summary block every N blocks"},
			&cli.Float64Flag{Name: "skip-prob", Value: 0.05, Usage: "probability a sampled summary block is skipped"},
			&cli.Float64Flag{Name: "solo-prob", Value: 0.85, Usage: "probability an injected reward log replaces a receipt's logs outright"},
			&cli.StringFlag{Name: "cache", Value: filepath.Join(".cache", "store.json"), Usage: "local block/receipt cache path"},
			&cli.StringFlag{Name: "angstrom", Required: true, Usage: "Angstrom contract address reward logs are forged under"},
			&cli.StringSliceFlag{Name: "asset", Required: true, Usage: "candidate reward asset address (repeatable)"},
			&cli.StringFlag{Name: "payload-out", Value: filepath.Join(".cache", "payload.bin"), Usage: "where --prove writes the assembled payload"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("santa failed", "err", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.Bool("execute") == c.Bool("prove") {
		return fmt.Errorf("santa: exactly one of --execute or --prove must be set")
	}

	start, end := c.Uint64("start"), c.Uint64("end")
	if end <= start {
		return fmt.Errorf("santa: --end (%d) must be greater than --start (%d)", end, start)
	}
	chunkSize := c.Int("chunk-size")
	angstrom := common.HexToAddress(c.String("angstrom"))

	var assets []common.Address
	for _, a := range c.StringSlice("asset") {
		assets = append(assets, common.HexToAddress(a))
	}

	ctx := context.Background()

	rpcClient, err := rpcfetch.DialContext(ctx, c.String("rpc-url"))
	if err != nil {
		return fmt.Errorf("santa: dialing %s: %w", c.String("rpc-url"), err)
	}
	defer rpcClient.Close()

	store, err := cache.Load(c.String("cache"))
	if err != nil {
		return fmt.Errorf("santa: loading cache: %w", err)
	}

	if err := fetchBlocks(ctx, rpcClient, store, start, end, chunkSize); err != nil {
		return err
	}

	log.Info("fetching receipts")
	summaryBlocks := sampleSummaryBlocks(start, end, c.Int("log-every"), c.Float64("skip-prob"))
	if err := fetchReceipts(ctx, rpcClient, store, summaryBlocks, chunkSize); err != nil {
		return err
	}

	inputs, oracle, err := forgeSyntheticChain(store, start, end, summaryBlocks, angstrom, assets, c.Float64("solo-prob"))
	if err != nil {
		return err
	}

	p, err := payload.Build(inputs, angstrom, oracle)
	if err != nil {
		return fmt.Errorf("santa: assembling payload: %w", err)
	}

	if c.Bool("execute") {
		result, err := aggregator.Run(p)
		if err != nil {
			return fmt.Errorf("santa: aggregator: %w", err)
		}
		log.Info("aggregator ran successfully", "totals", len(result.Totals))
		fmt.Printf("chain_parent: %x\n", result.ChainParent)
		fmt.Printf("chain_last:   %x\n", result.ChainLast)
		for _, t := range result.Totals {
			fmt.Printf("  %s: %s\n", t.Asset.Hex(), t.Amount.String())
		}
		return nil
	}

	encoded, err := payload.Encode(p)
	if err != nil {
		return fmt.Errorf("santa: encoding payload: %w", err)
	}
	if err := os.WriteFile(c.String("payload-out"), encoded, 0o644); err != nil {
		return fmt.Errorf("santa: writing payload: %w", err)
	}
	log.Info("payload written for proving", "path", c.String("payload-out"), "bytes", len(encoded))
	return nil
}

// fetchBlocks fills store with every block in [start, end) not
// already cached, in chunkSize-sized RPC batches.
func fetchBlocks(ctx context.Context, rc *rpcfetch.Client, store *cache.Cache, start, end uint64, chunkSize int) error {
	var missing []uint64
	for bn := start; bn < end; bn++ {
		if _, ok := store.GetBlock(bn); !ok {
			missing = append(missing, bn)
		}
	}

	log.Info("fetching blocks", "missing", len(missing))
	for i := 0; i < len(missing); i += chunkSize {
		chunk := missing[i:min(i+chunkSize, len(missing))]
		log.Info("fetching block chunk", "from", chunk[0], "to", chunk[len(chunk)-1])

		blocks := make([]cache.SmolBlock, len(chunk))
		for j, bn := range chunk {
			header, err := rc.HeaderByNumber(ctx, bn)
			if err != nil {
				return fmt.Errorf("santa: fetching header %d: %w", bn, err)
			}
			hashes, err := rc.BlockTxHashes(ctx, bn)
			if err != nil {
				return fmt.Errorf("santa: fetching tx hashes for block %d: %w", bn, err)
			}
			txs := make([]string, len(hashes))
			for k, h := range hashes {
				txs[k] = h.Hex()
			}
			blocks[j] = cache.SmolBlock{Header: header, Txs: txs}
		}
		store.AppendBlocks(blocks)
		if err := store.Save(); err != nil {
			return fmt.Errorf("santa: saving cache: %w", err)
		}
	}
	return nil
}

// sampleSummaryBlocks picks every logEvery'th block in [start, end)
// as a candidate to carry a forged reward log, independently dropping
// each candidate with probability skipProb.
func sampleSummaryBlocks(start, end uint64, logEvery int, skipProb float64) []uint64 {
	if logEvery <= 0 {
		logEvery = 1
	}
	rng := rand.New(rand.NewSource(int64(start)))
	var out []uint64
	for bn := start; bn < end; bn += uint64(logEvery) {
		if rng.Float64() < skipProb {
			continue
		}
		out = append(out, bn)
	}
	return out
}

// fetchReceipts fetches every transaction receipt for the blocks in
// summaryBlocks that isn't already cached, chunkSize hashes per
// batched RPC call.
func fetchReceipts(ctx context.Context, rc *rpcfetch.Client, store *cache.Cache, summaryBlocks []uint64, chunkSize int) error {
	type pending struct {
		bn   uint64
		hash common.Hash
	}
	var tasks []pending
	for _, bn := range summaryBlocks {
		block, ok := store.GetBlock(bn)
		if !ok {
			return fmt.Errorf("santa: block %d missing from cache before receipt fetch", bn)
		}
		already := store.ReceiptCount(bn)
		for _, tx := range block.Txs[already:] {
			tasks = append(tasks, pending{bn: bn, hash: common.HexToHash(tx)})
		}
	}

	log.Info("fetching receipts", "pending", len(tasks))
	for i := 0; i < len(tasks); i += chunkSize {
		chunk := tasks[i:min(i+chunkSize, len(tasks))]

		hashes := make([]common.Hash, len(chunk))
		for j, t := range chunk {
			hashes[j] = t.hash
		}
		envelopes, err := rc.ReceiptsByTxHashes(ctx, hashes)
		if err != nil {
			return fmt.Errorf("santa: fetching receipts: %w", err)
		}

		byBlock := make(map[uint64][]receipt.Envelope)
		for j, t := range chunk {
			byBlock[t.bn] = append(byBlock[t.bn], envelopes[j])
		}
		for bn, receipts := range byBlock {
			if err := store.AppendReceipts(bn, receipts); err != nil {
				return fmt.Errorf("santa: caching receipts for block %d: %w", bn, err)
			}
		}
		if err := store.Save(); err != nil {
			return fmt.Errorf("santa: saving cache: %w", err)
		}
	}
	return nil
}

// forgeSyntheticChain reads every block in [start, end) back out of
// store, forges a reward log into each summary block via a fresh
// LogInjector, re-links every header's parent hash to the previous
// header's (now possibly forged) hash, and returns the resulting
// payload.Build inputs alongside the fee-summary oracle the injector
// accumulated. From this point on the headers no longer describe the
// real chain they were fetched from — they only need to be internally
// consistent for the aggregator to verify.
func forgeSyntheticChain(store *cache.Cache, start, end uint64, summaryBlocks []uint64, angstrom common.Address, assets []common.Address, soloProb float64) ([]payload.BlockInput, map[common.Hash][]feesummary.Entry, error) {
	isSummary := make(map[uint64]bool, len(summaryBlocks))
	for _, bn := range summaryBlocks {
		isSummary[bn] = true
	}

	inputs := make([]payload.BlockInput, 0, end-start)
	for bn := start; bn < end; bn++ {
		block, ok := store.GetBlock(bn)
		if !ok {
			return nil, nil, fmt.Errorf("santa: block %d missing from cache", bn)
		}

		header := *block.Header
		var receipts []receipt.Envelope
		if isSummary[bn] {
			r, err := store.GetReceipts(bn)
			if err != nil {
				return nil, nil, fmt.Errorf("santa: loading receipts for block %d: %w", bn, err)
			}
			receipts = r
		}
		inputs = append(inputs, payload.BlockInput{Header: &header, Receipts: receipts})
	}

	injector := fixtures.New(angstrom, assets, soloProb)
	parentHash := inputs[0].Header.ParentHash
	for _, in := range inputs {
		in.Header.ParentHash = parentHash
		if in.Receipts != nil {
			if err := injector.InjectRandomSummary(in.Header, in.Receipts); err != nil {
				return nil, nil, fmt.Errorf("santa: injecting reward log: %w", err)
			}
		}
		parentHash = in.Header.Hash()
	}

	return inputs, injector.Oracle(), nil
}
