// Package rpcfetch is a read-only Ethereum JSON-RPC client: headers,
// block transaction hashes, and batched receipt lookups. It is
// adapted from a full read/write client by dropping every
// transaction-submission concern — this system only ever consumes a
// chain, never drives one.
package rpcfetch

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"santaclaus/receipt"
)

// Client wraps an *rpc.Client with the handful of read-only calls the
// guest's host tooling needs.
type Client struct {
	c *rpc.Client
}

// Dial connects to a node at rawurl (http(s):// or a .ipc path).
func Dial(rawurl string) (*Client, error) {
	return DialContext(context.Background(), rawurl)
}

// DialContext is Dial with a caller-supplied context.
func DialContext(ctx context.Context, rawurl string) (*Client, error) {
	c, err := rpc.DialContext(ctx, rawurl)
	if err != nil {
		return nil, err
	}
	return NewClient(c), nil
}

// NewClient wraps an existing *rpc.Client.
func NewClient(c *rpc.Client) *Client {
	return &Client{c: c}
}

// Close closes the underlying RPC connection.
func (c *Client) Close() {
	c.c.Close()
}

// fetchBlock issues one eth_getBlockByNumber call and returns the raw
// JSON, decoded separately by HeaderByNumber and BlockTxHashes since
// types.Header's own UnmarshalJSON and a plain transaction-hash list
// can't share a single destination struct.
func (c *Client) fetchBlock(ctx context.Context, number uint64) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.c.CallContext(ctx, &raw, "eth_getBlockByNumber", toBlockNumArg(number), false); err != nil {
		return nil, err
	}
	if raw == nil || string(raw) == "null" {
		return nil, ethereum.NotFound
	}
	return raw, nil
}

// HeaderByNumber returns the header at the given block number.
func (c *Client) HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error) {
	raw, err := c.fetchBlock(ctx, number)
	if err != nil {
		return nil, err
	}
	var header types.Header
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("rpcfetch: decoding header for block %d: %w", number, err)
	}
	return &header, nil
}

// BlockTxHashes returns the transaction hashes of the block at number,
// in transaction order.
func (c *Client) BlockTxHashes(ctx context.Context, number uint64) ([]common.Hash, error) {
	raw, err := c.fetchBlock(ctx, number)
	if err != nil {
		return nil, err
	}
	var body struct {
		Transactions []common.Hash `json:"transactions"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("rpcfetch: decoding transactions for block %d: %w", number, err)
	}
	return body.Transactions, nil
}

// ReceiptsByTxHashes fetches the receipts for hashes in one RPC round
// trip via batching, and converts each into the Envelope it describes.
// The returned slice is in the same order as hashes.
func (c *Client) ReceiptsByTxHashes(ctx context.Context, hashes []common.Hash) ([]receipt.Envelope, error) {
	if len(hashes) == 0 {
		return nil, nil
	}

	reqs := make([]rpc.BatchElem, len(hashes))
	results := make([]*types.Receipt, len(hashes))
	for i, h := range hashes {
		results[i] = new(types.Receipt)
		reqs[i] = rpc.BatchElem{
			Method: "eth_getTransactionReceipt",
			Args:   []interface{}{h},
			Result: results[i],
		}
	}

	if err := c.c.BatchCallContext(ctx, reqs); err != nil {
		return nil, fmt.Errorf("rpcfetch: batch receipt call: %w", err)
	}

	envelopes := make([]receipt.Envelope, len(hashes))
	for i, req := range reqs {
		if req.Error != nil {
			return nil, fmt.Errorf("rpcfetch: receipt for %s: %w", hashes[i], req.Error)
		}
		env, err := receipt.FromGethReceipt(results[i])
		if err != nil {
			return nil, fmt.Errorf("rpcfetch: converting receipt for %s: %w", hashes[i], err)
		}
		envelopes[i] = env
	}
	return envelopes, nil
}

func toBlockNumArg(number uint64) string {
	return hexutil.EncodeBig(new(big.Int).SetUint64(number))
}
