package rpcfetch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	JSONRPC string            `json:"jsonrpc"`
}

// mockRPCServer answers both single and batched JSON-RPC requests,
// dispatching each call in the batch through handler.
func mockRPCServer(t *testing.T, handler func(method string, params []json.RawMessage) (interface{}, error)) *httptest.Server {
	respond := func(req rpcRequest) map[string]interface{} {
		result, err := handler(req.Method, req.Params)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if err != nil {
			resp["error"] = map[string]interface{}{"code": -32000, "message": err.Error()}
		} else {
			resp["result"] = result
		}
		return resp
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("reading request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")

		trimmed := bytes.TrimSpace(body)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var reqs []rpcRequest
			if err := json.Unmarshal(trimmed, &reqs); err != nil {
				t.Fatalf("decoding batch request: %v", err)
			}
			resps := make([]map[string]interface{}, len(reqs))
			for i, req := range reqs {
				resps[i] = respond(req)
			}
			json.NewEncoder(w).Encode(resps)
			return
		}

		var req rpcRequest
		if err := json.Unmarshal(trimmed, &req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(respond(req))
	}))
}

func hash32(b byte) string {
	return common.BytesToHash([]byte{b}).Hex()
}

func sampleBlockJSON(transactions []string) map[string]interface{} {
	return map[string]interface{}{
		"parentHash":       hash32(1),
		"sha3Uncles":       hash32(2),
		"miner":            common.Address{}.Hex(),
		"stateRoot":        hash32(3),
		"transactionsRoot": hash32(4),
		"receiptsRoot":     hash32(5),
		"logsBloom":        "0x" + string(make([]byte, 512)),
		"difficulty":       "0x0",
		"number":           "0x2a",
		"gasLimit":         "0x1c9c380",
		"gasUsed":          "0x5208",
		"timestamp":        "0x64a00000",
		"extraData":        "0x",
		"mixHash":          hash32(6),
		"nonce":            "0x0000000000000000",
		"transactions":     transactions,
	}
}

func TestHeaderByNumber(t *testing.T) {
	server := mockRPCServer(t, func(method string, params []json.RawMessage) (interface{}, error) {
		assert.Equal(t, "eth_getBlockByNumber", method)
		block := sampleBlockJSON(nil)
		block["logsBloom"] = "0x" + bloomHex()
		return block, nil
	})
	defer server.Close()

	client, err := Dial(server.URL)
	require.NoError(t, err)
	defer client.Close()

	header, err := client.HeaderByNumber(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), header.Number.Uint64())
	assert.Equal(t, common.BytesToHash([]byte{1}), header.ParentHash)
}

func TestHeaderByNumberNotFound(t *testing.T) {
	server := mockRPCServer(t, func(method string, params []json.RawMessage) (interface{}, error) {
		return nil, nil
	})
	defer server.Close()

	client, err := Dial(server.URL)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.HeaderByNumber(context.Background(), 1)
	require.Error(t, err)
}

func TestBlockTxHashes(t *testing.T) {
	want := []string{
		common.HexToHash("0x01").Hex(),
		common.HexToHash("0x02").Hex(),
	}
	server := mockRPCServer(t, func(method string, params []json.RawMessage) (interface{}, error) {
		assert.Equal(t, "eth_getBlockByNumber", method)
		block := sampleBlockJSON(want)
		block["logsBloom"] = "0x" + bloomHex()
		return block, nil
	})
	defer server.Close()

	client, err := Dial(server.URL)
	require.NoError(t, err)
	defer client.Close()

	got, err := client.BlockTxHashes(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, common.HexToHash("0x01"), got[0])
	assert.Equal(t, common.HexToHash("0x02"), got[1])
}

func TestReceiptsByTxHashesBatches(t *testing.T) {
	hashes := []common.Hash{common.HexToHash("0x01"), common.HexToHash("0x02")}
	var seenMethods []string

	server := mockRPCServer(t, func(method string, params []json.RawMessage) (interface{}, error) {
		seenMethods = append(seenMethods, method)
		return &types.Receipt{
			Type:              types.LegacyTxType,
			Status:            1,
			CumulativeGasUsed: 21000,
			Logs:              []*types.Log{},
		}, nil
	})
	defer server.Close()

	client, err := Dial(server.URL)
	require.NoError(t, err)
	defer client.Close()

	envelopes, err := client.ReceiptsByTxHashes(context.Background(), hashes)
	require.NoError(t, err)
	require.Len(t, envelopes, 2)
	for _, m := range seenMethods {
		assert.Equal(t, "eth_getTransactionReceipt", m)
	}
}

func TestReceiptsByTxHashesEmpty(t *testing.T) {
	client := &Client{}
	got, err := client.ReceiptsByTxHashes(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, got)
}

func bloomHex() string {
	b := make([]byte, types.BloomByteLength*2)
	for i := range b {
		b[i] = '0'
	}
	return string(b)
}
