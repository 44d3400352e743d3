package receipt

import (
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
)

// FromGethReceipt converts a go-ethereum consensus receipt, as
// returned by an RPC node, into the matching Envelope variant.
func FromGethReceipt(r *types.Receipt) (Envelope, error) {
	b := body{
		PostStateOrStatus: postStateOrStatusBytes(r),
		CumulativeGasUsed: r.CumulativeGasUsed,
		Bloom:             r.Bloom,
		LogsField:         r.Logs,
	}

	switch r.Type {
	case types.LegacyTxType:
		return &LegacyReceipt{body: b}, nil
	case types.AccessListTxType:
		return &AccessListReceipt{body: b}, nil
	case types.DynamicFeeTxType:
		return &DynamicFeeReceipt{body: b}, nil
	case types.BlobTxType:
		return &BlobReceipt{body: b}, nil
	case types.SetCodeTxType:
		return &SetCodeReceipt{body: b}, nil
	default:
		return nil, fmt.Errorf("receipt: unknown geth receipt type %d", r.Type)
	}
}

func postStateOrStatusBytes(r *types.Receipt) []byte {
	if len(r.PostState) > 0 {
		return r.PostState
	}
	return []byte{byte(r.Status)}
}
