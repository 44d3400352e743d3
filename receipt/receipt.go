// Package receipt implements the EIP-2718 typed receipt envelope: a
// receipt is either the untyped legacy RLP encoding or a single type
// byte followed by an RLP-encoded payload. Go has no sum types, so
// the five receipt kinds are five concrete structs behind a shared
// Envelope interface, dispatched on that leading byte.
package receipt

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
)

// Envelope is satisfied by every receipt kind this package knows
// about. EncodeTyped always writes the canonical EIP-2718 form,
// including the leading type byte for every non-legacy kind.
type Envelope interface {
	Type() byte
	Logs() []*types.Log
	EncodeTyped(w io.Writer) error
}

// body holds the consensus fields common to every receipt kind.
// Since EIP-658 every kind encodes status rather than an intermediate
// state root, but PostStateOrStatus is kept as raw bytes so a
// pre-Byzantium legacy receipt (which still used the root) round-trips
// unchanged too.
type body struct {
	PostStateOrStatus []byte
	CumulativeGasUsed uint64
	Bloom             types.Bloom
	LogsField         []*types.Log
}

func (b *body) Logs() []*types.Log { return b.LogsField }

// Mutable is satisfied by every Envelope, giving fixture generators a
// way to rewrite a receipt's logs and status in place before its
// block's receipts root is recomputed.
type Mutable interface {
	SetLogs(logs []*types.Log)
	SetStatus(status uint64)
}

func (b *body) SetLogs(logs []*types.Log) { b.LogsField = logs }

func (b *body) SetStatus(status uint64) { b.PostStateOrStatus = []byte{byte(status)} }

// rlpBody mirrors body's field order for RLP encode/decode; gas is
// written as a uint64 like every post-Byzantium Ethereum receipt
// (unlike the teacher's RSK receipts, which store gas as trimmed
// big-endian bytes).
type rlpBody struct {
	PostStateOrStatus []byte
	CumulativeGasUsed uint64
	Bloom             types.Bloom
	Logs              []*types.Log
}

func (b *body) encodePayload(w io.Writer) error {
	status := b.PostStateOrStatus
	if len(status) == 1 && status[0] == 0 {
		// A failed status is the empty string in the consensus encoding.
		status = nil
	}
	return rlp.Encode(w, &rlpBody{
		PostStateOrStatus: status,
		CumulativeGasUsed: b.CumulativeGasUsed,
		Bloom:             b.Bloom,
		Logs:              b.LogsField,
	})
}

func (b *body) decodePayload(data []byte) error {
	var dec rlpBody
	if err := rlp.DecodeBytes(data, &dec); err != nil {
		return err
	}
	b.PostStateOrStatus = dec.PostStateOrStatus
	b.CumulativeGasUsed = dec.CumulativeGasUsed
	b.Bloom = dec.Bloom
	b.LogsField = dec.Logs
	return nil
}

func newBody(status uint64, cumulativeGasUsed uint64, bloom types.Bloom, logs []*types.Log) body {
	return body{
		PostStateOrStatus: []byte{byte(status)},
		CumulativeGasUsed: cumulativeGasUsed,
		Bloom:             bloom,
		LogsField:         logs,
	}
}

// NewLegacyReceipt builds a LegacyReceipt from its consensus fields.
func NewLegacyReceipt(status, cumulativeGasUsed uint64, bloom types.Bloom, logs []*types.Log) *LegacyReceipt {
	return &LegacyReceipt{body: newBody(status, cumulativeGasUsed, bloom, logs)}
}

// NewAccessListReceipt builds an AccessListReceipt from its consensus fields.
func NewAccessListReceipt(status, cumulativeGasUsed uint64, bloom types.Bloom, logs []*types.Log) *AccessListReceipt {
	return &AccessListReceipt{body: newBody(status, cumulativeGasUsed, bloom, logs)}
}

// NewDynamicFeeReceipt builds a DynamicFeeReceipt from its consensus fields.
func NewDynamicFeeReceipt(status, cumulativeGasUsed uint64, bloom types.Bloom, logs []*types.Log) *DynamicFeeReceipt {
	return &DynamicFeeReceipt{body: newBody(status, cumulativeGasUsed, bloom, logs)}
}

// NewBlobReceipt builds a BlobReceipt from its consensus fields.
func NewBlobReceipt(status, cumulativeGasUsed uint64, bloom types.Bloom, logs []*types.Log) *BlobReceipt {
	return &BlobReceipt{body: newBody(status, cumulativeGasUsed, bloom, logs)}
}

// NewSetCodeReceipt builds a SetCodeReceipt from its consensus fields.
func NewSetCodeReceipt(status, cumulativeGasUsed uint64, bloom types.Bloom, logs []*types.Log) *SetCodeReceipt {
	return &SetCodeReceipt{body: newBody(status, cumulativeGasUsed, bloom, logs)}
}

// LegacyReceipt is the pre-EIP-2718 receipt: a bare RLP list with no
// leading type byte.
type LegacyReceipt struct{ body }

func (*LegacyReceipt) Type() byte { return types.LegacyTxType }

func (r *LegacyReceipt) EncodeTyped(w io.Writer) error {
	return r.encodePayload(w)
}

// AccessListReceipt is the EIP-2930 typed receipt (type 0x01).
type AccessListReceipt struct{ body }

func (*AccessListReceipt) Type() byte { return types.AccessListTxType }

func (r *AccessListReceipt) EncodeTyped(w io.Writer) error {
	return encodeTypedBody(w, r.Type(), &r.body)
}

// DynamicFeeReceipt is the EIP-1559 typed receipt (type 0x02).
type DynamicFeeReceipt struct{ body }

func (*DynamicFeeReceipt) Type() byte { return types.DynamicFeeTxType }

func (r *DynamicFeeReceipt) EncodeTyped(w io.Writer) error {
	return encodeTypedBody(w, r.Type(), &r.body)
}

// BlobReceipt is the EIP-4844 typed receipt (type 0x03).
type BlobReceipt struct{ body }

func (*BlobReceipt) Type() byte { return types.BlobTxType }

func (r *BlobReceipt) EncodeTyped(w io.Writer) error {
	return encodeTypedBody(w, r.Type(), &r.body)
}

// SetCodeReceipt is the EIP-7702 typed receipt (type 0x04).
type SetCodeReceipt struct{ body }

func (*SetCodeReceipt) Type() byte { return types.SetCodeTxType }

func (r *SetCodeReceipt) EncodeTyped(w io.Writer) error {
	return encodeTypedBody(w, r.Type(), &r.body)
}

func encodeTypedBody(w io.Writer, typ byte, b *body) error {
	if _, err := w.Write([]byte{typ}); err != nil {
		return err
	}
	return b.encodePayload(w)
}

// DecodeEnvelope dispatches on data's leading byte and returns the
// matching Envelope. A byte of 0xc0 or higher is an untyped legacy
// RLP list; 0x01-0x04 select the corresponding typed receipt.
func DecodeEnvelope(data []byte) (Envelope, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("receipt: empty envelope")
	}

	if data[0] >= 0xc0 {
		r := &LegacyReceipt{}
		if err := r.decodePayload(data); err != nil {
			return nil, fmt.Errorf("receipt: decoding legacy receipt: %w", err)
		}
		return r, nil
	}

	payload := data[1:]
	switch data[0] {
	case types.AccessListTxType:
		r := &AccessListReceipt{}
		if err := r.decodePayload(payload); err != nil {
			return nil, fmt.Errorf("receipt: decoding access-list receipt: %w", err)
		}
		return r, nil
	case types.DynamicFeeTxType:
		r := &DynamicFeeReceipt{}
		if err := r.decodePayload(payload); err != nil {
			return nil, fmt.Errorf("receipt: decoding dynamic-fee receipt: %w", err)
		}
		return r, nil
	case types.BlobTxType:
		r := &BlobReceipt{}
		if err := r.decodePayload(payload); err != nil {
			return nil, fmt.Errorf("receipt: decoding blob receipt: %w", err)
		}
		return r, nil
	case types.SetCodeTxType:
		r := &SetCodeReceipt{}
		if err := r.decodePayload(payload); err != nil {
			return nil, fmt.Errorf("receipt: decoding set-code receipt: %w", err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("receipt: unknown envelope type byte %#x", data[0])
	}
}

// EncodeToBytes is a convenience wrapper around EncodeTyped.
func EncodeToBytes(e Envelope) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.EncodeTyped(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
