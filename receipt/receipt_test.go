package receipt

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func sampleBody(status uint64) body {
	return body{
		PostStateOrStatus: []byte{byte(status)},
		CumulativeGasUsed: 21000,
		Bloom:             types.Bloom{},
		LogsField: []*types.Log{
			{
				Address: common.HexToAddress("0x00000000000000000000000000000000001234"),
				Topics:  []common.Hash{common.HexToHash("0xaa")},
				Data:    []byte{0x01, 0x02},
			},
		},
	}
}

func TestLegacyReceiptRoundTrip(t *testing.T) {
	r := &LegacyReceipt{body: sampleBody(1)}
	encoded, err := EncodeToBytes(r)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if encoded[0] < 0xc0 {
		t.Fatalf("expected legacy receipt to start with an RLP list head, got %#x", encoded[0])
	}

	decoded, err := DecodeEnvelope(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Type() != types.LegacyTxType {
		t.Fatalf("expected legacy type, got %d", decoded.Type())
	}
	if len(decoded.Logs()) != 1 || decoded.Logs()[0].Address != r.Logs()[0].Address {
		t.Fatalf("logs did not round-trip")
	}
}

func TestTypedReceiptsRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		env  Envelope
		typ  byte
	}{
		{"access-list", &AccessListReceipt{body: sampleBody(1)}, types.AccessListTxType},
		{"dynamic-fee", &DynamicFeeReceipt{body: sampleBody(1)}, types.DynamicFeeTxType},
		{"blob", &BlobReceipt{body: sampleBody(0)}, types.BlobTxType},
		{"set-code", &SetCodeReceipt{body: sampleBody(1)}, types.SetCodeTxType},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			encoded, err := EncodeToBytes(c.env)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if encoded[0] != c.typ {
				t.Fatalf("expected leading type byte %#x, got %#x", c.typ, encoded[0])
			}

			decoded, err := DecodeEnvelope(encoded)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if decoded.Type() != c.typ {
				t.Fatalf("type mismatch: got %d want %d", decoded.Type(), c.typ)
			}
			if len(decoded.Logs()) != 1 {
				t.Fatalf("expected 1 log, got %d", len(decoded.Logs()))
			}
		})
	}
}

func TestDecodeEnvelopeRejectsUnknownType(t *testing.T) {
	if _, err := DecodeEnvelope([]byte{0x7f, 0x00}); err == nil {
		t.Fatal("expected error for unknown envelope type byte")
	}
}

func TestDecodeEnvelopeRejectsEmpty(t *testing.T) {
	if _, err := DecodeEnvelope(nil); err == nil {
		t.Fatal("expected error for empty envelope")
	}
}

func TestEncodeToBytesUsesBuffer(t *testing.T) {
	r := &LegacyReceipt{body: sampleBody(1)}
	var buf bytes.Buffer
	if err := r.EncodeTyped(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected non-empty encoding")
	}
}
