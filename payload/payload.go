// Package payload implements the guest's single input blob: a run of
// RLP-encoded headers, the reward-bearing blocks among them (each
// carrying its receipts-trie proof and the typed receipt it proves),
// and the flat fee-entry records those reward blocks describe.
package payload

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"santaclaus/receipt"
)

// RewardBlock is one header, among the headers in a Payload, that
// contains an Angstrom reward log.
type RewardBlock struct {
	// BlockIndex is the position of the corresponding header within
	// Payload.Headers (0-based).
	BlockIndex uint32
	// Proof is the compact receipts-trie proof for Receipt.
	Proof []byte
	// Receipt is the typed receipt containing the reward log.
	Receipt receipt.Envelope
	// LogIndex is the position of the reward log within Receipt.Logs().
	LogIndex uint32
	// FeeEntriesCount is the number of feesummary.Entry records this
	// block contributes to Payload's fee_entries blob.
	FeeEntriesCount uint32
}

// Payload is the guest's entire input: a run of RLP-encoded headers
// (concatenated back to back, parsed lazily with headerlens), the
// reward blocks among them, and the fee entries they describe.
type Payload struct {
	Angstrom     common.Address
	Headers      []byte
	RewardBlocks []RewardBlock
	FeeEntries   []byte
}

func putUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func putBytes(buf []byte, b []byte) []byte {
	buf = putUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

// Encode serializes p using the wire format described in the guest
// input/output framing: a fixed 20-byte Angstrom address, then
// length-prefixed headers, length-prefixed reward blocks, and a
// length-prefixed fee-entries blob. Every length prefix and every
// integer field is a 4-byte big-endian uint32.
func Encode(p *Payload) ([]byte, error) {
	buf := make([]byte, 0, 20+4+len(p.Headers)+4+len(p.FeeEntries))
	buf = append(buf, p.Angstrom[:]...)
	buf = putBytes(buf, p.Headers)

	blockBuf := make([]byte, 0)
	for i, rb := range p.RewardBlocks {
		encodedReceipt, err := receipt.EncodeToBytes(rb.Receipt)
		if err != nil {
			return nil, fmt.Errorf("payload: encoding receipt for reward block %d: %w", i, err)
		}
		blockBuf = putUint32(blockBuf, rb.BlockIndex)
		blockBuf = putBytes(blockBuf, rb.Proof)
		blockBuf = putBytes(blockBuf, encodedReceipt)
		blockBuf = putUint32(blockBuf, rb.LogIndex)
		blockBuf = putUint32(blockBuf, rb.FeeEntriesCount)
	}
	buf = putBytes(buf, blockBuf)

	buf = putBytes(buf, p.FeeEntries)
	return buf, nil
}

// decoder is a length-checked cursor used only by Decode, which
// operates on host-supplied (not zkVM-guest-trusted) bytes and so
// must fail cleanly on truncated input rather than panic.
type decoder struct {
	buf []byte
}

func (d *decoder) need(n int) error {
	if len(d.buf) < n {
		return fmt.Errorf("payload: need %d bytes, have %d", n, len(d.buf))
	}
	return nil
}

func (d *decoder) readUint32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(d.buf[:4])
	d.buf = d.buf[4:]
	return v, nil
}

func (d *decoder) readBytes() ([]byte, error) {
	n, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	if err := d.need(int(n)); err != nil {
		return nil, err
	}
	b := d.buf[:n]
	d.buf = d.buf[n:]
	return b, nil
}

// Decode parses a Payload out of data, the inverse of Encode.
func Decode(data []byte) (*Payload, error) {
	d := &decoder{buf: data}

	if err := d.need(20); err != nil {
		return nil, err
	}
	var angstrom common.Address
	copy(angstrom[:], d.buf[:20])
	d.buf = d.buf[20:]

	headers, err := d.readBytes()
	if err != nil {
		return nil, fmt.Errorf("payload: reading headers: %w", err)
	}

	blockBytes, err := d.readBytes()
	if err != nil {
		return nil, fmt.Errorf("payload: reading reward blocks: %w", err)
	}

	blockDecoder := &decoder{buf: blockBytes}
	var rewardBlocks []RewardBlock
	for len(blockDecoder.buf) > 0 {
		blockIndex, err := blockDecoder.readUint32()
		if err != nil {
			return nil, fmt.Errorf("payload: reading block_index: %w", err)
		}
		proof, err := blockDecoder.readBytes()
		if err != nil {
			return nil, fmt.Errorf("payload: reading proof: %w", err)
		}
		encodedReceipt, err := blockDecoder.readBytes()
		if err != nil {
			return nil, fmt.Errorf("payload: reading receipt: %w", err)
		}
		env, err := receipt.DecodeEnvelope(encodedReceipt)
		if err != nil {
			return nil, fmt.Errorf("payload: decoding receipt: %w", err)
		}
		logIndex, err := blockDecoder.readUint32()
		if err != nil {
			return nil, fmt.Errorf("payload: reading log_index: %w", err)
		}
		feeEntriesCount, err := blockDecoder.readUint32()
		if err != nil {
			return nil, fmt.Errorf("payload: reading fee_entries_count: %w", err)
		}

		rewardBlocks = append(rewardBlocks, RewardBlock{
			BlockIndex:      blockIndex,
			Proof:           proof,
			Receipt:         env,
			LogIndex:        logIndex,
			FeeEntriesCount: feeEntriesCount,
		})
	}

	feeEntries, err := d.readBytes()
	if err != nil {
		return nil, fmt.Errorf("payload: reading fee_entries: %w", err)
	}

	if len(d.buf) != 0 {
		return nil, fmt.Errorf("payload: %d trailing bytes after fee_entries", len(d.buf))
	}

	return &Payload{
		Angstrom:     angstrom,
		Headers:      headers,
		RewardBlocks: rewardBlocks,
		FeeEntries:   feeEntries,
	}, nil
}
