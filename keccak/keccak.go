// Package keccak implements a streaming Keccak-256 sponge over an
// explicit, reusable 1600-bit state. It exists separately from
// golang.org/x/crypto/sha3 so the guest can commit to the exact
// absorb/permute/squeeze sequence the proof depends on, rather than a
// black-box hash.Hash.
package keccak

const (
	words = 25
	bytes = words * 8

	// Rate is the sponge's absorption rate in bytes for Keccak-256
	// (1088 bits). The remaining 64 bytes (512 bits) are capacity.
	Rate = 136

	delim = 0x01

	// Size is the digest length in bytes.
	Size = 32
)

// State is a streaming Keccak-256 sponge. The zero value is ready to
// use. A State may be reused across many digests: Sum32 leaves it
// ready for the next preimage by zeroing only the capacity words, so
// the full permutation state is not re-zeroed between uses.
type State struct {
	buf        [words]uint64
	offset     int
	firstBlock bool
}

// New returns a State ready to absorb input.
func New() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset returns the state to its initial, empty-sponge condition.
func (s *State) Reset() {
	for i := range s.buf {
		s.buf[i] = 0
	}
	s.offset = 0
	s.firstBlock = true
}

// view returns the byte-level view of the state words covering
// [offset, offset+length).
func (s *State) view(offset, length int) []byte {
	b := (*[bytes]byte)(stateBytes(&s.buf))
	return b[offset : offset+length]
}

// setin overwrites dst[offset:offset+len(src)] with src.
func (s *State) setin(src []byte, offset int) {
	copy(s.view(offset, len(src)), src)
}

// xorin XORs src into the state bytes starting at offset.
func (s *State) xorin(src []byte, offset int) {
	dst := s.view(offset, len(src))
	for i, b := range src {
		dst[i] ^= b
	}
}

// setout copies len(dst) state bytes starting at offset into dst.
func (s *State) setout(dst []byte, offset int) {
	copy(dst, s.view(offset, len(dst)))
}

// Write absorbs p into the sponge. It never returns an error.
func (s *State) Write(p []byte) (int, error) {
	written := len(p)
	rate := Rate - s.offset
	offset := s.offset

	if s.firstBlock {
		if len(p) >= rate {
			s.setin(p[:rate], offset)
			permute(&s.buf)
			s.firstBlock = false
			p = p[rate:]
			rate = Rate
			offset = 0
		} else {
			s.setin(p, offset)
			s.offset = offset + len(p)
			return written, nil
		}
	}

	for len(p) >= rate {
		s.xorin(p[:rate], offset)
		permute(&s.buf)
		p = p[rate:]
		rate = Rate
		offset = 0
	}

	s.xorin(p, offset)
	s.offset = offset + len(p)
	return written, nil
}

func (s *State) pad() {
	view := s.view(s.offset, 1)
	view[0] ^= delim
	last := s.view(Rate-1, 1)
	last[0] ^= 0x80
}

// Sum32 finalizes the digest into a fixed-size array and resets the
// state so it can be reused for the next preimage.
func (s *State) Sum32() [Size]byte {
	if s.firstBlock {
		clear := s.view(s.offset, Rate-s.offset)
		for i := range clear {
			clear[i] = 0
		}
	}

	s.pad()
	permute(&s.buf)

	var out [Size]byte
	s.setout(out[:], 0)

	for i := Rate / 8; i < words; i++ {
		s.buf[i] = 0
	}
	s.firstBlock = true
	s.offset = 0

	return out
}

// Sum256 hashes data in a single call using a fresh sponge.
func Sum256(data []byte) [Size]byte {
	s := New()
	s.Write(data)
	return s.Sum32()
}
