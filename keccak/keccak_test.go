package keccak

import (
	"bytes"
	"crypto/rand"
	"testing"

	"golang.org/x/crypto/sha3"
)

func reference(data []byte) [Size]byte {
	var out [Size]byte
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	h.Sum(out[:0])
	return out
}

func TestEmptyString(t *testing.T) {
	got := Sum256(nil)
	want := reference(nil)
	if got != want {
		t.Fatalf("empty digest mismatch: got %x want %x", got, want)
	}
}

func TestRateBoundaries(t *testing.T) {
	for _, n := range []int{0, 1, 135, 136, 137, 271, 272, 273, 1000} {
		data := make([]byte, n)
		if _, err := rand.Read(data); err != nil {
			t.Fatal(err)
		}
		got := Sum256(data)
		want := reference(data)
		if got != want {
			t.Errorf("len %d: got %x want %x", n, got, want)
		}
	}
}

func TestLargeInput(t *testing.T) {
	data := make([]byte, 5*1024*1024)
	if _, err := rand.Read(data); err != nil {
		t.Fatal(err)
	}
	got := Sum256(data)
	want := reference(data)
	if got != want {
		t.Fatalf("large input mismatch")
	}
}

func TestChunkedWritesMatchSingleWrite(t *testing.T) {
	data := bytes.Repeat([]byte("angstrom santa claus"), 50)
	s := New()
	for i := 0; i < len(data); i += 7 {
		end := i + 7
		if end > len(data) {
			end = len(data)
		}
		s.Write(data[i:end])
	}
	got := s.Sum32()
	want := Sum256(data)
	if got != want {
		t.Fatalf("chunked write mismatch: got %x want %x", got, want)
	}
}

func TestResetIsReusable(t *testing.T) {
	s := New()
	s.Write([]byte("hello"))
	first := s.Sum32()

	s.Write([]byte("hello"))
	second := s.Sum32()

	if first != second {
		t.Fatalf("expected reused state to reproduce digest: %x vs %x", first, second)
	}
	if first != reference([]byte("hello")) {
		t.Fatalf("digest does not match reference")
	}

	s.Write([]byte("potato"))
	third := s.Sum32()
	if third != reference([]byte("potato")) {
		t.Fatalf("digest after second reset does not match reference")
	}
}
