package rlpkit

import "testing"

func TestLengthOfLengthShort(t *testing.T) {
	for _, l := range []int{0, 1, 55} {
		if got := LengthOfLength(l); got != 1 {
			t.Errorf("LengthOfLength(%d) = %d, want 1", l, got)
		}
	}
}

func TestLengthOfLengthLong(t *testing.T) {
	cases := map[int]int{
		56:    2,
		255:   2,
		256:   3,
		65535: 3,
		65536: 4,
	}
	for l, want := range cases {
		if got := LengthOfLength(l); got != want {
			t.Errorf("LengthOfLength(%d) = %d, want %d", l, got, want)
		}
	}
}

func TestEncodedLength(t *testing.T) {
	if got := EncodedLength(10); got != 11 {
		t.Errorf("EncodedLength(10) = %d, want 11", got)
	}
	if got := EncodedLength(56); got != 58 {
		t.Errorf("EncodedLength(56) = %d, want 58", got)
	}
}
