package keccak

// permute applies the Keccak-f[1600] permutation in place over the
// 25 64-bit lanes of buf, following the standard round structure
// (theta, rho, pi, chi, iota) across 24 rounds.
func permute(buf *[words]uint64) {
	var bc [5]uint64

	for round := 0; round < 24; round++ {
		// Theta
		for i := 0; i < 5; i++ {
			bc[i] = buf[i] ^ buf[i+5] ^ buf[i+10] ^ buf[i+15] ^ buf[i+20]
		}
		for i := 0; i < 5; i++ {
			t := bc[(i+4)%5] ^ rotl64(bc[(i+1)%5], 1)
			for j := 0; j < 25; j += 5 {
				buf[j+i] ^= t
			}
		}

		// Rho + Pi
		t := buf[1]
		for i := 0; i < 24; i++ {
			j := piLane[i]
			bc[0] = buf[j]
			buf[j] = rotl64(t, rhoOffsets[i])
			t = bc[0]
		}

		// Chi
		for j := 0; j < 25; j += 5 {
			for i := 0; i < 5; i++ {
				bc[i] = buf[j+i]
			}
			for i := 0; i < 5; i++ {
				buf[j+i] = bc[i] ^ (^bc[(i+1)%5] & bc[(i+2)%5])
			}
		}

		// Iota
		buf[0] ^= roundConstants[round]
	}
}

func rotl64(x uint64, n uint) uint64 {
	return (x << n) | (x >> (64 - n))
}

var roundConstants = [24]uint64{
	0x0000000000000001, 0x0000000000008082, 0x800000000000808a, 0x8000000080008000,
	0x000000000000808b, 0x0000000080000001, 0x8000000080008081, 0x8000000000008009,
	0x000000000000008a, 0x0000000000000088, 0x0000000080008009, 0x000000008000000a,
	0x000000008000808b, 0x800000000000008b, 0x8000000000008089, 0x8000000000008003,
	0x8000000000008002, 0x8000000000000080, 0x000000000000800a, 0x800000008000000a,
	0x8000000080008081, 0x8000000000008080, 0x0000000080000001, 0x8000000080008008,
}

// rhoOffsets and piLane encode the rho-rotation and pi-permutation
// steps for the 24 non-fixed lanes, visited starting from lane 1.
var rhoOffsets = [24]uint{
	1, 3, 6, 10, 15, 21, 28, 36, 45, 55, 2, 14,
	27, 41, 56, 8, 25, 43, 62, 18, 39, 61, 20, 44,
}

var piLane = [24]int{
	10, 7, 11, 17, 18, 3, 5, 16, 8, 21, 24, 4,
	15, 23, 19, 13, 12, 2, 20, 14, 22, 9, 6, 1,
}
