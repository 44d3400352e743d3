// Package triepath implements the hex-prefix path encoding used by
// receipt-trie leaf and extension nodes: a single flag nibble packed
// with an odd-length indicator, followed by the path's own nibbles.
package triepath

const (
	// PathFlagMask isolates the leaf/extension bit from a path's first byte.
	PathFlagMask = 0x20
	// LeafPathFlag marks a hex-prefix path as belonging to a leaf node.
	LeafPathFlag = 0x20
	// ExtensionPathFlag marks a hex-prefix path as belonging to an extension node.
	ExtensionPathFlag = 0x00
	// OddNibblesFlag marks a hex-prefix path as holding an odd nibble count.
	OddNibblesFlag = 0x10
	// NibbleMask isolates the low nibble of a byte.
	NibbleMask = 0x0f
)

// Path is a borrowed hex-prefix encoded trie path: byte 0 packs the
// leaf/extension flag and the odd-nibble-count flag (plus, when odd,
// the first nibble); the remaining bytes hold nibble pairs.
type Path []byte

// New wraps path as a Path, panicking if it is empty or encodes more
// than the 64 nibbles a receipt-trie key can ever hold.
func New(path []byte) Path {
	if len(path) < 1 {
		panic("triepath: path must be at least 1 byte long")
	}
	p := Path(path)
	if p.Nibbles() > 64 {
		panic("triepath: path must be at most 64 nibbles long")
	}
	return p
}

// IsOdd reports whether the path encodes an odd number of nibbles.
func (p Path) IsOdd() bool {
	return p[0]&OddNibblesFlag != 0
}

// IsLeaf reports whether the path belongs to a leaf node.
func (p Path) IsLeaf() bool {
	return p[0]&PathFlagMask == LeafPathFlag
}

// IsExtension reports whether the path belongs to an extension node.
func (p Path) IsExtension() bool {
	return p[0]&PathFlagMask == ExtensionPathFlag
}

// Nibbles returns the total nibble count encoded by the path.
func (p Path) Nibbles() uint8 {
	odd := uint8(0)
	if p.IsOdd() {
		odd = 1
	}
	return uint8(len(p)-1)*2 + odd
}

// Bytes returns the number of bytes WriteBytes emits: the path bytes
// following the flag byte, plus one for the leading nibble when odd.
func (p Path) Bytes() uint8 {
	odd := uint8(0)
	if p.IsOdd() {
		odd = 1
	}
	return uint8(len(p)-1) + odd
}

// WriteBytes appends the path's raw key bytes (flag and padding
// stripped) to buf: the odd leading nibble first, if present, then
// every remaining full byte.
func (p Path) WriteBytes(buf []byte) []byte {
	if p.IsOdd() {
		buf = append(buf, p[0]&NibbleMask)
	}
	return append(buf, p[1:]...)
}
