// Package bitfield provides the per block availability map persisted
// alongside a feed, and the tree index derived from it.
//
// Bits are MSB0: bit i lives in byte i/8 at position 7-(i%8). The
// persisted form interleaves two planes per page, a block presence
// plane and a tree node plane; see FromBytes and Pages.
package bitfield

const (
	// PageBytes is the block presence plane width per persisted page.
	PageBytes = 1024
	// TreePageBytes is the tree node plane width per persisted page.
	TreePageBytes = 2048

	pageStride = PageBytes + TreePageBytes
)

// Bitfield is a growable MSB0 bitmap.
type Bitfield struct {
	data []byte
}

func New() *Bitfield {
	return &Bitfield{}
}

// Get reports bit i. Bits beyond the allocated bytes are unset.
func (b *Bitfield) Get(i uint64) bool {
	byteIndex := i >> 3
	if byteIndex >= uint64(len(b.data)) {
		return false
	}
	return b.data[byteIndex]&(0x80>>(i&7)) != 0
}

// Set sets or clears bit i, growing the bitmap as needed.
func (b *Bitfield) Set(i uint64, v bool) {
	byteIndex := i >> 3
	if byteIndex >= uint64(len(b.data)) {
		if !v {
			return
		}
		grown := make([]byte, byteIndex+1)
		copy(grown, b.data)
		b.data = grown
	}
	if v {
		b.data[byteIndex] |= 0x80 >> (i & 7)
		return
	}
	b.data[byteIndex] &^= 0x80 >> (i & 7)
}

// Len returns the bit capacity of the allocated bytes.
func (b *Bitfield) Len() uint64 {
	return uint64(len(b.data)) * 8
}

// Bytes returns the backing bytes. The slice is not copied.
func (b *Bitfield) Bytes() []byte {
	return b.data
}

// lastSet returns the highest set bit index, or ok=false when the
// bitmap is empty.
func (b *Bitfield) lastSet() (uint64, bool) {
	for byteIndex := len(b.data) - 1; byteIndex >= 0; byteIndex-- {
		v := b.data[byteIndex]
		if v == 0 {
			continue
		}
		for bit := 7; bit >= 0; bit-- {
			if v&(1<<bit) != 0 {
				return uint64(byteIndex)*8 + uint64(7-bit), true
			}
		}
	}
	return 0, false
}

// FromBytes splits persisted pages into the block presence plane and
// the tree node plane. A short final page is zero extended; the planes
// are loaded wholesale and never reinterpreted afterwards.
func FromBytes(buf []byte) (*Bitfield, *Bitfield) {
	blocks := New()
	tree := New()
	for len(buf) > 0 {
		page := buf
		if len(page) > pageStride {
			page = page[:pageStride]
		}
		page = padPage(page)
		blocks.data = append(blocks.data, page[:PageBytes]...)
		tree.data = append(tree.data, page[PageBytes:]...)
		buf = buf[min(len(buf), pageStride):]
	}
	return blocks, tree
}

// Pages interleaves the two planes back into the persisted page form.
func Pages(blocks, tree *Bitfield) []byte {
	nPages := max(ceilDiv(len(blocks.data), PageBytes), ceilDiv(len(tree.data), TreePageBytes))
	out := make([]byte, nPages*pageStride)
	for p := 0; p < nPages; p++ {
		copyPlane(out[p*pageStride:], blocks.data, p*PageBytes, PageBytes)
		copyPlane(out[p*pageStride+PageBytes:], tree.data, p*TreePageBytes, TreePageBytes)
	}
	return out
}

func padPage(page []byte) []byte {
	if len(page) == pageStride {
		return page
	}
	padded := make([]byte, pageStride)
	copy(padded, page)
	return padded
}

func copyPlane(dst, plane []byte, offset, width int) {
	if offset >= len(plane) {
		return
	}
	copy(dst[:width], plane[offset:])
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
